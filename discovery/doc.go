// Package discovery builds the retained configuration documents Home Assistant reads from
// <prefix>/<component>/<device>/<object>/config to create entities. Serializer assembles one document field by field
// and reports its exact encoded size before it is streamed into a publish.
//
// The Field constants are the abbreviated keys Home Assistant accepts, which keeps retained documents small. Only the
// abbreviations used by this module are declared; see
// https://www.home-assistant.io/integrations/mqtt/#supported-abbreviations-in-mqtt-discovery-messages for the rest.
package discovery
