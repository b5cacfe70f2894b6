// Package platform contains entity implementations for various Home Assistant MQTT platforms. See the Home Assistant
// docs for a list of supported platforms: https://www.home-assistant.io/integrations/mqtt. Note: Not all platforms are
// implemented by hamqtt.
//
// Each entity embeds a *hamqtt.BaseEntity and implements hamqtt.SerializerBuilder, adding its platform specific fields
// to the document returned by BaseEntity.DiscoverySerializer. Entities with command topics subscribe to them in
// OnMQTTConnected and handle them in OnMQTTMessage, so commands are only delivered after the entity was announced.
//
// Constructors do not register the entity with its transport; call Register once the entity is configured.
package platform
