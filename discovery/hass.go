package discovery

import (
	"github.com/nlowe/hamqtt/hass"
	"github.com/nlowe/hamqtt/mqtt"
)

// StatusTopic is the level below the discovery prefix that Home Assistant publishes its own hass.Availability to.
const StatusTopic = "status"

// HomeAssistantAvailability constructs a mqtt.RemoteValue that monitors Home Assistant's availability topic. Subscribe
// to changes to this value to be notified when Home Assistant restarts, at which point every discovery document needs
// to be sent again.
//
// See https://www.home-assistant.io/integrations/mqtt/#birth-and-last-will-messages.
func HomeAssistantAvailability(discoveryPrefix string) *mqtt.RemoteValue[hass.Availability] {
	return mqtt.NewRemoteValue(mqtt.JoinTopic(discoveryPrefix, StatusTopic), hass.AvailabilityUnmarshaler)
}
