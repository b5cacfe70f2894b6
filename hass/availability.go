package hass

import "github.com/nlowe/hamqtt/mqtt"

// Availability exposes whether Home Assistant should consider a device or entity as "available" (aka it is online).
type Availability string

var (
	AvailabilityMarshaler mqtt.ValueMarshaler[Availability] = func(v Availability) ([]byte, error) {
		return mqtt.StringMarshaler(string(v))
	}
	AvailabilityUnmarshaler mqtt.ValueUnmarshaler[Availability] = func(bytes []byte) (Availability, error) {
		v, err := mqtt.StringUnmarshaler(bytes)
		return Availability(v), err
	}
)

const (
	// Available is the Availability value for online/available devices.
	Available Availability = "online"
	// Unavailable is the Availability value for offline/unavailable devices.
	Unavailable Availability = "offline"
)

// AvailabilityFor returns Available when online is true and Unavailable otherwise.
func AvailabilityFor(online bool) Availability {
	if online {
		return Available
	}

	return Unavailable
}
