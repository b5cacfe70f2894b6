package hamqtt

import (
	"context"
	"log/slog"

	"github.com/nlowe/hamqtt/discovery"
	"github.com/nlowe/hamqtt/hass"
	"github.com/nlowe/hamqtt/log"
	"github.com/nlowe/hamqtt/mqtt"
)

// Availability is the per-entity availability state. Entities start in AvailabilityDefault and only leave it when
// BaseEntity.SetAvailability is called; there is no way back to AvailabilityDefault.
type Availability uint8

const (
	// AvailabilityDefault means availability was never set. Nothing is published in this state and the discovery
	// document carries no per-entity availability topic.
	AvailabilityDefault Availability = iota
	AvailabilityOnline
	AvailabilityOffline
)

func (a Availability) String() string {
	switch a {
	case AvailabilityOnline:
		return string(hass.Available)
	case AvailabilityOffline:
		return string(hass.Unavailable)
	default:
		return "default"
	}
}

func (a Availability) LogValue() slog.Value {
	return slog.StringValue(a.String())
}

// payload returns the availability token to publish for a.
func (a Availability) payload() mqtt.Source {
	return mqtt.StaticString(string(hass.AvailabilityFor(a == AvailabilityOnline)))
}

func availabilityFor(online bool) Availability {
	if online {
		return AvailabilityOnline
	}

	return AvailabilityOffline
}

// SetAvailability marks the entity online or offline and publishes the new state, retained, on the entity's
// availability topic. Every call attempts exactly one publish, even if the state did not change. Nothing is published
// when the device uses shared availability; use Client.SetDeviceAvailability instead.
func (e *BaseEntity) SetAvailability(ctx context.Context, online bool) {
	e.availability = availabilityFor(online)

	if err := e.publishAvailability(ctx); err != nil {
		e.log.DebugContext(ctx, "Skipped availability publish", slog.Any("availability", e.availability), log.Error(err))
	}
}

// Availability returns the current availability state.
func (e *BaseEntity) Availability() Availability {
	return e.availability
}

// IsAvailabilityConfigured reports whether SetAvailability was ever called. Only then does the discovery document
// reference the entity's availability topic.
func (e *BaseEntity) IsAvailabilityConfigured() bool {
	return e.availability != AvailabilityDefault
}

func (e *BaseEntity) publishAvailability(ctx context.Context) error {
	if e.transport == nil {
		return ErrNoTransport
	}

	device := e.transport.Device()
	switch {
	case device == nil:
		return ErrNoDevice
	case device.IsSharedAvailabilityEnabled():
		return errSharedAvailability
	case !e.IsAvailabilityConfigured():
		return errAvailabilityUnset
	}

	return e.publishOnDataTopic(ctx, discovery.FieldAvailabilityTopic, e.availability.payload(), true)
}
