package platform

import (
	"context"
	"encoding/json/jsontext"
	"time"

	"github.com/nlowe/hamqtt"
	"github.com/nlowe/hamqtt/discovery"
	"github.com/nlowe/hamqtt/hass"
	"github.com/nlowe/hamqtt/mqtt"
)

// BinarySensor implements the binary_sensor.mqtt integration for Home Assistant. Its state is one of the power state
// payloads, hass.PowerStateOn or hass.PowerStateOff unless CustomPowerStateValues overrides them.
//
// See https://www.home-assistant.io/integrations/binary_sensor.mqtt/ for complete documentation.
type BinarySensor struct {
	*hamqtt.BaseEntity

	// The type of data the sensor reports, e.g. "motion". See
	// https://www.home-assistant.io/integrations/binary_sensor/#device-class
	DeviceClass string

	// For sensors that only send on state updates (like PIRs), this variable sets a delay in seconds after which the
	// sensor's state will be updated back to off by Home Assistant.
	OffDelay time.Duration

	// See Sensor.ExpireMeasurementsAfter.
	ExpireMeasurementsAfter time.Duration

	// Custom values to use for the on and off payloads
	CustomPowerStateValues hass.CustomPowerState

	// Retain state payloads at the broker.
	Retain bool

	state *bool
}

// NewBinarySensor constructs a BinarySensor for objectID. Configure its fields, then call Register.
func NewBinarySensor(t hamqtt.Transport, objectID string) *BinarySensor {
	s := &BinarySensor{}
	s.BaseEntity = hamqtt.NewBaseEntity(t, "binary_sensor", objectID, s)

	return s
}

func (s *BinarySensor) BuildSerializer() hamqtt.Serializer {
	d := s.DiscoverySerializer()

	d.SetRequiredTopic("state", discovery.FieldStateTopic, s.DataTopic(discovery.FieldStateTopic))
	d.SetString(discovery.FieldDeviceClass, s.DeviceClass)
	d.SetString(discovery.FieldPayloadOn, string(s.CustomPowerStateValues.On))
	d.SetString(discovery.FieldPayloadOff, string(s.CustomPowerStateValues.Off))

	offDelay, expire := s.OffDelay, s.ExpireMeasurementsAfter
	d.Add(discovery.FieldOffDelay, func(e *jsontext.Encoder) error {
		return discovery.MaybeMarshalStdComparable(e, discovery.FieldOffDelay, offDelay)
	})
	d.Add(discovery.FieldExpireMeasurementsAfter, func(e *jsontext.Encoder) error {
		return discovery.MaybeMarshalStdComparable(e, discovery.FieldExpireMeasurementsAfter, expire)
	})

	return d
}

// SetState publishes the on or off payload and remembers it for OnMQTTConnected.
func (s *BinarySensor) SetState(ctx context.Context, on bool) bool {
	s.state = &on
	return s.publishState(ctx, on)
}

// State returns the last state passed to SetState. The second return value is false if SetState was never called.
func (s *BinarySensor) State() (on bool, ok bool) {
	if s.state == nil {
		return false, false
	}

	return *s.state, true
}

func (s *BinarySensor) publishState(ctx context.Context, on bool) bool {
	return s.PublishOnDataTopic(ctx, discovery.FieldStateTopic, mqtt.StaticString(string(s.CustomPowerStateValues.For(on))), s.Retain)
}

// OnMQTTConnected republishes the last state, if any.
func (s *BinarySensor) OnMQTTConnected(ctx context.Context) {
	if on, ok := s.State(); ok {
		s.publishState(ctx, on)
	}
}
