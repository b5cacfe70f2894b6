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

// Sensor implements the sensor.mqtt integration for Home Assistant. Its state is published on the "stat_t" data topic
// of the entity.
//
// See the Home Assistant documentation for more details: https://www.home-assistant.io/integrations/sensor.mqtt/.
type Sensor struct {
	*hamqtt.BaseEntity

	// The type of data the sensor reports, e.g. "temperature". See
	// https://www.home-assistant.io/integrations/sensor/#device-class
	DeviceClass string

	// If set, it defines the number of seconds after the sensor's state expires if it's not updated. After expiry, the
	// sensor's state becomes unavailable. By default, the sensor's state never expires. Note that when a sensor's value
	// was sent retained to the MQTT broker, the last value sent will be replayed by the MQTT broker when Home Assistant
	// restarts or is reloaded. As this could cause the sensor to become available with an expired state, it is not
	// recommended to retain the sensor's state payload at the MQTT broker.
	ExpireMeasurementsAfter time.Duration

	// Instruct Home Assistant to calculate update events even if the value hasn't changed. Useful if you want to have
	// meaningful value graphs in history.
	ForceUpdate bool

	// Attributes enables the "json_attr_t" topic written by SetAttributes.
	Attributes bool

	// List of allowed sensor state values. The sensor's DeviceClass must be set to "enum". The options cannot be used
	// together with StateClass or UnitOfMeasurement.
	EnumOptions []string

	// The number of decimals which should be used in the sensor's state after rounding. SetFloat also formats values
	// with this precision. Zero leaves rounding to Home Assistant and SetFloat publishes every significant digit; use
	// SetInt for whole numbers.
	SuggestedDisplayPrecision uint

	// The hass.StateClass of the sensor.
	StateClass hass.StateClass

	// Defines the units used by this sensor
	UnitOfMeasurement string

	// Retain state payloads at the broker.
	Retain bool

	value string
}

// NewSensor constructs a Sensor for objectID. Configure its fields, then call Register.
func NewSensor(t hamqtt.Transport, objectID string) *Sensor {
	s := &Sensor{}
	s.BaseEntity = hamqtt.NewBaseEntity(t, "sensor", objectID, s)

	return s
}

func (s *Sensor) BuildSerializer() hamqtt.Serializer {
	d := s.DiscoverySerializer()
	s.addSensorFields(d)

	return d
}

func (s *Sensor) addSensorFields(d *discovery.Serializer) {
	d.SetRequiredTopic("state", discovery.FieldStateTopic, s.DataTopic(discovery.FieldStateTopic))
	d.SetString(discovery.FieldDeviceClass, s.DeviceClass)
	d.SetString(discovery.FieldStateClass, string(s.StateClass))
	d.SetString(discovery.FieldUnitOfMeasurement, s.UnitOfMeasurement)

	expire, force, precision := s.ExpireMeasurementsAfter, s.ForceUpdate, s.SuggestedDisplayPrecision
	d.Add(discovery.FieldExpireMeasurementsAfter, func(e *jsontext.Encoder) error {
		return discovery.MaybeMarshalStdComparable(e, discovery.FieldExpireMeasurementsAfter, expire)
	})
	d.Add(discovery.FieldForceUpdate, func(e *jsontext.Encoder) error {
		return discovery.MaybeMarshalStdComparable(e, discovery.FieldForceUpdate, force)
	})
	d.Add(discovery.FieldSuggestedDisplayPrecision, func(e *jsontext.Encoder) error {
		return discovery.MaybeMarshalStdComparable(e, discovery.FieldSuggestedDisplayPrecision, precision)
	})

	options := s.EnumOptions
	d.Add(discovery.FieldOptions, func(e *jsontext.Encoder) error {
		return discovery.MaybeMarshalStdSlice(e, discovery.FieldOptions, options)
	})

	if s.Attributes {
		d.SetTopic(discovery.FieldAttributesTopic, s.DataTopic(discovery.FieldAttributesTopic))
	}
}

// SetValue publishes value as the sensor's state and remembers it for OnMQTTConnected.
func (s *Sensor) SetValue(ctx context.Context, value string) bool {
	s.value = value
	return s.PublishStringOnDataTopic(ctx, discovery.FieldStateTopic, value, s.Retain)
}

// SetFloat publishes v formatted with SuggestedDisplayPrecision decimals, or in its shortest form when no precision is
// set.
func (s *Sensor) SetFloat(ctx context.Context, v float64) bool {
	precision := -1
	if s.SuggestedDisplayPrecision > 0 {
		precision = int(s.SuggestedDisplayPrecision)
	}

	payload, _ := mqtt.FloatMarshaler(precision)(v)
	return s.SetValue(ctx, string(payload))
}

// SetInt publishes v as the sensor's state.
func (s *Sensor) SetInt(ctx context.Context, v int64) bool {
	payload, _ := mqtt.IntMarshaler(v)
	return s.SetValue(ctx, string(payload))
}

// Value returns the last value passed to SetValue.
func (s *Sensor) Value() string {
	return s.value
}

// SetAttributes publishes attrs as JSON on the attributes topic. Attributes must be enabled.
func (s *Sensor) SetAttributes(ctx context.Context, attrs any) bool {
	if !s.Attributes {
		return false
	}

	return publishValue(ctx, s.BaseEntity, discovery.FieldAttributesTopic, mqtt.JsonValueMarshaler[any](), attrs, s.Retain)
}

// OnMQTTConnected republishes the last value, if any.
func (s *Sensor) OnMQTTConnected(ctx context.Context) {
	if s.value != "" {
		s.PublishStringOnDataTopic(ctx, discovery.FieldStateTopic, s.value, s.Retain)
	}
}
