package hamqtt

import (
	"cmp"
	"encoding/json/jsontext"
	"errors"

	"github.com/nlowe/hamqtt/discovery"
)

// DiscoverySerializer returns a discovery document pre-populated with the fields every entity shares: name, object id,
// unique id, icon, picture, entity category, the device and origin blocks, the QoS when the transport has one, and the
// availability topic. Variants add their own fields to it in BuildSerializer.
//
// The unique id and the device block are required, so the document fails to encode until the entity has a device.
// The availability topic is the device-level one when the device uses shared availability. Otherwise it is the
// entity's own availability topic, but only once SetAvailability has been called.
func (e *BaseEntity) DiscoverySerializer() *discovery.Serializer {
	s := discovery.NewSerializer()

	// Home Assistant wants an explicit null rather than a missing name for entities that only use the device name.
	name := e.name
	s.Add(discovery.FieldName, func(enc *jsontext.Encoder) error {
		token := jsontext.Null
		if name != "" {
			token = jsontext.String(name)
		}

		return errors.Join(
			enc.WriteToken(jsontext.String(discovery.FieldName)),
			enc.WriteToken(token),
		)
	})

	s.SetString(discovery.FieldObjectID, e.objectID)
	uniqueID := e.UniqueID()
	s.Add(discovery.FieldUniqueID, func(enc *jsontext.Encoder) error {
		return discovery.MarshalStdComparable("unique id", enc, discovery.FieldUniqueID, uniqueID)
	})
	s.SetString(discovery.FieldIcon, e.icon)

	picture := e.picture
	s.Add(discovery.FieldPicture, func(enc *jsontext.Encoder) error {
		return discovery.MaybeMarshalStd(enc, discovery.FieldPicture, picture)
	})

	s.SetString(discovery.FieldEntityCategory, e.entityCategory)

	if e.transport == nil {
		return s
	}

	device := e.transport.Device()
	s.Add(discovery.FieldDevice, func(enc *jsontext.Encoder) error {
		return discovery.MarshalStd("device", enc, discovery.FieldDevice, device)
	})
	if device != nil {
		s.Set(discovery.FieldOrigin, cmp.Or(device.Origin, &DefaultOrigin))
	}

	if q, ok := e.transport.(QoSProvider); ok {
		qos := q.QoS()
		s.Add(discovery.FieldQoS, func(enc *jsontext.Encoder) error {
			return discovery.MaybeMarshalStdComparable(enc, discovery.FieldQoS, qos)
		})
	}

	switch {
	case device.IsSharedAvailabilityEnabled():
		s.SetRequiredTopic("availability", discovery.FieldAvailabilityTopic, e.transport.Topics().DataTopic("", discovery.FieldAvailabilityTopic))
	case e.IsAvailabilityConfigured():
		s.SetRequiredTopic("availability", discovery.FieldAvailabilityTopic, e.DataTopic(discovery.FieldAvailabilityTopic))
	}

	return s
}
