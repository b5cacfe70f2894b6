package hamqtt

import (
	"encoding/json/jsontext"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/nlowe/hamqtt/discovery"
	"github.com/nlowe/hamqtt/mqtt"
)

// ErrInvalidDevice is the error returned by Device.Valid if the device has no usable identifier.
var ErrInvalidDevice = errors.New("device must have a unique id, or at least one value in 'identifiers', 'connections', or the naming fields")

// DeviceConnection maps this Device to the outside world. For example:
//
//	DeviceConnection{
//	    Kind: "mac",
//	    Value: "02:5b:26:a8:dc:12",
//	}
//
// It implements fmt.Stringer and slog.LogValuer
type DeviceConnection struct {
	Kind  string
	Value string
}

func (d DeviceConnection) String() string {
	return fmt.Sprintf("[%q,%q]", d.Kind, d.Value)
}

func (d DeviceConnection) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", d.Kind),
		slog.String("value", d.Value),
	)
}

func (d DeviceConnection) MarshalJSONTo(e *jsontext.Encoder) error {
	return errors.Join(
		e.WriteToken(jsontext.BeginArray),
		e.WriteToken(jsontext.String(d.Kind)),
		e.WriteToken(jsontext.String(d.Value)),
		e.WriteToken(jsontext.EndArray),
	)
}

// Device represents the physical or logical device that owns a set of entities. Every entity's discovery document
// embeds the device block so Home Assistant groups the entities under one device page, and every topic an entity uses
// is scoped by the device's ID.
//
// See https://www.home-assistant.io/integrations/mqtt/#device-discovery-payload
type Device struct {
	// UniqueID identifies the device in topics and entity unique ids. If empty, an ID is calculated from other fields.
	UniqueID string `json:"-"`

	// SharedAvailability makes a single device-level availability topic govern every entity of the device, replacing
	// the per-entity availability topics.
	SharedAvailability bool `json:"-"`

	// The name of the device.
	Name string `json:"name,omitempty"`

	// The serial number of the device
	Serial string `json:"sn,omitempty"`

	// The manufacturer of the device.
	Manufacturer string `json:"mf,omitempty"`

	// The model of the device.
	Model string `json:"mdl,omitempty"`

	// The model identifier of the device.
	ModelID string `json:"mdl_id,omitempty"`

	// A link to the webpage that can manage the configuration of this device. Can be either a http://, https:// or an
	// internal homeassistant:// URL.
	ConfigurationURL *url.URL `json:"cu,omitempty"`

	// A list of connections of the device to the outside world. For example, `[]DeviceConnection{{Kind: "mac", Value: "02:5b:26:a8:dc:12"]}}`
	Connections []DeviceConnection `json:"cns,omitempty"`

	// The hardware version of the device.
	HardwareVersion string `json:"hw,omitempty"`

	// The firmware version of the device
	FirmwareVersion string `json:"sw,omitempty"`

	// A list of IDs that uniquely identify the device. For example a serial number. If both Identifiers and
	// Connections are empty, the device ID is used.
	Identifiers []string `json:"ids,omitempty"`

	// Suggest an area if the device isn't in one yet
	SuggestedArea string `json:"sa,omitempty"`

	// Origin details are logged by Home Assistant when an entity is discovered or updated. If omitted, DefaultOrigin
	// is used when serializing discovery documents.
	Origin *Origin `json:"-"`

	// Identifier of a device that routes messages between this device and Home Assistant. Examples of such devices are
	// hubs, or parent devices of a sub-device. This is used to show device topology in Home Assistant.
	ViaDevice string `json:"via_device,omitempty"`
}

// ID calculates an identifier for this device. If Device.UniqueID is specified, that value will be used. Otherwise, if
// any of the following fields are set, they are used (separated by discovery.IDSep): All Device.Identifiers,
// Device.Name, Device.Serial, Device.Manufacturer, Device.Model, and Device.ModelID.
func (d *Device) ID() string {
	if d == nil {
		return ""
	}

	if d.UniqueID != "" {
		return d.UniqueID
	}

	var result strings.Builder

	write := func(part string) {
		if part == "" {
			return
		}

		if result.Len() > 0 {
			result.WriteString(discovery.IDSep)
		}
		result.WriteString(discovery.IDSanitizer.Replace(part))
	}

	for _, ident := range d.Identifiers {
		write(ident)
	}

	write(d.Name)
	write(d.Serial)
	write(d.Manufacturer)
	write(d.Model)
	write(d.ModelID)

	return result.String()
}

// IsSharedAvailabilityEnabled reports whether the device publishes a single availability topic for all of its
// entities.
func (d *Device) IsSharedAvailabilityEnabled() bool {
	return d != nil && d.SharedAvailability
}

// Valid checks if this Device is configured appropriately: it must have an ID that can be used as a single MQTT topic
// level.
func (d *Device) Valid() error {
	id := d.ID()
	if id == "" {
		return ErrInvalidDevice
	}

	if !mqtt.ValidLevel(id) {
		return fmt.Errorf("%w: %q cannot be used in a topic", ErrInvalidDevice, id)
	}

	return nil
}

// MarshalJSONTo writes the device block of a discovery document.
func (d *Device) MarshalJSONTo(e *jsontext.Encoder) error {
	// Converting to a type without methods keeps MarshalEncode from recursing back into MarshalJSONTo.
	type device Device
	block := device(*d)

	if len(block.Identifiers) == 0 && len(block.Connections) == 0 {
		block.Identifiers = []string{d.ID()}
	}

	return json.MarshalEncode(e, &block, json.WithMarshalers(discovery.Marshalers))
}

func (d *Device) LogValue() slog.Value {
	if d == nil {
		return slog.StringValue("<nil>")
	}

	return slog.GroupValue(
		slog.String("id", d.ID()),
		slog.String("name", d.Name),
		slog.Bool("shared_availability", d.SharedAvailability),
	)
}
