package platform

import (
	"context"
	"log/slog"

	"github.com/nlowe/hamqtt"
	"github.com/nlowe/hamqtt/discovery"
	"github.com/nlowe/hamqtt/hass"
	"github.com/nlowe/hamqtt/mqtt"
)

// CommandFunc is called when Home Assistant sends an on/off command. It returns whether the command was applied; if
// so, the new state is published.
type CommandFunc func(ctx context.Context, on bool) bool

// Switch implements the switch.mqtt integration for Home Assistant. Home Assistant sends commands on the "cmd_t" data
// topic and reads the state from "stat_t".
//
// See https://www.home-assistant.io/integrations/switch.mqtt/
type Switch struct {
	*hamqtt.BaseEntity

	// Either "outlet" or "switch".
	DeviceClass string

	// Flag that defines if switch works in optimistic mode.
	Optimistic bool

	// Custom values to use for payload commands and state
	CustomPowerStateValues hass.CustomPowerState

	// OnCommand is called for every valid command. If nil, every command is applied.
	OnCommand CommandFunc

	state    *bool
	commands commandTopics
}

// NewSwitch constructs a Switch for objectID. Configure its fields, then call Register.
func NewSwitch(t hamqtt.Transport, objectID string, onCommand CommandFunc) *Switch {
	s := &Switch{OnCommand: onCommand, commands: commandTopics{}}
	s.BaseEntity = hamqtt.NewBaseEntity(t, "switch", objectID, s)

	return s
}

func (s *Switch) BuildSerializer() hamqtt.Serializer {
	d := s.DiscoverySerializer()

	d.SetRequiredTopic("state", discovery.FieldStateTopic, s.DataTopic(discovery.FieldStateTopic))
	d.SetRequiredTopic("command", discovery.FieldCommandTopic, s.DataTopic(discovery.FieldCommandTopic))
	d.SetString(discovery.FieldDeviceClass, s.DeviceClass)
	d.SetString(discovery.FieldPayloadOn, string(s.CustomPowerStateValues.On))
	d.SetString(discovery.FieldPayloadOff, string(s.CustomPowerStateValues.Off))

	if s.Optimistic {
		d.Set(discovery.FieldOptimistic, true)
	}

	return d
}

// SetState publishes the state of the switch, retained, and remembers it for OnMQTTConnected.
func (s *Switch) SetState(ctx context.Context, on bool) bool {
	s.state = &on
	return s.publishState(ctx, on)
}

// State returns the last published state. The second return value is false if no state was published yet.
func (s *Switch) State() (on bool, ok bool) {
	if s.state == nil {
		return false, false
	}

	return *s.state, true
}

func (s *Switch) publishState(ctx context.Context, on bool) bool {
	return s.PublishOnDataTopic(ctx, discovery.FieldStateTopic, mqtt.StaticString(string(s.CustomPowerStateValues.For(on))), true)
}

// OnMQTTConnected subscribes to the command topic and republishes the last state.
func (s *Switch) OnMQTTConnected(ctx context.Context) {
	s.commands.subscribe(ctx, s.BaseEntity, discovery.FieldCommandTopic)

	if on, ok := s.State(); ok {
		s.publishState(ctx, on)
	}
}

// OnMQTTMessage handles commands sent to the switch. Payloads other than the on and off values are ignored.
func (s *Switch) OnMQTTMessage(ctx context.Context, topic string, payload []byte) {
	if _, ok := s.commands.suffix(topic); !ok {
		return
	}

	on, ok := s.CustomPowerStateValues.Parse(payload)
	if !ok {
		s.Logger().WarnContext(ctx, "Ignoring unknown command", slog.String("payload", string(payload)))
		return
	}

	if s.OnCommand == nil || s.OnCommand(ctx, on) {
		s.SetState(ctx, on)
	}
}
