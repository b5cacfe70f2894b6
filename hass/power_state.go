package hass

import (
	"cmp"
	"log/slog"

	"github.com/nlowe/hamqtt/mqtt"
)

// PowerState represents generic on/off state for devices. This may or may not refer to physical power depending on the
// underlying entity (For example, a motion sensor may return PowerStateOn when motion is detected).
type PowerState string

var (
	PowerStateMarshaler mqtt.ValueMarshaler[PowerState] = func(v PowerState) ([]byte, error) {
		return mqtt.StringMarshaler(string(v))
	}

	PowerStateUnmarshaler mqtt.ValueUnmarshaler[PowerState] = func(bytes []byte) (PowerState, error) {
		v, err := mqtt.StringUnmarshaler(bytes)
		return PowerState(v), err
	}
)

const (
	PowerStateOn      PowerState = "ON"
	PowerStateOff     PowerState = "OFF"
	PowerStateUnknown PowerState = "None"
)

// PowerStateFor returns PowerStateOn when on is true and PowerStateOff otherwise.
func PowerStateFor(on bool) PowerState {
	if on {
		return PowerStateOn
	}

	return PowerStateOff
}

// CustomPowerState provides a way to configure custom values for on and off states for a given entity. It implements
// slog.LogValuer.
type CustomPowerState struct {
	On  PowerState
	Off PowerState
}

// Parse interprets payload as a power state using the custom values when configured, falling back to PowerStateOn and
// PowerStateOff. The second return value is false for unrecognized payloads.
func (c CustomPowerState) Parse(payload []byte) (on bool, ok bool) {
	switch PowerState(payload) {
	case cmp.Or(c.On, PowerStateOn):
		return true, true
	case cmp.Or(c.Off, PowerStateOff):
		return false, true
	default:
		return false, false
	}
}

// For returns the payload representing on, using the custom values when configured.
func (c CustomPowerState) For(on bool) PowerState {
	if on {
		return cmp.Or(c.On, PowerStateOn)
	}

	return cmp.Or(c.Off, PowerStateOff)
}

func (c CustomPowerState) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("on_value", string(c.On)),
		slog.String("off_value", string(c.Off)),
	)
}
