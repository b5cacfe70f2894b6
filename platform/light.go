package platform

import (
	"context"
	"encoding/json/jsontext"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/nlowe/hamqtt"
	"github.com/nlowe/hamqtt/discovery"
	"github.com/nlowe/hamqtt/hass"
	"github.com/nlowe/hamqtt/log"
	"github.com/nlowe/hamqtt/mqtt"
)

// LightOnCommandType configures how Home Assistant sends style and power commands via MQTT for this component.
type LightOnCommandType string

const (
	// LightOnCommandTypeLast instructs Home Assistant to send any style (brightness, color, etc) topics first and then
	// a payload_on to the command topic. This is the default behavior.
	LightOnCommandTypeLast    LightOnCommandType = "last"
	DefaultLightOnCommandType                    = LightOnCommandTypeLast
	// LightOnCommandTypeFirst instructs Home Assistant to send the payload_on and then any style topics.
	LightOnCommandTypeFirst LightOnCommandType = "first"
	// LightOnCommandTypeBrightness instructs Home Assistant to only send brightness commands instead of the payload_on
	// to turn the light on.
	LightOnCommandTypeBrightness LightOnCommandType = "brightness"
)

// RGB holds 8-bit Red, Green, and Blue values for a Light. It implements fmt.Stringer and slog.LogValuer.
type RGB struct {
	R, G, B uint8
}

func (r RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", r.R, r.G, r.B)
}

func (r RGB) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("r", uint64(r.R)),
		slog.Uint64("g", uint64(r.G)),
		slog.Uint64("b", uint64(r.B)),
		slog.String("hex", r.String()),
	)
}

var (
	RGBMarshaler mqtt.ValueMarshaler[RGB] = func(v RGB) ([]byte, error) {
		return fmt.Appendf(nil, "%d,%d,%d", v.R, v.G, v.B), nil
	}
	RGBUnmarshaler mqtt.ValueUnmarshaler[RGB] = func(bytes []byte) (RGB, error) {
		parts := strings.Split(string(bytes), ",")
		if len(parts) != 3 {
			return RGB{}, fmt.Errorf("invalid RGB representation: %s", bytes)
		}

		r, errR := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 8)
		g, errG := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 8)
		b, errB := strconv.ParseUint(strings.TrimSpace(parts[2]), 10, 8)

		return RGB{uint8(r), uint8(g), uint8(b)}, errors.Join(errR, errG, errB)
	}
)

// LightCommands receives the commands Home Assistant sends to a Light. Each callback returns whether the command was
// applied; if so, the matching state is published. A nil callback applies every command of its kind.
type LightCommands struct {
	Power            func(ctx context.Context, on bool) bool
	Brightness       func(ctx context.Context, brightness uint) bool
	ColorTemperature func(ctx context.Context, kelvin uint) bool
	RGB              func(ctx context.Context, rgb RGB) bool
}

// Light implements the light.mqtt integration for Home Assistant using the default schema. Which topics are announced
// follows SupportedColorModes: brightness topics for every mode other than hass.ColorModeOnOff, color temperature
// topics for hass.ColorModeTemperature, and RGB topics for hass.ColorModeRGB. Color temperatures are in Kelvin.
//
// See https://www.home-assistant.io/integrations/light.mqtt/
type Light struct {
	*hamqtt.BaseEntity

	// Defines when on the payload_on is sent.
	OnCommandType LightOnCommandType

	// Flag that defines if the light works in optimistic mode.
	Optimistic bool

	// Custom values to use for payload commands
	CustomPowerStateValues hass.CustomPowerState

	// The color modes supported by this light. Defaults to hass.ColorModeOnOff.
	SupportedColorModes []hass.ColorMode

	// Defines the maximum brightness value (i.e., 100%). HomeAssistant will use 255 if not otherwise specified.
	BrightnessScale uint

	// The maximum color temperature in Kelvin. Defaults to 6535.
	MaxKelvin uint
	// The minimum color temperature in Kelvin. Defaults to 2000.
	MinKelvin uint

	Commands LightCommands

	power            *bool
	brightness       *uint
	colorTemperature *uint
	rgb              *RGB

	commands commandTopics
}

// NewLight constructs a Light for objectID. Configure its fields, then call Register.
func NewLight(t hamqtt.Transport, objectID string, modes ...hass.ColorMode) *Light {
	l := &Light{SupportedColorModes: modes, commands: commandTopics{}}
	l.BaseEntity = hamqtt.NewBaseEntity(t, "light", objectID, l)

	return l
}

func (l *Light) colorModes() []hass.ColorMode {
	if len(l.SupportedColorModes) == 0 {
		return []hass.ColorMode{hass.ColorModeOnOff}
	}

	return l.SupportedColorModes
}

func (l *Light) supportsBrightness() bool {
	return slices.ContainsFunc(l.colorModes(), func(m hass.ColorMode) bool {
		return m != hass.ColorModeOnOff
	})
}

func (l *Light) supports(mode hass.ColorMode) bool {
	return slices.Contains(l.colorModes(), mode)
}

func (l *Light) commandSuffixes() []string {
	suffixes := []string{discovery.FieldCommandTopic}
	if l.supportsBrightness() {
		suffixes = append(suffixes, discovery.FieldBrightnessCommandTopic)
	}
	if l.supports(hass.ColorModeTemperature) {
		suffixes = append(suffixes, discovery.FieldColorTemperatureCommandTopic)
	}
	if l.supports(hass.ColorModeRGB) {
		suffixes = append(suffixes, discovery.FieldRGBCommandTopic)
	}

	return suffixes
}

func (l *Light) BuildSerializer() hamqtt.Serializer {
	d := l.DiscoverySerializer()

	d.SetRequiredTopic("state", discovery.FieldStateTopic, l.DataTopic(discovery.FieldStateTopic))
	d.SetRequiredTopic("command", discovery.FieldCommandTopic, l.DataTopic(discovery.FieldCommandTopic))
	d.SetString(discovery.FieldPayloadOn, string(l.CustomPowerStateValues.On))
	d.SetString(discovery.FieldPayloadOff, string(l.CustomPowerStateValues.Off))

	onCommandType := l.OnCommandType
	d.Add(discovery.FieldOnCommandType, func(e *jsontext.Encoder) error {
		return discovery.MarshalStdIfNot(DefaultLightOnCommandType, e, discovery.FieldOnCommandType, onCommandType)
	})
	if l.Optimistic {
		d.Set(discovery.FieldOptimistic, true)
	}

	d.Set(discovery.FieldSupportedColorModes, l.colorModes())

	if l.supportsBrightness() {
		d.SetStateAndCommandTopics(
			"brightness",
			discovery.FieldBrightnessStateTopic, l.DataTopic(discovery.FieldBrightnessStateTopic),
			discovery.FieldBrightnessCommandTopic, l.DataTopic(discovery.FieldBrightnessCommandTopic),
		)
		if l.BrightnessScale != 0 {
			d.Set(discovery.FieldBrightnessScale, l.BrightnessScale)
		}
	}

	if l.supports(hass.ColorModeTemperature) {
		d.SetStateAndCommandTopics(
			"color temperature",
			discovery.FieldColorTemperatureStateTopic, l.DataTopic(discovery.FieldColorTemperatureStateTopic),
			discovery.FieldColorTemperatureCommandTopic, l.DataTopic(discovery.FieldColorTemperatureCommandTopic),
		)
		d.Set(discovery.FieldColorTemperatureInKelvin, true)
		if l.MinKelvin != 0 {
			d.Set(discovery.FieldMinKelvin, l.MinKelvin)
		}
		if l.MaxKelvin != 0 {
			d.Set(discovery.FieldMaxKelvin, l.MaxKelvin)
		}
	}

	if l.supports(hass.ColorModeRGB) {
		d.SetStateAndCommandTopics(
			"rgb",
			discovery.FieldRGBStateTopic, l.DataTopic(discovery.FieldRGBStateTopic),
			discovery.FieldRGBCommandTopic, l.DataTopic(discovery.FieldRGBCommandTopic),
		)
	}

	return d
}

// SetPower publishes the on/off state of the light.
func (l *Light) SetPower(ctx context.Context, on bool) bool {
	l.power = &on
	return l.PublishOnDataTopic(ctx, discovery.FieldStateTopic, mqtt.StaticString(string(l.CustomPowerStateValues.For(on))), true)
}

// SetBrightness publishes the brightness of the light, on a scale of 0 to BrightnessScale.
func (l *Light) SetBrightness(ctx context.Context, brightness uint) bool {
	l.brightness = &brightness
	return publishValue(ctx, l.BaseEntity, discovery.FieldBrightnessStateTopic, mqtt.UintMarshaler, brightness, true)
}

// SetColorTemperature publishes the color temperature of the light in Kelvin.
func (l *Light) SetColorTemperature(ctx context.Context, kelvin uint) bool {
	l.colorTemperature = &kelvin
	return publishValue(ctx, l.BaseEntity, discovery.FieldColorTemperatureStateTopic, mqtt.UintMarshaler, kelvin, true)
}

// SetRGB publishes the color of the light.
func (l *Light) SetRGB(ctx context.Context, rgb RGB) bool {
	l.rgb = &rgb
	return publishValue(ctx, l.BaseEntity, discovery.FieldRGBStateTopic, RGBMarshaler, rgb, true)
}

// OnMQTTConnected subscribes to the command topics for the supported color modes and republishes every state that
// was set before.
func (l *Light) OnMQTTConnected(ctx context.Context) {
	l.commands.subscribe(ctx, l.BaseEntity, l.commandSuffixes()...)

	if l.power != nil {
		l.SetPower(ctx, *l.power)
	}
	if l.brightness != nil {
		l.SetBrightness(ctx, *l.brightness)
	}
	if l.colorTemperature != nil {
		l.SetColorTemperature(ctx, *l.colorTemperature)
	}
	if l.rgb != nil {
		l.SetRGB(ctx, *l.rgb)
	}
}

// OnMQTTMessage routes commands to the matching LightCommands callback.
func (l *Light) OnMQTTMessage(ctx context.Context, topic string, payload []byte) {
	suffix, ok := l.commands.suffix(topic)
	if !ok {
		return
	}

	lg := l.Logger().With(slog.String("suffix", suffix), slog.String("payload", string(payload)))

	switch suffix {
	case discovery.FieldCommandTopic:
		on, ok := l.CustomPowerStateValues.Parse(payload)
		if !ok {
			lg.WarnContext(ctx, "Ignoring unknown power command")
			return
		}

		if l.Commands.Power == nil || l.Commands.Power(ctx, on) {
			l.SetPower(ctx, on)
		}
	case discovery.FieldBrightnessCommandTopic:
		brightness, err := mqtt.UintUnmarshaler(payload)
		if err != nil {
			lg.WarnContext(ctx, "Ignoring invalid brightness command", log.Error(err))
			return
		}

		if l.Commands.Brightness == nil || l.Commands.Brightness(ctx, brightness) {
			l.SetBrightness(ctx, brightness)
		}
	case discovery.FieldColorTemperatureCommandTopic:
		kelvin, err := mqtt.UintUnmarshaler(payload)
		if err != nil {
			lg.WarnContext(ctx, "Ignoring invalid color temperature command", log.Error(err))
			return
		}

		if l.Commands.ColorTemperature == nil || l.Commands.ColorTemperature(ctx, kelvin) {
			l.SetColorTemperature(ctx, kelvin)
		}
	case discovery.FieldRGBCommandTopic:
		rgb, err := RGBUnmarshaler(payload)
		if err != nil {
			lg.WarnContext(ctx, "Ignoring invalid rgb command", log.Error(err))
			return
		}

		if l.Commands.RGB == nil || l.Commands.RGB(ctx, rgb) {
			l.SetRGB(ctx, rgb)
		}
	}
}
