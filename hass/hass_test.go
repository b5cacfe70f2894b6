package hass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailabilityFor(t *testing.T) {
	assert.Equal(t, Available, AvailabilityFor(true))
	assert.Equal(t, Unavailable, AvailabilityFor(false))
	assert.EqualValues(t, "online", AvailabilityFor(true))
	assert.EqualValues(t, "offline", AvailabilityFor(false))
}

func TestCustomPowerState(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		var sut CustomPowerState

		on, ok := sut.Parse([]byte("ON"))
		assert.True(t, ok)
		assert.True(t, on)

		on, ok = sut.Parse([]byte("OFF"))
		assert.True(t, ok)
		assert.False(t, on)

		_, ok = sut.Parse([]byte("maybe"))
		assert.False(t, ok)

		assert.Equal(t, PowerStateOn, sut.For(true))
		assert.Equal(t, PowerStateOff, sut.For(false))
	})

	t.Run("Custom", func(t *testing.T) {
		sut := CustomPowerState{On: "open", Off: "closed"}

		on, ok := sut.Parse([]byte("open"))
		assert.True(t, ok)
		assert.True(t, on)

		_, ok = sut.Parse([]byte("ON"))
		assert.False(t, ok)

		assert.EqualValues(t, "closed", sut.For(false))
	})

	assert.Equal(t, PowerStateOn, PowerStateFor(true))
	assert.Equal(t, PowerStateOff, PowerStateFor(false))
}

func TestStringMarshalers(t *testing.T) {
	b, err := PowerStateMarshaler(PowerStateOn)
	require.NoError(t, err)
	assert.Equal(t, "ON", string(b))

	state, err := PowerStateUnmarshaler([]byte("None"))
	require.NoError(t, err)
	assert.Equal(t, PowerStateUnknown, state)

	b, err = AvailabilityMarshaler(Unavailable)
	require.NoError(t, err)
	assert.Equal(t, "offline", string(b))

	availability, err := AvailabilityUnmarshaler([]byte("online"))
	require.NoError(t, err)
	assert.Equal(t, Available, availability)

	b, err = ColorModeMarshaler(ColorModeTemperature)
	require.NoError(t, err)
	assert.Equal(t, "color_temp", string(b))

	mode, err := ColorModeUnmarshaler([]byte("rgb"))
	require.NoError(t, err)
	assert.Equal(t, ColorModeRGB, mode)

	b, err = StateClassMarshaler(StateClassTotalIncreasing)
	require.NoError(t, err)
	assert.Equal(t, "total_increasing", string(b))

	class, err := StateClassUnmarshaler([]byte("measurement"))
	require.NoError(t, err)
	assert.Equal(t, StateClassMeasurement, class)
}
