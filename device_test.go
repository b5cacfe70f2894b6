package hamqtt

import (
	"encoding/json/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevice_ID(t *testing.T) {
	for _, tt := range []struct {
		name     string
		device   *Device
		expected string
	}{
		{name: "Nil", device: nil, expected: ""},
		{name: "Empty", device: &Device{}, expected: ""},
		{name: "Unique ID Wins", device: &Device{UniqueID: "dev42", Name: "Greenhouse"}, expected: "dev42"},
		{name: "Identifiers And Names", device: &Device{Identifiers: []string{"abc"}, Name: "Green House", Model: "v1.2"}, expected: "abc__Green__House__v1__2"},
		{name: "Wildcards Sanitized", device: &Device{Name: "a/b+c#"}, expected: "a__b__c__"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.device.ID())
		})
	}
}

func TestDevice_Valid(t *testing.T) {
	require.NoError(t, (&Device{UniqueID: "dev42"}).Valid())
	require.NoError(t, (&Device{Name: "Greenhouse"}).Valid())

	require.ErrorIs(t, (&Device{}).Valid(), ErrInvalidDevice)
	require.ErrorIs(t, (*Device)(nil).Valid(), ErrInvalidDevice)
	require.ErrorIs(t, (&Device{UniqueID: "dev/42"}).Valid(), ErrInvalidDevice)
}

func TestDevice_IsSharedAvailabilityEnabled(t *testing.T) {
	assert.False(t, (*Device)(nil).IsSharedAvailabilityEnabled())
	assert.False(t, (&Device{}).IsSharedAvailabilityEnabled())
	assert.True(t, (&Device{SharedAvailability: true}).IsSharedAvailabilityEnabled())
}

func TestDevice_MarshalJSONTo(t *testing.T) {
	t.Run("Identifiers Default To ID", func(t *testing.T) {
		b, err := json.Marshal(&Device{UniqueID: "dev42", Name: "Greenhouse", SharedAvailability: true})
		require.NoError(t, err)

		assert.JSONEq(t, `{"name":"Greenhouse","ids":["dev42"]}`, string(b))
	})

	t.Run("Connections", func(t *testing.T) {
		b, err := json.Marshal(&Device{
			Name:        "Greenhouse",
			Connections: []DeviceConnection{{Kind: "mac", Value: "02:5b:26:a8:dc:12"}},
		})
		require.NoError(t, err)

		assert.JSONEq(t, `{"name":"Greenhouse","cns":[["mac","02:5b:26:a8:dc:12"]]}`, string(b))
	})
}
