package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalers(t *testing.T) {
	t.Run("Uint", func(t *testing.T) {
		b, err := UintMarshaler(255)
		require.NoError(t, err)
		assert.Equal(t, "255", string(b))

		v, err := UintUnmarshaler([]byte("42"))
		require.NoError(t, err)
		assert.EqualValues(t, 42, v)

		_, err = UintUnmarshaler([]byte("-1"))
		require.Error(t, err)
	})

	t.Run("Int", func(t *testing.T) {
		b, err := IntMarshaler(-7)
		require.NoError(t, err)
		assert.Equal(t, "-7", string(b))
	})

	t.Run("Float", func(t *testing.T) {
		b, err := FloatMarshaler(1)(21.55)
		require.NoError(t, err)
		assert.Equal(t, "21.6", string(b))

		b, err = FloatMarshaler(-1)(0.125)
		require.NoError(t, err)
		assert.Equal(t, "0.125", string(b))
	})

	t.Run("Json", func(t *testing.T) {
		type attrs struct {
			Room string `json:"room"`
		}

		b, err := JsonValueMarshaler[attrs]()(attrs{Room: "kitchen"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"room":"kitchen"}`, string(b))

		v, err := JsonValueUnmarshaler[attrs]()(b)
		require.NoError(t, err)
		assert.Equal(t, "kitchen", v.Room)
	})
}
