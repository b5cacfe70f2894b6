package autopaho

import (
	"context"
	"slices"
	"testing"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nlowe/hamqtt/mqtt"
)

type mockConnection struct {
	mock.Mock
}

func (m *mockConnection) Publish(ctx context.Context, p *paho.Publish) (*paho.PublishResponse, error) {
	args := m.Called(ctx, p)
	return nil, args.Error(0)
}

func (m *mockConnection) Subscribe(ctx context.Context, s *paho.Subscribe) (*paho.Suback, error) {
	args := m.Called(ctx, s)
	return nil, args.Error(0)
}

func (m *mockConnection) Unsubscribe(ctx context.Context, u *paho.Unsubscribe) (*paho.Unsuback, error) {
	args := m.Called(ctx, u)
	return nil, args.Error(0)
}

func newTestConn() (*Conn, *mockConnection) {
	m := &mockConnection{}

	c := newConn()
	c.conn = m

	return c, m
}

// subscribedTopics matches a subscribe packet for exactly the given topics, in any order.
func subscribedTopics(topics ...string) any {
	want := slices.Sorted(slices.Values(topics))

	return mock.MatchedBy(func(s *paho.Subscribe) bool {
		got := make([]string, 0, len(s.Subscriptions))
		for _, o := range s.Subscriptions {
			got = append(got, o.Topic)
		}
		slices.Sort(got)

		return slices.Equal(want, got)
	})
}

func TestConn_WriteTopic(t *testing.T) {
	sut, m := newTestConn()

	m.On("Publish", mock.Anything, &paho.Publish{
		QoS:     1,
		Retain:  true,
		Topic:   "hamqtt/dev42/avty_t",
		Payload: []byte("online"),
	}).Return(nil).Once()

	require.NoError(t, sut.WriteTopic(
		t.Context(),
		"hamqtt/dev42/avty_t",
		mqtt.WriteOptions{QoS: mqtt.QOSAtLeastOnce, Retain: true},
		[]byte("online"),
	))
	m.AssertExpectations(t)
}

func TestConn_Subscribe(t *testing.T) {
	t.Run("Resubscribe Replaces Handler", func(t *testing.T) {
		sut, m := newTestConn()
		m.On("Subscribe", mock.Anything, subscribedTopics("hamqtt/dev42/pump/cmd_t")).Return(nil).Twice()

		var first, second []string
		sub := mqtt.Subscription{Topic: "hamqtt/dev42/pump/cmd_t", Options: mqtt.ReadOptions{QoS: mqtt.QOSAtLeastOnce}}

		require.NoError(t, sut.Subscribe(t.Context(), mqtt.HandlerFunc(func(_ mqtt.Writer, _ string, payload []byte) {
			first = append(first, string(payload))
		}), sub))
		require.NoError(t, sut.Subscribe(t.Context(), mqtt.HandlerFunc(func(_ mqtt.Writer, _ string, payload []byte) {
			second = append(second, string(payload))
		}), sub))

		sut.r.Route((&paho.Publish{
			Topic:      "hamqtt/dev42/pump/cmd_t",
			Payload:    []byte("ON"),
			Properties: &paho.PublishProperties{},
		}).Packet())

		assert.Empty(t, first)
		assert.Equal(t, []string{"ON"}, second)
		m.AssertExpectations(t)
	})

	t.Run("Nothing To Subscribe", func(t *testing.T) {
		sut, m := newTestConn()

		require.NoError(t, sut.Subscribe(t.Context(), mqtt.HandlerFunc(func(mqtt.Writer, string, []byte) {})))
		m.AssertNotCalled(t, "Subscribe", mock.Anything, mock.Anything)
	})
}

func TestConn_Reconnect(t *testing.T) {
	t.Run("Resends Subscriptions", func(t *testing.T) {
		sut, m := newTestConn()
		noop := mqtt.HandlerFunc(func(mqtt.Writer, string, []byte) {})

		m.On("Subscribe", mock.Anything, mock.Anything).Return(nil).Times(3)
		m.On("Unsubscribe", mock.Anything, &paho.Unsubscribe{Topics: []string{"homeassistant/status"}}).Return(nil).Once()

		require.NoError(t, sut.Subscribe(t.Context(), noop, mqtt.Subscription{Topic: "hamqtt/dev42/pump/cmd_t"}))
		require.NoError(t, sut.Subscribe(t.Context(), noop, mqtt.Subscription{Topic: "hamqtt/dev42/light/cmd_t"}))
		require.NoError(t, sut.Subscribe(t.Context(), noop, mqtt.Subscription{Topic: "homeassistant/status"}))
		require.NoError(t, sut.Unsubscribe(t.Context(), "homeassistant/status"))

		m.On("Subscribe", mock.Anything, subscribedTopics("hamqtt/dev42/pump/cmd_t", "hamqtt/dev42/light/cmd_t")).
			Return(nil).Once()

		sut.onReconnect(t.Context())

		m.AssertExpectations(t)
		m.AssertNumberOfCalls(t, "Subscribe", 4)
	})

	t.Run("No Subscriptions", func(t *testing.T) {
		sut, m := newTestConn()

		sut.onReconnect(t.Context())

		m.AssertNotCalled(t, "Subscribe", mock.Anything, mock.Anything)
	})
}

func TestWithWill(t *testing.T) {
	var config autopaho.ClientConfig

	WithWill(&config, mqtt.Will{
		Topic:   "hamqtt/dev42/avty_t",
		Payload: []byte("offline"),
		Options: mqtt.WriteOptions{QoS: mqtt.QOSAtLeastOnce, Retain: true},
	})

	require.NotNil(t, config.WillMessage)
	assert.Equal(t, "hamqtt/dev42/avty_t", config.WillMessage.Topic)
	assert.Equal(t, []byte("offline"), config.WillMessage.Payload)
	assert.EqualValues(t, 1, config.WillMessage.QoS)
	assert.True(t, config.WillMessage.Retain)
}
