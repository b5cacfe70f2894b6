package hamqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlowe/hamqtt/mqtt"
)

type published struct {
	topic   string
	options mqtt.WriteOptions
	payload string
}

type recordingWriter struct {
	mu sync.Mutex

	disconnected bool
	err          error
	messages     []published
}

func (r *recordingWriter) WriteTopic(_ context.Context, topic string, options mqtt.WriteOptions, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}

	r.messages = append(r.messages, published{topic: topic, options: options, payload: string(value)})
	return nil
}

func (r *recordingWriter) Connected() bool {
	return !r.disconnected
}

func (r *recordingWriter) topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []string
	for _, m := range r.messages {
		result = append(result, m.topic)
	}

	return result
}

type fakeSubscriber struct {
	mu       sync.Mutex
	handlers map[string]mqtt.Handler
}

func (f *fakeSubscriber) Subscribe(_ context.Context, handler mqtt.Handler, subscriptions ...mqtt.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.handlers == nil {
		f.handlers = map[string]mqtt.Handler{}
	}

	for _, s := range subscriptions {
		f.handlers[s.Topic] = handler
	}

	return nil
}

func (f *fakeSubscriber) Unsubscribe(_ context.Context, topics ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range topics {
		delete(f.handlers, t)
	}

	return nil
}

func (f *fakeSubscriber) deliver(topic string, payload string) bool {
	f.mu.Lock()
	h, ok := f.handlers[topic]
	f.mu.Unlock()

	if ok {
		h.ServeMQTT(nil, topic, []byte(payload))
	}

	return ok
}

// recordingEntity is a minimal entity that records the hooks it receives and publishes the base discovery document.
type recordingEntity struct {
	*BaseEntity

	messages  []string
	connected int
}

func newRecordingEntity(t Transport, objectID string) *recordingEntity {
	e := &recordingEntity{}
	e.BaseEntity = NewBaseEntity(t, "sensor", objectID, e)
	e.Register()

	return e
}

func (r *recordingEntity) BuildSerializer() Serializer {
	return r.DiscoverySerializer()
}

func (r *recordingEntity) OnMQTTMessage(_ context.Context, topic string, payload []byte) {
	r.messages = append(r.messages, topic+"="+string(payload))
}

func (r *recordingEntity) OnMQTTConnected(ctx context.Context) {
	r.connected++
	r.SubscribeTopic(ctx, r.ObjectID(), "cmd_t")
}

func TestClient_Publish(t *testing.T) {
	t.Run("Single Message", func(t *testing.T) {
		w := &recordingWriter{}
		sut := NewClient(w, nil, testDevice(), WithQoS(mqtt.QOSAtLeastOnce))

		require.True(t, sut.BeginPublish(t.Context(), "a/b", 11, true))
		sut.WritePayload(mqtt.StaticString("hello "))
		sut.WritePayload(mqtt.DynamicString("world"))
		require.True(t, sut.EndPublish(t.Context()))

		require.Len(t, w.messages, 1)
		assert.Equal(t, published{
			topic:   "a/b",
			options: mqtt.WriteOptions{QoS: mqtt.QOSAtLeastOnce, Retain: true},
			payload: "hello world",
		}, w.messages[0])
	})

	t.Run("Size Mismatch", func(t *testing.T) {
		for _, payload := range []string{"shrt", "too long"} {
			w := &recordingWriter{}
			sut := NewClient(w, nil, testDevice())

			require.True(t, sut.BeginPublish(t.Context(), "a/b", 5, false))
			sut.WritePayload(mqtt.DynamicString(payload))
			assert.False(t, sut.EndPublish(t.Context()))
			assert.Empty(t, w.messages)
		}
	})

	t.Run("Disconnected", func(t *testing.T) {
		w := &recordingWriter{disconnected: true}
		sut := NewClient(w, nil, testDevice())

		assert.False(t, sut.BeginPublish(t.Context(), "a/b", 1, false))
	})

	t.Run("Overlapping Transactions", func(t *testing.T) {
		w := &recordingWriter{}
		sut := NewClient(w, nil, testDevice())

		require.True(t, sut.BeginPublish(t.Context(), "a/b", 1, false))
		assert.False(t, sut.BeginPublish(t.Context(), "c/d", 1, false))

		sut.WritePayload(mqtt.DynamicString("x"))
		require.True(t, sut.EndPublish(t.Context()))
		assert.Equal(t, []string{"a/b"}, w.topics())
	})

	t.Run("Invalid Arguments", func(t *testing.T) {
		sut := NewClient(&recordingWriter{}, nil, testDevice())

		assert.False(t, sut.BeginPublish(t.Context(), "a/b", -1, false))
		assert.False(t, sut.BeginPublish(t.Context(), "a/+", 1, false))
		assert.False(t, sut.BeginPublish(t.Context(), "", 1, false))
	})

	t.Run("End Without Begin", func(t *testing.T) {
		w := &recordingWriter{}
		sut := NewClient(w, nil, testDevice())

		sut.WritePayload(mqtt.DynamicString("x"))
		assert.False(t, sut.EndPublish(t.Context()))
		assert.Empty(t, w.messages)
	})

	t.Run("Writer Error Closes Transaction", func(t *testing.T) {
		w := &recordingWriter{err: errors.New("dummy")}
		sut := NewClient(w, nil, testDevice())

		require.True(t, sut.BeginPublish(t.Context(), "a/b", 1, false))
		sut.WritePayload(mqtt.DynamicString("x"))
		assert.False(t, sut.EndPublish(t.Context()))

		assert.True(t, sut.BeginPublish(t.Context(), "a/b", 1, false))
	})
}

func TestClient_Topics(t *testing.T) {
	sut := NewClient(&recordingWriter{}, nil, testDevice(), WithDiscoveryPrefix("ha/"), WithDataPrefix("/data"))

	topics := sut.Topics()
	assert.Equal(t, "ha", topics.DiscoveryPrefix)
	assert.Equal(t, "data", topics.DataPrefix)
	assert.Equal(t, "dev42", topics.DeviceID)
}

func TestClient_AddEntity(t *testing.T) {
	sut := NewClient(&recordingWriter{}, nil, testDevice())

	a := newRecordingEntity(sut, "a")
	b := newRecordingEntity(sut, "b")
	a.Register()

	assert.Equal(t, []Entity{a, b}, sut.Entities())
}

func TestClient_Announce(t *testing.T) {
	t.Run("Configs In Registration Order", func(t *testing.T) {
		w := &recordingWriter{}
		s := &fakeSubscriber{}
		sut := NewClient(w, s, testDevice())

		a := newRecordingEntity(sut, "a")
		b := newRecordingEntity(sut, "b")

		sut.Announce(t.Context())

		assert.Equal(t, []string{
			"homeassistant/sensor/dev42/a/config",
			"homeassistant/sensor/dev42/b/config",
		}, w.topics())
		for _, m := range w.messages {
			assert.True(t, m.options.Retain)
		}

		assert.Equal(t, 1, a.connected)
		assert.Equal(t, 1, b.connected)
		assert.Contains(t, s.handlers, "hamqtt/dev42/a/cmd_t")
		assert.Contains(t, s.handlers, "hamqtt/dev42/b/cmd_t")
	})

	t.Run("Shared Availability First", func(t *testing.T) {
		device := testDevice()
		device.SharedAvailability = true

		w := &recordingWriter{}
		sut := NewClient(w, nil, device)
		newRecordingEntity(sut, "a")

		sut.Announce(t.Context())

		require.Len(t, w.messages, 2)
		assert.Equal(t, published{
			topic:   "hamqtt/dev42/avty_t",
			options: mqtt.WriteOptions{Retain: true},
			payload: "online",
		}, w.messages[0])
		assert.Contains(t, w.messages[1].payload, `"avty_t":"hamqtt/dev42/avty_t"`)
	})

	t.Run("QoS In Discovery", func(t *testing.T) {
		w := &recordingWriter{}
		sut := NewClient(w, nil, testDevice(), WithQoS(mqtt.QOSAtLeastOnce))
		newRecordingEntity(sut, "a")

		sut.Announce(t.Context())

		require.Len(t, w.messages, 1)
		assert.Equal(t, mqtt.QOSAtLeastOnce, w.messages[0].options.QoS)
		assert.Contains(t, w.messages[0].payload, `"qos":1`)
	})

	t.Run("Multi Level Prefixes", func(t *testing.T) {
		w := &recordingWriter{}
		s := &fakeSubscriber{}
		sut := NewClient(w, s, testDevice(), WithDiscoveryPrefix("ha/discovery"), WithDataPrefix("home/greenhouse"))
		e := newRecordingEntity(sut, "a")

		sut.Announce(t.Context())
		e.SetAvailability(t.Context(), true)

		assert.Equal(t, []string{
			"ha/discovery/sensor/dev42/a/config",
			"home/greenhouse/dev42/a/avty_t",
		}, w.topics())
		assert.Contains(t, s.handlers, "home/greenhouse/dev42/a/cmd_t")
	})

	t.Run("Without Device", func(t *testing.T) {
		w := &recordingWriter{}
		sut := NewClient(w, nil, nil)
		e := newRecordingEntity(sut, "a")

		sut.Announce(t.Context())

		assert.Empty(t, w.messages)
		assert.Equal(t, 1, e.connected)
	})
}

func TestClient_SetDeviceAvailability(t *testing.T) {
	t.Run("Shared", func(t *testing.T) {
		device := testDevice()
		device.SharedAvailability = true

		w := &recordingWriter{}
		sut := NewClient(w, nil, device)

		assert.True(t, sut.SetDeviceAvailability(t.Context(), false))
		sut.Announce(t.Context())

		require.Len(t, w.messages, 2)
		assert.Equal(t, "offline", w.messages[0].payload)
		assert.Equal(t, "offline", w.messages[1].payload)
	})

	t.Run("Not Shared", func(t *testing.T) {
		w := &recordingWriter{}
		sut := NewClient(w, nil, testDevice())

		assert.False(t, sut.SetDeviceAvailability(t.Context(), true))
		assert.Empty(t, w.messages)
	})
}

func TestClient_Will(t *testing.T) {
	t.Run("Shared", func(t *testing.T) {
		device := testDevice()
		device.SharedAvailability = true

		will, ok := NewClient(&recordingWriter{}, nil, device, WithQoS(mqtt.QOSExactlyOnce)).Will()
		require.True(t, ok)

		assert.Equal(t, mqtt.Will{
			Topic:   "hamqtt/dev42/avty_t",
			Payload: []byte("offline"),
			Options: mqtt.WriteOptions{QoS: mqtt.QOSExactlyOnce, Retain: true},
		}, will)
	})

	t.Run("Not Shared", func(t *testing.T) {
		_, ok := NewClient(&recordingWriter{}, nil, testDevice()).Will()
		assert.False(t, ok)
	})
}

func TestClient_Dispatch(t *testing.T) {
	s := &fakeSubscriber{}
	sut := NewClient(&recordingWriter{}, s, testDevice())

	a := newRecordingEntity(sut, "a")
	b := newRecordingEntity(sut, "b")
	a.Register()

	a.SubscribeTopic(t.Context(), "a", "cmd_t")
	require.True(t, s.deliver("hamqtt/dev42/a/cmd_t", "ON"))

	assert.Empty(t, a.messages, "messages are only delivered by Loop")

	sut.Loop(t.Context())

	assert.Equal(t, []string{"hamqtt/dev42/a/cmd_t=ON"}, a.messages)
	assert.Equal(t, []string{"hamqtt/dev42/a/cmd_t=ON"}, b.messages)
}

func TestClient_InboxFull(t *testing.T) {
	s := &fakeSubscriber{}
	sut := NewClient(&recordingWriter{}, s, testDevice(), WithInboxSize(1))
	e := newRecordingEntity(sut, "a")

	sut.Subscribe(t.Context(), "x/y")
	s.deliver("x/y", "1")
	s.deliver("x/y", "2")

	sut.Loop(t.Context())

	assert.Equal(t, []string{"x/y=1"}, e.messages)
}

func TestClient_WatchHomeAssistant(t *testing.T) {
	w := &recordingWriter{}
	s := &fakeSubscriber{}
	sut := NewClient(w, s, testDevice())
	newRecordingEntity(sut, "a")

	require.NoError(t, sut.WatchHomeAssistant(t.Context()))

	require.True(t, s.deliver("homeassistant/status", "offline"))
	sut.Loop(t.Context())
	assert.Empty(t, w.messages)

	require.True(t, s.deliver("homeassistant/status", "online"))
	sut.Loop(t.Context())
	assert.Equal(t, []string{"homeassistant/sensor/dev42/a/config"}, w.topics())

	t.Run("No Subscriber", func(t *testing.T) {
		require.ErrorIs(t, NewClient(w, nil, testDevice()).WatchHomeAssistant(t.Context()), ErrNoSubscriber)
	})
}

func TestClient_AwaitHomeAssistant(t *testing.T) {
	t.Run("Not Watching", func(t *testing.T) {
		sut := NewClient(&recordingWriter{}, &fakeSubscriber{}, testDevice())
		require.ErrorIs(t, sut.AwaitHomeAssistant(t.Context()), ErrNotWatching)
	})

	t.Run("Already Online", func(t *testing.T) {
		s := &fakeSubscriber{}
		sut := NewClient(&recordingWriter{}, s, testDevice())
		require.NoError(t, sut.WatchHomeAssistant(t.Context()))
		require.True(t, s.deliver("homeassistant/status", "online"))

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		require.NoError(t, sut.AwaitHomeAssistant(ctx))
	})

	t.Run("Comes Online", func(t *testing.T) {
		s := &fakeSubscriber{}
		sut := NewClient(&recordingWriter{}, s, testDevice())
		require.NoError(t, sut.WatchHomeAssistant(t.Context()))

		done := make(chan error, 1)
		go func() {
			done <- sut.AwaitHomeAssistant(t.Context())
		}()

		require.Eventually(t, func() bool {
			s.deliver("homeassistant/status", "online")
			select {
			case err := <-done:
				return assert.NoError(t, err)
			default:
				return false
			}
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("Canceled", func(t *testing.T) {
		s := &fakeSubscriber{}
		sut := NewClient(&recordingWriter{}, s, testDevice())
		require.NoError(t, sut.WatchHomeAssistant(t.Context()))
		require.True(t, s.deliver("homeassistant/status", "offline"))

		ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
		defer cancel()

		require.ErrorIs(t, sut.AwaitHomeAssistant(ctx), context.DeadlineExceeded)
	})
}

func TestClient_Run(t *testing.T) {
	w := &recordingWriter{}
	sut := NewClient(w, nil, testDevice())
	newRecordingEntity(sut, "a")

	ctx, cancel := context.WithCancelCause(t.Context())
	stop := errors.New("stop")

	ticks := 0
	sut.RequestAnnounce()
	sut.RequestAnnounce()

	err := sut.Run(ctx, 5*time.Millisecond, func(context.Context) {
		ticks++
		if ticks == 3 {
			cancel(stop)
		}
	})

	require.ErrorIs(t, err, stop)
	assert.Equal(t, 3, ticks)
	assert.Equal(t, []string{"homeassistant/sensor/dev42/a/config"}, w.topics())
}
