package mqtt

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nlowe/hamqtt/log"
)

// RemoteValue holds a value that is populated from a mqtt topic subscription. It implements Handler.
type RemoteValue[T any] struct {
	topic       string
	unmarshaler ValueUnmarshaler[T]
	opts        ReadOptions

	mu sync.RWMutex

	watchers map[int]func(T)
	nextID   int

	v           T
	initialized bool

	log *slog.Logger
}

// NewRemoteValue constructs a RemoteValue for the specified topic. It uses the provided ValueUnmarshaler to decode
// payloads from mqtt and default ReadOptions (QoS 0, RetainHandlingDefault).
func NewRemoteValue[T any](topic string, unmarshaler ValueUnmarshaler[T]) *RemoteValue[T] {
	return NewRemoteValueWithOptions(topic, unmarshaler, ReadOptions{})
}

// NewRemoteValueWithOptions constructs a RemoteValue for the specified topic. It uses the provided ValueUnmarshaler to
// decode payloads from mqtt with the provided ReadOptions.
func NewRemoteValueWithOptions[T any](topic string, unmarshaler ValueUnmarshaler[T], opts ReadOptions) *RemoteValue[T] {
	return &RemoteValue[T]{
		topic:       topic,
		unmarshaler: unmarshaler,
		opts:        opts,
		watchers:    map[int]func(T){},

		log: log.ForComponent("mqtt.value.remote").With(log.Topic(topic)),
	}
}

// ServeMQTT implements Handler for this RemoteValue by unmarshalling a value from the provided payload if the topic
// exactly matches the configured topic for this RemoteValue. It then invokes any watcher callbacks. If unmarshalling
// fails, the watchers are not called and a warning is logged.
func (v *RemoteValue[T]) ServeMQTT(_ Writer, topic string, payload []byte) {
	if v == nil || v.topic != topic {
		return
	}

	unmarshal := v.unmarshaler
	if unmarshal == nil {
		unmarshal = JsonValueUnmarshaler[T]()
	}

	parsed, err := unmarshal(payload)
	if err != nil {
		v.log.With(log.Error(err)).Warn("Failed to unmarshal payload from mqtt")
		return
	}

	v.mu.Lock()
	v.v, v.initialized = parsed, true
	watchers := make([]func(T), 0, len(v.watchers))
	for _, w := range v.watchers {
		watchers = append(watchers, w)
	}
	v.mu.Unlock()

	v.log.With(slog.Any("v", parsed), slog.Int("watchers", len(watchers))).Debug("Received new value from mqtt")

	// Watchers run without the lock held so they may call Get, Watch, or Unwatch.
	for _, w := range watchers {
		w(parsed)
	}
}

// Topic returns the topic this value listens on.
func (v *RemoteValue[T]) Topic() string {
	if v == nil {
		return ""
	}

	return v.topic
}

// Subscription returns the Subscription needed to receive updates for this value. The second return value is false if
// the RemoteValue is nil or has no topic.
func (v *RemoteValue[T]) Subscription() (Subscription, bool) {
	if v == nil || v.topic == "" {
		return Subscription{}, false
	}

	return Subscription{Topic: v.topic, Options: v.opts}, true
}

// Get returns the most recent value received from mqtt. If no value has been received yet, the second return value will
// be false.
func (v *RemoteValue[T]) Get() (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.v, v.initialized
}

// Watch registers a callback to execute when receiving new messages from mqtt and returns an id for Unwatch. Watchers
// should not block, any long operations executed in a watcher should start a new goroutine.
func (v *RemoteValue[T]) Watch(callback func(T)) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := v.nextID
	v.nextID++
	v.watchers[id] = callback

	v.log.With(slog.Int("id", id)).Debug("Adding watcher")
	return id
}

// Unwatch removes the specified callback from the watch list.
func (v *RemoteValue[T]) Unwatch(id int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.watchers[id]; !ok {
		v.log.With(slog.Int("id", id), slog.Int("count", len(v.watchers))).Warn("Tried to remove an invalid watcher")
		return
	}

	v.log.With(slog.Int("id", id)).Debug("Removing watcher")
	delete(v.watchers, id)
}

// DesiredValue makes calling RemoteValue.Await on comparable remote values easier
func DesiredValue[T comparable](v T) func(T) bool {
	return func(vv T) bool {
		return v == vv
	}
}

// Await returns the first value that passes the desired filter, starting with the most recent value already received.
// Close the provided context to cancel. The watch is removed upon return.
func (v *RemoteValue[T]) Await(ctx context.Context, desired func(T) bool) (T, error) {
	got := make(chan T, 1)

	id := v.Watch(func(t T) {
		if !desired(t) {
			return
		}

		select {
		case got <- t:
		default:
		}
	})
	defer v.Unwatch(id)

	// Checked after the watch is in place so a value arriving in between is not missed.
	if current, ok := v.Get(); ok && desired(current) {
		return current, nil
	}

	select {
	case t := <-got:
		return t, nil
	case <-ctx.Done():
		var zero T
		return zero, context.Cause(ctx)
	}
}
