package platform

import (
	"context"
	"encoding/json/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlowe/hamqtt"
	"github.com/nlowe/hamqtt/mqtt"
)

type memoryBroker struct {
	mu sync.Mutex

	retained map[string]string
	handlers map[string]mqtt.Handler
}

func newMemoryBroker() *memoryBroker {
	return &memoryBroker{
		retained: map[string]string{},
		handlers: map[string]mqtt.Handler{},
	}
}

func (b *memoryBroker) WriteTopic(_ context.Context, topic string, _ mqtt.WriteOptions, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.retained[topic] = string(value)
	return nil
}

func (b *memoryBroker) Subscribe(_ context.Context, handler mqtt.Handler, subscriptions ...mqtt.Subscription) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range subscriptions {
		b.handlers[s.Topic] = handler
	}

	return nil
}

func (b *memoryBroker) Unsubscribe(_ context.Context, topics ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, t := range topics {
		delete(b.handlers, t)
	}

	return nil
}

func (b *memoryBroker) last(topic string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, ok := b.retained[topic]
	return v, ok
}

func (b *memoryBroker) config(t *testing.T, topic string) map[string]any {
	t.Helper()

	payload, ok := b.last(topic)
	require.True(t, ok, "no discovery document on %s", topic)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &doc))

	return doc
}

// send delivers a command as the broker would and lets the client dispatch it.
func (b *memoryBroker) send(t *testing.T, c *hamqtt.Client, topic, payload string) {
	t.Helper()

	b.mu.Lock()
	h, ok := b.handlers[topic]
	b.mu.Unlock()

	require.True(t, ok, "not subscribed to %s", topic)
	h.ServeMQTT(b, topic, []byte(payload))
	c.Loop(t.Context())
}

func newTestClient() (*hamqtt.Client, *memoryBroker) {
	b := newMemoryBroker()
	return hamqtt.NewClient(b, b, &hamqtt.Device{UniqueID: "dev42", Name: "Greenhouse"}), b
}

func TestPublishValue(t *testing.T) {
	c, b := newTestClient()
	s := NewSensor(c, "temp1")

	assert.True(t, publishValue(t.Context(), s.BaseEntity, "stat_t", mqtt.UintMarshaler, 42, false))

	v, ok := b.last("hamqtt/dev42/temp1/stat_t")
	require.True(t, ok)
	assert.Equal(t, "42", v)
}

func TestCommandTopics(t *testing.T) {
	c, b := newTestClient()
	s := NewSensor(c, "temp1")

	sut := commandTopics{"stale/topic": "cmd_t"}
	sut.subscribe(t.Context(), s.BaseEntity, "cmd_t", "bad/suffix")

	suffix, ok := sut.suffix("hamqtt/dev42/temp1/cmd_t")
	assert.True(t, ok)
	assert.Equal(t, "cmd_t", suffix)

	_, ok = sut.suffix("stale/topic")
	assert.False(t, ok)

	assert.Len(t, b.handlers, 1)
}
