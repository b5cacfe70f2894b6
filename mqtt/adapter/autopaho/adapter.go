// Package autopaho adapts a paho.golang autopaho connection manager to the mqtt.Writer, mqtt.Subscriber, and
// mqtt.ConnectionStatus interfaces used by hamqtt.Client.
package autopaho

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	hamqttlog "github.com/nlowe/hamqtt/log"
	"github.com/nlowe/hamqtt/mqtt"
)

// connection is the part of autopaho.ConnectionManager a Conn uses.
type connection interface {
	Publish(ctx context.Context, p *paho.Publish) (*paho.PublishResponse, error)
	Subscribe(ctx context.Context, s *paho.Subscribe) (*paho.Suback, error)
	Unsubscribe(ctx context.Context, u *paho.Unsubscribe) (*paho.Unsuback, error)
}

// Conn is an autopaho connection. Subscriptions are re-sent after every reconnect.
type Conn struct {
	mu sync.Mutex

	conn      connection
	r         paho.Router
	connected atomic.Bool

	subscriptions map[string]paho.SubscribeOptions

	log *slog.Logger
}

var (
	_ mqtt.Writer           = &Conn{}
	_ mqtt.Subscriber       = &Conn{}
	_ mqtt.ConnectionStatus = &Conn{}
)

// WithWill sets the last will the broker publishes when the connection drops without a clean disconnect, typically
// the one returned by hamqtt.Client.Will.
func WithWill(config *autopaho.ClientConfig, will mqtt.Will) {
	config.WillMessage = &paho.WillMessage{
		Retain:  will.Options.Retain,
		QoS:     byte(will.Options.QoS),
		Topic:   will.Topic,
		Payload: will.Payload,
	}
}

// DialMQTT starts an autopaho connection and waits for it to come up. Any OnConnectionUp, OnClientError and
// OnServerDisconnect callbacks in config are still called. The returned function disconnects cleanly.
func DialMQTT(ctx context.Context, config autopaho.ClientConfig) (*Conn, func(ctx context.Context) error, error) {
	c := newConn()

	// Overwrite the OnConnectionUp handler to deal with re-subscribing.
	originalOnConnUp := config.OnConnectionUp
	config.OnConnectionUp = func(manager *autopaho.ConnectionManager, connack *paho.Connack) {
		c.connected.Store(true)
		c.onReconnect(ctx)

		if originalOnConnUp != nil {
			originalOnConnUp(manager, connack)
		}
	}

	originalOnClientError := config.ClientConfig.OnClientError
	config.ClientConfig.OnClientError = func(err error) {
		c.connected.Store(false)

		if originalOnClientError != nil {
			originalOnClientError(err)
		}
	}

	originalOnServerDisconnect := config.ClientConfig.OnServerDisconnect
	config.ClientConfig.OnServerDisconnect = func(d *paho.Disconnect) {
		c.connected.Store(false)

		if originalOnServerDisconnect != nil {
			originalOnServerDisconnect(d)
		}
	}

	// Lock before starting the connection so the first OnConnectionUp callback (which calls c.onReconnect) blocks
	// until after c.conn is assigned.
	c.mu.Lock()
	c.log.Info("Connecting to mqtt broker")
	conn, err := autopaho.NewConnection(ctx, config)
	if err != nil {
		c.mu.Unlock()
		return nil, nil, err
	}

	c.conn = conn
	c.mu.Unlock()

	c.log.Debug("Waiting for connection to be ready")
	if err = conn.AwaitConnection(ctx); err != nil {
		return nil, nil, fmt.Errorf("mqtt: wait for connection: %w", err)
	}

	c.log.Debug("Connected to mqtt broker")
	conn.AddOnPublishReceived(func(rx autopaho.PublishReceived) (bool, error) {
		c.r.Route(rx.Packet.Packet())
		return true, nil
	})

	return c, func(ctx context.Context) error {
		c.connected.Store(false)
		return conn.Disconnect(ctx)
	}, nil
}

func newConn() *Conn {
	return &Conn{
		r: paho.NewStandardRouter(),

		subscriptions: map[string]paho.SubscribeOptions{},

		log: hamqttlog.ForComponent("autopaho"),
	}
}

// Connected reports whether the broker connection is currently up.
func (c *Conn) Connected() bool {
	return c.connected.Load()
}

func (c *Conn) onReconnect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.subscriptions) == 0 {
		return
	}

	sub := &paho.Subscribe{
		Subscriptions: make([]paho.SubscribeOptions, 0, len(c.subscriptions)),
	}

	for _, s := range c.subscriptions {
		sub.Subscriptions = append(sub.Subscriptions, s)
	}

	c.log.Debug("Reconnected to MQTT. Re-sending subscriptions.")
	if _, err := c.conn.Subscribe(ctx, sub); err != nil {
		c.log.With(hamqttlog.Error(err)).Error("Failed to re-subscribe to mqtt topics")
	}
}

func (c *Conn) WriteTopic(ctx context.Context, topic string, options mqtt.WriteOptions, value []byte) error {
	c.log.With(hamqttlog.Topic(topic), slog.Any("options", options), slog.Int("length", len(value))).Debug("Publishing payload")

	_, err := c.conn.Publish(ctx, &paho.Publish{
		QoS:     uint8(options.QoS),
		Retain:  options.Retain,
		Topic:   topic,
		Payload: value,
	})

	return err
}

// Subscribe subscribes to every subscription and routes their messages to handler. Subscribing to a topic again
// replaces its handler.
func (c *Conn) Subscribe(ctx context.Context, handler mqtt.Handler, subscriptions ...mqtt.Subscription) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(subscriptions) == 0 {
		return nil
	}

	sub := &paho.Subscribe{
		Subscriptions: make([]paho.SubscribeOptions, len(subscriptions)),
	}

	for i, s := range subscriptions {
		opts := paho.SubscribeOptions{
			Topic:             s.Topic,
			QoS:               uint8(s.Options.QoS),
			RetainHandling:    uint8(s.Options.RetainHandling),
			NoLocal:           s.Options.NoLocal,
			RetainAsPublished: s.Options.RetainAsPublished,
		}

		c.subscriptions[s.Topic] = opts
		sub.Subscriptions[i] = opts

		// The router appends handlers, so drop the previous one for this topic first.
		c.r.UnregisterHandler(s.Topic)
		c.r.RegisterHandler(s.Topic, func(publish *paho.Publish) {
			handler.ServeMQTT(c, publish.Topic, publish.Payload)
		})
	}

	c.log.With(slog.Any("subscriptions", subscriptions)).Debug("Subscribing to MQTT Topic(s)")
	_, err := c.conn.Subscribe(ctx, sub)
	return err
}

func (c *Conn) Unsubscribe(ctx context.Context, topics ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range topics {
		delete(c.subscriptions, t)
		c.r.UnregisterHandler(t)
	}

	c.log.With(slog.Any("topics", topics)).Debug("Unsubscribing from MQTT Topic(s)")
	_, err := c.conn.Unsubscribe(ctx, &paho.Unsubscribe{
		Topics: topics,
	})

	return err
}
