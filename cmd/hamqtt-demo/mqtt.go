package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/nlowe/hamqtt/internal/config"
	hamqttlog "github.com/nlowe/hamqtt/log"
	"github.com/nlowe/hamqtt/mqtt"
	adapter "github.com/nlowe/hamqtt/mqtt/adapter/autopaho"
)

var errNotDialed = errors.New("mqtt connection not established yet")

// lazyConn lets the hamqtt.Client be built before the broker connection exists, since the connection needs the
// client's last will and its OnConnectionUp callback needs the client.
type lazyConn struct {
	conn atomic.Pointer[adapter.Conn]
}

var (
	_ mqtt.Writer           = &lazyConn{}
	_ mqtt.Subscriber       = &lazyConn{}
	_ mqtt.ConnectionStatus = &lazyConn{}
)

func (l *lazyConn) WriteTopic(ctx context.Context, topic string, options mqtt.WriteOptions, value []byte) error {
	c := l.conn.Load()
	if c == nil {
		return errNotDialed
	}

	return c.WriteTopic(ctx, topic, options, value)
}

func (l *lazyConn) Subscribe(ctx context.Context, handler mqtt.Handler, subscriptions ...mqtt.Subscription) error {
	c := l.conn.Load()
	if c == nil {
		return errNotDialed
	}

	return c.Subscribe(ctx, handler, subscriptions...)
}

func (l *lazyConn) Unsubscribe(ctx context.Context, topics ...string) error {
	c := l.conn.Load()
	if c == nil {
		return errNotDialed
	}

	return c.Unsubscribe(ctx, topics...)
}

func (l *lazyConn) Connected() bool {
	c := l.conn.Load()
	return c != nil && c.Connected()
}

type disconnectFunc func(context.Context) error

func mqttConfig(cfg *config.Config, brokerURL *url.URL, onConnected func()) autopaho.ClientConfig {
	log := hamqttlog.ForComponent("mqtt")

	pahoConfig := autopaho.ClientConfig{
		ServerUrls: []*url.URL{brokerURL},
		KeepAlive:  cfg.Broker.KeepAlive,

		ConnectUsername: cfg.Broker.Username,
		ConnectPassword: []byte(cfg.Broker.Password),

		// SessionExpiryInterval - Seconds that a session will survive after disconnection. Commands sent by Home
		// Assistant while the connection is down are queued by the broker for this long.
		SessionExpiryInterval: 60,

		OnConnectionUp: func(cm *autopaho.ConnectionManager, connAck *paho.Connack) {
			log.Info("mqtt connected")
			onConnected()
		},
		OnConnectError: func(err error) {
			log.With(hamqttlog.Error(err)).Error("mqtt connection error")
		},

		ClientConfig: paho.ClientConfig{
			ClientID: cfg.Broker.ClientID,
			OnClientError: func(err error) {
				log.With(hamqttlog.Error(err)).Error("mqtt client error")
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				log := log.With(slog.Int("reason", int(d.ReasonCode)))

				if d.Properties != nil {
					log = log.With(
						slog.Group(
							"properties",
							slog.String("reference", d.Properties.ServerReference),
							slog.String("reason", d.Properties.ReasonString),
							slog.Any("user", d.Properties.User),
						),
					)
				}

				log.Warn("Disconnected from server")
			},
		},
	}

	// TLS for mqtts:// and ssl:// brokers
	switch brokerURL.Scheme {
	case "mqtts", "ssl", "tls":
		pahoConfig.TlsCfg = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	return pahoConfig
}

func dialMQTT(ctx context.Context, l *lazyConn, pahoConfig autopaho.ClientConfig) (disconnectFunc, error) {
	log := hamqttlog.ForComponent("mqtt").With(slog.Any("brokers", pahoConfig.ServerUrls))

	log.Info("Connecting to mqtt")
	conn, disconnect, err := adapter.DialMQTT(ctx, pahoConfig)
	if err != nil {
		return nil, fmt.Errorf("mqtt: connect: %w", err)
	}

	l.conn.Store(conn)
	log.Info("Connected to mqtt")

	return disconnect, nil
}
