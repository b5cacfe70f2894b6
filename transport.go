package hamqtt

import (
	"context"

	"github.com/nlowe/hamqtt/mqtt"
	"github.com/nlowe/hamqtt/topic"
)

// Transport is everything an entity needs from the MQTT connection. *Client is the standard implementation.
//
// A publish is a three step transaction: BeginPublish declares the topic, exact payload length, and retain flag;
// WritePayload is called one or more times with exactly length bytes in total; EndPublish completes it. If
// BeginPublish returns false, the caller must not call WritePayload or EndPublish.
//
// Implementations must tolerate the context being ignored by callers that have none; entities pass the context they
// were given straight through and never cancel it themselves.
type Transport interface {
	mqtt.PayloadWriter

	// BeginPublish opens a publish transaction. It returns false if the transport cannot publish right now, for
	// example because it is not connected.
	BeginPublish(ctx context.Context, topic string, length int, retain bool) bool

	// EndPublish completes the open transaction and reports whether the message was handed to the broker.
	EndPublish(ctx context.Context) bool

	// Subscribe subscribes to topic. Messages received on it are delivered to every registered Entity through
	// Entity.OnMQTTMessage. Failures are not reported.
	Subscribe(ctx context.Context, topic string)

	// Device returns the device entities belong to, or nil if none has been configured.
	Device() *Device

	// Topics returns the topic builder for the current device.
	Topics() topic.Builder

	// AddEntity registers an entity so it receives messages and is announced on (re)connect.
	AddEntity(e Entity)
}

// QoSProvider is implemented by transports that publish with a fixed QoS. Discovery documents then tell Home Assistant
// to use the same QoS for its own subscriptions and commands.
type QoSProvider interface {
	QoS() mqtt.QualityOfService
}

// Entity is the interface the transport uses to drive registered entities. Every type embedding *BaseEntity
// implements it.
type Entity interface {
	// ComponentName returns the Home Assistant platform name, e.g. "sensor".
	ComponentName() string

	// ObjectID returns the id of the entity, unique within its device.
	ObjectID() string

	// PublishConfig publishes the entity's discovery document.
	PublishConfig(ctx context.Context)

	// OnMQTTMessage is called for every message received on any topic the transport is subscribed to.
	OnMQTTMessage(ctx context.Context, topic string, payload []byte)

	// OnMQTTConnected is called after the discovery document was published on (re)connect. Entities subscribe to
	// their command topics and republish their state here.
	OnMQTTConnected(ctx context.Context)
}

// Serializer is a discovery document under construction. It lives only for the duration of a single
// BaseEntity.PublishConfig call.
type Serializer interface {
	// CalculateSize returns the encoded size of the document in bytes, or zero if it cannot be encoded.
	CalculateSize() int

	// Flush writes the encoded document into the open publish transaction.
	Flush(w mqtt.PayloadWriter)

	// Release frees any resources held by the serializer.
	Release()
}

// SerializerBuilder is the capability every concrete entity provides: building the discovery document describing
// itself. Returning nil skips the publish.
type SerializerBuilder interface {
	BuildSerializer() Serializer
}
