package hamqtt

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/nlowe/hamqtt/discovery"
	"github.com/nlowe/hamqtt/hass"
	"github.com/nlowe/hamqtt/log"
	"github.com/nlowe/hamqtt/mqtt"
	"github.com/nlowe/hamqtt/topic"
)

// DefaultInboxSize is the number of received messages a Client buffers before it starts dropping them.
const DefaultInboxSize = 64

// ClientOption configures a Client.
type ClientOption func(c *Client)

// WithDiscoveryPrefix overrides topic.DefaultDiscoveryPrefix.
func WithDiscoveryPrefix(prefix string) ClientOption {
	return func(c *Client) {
		c.topics.DiscoveryPrefix = mqtt.TrimTopic(prefix)
	}
}

// WithDataPrefix overrides topic.DefaultDataPrefix.
func WithDataPrefix(prefix string) ClientOption {
	return func(c *Client) {
		c.topics.DataPrefix = mqtt.TrimTopic(prefix)
	}
}

// WithQoS sets the QoS used for every publish and subscription.
func WithQoS(qos mqtt.QualityOfService) ClientOption {
	return func(c *Client) {
		c.qos = qos
	}
}

// WithInboxSize sets how many received messages are buffered until the next Loop. The default is DefaultInboxSize.
func WithInboxSize(n int) ClientOption {
	return func(c *Client) {
		c.inboxSize = n
	}
}

type transaction struct {
	topic   string
	length  int
	retain  bool
	payload []byte
}

type message struct {
	topic   string
	payload []byte
}

// Client is the standard Transport. It buffers each begin/write/end transaction into a single message for an
// mqtt.Writer, keeps the registry of entities, and queues messages received through an mqtt.Subscriber until the
// owning goroutine delivers them with Loop or Run, so entity code never runs concurrently.
type Client struct {
	w mqtt.Writer
	s mqtt.Subscriber

	device *Device
	topics topic.Builder
	qos    mqtt.QualityOfService

	mu                 sync.Mutex
	tx                 *transaction
	entities           []Entity
	deviceAvailability Availability

	inboxSize int
	inbox     chan message
	announce  chan struct{}

	status *mqtt.RemoteValue[hass.Availability]

	log *slog.Logger
}

// NewClient constructs a Client publishing through w and subscribing through s for the entities of device. s may be
// nil for publish-only programs. A nil device is allowed, but no entity can publish until it has an ID.
func NewClient(w mqtt.Writer, s mqtt.Subscriber, device *Device, opts ...ClientOption) *Client {
	c := &Client{
		w:      w,
		s:      s,
		device: device,
		topics: topic.Builder{
			DiscoveryPrefix: topic.DefaultDiscoveryPrefix,
			DataPrefix:      topic.DefaultDataPrefix,
		},
		deviceAvailability: AvailabilityOnline,
		inboxSize:          DefaultInboxSize,
		announce:           make(chan struct{}, 1),

		log: log.ForComponent("client"),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.topics.DeviceID = device.ID()
	c.inbox = make(chan message, max(c.inboxSize, 0))
	c.log = c.log.With(slog.Any("device", device))

	return c
}

// QoS returns the QoS used for every publish and subscription.
func (c *Client) QoS() mqtt.QualityOfService {
	return c.qos
}

// Device returns the device the client was constructed with.
func (c *Client) Device() *Device {
	return c.device
}

// Topics returns the topic builder for the client's device.
func (c *Client) Topics() topic.Builder {
	return c.topics
}

// BeginPublish opens a transaction for a message of length bytes on topic. It fails if the writer is not connected,
// another transaction is still open, or the arguments are invalid.
func (c *Client) BeginPublish(ctx context.Context, topic string, length int, retain bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	l := c.log.With(log.Topic(topic), slog.Int("length", length))

	switch {
	case c.tx != nil:
		l.WarnContext(ctx, "Publish already in progress", slog.String("open_topic", c.tx.topic))
		return false
	case length < 0 || !mqtt.ValidTopicName(topic):
		l.WarnContext(ctx, "Invalid publish")
		return false
	case !mqtt.IsConnected(c.w):
		l.DebugContext(ctx, "Not connected")
		return false
	}

	c.tx = &transaction{
		topic:   topic,
		length:  length,
		retain:  retain,
		payload: make([]byte, 0, length),
	}

	return true
}

// WritePayload appends src to the open transaction. Writes without an open transaction are dropped.
func (c *Client) WritePayload(src mqtt.Source) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tx == nil {
		c.log.Debug("Dropping payload without publish", slog.Any("payload", src))
		return
	}

	c.tx.payload = append(c.tx.payload, src.Bytes()...)
}

// EndPublish closes the open transaction and writes it. It fails if the number of bytes written differs from the
// length passed to BeginPublish, or if the writer returns an error. The transaction is closed either way.
func (c *Client) EndPublish(ctx context.Context) bool {
	c.mu.Lock()
	tx := c.tx
	c.tx = nil
	c.mu.Unlock()

	if tx == nil {
		c.log.DebugContext(ctx, "No publish in progress")
		return false
	}

	l := c.log.With(log.Topic(tx.topic))
	if len(tx.payload) != tx.length {
		l.WarnContext(ctx, "Payload size mismatch", slog.Int("expected", tx.length), slog.Int("actual", len(tx.payload)))
		return false
	}

	if err := c.w.WriteTopic(ctx, tx.topic, mqtt.WriteOptions{QoS: c.qos, Retain: tx.retain}, tx.payload); err != nil {
		l.WarnContext(ctx, "Failed to publish", log.Error(err))
		return false
	}

	return true
}

// Subscribe subscribes to topic. Received messages are queued and delivered to every registered entity by Loop or
// Run.
func (c *Client) Subscribe(ctx context.Context, topic string) {
	l := c.log.With(log.Topic(topic))
	if c.s == nil {
		l.DebugContext(ctx, "No subscriber configured")
		return
	}

	sub := mqtt.Subscription{Topic: topic, Options: mqtt.ReadOptions{QoS: c.qos}}
	if err := c.s.Subscribe(ctx, mqtt.HandlerFunc(c.enqueue), sub); err != nil {
		l.WarnContext(ctx, "Failed to subscribe", log.Error(err))
	}
}

func (c *Client) enqueue(_ mqtt.Writer, topic string, payload []byte) {
	msg := message{topic: topic, payload: slices.Clone(payload)}

	select {
	case c.inbox <- msg:
	default:
		c.log.Warn("Inbox full, dropping message", log.Topic(topic))
	}
}

// AddEntity registers e. Registering the same entity twice has no effect.
func (c *Client) AddEntity(e Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if slices.Contains(c.entities, e) {
		return
	}

	c.entities = append(c.entities, e)
}

// Entities returns the registered entities in registration order.
func (c *Client) Entities() []Entity {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.entities)
}

// Dispatch delivers a message to every registered entity.
func (c *Client) Dispatch(ctx context.Context, topic string, payload []byte) {
	for _, e := range c.Entities() {
		e.OnMQTTMessage(ctx, topic, payload)
	}
}

// Announce makes the device known to Home Assistant: it publishes the shared device availability when enabled, then
// for each entity in registration order publishes its discovery config and calls OnMQTTConnected. Call it after every
// (re)connect, or use RequestAnnounce from another goroutine.
func (c *Client) Announce(ctx context.Context) {
	c.log.InfoContext(ctx, "Announcing device")

	if c.device.IsSharedAvailabilityEnabled() {
		c.publishDeviceAvailability(ctx)
	}

	for _, e := range c.Entities() {
		e.PublishConfig(ctx)
		e.OnMQTTConnected(ctx)
	}
}

// RequestAnnounce schedules an Announce on the goroutine running Loop or Run. It never blocks; requests made before
// the pending one is served are merged.
func (c *Client) RequestAnnounce() {
	select {
	case c.announce <- struct{}{}:
	default:
	}
}

// SetDeviceAvailability sets the availability shared by all entities of the device and publishes it, retained. It
// returns false if the device does not use shared availability or the publish failed.
func (c *Client) SetDeviceAvailability(ctx context.Context, online bool) bool {
	c.mu.Lock()
	c.deviceAvailability = availabilityFor(online)
	c.mu.Unlock()

	if !c.device.IsSharedAvailabilityEnabled() {
		c.log.DebugContext(ctx, "Shared availability is disabled")
		return false
	}

	return c.publishDeviceAvailability(ctx)
}

func (c *Client) publishDeviceAvailability(ctx context.Context) bool {
	c.mu.Lock()
	a := c.deviceAvailability
	c.mu.Unlock()

	t := c.topics.DataTopic("", discovery.FieldAvailabilityTopic)
	if t == "" {
		c.log.DebugContext(ctx, "Cannot build device availability topic", log.Error(ErrInvalidTopic))
		return false
	}

	payload := a.payload()
	if !c.BeginPublish(ctx, t, payload.Len(), true) {
		return false
	}

	c.WritePayload(payload)
	return c.EndPublish(ctx)
}

// Will returns the last will to configure on the broker connection: "offline" on the device availability topic. It
// returns false when the device does not use shared availability.
func (c *Client) Will() (mqtt.Will, bool) {
	if !c.device.IsSharedAvailabilityEnabled() {
		return mqtt.Will{}, false
	}

	t := c.topics.DataTopic("", discovery.FieldAvailabilityTopic)
	if t == "" {
		return mqtt.Will{}, false
	}

	return mqtt.Will{
		Topic:   t,
		Payload: []byte(hass.Unavailable),
		Options: mqtt.WriteOptions{QoS: c.qos, Retain: true},
	}, true
}

// WatchHomeAssistant subscribes to Home Assistant's status topic and requests an Announce every time Home Assistant
// comes online, since it forgets non-retained discovery state on restart.
func (c *Client) WatchHomeAssistant(ctx context.Context) error {
	if c.s == nil {
		return ErrNoSubscriber
	}

	status := discovery.HomeAssistantAvailability(c.topics.DiscoveryPrefix)
	status.Watch(func(a hass.Availability) {
		if a == hass.Available {
			c.log.Info("Home Assistant is online")
			c.RequestAnnounce()
		}
	})

	sub, _ := status.Subscription()
	if err := c.s.Subscribe(ctx, status, sub); err != nil {
		return err
	}

	c.mu.Lock()
	c.status = status
	c.mu.Unlock()

	return nil
}

// AwaitHomeAssistant blocks until Home Assistant reports itself online or ctx is done. It returns immediately if Home
// Assistant is already known to be online. WatchHomeAssistant must have been called first.
func (c *Client) AwaitHomeAssistant(ctx context.Context) error {
	c.mu.Lock()
	status := c.status
	c.mu.Unlock()

	if status == nil {
		return ErrNotWatching
	}

	_, err := status.Await(ctx, mqtt.DesiredValue(hass.Available))
	return err
}

// Loop delivers pending work without blocking: a requested Announce first, then every queued message.
func (c *Client) Loop(ctx context.Context) {
	select {
	case <-c.announce:
		c.Announce(ctx)
	default:
	}

	for {
		select {
		case msg := <-c.inbox:
			c.Dispatch(ctx, msg.topic, msg.payload)
		default:
			return
		}
	}
}

// Run is a main loop: it delivers announces and messages as they arrive and calls onTick every interval, all on the
// calling goroutine. It returns the cause of ctx's cancellation.
func (c *Client) Run(ctx context.Context, interval time.Duration, onTick func(ctx context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-c.announce:
			c.Announce(ctx)
		case msg := <-c.inbox:
			c.Dispatch(ctx, msg.topic, msg.payload)
		case <-ticker.C:
			if onTick != nil {
				onTick(ctx)
			}
		}
	}
}

var (
	_ Transport   = &Client{}
	_ QoSProvider = &Client{}
)
