package hamqtt

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/nlowe/hamqtt/log"
)

// BaseEntity implements the behavior shared by every Home Assistant entity: unique id resolution, discovery config
// publishing, availability, and data topic I/O. Concrete entities embed a *BaseEntity and implement SerializerBuilder:
//
//	type Sensor struct {
//	    *hamqtt.BaseEntity
//	}
//
//	func NewSensor(t hamqtt.Transport, objectID string) *Sensor {
//	    s := &Sensor{}
//	    s.BaseEntity = hamqtt.NewBaseEntity(t, "sensor", objectID, s)
//	    return s
//	}
//
// BaseEntity is not safe for concurrent use. Drive all entities of a Transport from a single goroutine, for example
// with Client.Run.
type BaseEntity struct {
	transport Transport
	variant   SerializerBuilder

	componentName string
	objectID      string
	uniqueID      string

	name           string
	icon           string
	picture        *url.URL
	entityCategory string

	availability Availability

	// serializer is only set for the duration of PublishConfig.
	serializer Serializer

	log *slog.Logger
}

// NewBaseEntity constructs the shared part of an entity. componentName is the Home Assistant platform (e.g. "sensor")
// and objectID identifies the entity within its device. variant builds the discovery document and is usually the
// concrete entity embedding the returned BaseEntity.
//
// The entity is not visible to the transport until Register is called. A nil transport is allowed; every operation on
// the entity is then skipped.
func NewBaseEntity(t Transport, componentName, objectID string, variant SerializerBuilder) *BaseEntity {
	return &BaseEntity{
		transport:     t,
		variant:       variant,
		componentName: componentName,
		objectID:      objectID,

		log: log.ForEntity(componentName, objectID),
	}
}

// Register adds the entity to its transport so it receives messages and is announced on connect. If the variant
// passed to NewBaseEntity implements Entity, the variant is registered so its message hooks are the ones called.
func (e *BaseEntity) Register() {
	if e.transport == nil {
		e.log.Debug("Not registering entity", log.Error(ErrNoTransport))
		return
	}

	e.transport.AddEntity(e.entity())
}

func (e *BaseEntity) entity() Entity {
	if ent, ok := e.variant.(Entity); ok {
		return ent
	}

	return e
}

func (e *BaseEntity) ComponentName() string {
	return e.componentName
}

func (e *BaseEntity) ObjectID() string {
	return e.objectID
}

// Name returns the entity name. An empty name makes Home Assistant use the device name.
func (e *BaseEntity) Name() string {
	return e.name
}

func (e *BaseEntity) SetName(name string) {
	e.name = name
}

// SetIcon sets the frontend icon, e.g. "mdi:thermometer".
func (e *BaseEntity) SetIcon(icon string) {
	e.icon = icon
}

// SetPicture sets the URL of an image Home Assistant shows instead of the icon.
func (e *BaseEntity) SetPicture(picture *url.URL) {
	e.picture = picture
}

// SetEntityCategory sets the entity category, "config" or "diagnostic". See
// https://developers.home-assistant.io/docs/core/entity/#generic-properties
func (e *BaseEntity) SetEntityCategory(category string) {
	e.entityCategory = category
}

// Transport returns the transport the entity was constructed with.
func (e *BaseEntity) Transport() Transport {
	return e.transport
}

// Logger returns the logger for this entity, tagged with its component name and object id.
func (e *BaseEntity) Logger() *slog.Logger {
	return e.log
}

// OnMQTTMessage is called for every message the transport receives. The default implementation ignores it.
func (e *BaseEntity) OnMQTTMessage(_ context.Context, _ string, _ []byte) {}

// OnMQTTConnected is called after the discovery config was published on (re)connect. The default implementation does
// nothing.
func (e *BaseEntity) OnMQTTConnected(_ context.Context) {}

// DataTopic returns the data topic of this entity for suffix, or the empty string if it cannot be built.
func (e *BaseEntity) DataTopic(suffix string) string {
	if e.transport == nil || e.objectID == "" {
		return ""
	}

	return e.transport.Topics().DataTopic(e.objectID, suffix)
}

var _ Entity = &BaseEntity{}
