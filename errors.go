package hamqtt

import "errors"

// Reasons an entity operation was skipped. Entity methods do not return these; they appear in debug logs so the cause
// of a skipped publish can be told apart.
var (
	ErrNoTransport     = errors.New("entity has no transport")
	ErrNoDevice        = errors.New("transport has no device")
	ErrNoSerializer    = errors.New("entity produced no discovery serializer")
	ErrInvalidTopic    = errors.New("topic cannot be built")
	ErrEmptyPayload    = errors.New("payload is empty")
	ErrPublishRejected = errors.New("transport rejected publish")

	// ErrNoSubscriber is returned by Client.WatchHomeAssistant for clients constructed without an mqtt.Subscriber.
	ErrNoSubscriber = errors.New("client has no subscriber")
	// ErrNotWatching is returned by Client.AwaitHomeAssistant before Client.WatchHomeAssistant succeeded.
	ErrNotWatching = errors.New("home assistant status is not watched")

	errSharedAvailability = errors.New("device publishes shared availability")
	errAvailabilityUnset  = errors.New("availability was never set")
)
