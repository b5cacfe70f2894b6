package hamqtt

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nlowe/hamqtt/log"
	"github.com/nlowe/hamqtt/mqtt"
)

// PublishConfig publishes the entity's discovery document, retained, on its config topic. The document is built by
// the variant's BuildSerializer and released before PublishConfig returns, whether the publish happened or not.
//
// PublishConfig is skipped when there is no device yet, the variant builds no document, the document or the config
// topic is empty, or the transport rejects the publish. Call it again to retry.
func (e *BaseEntity) PublishConfig(ctx context.Context) {
	if err := e.publishConfig(ctx); err != nil {
		e.log.DebugContext(ctx, "Skipped discovery config publish", log.Error(err))
		return
	}

	e.log.DebugContext(ctx, "Published discovery config", slog.String("unique_id", e.uniqueID))
}

func (e *BaseEntity) publishConfig(ctx context.Context) error {
	if _, err := e.resolveUniqueID(); err != nil {
		return err
	}

	if e.variant == nil {
		return ErrNoSerializer
	}

	e.serializer = e.variant.BuildSerializer()
	if e.serializer == nil {
		return ErrNoSerializer
	}
	defer e.DestroySerializer()

	topics := e.transport.Topics()
	n := topics.ConfigTopicLength(e.componentName, e.objectID)
	if n == 0 {
		return fmt.Errorf("config topic for %s/%s: %w", e.componentName, e.objectID, ErrInvalidTopic)
	}

	size := e.serializer.CalculateSize()
	if size == 0 {
		if s, ok := e.serializer.(interface{ Err() error }); ok && s.Err() != nil {
			return fmt.Errorf("%w: %w", ErrEmptyPayload, s.Err())
		}

		return ErrEmptyPayload
	}

	buf := make([]byte, n)
	if !topics.GenerateConfigTopic(buf, e.componentName, e.objectID) {
		return fmt.Errorf("config topic for %s/%s: %w", e.componentName, e.objectID, ErrInvalidTopic)
	}

	if !e.transport.BeginPublish(ctx, string(buf), size, true) {
		return fmt.Errorf("begin %s: %w", buf, ErrPublishRejected)
	}

	e.serializer.Flush(e.transport)

	if !e.transport.EndPublish(ctx) {
		return fmt.Errorf("end %s: %w", buf, ErrPublishRejected)
	}

	return nil
}

// DestroySerializer releases the discovery document built during PublishConfig. It does nothing if there is none.
func (e *BaseEntity) DestroySerializer() {
	if e.serializer == nil {
		return
	}

	e.serializer.Release()
	e.serializer = nil
}

// PublishOnDataTopic publishes src on the entity's data topic for suffix and reports whether the transport accepted
// the message. An empty src is rejected without touching the transport.
func (e *BaseEntity) PublishOnDataTopic(ctx context.Context, suffix string, src mqtt.Source, retain bool) bool {
	if err := e.publishOnDataTopic(ctx, suffix, src, retain); err != nil {
		e.log.DebugContext(ctx, "Skipped data topic publish", slog.String("suffix", suffix), slog.Any("payload", src), log.Error(err))
		return false
	}

	return true
}

// PublishStringOnDataTopic is PublishOnDataTopic for a string computed at runtime.
func (e *BaseEntity) PublishStringOnDataTopic(ctx context.Context, suffix, payload string, retain bool) bool {
	return e.PublishOnDataTopic(ctx, suffix, mqtt.DynamicString(payload), retain)
}

// PublishBytesOnDataTopic is PublishOnDataTopic for a byte buffer. The buffer must not be modified until the call
// returns.
func (e *BaseEntity) PublishBytesOnDataTopic(ctx context.Context, suffix string, payload []byte, retain bool) bool {
	return e.PublishOnDataTopic(ctx, suffix, mqtt.Raw(payload), retain)
}

func (e *BaseEntity) publishOnDataTopic(ctx context.Context, suffix string, src mqtt.Source, retain bool) error {
	if src.Empty() {
		return ErrEmptyPayload
	}

	if e.transport == nil {
		return ErrNoTransport
	}

	// An empty object id would silently address the device-level topic instead.
	if e.objectID == "" {
		return fmt.Errorf("data topic without object id: %w", ErrInvalidTopic)
	}

	topics := e.transport.Topics()
	n := topics.DataTopicLength(e.objectID, suffix)
	if n == 0 {
		return fmt.Errorf("data topic %q: %w", suffix, ErrInvalidTopic)
	}

	buf := make([]byte, n)
	if !topics.GenerateDataTopic(buf, e.objectID, suffix) {
		return fmt.Errorf("data topic %q: %w", suffix, ErrInvalidTopic)
	}

	if !e.transport.BeginPublish(ctx, string(buf), src.Len(), retain) {
		return fmt.Errorf("begin %s: %w", buf, ErrPublishRejected)
	}

	e.transport.WritePayload(src)

	if !e.transport.EndPublish(ctx) {
		return fmt.Errorf("end %s: %w", buf, ErrPublishRejected)
	}

	return nil
}

// SubscribeTopic subscribes the transport to the data topic for objectID and suffix. Messages arrive through
// OnMQTTMessage. An empty objectID subscribes to the device-level topic.
func (e *BaseEntity) SubscribeTopic(ctx context.Context, objectID, suffix string) {
	if e.transport == nil {
		e.log.DebugContext(ctx, "Skipped subscribe", slog.String("suffix", suffix), log.Error(ErrNoTransport))
		return
	}

	topics := e.transport.Topics()
	n := topics.DataTopicLength(objectID, suffix)
	if n == 0 {
		e.log.DebugContext(ctx, "Skipped subscribe", slog.String("suffix", suffix), log.Error(ErrInvalidTopic))
		return
	}

	buf := make([]byte, n)
	if !topics.GenerateDataTopic(buf, objectID, suffix) {
		e.log.DebugContext(ctx, "Skipped subscribe", slog.String("suffix", suffix), log.Error(ErrInvalidTopic))
		return
	}

	e.transport.Subscribe(ctx, string(buf))
}
