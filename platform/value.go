package platform

import (
	"context"
	"log/slog"

	"github.com/nlowe/hamqtt"
	"github.com/nlowe/hamqtt/log"
	"github.com/nlowe/hamqtt/mqtt"
)

// publishValue marshals v and publishes it on the data topic of e for suffix.
func publishValue[T any](ctx context.Context, e *hamqtt.BaseEntity, suffix string, marshal mqtt.ValueMarshaler[T], v T, retain bool) bool {
	payload, err := marshal(v)
	if err != nil {
		e.Logger().WarnContext(ctx, "Failed to marshal value", slog.String("suffix", suffix), slog.Any("value", v), log.Error(err))
		return false
	}

	return e.PublishBytesOnDataTopic(ctx, suffix, payload, retain)
}

// commandTopics maps the full command topics an entity subscribed to back to their suffix.
type commandTopics map[string]string

// subscribe subscribes e to its data topic for every suffix and remembers the resulting topics.
func (c commandTopics) subscribe(ctx context.Context, e *hamqtt.BaseEntity, suffixes ...string) {
	clear(c)

	for _, suffix := range suffixes {
		topic := e.DataTopic(suffix)
		if topic == "" {
			continue
		}

		c[topic] = suffix
		e.SubscribeTopic(ctx, e.ObjectID(), suffix)
	}
}

// suffix returns the suffix topic was subscribed for, if it is one of the entity's command topics.
func (c commandTopics) suffix(topic string) (string, bool) {
	suffix, ok := c[topic]
	return suffix, ok
}
