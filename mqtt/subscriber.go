package mqtt

import (
	"context"
	"log/slog"
)

// Subscription pairs a topic filter with the options to subscribe with. It implements fmt.Stringer and
// slog.LogValuer.
type Subscription struct {
	Topic   string
	Options ReadOptions
}

func (s Subscription) String() string {
	return s.Topic
}

func (s Subscription) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("topic", s.Topic),
		slog.Any("options", s.Options),
	)
}

// Handler receives the messages of a Subscription, much like http.Handler serves requests.
//
// ServeMQTT runs on the connection's receive path: it has no error return and must not block. Hand slow work to
// another goroutine, as hamqtt.Client does with its inbox. The message slice and the Writer are only valid until
// ServeMQTT returns; copy the payload to keep it.
type Handler interface {
	ServeMQTT(w Writer, topic string, message []byte)
}

// HandlerFunc lets an ordinary function serve as a Handler.
type HandlerFunc func(Writer, string, []byte)

func (f HandlerFunc) ServeMQTT(w Writer, topic string, message []byte) {
	f(w, topic, message)
}

// Subscriber manages the subscriptions of a connection.
type Subscriber interface {
	// Subscribe sends every message matching one of subscriptions to handler. Subscribing to a topic again replaces
	// its previous handler.
	Subscribe(ctx context.Context, handler Handler, subscriptions ...Subscription) error

	// Unsubscribe drops the subscriptions for topics along with their handlers.
	Unsubscribe(ctx context.Context, topics ...string) error
}
