// Package log routes the slog output of every hamqtt package to a single, swappable slog.Handler. Until To is called,
// all records are discarded, which keeps embedded-style callers quiet by default.
package log

import (
	"context"
	"log/slog"
	"sync/atomic"
)

const (
	ComponentKey = "component"
	ErrorKey     = "error"
	ObjectIDKey  = "object_id"
	TopicKey     = "topic"
)

// Error returns a slog.Attr for the provided error. The key will be ErrorKey.
func Error(e error) slog.Attr {
	return slog.Any(ErrorKey, e)
}

// Topic returns a slog.Attr for an MQTT topic. The key will be TopicKey.
func Topic(topic string) slog.Attr {
	return slog.String(TopicKey, topic)
}

// indirectHandler is a small wrapper around a slog.Handler that allows swapping out the underlying handler on demand.
// WithAttrs and WithGroup calls are recorded and replayed against the current handler, so loggers constructed before
// To is called still pick up the new sink.
type indirectHandler struct {
	h *atomic.Pointer[slog.Handler]

	ops []func(slog.Handler) slog.Handler
}

func (i *indirectHandler) resolve() slog.Handler {
	h := i.h.Load()
	if h == nil {
		return nil
	}

	resolved := *h
	for _, op := range i.ops {
		resolved = op(resolved)
	}

	return resolved
}

func (i *indirectHandler) with(op func(slog.Handler) slog.Handler) *indirectHandler {
	ops := make([]func(slog.Handler) slog.Handler, len(i.ops), len(i.ops)+1)
	copy(ops, i.ops)

	return &indirectHandler{h: i.h, ops: append(ops, op)}
}

func (i *indirectHandler) Enabled(ctx context.Context, level slog.Level) bool {
	h := i.resolve()
	if h == nil {
		return false
	}

	return h.Enabled(ctx, level)
}

func (i *indirectHandler) Handle(ctx context.Context, record slog.Record) error {
	h := i.resolve()
	if h == nil {
		return nil
	}

	return h.Handle(ctx, record)
}

func (i *indirectHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return i
	}

	return i.with(func(h slog.Handler) slog.Handler {
		return h.WithAttrs(attrs)
	})
}

func (i *indirectHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return i
	}

	return i.with(func(h slog.Handler) slog.Handler {
		return h.WithGroup(name)
	})
}

var _ slog.Handler = &indirectHandler{}

var (
	sink = &indirectHandler{h: &atomic.Pointer[slog.Handler]{}}
)

// To updates all slog.Logger objects used internally by hamqtt to write logs to the provided slog.Handler. By default,
// log values will be discarded unless To is called at least once with a non-discarding slog.Handler.
func To(h slog.Handler) {
	sink.h.Store(&h)
}

// ForComponent constructs a slog.Logger for the specified component (which is stored in an attribute with the key
// ComponentKey).
func ForComponent(component string) *slog.Logger {
	return slog.New(sink).With(slog.String(ComponentKey, component))
}

// ForEntity constructs a slog.Logger for a single entity, tagged with both the component name and the object id.
func ForEntity(component, objectID string) *slog.Logger {
	return ForComponent(component).With(slog.String(ObjectIDKey, objectID))
}
