package mqtt

import (
	"context"
)

// Writer is the minimum abstraction around writing values to MQTT.
type Writer interface {
	// WriteTopic writes the provided value to the specified topic with the specified WriteOptions.
	WriteTopic(ctx context.Context, topic string, options WriteOptions, value []byte) error
}

// PayloadWriter receives the body of a publish that has already been opened. Implementations decide how to transfer
// the bytes based on Source.Residency.
type PayloadWriter interface {
	WritePayload(src Source)
}

// ConnectionStatus is implemented by Writers that know whether the underlying broker connection is usable. Writers that
// do not implement it are assumed to always be connected.
type ConnectionStatus interface {
	Connected() bool
}

// IsConnected reports whether w is usable, consulting ConnectionStatus when w implements it.
func IsConnected(w Writer) bool {
	if w == nil {
		return false
	}

	if status, ok := w.(ConnectionStatus); ok {
		return status.Connected()
	}

	return true
}

// Error discards the result of a call that returns a value and an error, returning just the error. Used to join
// multiple errors when you don't care about returned values.
func Error[T any](_ T, err error) error {
	return err
}
