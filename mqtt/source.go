package mqtt

import "log/slog"

// Residency records where a payload lives. Firmware targets keep constant strings in a separate (flash) segment that
// must be copied out with a different transfer mode; off-device the distinction only matters for diagnostics, but
// transports are free to act on it.
type Residency uint8

const (
	// Dynamic payloads live in ordinary memory and may change between publishes.
	Dynamic Residency = iota
	// Static payloads are process-lifetime constants, such as the "online" and "offline" availability tokens.
	Static
)

func (r Residency) String() string {
	if r == Static {
		return "static"
	}

	return "dynamic"
}

// Source is a payload tagged with its Residency. The zero value is an empty source, which publish operations reject.
// It implements fmt.Stringer and slog.LogValuer.
type Source struct {
	residency Residency
	data      []byte
}

// StaticString returns a Source for a process-lifetime constant string.
func StaticString(s string) Source {
	return Source{residency: Static, data: []byte(s)}
}

// DynamicString returns a Source for a string computed at runtime.
func DynamicString(s string) Source {
	return Source{residency: Dynamic, data: []byte(s)}
}

// Raw returns a dynamic Source for a byte buffer. The buffer is not copied; callers must not modify it until the
// publish that consumes it has completed.
func Raw(b []byte) Source {
	return Source{residency: Dynamic, data: b}
}

// Residency returns where the payload lives.
func (s Source) Residency() Residency {
	return s.residency
}

// Bytes returns the payload. It is the single read accessor regardless of Residency.
func (s Source) Bytes() []byte {
	return s.data
}

// Len returns the payload size in bytes.
func (s Source) Len() int {
	return len(s.data)
}

// Empty reports whether there is nothing to publish.
func (s Source) Empty() bool {
	return len(s.data) == 0
}

func (s Source) String() string {
	return string(s.data)
}

func (s Source) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("residency", s.residency.String()),
		slog.Int("length", len(s.data)),
	)
}
