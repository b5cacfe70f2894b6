package discovery

import (
	"bytes"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/nlowe/hamqtt/mqtt"
)

// ErrReleased is returned by Serializer.Err after Serializer.Release has been called.
var ErrReleased = errors.New("serializer released")

var buffers = sync.Pool{
	New: func() any {
		return &bytes.Buffer{}
	},
}

// FieldMarshaler writes one key/value pair of a discovery document. The helpers in this package (MaybeMarshalStd,
// MarshalRequiredTopic, ...) all have this shape once their arguments are bound.
type FieldMarshaler func(e *jsontext.Encoder) error

type field struct {
	key     string
	marshal FieldMarshaler
}

// Serializer builds a single discovery document. Fields are encoded in the order they were first added; adding a key
// again replaces the earlier value in place. The document is encoded lazily on the first call to CalculateSize, Bytes,
// or Flush and cached until the next change.
//
// A Serializer borrows its encode buffer from a pool; call Release once the document has been published.
type Serializer struct {
	fields []field

	buf      *bytes.Buffer
	payload  []byte
	err      error
	encoded  bool
	released bool
}

// NewSerializer returns an empty Serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Add registers a field under key. The marshal function is responsible for writing both the key and value tokens, and
// may write nothing to omit the field.
func (s *Serializer) Add(key string, marshal FieldMarshaler) *Serializer {
	s.encoded = false

	if i := slices.IndexFunc(s.fields, func(f field) bool { return f.key == key }); i >= 0 {
		s.fields[i].marshal = marshal
		return s
	}

	s.fields = append(s.fields, field{key: key, marshal: marshal})
	return s
}

// Set adds a field that marshals v with Marshalers. Use it for values that must always be present.
func (s *Serializer) Set(key string, v any) *Serializer {
	return s.Add(key, func(e *jsontext.Encoder) error {
		return errors.Join(
			e.WriteToken(jsontext.String(key)),
			json.MarshalEncode(e, v, json.WithMarshalers(Marshalers)),
		)
	})
}

// SetString adds a string field that is omitted when v is empty.
func (s *Serializer) SetString(key, v string) *Serializer {
	return s.Add(key, func(e *jsontext.Encoder) error {
		return MaybeMarshalStdComparable(e, key, v)
	})
}

// SetTopic adds a topic field that is omitted when topic is empty.
func (s *Serializer) SetTopic(key, topic string) *Serializer {
	return s.Add(key, func(e *jsontext.Encoder) error {
		return MaybeMarshalTopic(e, key, topic)
	})
}

// SetRequiredTopic adds a topic field that fails encoding with ErrTopicRequired when topic is empty.
func (s *Serializer) SetRequiredTopic(name, key, topic string) *Serializer {
	return s.Add(key, func(e *jsontext.Encoder) error {
		return MarshalRequiredTopic(name, e, key, topic)
	})
}

// SetStateAndCommandTopics adds a state and command topic pair under stateKey. The pair is omitted when both topics are
// empty and fails encoding with ErrMissingStateOrCommandTopic when only one of them is.
func (s *Serializer) SetStateAndCommandTopics(name, stateKey, state, commandKey, command string) *Serializer {
	return s.Add(stateKey, func(e *jsontext.Encoder) error {
		return MaybeMarshalStateAndCommandTopics(name, e, stateKey, state, commandKey, command)
	})
}

func (s *Serializer) encode() {
	if s.encoded {
		return
	}
	s.encoded = true

	if s.released {
		s.payload, s.err = nil, ErrReleased
		return
	}

	if s.buf == nil {
		s.buf = buffers.Get().(*bytes.Buffer)
	}
	s.buf.Reset()

	e := jsontext.NewEncoder(
		s.buf,
		jsontext.CanonicalizeRawInts(true),
		jsontext.CanonicalizeRawFloats(true),
	)

	err := e.WriteToken(jsontext.BeginObject)
	for _, f := range s.fields {
		err = errors.Join(err, f.marshal(e))
	}
	err = errors.Join(err, e.WriteToken(jsontext.EndObject))

	if err != nil {
		s.payload, s.err = nil, fmt.Errorf("encode discovery document: %w", err)
		return
	}

	// The encoder terminates every top-level value with a newline, which is not part of the document.
	s.payload, s.err = bytes.TrimRight(s.buf.Bytes(), "\n"), nil
}

// CalculateSize returns the size in bytes of the encoded document, or zero if it cannot be encoded. See Err for the
// reason.
func (s *Serializer) CalculateSize() int {
	s.encode()
	return len(s.payload)
}

// Bytes returns the encoded document, or nil if it cannot be encoded. The slice is only valid until the next change
// to the Serializer or the call to Release.
func (s *Serializer) Bytes() []byte {
	s.encode()
	return s.payload
}

// Err returns the error from the most recent encode, if any.
func (s *Serializer) Err() error {
	s.encode()
	return s.err
}

// Flush writes the encoded document into the publish that w has open. Nothing is written if the document cannot be
// encoded.
func (s *Serializer) Flush(w mqtt.PayloadWriter) {
	if payload := s.Bytes(); len(payload) > 0 {
		w.WritePayload(mqtt.Raw(payload))
	}
}

// Release returns the encode buffer to the pool and drops all fields. It is safe to call more than once. A released
// Serializer reports a size of zero.
func (s *Serializer) Release() {
	if s.buf != nil {
		s.buf.Reset()
		buffers.Put(s.buf)
	}

	s.buf, s.payload, s.fields = nil, nil, nil
	s.released, s.encoded = true, false
}
