// Package topic computes and fills the topics an entity publishes and subscribes to. Every topic family comes as a
// pair of functions: one reports the exact number of bytes the topic needs, the other fills a caller-supplied buffer
// of exactly that size. Both functions derive the topic from the same list of levels, so they always agree.
package topic

import (
	"strings"

	"github.com/nlowe/hamqtt/mqtt"
)

const (
	// DefaultDiscoveryPrefix is the prefix Home Assistant watches for discovery documents.
	DefaultDiscoveryPrefix = "homeassistant"
	// DefaultDataPrefix is the prefix used for entity state, command, and availability topics.
	DefaultDataPrefix = "hamqtt"

	// ConfigSuffix is the last level of every discovery config topic.
	ConfigSuffix = "config"
)

// Builder builds topics for a single device. The zero value builds nothing: every length is zero and every Generate
// call fails.
//
// Topics have the following shape:
//
//	data:        <DataPrefix>/<DeviceID>/<objectID>/<suffix>
//	device data: <DataPrefix>/<DeviceID>/<suffix>
//	config:      <DiscoveryPrefix>/<componentName>/<DeviceID>/<objectID>/config
//
// Prefixes may span several levels, e.g. "home/greenhouse". Every other part must be a single level.
type Builder struct {
	DiscoveryPrefix string
	DataPrefix      string
	DeviceID        string
}

// DataTopicLength returns the number of bytes needed for the data topic of objectID with the given suffix. If objectID
// is empty, the device-level data topic is measured instead. Zero means the topic cannot be built, either because a
// level is empty or invalid, or because the topic would exceed mqtt.MaxTopicLength.
func (b Builder) DataTopicLength(objectID, suffix string) int {
	return length(b.dataLevels(objectID, suffix)...)
}

// GenerateDataTopic fills buf with the data topic for objectID and suffix. It fails unless len(buf) is exactly
// DataTopicLength(objectID, suffix) and that length is non-zero.
func (b Builder) GenerateDataTopic(buf []byte, objectID, suffix string) bool {
	return fill(buf, b.dataLevels(objectID, suffix)...)
}

// DataTopic returns the data topic for objectID and suffix, or the empty string if it cannot be built.
func (b Builder) DataTopic(objectID, suffix string) string {
	n := b.DataTopicLength(objectID, suffix)
	if n == 0 {
		return ""
	}

	buf := make([]byte, n)
	if !b.GenerateDataTopic(buf, objectID, suffix) {
		return ""
	}

	return string(buf)
}

// ConfigTopicLength returns the number of bytes needed for the discovery config topic of the entity identified by
// componentName and objectID. Zero means the topic cannot be built.
func (b Builder) ConfigTopicLength(componentName, objectID string) int {
	return length(b.configLevels(componentName, objectID)...)
}

// GenerateConfigTopic fills buf with the discovery config topic for componentName and objectID. It fails unless
// len(buf) is exactly ConfigTopicLength(componentName, objectID) and that length is non-zero.
func (b Builder) GenerateConfigTopic(buf []byte, componentName, objectID string) bool {
	return fill(buf, b.configLevels(componentName, objectID)...)
}

// ConfigTopic returns the discovery config topic for componentName and objectID, or the empty string if it cannot be
// built.
func (b Builder) ConfigTopic(componentName, objectID string) string {
	n := b.ConfigTopicLength(componentName, objectID)
	if n == 0 {
		return ""
	}

	buf := make([]byte, n)
	if !b.GenerateConfigTopic(buf, componentName, objectID) {
		return ""
	}

	return string(buf)
}

func (b Builder) dataLevels(objectID, suffix string) []string {
	if objectID == "" {
		return prefixed(b.DataPrefix, b.DeviceID, suffix)
	}

	return prefixed(b.DataPrefix, b.DeviceID, objectID, suffix)
}

func (b Builder) configLevels(componentName, objectID string) []string {
	return prefixed(b.DiscoveryPrefix, componentName, b.DeviceID, objectID, ConfigSuffix)
}

// ValidPrefix reports whether prefix can be used as a DiscoveryPrefix or DataPrefix: every level must be non-empty and
// free of wildcards.
func ValidPrefix(prefix string) bool {
	for _, level := range strings.Split(prefix, mqtt.TopicSeparator) {
		if !mqtt.ValidLevel(level) {
			return false
		}
	}

	return true
}

// prefixed splits prefix into its levels and appends rest. An empty prefix stays a single empty level.
func prefixed(prefix string, rest ...string) []string {
	return append(strings.Split(prefix, mqtt.TopicSeparator), rest...)
}

func length(levels ...string) int {
	n := len(levels) - 1
	for _, level := range levels {
		if !mqtt.ValidLevel(level) {
			return 0
		}

		n += len(level)
		if n > mqtt.MaxTopicLength {
			return 0
		}
	}

	return n
}

func fill(buf []byte, levels ...string) bool {
	n := length(levels...)
	if n == 0 || n != len(buf) {
		return false
	}

	offset := 0
	for i, level := range levels {
		if i > 0 {
			buf[offset] = mqtt.TopicSeparator[0]
			offset++
		}

		offset += copy(buf[offset:], level)
	}

	return offset == n
}
