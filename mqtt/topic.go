package mqtt

import "strings"

const (
	TopicSeparator = "/"

	// SingleLevelWildcard matches exactly one topic level in a subscription filter.
	SingleLevelWildcard = "+"
	// MultiLevelWildcard matches any number of trailing topic levels in a subscription filter.
	MultiLevelWildcard = "#"

	// MaxTopicLength is the longest topic name MQTT can encode (a two byte length prefix).
	MaxTopicLength = 65535
)

// TrimTopic trims TopicSeparator from the start and end of the specified topic.
func TrimTopic(topic string) string {
	return strings.Trim(topic, TopicSeparator)
}

// JoinTopic joins non-empty component parts with TopicSeparator, trimming each part as it is appended.
func JoinTopic(parts ...string) string {
	var result strings.Builder

	for _, part := range parts {
		part = TrimTopic(part)
		if part == "" {
			continue
		}

		if result.Len() > 0 {
			result.WriteString(TopicSeparator)
		}
		result.WriteString(part)
	}

	return result.String()
}

// ValidLevel reports whether level can be used as a single level of a topic name: it must be non-empty and must not
// contain TopicSeparator or either wildcard.
func ValidLevel(level string) bool {
	return level != "" && !strings.ContainsAny(level, TopicSeparator+SingleLevelWildcard+MultiLevelWildcard)
}

// ValidTopicName reports whether topic can be published to. Topic names must be non-empty, no longer than
// MaxTopicLength, and must not contain wildcards.
func ValidTopicName(topic string) bool {
	return topic != "" &&
		len(topic) <= MaxTopicLength &&
		!strings.ContainsAny(topic, SingleLevelWildcard+MultiLevelWildcard)
}
