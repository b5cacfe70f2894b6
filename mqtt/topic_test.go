package mqtt

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrimTopic(t *testing.T) {
	for _, tt := range []struct {
		topic string
		want  string
	}{
		{topic: "", want: ""},
		{topic: "/", want: ""},
		{topic: "/a", want: "a"},
		{topic: "a/", want: "a"},
		{topic: "/a/", want: "a"},
		{topic: "/a/b", want: "a/b"},
		{topic: "a/b/", want: "a/b"},
		{topic: "a/b", want: "a/b"},
		{topic: "/a/b/", want: "a/b"},
	} {
		t.Run(tt.topic, func(t *testing.T) {
			require.Equal(t, tt.want, TrimTopic(tt.topic))
		})
	}
}

func TestJoinTopic(t *testing.T) {
	for i, tt := range []struct {
		parts []string
		want  string
	}{
		// JoinTopic should trim empty parts
		{parts: []string{""}, want: ""},
		{parts: []string{"", ""}, want: ""},
		{parts: []string{"", "a"}, want: "a"},
		{parts: []string{"", "a", "", "b"}, want: "a/b"},
		{parts: []string{"a", "b", ""}, want: "a/b"},

		// JoinTopic should trim each individual part
		{parts: []string{"a", "/", "b"}, want: "a/b"},
		{parts: []string{"/a", "b"}, want: "a/b"},
		{parts: []string{"a/", "b"}, want: "a/b"},
		{parts: []string{"/a/", "b"}, want: "a/b"},
		{parts: []string{"/a/b", "c"}, want: "a/b/c"},
		{parts: []string{"a/b/", "c"}, want: "a/b/c"},
		{parts: []string{"a/b", "c"}, want: "a/b/c"},
		{parts: []string{"/a/b/", "c"}, want: "a/b/c"},
	} {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			require.Equal(t, tt.want, JoinTopic(tt.parts...))
		})
	}
}

func TestValidLevel(t *testing.T) {
	for _, tt := range []struct {
		level string
		want  bool
	}{
		{level: "", want: false},
		{level: "temp1", want: true},
		{level: "a/b", want: false},
		{level: "+", want: false},
		{level: "a#", want: false},
		{level: "avty_t", want: true},
	} {
		t.Run(tt.level, func(t *testing.T) {
			require.Equal(t, tt.want, ValidLevel(tt.level))
		})
	}
}

func TestValidTopicName(t *testing.T) {
	require.False(t, ValidTopicName(""))
	require.False(t, ValidTopicName("a/+/b"))
	require.False(t, ValidTopicName("a/#"))
	require.True(t, ValidTopicName("homeassistant/sensor/dev42/temp1/config"))
	require.True(t, ValidTopicName(strings.Repeat("a", MaxTopicLength)))
	require.False(t, ValidTopicName(strings.Repeat("a", MaxTopicLength+1)))
}
