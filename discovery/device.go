package discovery

import (
	"strings"

	"github.com/nlowe/hamqtt/mqtt"
)

// Constants for device fields and other fields shared by all platforms. The state and command field names are also
// used as the data topic suffixes for those topics.
const (
	FieldStateTopic   = "stat_t"
	FieldCommandTopic = "cmd_t"

	FieldDevice         = "dev"
	FieldOrigin         = "o"
	FieldEntityCategory = "ent_cat"
	FieldIcon           = "ic"
	FieldPicture        = "picture"
	FieldUniqueID       = "uniq_id"

	FieldPayloadOn  = "pl_on"
	FieldPayloadOff = "pl_off"

	FieldOnCommandType = "on_cmd_type"

	FieldOptimistic = "opt"

	// IDSep is the separator used to separate various parts of a device ID. It is also used as a replacement for tokens
	// that are not allowed in an ID string.
	IDSep = "__"
)

var (
	// IDSanitizer is a strings.Replacer that sanitizes a device ID for use as a single MQTT Topic level.
	IDSanitizer = strings.NewReplacer(
		" ", IDSep,
		":", IDSep,
		".", IDSep,
		"!", IDSep,
		"?", IDSep,
		mqtt.TopicSeparator, IDSep,
		mqtt.SingleLevelWildcard, IDSep,
		mqtt.MultiLevelWildcard, IDSep,
	)
)
