package discovery

// Constants for component (entity) discovery fields.
const (
	FieldName        = "name"
	FieldObjectID    = "obj_id"
	FieldDeviceClass = "dev_cla"

	// FieldAvailabilityTopic doubles as the data topic suffix entities publish their availability on.
	FieldAvailabilityTopic = "avty_t"
)
