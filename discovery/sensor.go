package discovery

// Fields of the sensor and binary_sensor platforms.
const (
	FieldUnitOfMeasurement = "unit_of_meas"
	FieldForceUpdate       = "frc_upd"

	// FieldStateClass holds a hass.StateClass.
	FieldStateClass = "stat_cla"

	// FieldSuggestedDisplayPrecision is the number of decimals the frontend rounds to.
	FieldSuggestedDisplayPrecision = "sug_dsp_prc"

	// FieldOptions lists the allowed states of an "enum" sensor.
	FieldOptions = "opts"

	// FieldExpireMeasurementsAfter is encoded in whole seconds.
	FieldExpireMeasurementsAfter = "exp_after"

	// FieldAttributesTopic is the topic of a JSON object merged into the entity's attributes.
	FieldAttributesTopic = "json_attr_t"
)

// FieldOffDelay is only accepted by binary_sensor. It is encoded in whole seconds and Home Assistant reverts the state
// to off once it elapses.
const FieldOffDelay = "off_dly"
