package discovery

// Constants for the light platform
const (
	FieldSupportedColorModes = "sup_clrm"

	FieldBrightnessCommandTopic = "bri_cmd_t"
	FieldBrightnessStateTopic   = "bri_stat_t"
	FieldBrightnessScale        = "bri_scl"

	FieldColorTemperatureCommandTopic = "clr_temp_cmd_t"
	FieldColorTemperatureStateTopic   = "clr_temp_stat_t"
	FieldColorTemperatureInKelvin     = "clr_temp_k"
	FieldMinKelvin                    = "min_k"
	FieldMaxKelvin                    = "max_k"

	FieldRGBCommandTopic = "rgb_cmd_t"
	FieldRGBStateTopic   = "rgb_stat_t"
)
