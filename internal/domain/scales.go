package domain

// Predefined scales. Every Leit variant is derived from its document's two
// calibration anchors, never from the per-degree constant the document prints.
var (
	Kelvin  = mustScale(FromSlopeOffset(1, 0, "Kelvin"))
	Celsius = mustScale(FromSlopeOffset(1, 273.15, "Celsius"))

	// Fahrenheit: water freezes at 32°F (273.15 K) and boils at 212°F (373.15 K).
	Fahrenheit = mustScale(FromCalibrationPoints(32, 273.15, 212, 373.15, "Fahrenheit"))

	// LeitV1: 0 °Lt is absolute zero, 16 °Lt is the freezing point of water.
	LeitV1 = mustScale(FromCalibrationPoints(0, 0, 16, 273.15, "LeitV1"))

	// LeitV2 shares LeitV1's Kelvin anchors even though its Fahrenheit prose differs.
	LeitV2 = mustScale(FromCalibrationPoints(0, 0, 16, 273.15, "LeitV2"))

	// LeitV3: water freezes at -10 °Lt and boils at 116 °Lt. Its derived
	// absolute zero is -354.169 °Lt, not the -276.69 printed alongside it.
	LeitV3 = mustScale(FromCalibrationPoints(-10, 273.15, 116, 373.15, "LeitV3"))
)

// defaultAliases are short unit spellings, including the common "celcius" misspelling.
var defaultAliases = map[string]string{
	"lt":      "LeitV1",
	"leit":    "LeitV1",
	"k":       "Kelvin",
	"c":       "Celsius",
	"celcius": "Celsius",
	"f":       "Fahrenheit",
	"leit-v1": "LeitV1",
	"leit-v2": "LeitV2",
	"leit-v3": "LeitV3",
}

func mustScale(s LinearScale, err error) LinearScale {
	if err != nil {
		panic(err)
	}
	return s
}
