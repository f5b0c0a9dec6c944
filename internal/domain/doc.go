// Package domain converts temperatures between linear scales, including three
// mutually inconsistent definitions of the Leit (°Lt) scale.
//
// # Scale Model
//
// Every scale is an affine map to Kelvin:
//
//	K = slope*value + offset
//
// with slope > 0. A scale is built either from its slope and offset
// ([FromSlopeOffset]) or from two calibration points ([FromCalibrationPoints]):
//
//	slope  = (k2 - k1) / (v2 - v1)
//	offset = k1 - slope*v1
//
// Conversions always pivot through Kelvin ([Convert]), so adding a scale only
// requires its relation to Kelvin, never a formula for each existing scale.
//
// # Leit Definitions
//
// The Leit documents disagree on zero points, anchors and per-degree
// constants, and some disagree with themselves. Each version is registered
// as its own scale, built from the document's freezing/boiling anchors:
//
//	LeitV1: 0 °Lt = 0 K, 16 °Lt = 273.15 K          slope 17.071875, offset 0
//	LeitV2: same Kelvin anchors as LeitV1           identical scale, distinct name
//	LeitV3: -10 °Lt = 273.15 K, 116 °Lt = 373.15 K  slope 0.793650..., offset 281.0865...
//
// Figures printed in the documents but not implied by their anchors are
// treated as informational:
//
//	LeitV1 boiling point printed as 22.4700209 °Lt; the anchors give 21.8575874.
//	LeitV3 absolute zero printed as -276.69 °Lt; the anchors give -354.169.
//
// [LinearScale.AbsoluteZero] reports the derived figure for any scale.
//
// # Unit Names
//
// [Registry] lookups fold case, apply NFKC normalization and drop a leading
// degree sign, so "℃", "°C", "c" and "celsius" resolve to [Celsius]. The
// default registry adds the aliases lt and leit (LeitV1), k, c, celcius and f.
//
// Names and aliases must be usable as the unit of a reading string: after
// normalization they start with a letter and contain only letters, digits,
// '_' and '-'. Names that read as an exponent, such as "e5", are refused.
// [NewRegistry], [Registry.WithAliases] and [Registry.Extend] return
// [ErrInvalidScale] otherwise.
//
// # Readings
//
// The streaming service carries readings as JSON. A reading is either a
// value with a unit suffix or a separate value and unit:
//
//	{"sensor_id": "bench-3", "reading": "16Lt"}
//	{"sensor_id": "bench-3", "value": -40, "unit": "F", "to": "LeitV3"}
//
// [ConvertReading] applies a caller [Policy]: non-finite values are always
// rejected, and readings below 0 K (with 1e-9 K of slack) are rejected unless
// allowed. The engine functions themselves never reject a value.
//
// # ID Generation
//
// Reading IDs are deterministic SHA-256 hashes of sensor|scale|value|time,
// prefixed with the lower-cased input scale name. See [generateID].
package domain
