package domain

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrMalformedReading is returned when a reading cannot be parsed.
var ErrMalformedReading = errors.New("malformed reading")

// readingRe matches "<number><unit>" with optional whitespace between,
// e.g. "16Lt", "0 C", "-40°F", "373.15K", "1.2e2 LeitV3".
var readingRe = regexp.MustCompile(`^([+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?)\s*(°?\s*[\pL][\pL\d_-]*)$`)

// unitNameRe is the unit part of readingRe without the degree sign.
var unitNameRe = regexp.MustCompile(`^[\pL][\pL\d_-]*$`)

// exponentRe matches a unit that would read as the exponent of the value:
// "2e5" is a number missing its unit, not 2 of scale "e5".
var exponentRe = regexp.MustCompile(`^[eE][+-]?\d`)

// validUnitName reports whether a normalized scale key can appear as the unit
// of a reading string.
func validUnitName(key string) bool {
	return unitNameRe.MatchString(key) && !exponentRe.MatchString(key)
}

// Temperature is a value on a particular scale.
type Temperature struct {
	Value float64
	Scale LinearScale
}

// Kelvin returns t in Kelvin.
func (t Temperature) Kelvin() float64 {
	return ToKelvin(t.Value, t.Scale)
}

// In returns t converted to scale.
func (t Temperature) In(scale LinearScale) Temperature {
	return Temperature{Value: Convert(t.Value, t.Scale, scale), Scale: scale}
}

func (t Temperature) String() string {
	return strconv.FormatFloat(t.Value, 'g', -1, 64) + " " + t.Scale.Name()
}

// ParseTemperature parses a value with a unit suffix, resolving the unit
// against reg. Compatibility characters such as "℃" and "℉" are accepted.
func ParseTemperature(s string, reg *Registry) (Temperature, error) {
	in := strings.TrimSpace(norm.NFKC.String(s))
	m := readingRe.FindStringSubmatch(in)
	if m == nil {
		return Temperature{}, fmt.Errorf("%q: want a value with a unit, e.g. \"16Lt\" or \"0 C\": %w", s, ErrMalformedReading)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Temperature{}, fmt.Errorf("%q: %w", s, ErrMalformedReading)
	}
	unit := strings.ReplaceAll(m[2], " ", "")
	if exponentRe.MatchString(strings.TrimPrefix(unit, "°")) {
		return Temperature{}, fmt.Errorf("%q: exponent without a unit: %w", s, ErrMalformedReading)
	}
	scale, err := reg.Resolve(unit)
	if err != nil {
		return Temperature{}, err
	}
	return Temperature{Value: v, Scale: scale}, nil
}

// Round rounds x to the given number of decimal places. A negative count
// leaves x untouched.
func Round(x float64, decimals int) float64 {
	if decimals < 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	p := math.Pow10(decimals)
	r := math.Round(x*p) / p
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return x
	}
	return r
}
