package domain

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidScale is returned when a scale would have a non-positive or
	// non-finite slope, or a non-finite offset.
	ErrInvalidScale = errors.New("invalid scale")

	// ErrDegenerateCalibration is returned when both calibration points share
	// the same scale value, leaving the slope undefined.
	ErrDegenerateCalibration = errors.New("degenerate calibration")
)

// LinearScale is an affine map from a scale's value to Kelvin:
//
//	K = slope*value + offset
//
// The zero value is not a valid scale; construct one with [FromSlopeOffset]
// or [FromCalibrationPoints]. A LinearScale is immutable and safe to share.
type LinearScale struct {
	name   string
	slope  float64
	offset float64
}

// FromSlopeOffset builds a scale from Kelvin-per-unit and the Kelvin value at 0.
func FromSlopeOffset(slope, offset float64, name string) (LinearScale, error) {
	// !(slope > 0) also rejects NaN.
	if !(slope > 0) || math.IsInf(slope, 0) {
		return LinearScale{}, fmt.Errorf("scale %q: slope %g must be positive and finite: %w", name, slope, ErrInvalidScale)
	}
	if math.IsNaN(offset) || math.IsInf(offset, 0) {
		return LinearScale{}, fmt.Errorf("scale %q: offset %g must be finite: %w", name, offset, ErrInvalidScale)
	}
	return LinearScale{name: name, slope: slope, offset: offset}, nil
}

// FromCalibrationPoints derives a scale from two known (value, kelvin) pairs,
// e.g. the freezing and boiling points of water.
func FromCalibrationPoints(value1, kelvin1, value2, kelvin2 float64, name string) (LinearScale, error) {
	if value1 == value2 {
		return LinearScale{}, fmt.Errorf("scale %q: both calibration points at value %g: %w", name, value1, ErrDegenerateCalibration)
	}
	slope := (kelvin2 - kelvin1) / (value2 - value1)
	return FromSlopeOffset(slope, kelvin1-slope*value1, name)
}

// Name returns the identifier the scale was registered under.
func (s LinearScale) Name() string { return s.name }

// Slope returns Kelvin per unit of the scale.
func (s LinearScale) Slope() float64 { return s.slope }

// Offset returns the Kelvin value at 0 on the scale.
func (s LinearScale) Offset() float64 { return s.offset }

// AbsoluteZero returns the scale value that corresponds to 0 K.
func (s LinearScale) AbsoluteZero() float64 {
	return FromKelvin(0, s)
}

// Valid reports whether s was produced by one of the constructors.
func (s LinearScale) Valid() bool {
	return s.slope > 0
}

func (s LinearScale) String() string {
	return fmt.Sprintf("%s(K = %g*x + %g)", s.name, s.slope, s.offset)
}

// ToKelvin converts a value on scale to Kelvin. Non-finite input passes through.
func ToKelvin(value float64, scale LinearScale) float64 {
	return scale.slope*value + scale.offset
}

// FromKelvin converts a Kelvin value onto scale. The slope of a valid scale is
// positive, so this never divides by zero.
func FromKelvin(kelvin float64, scale LinearScale) float64 {
	return (kelvin - scale.offset) / scale.slope
}

// Convert converts value from one scale to another through Kelvin.
// Converting to the same scale returns value unchanged.
func Convert(value float64, from, to LinearScale) float64 {
	if from == to {
		return value
	}
	return FromKelvin(ToKelvin(value, from), to)
}

// ScaleConverter converts values between a fixed pair of scales.
type ScaleConverter struct {
	from LinearScale
	to   LinearScale
}

// NewScaleConverter binds a source and target scale.
func NewScaleConverter(from, to LinearScale) ScaleConverter {
	return ScaleConverter{from: from, to: to}
}

// Convert converts value from the source scale to the target scale.
func (c ScaleConverter) Convert(value float64) float64 {
	return Convert(value, c.from, c.to)
}

// Inverse returns the converter for the opposite direction.
func (c ScaleConverter) Inverse() ScaleConverter {
	return ScaleConverter{from: c.to, to: c.from}
}

// From returns the source scale.
func (c ScaleConverter) From() LinearScale { return c.from }

// To returns the target scale.
func (c ScaleConverter) To() LinearScale { return c.to }
