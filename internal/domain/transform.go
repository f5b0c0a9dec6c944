package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	// ErrNonFiniteValue is returned by ConvertReading for NaN or infinite input.
	ErrNonFiniteValue = errors.New("non-finite value")

	// ErrBelowAbsoluteZero is returned by ConvertReading when a reading maps
	// below 0 K and the policy does not allow it.
	ErrBelowAbsoluteZero = errors.New("below absolute zero")
)

// absoluteZeroSlack tolerates rounding for readings that sit exactly at 0 K.
const absoluteZeroSlack = 1e-9

// ParseRawEvent deserializes a RawEvent's value into a Reading, resolving
// units and the optional target against reg.
func ParseRawEvent(raw RawEvent, reg *Registry) (Reading, error) {
	var rec RawReading
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return Reading{}, fmt.Errorf("parse raw event: %w: %w", ErrMalformedReading, err)
	}

	t, err := parseRecordTemperature(rec, reg)
	if err != nil {
		return Reading{}, fmt.Errorf("parse raw event: %w", err)
	}

	reading := Reading{
		SensorID:    strings.TrimSpace(rec.SensorID),
		Temperature: t,
		ObservedAt:  raw.Timestamp,
		RawPayload:  raw.Value,
	}
	if strings.TrimSpace(rec.To) != "" {
		target, err := reg.Resolve(rec.To)
		if err != nil {
			return Reading{}, fmt.Errorf("parse raw event: target: %w", err)
		}
		reading.Targets = []LinearScale{target}
	}
	return reading, nil
}

// parseRecordTemperature accepts either the combined "reading" string or the
// separate value and unit fields, but not both.
func parseRecordTemperature(rec RawReading, reg *Registry) (Temperature, error) {
	switch {
	case rec.Reading != "" && rec.Value != nil:
		return Temperature{}, fmt.Errorf("both reading and value set: %w", ErrMalformedReading)
	case rec.Reading != "":
		return ParseTemperature(rec.Reading, reg)
	case rec.Value != nil:
		if strings.TrimSpace(rec.Unit) == "" {
			return Temperature{}, fmt.Errorf("value without unit: %w", ErrMalformedReading)
		}
		scale, err := reg.Resolve(rec.Unit)
		if err != nil {
			return Temperature{}, err
		}
		return Temperature{Value: *rec.Value, Scale: scale}, nil
	default:
		return Temperature{}, fmt.Errorf("no reading or value: %w", ErrMalformedReading)
	}
}

// ConvertReading converts a reading to every target scale, or to the
// reading's own target when it names one. The policy decides which inputs
// are acceptable; the conversion arithmetic itself never fails.
func ConvertReading(r Reading, targets []LinearScale, policy Policy) (ConvertedReading, error) {
	v := r.Temperature.Value
	k := r.Temperature.Kelvin()
	if !isFinite(v) || !isFinite(k) {
		return ConvertedReading{}, fmt.Errorf("sensor %q: %g %s: %w", r.SensorID, v, r.Temperature.Scale.Name(), ErrNonFiniteValue)
	}
	if !policy.AllowBelowAbsoluteZero && k < -absoluteZeroSlack {
		return ConvertedReading{}, fmt.Errorf("sensor %q: %g %s is %g K: %w", r.SensorID, v, r.Temperature.Scale.Name(), k, ErrBelowAbsoluteZero)
	}

	if len(r.Targets) > 0 {
		targets = r.Targets
	}
	conversions := make([]ScaleValue, 0, len(targets))
	for _, to := range targets {
		conversions = append(conversions, ScaleValue{
			Scale: to.Name(),
			Value: Round(Convert(v, r.Temperature.Scale, to), policy.Decimals),
		})
	}

	return ConvertedReading{
		ID:          generateID(r.SensorID, r.Temperature.Scale.Name(), v, r.ObservedAt),
		SensorID:    r.SensorID,
		Input:       ScaleValue{Scale: r.Temperature.Scale.Name(), Value: v},
		Kelvin:      Round(k, policy.Decimals),
		Conversions: conversions,
		ObservedAt:  r.ObservedAt.UTC(),
		ProcessedAt: clock.Now().UTC(),
	}, nil
}

// generateID produces a deterministic ID from the reading's key fields, so
// replaying the same message yields the same ID downstream.
func generateID(sensorID, scale string, value float64, observedAt time.Time) string {
	input := fmt.Sprintf("%s|%s|%g|%s", sensorID, scale, value, observedAt.UTC().Format(time.RFC3339Nano))
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if scale == "" {
		return short
	}
	return strings.ToLower(scale) + "-" + short
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
