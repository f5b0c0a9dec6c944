package domain

import (
	"context"
	"time"
)

// RawReading is the JSON structure published to the source topic. A reading
// is given either as a single string with a unit suffix ("16Lt") or as a
// separate value and unit.
type RawReading struct {
	SensorID string   `json:"sensor_id"`
	Reading  string   `json:"reading,omitempty"` // e.g. "16Lt", "0 C", "-40°F"
	Value    *float64 `json:"value,omitempty"`
	Unit     string   `json:"unit,omitempty"`
	To       string   `json:"to,omitempty"` // optional single target scale
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Reading is a parsed RawReading.
type Reading struct {
	SensorID    string
	Temperature Temperature
	// Targets overrides the configured target scales when non-empty.
	Targets    []LinearScale
	ObservedAt time.Time
	RawPayload []byte
}

// ScaleValue is a value tagged with the name of its scale.
type ScaleValue struct {
	Scale string  `json:"scale"`
	Value float64 `json:"value"`
}

// ConvertedReading is the enriched reading written to the sink topic.
type ConvertedReading struct {
	ID          string       `json:"id"`
	SensorID    string       `json:"sensor_id,omitempty"`
	Input       ScaleValue   `json:"input"`
	Kelvin      float64      `json:"kelvin"`
	Conversions []ScaleValue `json:"conversions"`
	ObservedAt  time.Time    `json:"observed_at"`
	ProcessedAt time.Time    `json:"processed_at"`
}

// Policy is the caller-side acceptance policy applied by ConvertReading.
// The conversion functions themselves never reject a value.
type Policy struct {
	// AllowBelowAbsoluteZero accepts readings whose Kelvin value is negative.
	AllowBelowAbsoluteZero bool
	// Decimals rounds output values; negative leaves them unrounded.
	Decimals int
}

// DefaultPolicy rejects sub-absolute-zero readings and does not round.
func DefaultPolicy() Policy {
	return Policy{Decimals: -1}
}
