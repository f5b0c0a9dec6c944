package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/leit-etl/internal/domain"
)

// ReadingTransformer implements Transformer using the domain conversion
// functions against a fixed registry, target list, and policy.
type ReadingTransformer struct {
	registry *domain.Registry
	targets  []domain.LinearScale
	policy   domain.Policy
	logger   *slog.Logger
}

// NewTransformer creates a ReadingTransformer. Readings without their own
// target are converted to every scale in targets, in order.
func NewTransformer(registry *domain.Registry, targets []domain.LinearScale, policy domain.Policy, logger *slog.Logger) *ReadingTransformer {
	return &ReadingTransformer{
		registry: registry,
		targets:  targets,
		policy:   policy,
		logger:   logger,
	}
}

func (t *ReadingTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.ConvertedReading, error) {
	reading, err := domain.ParseRawEvent(raw, t.registry)
	if err != nil {
		return domain.ConvertedReading{}, err
	}

	out, err := domain.ConvertReading(reading, t.targets, t.policy)
	if err != nil {
		return domain.ConvertedReading{}, err
	}

	t.logger.Debug("reading converted",
		"id", out.ID,
		"sensor_id", out.SensorID,
		"scale", out.Input.Scale,
		"value", out.Input.Value,
		"kelvin", out.Kelvin,
	)
	return out, nil
}
