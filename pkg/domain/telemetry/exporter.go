package telemetry

import (
	"context"

	"github.com/NeuralTrust/QuoteGate/pkg/infra/metrics/metric_events"
)

// Exporter ships trace events to an external sink. Registered instances
// are templates; WithSettings returns a configured copy.
type Exporter interface {
	Name() string
	ValidateConfig(settings map[string]interface{}) error
	Handle(ctx context.Context, evt *metric_events.Event) error
	WithSettings(settings map[string]interface{}) (Exporter, error)
	Close()
}
