package telemetry

import (
	"fmt"

	"github.com/NeuralTrust/QuoteGate/pkg/config"
	"github.com/NeuralTrust/QuoteGate/pkg/domain/telemetry"
)

type ExporterLocator struct {
	exporters map[string]telemetry.Exporter
}

func NewExporterLocator(opts ...ExporterLocatorOption) *ExporterLocator {
	el := &ExporterLocator{
		exporters: make(map[string]telemetry.Exporter),
	}
	for _, opt := range opts {
		opt(el)
	}
	return el
}

func (p *ExporterLocator) GetExporter(exporter config.ExporterConfig) (telemetry.Exporter, error) {
	base, ok := p.exporters[exporter.Name]
	if !ok {
		return nil, fmt.Errorf("unknown exporter: %s", exporter.Name)
	}
	if err := base.ValidateConfig(exporter.Settings); err != nil {
		return nil, err
	}
	provider, err := base.WithSettings(exporter.Settings)
	if err != nil {
		return nil, err
	}
	return provider, nil
}

func (p *ExporterLocator) ValidateExporter(exporter config.ExporterConfig) error {
	base, ok := p.exporters[exporter.Name]
	if !ok {
		return fmt.Errorf("unknown exporter: %s", exporter.Name)
	}
	return base.ValidateConfig(exporter.Settings)
}

// Build configures every exporter in order. Exporters built before a
// failure are closed.
func (p *ExporterLocator) Build(exporters []config.ExporterConfig) ([]telemetry.Exporter, error) {
	built := make([]telemetry.Exporter, 0, len(exporters))
	for _, dto := range exporters {
		exp, err := p.GetExporter(dto)
		if err != nil {
			for _, b := range built {
				b.Close()
			}
			return nil, fmt.Errorf("exporter %s: %w", dto.Name, err)
		}
		built = append(built, exp)
	}
	return built, nil
}
