package dependency_container

import (
	"fmt"

	"github.com/NeuralTrust/QuoteGate/pkg/config"
	"github.com/NeuralTrust/QuoteGate/pkg/domain/quote"
	"github.com/NeuralTrust/QuoteGate/pkg/domain/telemetry"
	handlers "github.com/NeuralTrust/QuoteGate/pkg/handlers/http"
	"github.com/NeuralTrust/QuoteGate/pkg/infra/httpx"
	"github.com/NeuralTrust/QuoteGate/pkg/infra/metrics"
	"github.com/NeuralTrust/QuoteGate/pkg/infra/prometheus"
	infraQuote "github.com/NeuralTrust/QuoteGate/pkg/infra/quote"
	infraTelemetry "github.com/NeuralTrust/QuoteGate/pkg/infra/telemetry"
	"github.com/NeuralTrust/QuoteGate/pkg/infra/telemetry/kafka"
	"github.com/NeuralTrust/QuoteGate/pkg/server/middleware"
	"github.com/NeuralTrust/QuoteGate/pkg/server/router"
	"github.com/NeuralTrust/QuoteGate/pkg/version"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const circuitBreakerName = "quote-api"

type Container struct {
	HTTPClient               httpx.Client
	QuoteClient              quote.Client
	MetricsWorker            metrics.Worker
	TelemetryExporterLocator *infraTelemetry.ExporterLocator
	Exporters                []telemetry.Exporter
	HandlerTransport         handlers.HandlerTransport
	PanicRecoverMiddleware   middleware.Middleware
	TraceMiddleware          middleware.Middleware
	MetricsMiddleware        middleware.Middleware
	ProxyRouter              router.ServerRouter
}

type ContainerDI struct {
	Cfg    *config.Config
	Logger *logrus.Logger
	// HTTPClient replaces the fasthttp client when set.
	HTTPClient httpx.Client
}

func NewContainer(di ContainerDI) (*Container, error) {
	cfg := di.Cfg
	logger := di.Logger

	httpClient := di.HTTPClient
	if httpClient == nil {
		httpClient = httpx.NewFastHTTPClient(
			httpx.WithTimeout(cfg.Upstream.Timeout),
			httpx.WithMaxConnsPerHost(cfg.Upstream.MaxConnsPerHost),
			httpx.WithMaxResponseBodySize(cfg.Upstream.MaxResponseBodySize),
			httpx.WithInsecureSkipVerify(cfg.Upstream.InsecureSkipVerify),
		)
	}

	userAgent := cfg.Upstream.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}

	var quoteOpts []infraQuote.Option
	if cfg.Upstream.CircuitBreaker.Enabled {
		breaker := httpx.NewCircuitBreaker(
			circuitBreakerName,
			cfg.Upstream.CircuitBreaker.OpenTimeout,
			cfg.Upstream.CircuitBreaker.MaxFailures,
			func(name string, from, to gobreaker.State) {
				logger.WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("circuit breaker state changed")
				prometheus.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			},
		)
		quoteOpts = append(quoteOpts, infraQuote.WithCircuitBreaker(breaker))
	}

	quoteClient, err := infraQuote.NewClient(infraQuote.Config{
		BaseURL:     cfg.Upstream.BaseURL,
		RandomPath:  cfg.Upstream.RandomPath,
		SearchPath:  cfg.Upstream.SearchPath,
		SearchParam: cfg.Upstream.SearchParam,
		UserAgent:   userAgent,
		Timeout:     cfg.Upstream.Timeout,
		Compression: cfg.Upstream.Compression,
	}, httpClient, logger, quoteOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create quote client: %w", err)
	}

	exporterLocator := infraTelemetry.NewExporterLocator(
		infraTelemetry.WithExporter(kafka.ExporterName, kafka.NewKafkaExporter()),
	)
	var exporters []telemetry.Exporter
	if cfg.Telemetry.Enabled {
		exporters, err = exporterLocator.Build(cfg.Telemetry.Exporters)
		if err != nil {
			return nil, fmt.Errorf("failed to build telemetry exporters: %w", err)
		}
	}

	metricsWorker := metrics.NewWorker(
		logger,
		metrics.WithQueueSize(cfg.Telemetry.QueueSize),
		metrics.WithExporters(exporters...),
	)

	handlerTransport := &handlers.HandlerTransportDTO{
		RandomQuoteHandler: handlers.NewRandomQuoteHandler(logger, quoteClient),
		SearchQuoteHandler: handlers.NewSearchQuoteHandler(logger, quoteClient),
		GetVersionHandler:  handlers.NewGetVersionHandler(logger),
	}

	panicRecoverMiddleware := middleware.NewPanicRecoverMiddleware(logger)
	traceMiddleware := middleware.NewTraceMiddleware()
	metricsMiddleware := middleware.NewMetricsMiddleware(logger, metricsWorker)

	proxyRouter := router.NewProxyRouter(
		middleware.NewTransport(panicRecoverMiddleware, traceMiddleware),
		middleware.NewTransport(metricsMiddleware),
		handlerTransport,
		cfg,
	)

	return &Container{
		HTTPClient:               httpClient,
		QuoteClient:              quoteClient,
		MetricsWorker:            metricsWorker,
		TelemetryExporterLocator: exporterLocator,
		Exporters:                exporters,
		HandlerTransport:         handlerTransport,
		PanicRecoverMiddleware:   panicRecoverMiddleware,
		TraceMiddleware:          traceMiddleware,
		MetricsMiddleware:        metricsMiddleware,
		ProxyRouter:              proxyRouter,
	}, nil
}
