package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/NeuralTrust/QuoteGate/pkg/common"
	"github.com/NeuralTrust/QuoteGate/pkg/domain"
	"github.com/NeuralTrust/QuoteGate/pkg/infra/metrics"
	"github.com/NeuralTrust/QuoteGate/pkg/infra/metrics/metric_events"
	"github.com/NeuralTrust/QuoteGate/pkg/infra/prometheus"
	"github.com/NeuralTrust/QuoteGate/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	ErrorKindTimeout     = "timeout"
	ErrorKindUnavailable = "unavailable"
	ErrorKindInternal    = "internal"
)

type metricsMiddleware struct {
	logger *logrus.Logger
	worker metrics.Worker
}

func NewMetricsMiddleware(logger *logrus.Logger, worker metrics.Worker) Middleware {
	return &metricsMiddleware{
		logger: logger,
		worker: worker,
	}
}

// Middleware builds a trace event once the handler has written the
// response and hands it to the worker. Everything copied out of the fiber
// context is cloned since fiber reuses its buffers.
func (m *metricsMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		startTime := time.Now()
		c.Locals(common.LatencyContextKey, startTime)

		if prometheus.Config.EnableConnections {
			prometheus.Connections.WithLabelValues("active").Inc()
			defer prometheus.Connections.WithLabelValues("active").Dec()
		}

		nextErr := c.Next()

		evt := m.buildEvent(c, startTime, statusCode(c, nextErr))
		m.logger.WithFields(logrus.Fields{
			"trace_id":   evt.TraceID,
			"route":      evt.Route,
			"status":     evt.StatusCode,
			"latency_ms": evt.Latency,
		}).Debug("request completed")

		m.worker.Process(evt)
		return nextErr
	}
}

func (m *metricsMiddleware) buildEvent(c *fiber.Ctx, startTime time.Time, status int) *metric_events.Event {
	endTime := time.Now()

	evt := metric_events.NewTraceEvent()
	evt.StartTimestamp = startTime.Unix()
	evt.EndTimestamp = endTime.Unix()
	evt.Latency = endTime.Sub(startTime).Milliseconds()
	evt.TraceID, _ = c.Locals(common.TraceIdKey).(string)
	evt.Route = routeName(c)
	evt.Path = strings.Clone(c.Path())
	evt.Query = string(c.Request().URI().QueryString())
	evt.Method = strings.Clone(c.Method())
	evt.IP = strings.Clone(utils.ExtractIP(c))
	evt.StatusCode = status
	evt.RequestHeaders = copyHeaders(c.GetReqHeaders())
	evt.ResponseHeaders = copyHeaders(c.GetRespHeaders())

	userAgent := strings.Clone(c.Get(fiber.HeaderUserAgent))
	acceptLanguage := strings.Clone(c.Get(fiber.HeaderAcceptLanguage))
	if ua := utils.ParseUserAgent(userAgent, acceptLanguage); ua != nil {
		evt.Browser = ua.Browser
		evt.Device = ua.Device
		evt.Os = ua.OS
		evt.Locale = ua.Locale
	}

	if upstream, ok := c.Locals(common.UpstreamEventContextKey).(*metric_events.UpstreamEvent); ok {
		evt.Upstream = upstream
	}
	if err, ok := c.Locals(common.UpstreamErrorContextKey).(error); ok && err != nil {
		evt.Error = err.Error()
		evt.ErrorKind = errorKind(err)
	}
	return evt
}

func routeName(c *fiber.Ctx) string {
	if route, ok := c.Locals(common.RouteContextKey).(string); ok && route != "" {
		return route
	}
	return strings.Clone(strings.TrimPrefix(c.Route().Path, "/"))
}

func statusCode(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}

func errorKind(err error) string {
	switch {
	case domain.IsTimeoutError(err):
		return ErrorKindTimeout
	case domain.IsUnavailableError(err):
		return ErrorKindUnavailable
	default:
		return ErrorKindInternal
	}
}

func copyHeaders(headers map[string][]string) map[string][]string {
	result := make(map[string][]string, len(headers))
	for key, values := range headers {
		copyValues := make([]string, len(values))
		for i, v := range values {
			copyValues[i] = strings.Clone(v)
		}
		result[strings.Clone(key)] = copyValues
	}
	return result
}
