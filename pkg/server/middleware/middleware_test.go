package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NeuralTrust/QuoteGate/pkg/common"
	"github.com/NeuralTrust/QuoteGate/pkg/domain"
	"github.com/NeuralTrust/QuoteGate/pkg/infra/metrics/metric_events"
	"github.com/NeuralTrust/QuoteGate/pkg/infra/metrics/mocks"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestTransport_GetMiddlewares(t *testing.T) {
	transport := NewTransport(NewTraceMiddleware())
	transport.RegisterMiddleware(NewPanicRecoverMiddleware(silentLogger()))

	handlers := transport.GetMiddlewares()
	assert.Len(t, handlers, 2)
	for _, h := range handlers {
		_, ok := h.(fiber.Handler)
		assert.True(t, ok)
	}
}

func TestTraceMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(NewTraceMiddleware().Middleware())
	app.Get("/", func(c *fiber.Ctx) error {
		fromLocals, _ := c.Locals(common.TraceIdKey).(string)
		assert.Equal(t, fromLocals, TraceIDFromContext(c.UserContext()))
		return c.SendString(fromLocals)
	})

	t.Run("generates trace id", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
		require.NoError(t, err)
		traceID := resp.Header.Get(common.TraceIDHeader)
		_, parseErr := uuid.Parse(traceID)
		assert.NoError(t, parseErr)

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, traceID, string(body))
	})

	t.Run("reuses caller trace id", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodGet, "/", nil)
		req.Header.Set(common.TraceIDHeader, "caller-trace")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, "caller-trace", resp.Header.Get(common.TraceIDHeader))
	})

	t.Run("replaces oversized trace id", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodGet, "/", nil)
		req.Header.Set(common.TraceIDHeader, strings.Repeat("a", 200))
		resp, err := app.Test(req)
		require.NoError(t, err)
		_, parseErr := uuid.Parse(resp.Header.Get(common.TraceIDHeader))
		assert.NoError(t, parseErr)
	})
}

func TestPanicRecoverMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(NewPanicRecoverMiddleware(silentLogger()).Middleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("boom")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"error":"Internal server error"}`, string(body))
}

func TestMetricsMiddleware_Success(t *testing.T) {
	worker := &mocks.Worker{}
	var captured *metric_events.Event
	worker.On("Process", mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(0).(*metric_events.Event)
	}).Once()

	app := fiber.New()
	app.Use(NewTraceMiddleware().Middleware())
	app.Get("/random", NewMetricsMiddleware(silentLogger(), worker).Middleware(), func(c *fiber.Ctx) error {
		c.Locals(common.RouteContextKey, common.RouteRandom)
		c.Locals(common.UpstreamEventContextKey, metric_events.NewUpstreamEvent(
			"random", "https://api.chucknorris.io/jokes/random", 200, 30*time.Millisecond,
		))
		return c.Status(fiber.StatusOK).SendString(`{"value":"joke"}`)
	})

	req := httptest.NewRequest(fiber.MethodGet, "/random?x=1", nil)
	req.Header.Set(common.TraceIDHeader, "trace-42")
	req.Header.Set(fiber.HeaderXForwardedFor, "203.0.113.9")
	_, err := app.Test(req)
	require.NoError(t, err)

	worker.AssertExpectations(t)
	require.NotNil(t, captured)
	assert.Equal(t, "trace-42", captured.TraceID)
	assert.Equal(t, common.RouteRandom, captured.Route)
	assert.Equal(t, "/random", captured.Path)
	assert.Equal(t, "x=1", captured.Query)
	assert.Equal(t, fiber.MethodGet, captured.Method)
	assert.Equal(t, "203.0.113.9", captured.IP)
	assert.Equal(t, fiber.StatusOK, captured.StatusCode)
	require.NotNil(t, captured.Upstream)
	assert.Equal(t, "api.chucknorris.io", captured.Upstream.Target.Host)
	assert.False(t, captured.HasError())
}

func TestMetricsMiddleware_UpstreamError(t *testing.T) {
	worker := &mocks.Worker{}
	var captured *metric_events.Event
	worker.On("Process", mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(0).(*metric_events.Event)
	}).Once()

	app := fiber.New()
	app.Get("/search", NewMetricsMiddleware(silentLogger(), worker).Middleware(), func(c *fiber.Ctx) error {
		upstreamErr := domain.NewUpstreamError("search", "https://api.chucknorris.io/jokes/search", domain.ErrUpstreamTimeout, nil)
		c.Locals(common.UpstreamErrorContextKey, upstreamErr)
		return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{"error": upstreamErr.Error()})
	})

	_, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/search?query=kick", nil))
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, "search", captured.Route)
	assert.Equal(t, fiber.StatusGatewayTimeout, captured.StatusCode)
	assert.Equal(t, ErrorKindTimeout, captured.ErrorKind)
	assert.True(t, captured.HasError())
}

func TestMetricsMiddleware_FiberError(t *testing.T) {
	worker := &mocks.Worker{}
	var captured *metric_events.Event
	worker.On("Process", mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(0).(*metric_events.Event)
	}).Once()

	app := fiber.New()
	app.Get("/random", NewMetricsMiddleware(silentLogger(), worker).Middleware(), func(c *fiber.Ctx) error {
		return fiber.ErrServiceUnavailable
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/random", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	require.NotNil(t, captured)
	assert.Equal(t, fiber.StatusServiceUnavailable, captured.StatusCode)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, ErrorKindTimeout, errorKind(domain.ErrUpstreamTimeout))
	assert.Equal(t, ErrorKindUnavailable, errorKind(domain.NewUpstreamError("random", "u", domain.ErrUpstreamUnavailable, nil)))
	assert.Equal(t, ErrorKindInternal, errorKind(assert.AnError))
}
