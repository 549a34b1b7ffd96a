package dependency_container

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NeuralTrust/QuoteGate/pkg/common"
	"github.com/NeuralTrust/QuoteGate/pkg/config"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
)

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func baseConfig(baseURL string) *config.Config {
	return &config.Config{
		Upstream: config.UpstreamConfig{
			BaseURL:     baseURL,
			RandomPath:  common.DefaultRandomPath,
			SearchPath:  common.DefaultSearchPath,
			SearchParam: common.DefaultSearchParam,
			Timeout:     200 * time.Millisecond,
		},
		Telemetry: config.TelemetryConfig{QueueSize: 10},
	}
}

func TestNewContainer_EndToEnd(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case common.DefaultRandomPath:
			rw.Header().Set("Content-Type", "application/json")
			_, _ = rw.Write([]byte(`{"value":"random joke"}`))
		case common.DefaultSearchPath:
			assert.Equal(t, "kick", req.URL.Query().Get("query"))
			rw.Header().Set("Content-Type", "application/json")
			_, _ = rw.Write([]byte(`{"total":2}`))
		default:
			rw.WriteHeader(http.StatusNotFound)
		}
	}))
	defer upstream.Close()

	cfg := baseConfig(upstream.URL)
	cfg.Upstream.CircuitBreaker = config.CircuitBreakerConfig{Enabled: true, MaxFailures: 3, OpenTimeout: time.Second}

	container, err := NewContainer(ContainerDI{Cfg: cfg, Logger: silentLogger()})
	require.NoError(t, err)
	container.MetricsWorker.StartWorkers(1)
	defer container.MetricsWorker.Shutdown()

	app := fiber.New()
	require.NoError(t, container.ProxyRouter.BuildRoutes(app))

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/random", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "random joke", fastjson.GetString(body, "value"))

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/search?query=kick", nil), -1)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, fastjson.GetInt(body, "total"))
}

func TestNewContainer_UpstreamTimeout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		select {
		case <-req.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer upstream.Close()

	container, err := NewContainer(ContainerDI{Cfg: baseConfig(upstream.URL), Logger: silentLogger()})
	require.NoError(t, err)
	defer container.MetricsWorker.Shutdown()

	app := fiber.New()
	require.NoError(t, container.ProxyRouter.BuildRoutes(app))

	start := time.Now()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/random", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewContainer_Errors(t *testing.T) {
	_, err := NewContainer(ContainerDI{Cfg: baseConfig("ftp//nope"), Logger: silentLogger()})
	assert.ErrorContains(t, err, "failed to create quote client")

	cfg := baseConfig("https://api.chucknorris.io")
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Exporters = []config.ExporterConfig{{Name: "unknown"}}
	_, err = NewContainer(ContainerDI{Cfg: cfg, Logger: silentLogger()})
	assert.ErrorContains(t, err, "unknown exporter: unknown")

	cfg.Telemetry.Exporters = []config.ExporterConfig{{Name: "kafka", Settings: map[string]interface{}{"host": "localhost"}}}
	_, err = NewContainer(ContainerDI{Cfg: cfg, Logger: silentLogger()})
	assert.ErrorContains(t, err, "kafka port is required")
}

func TestNewContainer_TelemetryDisabledIgnoresExporters(t *testing.T) {
	cfg := baseConfig("https://api.chucknorris.io")
	cfg.Telemetry.Exporters = []config.ExporterConfig{{Name: "unknown"}}

	container, err := NewContainer(ContainerDI{Cfg: cfg, Logger: silentLogger()})
	require.NoError(t, err)
	assert.Empty(t, container.Exporters)
	assert.NotNil(t, container.TelemetryExporterLocator)
	container.MetricsWorker.Shutdown()
}
