package http

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NeuralTrust/QuoteGate/pkg/common"
	"github.com/NeuralTrust/QuoteGate/pkg/domain"
	"github.com/NeuralTrust/QuoteGate/pkg/domain/quote"
	"github.com/NeuralTrust/QuoteGate/pkg/domain/quote/mocks"
	"github.com/NeuralTrust/QuoteGate/pkg/infra/metrics/metric_events"
	"github.com/NeuralTrust/QuoteGate/pkg/version"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
)

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestApp(client quote.Client) *fiber.App {
	logger := silentLogger()
	app := fiber.New()
	app.Get("/random", NewRandomQuoteHandler(logger, client).Handle)
	app.Get("/search", NewSearchQuoteHandler(logger, client).Handle)
	app.Get("/version", NewGetVersionHandler(logger).Handle)
	return app
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(data)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestRandomQuoteHandler_RelaysUpstream(t *testing.T) {
	payload := `{"categories":[],"id":"x1","value":"Chuck Norris can slam a revolving door."}`
	client := &mocks.Client{}
	client.On("Random", mock.Anything).Return(&quote.Response{
		StatusCode: http.StatusOK,
		Header: http.Header{
			"Content-Type":      []string{"application/json;charset=UTF-8"},
			"X-Upstream-Id":     []string{"abc"},
			"Connection":        []string{"keep-alive, X-Hop"},
			"X-Hop":             []string{"drop me"},
			"Transfer-Encoding": []string{"chunked"},
		},
		Body:    []byte(payload),
		URL:     "https://api.chucknorris.io/jokes/random",
		Latency: 20 * time.Millisecond,
	}, nil).Once()

	resp, body := doRequest(t, newTestApp(client), httptest.NewRequest(fiber.MethodGet, "/random", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, payload, string(body))
	assert.Equal(t, "application/json;charset=UTF-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "abc", resp.Header.Get("X-Upstream-Id"))
	assert.Empty(t, resp.Header.Get("X-Hop"))
	client.AssertExpectations(t)
}

func TestRandomQuoteHandler_RelaysUpstreamErrorStatus(t *testing.T) {
	client := &mocks.Client{}
	client.On("Random", mock.Anything).Return(&quote.Response{
		StatusCode: http.StatusServiceUnavailable,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(`{"status":503}`),
	}, nil)

	resp, body := doRequest(t, newTestApp(client), httptest.NewRequest(fiber.MethodGet, "/random", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, `{"status":503}`, string(body))
}

func TestQuoteHandlers_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "timeout",
			err:        domain.NewUpstreamError("random", "https://api.chucknorris.io/jokes/random", domain.ErrUpstreamTimeout, context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantError:  domain.ErrUpstreamTimeout.Error(),
		},
		{
			name:       "transport failure",
			err:        domain.NewUpstreamError("random", "https://api.chucknorris.io/jokes/random", domain.ErrUpstreamUnavailable, assert.AnError),
			wantStatus: http.StatusBadGateway,
			wantError:  domain.ErrUpstreamUnavailable.Error(),
		},
		{
			name:       "unexpected",
			err:        assert.AnError,
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mocks.Client{}
			client.On("Random", mock.Anything).Return(nil, tt.err)
			client.On("Search", mock.Anything, "kick").Return(nil, tt.err)
			app := newTestApp(client)

			for _, target := range []string{"/random", "/search?query=kick"} {
				resp, body := doRequest(t, app, httptest.NewRequest(fiber.MethodGet, target, nil))
				assert.Equal(t, tt.wantStatus, resp.StatusCode, target)
				assert.Equal(t, tt.wantError, fastjson.GetString(body, "error"), target)
			}
		})
	}
}

func TestSearchQuoteHandler_ForwardsQuery(t *testing.T) {
	client := &mocks.Client{}
	client.On("Search", mock.Anything, "round house").Return(&quote.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(`{"total":1,"result":[{"value":"kick"}]}`),
	}, nil).Once()

	resp, body := doRequest(t, newTestApp(client), httptest.NewRequest(fiber.MethodGet, "/search?query=round+house&other=1", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, fastjson.GetInt(body, "total"))
	client.AssertExpectations(t)
}

func TestSearchQuoteHandler_MissingQuery(t *testing.T) {
	for _, target := range []string{"/search", "/search?query=", "/search?query=%20%20"} {
		client := &mocks.Client{}
		resp, body := doRequest(t, newTestApp(client), httptest.NewRequest(fiber.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, target)
		assert.Equal(t, domain.ErrMissingQuery.Error(), fastjson.GetString(body, "error"))
		client.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	}
}

func TestRelay_Compression(t *testing.T) {
	plain := []byte(`{"value":"compressed joke"}`)
	compressed := gzipBytes(t, plain)

	tests := []struct {
		name           string
		acceptEncoding string
		wantBody       []byte
		wantEncoding   string
	}{
		{name: "caller accepts gzip", acceptEncoding: "gzip, br", wantBody: compressed, wantEncoding: "gzip"},
		{name: "caller does not accept", acceptEncoding: "", wantBody: plain, wantEncoding: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mocks.Client{}
			client.On("Random", mock.Anything).Return(&quote.Response{
				StatusCode: http.StatusOK,
				Header: http.Header{
					"Content-Type":     []string{"application/json"},
					"Content-Encoding": []string{"gzip"},
				},
				Body: compressed,
			}, nil)

			req := httptest.NewRequest(fiber.MethodGet, "/random", nil)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			resp, body := doRequest(t, newTestApp(client), req)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.wantBody, body)
			assert.Equal(t, tt.wantEncoding, resp.Header.Get("Content-Encoding"))
		})
	}
}

func TestRelay_UndecodableBodyIsRelayedAsReceived(t *testing.T) {
	client := &mocks.Client{}
	client.On("Random", mock.Anything).Return(&quote.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Encoding": []string{"gzip"}},
		Body:       []byte("definitely not gzip"),
	}, nil)

	resp, body := doRequest(t, newTestApp(client), httptest.NewRequest(fiber.MethodGet, "/random", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "definitely not gzip", string(body))
	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
}

func TestHandlers_SetTelemetryLocals(t *testing.T) {
	client := &mocks.Client{}
	client.On("Random", mock.Anything).Return(&quote.Response{
		StatusCode: http.StatusOK,
		Body:       []byte(`{}`),
		URL:        "https://api.chucknorris.io/jokes/random",
		Latency:    15 * time.Millisecond,
	}, nil)

	var upstream *metric_events.UpstreamEvent
	var route string
	app := fiber.New()
	app.Get("/random", func(c *fiber.Ctx) error {
		err := c.Next()
		upstream, _ = c.Locals(common.UpstreamEventContextKey).(*metric_events.UpstreamEvent)
		route, _ = c.Locals(common.RouteContextKey).(string)
		return err
	}, NewRandomQuoteHandler(silentLogger(), client).Handle)

	_, _ = doRequest(t, app, httptest.NewRequest(fiber.MethodGet, "/random", nil))
	assert.Equal(t, common.RouteRandom, route)
	require.NotNil(t, upstream)
	assert.Equal(t, "random", upstream.Operation)
	assert.Equal(t, int64(15), upstream.Latency)
	assert.Equal(t, "/jokes/random", upstream.Target.Path)
}

func TestGetVersionHandler(t *testing.T) {
	resp, body := doRequest(t, newTestApp(&mocks.Client{}), httptest.NewRequest(fiber.MethodGet, "/version", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, version.Version, fastjson.GetString(body, "version"))
	assert.Equal(t, version.AppName, fastjson.GetString(body, "app_name"))
}
