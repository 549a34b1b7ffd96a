package http

import (
	"errors"
	"net/textproto"
	"strings"

	"github.com/NeuralTrust/QuoteGate/pkg/common"
	"github.com/NeuralTrust/QuoteGate/pkg/domain"
	"github.com/NeuralTrust/QuoteGate/pkg/domain/quote"
	"github.com/NeuralTrust/QuoteGate/pkg/infra/httpx"
	"github.com/NeuralTrust/QuoteGate/pkg/infra/metrics/metric_events"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Hop-by-hop headers are meaningful for a single connection only and are
// never relayed. Content-Length is recomputed when the body is written.
var skippedResponseHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
	"Content-Length":      {},
}

type BaseHandler struct {
	logger *logrus.Logger
}

func NewBaseHandler(logger *logrus.Logger) *BaseHandler {
	return &BaseHandler{logger: logger}
}

// Relay writes the upstream reply to the caller with its status and body
// unchanged. A compressed body is decoded only when the caller did not
// advertise support for its encoding.
func (h *BaseHandler) Relay(c *fiber.Ctx, operation string, resp *quote.Response) error {
	c.Locals(common.UpstreamEventContextKey, metric_events.NewUpstreamEvent(
		operation, resp.URL, resp.StatusCode, resp.Latency,
	))

	body := resp.Body
	decoded := false
	if encoding := resp.Header.Get(fiber.HeaderContentEncoding); encoding != "" &&
		!httpx.AcceptsEncoding(c.Get(fiber.HeaderAcceptEncoding), encoding) {
		plain, changed, err := httpx.DecodeChain(encoding, body)
		if err != nil {
			h.logger.WithFields(logrus.Fields{
				"trace_id": c.Locals(common.TraceIdKey),
				"encoding": encoding,
			}).WithError(err).Warn("failed to decode upstream body, relaying as received")
		} else if changed {
			body = plain
			decoded = true
		}
	}

	connectionTokens := connectionHeaderTokens(resp.Header.Values(fiber.HeaderConnection))
	for key, values := range resp.Header {
		canonical := textproto.CanonicalMIMEHeaderKey(key)
		if _, skip := skippedResponseHeaders[canonical]; skip {
			continue
		}
		if _, skip := connectionTokens[canonical]; skip {
			continue
		}
		if decoded && canonical == fiber.HeaderContentEncoding {
			continue
		}
		for _, value := range values {
			c.Response().Header.Add(key, value)
		}
	}

	return c.Status(resp.StatusCode).Send(body)
}

// HandleUpstreamError maps a failed call to the response the caller sees.
func (h *BaseHandler) HandleUpstreamError(c *fiber.Ctx, operation string, err error) error {
	status, message := errorResponse(err)
	if status >= fiber.StatusInternalServerError {
		c.Locals(common.UpstreamErrorContextKey, err)
	}

	var upstreamErr *domain.UpstreamError
	if errors.As(err, &upstreamErr) {
		c.Locals(common.UpstreamEventContextKey, metric_events.NewUpstreamEvent(operation, upstreamErr.URL, 0, 0))
	}

	entry := h.logger.WithFields(logrus.Fields{
		"trace_id":  c.Locals(common.TraceIdKey),
		"operation": operation,
		"status":    status,
	}).WithError(err)
	if status >= fiber.StatusInternalServerError {
		entry.Error("quote request failed")
	} else {
		entry.Debug("quote request rejected")
	}

	return c.Status(status).JSON(fiber.Map{"error": message})
}

func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrMissingQuery):
		return fiber.StatusBadRequest, domain.ErrMissingQuery.Error()
	case domain.IsTimeoutError(err):
		return fiber.StatusGatewayTimeout, domain.ErrUpstreamTimeout.Error()
	case domain.IsUnavailableError(err):
		return fiber.StatusBadGateway, domain.ErrUpstreamUnavailable.Error()
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}

func connectionHeaderTokens(values []string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, value := range values {
		for _, token := range strings.Split(value, ",") {
			if token = strings.TrimSpace(token); token != "" {
				tokens[textproto.CanonicalMIMEHeaderKey(token)] = struct{}{}
			}
		}
	}
	return tokens
}
