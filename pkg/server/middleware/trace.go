package middleware

import (
	"context"
	"strings"

	"github.com/NeuralTrust/QuoteGate/pkg/common"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const maxTraceIDLength = 128

type traceMiddleware struct{}

// NewTraceMiddleware reuses the caller's X-Trace-Id or generates one, and
// echoes it on the response.
func NewTraceMiddleware() Middleware {
	return &traceMiddleware{}
}

func (m *traceMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		traceID := strings.TrimSpace(c.Get(common.TraceIDHeader))
		if traceID == "" || len(traceID) > maxTraceIDLength {
			traceID = uuid.New().String()
		} else {
			traceID = strings.Clone(traceID)
		}

		c.Locals(common.TraceIdKey, traceID)
		c.SetUserContext(context.WithValue(c.UserContext(), common.TraceIdKey, traceID))
		c.Set(common.TraceIDHeader, traceID)
		return c.Next()
	}
}

// TraceIDFromContext returns the trace ID stored by the trace middleware.
func TraceIDFromContext(ctx context.Context) string {
	traceID, _ := ctx.Value(common.TraceIdKey).(string)
	return traceID
}
