package quote

import "github.com/NeuralTrust/QuoteGate/pkg/infra/httpx"

type Option func(*httpClient)

// WithCircuitBreaker runs every upstream call through breaker. Only
// transport failures count against it; upstream error statuses do not.
func WithCircuitBreaker(breaker httpx.CircuitBreaker) Option {
	return func(c *httpClient) {
		c.breaker = breaker
	}
}
