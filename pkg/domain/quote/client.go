package quote

import (
	"context"
	"net/http"
	"time"
)

// Response is an upstream reply kept exactly as received.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
	Latency    time.Duration
}

// Client describes the calls the gateway makes to the quote API.
type Client interface {
	Random(ctx context.Context) (*Response, error)
	Search(ctx context.Context, query string) (*Response, error)
}
