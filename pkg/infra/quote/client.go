package quote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/NeuralTrust/QuoteGate/pkg/common"
	"github.com/NeuralTrust/QuoteGate/pkg/domain"
	"github.com/NeuralTrust/QuoteGate/pkg/domain/quote"
	"github.com/NeuralTrust/QuoteGate/pkg/infra/httpx"
	"github.com/sirupsen/logrus"
)

const (
	OperationRandom = "random"
	OperationSearch = "search"
)

type Config struct {
	BaseURL     string
	RandomPath  string
	SearchPath  string
	SearchParam string
	UserAgent   string
	Timeout     time.Duration
	Compression bool
}

type httpClient struct {
	cfg     Config
	baseURL *url.URL
	client  httpx.Client
	logger  *logrus.Logger
	breaker httpx.CircuitBreaker
}

func NewClient(cfg Config, client httpx.Client, logger *logrus.Logger, opts ...Option) (quote.Client, error) {
	if client == nil {
		return nil, errors.New("http client is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = common.DefaultUpstreamBaseURL
	}
	if cfg.RandomPath == "" {
		cfg.RandomPath = common.DefaultRandomPath
	}
	if cfg.SearchPath == "" {
		cfg.SearchPath = common.DefaultSearchPath
	}
	if cfg.SearchParam == "" {
		cfg.SearchParam = common.DefaultSearchParam
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = common.DefaultUpstreamTimeout
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid upstream base url %q: scheme and host are required", cfg.BaseURL)
	}

	c := &httpClient{
		cfg:     cfg,
		baseURL: base,
		client:  client,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *httpClient) Random(ctx context.Context) (*quote.Response, error) {
	return c.get(ctx, OperationRandom, c.endpoint(c.cfg.RandomPath, nil))
}

func (c *httpClient) Search(ctx context.Context, query string) (*quote.Response, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrMissingQuery
	}
	params := url.Values{}
	params.Set(c.cfg.SearchParam, query)
	return c.get(ctx, OperationSearch, c.endpoint(c.cfg.SearchPath, params))
}

func (c *httpClient) endpoint(path string, params url.Values) string {
	u := c.baseURL.JoinPath(path)
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

func (c *httpClient) get(ctx context.Context, op, target string) (*quote.Response, error) {
	if c.breaker == nil {
		return c.do(ctx, op, target)
	}

	var resp *quote.Response
	err := c.breaker.Execute(func() error {
		var callErr error
		resp, callErr = c.do(ctx, op, target)
		return callErr
	})
	if err != nil {
		if httpx.IsBreakerOpen(err) {
			c.logger.WithFields(logrus.Fields{
				"operation": op,
				"url":       target,
			}).Warn("upstream circuit breaker is open")
			return nil, domain.NewUpstreamError(op, target, domain.ErrUpstreamUnavailable, err)
		}
		return nil, err
	}
	return resp, nil
}

func (c *httpClient) do(ctx context.Context, op, target string) (*quote.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, domain.NewUpstreamError(op, target, domain.ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.cfg.Compression {
		req.Header.Set("Accept-Encoding", httpx.SupportedEncodings)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		kind := classify(ctx, err)
		c.logger.WithFields(logrus.Fields{
			"operation":  op,
			"url":        target,
			"latency_ms": latency.Milliseconds(),
		}).WithError(err).Warn("upstream call failed")
		return nil, domain.NewUpstreamError(op, target, kind, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewUpstreamError(op, target, classify(ctx, err), fmt.Errorf("failed to read upstream body: %w", err))
	}

	c.logger.WithFields(logrus.Fields{
		"operation":  op,
		"url":        target,
		"status":     resp.StatusCode,
		"latency_ms": latency.Milliseconds(),
	}).Debug("upstream call completed")

	return &quote.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
		URL:        target,
		Latency:    latency,
	}, nil
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, httpx.ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.ErrUpstreamTimeout
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ErrUpstreamTimeout
	}
	return domain.ErrUpstreamUnavailable
}
