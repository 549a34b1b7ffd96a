package httpx

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
)

const (
	DefaultTimeout             = 10 * time.Second
	DefaultMaxConnsPerHost     = 512
	DefaultMaxIdleConnDuration = 90 * time.Second
	DefaultMaxResponseBodySize = 10 * 1024 * 1024
	DefaultBufferSize          = 8192
)

type FastHTTPClientOptions struct {
	// Timeout bounds reads and writes when the request carries no deadline.
	Timeout             time.Duration
	MaxConnsPerHost     int
	MaxIdleConnDuration time.Duration
	MaxResponseBodySize int
	InsecureSkipVerify  bool
	UserAgent           string
}

type FastHTTPClientOption func(*FastHTTPClientOptions)

func WithTimeout(timeout time.Duration) FastHTTPClientOption {
	return func(o *FastHTTPClientOptions) {
		o.Timeout = timeout
	}
}

func WithMaxConnsPerHost(max int) FastHTTPClientOption {
	return func(o *FastHTTPClientOptions) {
		o.MaxConnsPerHost = max
	}
}

// WithMaxResponseBodySize caps upstream bodies. Non-positive sizes keep the default.
func WithMaxResponseBodySize(size int) FastHTTPClientOption {
	return func(o *FastHTTPClientOptions) {
		if size > 0 {
			o.MaxResponseBodySize = size
		}
	}
}

func WithInsecureSkipVerify(skip bool) FastHTTPClientOption {
	return func(o *FastHTTPClientOptions) {
		o.InsecureSkipVerify = skip
	}
}

// WithUserAgent sets the User-Agent used when the request has none.
func WithUserAgent(userAgent string) FastHTTPClientOption {
	return func(o *FastHTTPClientOptions) {
		o.UserAgent = userAgent
	}
}

// FastHTTPClient adapts a pooled fasthttp.Client to the net/http shaped
// Client interface.
type FastHTTPClient struct {
	client    *fasthttp.Client
	userAgent string
}

func NewFastHTTPClient(opts ...FastHTTPClientOption) *FastHTTPClient {
	options := &FastHTTPClientOptions{
		Timeout:             DefaultTimeout,
		MaxConnsPerHost:     DefaultMaxConnsPerHost,
		MaxIdleConnDuration: DefaultMaxIdleConnDuration,
		MaxResponseBodySize: DefaultMaxResponseBodySize,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.MaxConnsPerHost <= 0 {
		options.MaxConnsPerHost = DefaultMaxConnsPerHost
	}

	client := &fasthttp.Client{
		ReadTimeout:              options.Timeout,
		WriteTimeout:             options.Timeout,
		MaxConnsPerHost:          options.MaxConnsPerHost,
		MaxIdleConnDuration:      options.MaxIdleConnDuration,
		MaxResponseBodySize:      options.MaxResponseBodySize,
		ReadBufferSize:           DefaultBufferSize,
		WriteBufferSize:          DefaultBufferSize,
		NoDefaultUserAgentHeader: true,
	}
	if options.InsecureSkipVerify {
		client.TLSConfig = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // intentionally configurable
		}
	}

	return &FastHTTPClient{
		client:    client,
		userAgent: options.UserAgent,
	}
}

func (c *FastHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}

	fastReq := fasthttp.AcquireRequest()
	fastResp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(fastReq)
	defer fasthttp.ReleaseResponse(fastResp)

	if err := c.buildRequest(req, fastReq); err != nil {
		return nil, err
	}

	if err := c.execute(req.Context(), fastReq, fastResp); err != nil {
		return nil, err
	}

	return toHTTPResponse(req, fastResp), nil
}

func (c *FastHTTPClient) buildRequest(req *http.Request, fastReq *fasthttp.Request) error {
	if req.URL == nil {
		return errors.New("request URL is required")
	}
	fastReq.SetRequestURI(req.URL.String())
	fastReq.Header.SetMethod(req.Method)

	if req.Host != "" {
		fastReq.Header.SetHost(req.Host)
	} else {
		fastReq.Header.SetHost(req.URL.Host)
	}

	for key, values := range req.Header {
		for _, value := range values {
			fastReq.Header.Add(key, value)
		}
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		fastReq.Header.SetUserAgent(c.userAgent)
	}

	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read request body: %w", err)
		}
		fastReq.SetBody(body)
	}
	return nil
}

// execute honours the request context deadline; without one the client
// read/write timeouts apply.
func (c *FastHTTPClient) execute(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.Do(req, resp)
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, fasthttp.ErrDialTimeout) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

// toHTTPResponse copies everything out of fastResp; its buffers are reused
// once it is released.
func toHTTPResponse(req *http.Request, fastResp *fasthttp.Response) *http.Response {
	body := append([]byte(nil), fastResp.Body()...)
	statusCode := fastResp.StatusCode()

	headers := make(http.Header)
	fastResp.Header.VisitAll(func(key, value []byte) {
		headers.Add(string(key), string(value))
	})

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode)),
		StatusCode:    statusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        headers,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
