package scenario

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"
)

const (
	defaultRequestTimeout  = 10 * time.Second
	defaultMaxConnsPerHost = 1000
)

// ErrRequestTimeout is set on a Response whose request exceeded its timeout.
var ErrRequestTimeout = errors.New("request timed out")

// ClientConfig configures the shared HTTP client all VUs use.
type ClientConfig struct {
	BaseURL               string
	Timeout               time.Duration
	MaxConnsPerHost       int
	InsecureSkipTLSVerify bool
	// Dial overrides connection setup, e.g. for in-memory listeners.
	Dial fasthttp.DialFunc
}

// HTTPClient is a thin fasthttp wrapper shared by every VU so connections
// are pooled across the whole run.
type HTTPClient struct {
	baseURL string
	timeout time.Duration
	client  *fasthttp.Client
}

// NewHTTPClient builds a client. Zero values fall back to defaults.
func NewHTTPClient(cfg ClientConfig) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRequestTimeout
	}
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = defaultMaxConnsPerHost
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		client: &fasthttp.Client{
			MaxConnsPerHost:        cfg.MaxConnsPerHost,
			MaxIdleConnDuration:    90 * time.Second,
			TLSConfig:              &tls.Config{InsecureSkipVerify: cfg.InsecureSkipTLSVerify},
			DisablePathNormalizing: true,
			Dial:                   cfg.Dial,
		},
	}
}

// BaseURL returns the URL relative paths are resolved against.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// URL resolves path against the base URL; absolute URLs pass through.
func (c *HTTPClient) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if path == "" {
		return c.baseURL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// Request is one outgoing call.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    []byte
	Timeout time.Duration
}

// Response is the outcome of a call. Err is set for transport failures and
// timeouts; Status is 0 in that case.
type Response struct {
	Status        int
	Body          []byte
	Duration      time.Duration
	Err           error
	BytesSent     int64
	BytesReceived int64

	jsonOnce sync.Once
	json     any
	jsonErr  error
}

// JSON decodes the body once and caches the result.
func (r *Response) JSON() (any, error) {
	r.jsonOnce.Do(func() {
		if len(r.Body) == 0 {
			r.jsonErr = errors.New("empty body")
			return
		}
		r.jsonErr = sonic.Unmarshal(r.Body, &r.json)
	})
	return r.json, r.jsonErr
}

// Do performs req. It never returns a nil Response. The context is only
// consulted for an earlier deadline and for cancellation before sending.
func (c *HTTPClient) Do(ctx context.Context, req Request) *Response {
	out := &Response{}
	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	freq := fasthttp.AcquireRequest()
	fresp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(freq)
	defer fasthttp.ReleaseResponse(fresp)

	method := req.Method
	if method == "" {
		method = fasthttp.MethodGet
	}
	freq.Header.SetMethod(method)
	freq.SetRequestURI(c.URL(req.Path))
	for k, v := range req.Headers {
		freq.Header.Set(k, v)
	}
	if len(req.Body) > 0 {
		freq.SetBodyRaw(req.Body)
		if len(freq.Header.ContentType()) == 0 {
			freq.Header.SetContentType("application/json")
		}
	}

	start := time.Now()
	err := c.client.DoDeadline(freq, fresp, deadline)
	out.Duration = time.Since(start)
	out.BytesSent = int64(len(freq.Header.Header()) + len(freq.Body()))

	if err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) || time.Now().After(deadline) {
			out.Err = fmt.Errorf("%w after %s", ErrRequestTimeout, timeout)
		} else {
			out.Err = err
		}
		return out
	}

	out.Status = fresp.StatusCode()
	out.Body = append([]byte(nil), fresp.Body()...)
	out.BytesReceived = int64(len(fresp.Header.Header()) + len(out.Body))
	return out
}
