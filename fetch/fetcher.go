// Package fetch downloads package files from repository mirrors and queries
// remote package indexes over HTTP, with retries and per-host circuit
// breaking.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/rs/dnscache"
)

var (
	ErrNotFound    = errors.New("not found upstream")
	ErrRateLimited = errors.New("rate limited by upstream")
	ErrUnavailable = errors.New("upstream unavailable")
)

// Response is a successful GET or HEAD. Body is nil for HEAD.
type Response struct {
	Body         io.ReadCloser
	Size         int64 // -1 if unknown
	ContentType  string
	ETag         string
	LastModified string
}

// Getter is what the AUR client and the mirror resolver download through.
type Getter interface {
	Get(ctx context.Context, url string) (*Response, error)
	Head(ctx context.Context, url string) (*Response, error)
}

// Fetcher is an HTTP client that caches DNS lookups and retries rate
// limited and failed requests with exponential backoff.
type Fetcher struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	baseDelay  time.Duration
	logger     *log.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the DNS caching client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxRetries sets how many times a request is retried after the first
// attempt.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		f.maxRetries = n
	}
}

// WithBaseDelay sets the delay before the first retry. Each later retry
// waits twice as long as the one before.
func WithBaseDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		f.baseDelay = d
	}
}

func WithLogger(l *log.Logger) Option {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// NewFetcher creates a Fetcher. Its resolver refreshes cached addresses every
// five minutes for the life of the process.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		userAgent:  "alpmq/1.0",
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{
			Timeout:   5 * time.Minute,
			Transport: cachingTransport(),
		}
	}
	return f
}

func cachingTransport() *http.Transport {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			var lastErr error
			for _, ip := range ips {
				conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
				if err == nil {
					return conn, nil
				}
				lastErr = err
			}
			return nil, fmt.Errorf("dialing %s: %w", host, lastErr)
		},
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// Get downloads url. The caller must close the returned Body.
func (f *Fetcher) Get(ctx context.Context, url string) (*Response, error) {
	return f.retry(ctx, url, http.MethodGet)
}

// Head fetches the metadata of url without its body.
func (f *Fetcher) Head(ctx context.Context, url string) (*Response, error) {
	return f.retry(ctx, url, http.MethodHead)
}

func (f *Fetcher) retry(ctx context.Context, url, method string) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			delay := f.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			delay += time.Duration(float64(delay) * rand.Float64() * 0.1)
			f.logger.Debug("retrying", "url", url, "attempt", attempt, "delay", delay, "err", lastErr)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := f.do(ctx, url, method)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !errors.Is(err, ErrRateLimited) && !errors.Is(err, ErrUnavailable) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (f *Fetcher) do(ctx context.Context, url, method string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		r := &Response{
			Size:         contentLength(resp.Header),
			ContentType:  resp.Header.Get("Content-Type"),
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if method == http.MethodHead {
			_ = resp.Body.Close()
		} else {
			r.Body = resp.Body
		}
		return r, nil
	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		_ = resp.Body.Close()
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, ErrUnavailable)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	_ = resp.Body.Close()
	return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
}

func contentLength(h http.Header) int64 {
	if cl := h.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			return n
		}
	}
	return -1
}
