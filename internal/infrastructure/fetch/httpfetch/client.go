package httpfetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
	"github.com/kirillkom/court-docket-router/internal/infrastructure/resilience"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultTimeout   = 30 * time.Second
	// Anything smaller is an expired-link or login page, never a court document.
	DefaultMinBytes = 1000
	DefaultMaxBytes = 50 << 20
)

type Options struct {
	UserAgent string
	Timeout   time.Duration
	MinBytes  int
	MaxBytes  int64
	Executor  *resilience.Executor
}

// Client downloads court documents from e-filing portal links.
type Client struct {
	httpClient *http.Client
	userAgent  string
	minBytes   int
	maxBytes   int64
	executor   *resilience.Executor
}

func New(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MinBytes <= 0 {
		opts.MinBytes = DefaultMinBytes
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		userAgent:  opts.UserAgent,
		minBytes:   opts.MinBytes,
		maxBytes:   opts.MaxBytes,
		executor:   opts.Executor,
	}
}

func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	data, err := resilience.Do(ctx, c.executor, "fetch.document", func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, url)
	}, classifyFetchError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("fetch document", err)
	}

	if len(data) < c.minBytes {
		return nil, domain.WrapError(domain.ErrNotPDF, "fetch document",
			fmt.Errorf("downloaded file too small (%d bytes), likely an error page or expired link", len(data)))
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, domain.WrapError(domain.ErrNotPDF, "fetch document",
			fmt.Errorf("downloaded file is not a pdf, likely an error page or expired link"))
	}
	return data, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create fetch request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/pdf,*/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &HTTPStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read fetch response: %w", err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "fetch document", fmt.Errorf("document exceeds %d bytes", c.maxBytes))
	}
	return data, nil
}
