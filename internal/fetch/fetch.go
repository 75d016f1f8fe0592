// Package fetch retrieves the HTML documents visited while pricing line items.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"

	"snstotal/internal/cache"
)

const maxBodyBytes = 8 << 20

// ErrBodyTooLarge is returned instead of a truncated document.
var ErrBodyTooLarge = fmt.Errorf("response body exceeds %d bytes", maxBodyBytes)

// Fetcher issues a GET and returns the response body.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// StatusError is returned for responses with a status of 300 or above.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status code = %d", e.URL, e.Code)
}

// IsStatus reports whether err carries the given HTTP status.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

type Options struct {
	Timeout   time.Duration
	UserAgent string
	Cookie    string // sent verbatim in addition to the jar
}

type HTTPFetcher struct {
	client *http.Client
	opts   Options
}

func NewHTTPFetcher(opts Options) *HTTPFetcher {
	jar, _ := cookiejar.New(nil)
	return &HTTPFetcher{
		client: &http.Client{Timeout: opts.Timeout, Jar: jar},
		opts:   opts,
	}
}

// SetCookies seeds the jar, e.g. with a browser session.
func (f *HTTPFetcher) SetCookies(u *url.URL, cookies []*http.Cookie) {
	f.client.Jar.SetCookies(u, cookies)
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}
	if f.opts.Cookie != "" {
		req.Header.Set("Cookie", f.opts.Cookie)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	slog.DebugContext(ctx, "Fetched document",
		"item_url", rawURL,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", rawURL, err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("GET %s: %w", rawURL, ErrBodyTooLarge)
	}
	return body, nil
}

// CachingFetcher remembers successful bodies so a product page shared by
// several cards is fetched once. Concurrent requests for the same URL share
// one fetch, run with the context of the first caller, so a CachingFetcher
// must not outlive the pass that created it.
type CachingFetcher struct {
	next   Fetcher
	cache  cache.Cache[[]byte]
	flight singleflight.Group
}

func NewCachingFetcher(next Fetcher, c cache.Cache[[]byte]) *CachingFetcher {
	return &CachingFetcher{next: next, cache: c}
}

func (f *CachingFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if body, ok := f.cache.Get(rawURL); ok {
		return body, nil
	}
	v, err, _ := f.flight.Do(rawURL, func() (any, error) {
		if body, ok := f.cache.Get(rawURL); ok {
			return body, nil
		}
		body, err := f.next.Fetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		f.cache.Set(rawURL, body)
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
