// Package browser loads the delivery page in a real Chrome session so the
// page's own scripts can populate it before it is read.
package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	applog "snstotal/internal/log"
)

// CookieJar receives the session cookies of the loaded page so follow-up
// HTTP fetches are authenticated as the browser was.
type CookieJar interface {
	SetCookies(u *url.URL, cookies []*http.Cookie)
}

type Options struct {
	URL         string
	ExecPath    string
	UserDataDir string
	Headless    bool
	Timeout     time.Duration
	// BusySelector is present while the page is still filling in content.
	BusySelector string
}

// Loader implements pipeline.Source with a headless or headed Chrome.
type Loader struct {
	opts   Options
	jar    CookieJar
	logger *applog.Logger
}

func NewLoader(opts Options, jar CookieJar, logger *applog.Logger) *Loader {
	if opts.BusySelector == "" {
		opts.BusySelector = ".spinner"
	}
	if opts.ExecPath == "" {
		opts.ExecPath = DetectChromePath()
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Loader{opts: opts, jar: jar, logger: logger.WithComponent(applog.ComponentBrowser)}
}

// Snapshot navigates to the page, waits until no busy indicator is left and
// returns the rendered document.
func (l *Loader) Snapshot(ctx context.Context) (io.ReadCloser, error) {
	if l.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.Timeout)
		defer cancel()
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, l.allocatorOptions()...)
	defer allocCancel()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	start := time.Now()
	var html string
	var cookies []*network.Cookie
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(l.opts.URL),
		chromedp.WaitReady("body"),
		chromedp.WaitNotPresent(l.opts.BusySelector),
		chromedp.OuterHTML("html", &html),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().WithURLs([]string{l.opts.URL}).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", l.opts.URL, err)
	}

	if l.jar != nil {
		if u, err := url.Parse(l.opts.URL); err == nil {
			l.jar.SetCookies(u, ConvertCookies(cookies))
		}
	}

	l.logger.Info("Page loaded",
		"url", l.opts.URL,
		"bytes", len(html),
		"cookies", len(cookies),
		applog.FieldDuration, time.Since(start).Milliseconds())
	return io.NopCloser(strings.NewReader(html)), nil
}

func (l *Loader) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.NoSandbox,
		chromedp.Flag("headless", l.opts.Headless),
	)
	if l.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.opts.ExecPath))
	}
	if l.opts.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(l.opts.UserDataDir))
	}
	return opts
}

// ConvertCookies maps DevTools cookies onto net/http cookies.
func ConvertCookies(in []*network.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(in))
	for _, c := range in {
		if c == nil {
			continue
		}
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HttpOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		// Session cookies report a non-positive expiry.
		if c.Expires > 0 {
			hc.Expires = time.Unix(int64(c.Expires), 0)
		}
		out = append(out, hc)
	}
	return out
}

// DetectChromePath checks CHROME_PATH first, then common install locations.
// An empty result lets chromedp fall back to its own lookup.
func DetectChromePath() string {
	if p := os.Getenv("CHROME_PATH"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range []string{
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/snap/bin/chromium",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
