package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"snstotal/internal/core"
	applog "snstotal/internal/log"
	"snstotal/internal/middleware/ratelimit"
	"snstotal/internal/pipeline"
)

type fakeRunner struct {
	report pipeline.Report
	err    error
	body   string
}

func (f *fakeRunner) Run(ctx context.Context, source pipeline.Source) (pipeline.Report, error) {
	rc, err := source.Snapshot(ctx)
	if err != nil {
		return pipeline.Report{}, err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return pipeline.Report{}, err
	}
	f.body = string(b)
	return f.report, f.err
}

func newTestServer(t *testing.T, runner Runner, perMinute int) *Server {
	t.Helper()
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	srv := NewServer(":0", runner, limiter, applog.New(applog.Config{Level: slog.LevelError}))
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, 10)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: missing request id", path)
		}
	}
}

func TestTotalsRequestValidation(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, 100)

	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{name: "wrong method", method: http.MethodGet, want: http.StatusMethodNotAllowed},
		{name: "empty body", method: http.MethodPost, want: http.StatusBadRequest},
		{name: "too large", method: http.MethodPost, body: strings.Repeat("a", maxPageBytes+1), want: http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rr, httptest.NewRequest(tt.method, "/api/totals", strings.NewReader(tt.body)))
			if rr.Code != tt.want {
				t.Fatalf("status=%d, want %d", rr.Code, tt.want)
			}
			var body map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body["error"] == "" {
				t.Errorf("expected a JSON error body, got %q", rr.Body.String())
			}
		})
	}
}

func TestTotalsReportsComputedAndFailedCards(t *testing.T) {
	runner := &fakeRunner{report: pipeline.Report{
		RunID: "run-42",
		Outcomes: []core.CardOutcome{
			core.Computed(0, core.NewCardTotal(true,
				[]core.WeightedAmount{{Amount: core.Amount{Value: 3.5, Currency: "$"}, Quantity: 1}}, nil, nil)),
			core.Failed(1, errors.New("fetch edit document: status code = 503")),
			core.Computed(2, &core.CardTotal{
				Currency:      "$",
				Value:         decimal.RequireFromString("7"),
				TotalText:     "$7.00",
				NotSubscribed: []core.ItemRef{{Name: "Soap", Link: "https://www.amazon.com/dp/SOAP"}},
				Unavailable:   []core.ItemRef{},
			}),
		},
	}}
	srv := newTestServer(t, runner, 100)

	rr := httptest.NewRecorder()
	page := "<html><body><div class=\"delivery-card\"></div></body></html>"
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/totals", strings.NewReader(page)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if runner.body != page {
		t.Errorf("runner received %q", runner.body)
	}

	var resp totalsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RunID != "run-42" || len(resp.Cards) != 3 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if c := resp.Cards[0]; !c.Direct || c.TotalText != "$3.50" || c.State != "computed" {
		t.Errorf("direct card = %+v", c)
	}
	if c := resp.Cards[1]; c.State != "failed" || !strings.Contains(c.Error, "503") || c.TotalText != "" {
		t.Errorf("failed card = %+v", c)
	}
	if c := resp.Cards[2]; c.Total != "7.00" || len(c.NotSubscribed) != 1 || c.NotSubscribed[0].Link != "https://www.amazon.com/dp/SOAP" {
		t.Errorf("estimated card = %+v", c)
	}
}

func TestTotalsPassFailure(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{err: errors.New("extract cards: broken")}, 100)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/totals", strings.NewReader("<html>")))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestTotalsRateLimited(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, 1)
	send := func() int {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/totals", strings.NewReader("<html>"))
		req.RemoteAddr = "203.0.113.5:4000"
		srv.Handler.ServeHTTP(rr, req)
		return rr.Code
	}
	if code := send(); code != http.StatusOK {
		t.Fatalf("first status=%d", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("second status=%d, want 429", code)
	}

	// Health checks are never limited.
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
}
