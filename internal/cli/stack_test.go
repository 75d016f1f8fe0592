package cli

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"snstotal/internal/config"
	"snstotal/internal/core"
	"snstotal/internal/pipeline"
)

func TestStackTotalsCardsEndToEnd(t *testing.T) {
	var productHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/edit/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a class="a-link-normal" href="/dp/SOAP">Soap</a></body></html>`)
	})
	mux.HandleFunc("/dp/SOAP", func(w http.ResponseWriter, r *http.Request) {
		productHits.Add(1)
		fmt.Fprint(w, `<html><body><span id="productTitle"> Soap </span>
<div id="snsAccordionRowMiddle"><span id="sns-base-price">$2.50</span></div></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	base, _ := url.Parse(srv.URL)
	cfg := &config.Config{FetchTimeout: 5 * time.Second, FetchCacheSize: 16, FetchCacheTTL: time.Minute}
	s := NewStack(cfg, base, nil, nil)

	report, err := s.Processor.Run(context.Background(), pipeline.BytesSource(soapPage(2)))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(report.Outcomes))
	}
	if got := report.Outcomes[0].Total; got == nil || !got.Direct || got.TotalText != "$1.00" {
		t.Fatalf("unexpected direct card %+v", got)
	}
	for _, o := range report.Outcomes[1:] {
		if o.State != core.CardComputed || o.Total.TotalText != "$5.00" {
			t.Errorf("unexpected outcome %+v", o)
		}
	}
	if got := productHits.Load(); got != 1 {
		t.Errorf("product page fetched %d times, want 1", got)
	}
}

func TestStackDoesNotReuseProductPagesAcrossPasses(t *testing.T) {
	var price atomic.Value
	price.Store("$2.50")
	mux := http.NewServeMux()
	mux.HandleFunc("/edit/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a class="a-link-normal" href="/dp/SOAP">Soap</a></body></html>`)
	})
	mux.HandleFunc("/dp/SOAP", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><span id="productTitle">Soap</span>
<div id="snsAccordionRowMiddle"><span id="sns-base-price">%s</span></div></body></html>`, price.Load())
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	base, _ := url.Parse(srv.URL)
	cfg := &config.Config{FetchTimeout: 5 * time.Second, FetchCacheSize: 16, FetchCacheTTL: time.Hour}
	s := NewStack(cfg, base, nil, nil)

	for _, tc := range []struct {
		price string
		want  string
	}{
		{"$2.50", "$5.00"},
		{"$9.00", "$18.00"},
	} {
		price.Store(tc.price)
		report, err := s.Processor.Run(context.Background(), pipeline.BytesSource(soapPage(1)))
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if got := report.Outcomes[1]; got.State != core.CardComputed || got.Total.TotalText != tc.want {
			t.Fatalf("with price %s got %+v, want %s", tc.price, got.Total, tc.want)
		}
	}
}

func TestStackWithoutCache(t *testing.T) {
	var productHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/edit/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a class="a-link-normal" href="/dp/SOAP">Soap</a></body></html>`)
	})
	mux.HandleFunc("/dp/SOAP", func(w http.ResponseWriter, r *http.Request) {
		productHits.Add(1)
		fmt.Fprint(w, `<html><body><span id="productTitle">Soap</span><div id="snsAccordionRowMiddle"><span id="sns-base-price">$2.50</span></div></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	base, _ := url.Parse(srv.URL)
	s := NewStack(&config.Config{FetchTimeout: 5 * time.Second}, base, nil, nil)
	if _, err := s.Processor.Run(context.Background(), pipeline.BytesSource(soapPage(2))); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := productHits.Load(); got != 2 {
		t.Errorf("product page fetched %d times without a cache, want 2", got)
	}
}

// soapPage is a direct $1.00 card followed by n cards each holding two
// units of the /edit/1 item.
func soapPage(n int) string {
	edit := `{&quot;url&quot;:&quot;/edit/1&quot;}`
	card := `<div class="delivery-card"><div class="subscription-card">
<span class="a-declarative" data-a-modal="` + edit + `"></span>
<span class="subscription-quantity">Qty: 2</span></div></div>`
	direct := `<div class="delivery-card"><span class="subscription-price">$1.00</span></div>`
	return "<html><body>" + direct + strings.Repeat(card, n) + "</body></html>"
}
