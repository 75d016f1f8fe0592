package cli

import (
	"net/url"

	"snstotal/internal/aggregate"
	"snstotal/internal/cache"
	"snstotal/internal/config"
	"snstotal/internal/fetch"
	applog "snstotal/internal/log"
	"snstotal/internal/page/htmldoc"
	"snstotal/internal/pipeline"
	"snstotal/internal/resolver"
)

// Stack is the processing chain built from configuration: the shared HTTP
// fetcher, the page parser and the card processor.
type Stack struct {
	HTTP      *fetch.HTTPFetcher
	Parser    *htmldoc.Parser
	Processor *pipeline.Processor
}

// NewStack wires the processor. Outcomes go to sink, which may be nil.
// Every pass gets its own fetch cache, so product pages are never reused
// across passes.
func NewStack(cfg *config.Config, base *url.URL, sink pipeline.Sink, logger *applog.Logger) *Stack {
	httpFetcher := fetch.NewHTTPFetcher(fetch.Options{
		Timeout:   cfg.FetchTimeout,
		UserAgent: cfg.UserAgent,
		Cookie:    cfg.FetchCookie,
	})

	s := &Stack{
		HTTP:   httpFetcher,
		Parser: htmldoc.NewParser(htmldoc.DefaultSelectors()),
	}

	newAggregator := func() *aggregate.CardAggregator {
		var fetcher fetch.Fetcher = httpFetcher
		if cfg.FetchCacheSize > 0 {
			fetcher = fetch.NewCachingFetcher(httpFetcher, cache.NewLRU[[]byte](cfg.FetchCacheSize, cfg.FetchCacheTTL))
		}
		res := resolver.New(fetcher, s.Parser, base, logger)
		return aggregate.NewCardAggregator(res, cfg.MaxConcurrentFetches)
	}
	s.Processor = pipeline.NewProcessor(s.Parser, newAggregator, sink, logger)
	return s
}
