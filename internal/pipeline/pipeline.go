// Package pipeline runs one processing pass over a delivery page: every card
// is totalled independently and its outcome handed to a sink exactly once.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"snstotal/internal/aggregate"
	"snstotal/internal/core"
	applog "snstotal/internal/log"
	"snstotal/internal/page"
)

// Sink receives the outcome of each card.
type Sink interface {
	Deliver(ctx context.Context, runID string, outcome core.CardOutcome) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, runID string, outcome core.CardOutcome) error

func (f SinkFunc) Deliver(ctx context.Context, runID string, outcome core.CardOutcome) error {
	return f(ctx, runID, outcome)
}

// MultiSink delivers every outcome to each sink in turn.
type MultiSink []Sink

func (m MultiSink) Deliver(ctx context.Context, runID string, outcome core.CardOutcome) error {
	var firstErr error
	for _, s := range m {
		if err := s.Deliver(ctx, runID, outcome); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Report is the result of one pass, ordered by card index.
type Report struct {
	RunID    string
	Started  time.Time
	Outcomes []core.CardOutcome
}

// Failed returns the number of cards whose total could not be computed.
func (r Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.State == core.CardFailed {
			n++
		}
	}
	return n
}

// AggregatorFactory builds the aggregator for one pass. Anything it caches is
// dropped when the pass ends.
type AggregatorFactory func() *aggregate.CardAggregator

type Processor struct {
	extractor     page.CardExtractor
	newAggregator AggregatorFactory
	sink          Sink
	logger        *applog.Logger
}

func NewProcessor(extractor page.CardExtractor, newAggregator AggregatorFactory, sink Sink, logger *applog.Logger) *Processor {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Processor{
		extractor:     extractor,
		newAggregator: newAggregator,
		sink:          sink,
		logger:        logger.WithComponent(applog.ComponentPipeline),
	}
}

// Run waits for the source to be ready, extracts the cards and processes them.
func (p *Processor) Run(ctx context.Context, source Source) (Report, error) {
	rc, err := source.Snapshot(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("page snapshot: %w", err)
	}
	defer rc.Close()

	cards, err := p.extractor.ExtractCards(rc)
	if err != nil {
		return Report{}, fmt.Errorf("extract cards: %w", err)
	}
	return p.Process(ctx, cards), nil
}

// Process totals every card concurrently with a fresh aggregator. A failing card is reported as
// failed and does not affect the others.
func (p *Processor) Process(ctx context.Context, cards []core.Card) Report {
	report := Report{
		RunID:    uuid.NewString(),
		Started:  time.Now(),
		Outcomes: make([]core.CardOutcome, len(cards)),
	}
	logger := p.logger.WithRun(report.RunID)
	logger.InfoContext(ctx, "Processing delivery cards", applog.FieldCardCount, len(cards))

	agg := p.newAggregator()
	var wg sync.WaitGroup
	for i, card := range cards {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome := p.card(ctx, agg, card)
			report.Outcomes[i] = outcome
			p.deliver(ctx, logger, report.RunID, outcome)
		}()
	}
	wg.Wait()

	logger.InfoContext(ctx, "Delivery cards processed",
		applog.FieldCardCount, len(cards),
		"failed", report.Failed(),
		applog.FieldDuration, time.Since(report.Started).Milliseconds())
	return report
}

func (p *Processor) card(ctx context.Context, agg *aggregate.CardAggregator, card core.Card) core.CardOutcome {
	if card.Direct {
		return core.Computed(card.Index, aggregate.Direct(card.PriceTexts))
	}
	total, err := agg.Aggregate(ctx, card.Items)
	if err != nil {
		return core.Failed(card.Index, err)
	}
	return core.Computed(card.Index, total)
}

func (p *Processor) deliver(ctx context.Context, logger *applog.Logger, runID string, outcome core.CardOutcome) {
	fields := applog.NewFields().WithCard(outcome.Index, outcome.State.String())
	if outcome.State == core.CardFailed {
		logger.Failure(ctx, "Card total could not be computed", outcome.Err, fields.ToSlice()...)
	} else {
		logger.InfoContext(ctx, "Card total computed",
			fields.WithTotal(outcome.Total.Currency, outcome.Total.TotalText).ToSlice()...)
	}

	if p.sink == nil {
		return
	}
	if err := p.sink.Deliver(ctx, runID, outcome); err != nil {
		logger.Failure(ctx, "Failed to deliver card outcome", err,
			applog.FieldCardIndex, outcome.Index,
			applog.FieldOperation, applog.OpDeliver)
	}
}
