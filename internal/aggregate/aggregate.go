// Package aggregate folds the line items of a delivery card into its total.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"snstotal/internal/core"
)

// ItemResolver prices one line item.
type ItemResolver interface {
	Resolve(ctx context.Context, item core.LineItem) (core.LineItemResult, error)
}

// errSkipped marks items never started because a sibling had already failed.
var errSkipped = errors.New("skipped after an earlier item failed")

type CardAggregator struct {
	resolver ItemResolver
	limit    int
}

// NewCardAggregator returns an aggregator that resolves at most limit items of
// a card at once; limit <= 0 resolves all items concurrently.
func NewCardAggregator(resolver ItemResolver, limit int) *CardAggregator {
	return &CardAggregator{resolver: resolver, limit: limit}
}

// Aggregate resolves every item concurrently and joins them as one unit. The
// first failing item decides the card at once: no total is produced and the
// error is returned without waiting for the other items, whose requests are
// left to finish in the background. Items not started yet are skipped.
func (a *CardAggregator) Aggregate(ctx context.Context, items []core.LineItem) (*core.CardTotal, error) {
	type completion struct {
		index  int
		result core.LineItemResult
		err    error
	}
	// Buffered so abandoned items never block once the caller has returned.
	done := make(chan completion, len(items))
	var failed atomic.Bool

	var g errgroup.Group
	if a.limit > 0 {
		g.SetLimit(a.limit)
	}
	go func() {
		for i, item := range items {
			g.Go(func() error {
				if failed.Load() {
					done <- completion{index: i, err: errSkipped}
					return nil
				}
				res, err := a.resolver.Resolve(ctx, item)
				if err != nil {
					failed.Store(true)
					err = fmt.Errorf("item %d: %w", i, err)
				}
				done <- completion{index: i, result: res, err: err}
				return nil
			})
		}
		_ = g.Wait()
	}()

	results := make([]core.LineItemResult, len(items))
	for range items {
		c := <-done
		if errors.Is(c.err, errSkipped) {
			// The failure that caused the skip is still on its way.
			continue
		}
		if c.err != nil {
			return nil, c.err
		}
		results[c.index] = c.result
	}
	return fold(results), nil
}

func fold(results []core.LineItemResult) *core.CardTotal {
	amounts := make([]core.WeightedAmount, 0, len(results))
	var notSubscribed, unavailable []core.ItemRef
	for _, r := range results {
		amounts = append(amounts, r.Amount)
		switch r.Status {
		case core.StatusNotSubscribed:
			notSubscribed = append(notSubscribed, r.Ref())
		case core.StatusUnavailable:
			unavailable = append(unavailable, r.Ref())
		}
	}
	return core.NewCardTotal(false, amounts, notSubscribed, unavailable)
}

// Direct totals a card whose prices are already on the page. Every price
// counts once.
func Direct(priceTexts []string) *core.CardTotal {
	amounts := make([]core.WeightedAmount, 0, len(priceTexts))
	for _, s := range priceTexts {
		amounts = append(amounts, core.ParsePrice(s).Weighted(1))
	}
	return core.NewCardTotal(true, amounts, nil, nil)
}
