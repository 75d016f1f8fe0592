// Package resolver prices a single line item by following its edit resource
// to the product page.
package resolver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"

	"snstotal/internal/core"
	"snstotal/internal/fetch"
	applog "snstotal/internal/log"
	"snstotal/internal/page"
)

var (
	ErrNoProductLink = errors.New("edit document has no product link")
	ErrNoTitle       = errors.New("product document has no title")
)

type Resolver struct {
	fetcher fetch.Fetcher
	parser  page.Parser
	base    *url.URL
	logger  *applog.Logger
}

// New returns a resolver whose relative edit references are resolved
// against base.
func New(fetcher fetch.Fetcher, parser page.Parser, base *url.URL, logger *applog.Logger) *Resolver {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Resolver{
		fetcher: fetcher,
		parser:  parser,
		base:    base,
		logger:  logger.WithComponent(applog.ComponentResolver),
	}
}

// Resolve determines the price of one line item. Items without an edit
// reference need no lookup and contribute nothing. Fetch failures and missing
// required structure are returned as errors.
func (r *Resolver) Resolve(ctx context.Context, item core.LineItem) (core.LineItemResult, error) {
	if !item.HasEdit {
		return core.LineItemResult{
			Amount: core.Amount{}.Weighted(1),
			Status: core.StatusNoLookupNeeded,
		}, nil
	}

	quantity := core.QuantityOf(item)
	if item.HasQuantity {
		if _, ok := core.ParseQuantity(item.QuantityText); !ok {
			r.logger.DebugContext(ctx, "Quantity text has no number, counting once",
				applog.FieldQuantityText, item.QuantityText)
		}
	}

	ref, err := core.DecodeEditReference(item.EditPayload)
	if err != nil {
		return core.LineItemResult{}, err
	}
	editURL, err := resolveURL(r.base, ref)
	if err != nil {
		return core.LineItemResult{}, fmt.Errorf("edit reference %q: %w", ref, err)
	}

	productURL, err := r.productLink(ctx, editURL)
	if err != nil {
		return core.LineItemResult{}, err
	}

	body, err := r.fetcher.Fetch(ctx, productURL.String())
	if err != nil {
		return core.LineItemResult{}, fmt.Errorf("fetch product page: %w", err)
	}
	doc, err := r.parser.ParseProduct(bytes.NewReader(body))
	if err != nil {
		return core.LineItemResult{}, err
	}

	result, err := classify(doc)
	if err != nil {
		return core.LineItemResult{}, fmt.Errorf("%s: %w", productURL, err)
	}
	result.Amount = result.Amount.Amount.Weighted(quantity)
	result.Link = productURL.String()

	r.logger.DebugContext(ctx, "Resolved line item",
		applog.FieldItemURL, result.Link,
		applog.FieldStatus, result.Status.String(),
		applog.FieldQuantity, quantity)
	return result, nil
}

func (r *Resolver) productLink(ctx context.Context, editURL *url.URL) (*url.URL, error) {
	body, err := r.fetcher.Fetch(ctx, editURL.String())
	if err != nil {
		return nil, fmt.Errorf("fetch edit document: %w", err)
	}
	doc, err := r.parser.ParseEdit(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	href, ok := doc.ProductLink()
	if !ok {
		return nil, fmt.Errorf("%s: %w", editURL, ErrNoProductLink)
	}
	productURL, err := resolveURL(editURL, href)
	if err != nil {
		return nil, fmt.Errorf("product link %q: %w", href, err)
	}
	return productURL, nil
}

// classify reads the price of a product page. A missing pricing region means
// the subscription is no longer offered; a page with no usable price at all is
// unavailable.
func classify(doc page.ProductDocument) (core.LineItemResult, error) {
	title, ok := doc.Title()
	if !ok {
		return core.LineItemResult{}, ErrNoTitle
	}
	unavailable := core.LineItemResult{
		Amount: core.Amount{}.Weighted(1),
		Status: core.StatusUnavailable,
		Name:   title,
	}

	region, ok := doc.PricingRegion()
	if !ok {
		price, ok := doc.FallbackPrice()
		if !ok {
			return unavailable, nil
		}
		return core.LineItemResult{
			Amount: core.ParsePrice(price).Weighted(1),
			Status: core.StatusNotSubscribed,
			Name:   title,
		}, nil
	}

	price, ok := region.SelectedPrice()
	if !ok {
		return unavailable, nil
	}
	return core.LineItemResult{
		Amount: core.ParsePrice(price).Weighted(1),
		Status: core.StatusResolved,
		Name:   title,
	}, nil
}

func resolveURL(base *url.URL, ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("cannot resolve relative url %q without a base", ref)
	}
	return u, nil
}
