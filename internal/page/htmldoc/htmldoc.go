// Package htmldoc reads delivery pages, edit resources and product pages with
// goquery selectors.
package htmldoc

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"snstotal/internal/core"
	"snstotal/internal/page"
)

// Selectors locates every element the pipeline reads.
type Selectors struct {
	Card         string
	DirectPrice  string
	LineItem     string
	EditPayload  string
	EditAttr     string
	Quantity     string
	ProductLink  string
	Title        string
	Region       string
	ActivePill   string
	TieredMarker string // class carried by the lit pill when tiered pricing applies
	TieredPrice  string
	BasePrice    string
	Fallback     string
}

// DefaultSelectors matches the auto-deliveries and product page markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Card:         ".delivery-card",
		DirectPrice:  ".subscription-price",
		LineItem:     ".subscription-card",
		EditPayload:  ".a-declarative[data-a-modal]",
		EditAttr:     "data-a-modal",
		Quantity:     ".subscription-quantity",
		ProductLink:  ".a-link-normal",
		Title:        "#productTitle",
		Region:       "#snsAccordionRowMiddle",
		ActivePill:   ".discountPillWrapper .pillLightUp",
		TieredMarker: "discountPillRight",
		TieredPrice:  "#sns-tiered-price",
		BasePrice:    "#sns-base-price",
		Fallback:     "#priceblock_ourprice",
	}
}

type Parser struct {
	sel Selectors
}

var (
	_ page.Parser        = (*Parser)(nil)
	_ page.CardExtractor = (*Parser)(nil)
)

func NewParser(sel Selectors) *Parser {
	return &Parser{sel: sel}
}

// ExtractCards returns the delivery cards in page order. The first card is the
// one whose prices are shown directly.
func (p *Parser) ExtractCards(r io.Reader) ([]core.Card, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse delivery page: %w", err)
	}

	var cards []core.Card
	doc.Find(p.sel.Card).Each(func(i int, s *goquery.Selection) {
		card := core.Card{Index: i, Direct: i == 0}
		if card.Direct {
			s.Find(p.sel.DirectPrice).Each(func(_ int, price *goquery.Selection) {
				card.PriceTexts = append(card.PriceTexts, text(price))
			})
		}
		s.Find(p.sel.LineItem).Each(func(_ int, item *goquery.Selection) {
			card.Items = append(card.Items, p.lineItem(item))
		})
		cards = append(cards, card)
	})
	return cards, nil
}

func (p *Parser) lineItem(s *goquery.Selection) core.LineItem {
	var item core.LineItem
	if edit := s.Find(p.sel.EditPayload).First(); edit.Length() > 0 {
		item.HasEdit = true
		item.EditPayload, _ = edit.Attr(p.sel.EditAttr)
	}
	if qty := s.Find(p.sel.Quantity).First(); qty.Length() > 0 {
		item.HasQuantity = true
		item.QuantityText = text(qty)
	}
	return item
}

func (p *Parser) ParseEdit(r io.Reader) (page.EditDocument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse edit document: %w", err)
	}
	return &editDocument{doc: doc, sel: p.sel}, nil
}

func (p *Parser) ParseProduct(r io.Reader) (page.ProductDocument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse product document: %w", err)
	}
	return &productDocument{doc: doc, sel: p.sel}, nil
}

type editDocument struct {
	doc *goquery.Document
	sel Selectors
}

// ProductLink returns the first link with a non-empty href.
func (d *editDocument) ProductLink() (string, bool) {
	var href string
	d.doc.Find(d.sel.ProductLink).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, ok := s.Attr("href")
		v = strings.TrimSpace(v)
		if ok && v != "" {
			href = v
			return false
		}
		return true
	})
	return href, href != ""
}

type productDocument struct {
	doc *goquery.Document
	sel Selectors
}

func (d *productDocument) Title() (string, bool) {
	s := d.doc.Find(d.sel.Title).First()
	if s.Length() == 0 {
		return "", false
	}
	return text(s), true
}

func (d *productDocument) PricingRegion() (page.Region, bool) {
	region := d.doc.Find(d.sel.Region).First()
	if region.Length() == 0 {
		return page.Region{}, false
	}

	var out page.Region
	out.TieredActive = region.Find(d.sel.ActivePill).First().HasClass(d.sel.TieredMarker)
	if s := region.Find(d.sel.TieredPrice).First(); s.Length() > 0 {
		out.TieredPrice, out.HasTiered = text(s), true
	}
	if s := region.Find(d.sel.BasePrice).First(); s.Length() > 0 {
		out.BasePrice, out.HasBase = text(s), true
	}
	return out, true
}

func (d *productDocument) FallbackPrice() (string, bool) {
	s := d.doc.Find(d.sel.Fallback).First()
	if s.Length() == 0 {
		return "", false
	}
	return text(s), true
}

// text returns the element text with runs of whitespace collapsed.
func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
