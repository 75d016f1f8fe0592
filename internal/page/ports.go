package page

import (
	"io"

	"snstotal/internal/core"
)

// Ports for reading the delivery page and the documents fetched per item.
type (
	CardExtractor interface {
		ExtractCards(r io.Reader) ([]core.Card, error)
	}

	// EditDocument is the subscription edit resource of one line item.
	EditDocument interface {
		// ProductLink returns the href of the first qualifying link.
		ProductLink() (string, bool)
	}

	// ProductDocument is a fetched product page.
	ProductDocument interface {
		Title() (string, bool)
		PricingRegion() (Region, bool)
		FallbackPrice() (string, bool)
	}

	Parser interface {
		ParseEdit(r io.Reader) (EditDocument, error)
		ParseProduct(r io.Reader) (ProductDocument, error)
	}
)

// Region is the subscribe-and-save pricing block of a product page.
type Region struct {
	TieredActive bool
	TieredPrice  string
	HasTiered    bool
	BasePrice    string
	HasBase      bool
}

// SelectedPrice returns the tiered price when the tiered pill is lit and the
// base price otherwise.
func (r Region) SelectedPrice() (string, bool) {
	if r.TieredActive {
		return r.TieredPrice, r.HasTiered
	}
	return r.BasePrice, r.HasBase
}
