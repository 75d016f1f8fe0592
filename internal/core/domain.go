package core

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

const (
	StatusNoLookupNeeded Status = iota
	StatusResolved
	StatusNotSubscribed
	StatusUnavailable
)

const (
	CardPending CardState = iota
	CardComputed
	CardFailed
)

type (
	Status    int
	CardState int

	// Amount is one parsed price. Value is NaN when the text could not be parsed.
	Amount struct {
		Value    float64
		Currency string
	}

	WeightedAmount struct {
		Amount
		Quantity int
	}

	ItemRef struct {
		Name string `json:"name"`
		Link string `json:"link"`
	}

	LineItemResult struct {
		Amount WeightedAmount
		Status Status
		Name   string
		Link   string // product page, empty for items that needed no lookup
	}

	// LineItem is one product entry of a card as extracted from the page.
	LineItem struct {
		EditPayload  string
		HasEdit      bool
		QuantityText string
		HasQuantity  bool
	}

	Card struct {
		Index      int
		Direct     bool
		PriceTexts []string // only populated for the direct card
		Items      []LineItem
	}

	CardTotal struct {
		Direct        bool
		Currency      string
		Value         decimal.Decimal
		TotalText     string
		NotSubscribed []ItemRef
		Unavailable   []ItemRef
	}

	CardOutcome struct {
		Index int
		State CardState
		Total *CardTotal
		Err   error
	}
)

var (
	ErrInvalidEditReference = errors.New("invalid edit reference")
)

// Unparseable returns the sentinel amount for text without a usable number.
func Unparseable(currency string) Amount {
	return Amount{Value: math.NaN(), Currency: currency}
}

// Parsed reports whether the amount holds a real number.
func (a Amount) Parsed() bool {
	return !math.IsNaN(a.Value) && !math.IsInf(a.Value, 0)
}

// Weighted pairs the amount with a quantity; quantities below 1 become 1.
func (a Amount) Weighted(quantity int) WeightedAmount {
	if quantity < 1 {
		quantity = 1
	}
	return WeightedAmount{Amount: a, Quantity: quantity}
}

// Contribution is the value this amount adds to a total.
func (w WeightedAmount) Contribution() decimal.Decimal {
	if !w.Parsed() {
		return decimal.Zero
	}
	q := w.Quantity
	if q < 1 {
		q = 1
	}
	return decimal.NewFromFloat(w.Value).Mul(decimal.NewFromInt(int64(q)))
}

func (s Status) String() string {
	switch s {
	case StatusNoLookupNeeded:
		return "no_lookup_needed"
	case StatusResolved:
		return "resolved"
	case StatusNotSubscribed:
		return "not_subscribed"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

func (s CardState) String() string {
	switch s {
	case CardPending:
		return "pending"
	case CardComputed:
		return "computed"
	case CardFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Ref returns the name/link pair shown for classified items.
func (r LineItemResult) Ref() ItemRef {
	return ItemRef{Name: r.Name, Link: r.Link}
}

// Computed builds the outcome of a card whose total is known.
func Computed(index int, total *CardTotal) CardOutcome {
	return CardOutcome{Index: index, State: CardComputed, Total: total}
}

// Failed builds the outcome of a card whose aggregation did not complete.
func Failed(index int, err error) CardOutcome {
	return CardOutcome{Index: index, State: CardFailed, Err: err}
}
