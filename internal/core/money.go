// Package core provides the card pricing model together with the parsers
// that turn free-form price and quantity text into amounts.
package core

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ParsePrice parses text such as "$12.34 (20% off)" into an Amount.
//
// The currency is the single character immediately before the first digit and
// the number runs from that digit up to the first "(" after it. A comma is a
// thousands separator only when exactly three digits follow it; any other
// comma ends the number, so "€3,50" reads as 3. Text without a usable number
// yields an unparseable amount, which never contributes to a total.
//
// Examples:
//   ParsePrice("$12.34")          -> {12.34, "$"}
//   ParsePrice("$12.34 (20% off)") -> {12.34, "$"}
//   ParsePrice("$1,079.50")       -> {1079.5, "$"}
//   ParsePrice("12.34")           -> {12.34, ""}
//   ParsePrice("no price")        -> unparseable
func ParsePrice(s string) Amount {
	start := firstDigit(s)
	if start < 0 {
		return Unparseable("")
	}
	currency := currencyBefore(s, start)

	end := len(s)
	if paren := strings.IndexByte(s[start:], '('); paren >= 0 {
		end = start + paren
	}

	num := leadingNumber(strings.TrimSpace(s[start:end]))
	if num == "" {
		return Unparseable(currency)
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Unparseable(currency)
	}
	return Amount{Value: v, Currency: currency}
}

// leadingNumber returns the number at the start of s with thousands
// separators removed, e.g. "1,079.50 each" -> "1079.50".
func leadingNumber(s string) string {
	var b strings.Builder
	i := digitsAt(s, 0)
	if i == 0 {
		return ""
	}
	b.WriteString(s[:i])
	for i < len(s) && s[i] == ',' {
		group := digitsAt(s, i+1)
		if group-(i+1) != 3 {
			break
		}
		b.WriteString(s[i+1 : group])
		i = group
	}
	if i < len(s) && s[i] == '.' {
		if frac := digitsAt(s, i+1); frac > i+1 {
			b.WriteString(s[i:frac])
		}
	}
	return b.String()
}

// digitsAt returns the index just past the run of ASCII digits starting at i.
func digitsAt(s string, i int) int {
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}

// ParseQuantity reads the integer that starts at the first digit of s, as in
// "Quantity: 3". It reports false when there is no digit or the value is below 1.
func ParseQuantity(s string) (int, bool) {
	start := firstDigit(s)
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[start:end])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// QuantityOf returns the purchase quantity of a line item. Items without
// quantity text, or whose text holds no usable number, count once.
func QuantityOf(item LineItem) int {
	if !item.HasQuantity {
		return 1
	}
	if n, ok := ParseQuantity(item.QuantityText); ok {
		return n
	}
	return 1
}

// Total folds weighted amounts into a currency and a sum. The currency is the
// first non-empty one among parsed amounts, in input order; amounts carrying a
// different symbol are summed as-is without conversion.
func Total(amounts []WeightedAmount) (string, decimal.Decimal) {
	currency := ""
	sum := decimal.Zero
	for _, a := range amounts {
		if !a.Parsed() {
			continue
		}
		if currency == "" {
			currency = a.Currency
		}
		sum = sum.Add(a.Contribution())
	}
	return currency, sum
}

// FormatTotal renders a total as currency prefix plus exactly two decimals,
// rounding half away from zero.
func FormatTotal(currency string, value decimal.Decimal) string {
	return currency + value.StringFixed(2)
}

// NewCardTotal builds the immutable total of one card.
func NewCardTotal(direct bool, amounts []WeightedAmount, notSubscribed, unavailable []ItemRef) *CardTotal {
	currency, value := Total(amounts)
	if notSubscribed == nil {
		notSubscribed = []ItemRef{}
	}
	if unavailable == nil {
		unavailable = []ItemRef{}
	}
	return &CardTotal{
		Direct:        direct,
		Currency:      currency,
		Value:         value,
		TotalText:     FormatTotal(currency, value),
		NotSubscribed: notSubscribed,
		Unavailable:   unavailable,
	}
}

func firstDigit(s string) int {
	return strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
}

func currencyBefore(s string, digit int) string {
	if digit == 0 {
		return ""
	}
	r, _ := utf8.DecodeLastRuneInString(s[:digit])
	if r == utf8.RuneError || unicode.IsSpace(r) {
		return ""
	}
	return string(r)
}
