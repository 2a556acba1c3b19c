package money

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTaxRate is applied when an order does not carry a restaurant-level override.
var DefaultTaxRate = decimal.NewFromFloat(0.05)

// Line is a priced order line used for total computation.
type Line struct {
	Price    decimal.Decimal
	Quantity int
}

// Totals holds the derived monetary fields of an order.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Round2 rounds to 2 decimal places, half up.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ComputeTotals derives subtotal, tax and total from order lines.
// The subtotal is summed unrounded; tax and total are rounded to 2dp.
func ComputeTotals(lines []Line, taxRate, discount decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	tax := Round2(subtotal.Mul(taxRate))
	total := Round2(subtotal.Add(tax).Sub(discount))

	return Totals{
		Subtotal: Round2(subtotal),
		Tax:      tax,
		Total:    total,
	}
}

// FormatINR renders a monetary value for receipts, e.g. "₹472.50".
func FormatINR(d decimal.Decimal) string {
	return "₹" + d.StringFixed(2)
}

// FormatTimestamp renders a timestamp for receipts and audit views.
func FormatTimestamp(t time.Time) string {
	return t.Format("02 Jan 2006, 3:04 PM")
}
