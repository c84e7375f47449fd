package models

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Totals is the monetary breakdown of an order
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
}

// ComputeTotals prices cart lines. Tax is rounded to cents; the grand total
// is always the exact sum of the three components.
func ComputeTotals(lines []CartLine, taxRate, deliveryFee decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal())
	}
	tax := subtotal.Mul(taxRate).Round(2)

	return Totals{
		Subtotal:    subtotal,
		Tax:         tax,
		DeliveryFee: deliveryFee,
		GrandTotal:  subtotal.Add(tax).Add(deliveryFee),
	}
}

// GenerateOrderNumber returns a new order number like ORD-1A2B3C4D
func GenerateOrderNumber() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "ORD-" + strings.ToUpper(id[:8])
}

// AmountInCents converts a money amount to the smallest currency unit
func AmountInCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
