package models

import (
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeTotals(t *testing.T) {
	lines := []CartLine{
		{FoodItemID: 1, ItemPrice: decimal.RequireFromString("12.50"), Quantity: 2},
		{FoodItemID: 2, ItemPrice: decimal.RequireFromString("3.99"), Quantity: 3},
	}

	totals := ComputeTotals(lines, decimal.RequireFromString("0.10"), decimal.RequireFromString("2.00"))

	assert.True(t, decimal.RequireFromString("36.97").Equal(totals.Subtotal), totals.Subtotal.String())
	assert.True(t, decimal.RequireFromString("3.70").Equal(totals.Tax), totals.Tax.String())
	assert.True(t, decimal.RequireFromString("2.00").Equal(totals.DeliveryFee))
	assert.True(t, totals.Subtotal.Add(totals.Tax).Add(totals.DeliveryFee).Equal(totals.GrandTotal))
	assert.True(t, decimal.RequireFromString("42.67").Equal(totals.GrandTotal), totals.GrandTotal.String())
}

func TestComputeTotalsEmpty(t *testing.T) {
	totals := ComputeTotals(nil, decimal.RequireFromString("0.10"), decimal.RequireFromString("2.00"))

	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.Tax.IsZero())
	assert.True(t, decimal.RequireFromString("2.00").Equal(totals.GrandTotal))
}

func TestGenerateOrderNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^ORD-[0-9A-F]{8}$`)

	a := GenerateOrderNumber()
	b := GenerateOrderNumber()

	assert.Regexp(t, pattern, a)
	assert.Regexp(t, pattern, b)
	assert.NotEqual(t, a, b)
}

func TestAmountInCents(t *testing.T) {
	assert.Equal(t, int64(4267), AmountInCents(decimal.RequireFromString("42.67")))
	assert.Equal(t, int64(200), AmountInCents(decimal.RequireFromString("2")))
	assert.Equal(t, int64(101), AmountInCents(decimal.RequireFromString("1.005")))
}
