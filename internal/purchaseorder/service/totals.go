package service

import (
	"procurement_backend/internal/purchaseorder/repository"

	"github.com/shopspring/decimal"
)

// Totals is the money summary of a purchase order.
type Totals struct {
	Subtotal  decimal.Decimal
	TaxRate   decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// ComputeTotals sums the item totals and applies the tax rate on top.
// Amounts are rounded to 2 decimals at the order level, not per item, so a
// recomputation from the stored items always reproduces the stored totals.
func ComputeTotals(items []repository.OrderItem, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.TotalPrice)
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(taxRate).Round(2)
	return Totals{
		Subtotal:  subtotal,
		TaxRate:   taxRate,
		TaxAmount: tax,
		Total:     subtotal.Add(tax),
	}
}
