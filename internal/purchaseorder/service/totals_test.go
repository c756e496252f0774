package service

import (
	"testing"

	"procurement_backend/internal/approval"
	"procurement_backend/internal/purchaseorder/repository"

	"github.com/shopspring/decimal"
)

func item(price string, qty int64) repository.OrderItem {
	p := decimal.RequireFromString(price)
	q := decimal.NewFromInt(qty)
	return repository.OrderItem{UnitPrice: p, Quantity: q, TotalPrice: p.Mul(q)}
}

func TestComputeTotals(t *testing.T) {
	items := []repository.OrderItem{
		item("100.50", 2), // 201.00
		item("49.99", 1),  // 49.99
	}

	totals := ComputeTotals(items, decimal.RequireFromString("0.18"))

	if want := decimal.RequireFromString("250.99"); !totals.Subtotal.Equal(want) {
		t.Errorf("subtotal = %s, want %s", totals.Subtotal, want)
	}
	if want := decimal.RequireFromString("45.18"); !totals.TaxAmount.Equal(want) {
		t.Errorf("tax = %s, want %s", totals.TaxAmount, want)
	}
	if want := decimal.RequireFromString("296.17"); !totals.Total.Equal(want) {
		t.Errorf("total = %s, want %s", totals.Total, want)
	}
}

func TestComputeTotalsZeroTax(t *testing.T) {
	totals := ComputeTotals([]repository.OrderItem{item("10", 3)}, decimal.Zero)

	if !totals.TaxAmount.IsZero() {
		t.Errorf("tax = %s, want 0", totals.TaxAmount)
	}
	if !totals.Total.Equal(totals.Subtotal) {
		t.Errorf("total %s should equal subtotal %s", totals.Total, totals.Subtotal)
	}
}

func TestComputeTotalsEmpty(t *testing.T) {
	totals := ComputeTotals(nil, decimal.RequireFromString("0.18"))

	if !totals.Total.IsZero() {
		t.Errorf("empty order total = %s, want 0", totals.Total)
	}
}

func TestOrderEntityChain(t *testing.T) {
	small := decimal.NewFromInt(500)

	e := orderEntity{status: repository.StatusPending, amount: small}
	if err := approval.CanSign(e, 1); err != nil {
		t.Fatalf("fresh order should accept level 1: %v", err)
	}
	if err := approval.CanSign(e, 2); err == nil {
		t.Error("level 2 before level 1 must fail")
	}

	e.status = repository.StatusSigned2
	approved, err := approval.Advance(e, 3)
	if err != nil {
		t.Fatalf("level 3 on a SIGNED_2 order: %v", err)
	}
	if !approved {
		t.Error("level 3 completes the chain below the fourth-level threshold")
	}

	big := decimal.NewFromInt(20000)
	e = orderEntity{status: repository.StatusSigned2, amount: big}
	approved, err = approval.Advance(e, 3)
	if err != nil {
		t.Fatalf("level 3 on an above-threshold order: %v", err)
	}
	if approved {
		t.Error("above the threshold level 3 must not approve the order")
	}

	e.status = repository.StatusSigned3
	approved, err = approval.Advance(e, 4)
	if err != nil {
		t.Fatalf("level 4 on a SIGNED_3 order: %v", err)
	}
	if !approved {
		t.Error("level 4 completes the chain above the threshold")
	}
}

func TestOrderEntityTerminalStates(t *testing.T) {
	for _, status := range []string{repository.StatusApproved, repository.StatusRejected, repository.StatusCancelled} {
		e := orderEntity{status: status, amount: decimal.NewFromInt(100)}
		if err := approval.CanSign(e, 1); err == nil {
			t.Errorf("signing a %s order must fail", status)
		}
	}
}
