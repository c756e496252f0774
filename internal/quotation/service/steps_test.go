package service

import (
	"testing"

	"procurement_backend/internal/quotation/repository"
)

func TestCurrentStepProgression(t *testing.T) {
	tests := []struct {
		name string
		in   StepInput
		want int
	}{
		{
			name: "no suppliers yet",
			in:   StepInput{Status: repository.StatusPending},
			want: StepSelectSuppliers,
		},
		{
			name: "orders not all sent",
			in:   StepInput{Status: repository.StatusActive, SupplierCount: 3, OrdersSent: 1},
			want: StepSendOrders,
		},
		{
			name: "collecting quotations",
			in:   StepInput{Status: repository.StatusActive, SupplierCount: 2, OrdersSent: 2},
			want: StepCollectQuotations,
		},
		{
			name: "quotations in but no selection",
			in:   StepInput{Status: repository.StatusActive, SupplierCount: 2, OrdersSent: 2, QuotationsSubmitted: 2},
			want: StepAdjudicate,
		},
		{
			name: "selection drafted but not approved",
			in: StepInput{Status: repository.StatusActive, SupplierCount: 2, OrdersSent: 2,
				QuotationsSubmitted: 2, HasFinalSelection: true},
			want: StepAdjudicate,
		},
		{
			name: "selection approved, orders missing",
			in: StepInput{Status: repository.StatusActive, SupplierCount: 2, OrdersSent: 2,
				QuotationsSubmitted: 2, HasFinalSelection: true, FinalSelectionApproved: true,
				SuppliersAwarded: 2, OrdersGenerated: 1},
			want: StepGenerateOrders,
		},
		{
			name: "all orders generated",
			in: StepInput{Status: repository.StatusActive, SupplierCount: 2, OrdersSent: 2,
				QuotationsSubmitted: 2, HasFinalSelection: true, FinalSelectionApproved: true,
				SuppliersAwarded: 2, OrdersGenerated: 2},
			want: StepSigning,
		},
		{
			name: "partially signed",
			in: StepInput{Status: repository.StatusSigned2, SupplierCount: 2, OrdersSent: 2,
				QuotationsSubmitted: 2, HasFinalSelection: true, FinalSelectionApproved: true,
				SuppliersAwarded: 2, OrdersGenerated: 2},
			want: StepSigning,
		},
		{
			name: "approved",
			in:   StepInput{Status: repository.StatusApproved},
			want: StepCompleted,
		},
		{
			name: "rejected stays at signing",
			in:   StepInput{Status: repository.StatusRejected, SupplierCount: 2},
			want: StepSigning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CurrentStep(tt.in); got != tt.want {
				t.Errorf("CurrentStep() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestProgressBounds(t *testing.T) {
	if got := Progress(StepInput{Status: repository.StatusPending}); got != 0 {
		t.Errorf("fresh request progress = %d, want 0", got)
	}
	if got := Progress(StepInput{Status: repository.StatusApproved}); got != 100 {
		t.Errorf("approved request progress = %d, want 100", got)
	}

	mid := Progress(StepInput{Status: repository.StatusActive, SupplierCount: 2, OrdersSent: 2})
	if mid <= 0 || mid >= 100 {
		t.Errorf("mid-workflow progress = %d, want strictly between 0 and 100", mid)
	}
}

func TestSignedLevelFromStatus(t *testing.T) {
	tests := []struct {
		status string
		want   int
	}{
		{repository.StatusActive, 0},
		{repository.StatusSigned1, 1},
		{repository.StatusSigned2, 2},
		{repository.StatusSigned3, 3},
		{repository.StatusApproved, 4},
		{repository.StatusRejected, 0},
	}
	for _, tt := range tests {
		if got := signedLevel(tt.status); got != tt.want {
			t.Errorf("signedLevel(%s) = %d, want %d", tt.status, got, tt.want)
		}
	}
}
