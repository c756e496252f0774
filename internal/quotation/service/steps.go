package service

import "procurement_backend/internal/quotation/repository"

// Workflow steps as surfaced to the wizard UI. The projection is derived
// entirely from persisted state so it survives restarts and concurrent edits.
const (
	StepSelectSuppliers   = 1
	StepSendOrders        = 2
	StepCollectQuotations = 3
	StepAdjudicate        = 4
	StepGenerateOrders    = 5
	StepSigning           = 6
	StepCompleted         = 7
)

// StepInput is the snapshot the projection works from.
type StepInput struct {
	Status                 string
	SupplierCount          int
	OrdersSent             int // suppliers in SENT or RESPONDED
	QuotationsSubmitted    int
	HasFinalSelection      bool
	FinalSelectionApproved bool
	OrdersGenerated        int // purchase orders generated from the selection
	SuppliersAwarded       int // distinct suppliers in the final selection
}

// CurrentStep computes where the workflow stands. Terminal requests report
// the completed step; everything else reports the first step with outstanding
// work.
func CurrentStep(in StepInput) int {
	switch in.Status {
	case repository.StatusApproved:
		return StepCompleted
	case repository.StatusRejected, repository.StatusCancelled:
		return StepSigning
	}

	if in.SupplierCount == 0 {
		return StepSelectSuppliers
	}
	if in.OrdersSent < in.SupplierCount {
		return StepSendOrders
	}
	if in.QuotationsSubmitted == 0 {
		return StepCollectQuotations
	}
	if !in.HasFinalSelection || !in.FinalSelectionApproved {
		return StepAdjudicate
	}
	if in.OrdersGenerated < in.SuppliersAwarded {
		return StepGenerateOrders
	}
	return StepSigning
}

// Progress maps the current step to a 0-100 percentage.
func Progress(in StepInput) int {
	if in.Status == repository.StatusApproved {
		return 100
	}
	step := CurrentStep(in)
	return (step - 1) * 100 / StepCompleted
}
