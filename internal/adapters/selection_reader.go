package adapters

import (
	"context"

	quotationsvc "procurement_backend/internal/quotation/service"
	selectionsvc "procurement_backend/internal/selection/service"

	"github.com/google/uuid"
)

// SelectionReader adapts the selection service onto the quotation module's
// narrow reader interface.
type SelectionReader struct {
	svc *selectionsvc.Service
}

// NewSelectionReader creates the adapter.
func NewSelectionReader(svc *selectionsvc.Service) *SelectionReader {
	return &SelectionReader{svc: svc}
}

// GetSummaryForRequest returns the selection summary the signature readiness
// gate works from.
func (a *SelectionReader) GetSummaryForRequest(ctx context.Context, requestID uuid.UUID) (*quotationsvc.SelectionSummary, error) {
	summary, err := a.svc.GetSummaryForRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return &quotationsvc.SelectionSummary{
		ID:              summary.ID,
		Status:          summary.Status,
		NormalizedTotal: summary.NormalizedTotal,
		SupplierIDs:     summary.SupplierIDs,
	}, nil
}

// Compile-time check against the quotation module's interface.
var _ quotationsvc.SelectionReader = (*SelectionReader)(nil)
