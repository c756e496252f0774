// Package transport defines the de/serialization types for final selections.
package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssignmentInput awards one requirement line to one supplier.
type AssignmentInput struct {
	LineID     uuid.UUID `json:"lineId" validate:"required"`
	SupplierID uuid.UUID `json:"supplierId" validate:"required"`
}

// CreateSelectionRequest records the adjudication outcome for a request. It
// must cover every requirement line.
type CreateSelectionRequest struct {
	Assignments []AssignmentInput `json:"assignments" validate:"required,min=1,dive"`
	Notes       string            `json:"notes"`
}

// SelectionResponse is the serialized final selection.
type SelectionResponse struct {
	ID              uuid.UUID               `json:"id"`
	RequestID       uuid.UUID               `json:"requestId"`
	Status          string                  `json:"status"`
	BaseCurrency    string                  `json:"baseCurrency"`
	NormalizedTotal decimal.Decimal         `json:"normalizedTotal"`
	Notes           *string                 `json:"notes,omitempty"`
	CreatedBy       uuid.UUID               `json:"createdBy"`
	ApprovedBy      *uuid.UUID              `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time              `json:"approvedAt,omitempty"`
	CreatedAt       time.Time               `json:"createdAt"`
	Items           []SelectionItemResponse `json:"items"`
}

// SelectionItemResponse is one awarded line.
type SelectionItemResponse struct {
	RequirementLineID   uuid.UUID       `json:"requirementLineId"`
	SupplierID          uuid.UUID       `json:"supplierId"`
	Quantity            decimal.Decimal `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unitPrice"`
	Currency            string          `json:"currency"`
	NormalizedUnitPrice decimal.Decimal `json:"normalizedUnitPrice"`
	NormalizedTotal     decimal.Decimal `json:"normalizedTotal"`
}
