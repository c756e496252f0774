// Package transport defines the de/serialization types for purchase orders.
package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GenerateOrderRequest generates the purchase order for one awarded supplier.
type GenerateOrderRequest struct {
	SupplierID uuid.UUID `json:"supplierId" validate:"required"`
	Notes      string    `json:"notes"`
}

// SignRequest applies one signature level to an order.
type SignRequest struct {
	Level         int    `json:"level" validate:"required,min=1,max=4"`
	SignatureData string `json:"signatureData" validate:"required"`
	ContentType   string `json:"contentType"`
}

// RejectRequest rejects the order during sign-off.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// PartySnapshot is the frozen identity of the buyer or supplier.
type PartySnapshot struct {
	Name    string `json:"name"`
	TaxID   string `json:"taxId"`
	Address string `json:"address"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// OrderResponse is the serialized purchase order.
type OrderResponse struct {
	ID               uuid.UUID           `json:"id"`
	Code             string              `json:"code"`
	RequestID        uuid.UUID           `json:"requestId"`
	FinalSelectionID uuid.UUID           `json:"finalSelectionId"`
	SupplierID       uuid.UUID           `json:"supplierId"`
	Buyer            PartySnapshot       `json:"buyer"`
	Supplier         PartySnapshot       `json:"supplier"`
	Status           string              `json:"status"`
	Currency         string              `json:"currency"`
	Subtotal         decimal.Decimal     `json:"subtotal"`
	TaxRate          decimal.Decimal     `json:"taxRate"`
	TaxAmount        decimal.Decimal     `json:"taxAmount"`
	Total            decimal.Decimal     `json:"total"`
	NormalizedTotal  decimal.Decimal     `json:"normalizedTotal"`
	PaymentTerms     *string             `json:"paymentTerms,omitempty"`
	Notes            *string             `json:"notes,omitempty"`
	RejectionReason  *string             `json:"rejectionReason,omitempty"`
	RejectedBy       *uuid.UUID          `json:"rejectedBy,omitempty"`
	RejectedAt       *time.Time          `json:"rejectedAt,omitempty"`
	Items            []OrderItemResponse `json:"items"`
	Signatures       []SignatureResponse `json:"signatures"`
	CreatedAt        time.Time           `json:"createdAt"`
}

// OrderItemResponse is one purchase order line.
type OrderItemResponse struct {
	RequirementLineID uuid.UUID       `json:"requirementLineId"`
	Kind              string          `json:"kind"`
	Description       string          `json:"description"`
	Quantity          decimal.Decimal `json:"quantity"`
	Unit              string          `json:"unit"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	DeliveryDays      int             `json:"deliveryDays"`
}

// SignatureResponse is one recorded order sign-off.
type SignatureResponse struct {
	Level     int       `json:"level"`
	SignerID  uuid.UUID `json:"signerId"`
	ObjectKey string    `json:"objectKey"`
	SignedAt  time.Time `json:"signedAt"`
}

// GenerateAllResponse reports the outcome of batch generation.
type GenerateAllResponse struct {
	Orders []OrderResponse `json:"orders"`
}
