// Package transport defines the de/serialization types for the quotation
// workflow API.
package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// CreateRequestRequest opens a new quotation request for a requirement.
type CreateRequestRequest struct {
	RequirementID uuid.UUID `json:"requirementId" validate:"required"`
	Notes         string    `json:"notes"`
}

// SolicitSupplierInput names one supplier to solicit, with an optional subset
// of requirement lines. An empty LineIDs means the full requirement.
type SolicitSupplierInput struct {
	SupplierID uuid.UUID   `json:"supplierId" validate:"required"`
	LineIDs    []uuid.UUID `json:"lineIds"`
	Terms      string      `json:"terms"`
}

// SolicitSuppliersRequest adds suppliers to the request and activates it.
type SolicitSuppliersRequest struct {
	Suppliers []SolicitSupplierInput `json:"suppliers" validate:"required,min=1,dive"`
}

// QuotationItemInput is one per-line answer in a supplier's quotation.
type QuotationItemInput struct {
	RequirementLineID uuid.UUID       `json:"requirementLineId" validate:"required"`
	Status            string          `json:"status" validate:"required,oneof=QUOTED NOT_AVAILABLE NOT_QUOTED"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	Currency          string          `json:"currency"`
	DeliveryDays      int             `json:"deliveryDays" validate:"min=0"`
	Notes             string          `json:"notes"`
	Reason            string          `json:"reason"`
}

// RecordQuotationRequest records or replaces a supplier's draft quotation.
type RecordQuotationRequest struct {
	Currency        string               `json:"currency" validate:"required,len=3"`
	ValidUntil      *time.Time           `json:"validUntil"`
	PaymentTerms    string               `json:"paymentTerms"`
	Notes           string               `json:"notes"`
	TaxRateOverride *decimal.Decimal     `json:"taxRateOverride"`
	Items           []QuotationItemInput `json:"items" validate:"required,min=1,dive"`
}

// SignRequest applies one signature level. SignatureData carries the captured
// signature image as base64.
type SignRequest struct {
	Level         int    `json:"level" validate:"required,min=1,max=4"`
	SignatureData string `json:"signatureData" validate:"required"`
	ContentType   string `json:"contentType"`
}

// RejectRequest rejects the entity during sign-off.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// RequestResponse is the serialized quotation request.
type RequestResponse struct {
	ID              uuid.UUID  `json:"id"`
	Code            string     `json:"code"`
	RequirementID   uuid.UUID  `json:"requirementId"`
	Status          string     `json:"status"`
	Notes           *string    `json:"notes,omitempty"`
	RejectionReason *string    `json:"rejectionReason,omitempty"`
	RejectedBy      *uuid.UUID `json:"rejectedBy,omitempty"`
	RejectedAt      *time.Time `json:"rejectedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// SupplierResponse is one solicited supplier with its response state.
type SupplierResponse struct {
	ID          uuid.UUID          `json:"id"`
	SupplierID  uuid.UUID          `json:"supplierId"`
	Name        string             `json:"name"`
	Status      string             `json:"status"`
	OrderNumber string             `json:"orderNumber"`
	Terms       *string            `json:"terms,omitempty"`
	SentAt      *time.Time         `json:"sentAt,omitempty"`
	LineIDs     []uuid.UUID        `json:"lineIds"`
	Quotation   *QuotationResponse `json:"quotation,omitempty"`
}

// QuotationResponse is a supplier's quotation with items.
type QuotationResponse struct {
	ID              uuid.UUID        `json:"id"`
	Status          string           `json:"status"`
	ReceivedAt      *time.Time       `json:"receivedAt,omitempty"`
	ValidUntil      *time.Time       `json:"validUntil,omitempty"`
	Currency        string           `json:"currency"`
	Total           decimal.Decimal  `json:"total"`
	PaymentTerms    *string          `json:"paymentTerms,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	TaxRateOverride *decimal.Decimal `json:"taxRateOverride,omitempty"`
	Items           []ItemResponse   `json:"items"`
}

// ItemResponse is one per-line answer.
type ItemResponse struct {
	ID                uuid.UUID       `json:"id"`
	RequirementLineID uuid.UUID       `json:"requirementLineId"`
	Kind              string          `json:"kind"`
	Status            string          `json:"status"`
	Quantity          decimal.Decimal `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	Currency          string          `json:"currency"`
	DeliveryDays      int             `json:"deliveryDays"`
	Notes             *string         `json:"notes,omitempty"`
	Reason            *string         `json:"reason,omitempty"`
}

// SignatureResponse is one recorded sign-off.
type SignatureResponse struct {
	Level     int       `json:"level"`
	SignerID  uuid.UUID `json:"signerId"`
	ObjectKey string    `json:"objectKey"`
	SignedAt  time.Time `json:"signedAt"`
}

// RequestDetailResponse is the aggregate view the wizard renders from.
type RequestDetailResponse struct {
	Request     RequestResponse     `json:"request"`
	Suppliers   []SupplierResponse  `json:"suppliers"`
	Signatures  []SignatureResponse `json:"signatures"`
	CurrentStep int                 `json:"currentStep"`
	Progress    int                 `json:"progress"`
}

// ── Comparison ────────────────────────────────────────────────────────────────

// ComparisonResponse is the side-by-side comparison table.
type ComparisonResponse struct {
	BaseCurrency     string                  `json:"baseCurrency"`
	ExchangeRate     decimal.Decimal         `json:"exchangeRate"`
	Lines            []LineComparisonResp    `json:"lines"`
	Ranking          []SupplierScoreResp     `json:"ranking"`
	Recommended      *uuid.UUID              `json:"recommended,omitempty"`
	DefaultSelection map[uuid.UUID]uuid.UUID `json:"defaultSelection"`
}

// LineComparisonResp holds all offers for one requirement line.
type LineComparisonResp struct {
	LineID      uuid.UUID       `json:"lineId"`
	Description string          `json:"description"`
	Kind        string          `json:"kind"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	Offers      []LineOfferResp `json:"offers"`
	Best        *LineOfferResp  `json:"best,omitempty"`
}

// LineOfferResp is one supplier's offer on one line.
type LineOfferResp struct {
	SupplierID          uuid.UUID       `json:"supplierId"`
	Status              string          `json:"status"`
	UnitPrice           decimal.Decimal `json:"unitPrice"`
	Currency            string          `json:"currency"`
	NormalizedUnitPrice decimal.Decimal `json:"normalizedUnitPrice"`
	DeliveryDays        int             `json:"deliveryDays"`
}

// SupplierScoreResp is one supplier's aggregate standing.
type SupplierScoreResp struct {
	SupplierID      uuid.UUID       `json:"supplierId"`
	Name            string          `json:"name"`
	SolicitedLines  int             `json:"solicitedLines"`
	QuotedLines     int             `json:"quotedLines"`
	NotAvailable    int             `json:"notAvailable"`
	FullCoverage    bool            `json:"fullCoverage"`
	CoveragePct     decimal.Decimal `json:"coveragePct"`
	NormalizedTotal decimal.Decimal `json:"normalizedTotal"`
}
