// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"procurement_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Quotation Request Events
// =============================================================================

// SuppliersSolicited is published when an RFQ enters the solicitation phase.
type SuppliersSolicited struct {
	BaseEvent
	RequestID   uuid.UUID   `json:"requestId"`
	RequestCode string      `json:"requestCode"`
	SupplierIDs []uuid.UUID `json:"supplierIds"`
}

func (e SuppliersSolicited) EventName() string { return "quotation.suppliers.solicited" }

// SolicitationOrderSent is published when the RFQ order for one supplier has
// been queued for email dispatch.
type SolicitationOrderSent struct {
	BaseEvent
	RequestID           uuid.UUID `json:"requestId"`
	QuotationSupplierID uuid.UUID `json:"quotationSupplierId"`
	SupplierID          uuid.UUID `json:"supplierId"`
	OrderNumber         string    `json:"orderNumber"`
}

func (e SolicitationOrderSent) EventName() string { return "quotation.order.sent" }

// SupplierQuotationSubmitted is published when a supplier's quotation becomes final.
type SupplierQuotationSubmitted struct {
	BaseEvent
	RequestID   uuid.UUID `json:"requestId"`
	SupplierID  uuid.UUID `json:"supplierId"`
	QuotationID uuid.UUID `json:"quotationId"`
}

func (e SupplierQuotationSubmitted) EventName() string { return "quotation.supplier.submitted" }

// QuotationRequestSigned is published after each successful signature on an RFQ.
type QuotationRequestSigned struct {
	BaseEvent
	RequestID uuid.UUID `json:"requestId"`
	Level     int       `json:"level"`
	SignerID  uuid.UUID `json:"signerId"`
	Approved  bool      `json:"approved"`
}

func (e QuotationRequestSigned) EventName() string { return "quotation.request.signed" }

// QuotationRequestRejected is published when an RFQ is rejected during sign-off.
type QuotationRequestRejected struct {
	BaseEvent
	RequestID uuid.UUID `json:"requestId"`
	Reason    string    `json:"reason"`
	SignerID  uuid.UUID `json:"signerId"`
}

func (e QuotationRequestRejected) EventName() string { return "quotation.request.rejected" }

// QuotationRequestReset is published after the audited reset operation wiped
// all downstream data of an RFQ.
type QuotationRequestReset struct {
	BaseEvent
	RequestID         uuid.UUID   `json:"requestId"`
	ActorID           uuid.UUID   `json:"actorId"`
	CancelledOrderIDs []uuid.UUID `json:"cancelledOrderIds"`
}

func (e QuotationRequestReset) EventName() string { return "quotation.request.reset" }

// =============================================================================
// Purchase Order Events
// =============================================================================

// PurchaseOrderGenerated is published when a purchase order is created from
// an approved final selection.
type PurchaseOrderGenerated struct {
	BaseEvent
	OrderID    uuid.UUID `json:"orderId"`
	OrderCode  string    `json:"orderCode"`
	RequestID  uuid.UUID `json:"requestId"`
	SupplierID uuid.UUID `json:"supplierId"`
}

func (e PurchaseOrderGenerated) EventName() string { return "purchaseorder.generated" }

// PurchaseOrderSigned is published after each successful purchase order signature.
type PurchaseOrderSigned struct {
	BaseEvent
	OrderID  uuid.UUID `json:"orderId"`
	Level    int       `json:"level"`
	SignerID uuid.UUID `json:"signerId"`
	Approved bool      `json:"approved"`
}

func (e PurchaseOrderSigned) EventName() string { return "purchaseorder.signed" }

// PurchaseOrderRejected is published when a purchase order is rejected during sign-off.
type PurchaseOrderRejected struct {
	BaseEvent
	OrderID  uuid.UUID `json:"orderId"`
	Reason   string    `json:"reason"`
	SignerID uuid.UUID `json:"signerId"`
}

func (e PurchaseOrderRejected) EventName() string { return "purchaseorder.rejected" }
