// Package service implements purchase order generation and sign-off. Orders
// are generated per awarded supplier from an approved final selection, with
// buyer and supplier identities snapshotted at generation time.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"procurement_backend/internal/catalog"
	"procurement_backend/internal/events"
	"procurement_backend/internal/purchaseorder/repository"
	"procurement_backend/internal/purchaseorder/transport"
	quotationrepo "procurement_backend/internal/quotation/repository"
	selectionrepo "procurement_backend/internal/selection/repository"
	"procurement_backend/platform/apperr"
	"procurement_backend/platform/logger"
	"procurement_backend/platform/phone"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// SignatureStore persists captured signature images.
type SignatureStore interface {
	UploadSignature(ctx context.Context, entityType string, entityID uuid.UUID, level int, content []byte, contentType string) (string, error)
}

// ProcurementConfig is the subset of configuration the service reads.
type ProcurementConfig interface {
	GetBaseCurrency() string
	GetDefaultTaxRate() decimal.Decimal
}

// Service provides business logic for purchase orders.
type Service struct {
	repo      *repository.Repository
	selection *selectionrepo.Repository
	quotation *quotationrepo.Repository
	catalog   catalog.Provider
	storage   SignatureStore
	bus       events.Bus
	cfg       ProcurementConfig
	log       *logger.Logger
}

// New creates a new purchase order service.
func New(
	repo *repository.Repository,
	selection *selectionrepo.Repository,
	quotation *quotationrepo.Repository,
	cat catalog.Provider,
	storage SignatureStore,
	bus events.Bus,
	cfg ProcurementConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:      repo,
		selection: selection,
		quotation: quotation,
		catalog:   cat,
		storage:   storage,
		bus:       bus,
		cfg:       cfg,
		log:       log,
	}
}

// Generate creates the purchase order for one awarded supplier. Generation is
// idempotent: if an order for this supplier already exists it is returned
// unchanged, backed by the unique constraint on (final_selection_id,
// supplier_id).
func (s *Service) Generate(ctx context.Context, requestID uuid.UUID, req transport.GenerateOrderRequest) (*transport.OrderResponse, error) {
	sel, err := s.selection.GetForRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if sel.Status != selectionrepo.StatusApproved && sel.Status != selectionrepo.StatusGenerated {
		return nil, apperr.InvalidTransition("purchase orders can only be generated from an approved final selection")
	}

	selItems, err := s.selection.GetItems(ctx, sel.ID)
	if err != nil {
		return nil, err
	}
	var awarded []selectionrepo.SelectionItem
	for _, it := range selItems {
		if it.SupplierID == req.SupplierID {
			awarded = append(awarded, it)
		}
	}
	if len(awarded) == 0 {
		return nil, apperr.Validation("supplier has no awarded lines in the final selection")
	}

	if existing, err := s.repo.GetBySelectionAndSupplier(ctx, sel.ID, req.SupplierID); err == nil {
		s.markSelectionWhenComplete(ctx, sel.ID, selItems)
		return s.toOrderResponse(ctx, existing)
	} else if apperr.GetKind(err) != apperr.KindNotFound {
		return nil, err
	}

	order, items, err := s.buildOrder(ctx, requestID, sel, awarded, req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, order, items); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			existing, err := s.repo.GetBySelectionAndSupplier(ctx, sel.ID, req.SupplierID)
			if err != nil {
				return nil, err
			}
			return s.toOrderResponse(ctx, existing)
		}
		return nil, err
	}

	s.bus.Publish(ctx, events.PurchaseOrderGenerated{
		BaseEvent:  events.NewBaseEvent(),
		OrderID:    order.ID,
		OrderCode:  order.Code,
		RequestID:  requestID,
		SupplierID: req.SupplierID,
	})
	s.log.Info("purchase order generated", "orderId", order.ID, "code", order.Code, "supplierId", req.SupplierID)

	s.markSelectionWhenComplete(ctx, sel.ID, selItems)

	return s.toOrderResponse(ctx, order)
}

// markSelectionWhenComplete flips the selection to GENERATED once every
// awarded supplier has an order. Failures only log: the orders themselves are
// already persisted and the next generation call retries the mark.
func (s *Service) markSelectionWhenComplete(ctx context.Context, selectionID uuid.UUID, selItems []selectionrepo.SelectionItem) {
	generated, err := s.repo.ListGeneratedSuppliers(ctx, selectionID)
	if err != nil {
		s.log.Error("list generated suppliers", "selectionId", selectionID, "error", err)
		return
	}
	have := make(map[uuid.UUID]bool, len(generated))
	for _, id := range generated {
		have[id] = true
	}
	for _, it := range selItems {
		if !have[it.SupplierID] {
			return
		}
	}
	if err := s.selection.MarkGenerated(ctx, selectionID); err != nil {
		s.log.Error("mark selection generated", "selectionId", selectionID, "error", err)
	}
}

// GenerateAll generates orders for every awarded supplier of the request
// concurrently. Already-generated suppliers come back unchanged.
func (s *Service) GenerateAll(ctx context.Context, requestID uuid.UUID) (*transport.GenerateAllResponse, error) {
	sel, err := s.selection.GetForRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if sel.Status != selectionrepo.StatusApproved && sel.Status != selectionrepo.StatusGenerated {
		return nil, apperr.InvalidTransition("purchase orders can only be generated from an approved final selection")
	}

	selItems, err := s.selection.GetItems(ctx, sel.ID)
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]bool)
	var supplierIDs []uuid.UUID
	for _, it := range selItems {
		if !seen[it.SupplierID] {
			seen[it.SupplierID] = true
			supplierIDs = append(supplierIDs, it.SupplierID)
		}
	}

	var mu sync.Mutex
	resp := transport.GenerateAllResponse{Orders: make([]transport.OrderResponse, 0, len(supplierIDs))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, supplierID := range supplierIDs {
		g.Go(func() error {
			order, err := s.Generate(gctx, requestID, transport.GenerateOrderRequest{SupplierID: supplierID})
			if err != nil {
				return fmt.Errorf("generate order for supplier %s: %w", supplierID, err)
			}
			mu.Lock()
			resp.Orders = append(resp.Orders, *order)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(resp.Orders, func(i, j int) bool { return resp.Orders[i].Code < resp.Orders[j].Code })
	return &resp, nil
}

// buildOrder assembles the order snapshot: buyer and supplier identities,
// awarded items with delivery terms pulled from the winning quotation, and
// server-side totals.
func (s *Service) buildOrder(
	ctx context.Context,
	requestID uuid.UUID,
	sel *selectionrepo.FinalSelection,
	awarded []selectionrepo.SelectionItem,
	req transport.GenerateOrderRequest,
) (*repository.PurchaseOrder, []repository.OrderItem, error) {
	request, err := s.quotation.GetRequest(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	buyer, err := s.catalog.GetBuyerProfile(ctx)
	if err != nil {
		return nil, nil, err
	}
	supplier, err := s.catalog.GetSupplier(ctx, req.SupplierID)
	if err != nil {
		return nil, nil, err
	}
	lines, err := s.catalog.GetRequirementLines(ctx, request.RequirementID)
	if err != nil {
		return nil, nil, err
	}
	lineByID := make(map[uuid.UUID]catalog.RequirementLine, len(lines))
	for _, l := range lines {
		lineByID[l.ID] = l
	}

	// Delivery days and commercial terms come from the winning quotation.
	var paymentTerms *string
	var taxOverride *decimal.Decimal
	quotationCurrency := ""
	deliveryByLine := make(map[uuid.UUID]int)
	qsRows, err := s.quotation.ListSuppliers(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	for _, qs := range qsRows {
		if qs.SupplierID != req.SupplierID {
			continue
		}
		quotation, err := s.quotation.GetQuotationBySupplier(ctx, qs.ID)
		if err != nil {
			if apperr.GetKind(err) == apperr.KindNotFound {
				break
			}
			return nil, nil, err
		}
		paymentTerms = quotation.PaymentTerms
		taxOverride = quotation.TaxRateOverride
		quotationCurrency = quotation.Currency
		qItems, err := s.quotation.GetQuotationItems(ctx, quotation.ID)
		if err != nil {
			return nil, nil, err
		}
		for _, it := range qItems {
			deliveryByLine[it.RequirementLineID] = it.DeliveryDays
		}
		break
	}

	// Orders are denominated in the quotation currency when all awarded items
	// share it, otherwise in the base currency using normalized prices.
	uniform := quotationCurrency != ""
	for _, it := range awarded {
		if it.Currency != quotationCurrency {
			uniform = false
			break
		}
	}
	currency := quotationCurrency
	if !uniform {
		currency = s.cfg.GetBaseCurrency()
	}

	now := time.Now()
	normalizedSubtotal := decimal.Zero
	items := make([]repository.OrderItem, 0, len(awarded))
	for _, it := range awarded {
		line := lineByID[it.RequirementLineID]
		unitPrice := it.UnitPrice
		if !uniform {
			unitPrice = it.NormalizedUnitPrice
		}
		items = append(items, repository.OrderItem{
			ID:                uuid.New(),
			RequirementLineID: it.RequirementLineID,
			Kind:              string(line.Kind),
			Description:       line.Description,
			Quantity:          it.Quantity,
			Unit:              line.Unit,
			UnitPrice:         unitPrice,
			TotalPrice:        unitPrice.Mul(it.Quantity),
			DeliveryDays:      deliveryByLine[it.RequirementLineID],
		})
		normalizedSubtotal = normalizedSubtotal.Add(it.NormalizedTotal)
	}

	taxRate := s.cfg.GetDefaultTaxRate()
	if taxOverride != nil {
		taxRate = *taxOverride
	}
	totals := ComputeTotals(items, taxRate)
	normalizedTotal := normalizedSubtotal.Add(normalizedSubtotal.Mul(taxRate)).Round(2)

	code, err := s.repo.NextCode(ctx)
	if err != nil {
		return nil, nil, err
	}

	order := &repository.PurchaseOrder{
		ID:               uuid.New(),
		Code:             code,
		RequestID:        requestID,
		FinalSelectionID: sel.ID,
		SupplierID:       req.SupplierID,

		BuyerName:    buyer.Name,
		BuyerTaxID:   buyer.TaxID,
		BuyerAddress: buyer.Address,
		BuyerEmail:   buyer.Email,

		SupplierName:    supplier.Name,
		SupplierTaxID:   supplier.TaxID,
		SupplierEmail:   supplier.Email,
		SupplierPhone:   phone.NormalizeE164(supplier.Phone),
		SupplierAddress: supplier.Address,
		SupplierContact: supplier.ContactName,

		Status:          repository.StatusPending,
		Currency:        currency,
		Subtotal:        totals.Subtotal,
		TaxRate:         totals.TaxRate,
		TaxAmount:       totals.TaxAmount,
		Total:           totals.Total,
		NormalizedTotal: normalizedTotal,
		PaymentTerms:    paymentTerms,
		Notes:           nilIfEmpty(req.Notes),

		CreatedAt: now,
		UpdatedAt: now,
	}
	return order, items, nil
}

// Get returns one purchase order with items and signatures.
func (s *Service) Get(ctx context.Context, orderID uuid.UUID) (*transport.OrderResponse, error) {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.toOrderResponse(ctx, order)
}

// ListForRequest returns all orders of a quotation request.
func (s *Service) ListForRequest(ctx context.Context, requestID uuid.UUID) ([]transport.OrderResponse, error) {
	orders, err := s.repo.ListForRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	resp := make([]transport.OrderResponse, 0, len(orders))
	for i := range orders {
		r, err := s.toOrderResponse(ctx, &orders[i])
		if err != nil {
			return nil, err
		}
		resp = append(resp, *r)
	}
	return resp, nil
}

// ── Cross-module collaborators ────────────────────────────────────────────────

// ListGeneratedSuppliers implements the quotation module's order reader.
func (s *Service) ListGeneratedSuppliers(ctx context.Context, finalSelectionID uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.ListGeneratedSuppliers(ctx, finalSelectionID)
}

// CancelOpenForRequest implements the quotation module's reset cascade.
func (s *Service) CancelOpenForRequest(ctx context.Context, requestID uuid.UUID, reason string) ([]uuid.UUID, error) {
	ids, err := s.repo.CancelOpenForRequest(ctx, requestID, reason)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		s.log.Info("purchase orders cancelled by reset", "requestId", requestID, "count", len(ids))
	}
	return ids, nil
}

func (s *Service) toOrderResponse(ctx context.Context, order *repository.PurchaseOrder) (*transport.OrderResponse, error) {
	items, err := s.repo.GetItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	sigs, err := s.repo.ListSignatures(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	resp := transport.OrderResponse{
		ID:               order.ID,
		Code:             order.Code,
		RequestID:        order.RequestID,
		FinalSelectionID: order.FinalSelectionID,
		SupplierID:       order.SupplierID,
		Buyer: transport.PartySnapshot{
			Name:    order.BuyerName,
			TaxID:   order.BuyerTaxID,
			Address: order.BuyerAddress,
			Email:   order.BuyerEmail,
		},
		Supplier: transport.PartySnapshot{
			Name:    order.SupplierName,
			TaxID:   order.SupplierTaxID,
			Address: order.SupplierAddress,
			Email:   order.SupplierEmail,
			Phone:   order.SupplierPhone,
			Contact: order.SupplierContact,
		},
		Status:          order.Status,
		Currency:        order.Currency,
		Subtotal:        order.Subtotal,
		TaxRate:         order.TaxRate,
		TaxAmount:       order.TaxAmount,
		Total:           order.Total,
		NormalizedTotal: order.NormalizedTotal,
		PaymentTerms:    order.PaymentTerms,
		Notes:           order.Notes,
		RejectionReason: order.RejectionReason,
		RejectedBy:      order.RejectedBy,
		RejectedAt:      order.RejectedAt,
		Items:           make([]transport.OrderItemResponse, 0, len(items)),
		Signatures:      make([]transport.SignatureResponse, 0, len(sigs)),
		CreatedAt:       order.CreatedAt,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, transport.OrderItemResponse{
			RequirementLineID: it.RequirementLineID,
			Kind:              it.Kind,
			Description:       it.Description,
			Quantity:          it.Quantity,
			Unit:              it.Unit,
			UnitPrice:         it.UnitPrice,
			TotalPrice:        it.TotalPrice,
			DeliveryDays:      it.DeliveryDays,
		})
	}
	for _, sig := range sigs {
		resp.Signatures = append(resp.Signatures, transport.SignatureResponse{
			Level:     sig.Level,
			SignerID:  sig.SignerID,
			ObjectKey: sig.ObjectKey,
			SignedAt:  sig.SignedAt,
		})
	}
	return &resp, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
