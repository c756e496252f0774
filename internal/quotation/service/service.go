// Package service implements the quotation workflow: supplier solicitation,
// quotation collection, comparison and the request-level sign-off chain.
package service

import (
	"context"
	"fmt"
	"time"

	"procurement_backend/internal/catalog"
	"procurement_backend/internal/events"
	"procurement_backend/internal/quotation/repository"
	"procurement_backend/internal/quotation/transport"
	"procurement_backend/internal/rates"
	"procurement_backend/platform/apperr"
	"procurement_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SignatureStore persists captured signature images and returns the object
// key to record alongside the signature row.
type SignatureStore interface {
	UploadSignature(ctx context.Context, entityType string, entityID uuid.UUID, level int, content []byte, contentType string) (string, error)
}

// SolicitationQueuer enqueues the background email dispatch for one solicited
// supplier. Implemented by the scheduler client.
type SolicitationQueuer interface {
	EnqueueSolicitationEmail(ctx context.Context, quotationSupplierID uuid.UUID) error
}

// SelectionSummary is the narrow view of a final selection the quotation
// service needs for the signature readiness gate and the fourth-level
// threshold.
type SelectionSummary struct {
	ID              uuid.UUID
	Status          string
	NormalizedTotal decimal.Decimal
	SupplierIDs     []uuid.UUID
}

// SelectionReader reads the final selection of a request without importing
// the selection domain. Returns a NotFound error when none exists.
type SelectionReader interface {
	GetSummaryForRequest(ctx context.Context, requestID uuid.UUID) (*SelectionSummary, error)
}

// OrderReader reports which awarded suppliers already have a purchase order.
type OrderReader interface {
	ListGeneratedSuppliers(ctx context.Context, finalSelectionID uuid.UUID) ([]uuid.UUID, error)
}

// OrderCanceller cascade-cancels open purchase orders during a request reset.
type OrderCanceller interface {
	CancelOpenForRequest(ctx context.Context, requestID uuid.UUID, reason string) ([]uuid.UUID, error)
}

// ProcurementConfig is the subset of configuration the service reads.
type ProcurementConfig interface {
	GetBaseCurrency() string
}

// Service provides business logic for the quotation workflow.
type Service struct {
	repo    *repository.Repository
	catalog catalog.Provider
	rates   rates.Provider
	storage SignatureStore
	queue   SolicitationQueuer
	bus     events.Bus
	cfg     ProcurementConfig
	log     *logger.Logger

	selections SelectionReader // set after construction to break circular deps
	orders     OrderReader
	canceller  OrderCanceller
}

// New creates a new quotation service.
func New(
	repo *repository.Repository,
	cat catalog.Provider,
	rateProvider rates.Provider,
	storage SignatureStore,
	queue SolicitationQueuer,
	bus events.Bus,
	cfg ProcurementConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:    repo,
		catalog: cat,
		rates:   rateProvider,
		storage: storage,
		queue:   queue,
		bus:     bus,
		cfg:     cfg,
		log:     log,
	}
}

// SetSelectionReader injects the final-selection reader.
func (s *Service) SetSelectionReader(r SelectionReader) { s.selections = r }

// SetOrderReader injects the purchase-order reader.
func (s *Service) SetOrderReader(r OrderReader) { s.orders = r }

// SetOrderCanceller injects the purchase-order canceller used by reset.
func (s *Service) SetOrderCanceller(c OrderCanceller) { s.canceller = c }

// CreateRequest opens a quotation request for a requirement in PENDING status.
func (s *Service) CreateRequest(ctx context.Context, req transport.CreateRequestRequest) (*transport.RequestResponse, error) {
	lines, err := s.catalog.GetRequirementLines(ctx, req.RequirementID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, apperr.Validation("requirement has no lines to quote")
	}

	code, err := s.repo.NextCode(ctx, "rfq", "RFQ")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	request := repository.QuotationRequest{
		ID:            uuid.New(),
		Code:          code,
		RequirementID: req.RequirementID,
		Status:        repository.StatusPending,
		Notes:         nilIfEmpty(req.Notes),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateRequest(ctx, &request); err != nil {
		return nil, err
	}

	s.log.Info("quotation request created", "requestId", request.ID, "code", code)
	resp := toRequestResponse(&request)
	return &resp, nil
}

// SolicitSuppliers adds suppliers to the request with their solicited line
// subsets, activates a pending request, and queues the solicitation emails.
// Adding the first supplier is what moves the workflow out of PENDING.
func (s *Service) SolicitSuppliers(ctx context.Context, requestID uuid.UUID, req transport.SolicitSuppliersRequest) error {
	request, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}

	lines, err := s.catalog.GetRequirementLines(ctx, request.RequirementID)
	if err != nil {
		return err
	}
	lineSet := make(map[uuid.UUID]repository.SolicitedLine, len(lines))
	for _, l := range lines {
		lineSet[l.ID] = repository.SolicitedLine{RequirementLineID: l.ID, Kind: string(l.Kind)}
	}

	supplierIDs := make([]uuid.UUID, len(req.Suppliers))
	for i, in := range req.Suppliers {
		supplierIDs[i] = in.SupplierID
	}
	// Fails with NotFound naming the first missing supplier.
	if _, err := s.catalog.GetSuppliers(ctx, supplierIDs); err != nil {
		return err
	}

	now := time.Now()
	suppliers := make([]repository.QuotationSupplier, 0, len(req.Suppliers))
	var solicited []repository.SolicitedLine
	for _, in := range req.Suppliers {
		orderNumber, err := s.repo.NextCode(ctx, "order", "ORD")
		if err != nil {
			return err
		}
		qs := repository.QuotationSupplier{
			ID:          uuid.New(),
			RequestID:   requestID,
			SupplierID:  in.SupplierID,
			Status:      repository.SupplierPending,
			OrderNumber: orderNumber,
			Terms:       nilIfEmpty(in.Terms),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		suppliers = append(suppliers, qs)

		targets := in.LineIDs
		if len(targets) == 0 {
			for _, l := range lines {
				targets = append(targets, l.ID)
			}
		}
		for _, lineID := range targets {
			tpl, ok := lineSet[lineID]
			if !ok {
				return apperr.Validation(fmt.Sprintf("line %s does not belong to the requirement", lineID)).
					WithDetails(map[string]any{"lineId": lineID})
			}
			tpl.QuotationSupplierID = qs.ID
			solicited = append(solicited, tpl)
		}
	}

	if err := s.repo.AddSuppliers(ctx, requestID, suppliers, solicited); err != nil {
		return err
	}

	for _, qs := range suppliers {
		if err := s.queue.EnqueueSolicitationEmail(ctx, qs.ID); err != nil {
			s.log.Error("enqueue solicitation email failed", "quotationSupplierId", qs.ID, "error", err)
		}
	}

	s.bus.Publish(ctx, events.SuppliersSolicited{
		BaseEvent:   events.NewBaseEvent(),
		RequestID:   requestID,
		RequestCode: request.Code,
		SupplierIDs: supplierIDs,
	})
	s.log.Info("suppliers solicited", "requestId", requestID, "count", len(suppliers))
	return nil
}

// MarkOrderSent records that the solicitation email for one supplier went
// out. Called from the background worker after a successful send.
func (s *Service) MarkOrderSent(ctx context.Context, quotationSupplierID uuid.UUID) error {
	qs, err := s.repo.GetSupplier(ctx, quotationSupplierID)
	if err != nil {
		return err
	}
	if err := s.repo.MarkOrderSent(ctx, quotationSupplierID, time.Now()); err != nil {
		return err
	}
	s.bus.Publish(ctx, events.SolicitationOrderSent{
		BaseEvent:           events.NewBaseEvent(),
		RequestID:           qs.RequestID,
		QuotationSupplierID: qs.ID,
		SupplierID:          qs.SupplierID,
		OrderNumber:         qs.OrderNumber,
	})
	return nil
}

// RecordQuotationDraft records or replaces the draft quotation of one
// supplier. Items with any status other than QUOTED get their price and
// delivery fields zeroed so stale numbers can never leak into comparisons.
func (s *Service) RecordQuotationDraft(ctx context.Context, quotationSupplierID uuid.UUID, req transport.RecordQuotationRequest) (*transport.QuotationResponse, error) {
	qs, err := s.repo.GetSupplier(ctx, quotationSupplierID)
	if err != nil {
		return nil, err
	}
	if qs.Status == repository.SupplierCancelled {
		return nil, apperr.InvalidTransition("supplier solicitation was cancelled")
	}

	request, err := s.repo.GetRequest(ctx, qs.RequestID)
	if err != nil {
		return nil, err
	}
	if request.Status != repository.StatusActive {
		return nil, apperr.InvalidTransition(fmt.Sprintf("cannot record quotations while request is %s", request.Status))
	}

	solicited, err := s.repo.ListSolicitedLines(ctx, qs.RequestID)
	if err != nil {
		return nil, err
	}
	mySolicited := make(map[uuid.UUID]bool)
	for _, l := range solicited {
		if l.QuotationSupplierID == qs.ID {
			mySolicited[l.RequirementLineID] = true
		}
	}

	lines, err := s.catalog.GetRequirementLines(ctx, request.RequirementID)
	if err != nil {
		return nil, err
	}
	lineByID := make(map[uuid.UUID]catalog.RequirementLine, len(lines))
	for _, l := range lines {
		lineByID[l.ID] = l
	}

	now := time.Now()
	items, total, err := buildQuotationItems(req, mySolicited, lineByID)
	if err != nil {
		return nil, err
	}

	quotation := repository.SupplierQuotation{
		ID:                  uuid.New(),
		QuotationSupplierID: qs.ID,
		Status:              repository.QuotationDraft,
		ValidUntil:          req.ValidUntil,
		Currency:            req.Currency,
		Total:               total,
		Notes:               nilIfEmpty(req.Notes),
		PaymentTerms:        nilIfEmpty(req.PaymentTerms),
		TaxRateOverride:     req.TaxRateOverride,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.repo.UpsertQuotationDraft(ctx, &quotation, items); err != nil {
		return nil, err
	}

	s.log.Info("quotation draft recorded", "requestId", qs.RequestID, "supplierId", qs.SupplierID, "items", len(items))
	resp := toQuotationResponse(&quotation, items)
	return &resp, nil
}

// buildQuotationItems validates each per-line answer and computes the
// quotation's aggregate total. Every item is denominated in the quotation
// header currency; an item naming a different currency is rejected so the
// stored total always covers the whole quotation. Items with any status
// other than QUOTED keep price and delivery fields zeroed.
func buildQuotationItems(
	req transport.RecordQuotationRequest,
	mySolicited map[uuid.UUID]bool,
	lineByID map[uuid.UUID]catalog.RequirementLine,
) ([]repository.QuotationItem, decimal.Decimal, error) {
	total := decimal.Zero
	items := make([]repository.QuotationItem, 0, len(req.Items))
	seen := make(map[uuid.UUID]bool, len(req.Items))
	for _, in := range req.Items {
		if !mySolicited[in.RequirementLineID] {
			return nil, total, apperr.Validation(fmt.Sprintf("line %s was not solicited from this supplier", in.RequirementLineID))
		}
		if seen[in.RequirementLineID] {
			return nil, total, apperr.Validation(fmt.Sprintf("duplicate answer for line %s", in.RequirementLineID))
		}
		seen[in.RequirementLineID] = true
		line := lineByID[in.RequirementLineID]

		item := repository.QuotationItem{
			ID:                uuid.New(),
			RequirementLineID: in.RequirementLineID,
			Kind:              string(line.Kind),
			Quantity:          line.EffectiveQuantity(),
			Status:            in.Status,
			Notes:             nilIfEmpty(in.Notes),
			Currency:          req.Currency,
		}

		switch in.Status {
		case repository.ItemQuoted:
			if !in.UnitPrice.IsPositive() {
				return nil, total, apperr.Validation(fmt.Sprintf("line %s: quoted items need a positive unit price", in.RequirementLineID))
			}
			if in.Currency != "" && in.Currency != req.Currency {
				return nil, total, apperr.Validation(fmt.Sprintf(
					"line %s: item currency %s does not match the quotation currency %s", in.RequirementLineID, in.Currency, req.Currency))
			}
			item.UnitPrice = in.UnitPrice
			item.DeliveryDays = in.DeliveryDays
			item.TotalPrice = in.UnitPrice.Mul(line.EffectiveQuantity())
			total = total.Add(item.TotalPrice)
		case repository.ItemNotAvailable:
			if in.Reason == "" {
				return nil, total, apperr.Validation(fmt.Sprintf("line %s: NOT_AVAILABLE needs a reason", in.RequirementLineID))
			}
			item.ReasonNotAvailable = &in.Reason
		default: // NOT_QUOTED keeps everything zeroed
		}
		items = append(items, item)
	}
	return items, total, nil
}

// SubmitQuotation freezes a supplier's draft quotation. Submitted quotations
// are what the comparison engine works from.
func (s *Service) SubmitQuotation(ctx context.Context, quotationSupplierID uuid.UUID) error {
	qs, err := s.repo.GetSupplier(ctx, quotationSupplierID)
	if err != nil {
		return err
	}

	quotation, err := s.repo.SubmitQuotation(ctx, quotationSupplierID, time.Now())
	if err != nil {
		return err
	}

	s.bus.Publish(ctx, events.SupplierQuotationSubmitted{
		BaseEvent:   events.NewBaseEvent(),
		RequestID:   qs.RequestID,
		SupplierID:  qs.SupplierID,
		QuotationID: quotation.ID,
	})
	s.log.Info("supplier quotation submitted", "requestId", qs.RequestID, "supplierId", qs.SupplierID)
	return nil
}

// Compare builds the side-by-side comparison of all submitted quotations,
// normalized to the base currency at the current sale rate.
func (s *Service) Compare(ctx context.Context, requestID uuid.UUID) (*transport.ComparisonResponse, error) {
	request, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	lines, err := s.catalog.GetRequirementLines(ctx, request.RequirementID)
	if err != nil {
		return nil, err
	}
	solicited, err := s.repo.ListSolicitedLines(ctx, requestID)
	if err != nil {
		return nil, err
	}
	suppliers, err := s.repo.ListSuppliers(ctx, requestID)
	if err != nil {
		return nil, err
	}
	offers, err := s.repo.ListSubmittedOffers(ctx, requestID)
	if err != nil {
		return nil, err
	}
	rate, err := s.rates.CurrentSaleRate(ctx)
	if err != nil {
		return nil, err
	}

	bySupplierRow := make(map[uuid.UUID]uuid.UUID, len(suppliers)) // row id -> supplier id
	for _, qs := range suppliers {
		if qs.Status != repository.SupplierCancelled {
			bySupplierRow[qs.ID] = qs.SupplierID
		}
	}
	solicitedBySupplier := make(map[uuid.UUID][]uuid.UUID)
	for _, l := range solicited {
		supplierID, ok := bySupplierRow[l.QuotationSupplierID]
		if !ok {
			continue
		}
		solicitedBySupplier[supplierID] = append(solicitedBySupplier[supplierID], l.RequirementLineID)
	}

	cmp := BuildComparison(lines, solicitedBySupplier, offers, s.cfg.GetBaseCurrency(), rate.Rate)
	return s.toComparisonResponse(ctx, cmp)
}

// ExpireStaleQuotations cancels submitted quotations whose validity window
// passed. Invoked by the scheduled sweep.
func (s *Service) ExpireStaleQuotations(ctx context.Context) (int, error) {
	ids, err := s.repo.ExpireStaleQuotations(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		s.log.Info("stale quotations expired", "count", len(ids))
	}
	return len(ids), nil
}

// GetDetail returns the aggregate view of a request: suppliers with their
// quotations, signatures, and the derived wizard step.
func (s *Service) GetDetail(ctx context.Context, requestID uuid.UUID) (*transport.RequestDetailResponse, error) {
	request, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	suppliers, err := s.repo.ListSuppliers(ctx, requestID)
	if err != nil {
		return nil, err
	}
	solicited, err := s.repo.ListSolicitedLines(ctx, requestID)
	if err != nil {
		return nil, err
	}
	sigs, err := s.repo.ListSignatures(ctx, repository.EntityTypeRequest, requestID)
	if err != nil {
		return nil, err
	}

	linesBySupplierRow := make(map[uuid.UUID][]uuid.UUID)
	for _, l := range solicited {
		linesBySupplierRow[l.QuotationSupplierID] = append(linesBySupplierRow[l.QuotationSupplierID], l.RequirementLineID)
	}

	detail := transport.RequestDetailResponse{
		Request:    toRequestResponse(request),
		Suppliers:  make([]transport.SupplierResponse, 0, len(suppliers)),
		Signatures: make([]transport.SignatureResponse, 0, len(sigs)),
	}

	step := StepInput{Status: request.Status}
	for _, qs := range suppliers {
		if qs.Status == repository.SupplierCancelled {
			continue
		}
		step.SupplierCount++
		if qs.Status == repository.SupplierSent || qs.Status == repository.SupplierResponded {
			step.OrdersSent++
		}

		sr := transport.SupplierResponse{
			ID:          qs.ID,
			SupplierID:  qs.SupplierID,
			Status:      qs.Status,
			OrderNumber: qs.OrderNumber,
			Terms:       qs.Terms,
			SentAt:      qs.SentAt,
			LineIDs:     linesBySupplierRow[qs.ID],
		}
		if supplier, err := s.catalog.GetSupplier(ctx, qs.SupplierID); err == nil {
			sr.Name = supplier.Name
		}

		quotation, err := s.repo.GetQuotationBySupplier(ctx, qs.ID)
		if err == nil {
			items, err := s.repo.GetQuotationItems(ctx, quotation.ID)
			if err != nil {
				return nil, err
			}
			qr := toQuotationResponse(quotation, items)
			sr.Quotation = &qr
			if quotation.Status == repository.QuotationSubmitted {
				step.QuotationsSubmitted++
			}
		} else if apperr.GetKind(err) != apperr.KindNotFound {
			return nil, err
		}

		detail.Suppliers = append(detail.Suppliers, sr)
	}

	for _, sig := range sigs {
		detail.Signatures = append(detail.Signatures, transport.SignatureResponse{
			Level:     sig.Level,
			SignerID:  sig.SignerID,
			ObjectKey: sig.ObjectKey,
			SignedAt:  sig.SignedAt,
		})
	}

	if s.selections != nil {
		if summary, err := s.selections.GetSummaryForRequest(ctx, requestID); err == nil {
			step.HasFinalSelection = true
			step.FinalSelectionApproved = summary.Status == "APPROVED" || summary.Status == "GENERATED"
			step.SuppliersAwarded = len(summary.SupplierIDs)
			if s.orders != nil {
				if generated, err := s.orders.ListGeneratedSuppliers(ctx, summary.ID); err == nil {
					step.OrdersGenerated = len(generated)
				}
			}
		} else if apperr.GetKind(err) != apperr.KindNotFound {
			return nil, err
		}
	}

	detail.CurrentStep = CurrentStep(step)
	detail.Progress = Progress(step)
	return &detail, nil
}

// toComparisonResponse decorates the pure comparison with supplier names.
func (s *Service) toComparisonResponse(ctx context.Context, cmp Comparison) (*transport.ComparisonResponse, error) {
	resp := transport.ComparisonResponse{
		BaseCurrency:     cmp.BaseCurrency,
		ExchangeRate:     cmp.ExchangeRate,
		Lines:            make([]transport.LineComparisonResp, 0, len(cmp.Lines)),
		Recommended:      cmp.Recommended,
		DefaultSelection: cmp.DefaultSelection,
	}
	for _, lc := range cmp.Lines {
		out := transport.LineComparisonResp{
			LineID:      lc.LineID,
			Description: lc.Description,
			Kind:        lc.Kind,
			Quantity:    lc.Quantity,
			Unit:        lc.Unit,
			Offers:      make([]transport.LineOfferResp, 0, len(lc.Offers)),
		}
		for _, o := range lc.Offers {
			out.Offers = append(out.Offers, toLineOfferResp(o))
		}
		if lc.Best != nil {
			best := toLineOfferResp(*lc.Best)
			out.Best = &best
		}
		resp.Lines = append(resp.Lines, out)
	}
	for _, score := range cmp.Ranking {
		sr := transport.SupplierScoreResp{
			SupplierID:      score.SupplierID,
			SolicitedLines:  score.SolicitedLines,
			QuotedLines:     score.QuotedLines,
			NotAvailable:    score.NotAvailable,
			FullCoverage:    score.FullCoverage,
			CoveragePct:     score.CoveragePct,
			NormalizedTotal: score.NormalizedTotal,
		}
		if supplier, err := s.catalog.GetSupplier(ctx, score.SupplierID); err == nil {
			sr.Name = supplier.Name
		}
		resp.Ranking = append(resp.Ranking, sr)
	}
	return &resp, nil
}

func toLineOfferResp(o LineOffer) transport.LineOfferResp {
	return transport.LineOfferResp{
		SupplierID:          o.SupplierID,
		Status:              o.Status,
		UnitPrice:           o.UnitPrice,
		Currency:            o.Currency,
		NormalizedUnitPrice: o.NormalizedUnitPrice,
		DeliveryDays:        o.DeliveryDays,
	}
}

func toRequestResponse(req *repository.QuotationRequest) transport.RequestResponse {
	return transport.RequestResponse{
		ID:              req.ID,
		Code:            req.Code,
		RequirementID:   req.RequirementID,
		Status:          req.Status,
		Notes:           req.Notes,
		RejectionReason: req.RejectionReason,
		RejectedBy:      req.RejectedBy,
		RejectedAt:      req.RejectedAt,
		CreatedAt:       req.CreatedAt,
		UpdatedAt:       req.UpdatedAt,
	}
}

func toQuotationResponse(q *repository.SupplierQuotation, items []repository.QuotationItem) transport.QuotationResponse {
	resp := transport.QuotationResponse{
		ID:              q.ID,
		Status:          q.Status,
		ReceivedAt:      q.ReceivedAt,
		ValidUntil:      q.ValidUntil,
		Currency:        q.Currency,
		Total:           q.Total,
		PaymentTerms:    q.PaymentTerms,
		Notes:           q.Notes,
		TaxRateOverride: q.TaxRateOverride,
		Items:           make([]transport.ItemResponse, 0, len(items)),
	}
	for _, it := range items {
		resp.Items = append(resp.Items, transport.ItemResponse{
			ID:                it.ID,
			RequirementLineID: it.RequirementLineID,
			Kind:              it.Kind,
			Status:            it.Status,
			Quantity:          it.Quantity,
			UnitPrice:         it.UnitPrice,
			TotalPrice:        it.TotalPrice,
			Currency:          it.Currency,
			DeliveryDays:      it.DeliveryDays,
			Notes:             it.Notes,
			Reason:            it.ReasonNotAvailable,
		})
	}
	return resp
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
