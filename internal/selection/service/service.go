// Package service implements the adjudication step: recording and approving
// the final selection that awards each requirement line to a supplier.
package service

import (
	"context"
	"fmt"
	"time"

	"procurement_backend/internal/catalog"
	quotationrepo "procurement_backend/internal/quotation/repository"
	"procurement_backend/internal/rates"
	"procurement_backend/internal/selection/repository"
	"procurement_backend/internal/selection/transport"
	"procurement_backend/platform/apperr"
	"procurement_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProcurementConfig is the subset of configuration the service reads.
type ProcurementConfig interface {
	GetBaseCurrency() string
}

// Service provides business logic for final selections.
type Service struct {
	repo      *repository.Repository
	quotation *quotationrepo.Repository
	catalog   catalog.Provider
	rates     rates.Provider
	cfg       ProcurementConfig
	log       *logger.Logger
}

// New creates a new selection service.
func New(
	repo *repository.Repository,
	quotation *quotationrepo.Repository,
	cat catalog.Provider,
	rateProvider rates.Provider,
	cfg ProcurementConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:      repo,
		quotation: quotation,
		catalog:   cat,
		rates:     rateProvider,
		cfg:       cfg,
		log:       log,
	}
}

// Create records the final selection for a request. Every line with at least
// one QUOTED submitted offer must be awarded to a supplier holding such an
// offer; anything less fails with an IncompleteCoverage error naming the
// offending lines. Lines no supplier quoted are left out of the selection.
// Recreating replaces an existing draft.
func (s *Service) Create(ctx context.Context, requestID uuid.UUID, actorID uuid.UUID, req transport.CreateSelectionRequest) (*transport.SelectionResponse, error) {
	request, err := s.quotation.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != quotationrepo.StatusActive {
		return nil, apperr.InvalidTransition(fmt.Sprintf("cannot adjudicate while request is %s", request.Status))
	}

	lines, err := s.catalog.GetRequirementLines(ctx, request.RequirementID)
	if err != nil {
		return nil, err
	}
	offers, err := s.quotation.ListSubmittedOffers(ctx, requestID)
	if err != nil {
		return nil, err
	}

	assignments := make([]Assignment, len(req.Assignments))
	seen := make(map[uuid.UUID]bool, len(req.Assignments))
	for i, a := range req.Assignments {
		if seen[a.LineID] {
			return nil, apperr.Validation(fmt.Sprintf("line %s is awarded more than once", a.LineID))
		}
		seen[a.LineID] = true
		assignments[i] = Assignment{LineID: a.LineID, SupplierID: a.SupplierID}
	}

	coverage := ValidateCoverage(lines, assignments, offers)
	if !coverage.Complete() {
		return nil, apperr.IncompleteCoverage("every quoted requirement line must be awarded a valid offer").
			WithDetails(map[string]any{
				"missingLines":  coverage.MissingLines,
				"unknownLines":  coverage.UnknownLines,
				"invalidAwards": coverage.InvalidAwards,
				"unquotedLines": coverage.UnquotedLines,
			})
	}

	rate, err := s.rates.CurrentSaleRate(ctx)
	if err != nil {
		return nil, err
	}
	baseCurrency := s.cfg.GetBaseCurrency()
	normalize := func(amount decimal.Decimal, currency string) decimal.Decimal {
		if currency == baseCurrency || currency == "" {
			return amount
		}
		return amount.Mul(rate.Rate)
	}

	now := time.Now()
	sel := repository.FinalSelection{
		ID:           uuid.New(),
		RequestID:    requestID,
		Status:       repository.StatusDraft,
		BaseCurrency: baseCurrency,
		Notes:        nilIfEmpty(req.Notes),
		CreatedBy:    actorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	items := make([]repository.SelectionItem, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		offer, awarded := coverage.Offers[line.ID]
		if !awarded {
			continue
		}
		normalizedUnit := normalize(offer.UnitPrice, offer.Currency)
		itemTotal := normalizedUnit.Mul(offer.Quantity)
		items = append(items, repository.SelectionItem{
			ID:                  uuid.New(),
			RequirementLineID:   line.ID,
			SupplierID:          offer.SupplierID,
			QuotationItemID:     offer.ItemID,
			Quantity:            offer.Quantity,
			UnitPrice:           offer.UnitPrice,
			Currency:            offer.Currency,
			NormalizedUnitPrice: normalizedUnit,
			NormalizedTotal:     itemTotal,
		})
		total = total.Add(itemTotal)
	}
	sel.NormalizedTotal = total

	if err := s.repo.Replace(ctx, &sel, items); err != nil {
		return nil, err
	}

	s.log.Info("final selection recorded", "requestId", requestID, "selectionId", sel.ID, "total", total.String())
	resp := toSelectionResponse(&sel, items)
	return &resp, nil
}

// Approve freezes the selection. From here on purchase orders can be
// generated and, once they all exist, the request sign-off chain opens.
func (s *Service) Approve(ctx context.Context, selectionID uuid.UUID, actorID uuid.UUID) (*transport.SelectionResponse, error) {
	sel, err := s.repo.Approve(ctx, selectionID, actorID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetItems(ctx, selectionID)
	if err != nil {
		return nil, err
	}

	s.log.Transition("final_selection", selectionID.String(), repository.StatusDraft, repository.StatusApproved, actorID.String())
	resp := toSelectionResponse(sel, items)
	return &resp, nil
}

// GetForRequest returns the selection of a request with its items.
func (s *Service) GetForRequest(ctx context.Context, requestID uuid.UUID) (*transport.SelectionResponse, error) {
	sel, err := s.repo.GetForRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetItems(ctx, sel.ID)
	if err != nil {
		return nil, err
	}
	resp := toSelectionResponse(sel, items)
	return &resp, nil
}

func toSelectionResponse(sel *repository.FinalSelection, items []repository.SelectionItem) transport.SelectionResponse {
	resp := transport.SelectionResponse{
		ID:              sel.ID,
		RequestID:       sel.RequestID,
		Status:          sel.Status,
		BaseCurrency:    sel.BaseCurrency,
		NormalizedTotal: sel.NormalizedTotal,
		Notes:           sel.Notes,
		CreatedBy:       sel.CreatedBy,
		ApprovedBy:      sel.ApprovedBy,
		ApprovedAt:      sel.ApprovedAt,
		CreatedAt:       sel.CreatedAt,
		Items:           make([]transport.SelectionItemResponse, 0, len(items)),
	}
	for _, it := range items {
		resp.Items = append(resp.Items, transport.SelectionItemResponse{
			RequirementLineID:   it.RequirementLineID,
			SupplierID:          it.SupplierID,
			Quantity:            it.Quantity,
			UnitPrice:           it.UnitPrice,
			Currency:            it.Currency,
			NormalizedUnitPrice: it.NormalizedUnitPrice,
			NormalizedTotal:     it.NormalizedTotal,
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

// ── Cross-module reads ────────────────────────────────────────────────────────

// Summary is the narrow selection view other modules consume.
type Summary struct {
	ID              uuid.UUID
	Status          string
	NormalizedTotal decimal.Decimal
	SupplierIDs     []uuid.UUID
}

// GetSummaryForRequest returns the selection summary used by the signature
// readiness gate and purchase order generation.
func (s *Service) GetSummaryForRequest(ctx context.Context, requestID uuid.UUID) (*Summary, error) {
	sel, err := s.repo.GetForRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetItems(ctx, sel.ID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool)
	summary := Summary{ID: sel.ID, Status: sel.Status, NormalizedTotal: sel.NormalizedTotal}
	for _, it := range items {
		if !seen[it.SupplierID] {
			seen[it.SupplierID] = true
			summary.SupplierIDs = append(summary.SupplierIDs, it.SupplierID)
		}
	}
	return &summary, nil
}
