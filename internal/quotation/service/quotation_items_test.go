package service

import (
	"testing"

	"procurement_backend/internal/catalog"
	"procurement_backend/internal/quotation/repository"
	"procurement_backend/internal/quotation/transport"
	"procurement_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func draftFixtures() (map[uuid.UUID]bool, map[uuid.UUID]catalog.RequirementLine) {
	solicited := map[uuid.UUID]bool{lineOne: true, lineTwo: true}
	byID := map[uuid.UUID]catalog.RequirementLine{}
	for _, l := range testLines() {
		byID[l.ID] = l
	}
	return solicited, byID
}

func TestBuildQuotationItemsTotalCoversAllItems(t *testing.T) {
	solicited, byID := draftFixtures()
	req := transport.RecordQuotationRequest{
		Currency: "PEN",
		Items: []transport.QuotationItemInput{
			{RequirementLineID: lineOne, Status: repository.ItemQuoted, UnitPrice: decimal.NewFromInt(10)},
			{RequirementLineID: lineTwo, Status: repository.ItemQuoted, UnitPrice: decimal.NewFromInt(500)},
		},
	}

	items, total, err := buildQuotationItems(req, solicited, byID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}

	// Line one is an article with quantity 10; line two a flat-priced service.
	want := decimal.NewFromInt(600)
	if !total.Equal(want) {
		t.Errorf("total = %s, want %s", total, want)
	}
}

func TestBuildQuotationItemsRejectsForeignItemCurrency(t *testing.T) {
	solicited, byID := draftFixtures()
	req := transport.RecordQuotationRequest{
		Currency: "PEN",
		Items: []transport.QuotationItemInput{
			{RequirementLineID: lineOne, Status: repository.ItemQuoted, UnitPrice: decimal.NewFromInt(10), Currency: "USD"},
		},
	}

	_, _, err := buildQuotationItems(req, solicited, byID)
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("mismatched item currency must fail validation, got %v", err)
	}
}

func TestBuildQuotationItemsZeroesNonQuotedFields(t *testing.T) {
	solicited, byID := draftFixtures()
	reason := "discontinued"
	req := transport.RecordQuotationRequest{
		Currency: "PEN",
		Items: []transport.QuotationItemInput{
			{RequirementLineID: lineOne, Status: repository.ItemNotAvailable, UnitPrice: decimal.NewFromInt(99), DeliveryDays: 7, Reason: reason},
		},
	}

	items, total, err := buildQuotationItems(req, solicited, byID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !items[0].UnitPrice.IsZero() || items[0].DeliveryDays != 0 {
		t.Error("NOT_AVAILABLE items must carry no price or delivery days")
	}
	if !total.IsZero() {
		t.Errorf("total = %s, want 0", total)
	}
}
