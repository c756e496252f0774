package service

import (
	"testing"

	"procurement_backend/internal/catalog"
	quotationrepo "procurement_backend/internal/quotation/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	supplierA = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	supplierB = uuid.MustParse("22222222-2222-2222-2222-222222222222")

	lineOne = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	lineTwo = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002")
)

func lines() []catalog.RequirementLine {
	return []catalog.RequirementLine{
		{ID: lineOne, Quantity: decimal.NewFromInt(5)},
		{ID: lineTwo, Quantity: decimal.NewFromInt(1)},
	}
}

func offer(supplier, line uuid.UUID, status string) quotationrepo.SubmittedOffer {
	return quotationrepo.SubmittedOffer{
		SupplierID:        supplier,
		ItemID:            uuid.New(),
		RequirementLineID: line,
		Quantity:          decimal.NewFromInt(1),
		UnitPrice:         decimal.NewFromInt(10),
		Currency:          "PEN",
		Status:            status,
	}
}

func TestValidateCoverageComplete(t *testing.T) {
	offers := []quotationrepo.SubmittedOffer{
		offer(supplierA, lineOne, quotationrepo.ItemQuoted),
		offer(supplierB, lineTwo, quotationrepo.ItemQuoted),
	}
	assignments := []Assignment{
		{LineID: lineOne, SupplierID: supplierA},
		{LineID: lineTwo, SupplierID: supplierB},
	}

	result := ValidateCoverage(lines(), assignments, offers)

	if !result.Complete() {
		t.Fatalf("expected complete coverage, got %+v", result)
	}
	if result.Offers[lineOne].SupplierID != supplierA {
		t.Error("line one should resolve to supplier A's offer")
	}
}

func TestValidateCoverageMissingLine(t *testing.T) {
	offers := []quotationrepo.SubmittedOffer{
		offer(supplierA, lineOne, quotationrepo.ItemQuoted),
		offer(supplierB, lineTwo, quotationrepo.ItemQuoted),
	}
	assignments := []Assignment{{LineID: lineOne, SupplierID: supplierA}}

	result := ValidateCoverage(lines(), assignments, offers)

	if result.Complete() {
		t.Fatal("coverage with an unassigned quoted line must be incomplete")
	}
	if len(result.MissingLines) != 1 || result.MissingLines[0] != lineTwo {
		t.Errorf("missing lines = %v, want [%s]", result.MissingLines, lineTwo)
	}
}

func TestValidateCoverageExemptsUnquotedLines(t *testing.T) {
	// Every answer for line two is NOT_AVAILABLE, so no award can ever
	// reference it; it must not block the selection.
	offers := []quotationrepo.SubmittedOffer{
		offer(supplierA, lineOne, quotationrepo.ItemQuoted),
		offer(supplierA, lineTwo, quotationrepo.ItemNotAvailable),
		offer(supplierB, lineTwo, quotationrepo.ItemNotAvailable),
	}
	assignments := []Assignment{{LineID: lineOne, SupplierID: supplierA}}

	result := ValidateCoverage(lines(), assignments, offers)

	if !result.Complete() {
		t.Fatalf("unquoted line must not block coverage, got %+v", result)
	}
	if len(result.UnquotedLines) != 1 || result.UnquotedLines[0] != lineTwo {
		t.Errorf("unquoted lines = %v, want [%s]", result.UnquotedLines, lineTwo)
	}

	// Awarding the unquotable line anyway is still an invalid award.
	forced := append(assignments, Assignment{LineID: lineTwo, SupplierID: supplierA})
	result = ValidateCoverage(lines(), forced, offers)
	if len(result.InvalidAwards) != 1 || result.InvalidAwards[0] != lineTwo {
		t.Errorf("invalid awards = %v, want [%s]", result.InvalidAwards, lineTwo)
	}
}

func TestValidateCoverageRejectsNonQuotedAward(t *testing.T) {
	offers := []quotationrepo.SubmittedOffer{
		offer(supplierA, lineOne, quotationrepo.ItemQuoted),
		offer(supplierB, lineTwo, quotationrepo.ItemNotAvailable),
	}
	assignments := []Assignment{
		{LineID: lineOne, SupplierID: supplierA},
		{LineID: lineTwo, SupplierID: supplierB},
	}

	result := ValidateCoverage(lines(), assignments, offers)

	if result.Complete() {
		t.Fatal("awarding a NOT_AVAILABLE line must be rejected")
	}
	if len(result.InvalidAwards) != 1 || result.InvalidAwards[0] != lineTwo {
		t.Errorf("invalid awards = %v, want [%s]", result.InvalidAwards, lineTwo)
	}
}

func TestValidateCoverageRejectsSupplierWithoutOffer(t *testing.T) {
	offers := []quotationrepo.SubmittedOffer{
		offer(supplierA, lineOne, quotationrepo.ItemQuoted),
	}
	// Supplier B never quoted line one.
	assignments := []Assignment{
		{LineID: lineOne, SupplierID: supplierB},
	}

	result := ValidateCoverage(lines()[:1], assignments, offers)

	if len(result.InvalidAwards) != 1 {
		t.Errorf("invalid awards = %v, want one entry", result.InvalidAwards)
	}
}

func TestValidateCoverageUnknownLine(t *testing.T) {
	strayLine := uuid.New()
	offers := []quotationrepo.SubmittedOffer{
		offer(supplierA, lineOne, quotationrepo.ItemQuoted),
	}
	assignments := []Assignment{
		{LineID: lineOne, SupplierID: supplierA},
		{LineID: strayLine, SupplierID: supplierA},
	}

	result := ValidateCoverage(lines()[:1], assignments, offers)

	if len(result.UnknownLines) != 1 || result.UnknownLines[0] != strayLine {
		t.Errorf("unknown lines = %v, want [%s]", result.UnknownLines, strayLine)
	}
}
