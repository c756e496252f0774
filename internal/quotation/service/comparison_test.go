package service

import (
	"testing"

	"procurement_backend/internal/catalog"
	"procurement_backend/internal/quotation/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	supplierA = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	supplierB = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	supplierC = uuid.MustParse("33333333-3333-3333-3333-333333333333")

	lineOne = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	lineTwo = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002")
)

func testLines() []catalog.RequirementLine {
	return []catalog.RequirementLine{
		{ID: lineOne, Kind: catalog.LineKindArticle, Description: "cement bags", Quantity: decimal.NewFromInt(10), Unit: "bag"},
		{ID: lineTwo, Kind: catalog.LineKindService, Description: "site survey", Quantity: decimal.NewFromInt(1), Unit: "job"},
	}
}

func quotedOffer(supplier, line uuid.UUID, price string, currency string) repository.SubmittedOffer {
	return repository.SubmittedOffer{
		SupplierID:        supplier,
		QuotationID:       uuid.New(),
		ItemID:            uuid.New(),
		RequirementLineID: line,
		Quantity:          decimal.NewFromInt(1),
		UnitPrice:         decimal.RequireFromString(price),
		Currency:          currency,
		Status:            repository.ItemQuoted,
	}
}

func TestBuildComparisonPicksCheapestPerLine(t *testing.T) {
	solicited := map[uuid.UUID][]uuid.UUID{
		supplierA: {lineOne, lineTwo},
		supplierB: {lineOne, lineTwo},
	}
	offers := []repository.SubmittedOffer{
		quotedOffer(supplierA, lineOne, "100", "PEN"),
		quotedOffer(supplierB, lineOne, "90", "PEN"),
		quotedOffer(supplierA, lineTwo, "500", "PEN"),
		quotedOffer(supplierB, lineTwo, "600", "PEN"),
	}

	cmp := BuildComparison(testLines(), solicited, offers, "PEN", decimal.NewFromFloat(3.75))

	if got := cmp.DefaultSelection[lineOne]; got != supplierB {
		t.Errorf("line one best supplier = %s, want %s", got, supplierB)
	}
	if got := cmp.DefaultSelection[lineTwo]; got != supplierA {
		t.Errorf("line two best supplier = %s, want %s", got, supplierA)
	}
}

func TestBuildComparisonNormalizesForeignCurrency(t *testing.T) {
	solicited := map[uuid.UUID][]uuid.UUID{
		supplierA: {lineOne},
		supplierB: {lineOne},
	}
	// 30 USD at rate 3.75 = 112.50 PEN, more expensive than 100 PEN.
	offers := []repository.SubmittedOffer{
		quotedOffer(supplierA, lineOne, "100", "PEN"),
		quotedOffer(supplierB, lineOne, "30", "USD"),
	}

	cmp := BuildComparison(testLines()[:1], solicited, offers, "PEN", decimal.NewFromFloat(3.75))

	best := cmp.Lines[0].Best
	if best == nil {
		t.Fatal("expected a best offer")
	}
	if best.SupplierID != supplierA {
		t.Errorf("best supplier = %s, want %s", best.SupplierID, supplierA)
	}
	want := decimal.RequireFromString("112.5")
	for _, o := range cmp.Lines[0].Offers {
		if o.SupplierID == supplierB && !o.NormalizedUnitPrice.Equal(want) {
			t.Errorf("normalized price = %s, want %s", o.NormalizedUnitPrice, want)
		}
	}
}

func TestBuildComparisonTieBreaksOnLowerSupplierID(t *testing.T) {
	solicited := map[uuid.UUID][]uuid.UUID{
		supplierA: {lineOne},
		supplierB: {lineOne},
	}
	offers := []repository.SubmittedOffer{
		quotedOffer(supplierB, lineOne, "100", "PEN"),
		quotedOffer(supplierA, lineOne, "100", "PEN"),
	}

	cmp := BuildComparison(testLines()[:1], solicited, offers, "PEN", decimal.NewFromInt(1))

	if best := cmp.Lines[0].Best; best == nil || best.SupplierID != supplierA {
		t.Errorf("tie should go to the lower supplier ID %s", supplierA)
	}
}

func TestBuildComparisonIgnoresUnsolicitedOffers(t *testing.T) {
	// Supplier B was only solicited for line one but answered line two as well.
	solicited := map[uuid.UUID][]uuid.UUID{
		supplierA: {lineOne, lineTwo},
		supplierB: {lineOne},
	}
	offers := []repository.SubmittedOffer{
		quotedOffer(supplierA, lineTwo, "500", "PEN"),
		quotedOffer(supplierB, lineTwo, "1", "PEN"),
	}

	cmp := BuildComparison(testLines(), solicited, offers, "PEN", decimal.NewFromInt(1))

	if got := cmp.DefaultSelection[lineTwo]; got != supplierA {
		t.Errorf("unsolicited offer must not win: got %s, want %s", got, supplierA)
	}
}

func TestBuildComparisonNotAvailableDoesNotCompete(t *testing.T) {
	solicited := map[uuid.UUID][]uuid.UUID{
		supplierA: {lineOne},
		supplierB: {lineOne},
	}
	na := quotedOffer(supplierB, lineOne, "0", "PEN")
	na.Status = repository.ItemNotAvailable
	offers := []repository.SubmittedOffer{
		quotedOffer(supplierA, lineOne, "200", "PEN"),
		na,
	}

	cmp := BuildComparison(testLines()[:1], solicited, offers, "PEN", decimal.NewFromInt(1))

	if best := cmp.Lines[0].Best; best == nil || best.SupplierID != supplierA {
		t.Error("NOT_AVAILABLE offers must never be the best offer")
	}
	if len(cmp.Lines[0].Offers) != 2 {
		t.Errorf("offers shown = %d, want 2 (NOT_AVAILABLE stays visible)", len(cmp.Lines[0].Offers))
	}
}

func TestRankingPrefersFullCoverage(t *testing.T) {
	solicited := map[uuid.UUID][]uuid.UUID{
		supplierA: {lineOne, lineTwo},
		supplierB: {lineOne, lineTwo},
	}
	// B is cheaper on its single quoted line but only covers half.
	offers := []repository.SubmittedOffer{
		quotedOffer(supplierA, lineOne, "100", "PEN"),
		quotedOffer(supplierA, lineTwo, "100", "PEN"),
		quotedOffer(supplierB, lineOne, "10", "PEN"),
	}

	cmp := BuildComparison(testLines(), solicited, offers, "PEN", decimal.NewFromInt(1))

	if len(cmp.Ranking) != 2 {
		t.Fatalf("ranking size = %d, want 2", len(cmp.Ranking))
	}
	if cmp.Ranking[0].SupplierID != supplierA {
		t.Errorf("full coverage must rank first: got %s", cmp.Ranking[0].SupplierID)
	}
	if !cmp.Ranking[0].FullCoverage {
		t.Error("supplier A should have full coverage")
	}
	if cmp.Recommended == nil || *cmp.Recommended != supplierA {
		t.Error("recommended supplier should be the top of the ranking")
	}
}

func TestRankingBreaksCoverageTieOnTotal(t *testing.T) {
	solicited := map[uuid.UUID][]uuid.UUID{
		supplierA: {lineOne, lineTwo},
		supplierC: {lineOne, lineTwo},
	}
	offers := []repository.SubmittedOffer{
		quotedOffer(supplierA, lineOne, "100", "PEN"),
		quotedOffer(supplierA, lineTwo, "100", "PEN"),
		quotedOffer(supplierC, lineOne, "80", "PEN"),
		quotedOffer(supplierC, lineTwo, "80", "PEN"),
	}

	cmp := BuildComparison(testLines(), solicited, offers, "PEN", decimal.NewFromInt(1))

	if cmp.Ranking[0].SupplierID != supplierC {
		t.Errorf("cheaper full-coverage supplier should rank first: got %s", cmp.Ranking[0].SupplierID)
	}
}

func TestRankingPenalizesNotAvailable(t *testing.T) {
	solicited := map[uuid.UUID][]uuid.UUID{
		supplierA: {lineOne, lineTwo},
		supplierB: {lineOne, lineTwo},
	}
	naB := quotedOffer(supplierB, lineTwo, "0", "PEN")
	naB.Status = repository.ItemNotAvailable
	offers := []repository.SubmittedOffer{
		quotedOffer(supplierA, lineOne, "100", "PEN"),
		{SupplierID: supplierA, RequirementLineID: lineTwo, Quantity: decimal.NewFromInt(1), Status: repository.ItemNotQuoted},
		quotedOffer(supplierB, lineOne, "100", "PEN"),
		naB,
	}

	cmp := BuildComparison(testLines(), solicited, offers, "PEN", decimal.NewFromInt(1))

	// Same coverage and totals; A's silence beats B's explicit NOT_AVAILABLE.
	if cmp.Ranking[0].SupplierID != supplierA {
		t.Errorf("fewer NOT_AVAILABLE lines should rank first: got %s", cmp.Ranking[0].SupplierID)
	}
}

func TestRankingExcludesSuppliersWithoutSubmission(t *testing.T) {
	// Supplier A was solicited but never submitted anything; B is a real
	// bidder with one quoted line and one NOT_AVAILABLE.
	solicited := map[uuid.UUID][]uuid.UUID{
		supplierA: {lineOne, lineTwo},
		supplierB: {lineOne, lineTwo},
	}
	naB := quotedOffer(supplierB, lineTwo, "0", "PEN")
	naB.Status = repository.ItemNotAvailable
	offers := []repository.SubmittedOffer{
		quotedOffer(supplierB, lineOne, "100", "PEN"),
		naB,
	}

	cmp := BuildComparison(testLines(), solicited, offers, "PEN", decimal.NewFromInt(1))

	if len(cmp.Ranking) != 1 {
		t.Fatalf("ranking size = %d, want 1 (silent suppliers carry no score)", len(cmp.Ranking))
	}
	if cmp.Ranking[0].SupplierID != supplierB {
		t.Errorf("ranking[0] = %s, want %s", cmp.Ranking[0].SupplierID, supplierB)
	}
	if cmp.Recommended == nil || *cmp.Recommended != supplierB {
		t.Error("the only real bidder should be recommended")
	}
}

func TestBuildComparisonNoOffers(t *testing.T) {
	solicited := map[uuid.UUID][]uuid.UUID{supplierA: {lineOne}}

	cmp := BuildComparison(testLines()[:1], solicited, nil, "PEN", decimal.NewFromInt(1))

	if cmp.Lines[0].Best != nil {
		t.Error("no offers means no best offer")
	}
	if cmp.Recommended != nil {
		t.Error("no quoted lines means no recommendation")
	}
	if len(cmp.DefaultSelection) != 0 {
		t.Error("default selection should be empty")
	}
}
