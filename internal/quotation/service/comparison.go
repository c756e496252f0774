package service

import (
	"sort"

	"procurement_backend/internal/catalog"
	"procurement_backend/internal/quotation/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Comparison is the full side-by-side view of submitted quotations: per-line
// offers with a highlighted best, a supplier ranking, and a default selection
// that picks the cheapest offer per line. All cross-currency comparisons use
// amounts normalized to the base currency at the current sale rate.
type Comparison struct {
	BaseCurrency     string
	ExchangeRate     decimal.Decimal
	Lines            []LineComparison
	Ranking          []SupplierScore
	Recommended      *uuid.UUID
	DefaultSelection map[uuid.UUID]uuid.UUID // requirement line -> supplier
}

// LineComparison holds every offer made for one requirement line.
type LineComparison struct {
	LineID      uuid.UUID
	Description string
	Kind        string
	Quantity    decimal.Decimal
	Unit        string
	Offers      []LineOffer
	Best        *LineOffer
}

// LineOffer is one supplier's answer for one line. NormalizedUnitPrice is the
// unit price converted to the base currency; it is zero unless Status is
// QUOTED.
type LineOffer struct {
	SupplierID          uuid.UUID
	QuotationID         uuid.UUID
	ItemID              uuid.UUID
	Status              string
	UnitPrice           decimal.Decimal
	Currency            string
	NormalizedUnitPrice decimal.Decimal
	DeliveryDays        int
}

// SupplierScore aggregates one supplier's standing across the request.
type SupplierScore struct {
	SupplierID      uuid.UUID
	SolicitedLines  int
	QuotedLines     int
	NotAvailable    int
	FullCoverage    bool
	CoveragePct     decimal.Decimal
	NormalizedTotal decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// BuildComparison assembles the comparison table from submitted offers. Only
// QUOTED items compete, a supplier's offer on a line counts only when the
// supplier was solicited for that line, and the ranking covers only suppliers
// that actually submitted a quotation: a solicited supplier who never
// responded has no score and cannot outrank a real bidder.
func BuildComparison(
	lines []catalog.RequirementLine,
	solicited map[uuid.UUID][]uuid.UUID,
	offers []repository.SubmittedOffer,
	baseCurrency string,
	saleRate decimal.Decimal,
) Comparison {
	solicitedSet := make(map[uuid.UUID]map[uuid.UUID]bool, len(solicited))
	for supplierID, lineIDs := range solicited {
		set := make(map[uuid.UUID]bool, len(lineIDs))
		for _, id := range lineIDs {
			set[id] = true
		}
		solicitedSet[supplierID] = set
	}

	normalize := func(amount decimal.Decimal, currency string) decimal.Decimal {
		if currency == baseCurrency || currency == "" {
			return amount
		}
		return amount.Mul(saleRate)
	}

	byLine := make(map[uuid.UUID][]LineOffer)
	scores := make(map[uuid.UUID]*SupplierScore)

	for _, o := range offers {
		set, wasSolicited := solicitedSet[o.SupplierID]
		if !wasSolicited || !set[o.RequirementLineID] {
			continue
		}
		score := scores[o.SupplierID]
		if score == nil {
			score = &SupplierScore{SupplierID: o.SupplierID, SolicitedLines: len(set)}
			scores[o.SupplierID] = score
		}

		offer := LineOffer{
			SupplierID:   o.SupplierID,
			QuotationID:  o.QuotationID,
			ItemID:       o.ItemID,
			Status:       o.Status,
			UnitPrice:    o.UnitPrice,
			Currency:     o.Currency,
			DeliveryDays: o.DeliveryDays,
		}
		switch o.Status {
		case repository.ItemQuoted:
			offer.NormalizedUnitPrice = normalize(o.UnitPrice, o.Currency)
			score.QuotedLines++
			score.NormalizedTotal = score.NormalizedTotal.Add(offer.NormalizedUnitPrice.Mul(o.Quantity))
		case repository.ItemNotAvailable:
			score.NotAvailable++
		}
		byLine[o.RequirementLineID] = append(byLine[o.RequirementLineID], offer)
	}

	cmp := Comparison{
		BaseCurrency:     baseCurrency,
		ExchangeRate:     saleRate,
		Lines:            make([]LineComparison, 0, len(lines)),
		DefaultSelection: make(map[uuid.UUID]uuid.UUID),
	}

	for _, line := range lines {
		lc := LineComparison{
			LineID:      line.ID,
			Description: line.Description,
			Kind:        string(line.Kind),
			Quantity:    line.Quantity,
			Unit:        line.Unit,
			Offers:      byLine[line.ID],
		}
		sort.Slice(lc.Offers, func(i, j int) bool {
			return lc.Offers[i].SupplierID.String() < lc.Offers[j].SupplierID.String()
		})
		if best := bestOffer(lc.Offers); best != nil {
			lc.Best = best
			cmp.DefaultSelection[line.ID] = best.SupplierID
		}
		cmp.Lines = append(cmp.Lines, lc)
	}

	for _, score := range scores {
		score.FullCoverage = score.SolicitedLines > 0 && score.QuotedLines == score.SolicitedLines
		if score.SolicitedLines > 0 {
			score.CoveragePct = decimal.NewFromInt(int64(score.QuotedLines)).
				Div(decimal.NewFromInt(int64(score.SolicitedLines))).
				Mul(hundred).Round(2)
		}
		cmp.Ranking = append(cmp.Ranking, *score)
	}
	sortRanking(cmp.Ranking)
	if len(cmp.Ranking) > 0 && cmp.Ranking[0].QuotedLines > 0 {
		id := cmp.Ranking[0].SupplierID
		cmp.Recommended = &id
	}

	return cmp
}

// bestOffer picks the cheapest QUOTED offer by normalized unit price, breaking
// ties on the lower supplier ID so the outcome is stable.
func bestOffer(offers []LineOffer) *LineOffer {
	var best *LineOffer
	for i := range offers {
		o := &offers[i]
		if o.Status != repository.ItemQuoted {
			continue
		}
		if best == nil {
			best = o
			continue
		}
		switch o.NormalizedUnitPrice.Cmp(best.NormalizedUnitPrice) {
		case -1:
			best = o
		case 0:
			if o.SupplierID.String() < best.SupplierID.String() {
				best = o
			}
		}
	}
	if best == nil {
		return nil
	}
	copied := *best
	return &copied
}

// sortRanking orders suppliers best-first: full coverage beats partial, fewer
// NOT_AVAILABLE lines beat more, then lower normalized total, then higher
// coverage percentage, then supplier ID for determinism.
func sortRanking(ranking []SupplierScore) {
	sort.Slice(ranking, func(i, j int) bool {
		a, b := ranking[i], ranking[j]
		if a.FullCoverage != b.FullCoverage {
			return a.FullCoverage
		}
		if a.NotAvailable != b.NotAvailable {
			return a.NotAvailable < b.NotAvailable
		}
		if c := a.NormalizedTotal.Cmp(b.NormalizedTotal); c != 0 {
			// Only meaningful when both quoted something; a zero total from
			// an empty quotation must not outrank real prices.
			if a.QuotedLines > 0 && b.QuotedLines > 0 {
				return c < 0
			}
			return a.QuotedLines > b.QuotedLines
		}
		if c := a.CoveragePct.Cmp(b.CoveragePct); c != 0 {
			return c > 0
		}
		return a.SupplierID.String() < b.SupplierID.String()
	})
}
