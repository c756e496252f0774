package service

import (
	"procurement_backend/internal/catalog"
	quotationrepo "procurement_backend/internal/quotation/repository"

	"github.com/google/uuid"
)

// Assignment awards one requirement line to one supplier.
type Assignment struct {
	LineID     uuid.UUID
	SupplierID uuid.UUID
}

// CoverageResult is the outcome of validating a proposed selection against
// the requirement and the submitted offers.
type CoverageResult struct {
	MissingLines  []uuid.UUID // quoted requirement lines with no assignment
	UnknownLines  []uuid.UUID // assigned lines not in the requirement
	InvalidAwards []uuid.UUID // lines awarded to a supplier without a QUOTED submitted offer
	UnquotedLines []uuid.UUID // lines no supplier quoted; exempt from coverage, never awardable
	Offers        map[uuid.UUID]quotationrepo.SubmittedOffer // line -> winning offer
}

// Complete reports whether the selection covers every line with a valid award.
func (r CoverageResult) Complete() bool {
	return len(r.MissingLines) == 0 && len(r.UnknownLines) == 0 && len(r.InvalidAwards) == 0
}

// ValidateCoverage checks that every quoted requirement line is awarded
// exactly once and that each award points at a QUOTED item from a submitted
// quotation of the awarded supplier. Offers from other statuses never
// qualify. Lines no supplier quoted at all (every answer NOT_AVAILABLE or
// missing) are exempt from mandatory coverage and reported separately, so a
// universally unavailable line cannot deadlock the adjudication.
func ValidateCoverage(
	lines []catalog.RequirementLine,
	assignments []Assignment,
	offers []quotationrepo.SubmittedOffer,
) CoverageResult {
	result := CoverageResult{Offers: make(map[uuid.UUID]quotationrepo.SubmittedOffer)}

	lineSet := make(map[uuid.UUID]bool, len(lines))
	for _, l := range lines {
		lineSet[l.ID] = true
	}

	quoted := make(map[uuid.UUID]map[uuid.UUID]quotationrepo.SubmittedOffer) // line -> supplier -> offer
	for _, o := range offers {
		if o.Status != quotationrepo.ItemQuoted {
			continue
		}
		if quoted[o.RequirementLineID] == nil {
			quoted[o.RequirementLineID] = make(map[uuid.UUID]quotationrepo.SubmittedOffer)
		}
		quoted[o.RequirementLineID][o.SupplierID] = o
	}

	assigned := make(map[uuid.UUID]bool, len(assignments))
	for _, a := range assignments {
		if !lineSet[a.LineID] {
			result.UnknownLines = append(result.UnknownLines, a.LineID)
			continue
		}
		assigned[a.LineID] = true
		offer, ok := quoted[a.LineID][a.SupplierID]
		if !ok {
			result.InvalidAwards = append(result.InvalidAwards, a.LineID)
			continue
		}
		result.Offers[a.LineID] = offer
	}

	for _, l := range lines {
		if assigned[l.ID] {
			continue
		}
		if len(quoted[l.ID]) == 0 {
			result.UnquotedLines = append(result.UnquotedLines, l.ID)
			continue
		}
		result.MissingLines = append(result.MissingLines, l.ID)
	}

	return result
}
