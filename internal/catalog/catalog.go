// Package catalog exposes read-only master data the workflow engine consumes:
// requirement lines, supplier records, and the buyer profile. Master-data
// maintenance itself lives outside this application.
package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineKind distinguishes article lines (quantity x unit price) from service
// lines (flat price).
type LineKind string

const (
	LineKindArticle LineKind = "article"
	LineKindService LineKind = "service"
)

// RequirementLine is one solicited article or service of a requirement.
type RequirementLine struct {
	ID            uuid.UUID
	RequirementID uuid.UUID
	Kind          LineKind
	ReferenceID   uuid.UUID // article or service master-data ID
	Description   string
	Quantity      decimal.Decimal // meaningful for articles only
	Unit          string
}

// EffectiveQuantity is the quantity totals are computed with. Service lines
// are flat-priced, so they always count as one regardless of what master data
// stores in the quantity column.
func (l RequirementLine) EffectiveQuantity() decimal.Decimal {
	if l.Kind == LineKindService || !l.Quantity.IsPositive() {
		return decimal.NewFromInt(1)
	}
	return l.Quantity
}

// Supplier is the master-data record of a solicitable supplier.
type Supplier struct {
	ID          uuid.UUID
	Name        string
	TaxID       string
	Email       string
	Phone       string
	Address     string
	ContactName string
}

// BuyerProfile is the purchasing organization's identity, snapshotted onto
// purchase orders at generation time.
type BuyerProfile struct {
	Name    string
	TaxID   string
	Address string
	Email   string
}

// Provider supplies requirement and master data to the workflow engine.
type Provider interface {
	GetRequirementLines(ctx context.Context, requirementID uuid.UUID) ([]RequirementLine, error)
	GetSupplier(ctx context.Context, supplierID uuid.UUID) (*Supplier, error)
	GetSuppliers(ctx context.Context, supplierIDs []uuid.UUID) ([]Supplier, error)
	GetBuyerProfile(ctx context.Context) (*BuyerProfile, error)
}
