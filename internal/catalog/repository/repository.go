package repository

import (
	"context"
	"errors"

	"procurement_backend/internal/catalog"
	"procurement_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the Postgres-backed catalog provider.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new catalog repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetRequirementLines returns all article and service lines of a requirement.
func (r *Repository) GetRequirementLines(ctx context.Context, requirementID uuid.UUID) ([]catalog.RequirementLine, error) {
	query := `
		SELECT id, requirement_id, kind, reference_id, description, quantity, unit
		FROM requirement_lines
		WHERE requirement_id = $1
		ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, requirementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []catalog.RequirementLine
	for rows.Next() {
		var line catalog.RequirementLine
		if err := rows.Scan(
			&line.ID, &line.RequirementID, &line.Kind, &line.ReferenceID,
			&line.Description, &line.Quantity, &line.Unit,
		); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// GetSupplier returns one supplier master-data record.
func (r *Repository) GetSupplier(ctx context.Context, supplierID uuid.UUID) (*catalog.Supplier, error) {
	query := `
		SELECT id, name, tax_id, email, phone, address, contact_name
		FROM suppliers
		WHERE id = $1`

	var s catalog.Supplier
	err := r.pool.QueryRow(ctx, query, supplierID).Scan(
		&s.ID, &s.Name, &s.TaxID, &s.Email, &s.Phone, &s.Address, &s.ContactName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("supplier not found")
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSuppliers returns the supplier records for the given IDs. Missing IDs are
// reported as a NotFound error so solicitation never references ghost suppliers.
func (r *Repository) GetSuppliers(ctx context.Context, supplierIDs []uuid.UUID) ([]catalog.Supplier, error) {
	if len(supplierIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, name, tax_id, email, phone, address, contact_name
		FROM suppliers
		WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, supplierIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[uuid.UUID]bool, len(supplierIDs))
	var suppliers []catalog.Supplier
	for rows.Next() {
		var s catalog.Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.TaxID, &s.Email, &s.Phone, &s.Address, &s.ContactName); err != nil {
			return nil, err
		}
		found[s.ID] = true
		suppliers = append(suppliers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range supplierIDs {
		if !found[id] {
			return nil, apperr.NotFound("supplier not found").WithDetails(id)
		}
	}
	return suppliers, nil
}

// GetBuyerProfile returns the purchasing organization's identity row.
func (r *Repository) GetBuyerProfile(ctx context.Context) (*catalog.BuyerProfile, error) {
	query := `
		SELECT name, tax_id, address, email
		FROM buyer_profile
		LIMIT 1`

	var b catalog.BuyerProfile
	err := r.pool.QueryRow(ctx, query).Scan(&b.Name, &b.TaxID, &b.Address, &b.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("buyer profile not configured")
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Compile-time check that Repository implements catalog.Provider.
var _ catalog.Provider = (*Repository)(nil)
