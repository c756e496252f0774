// Package repository persists final selections.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"procurement_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Final selection lifecycle. A draft can be replaced freely; approval freezes
// it and unlocks purchase order generation; GENERATED records that every
// awarded supplier has a purchase order.
const (
	StatusDraft     = "DRAFT"
	StatusApproved  = "APPROVED"
	StatusGenerated = "GENERATED"
)

// FinalSelection is the adjudication outcome: one winning supplier per
// requirement line, totals normalized to the base currency.
type FinalSelection struct {
	ID              uuid.UUID
	RequestID       uuid.UUID
	Status          string
	BaseCurrency    string
	NormalizedTotal decimal.Decimal
	Notes           *string
	CreatedBy       uuid.UUID
	ApprovedBy      *uuid.UUID
	ApprovedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SelectionItem awards one requirement line to one supplier's quoted item.
type SelectionItem struct {
	ID                  uuid.UUID
	SelectionID         uuid.UUID
	RequirementLineID   uuid.UUID
	SupplierID          uuid.UUID
	QuotationItemID     uuid.UUID
	Quantity            decimal.Decimal
	UnitPrice           decimal.Decimal
	Currency            string
	NormalizedUnitPrice decimal.Decimal
	NormalizedTotal     decimal.Decimal
}

// Repository provides database operations for final selections.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new selection repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Replace stores the selection and its items in one transaction, replacing an
// existing draft for the same request. An approved selection can never be
// replaced.
func (r *Repository) Replace(ctx context.Context, sel *FinalSelection, items []SelectionItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := r.getForRequestTx(ctx, tx, sel.RequestID)
	if err != nil && apperr.GetKind(err) != apperr.KindNotFound {
		return err
	}
	if existing != nil {
		if existing.Status != StatusDraft {
			return apperr.InvalidTransition("final selection is already approved")
		}
		// Items cascade on delete.
		if _, err := tx.Exec(ctx, `DELETE FROM final_selections WHERE id = $1`, existing.ID); err != nil {
			return fmt.Errorf("delete draft selection: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO final_selections
			(id, request_id, status, base_currency, normalized_total, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sel.ID, sel.RequestID, sel.Status, sel.BaseCurrency, sel.NormalizedTotal,
		sel.Notes, sel.CreatedBy, sel.CreatedAt, sel.UpdatedAt)
	if isUniqueViolation(err) {
		return apperr.Conflict("final selection was created concurrently")
	}
	if err != nil {
		return fmt.Errorf("insert final selection: %w", err)
	}

	for i := range items {
		it := &items[i]
		it.SelectionID = sel.ID
		_, err := tx.Exec(ctx, `
			INSERT INTO final_selection_items
				(id, selection_id, requirement_line_id, supplier_id, quotation_item_id,
				 quantity, unit_price, currency, normalized_unit_price, normalized_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			it.ID, it.SelectionID, it.RequirementLineID, it.SupplierID, it.QuotationItemID,
			it.Quantity, it.UnitPrice, it.Currency, it.NormalizedUnitPrice, it.NormalizedTotal)
		if err != nil {
			return fmt.Errorf("insert selection item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

const selectSelectionQuery = `
	SELECT id, request_id, status, base_currency, normalized_total, notes,
	       created_by, approved_by, approved_at, created_at, updated_at
	FROM final_selections`

func scanSelection(row pgx.Row) (*FinalSelection, error) {
	var sel FinalSelection
	err := row.Scan(&sel.ID, &sel.RequestID, &sel.Status, &sel.BaseCurrency, &sel.NormalizedTotal,
		&sel.Notes, &sel.CreatedBy, &sel.ApprovedBy, &sel.ApprovedAt, &sel.CreatedAt, &sel.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("final selection not found")
	}
	if err != nil {
		return nil, err
	}
	return &sel, nil
}

// Get loads a final selection by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*FinalSelection, error) {
	return scanSelection(r.pool.QueryRow(ctx, selectSelectionQuery+` WHERE id = $1`, id))
}

// GetForRequest loads the final selection of a request, if any.
func (r *Repository) GetForRequest(ctx context.Context, requestID uuid.UUID) (*FinalSelection, error) {
	return scanSelection(r.pool.QueryRow(ctx, selectSelectionQuery+` WHERE request_id = $1`, requestID))
}

func (r *Repository) getForRequestTx(ctx context.Context, tx pgx.Tx, requestID uuid.UUID) (*FinalSelection, error) {
	return scanSelection(tx.QueryRow(ctx, selectSelectionQuery+` WHERE request_id = $1 FOR UPDATE`, requestID))
}

// GetItems returns the awarded items of a selection.
func (r *Repository) GetItems(ctx context.Context, selectionID uuid.UUID) ([]SelectionItem, error) {
	query := `
		SELECT id, selection_id, requirement_line_id, supplier_id, quotation_item_id,
		       quantity, unit_price, currency, normalized_unit_price, normalized_total
		FROM final_selection_items
		WHERE selection_id = $1`

	rows, err := r.pool.Query(ctx, query, selectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SelectionItem
	for rows.Next() {
		var it SelectionItem
		if err := rows.Scan(&it.ID, &it.SelectionID, &it.RequirementLineID, &it.SupplierID, &it.QuotationItemID,
			&it.Quantity, &it.UnitPrice, &it.Currency, &it.NormalizedUnitPrice, &it.NormalizedTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Approve flips a draft selection to APPROVED under a row lock.
func (r *Repository) Approve(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*FinalSelection, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sel, err := scanSelection(tx.QueryRow(ctx, selectSelectionQuery+` WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if sel.Status != StatusDraft {
		return nil, apperr.InvalidTransition(fmt.Sprintf("cannot approve a selection in %s status", sel.Status))
	}

	now := time.Now()
	_, err = tx.Exec(ctx, `
		UPDATE final_selections SET status = $2, approved_by = $3, approved_at = $4, updated_at = $4 WHERE id = $1`,
		id, StatusApproved, actorID, now)
	if err != nil {
		return nil, fmt.Errorf("approve selection: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	sel.Status = StatusApproved
	sel.ApprovedBy = &actorID
	sel.ApprovedAt = &now
	return sel, nil
}

// MarkGenerated records that every awarded supplier of the selection has a
// purchase order. A no-op when the selection is not APPROVED, so concurrent
// generators can all call it safely.
func (r *Repository) MarkGenerated(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE final_selections SET status = $2, updated_at = now() WHERE id = $1 AND status = $3`,
		id, StatusGenerated, StatusApproved)
	if err != nil {
		return fmt.Errorf("mark selection generated: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
