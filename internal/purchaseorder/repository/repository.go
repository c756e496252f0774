// Package repository persists purchase orders.
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

// Purchase order lifecycle. Orders are born PENDING (ready to sign) and walk
// the same four-level chain as quotation requests.
const (
	StatusPending   = "PENDING"
	StatusSigned1   = "SIGNED_1"
	StatusSigned2   = "SIGNED_2"
	StatusSigned3   = "SIGNED_3"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
)

// EntityTypeOrder tags purchase-order signature rows in the shared
// signatures table.
const EntityTypeOrder = "purchase_order"

// PurchaseOrder is the generated order for one supplier of one final
// selection. Buyer and supplier identities are snapshotted at generation time
// so later master-data edits cannot rewrite history.
type PurchaseOrder struct {
	ID               uuid.UUID
	Code             string
	RequestID        uuid.UUID
	FinalSelectionID uuid.UUID
	SupplierID       uuid.UUID

	BuyerName    string
	BuyerTaxID   string
	BuyerAddress string
	BuyerEmail   string

	SupplierName    string
	SupplierTaxID   string
	SupplierEmail   string
	SupplierPhone   string
	SupplierAddress string
	SupplierContact string

	Status          string
	Currency        string
	Subtotal        decimal.Decimal
	TaxRate         decimal.Decimal
	TaxAmount       decimal.Decimal
	Total           decimal.Decimal
	NormalizedTotal decimal.Decimal // base currency, drives the signature threshold
	PaymentTerms    *string
	Notes           *string

	RejectionReason *string
	RejectedBy      *uuid.UUID
	RejectedAt      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem is one line of a purchase order.
type OrderItem struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	RequirementLineID uuid.UUID
	Kind              string
	Description       string
	Quantity          decimal.Decimal
	Unit              string
	UnitPrice         decimal.Decimal
	TotalPrice        decimal.Decimal
	DeliveryDays      int
}

const orderNotFoundMsg = "purchase order not found"

// Repository provides database operations for purchase orders.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new purchase order repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a single transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// NextCode atomically generates the next purchase order number, formatted as
// PO-YEAR-NNNN.
func (r *Repository) NextCode(ctx context.Context) (string, error) {
	var nextNum int
	query := `
		INSERT INTO sequence_counters (kind, last_number)
		VALUES ('po', 1)
		ON CONFLICT (kind) DO UPDATE SET last_number = sequence_counters.last_number + 1
		RETURNING last_number`

	if err := r.pool.QueryRow(ctx, query).Scan(&nextNum); err != nil {
		return "", fmt.Errorf("generate po number: %w", err)
	}
	return fmt.Sprintf("PO-%d-%04d", time.Now().Year(), nextNum), nil
}

// Create inserts the order with its items. The unique constraint on
// (final_selection_id, supplier_id) makes generation idempotent: a duplicate
// insert reports ErrDuplicate so the caller can return the existing order.
var ErrDuplicate = errors.New("purchase order already generated for this supplier")

func (r *Repository) Create(ctx context.Context, order *PurchaseOrder, items []OrderItem) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO purchase_orders
				(id, code, request_id, final_selection_id, supplier_id,
				 buyer_name, buyer_tax_id, buyer_address, buyer_email,
				 supplier_name, supplier_tax_id, supplier_email, supplier_phone, supplier_address, supplier_contact,
				 status, currency, subtotal, tax_rate, tax_amount, total, normalized_total,
				 payment_terms, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`,
			order.ID, order.Code, order.RequestID, order.FinalSelectionID, order.SupplierID,
			order.BuyerName, order.BuyerTaxID, order.BuyerAddress, order.BuyerEmail,
			order.SupplierName, order.SupplierTaxID, order.SupplierEmail, order.SupplierPhone,
			order.SupplierAddress, order.SupplierContact,
			order.Status, order.Currency, order.Subtotal, order.TaxRate, order.TaxAmount,
			order.Total, order.NormalizedTotal, order.PaymentTerms, order.Notes,
			order.CreatedAt, order.UpdatedAt)
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return fmt.Errorf("insert purchase order: %w", err)
		}

		for i := range items {
			it := &items[i]
			it.OrderID = order.ID
			_, err := tx.Exec(ctx, `
				INSERT INTO purchase_order_items
					(id, order_id, requirement_line_id, kind, description, quantity, unit,
					 unit_price, total_price, delivery_days)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				it.ID, it.OrderID, it.RequirementLineID, it.Kind, it.Description, it.Quantity, it.Unit,
				it.UnitPrice, it.TotalPrice, it.DeliveryDays)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
}

const selectOrderQuery = `
	SELECT id, code, request_id, final_selection_id, supplier_id,
	       buyer_name, buyer_tax_id, buyer_address, buyer_email,
	       supplier_name, supplier_tax_id, supplier_email, supplier_phone, supplier_address, supplier_contact,
	       status, currency, subtotal, tax_rate, tax_amount, total, normalized_total,
	       payment_terms, notes, rejection_reason, rejected_by, rejected_at, created_at, updated_at
	FROM purchase_orders`

func scanOrder(row pgx.Row) (*PurchaseOrder, error) {
	var o PurchaseOrder
	err := row.Scan(
		&o.ID, &o.Code, &o.RequestID, &o.FinalSelectionID, &o.SupplierID,
		&o.BuyerName, &o.BuyerTaxID, &o.BuyerAddress, &o.BuyerEmail,
		&o.SupplierName, &o.SupplierTaxID, &o.SupplierEmail, &o.SupplierPhone, &o.SupplierAddress, &o.SupplierContact,
		&o.Status, &o.Currency, &o.Subtotal, &o.TaxRate, &o.TaxAmount, &o.Total, &o.NormalizedTotal,
		&o.PaymentTerms, &o.Notes, &o.RejectionReason, &o.RejectedBy, &o.RejectedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound(orderNotFoundMsg)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Get loads a purchase order by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error) {
	return scanOrder(r.pool.QueryRow(ctx, selectOrderQuery+` WHERE id = $1`, id))
}

// GetForUpdate loads a purchase order inside tx with a row lock.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*PurchaseOrder, error) {
	return scanOrder(tx.QueryRow(ctx, selectOrderQuery+` WHERE id = $1 FOR UPDATE`, id))
}

// GetBySelectionAndSupplier loads the generated order of one supplier, used
// for the idempotent generation path.
func (r *Repository) GetBySelectionAndSupplier(ctx context.Context, selectionID, supplierID uuid.UUID) (*PurchaseOrder, error) {
	return scanOrder(r.pool.QueryRow(ctx,
		selectOrderQuery+` WHERE final_selection_id = $1 AND supplier_id = $2`, selectionID, supplierID))
}

// ListForRequest returns all purchase orders of a quotation request.
func (r *Repository) ListForRequest(ctx context.Context, requestID uuid.UUID) ([]PurchaseOrder, error) {
	rows, err := r.pool.Query(ctx, selectOrderQuery+` WHERE request_id = $1 ORDER BY created_at`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

// ListGeneratedSuppliers returns the supplier IDs that already have an order
// generated from the given selection, cancelled orders excluded.
func (r *Repository) ListGeneratedSuppliers(ctx context.Context, selectionID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT supplier_id FROM purchase_orders WHERE final_selection_id = $1 AND status <> $2`,
		selectionID, StatusCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetItems returns the items of one order.
func (r *Repository) GetItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	query := `
		SELECT id, order_id, requirement_line_id, kind, description, quantity, unit,
		       unit_price, total_price, delivery_days
		FROM purchase_order_items
		WHERE order_id = $1`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.RequirementLineID, &it.Kind, &it.Description,
			&it.Quantity, &it.Unit, &it.UnitPrice, &it.TotalPrice, &it.DeliveryDays); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// UpdateStatus sets the order status inside tx.
func (r *Repository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	result, err := tx.Exec(ctx,
		`UPDATE purchase_orders SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(orderNotFoundMsg)
	}
	return nil
}

// RecordRejection stores the rejection record and flips the status to
// REJECTED inside tx.
func (r *Repository) RecordRejection(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string, signerID uuid.UUID) error {
	result, err := tx.Exec(ctx, `
		UPDATE purchase_orders
		SET status = $2, rejection_reason = $3, rejected_by = $4, rejected_at = now(), updated_at = now()
		WHERE id = $1`,
		id, StatusRejected, reason, signerID)
	if err != nil {
		return fmt.Errorf("record order rejection: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(orderNotFoundMsg)
	}
	return nil
}

// CancelOpenForRequest cancels every non-terminal order of a request and
// returns the affected IDs. Used by the quotation reset cascade.
func (r *Repository) CancelOpenForRequest(ctx context.Context, requestID uuid.UUID, reason string) ([]uuid.UUID, error) {
	query := `
		UPDATE purchase_orders
		SET status = $2, rejection_reason = $3, updated_at = now()
		WHERE request_id = $1 AND status NOT IN ($4, $5, $6)
		RETURNING id`

	rows, err := r.pool.Query(ctx, query, requestID, StatusCancelled, reason,
		StatusApproved, StatusRejected, StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("cancel open orders: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ── Signatures (shared table) ─────────────────────────────────────────────────

// InsertSignature appends one signature row inside tx.
func (r *Repository) InsertSignature(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, level int, objectKey string, signerID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO signatures (id, entity_type, entity_id, level, object_key, signer_id, signed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), EntityTypeOrder, orderID, level, objectKey, signerID, time.Now())
	if isUniqueViolation(err) {
		return apperr.Conflict(fmt.Sprintf("signature level %d was signed concurrently", level))
	}
	if err != nil {
		return fmt.Errorf("insert order signature: %w", err)
	}
	return nil
}

// ListSignatures returns all signatures of one order ordered by level.
func (r *Repository) ListSignatures(ctx context.Context, orderID uuid.UUID) ([]OrderSignature, error) {
	query := `
		SELECT level, object_key, signer_id, signed_at
		FROM signatures
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY level`

	rows, err := r.pool.Query(ctx, query, EntityTypeOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sigs []OrderSignature
	for rows.Next() {
		var s OrderSignature
		if err := rows.Scan(&s.Level, &s.ObjectKey, &s.SignerID, &s.SignedAt); err != nil {
			return nil, err
		}
		sigs = append(sigs, s)
	}
	return sigs, rows.Err()
}

// OrderSignature is one recorded order sign-off.
type OrderSignature struct {
	Level     int
	ObjectKey string
	SignerID  uuid.UUID
	SignedAt  time.Time
}

func collectOrders(rows pgx.Rows) ([]PurchaseOrder, error) {
	var orders []PurchaseOrder
	for rows.Next() {
		var o PurchaseOrder
		err := rows.Scan(
			&o.ID, &o.Code, &o.RequestID, &o.FinalSelectionID, &o.SupplierID,
			&o.BuyerName, &o.BuyerTaxID, &o.BuyerAddress, &o.BuyerEmail,
			&o.SupplierName, &o.SupplierTaxID, &o.SupplierEmail, &o.SupplierPhone, &o.SupplierAddress, &o.SupplierContact,
			&o.Status, &o.Currency, &o.Subtotal, &o.TaxRate, &o.TaxAmount, &o.Total, &o.NormalizedTotal,
			&o.PaymentTerms, &o.Notes, &o.RejectionReason, &o.RejectedBy, &o.RejectedAt, &o.CreatedAt, &o.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
