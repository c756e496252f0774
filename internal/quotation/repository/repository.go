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

// ── Status enums ──────────────────────────────────────────────────────────────

// Quotation request lifecycle. Transitions are monotonic except the explicit
// reset operation, which returns to PENDING and wipes downstream data.
const (
	StatusPending   = "PENDING"
	StatusDraft     = "DRAFT"
	StatusActive    = "ACTIVE"
	StatusSigned1   = "SIGNED_1"
	StatusSigned2   = "SIGNED_2"
	StatusSigned3   = "SIGNED_3"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
)

// Per-supplier solicitation sub-status.
const (
	SupplierPending   = "PENDING"
	SupplierSent      = "SENT"
	SupplierResponded = "RESPONDED"
	SupplierCancelled = "CANCELLED"
)

// Supplier quotation status. SUBMITTED quotations are immutable except for
// administrative fields.
const (
	QuotationDraft     = "DRAFT"
	QuotationSubmitted = "SUBMITTED"
	QuotationCancelled = "CANCELLED"
)

// Per-line response status.
const (
	ItemQuoted       = "QUOTED"
	ItemNotAvailable = "NOT_AVAILABLE"
	ItemNotQuoted    = "NOT_QUOTED"
)

// EntityTypeRequest tags quotation-request signature rows in the shared
// signatures table.
const EntityTypeRequest = "quotation_request"

// ── Domain models ─────────────────────────────────────────────────────────────

// QuotationRequest is the database model of the RFQ aggregate root.
type QuotationRequest struct {
	ID              uuid.UUID
	Code            string
	RequirementID   uuid.UUID
	Status          string
	Notes           *string
	RejectionReason *string
	RejectedBy      *uuid.UUID
	RejectedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

// Signature is one recorded sign-off in the shared signature table, used by
// both quotation requests and purchase orders.
type Signature struct {
	ID         uuid.UUID
	EntityType string
	EntityID   uuid.UUID
	Level      int
	ObjectKey  string
	SignerID   uuid.UUID
	SignedAt   time.Time
}

// QuotationSupplier joins a request with one solicited supplier.
type QuotationSupplier struct {
	ID          uuid.UUID
	RequestID   uuid.UUID
	SupplierID  uuid.UUID
	Status      string
	OrderNumber string
	Terms       *string
	SentAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SolicitedLine records that one requirement line was asked of one supplier.
// Suppliers compete only on lines they were solicited for.
type SolicitedLine struct {
	QuotationSupplierID uuid.UUID
	RequirementLineID   uuid.UUID
	Kind                string
}

// SupplierQuotation is a supplier's priced response.
type SupplierQuotation struct {
	ID                  uuid.UUID
	QuotationSupplierID uuid.UUID
	Status              string
	ReceivedAt          *time.Time
	ValidUntil          *time.Time
	Currency            string
	Total               decimal.Decimal
	Notes               *string
	PaymentTerms        *string
	TaxRateOverride     *decimal.Decimal
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// QuotationItem is a per-line response, article or service.
// Price and delivery fields are meaningful only when Status is QUOTED; the
// service zeroes them on any other status before they reach this layer.
type QuotationItem struct {
	ID                 uuid.UUID
	QuotationID        uuid.UUID
	RequirementLineID  uuid.UUID
	Kind               string
	Quantity           decimal.Decimal
	UnitPrice          decimal.Decimal
	TotalPrice         decimal.Decimal
	Currency           string
	DeliveryDays       int
	Notes              *string
	Status             string
	ReasonNotAvailable *string
}

// SubmittedOffer is a flattened row of one submitted quotation item joined
// with its supplier, the comparison engine's raw input.
type SubmittedOffer struct {
	SupplierID        uuid.UUID
	QuotationID       uuid.UUID
	ItemID            uuid.UUID
	RequirementLineID uuid.UUID
	Kind              string
	Quantity          decimal.Decimal
	UnitPrice         decimal.Decimal
	Currency          string
	DeliveryDays      int
	Status            string
}

const requestNotFoundMsg = "quotation request not found"

// ── Repository ────────────────────────────────────────────────────────────────

// Repository provides database operations for the quotation workflow.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new quotation repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Pool exposes the underlying pool for health checks.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// WithTx runs fn inside a single transaction. Mutating workflow operations
// re-read status with row locks inside fn so concurrent signers cannot race.
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

// NextCode atomically generates the next sequence number for the given kind
// ("rfq", "order", "po") and formats it as PREFIX-YEAR-NNNN.
func (r *Repository) NextCode(ctx context.Context, kind, prefix string) (string, error) {
	var nextNum int
	query := `
		INSERT INTO sequence_counters (kind, last_number)
		VALUES ($1, 1)
		ON CONFLICT (kind) DO UPDATE SET last_number = sequence_counters.last_number + 1
		RETURNING last_number`

	if err := r.pool.QueryRow(ctx, query, kind).Scan(&nextNum); err != nil {
		return "", fmt.Errorf("generate %s number: %w", kind, err)
	}

	return fmt.Sprintf("%s-%d-%04d", prefix, time.Now().Year(), nextNum), nil
}

// CreateRequest inserts a new quotation request in PENDING status. At most one
// request exists per requirement.
func (r *Repository) CreateRequest(ctx context.Context, req *QuotationRequest) error {
	query := `
		INSERT INTO quotation_requests (id, code, requirement_id, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		req.ID, req.Code, req.RequirementID, req.Status, req.Notes, req.CreatedAt, req.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperr.Conflict("a quotation request already exists for this requirement")
	}
	if err != nil {
		return fmt.Errorf("insert quotation request: %w", err)
	}
	return nil
}

// GetRequest loads a quotation request by ID.
func (r *Repository) GetRequest(ctx context.Context, id uuid.UUID) (*QuotationRequest, error) {
	return scanRequest(r.pool.QueryRow(ctx, selectRequestQuery+` WHERE id = $1 AND deleted_at IS NULL`, id))
}

// GetRequestForUpdate loads a quotation request inside tx with a row lock,
// so the caller can validate the transition against fresh state.
func (r *Repository) GetRequestForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*QuotationRequest, error) {
	return scanRequest(tx.QueryRow(ctx, selectRequestQuery+` WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id))
}

const selectRequestQuery = `
	SELECT id, code, requirement_id, status, notes,
	       rejection_reason, rejected_by, rejected_at,
	       created_at, updated_at, deleted_at
	FROM quotation_requests`

func scanRequest(row pgx.Row) (*QuotationRequest, error) {
	var req QuotationRequest
	err := row.Scan(
		&req.ID, &req.Code, &req.RequirementID, &req.Status, &req.Notes,
		&req.RejectionReason, &req.RejectedBy, &req.RejectedAt,
		&req.CreatedAt, &req.UpdatedAt, &req.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound(requestNotFoundMsg)
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateRequestStatus sets the request status inside tx.
func (r *Repository) UpdateRequestStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	result, err := tx.Exec(ctx,
		`UPDATE quotation_requests SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(requestNotFoundMsg)
	}
	return nil
}

// RecordRequestRejection stores the rejection record and flips the status to
// REJECTED inside tx.
func (r *Repository) RecordRequestRejection(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string, signerID uuid.UUID) error {
	result, err := tx.Exec(ctx, `
		UPDATE quotation_requests
		SET status = $2, rejection_reason = $3, rejected_by = $4, rejected_at = now(), updated_at = now()
		WHERE id = $1`,
		id, StatusRejected, reason, signerID)
	if err != nil {
		return fmt.Errorf("record request rejection: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(requestNotFoundMsg)
	}
	return nil
}

// ── Signatures (shared table) ─────────────────────────────────────────────────

// InsertSignature appends one signature row inside tx. The unique constraint
// on (entity_type, entity_id, level) backstops double-signing races.
func (r *Repository) InsertSignature(ctx context.Context, tx pgx.Tx, sig *Signature) error {
	query := `
		INSERT INTO signatures (id, entity_type, entity_id, level, object_key, signer_id, signed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		sig.ID, sig.EntityType, sig.EntityID, sig.Level, sig.ObjectKey, sig.SignerID, sig.SignedAt,
	)
	if isUniqueViolation(err) {
		return apperr.Conflict(fmt.Sprintf("signature level %d was signed concurrently", sig.Level))
	}
	if err != nil {
		return fmt.Errorf("insert signature: %w", err)
	}
	return nil
}

// ListSignatures returns all signatures of one entity ordered by level.
func (r *Repository) ListSignatures(ctx context.Context, entityType string, entityID uuid.UUID) ([]Signature, error) {
	query := `
		SELECT id, entity_type, entity_id, level, object_key, signer_id, signed_at
		FROM signatures
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY level`

	rows, err := r.pool.Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sigs []Signature
	for rows.Next() {
		var s Signature
		if err := rows.Scan(&s.ID, &s.EntityType, &s.EntityID, &s.Level, &s.ObjectKey, &s.SignerID, &s.SignedAt); err != nil {
			return nil, err
		}
		sigs = append(sigs, s)
	}
	return sigs, rows.Err()
}

// ── Reset ─────────────────────────────────────────────────────────────────────

// ResetRequest wipes all downstream data of a request and returns it to
// PENDING, in one transaction. Supplier rows cascade to quotations and items;
// the final selection row cascades to its item rows. This is the audited,
// irreversible reset of the workflow, not a normal backward transition.
func (r *Repository) ResetRequest(ctx context.Context, id uuid.UUID) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := r.GetRequestForUpdate(ctx, tx, id); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM final_selections WHERE request_id = $1`, id); err != nil {
			return fmt.Errorf("delete final selection: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM quotation_suppliers WHERE request_id = $1`, id); err != nil {
			return fmt.Errorf("delete quotation suppliers: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM signatures WHERE entity_type = $1 AND entity_id = $2`, EntityTypeRequest, id); err != nil {
			return fmt.Errorf("delete signatures: %w", err)
		}

		result, err := tx.Exec(ctx, `
			UPDATE quotation_requests
			SET status = $2, rejection_reason = NULL, rejected_by = NULL, rejected_at = NULL, updated_at = now()
			WHERE id = $1`,
			id, StatusPending)
		if err != nil {
			return fmt.Errorf("reset request status: %w", err)
		}
		if result.RowsAffected() == 0 {
			return apperr.NotFound(requestNotFoundMsg)
		}
		return nil
	})
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
