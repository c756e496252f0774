package repository

import (
	"context"
	"fmt"
	"time"

	"procurement_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ── Quotation suppliers ───────────────────────────────────────────────────────

// AddSuppliers inserts supplier rows with their solicited line subsets and, if
// the request is still PENDING, activates it — all in one transaction.
func (r *Repository) AddSuppliers(ctx context.Context, requestID uuid.UUID, suppliers []QuotationSupplier, lines []SolicitedLine) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		req, err := r.GetRequestForUpdate(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req.Status != StatusPending && req.Status != StatusDraft && req.Status != StatusActive {
			return apperr.InvalidTransition(fmt.Sprintf("cannot add suppliers while request is %s", req.Status))
		}

		for i := range suppliers {
			s := &suppliers[i]
			_, err := tx.Exec(ctx, `
				INSERT INTO quotation_suppliers (id, request_id, supplier_id, status, order_number, terms, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				s.ID, s.RequestID, s.SupplierID, s.Status, s.OrderNumber, s.Terms, s.CreatedAt, s.UpdatedAt,
			)
			if isUniqueViolation(err) {
				return apperr.Conflict("supplier already solicited for this request")
			}
			if err != nil {
				return fmt.Errorf("insert quotation supplier: %w", err)
			}
		}

		for _, l := range lines {
			_, err := tx.Exec(ctx, `
				INSERT INTO solicited_lines (quotation_supplier_id, requirement_line_id, kind)
				VALUES ($1, $2, $3)`,
				l.QuotationSupplierID, l.RequirementLineID, l.Kind,
			)
			if err != nil {
				return fmt.Errorf("insert solicited line: %w", err)
			}
		}

		if req.Status == StatusPending || req.Status == StatusDraft {
			return r.UpdateRequestStatus(ctx, tx, requestID, StatusActive)
		}
		return nil
	})
}

const selectSupplierQuery = `
	SELECT id, request_id, supplier_id, status, order_number, terms, sent_at, created_at, updated_at
	FROM quotation_suppliers`

func scanSupplier(row pgx.Row) (*QuotationSupplier, error) {
	var s QuotationSupplier
	err := row.Scan(&s.ID, &s.RequestID, &s.SupplierID, &s.Status, &s.OrderNumber, &s.Terms, &s.SentAt, &s.CreatedAt, &s.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, apperr.NotFound("quotation supplier not found")
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSupplier loads one quotation-supplier row by ID.
func (r *Repository) GetSupplier(ctx context.Context, id uuid.UUID) (*QuotationSupplier, error) {
	return scanSupplier(r.pool.QueryRow(ctx, selectSupplierQuery+` WHERE id = $1`, id))
}

// ListSuppliers returns all supplier rows of a request ordered by creation.
func (r *Repository) ListSuppliers(ctx context.Context, requestID uuid.UUID) ([]QuotationSupplier, error) {
	rows, err := r.pool.Query(ctx, selectSupplierQuery+` WHERE request_id = $1 ORDER BY created_at`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []QuotationSupplier
	for rows.Next() {
		var s QuotationSupplier
		if err := rows.Scan(&s.ID, &s.RequestID, &s.SupplierID, &s.Status, &s.OrderNumber, &s.Terms, &s.SentAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

// ListSolicitedLines returns the solicited line subsets of every supplier in a
// request.
func (r *Repository) ListSolicitedLines(ctx context.Context, requestID uuid.UUID) ([]SolicitedLine, error) {
	query := `
		SELECT sl.quotation_supplier_id, sl.requirement_line_id, sl.kind
		FROM solicited_lines sl
		JOIN quotation_suppliers qs ON qs.id = sl.quotation_supplier_id
		WHERE qs.request_id = $1`

	rows, err := r.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []SolicitedLine
	for rows.Next() {
		var l SolicitedLine
		if err := rows.Scan(&l.QuotationSupplierID, &l.RequirementLineID, &l.Kind); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// MarkOrderSent flips a supplier from PENDING to SENT after the solicitation
// email went out.
func (r *Repository) MarkOrderSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE quotation_suppliers
		SET status = $2, sent_at = $3, updated_at = now()
		WHERE id = $1 AND status = $4`,
		id, SupplierSent, sentAt, SupplierPending)
	if err != nil {
		return fmt.Errorf("mark order sent: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("quotation supplier not found or already sent")
	}
	return nil
}

// ── Supplier quotations ───────────────────────────────────────────────────────

// UpsertQuotationDraft creates or replaces the draft quotation of one supplier
// along with its items, in one transaction. Re-recording a draft replaces the
// previous item set entirely.
func (r *Repository) UpsertQuotationDraft(ctx context.Context, q *SupplierQuotation, items []QuotationItem) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		existing, err := r.getQuotationBySupplierTx(ctx, tx, q.QuotationSupplierID)
		if err != nil && apperr.GetKind(err) != apperr.KindNotFound {
			return err
		}
		if existing != nil {
			if existing.Status == QuotationSubmitted {
				return apperr.InvalidTransition("quotation has already been submitted")
			}
			q.ID = existing.ID
			_, err = tx.Exec(ctx, `
				UPDATE supplier_quotations
				SET valid_until = $2, currency = $3, total = $4, notes = $5,
				    payment_terms = $6, tax_rate_override = $7, updated_at = now()
				WHERE id = $1`,
				q.ID, q.ValidUntil, q.Currency, q.Total, q.Notes, q.PaymentTerms, q.TaxRateOverride)
			if err != nil {
				return fmt.Errorf("update draft quotation: %w", err)
			}
			if _, err := tx.Exec(ctx, `DELETE FROM quotation_items WHERE quotation_id = $1`, q.ID); err != nil {
				return fmt.Errorf("clear draft items: %w", err)
			}
		} else {
			_, err = tx.Exec(ctx, `
				INSERT INTO supplier_quotations
					(id, quotation_supplier_id, status, valid_until, currency, total, notes, payment_terms, tax_rate_override, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				q.ID, q.QuotationSupplierID, QuotationDraft, q.ValidUntil, q.Currency, q.Total,
				q.Notes, q.PaymentTerms, q.TaxRateOverride, q.CreatedAt, q.UpdatedAt)
			if err != nil {
				return fmt.Errorf("insert draft quotation: %w", err)
			}
		}

		for i := range items {
			it := &items[i]
			it.QuotationID = q.ID
			_, err := tx.Exec(ctx, `
				INSERT INTO quotation_items
					(id, quotation_id, requirement_line_id, kind, quantity, unit_price, total_price,
					 currency, delivery_days, notes, status, reason_not_available)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				it.ID, it.QuotationID, it.RequirementLineID, it.Kind, it.Quantity, it.UnitPrice, it.TotalPrice,
				it.Currency, it.DeliveryDays, it.Notes, it.Status, it.ReasonNotAvailable)
			if err != nil {
				return fmt.Errorf("insert quotation item: %w", err)
			}
		}
		return nil
	})
}

const selectQuotationQuery = `
	SELECT id, quotation_supplier_id, status, received_at, valid_until, currency, total,
	       notes, payment_terms, tax_rate_override, created_at, updated_at
	FROM supplier_quotations`

func scanQuotation(row pgx.Row) (*SupplierQuotation, error) {
	var q SupplierQuotation
	err := row.Scan(&q.ID, &q.QuotationSupplierID, &q.Status, &q.ReceivedAt, &q.ValidUntil,
		&q.Currency, &q.Total, &q.Notes, &q.PaymentTerms, &q.TaxRateOverride, &q.CreatedAt, &q.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, apperr.NotFound("supplier quotation not found")
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// GetQuotationBySupplier loads the quotation recorded for one
// quotation-supplier row, if any.
func (r *Repository) GetQuotationBySupplier(ctx context.Context, quotationSupplierID uuid.UUID) (*SupplierQuotation, error) {
	return scanQuotation(r.pool.QueryRow(ctx,
		selectQuotationQuery+` WHERE quotation_supplier_id = $1`, quotationSupplierID))
}

func (r *Repository) getQuotationBySupplierTx(ctx context.Context, tx pgx.Tx, quotationSupplierID uuid.UUID) (*SupplierQuotation, error) {
	return scanQuotation(tx.QueryRow(ctx,
		selectQuotationQuery+` WHERE quotation_supplier_id = $1 FOR UPDATE`, quotationSupplierID))
}

// SubmitQuotation freezes a draft quotation and marks the supplier as having
// responded. The status checks run against locked rows so a concurrent submit
// fails cleanly.
func (r *Repository) SubmitQuotation(ctx context.Context, quotationSupplierID uuid.UUID, receivedAt time.Time) (*SupplierQuotation, error) {
	var submitted *SupplierQuotation
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		q, err := r.getQuotationBySupplierTx(ctx, tx, quotationSupplierID)
		if err != nil {
			return err
		}
		if q.Status != QuotationDraft {
			return apperr.InvalidTransition(fmt.Sprintf("cannot submit a quotation in %s status", q.Status))
		}

		var itemCount int
		if err := tx.QueryRow(ctx,
			`SELECT count(*) FROM quotation_items WHERE quotation_id = $1`, q.ID).Scan(&itemCount); err != nil {
			return err
		}
		if itemCount == 0 {
			return apperr.Validation("cannot submit a quotation without items")
		}

		_, err = tx.Exec(ctx, `
			UPDATE supplier_quotations SET status = $2, received_at = $3, updated_at = now() WHERE id = $1`,
			q.ID, QuotationSubmitted, receivedAt)
		if err != nil {
			return fmt.Errorf("submit quotation: %w", err)
		}
		_, err = tx.Exec(ctx, `
			UPDATE quotation_suppliers SET status = $2, updated_at = now() WHERE id = $1`,
			quotationSupplierID, SupplierResponded)
		if err != nil {
			return fmt.Errorf("mark supplier responded: %w", err)
		}

		q.Status = QuotationSubmitted
		q.ReceivedAt = &receivedAt
		submitted = q
		return nil
	})
	return submitted, err
}

// GetQuotationItems returns the items of one quotation.
func (r *Repository) GetQuotationItems(ctx context.Context, quotationID uuid.UUID) ([]QuotationItem, error) {
	query := `
		SELECT id, quotation_id, requirement_line_id, kind, quantity, unit_price, total_price,
		       currency, delivery_days, notes, status, reason_not_available
		FROM quotation_items
		WHERE quotation_id = $1`

	rows, err := r.pool.Query(ctx, query, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []QuotationItem
	for rows.Next() {
		var it QuotationItem
		if err := rows.Scan(&it.ID, &it.QuotationID, &it.RequirementLineID, &it.Kind, &it.Quantity,
			&it.UnitPrice, &it.TotalPrice, &it.Currency, &it.DeliveryDays, &it.Notes, &it.Status, &it.ReasonNotAvailable); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListSubmittedOffers returns every item of every SUBMITTED quotation of a
// request, joined with the owning supplier. This is the comparison engine's
// input; drafts never appear here.
func (r *Repository) ListSubmittedOffers(ctx context.Context, requestID uuid.UUID) ([]SubmittedOffer, error) {
	query := `
		SELECT qs.supplier_id, sq.id, qi.id, qi.requirement_line_id, qi.kind,
		       qi.quantity, qi.unit_price, qi.currency, qi.delivery_days, qi.status
		FROM quotation_items qi
		JOIN supplier_quotations sq ON sq.id = qi.quotation_id
		JOIN quotation_suppliers qs ON qs.id = sq.quotation_supplier_id
		WHERE qs.request_id = $1 AND sq.status = $2 AND qs.status <> $3`

	rows, err := r.pool.Query(ctx, query, requestID, QuotationSubmitted, SupplierCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []SubmittedOffer
	for rows.Next() {
		var o SubmittedOffer
		if err := rows.Scan(&o.SupplierID, &o.QuotationID, &o.ItemID, &o.RequirementLineID, &o.Kind,
			&o.Quantity, &o.UnitPrice, &o.Currency, &o.DeliveryDays, &o.Status); err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

// ExpireStaleQuotations cancels submitted quotations whose validity window has
// passed on requests that are still collecting. Returns the affected
// quotation IDs. Used by the background sweep.
func (r *Repository) ExpireStaleQuotations(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `
		UPDATE supplier_quotations sq
		SET status = $1, updated_at = now()
		FROM quotation_suppliers qs
		JOIN quotation_requests qr ON qr.id = qs.request_id
		WHERE sq.quotation_supplier_id = qs.id
		  AND sq.status = $2
		  AND sq.valid_until IS NOT NULL
		  AND sq.valid_until < $3
		  AND qr.status = $4
		RETURNING sq.id`

	rows, err := r.pool.Query(ctx, query, QuotationCancelled, QuotationSubmitted, now, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("expire stale quotations: %w", err)
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
