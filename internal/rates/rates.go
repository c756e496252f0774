// Package rates supplies the current sale exchange rate used to normalize
// foreign-currency quotation amounts into the base currency. Rate
// administration is external; this application only reads.
package rates

import (
	"context"
	"errors"
	"time"

	"procurement_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Rate is a sale exchange rate snapshot.
type Rate struct {
	Rate decimal.Decimal
	AsOf time.Time
}

// Provider returns the rate in effect right now. Comparison totals use the
// rate at comparison time, not at quotation-receipt time, so they may shift
// between calls as the rate updates.
type Provider interface {
	CurrentSaleRate(ctx context.Context) (Rate, error)
}

// PGProvider reads the most recent sale rate from the exchange_rates table.
type PGProvider struct {
	pool *pgxpool.Pool
}

// NewPGProvider creates a Postgres-backed rate provider.
func NewPGProvider(pool *pgxpool.Pool) *PGProvider {
	return &PGProvider{pool: pool}
}

// CurrentSaleRate returns the latest published sale rate.
func (p *PGProvider) CurrentSaleRate(ctx context.Context) (Rate, error) {
	query := `
		SELECT sale_rate, as_of
		FROM exchange_rates
		ORDER BY as_of DESC
		LIMIT 1`

	var r Rate
	err := p.pool.QueryRow(ctx, query).Scan(&r.Rate, &r.AsOf)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rate{}, apperr.NotFound("no exchange rate published")
	}
	if err != nil {
		return Rate{}, err
	}
	return r, nil
}

// Static is a fixed-rate provider for tests and single-currency deployments.
type Static struct {
	Value Rate
}

// CurrentSaleRate returns the fixed rate.
func (s Static) CurrentSaleRate(_ context.Context) (Rate, error) {
	return s.Value, nil
}

var (
	_ Provider = (*PGProvider)(nil)
	_ Provider = Static{}
)
