package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DailyLimitRepository tracks the per-account, per-day transferred total.
// CurrentTotalForUpdate and AddAmount run inside the engine's transaction
// while the origin account row lock is held; they must never be called
// outside that scope, or two transfers could both read a stale total.
type DailyLimitRepository struct {
	db *sql.DB
}

func NewDailyLimitRepository(db *sql.DB) *DailyLimitRepository {
	return &DailyLimitRepository{db: db}
}

func (r *DailyLimitRepository) CurrentTotalForUpdate(ctx context.Context, tx *sql.Tx, accountID uuid.UUID, day time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := tx.QueryRowContext(ctx,
		`SELECT amount FROM daily_limits WHERE account_id = $1 AND day = $2 FOR UPDATE`,
		accountID, day,
	).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("CurrentTotalForUpdate: %w", err)
	}
	return total, nil
}

func (r *DailyLimitRepository) AddAmount(ctx context.Context, tx *sql.Tx, accountID uuid.UUID, day time.Time, amount decimal.Decimal) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := tx.QueryRowContext(ctx,
		`INSERT INTO daily_limits (account_id, day, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, day) DO UPDATE SET amount = daily_limits.amount + EXCLUDED.amount
		RETURNING amount`,
		accountID, day, amount,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("AddAmount: %w", err)
	}
	return total, nil
}

// CurrentTotal is the read-only view used by getDailyTotal. It runs outside
// any lock, which is fine for a point-in-time read.
func (r *DailyLimitRepository) CurrentTotal(ctx context.Context, accountID uuid.UUID, day time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		`SELECT amount FROM daily_limits WHERE account_id = $1 AND day = $2`,
		accountID, day,
	).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("CurrentTotal: %w", err)
	}
	return total, nil
}
