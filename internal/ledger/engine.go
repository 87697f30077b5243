// Package ledger implements the transaction engine: the only component that
// mutates account balances. Every operation runs inside one Postgres
// transaction with the touched account rows locked, so a failure at any point
// rolls back without partial effect.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/banca-gt/banking-api/internal/domain"
)

type accountRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance decimal.Decimal, newVersion int64) error
}

type movementRepo interface {
	Create(ctx context.Context, tx *sql.Tx, m *domain.Movement) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Movement, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Movement, error)
	MarkReversed(ctx context.Context, tx *sql.Tx, id uuid.UUID) error
}

type limitRepo interface {
	CurrentTotalForUpdate(ctx context.Context, tx *sql.Tx, accountID uuid.UUID, day time.Time) (decimal.Decimal, error)
	AddAmount(ctx context.Context, tx *sql.Tx, accountID uuid.UUID, day time.Time, amount decimal.Decimal) (decimal.Decimal, error)
	CurrentTotal(ctx context.Context, accountID uuid.UUID, day time.Time) (decimal.Decimal, error)
}

// Limits is the engine's monetary policy. PerTransfer is a strict bound:
// a transfer of exactly PerTransfer is rejected. PerDay is inclusive.
type Limits struct {
	PerTransfer    decimal.Decimal
	PerDay         decimal.Decimal
	ReversalWindow time.Duration
}

type Engine struct {
	accounts  accountRepo
	movements movementRepo
	limits    limitRepo
	db        *sql.DB
	policy    Limits
}

func NewEngine(accounts accountRepo, movements movementRepo, limits limitRepo, db *sql.DB, policy Limits) *Engine {
	return &Engine{
		accounts:  accounts,
		movements: movements,
		limits:    limits,
		db:        db,
		policy:    policy,
	}
}

// GetDailyTotal returns the amount transferred out of the account on the
// given calendar day, zero if nothing was transferred. Pure read.
func (e *Engine) GetDailyTotal(ctx context.Context, accountID uuid.UUID, day time.Time) (decimal.Decimal, error) {
	if _, err := e.accounts.GetByID(ctx, accountID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return decimal.Zero, fmt.Errorf("GetDailyTotal: %w", domain.ErrAccountNotFound)
		}
		return decimal.Zero, fmt.Errorf("GetDailyTotal: %w", err)
	}

	total, err := e.limits.CurrentTotal(ctx, accountID, domain.Day(day))
	if err != nil {
		return decimal.Zero, fmt.Errorf("GetDailyTotal: %w", err)
	}
	return total, nil
}

func verifyActive(acct *domain.Account, role string) error {
	if !acct.Active {
		return fmt.Errorf("%s: %w", role, domain.ErrAccountInactive)
	}
	return nil
}

// lockAccountsInOrder acquires row locks in ascending UUID order so two
// transfers moving funds in opposite directions between the same pair of
// accounts cannot deadlock.
func lockAccountsInOrder(ctx context.Context, tx *sql.Tx, accounts accountRepo, ids ...uuid.UUID) (map[uuid.UUID]*domain.Account, error) {
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})

	result := make(map[uuid.UUID]*domain.Account, len(ids))
	for _, id := range sorted {
		acct, err := accounts.GetForUpdate(ctx, tx, id)
		if err != nil {
			return nil, fmt.Errorf("lockAccountsInOrder: %w", err)
		}
		result[id] = acct
	}
	return result, nil
}

func detailsOrDefault(details string) string {
	if details == "" {
		return domain.DefaultDetails
	}
	return details
}
