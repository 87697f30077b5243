package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/banca-gt/banking-api/internal/domain"
	"github.com/banca-gt/banking-api/internal/logging"
)

type DepositRequest struct {
	DestinationAccountNumber string
	Amount                   decimal.Decimal
	Details                  string
}

// Deposit credits the destination account. Deposits carry no limit; only the
// destination row is locked.
func (e *Engine) Deposit(ctx context.Context, req DepositRequest) (*domain.Movement, error) {
	log := logging.FromContext(ctx)

	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("Deposit: %w", domain.ErrInvalidAmount)
	}

	dest, err := e.accounts.GetByNumber(ctx, req.DestinationAccountNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Deposit: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("Deposit: %w", err)
	}
	if err := verifyActive(dest, "destination"); err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Deposit: begin tx: %w", err)
	}
	defer tx.Rollback()

	dest, err = e.accounts.GetForUpdate(ctx, tx, dest.ID)
	if err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}
	if err := verifyActive(dest, "destination"); err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}

	m := &domain.Movement{
		ID:                       uuid.New(),
		Kind:                     domain.MovementKindDeposit,
		Amount:                   req.Amount,
		DestinationAccountNumber: dest.AccountNumber,
		Details:                  detailsOrDefault(req.Details),
		Active:                   true,
		CreatedAt:                time.Now().UTC(),
	}
	if err := e.movements.Create(ctx, tx, m); err != nil {
		return nil, fmt.Errorf("Deposit: create movement: %w", err)
	}

	if err := e.accounts.UpdateBalance(ctx, tx, dest.ID, dest.Balance.Add(req.Amount), dest.Version+1); err != nil {
		return nil, fmt.Errorf("Deposit: update destination: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Deposit: commit: %w", err)
	}

	log.Info("deposit completed",
		"movement_id", m.ID,
		"destination_account", dest.ID,
		"amount", req.Amount,
	)

	return m, nil
}

// ReverseDeposit undoes a deposit within the reversal window. A failed
// reversal leaves the deposit untouched and may be retried until the window
// lapses; a successful one flips the reversed flag exactly once and appends a
// reversal entry to the journal in the same transaction.
func (e *Engine) ReverseDeposit(ctx context.Context, movementID uuid.UUID) (*domain.Movement, error) {
	log := logging.FromContext(ctx)

	m, err := e.movements.GetByID(ctx, movementID)
	if err != nil {
		return nil, fmt.Errorf("ReverseDeposit: %w", err)
	}
	if m.Kind != domain.MovementKindDeposit {
		return nil, fmt.Errorf("ReverseDeposit: %w", domain.ErrNotReversible)
	}
	if m.Reversed {
		return nil, fmt.Errorf("ReverseDeposit: %w", domain.ErrAlreadyReversed)
	}
	if time.Now().UTC().Sub(m.CreatedAt) > e.policy.ReversalWindow {
		return nil, fmt.Errorf("ReverseDeposit: %w", domain.ErrReversalWindowExpired)
	}

	account, err := e.accounts.GetByNumber(ctx, m.DestinationAccountNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("ReverseDeposit: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("ReverseDeposit: %w", err)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ReverseDeposit: begin tx: %w", err)
	}
	defer tx.Rollback()

	account, err = e.accounts.GetForUpdate(ctx, tx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("ReverseDeposit: %w", err)
	}

	// Re-read under the row lock: a concurrent reversal may have won the
	// race between the pre-check and here.
	m, err = e.movements.GetForUpdate(ctx, tx, movementID)
	if err != nil {
		return nil, fmt.Errorf("ReverseDeposit: %w", err)
	}
	if m.Reversed {
		return nil, fmt.Errorf("ReverseDeposit: %w", domain.ErrAlreadyReversed)
	}

	newBalance := account.Balance.Sub(m.Amount)
	if newBalance.IsNegative() {
		return nil, fmt.Errorf("ReverseDeposit: %w", domain.ErrInsufficientFunds)
	}

	if err := e.accounts.UpdateBalance(ctx, tx, account.ID, newBalance, account.Version+1); err != nil {
		return nil, fmt.Errorf("ReverseDeposit: update account: %w", err)
	}
	if err := e.movements.MarkReversed(ctx, tx, m.ID); err != nil {
		return nil, fmt.Errorf("ReverseDeposit: %w", err)
	}

	reversal := &domain.Movement{
		ID:                       uuid.New(),
		Kind:                     domain.MovementKindReversal,
		Amount:                   m.Amount,
		OriginAccountID:          &account.ID,
		DestinationAccountNumber: account.AccountNumber,
		Details:                  fmt.Sprintf("reversal of deposit %s", m.ID),
		Active:                   true,
		CreatedAt:                time.Now().UTC(),
	}
	if err := e.movements.Create(ctx, tx, reversal); err != nil {
		return nil, fmt.Errorf("ReverseDeposit: create reversal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ReverseDeposit: commit: %w", err)
	}

	log.Info("deposit reversed",
		"movement_id", m.ID,
		"reversal_id", reversal.ID,
		"account", account.ID,
		"amount", m.Amount,
	)

	m.Reversed = true
	return m, nil
}
