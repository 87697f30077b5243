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

type TransferRequest struct {
	OriginAccountID          uuid.UUID
	DestinationAccountNumber string
	Amount                   decimal.Decimal
	Details                  string
}

// Transfer moves Amount from the origin account to the destination account.
// Balance updates, the journal entry, and the daily-limit increment commit as
// one unit; no partial transfer is ever observable.
func (e *Engine) Transfer(ctx context.Context, req TransferRequest) (*domain.Movement, error) {
	log := logging.FromContext(ctx)

	if err := e.validateTransferAmount(req.Amount); err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	origin, dest, err := e.resolveTransferAccounts(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	m, err := e.executeTransfer(ctx, req, origin, dest)
	if err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	log.Info("transfer completed",
		"movement_id", m.ID,
		"origin_account", origin.ID,
		"destination_account", dest.ID,
		"amount", req.Amount,
	)

	return m, nil
}

func (e *Engine) validateTransferAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("validateTransferAmount: %w", domain.ErrInvalidAmount)
	}
	if amount.GreaterThanOrEqual(e.policy.PerTransfer) {
		return fmt.Errorf("validateTransferAmount: %w", domain.ErrTransferLimitExceeded)
	}
	return nil
}

func (e *Engine) resolveTransferAccounts(ctx context.Context, req TransferRequest) (*domain.Account, *domain.Account, error) {
	origin, err := e.accounts.GetByID(ctx, req.OriginAccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("resolveTransferAccounts: origin: %w", domain.ErrAccountNotFound)
		}
		return nil, nil, fmt.Errorf("resolveTransferAccounts: %w", err)
	}

	dest, err := e.accounts.GetByNumber(ctx, req.DestinationAccountNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("resolveTransferAccounts: destination: %w", domain.ErrAccountNotFound)
		}
		return nil, nil, fmt.Errorf("resolveTransferAccounts: %w", err)
	}

	if origin.ID == dest.ID {
		return nil, nil, fmt.Errorf("resolveTransferAccounts: %w", domain.ErrSelfTransfer)
	}
	if err := verifyActive(origin, "origin"); err != nil {
		return nil, nil, fmt.Errorf("resolveTransferAccounts: %w", err)
	}
	if err := verifyActive(dest, "destination"); err != nil {
		return nil, nil, fmt.Errorf("resolveTransferAccounts: %w", err)
	}

	return origin, dest, nil
}

func (e *Engine) executeTransfer(ctx context.Context, req TransferRequest, origin, dest *domain.Account) (*domain.Movement, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("executeTransfer: begin tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := lockAccountsInOrder(ctx, tx, e.accounts, origin.ID, dest.ID)
	if err != nil {
		return nil, fmt.Errorf("executeTransfer: %w", err)
	}
	origin, dest = locked[origin.ID], locked[dest.ID]

	if err := verifyActive(origin, "origin"); err != nil {
		return nil, fmt.Errorf("executeTransfer: %w", err)
	}
	if err := verifyActive(dest, "destination"); err != nil {
		return nil, fmt.Errorf("executeTransfer: %w", err)
	}

	now := time.Now().UTC()
	day := domain.Day(now)

	// The origin row lock is held here, so this read-check-add over the
	// daily total is serialised against every other transfer from the
	// same account.
	todayTotal, err := e.limits.CurrentTotalForUpdate(ctx, tx, origin.ID, day)
	if err != nil {
		return nil, fmt.Errorf("executeTransfer: %w", err)
	}
	if todayTotal.Add(req.Amount).GreaterThan(e.policy.PerDay) {
		return nil, fmt.Errorf("executeTransfer: %w", domain.ErrDailyLimitExceeded)
	}

	if origin.Balance.LessThan(req.Amount) {
		return nil, fmt.Errorf("executeTransfer: %w", domain.ErrInsufficientFunds)
	}

	m := &domain.Movement{
		ID:                       uuid.New(),
		Kind:                     domain.MovementKindTransfer,
		Amount:                   req.Amount,
		OriginAccountID:          &origin.ID,
		DestinationAccountNumber: dest.AccountNumber,
		Details:                  detailsOrDefault(req.Details),
		Active:                   true,
		CreatedAt:                now,
	}
	if err := e.movements.Create(ctx, tx, m); err != nil {
		return nil, fmt.Errorf("executeTransfer: create movement: %w", err)
	}

	if _, err := e.limits.AddAmount(ctx, tx, origin.ID, day, req.Amount); err != nil {
		return nil, fmt.Errorf("executeTransfer: %w", err)
	}

	if err := e.accounts.UpdateBalance(ctx, tx, origin.ID, origin.Balance.Sub(req.Amount), origin.Version+1); err != nil {
		return nil, fmt.Errorf("executeTransfer: update origin: %w", err)
	}
	if err := e.accounts.UpdateBalance(ctx, tx, dest.ID, dest.Balance.Add(req.Amount), dest.Version+1); err != nil {
		return nil, fmt.Errorf("executeTransfer: update destination: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("executeTransfer: commit: %w", err)
	}

	return m, nil
}
