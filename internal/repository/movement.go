package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banca-gt/banking-api/internal/domain"
)

const movementColumns = `id, kind, amount, origin_account_id, destination_account_number,
	details, reversed, active, created_at`

type MovementRepository struct {
	db *sql.DB
}

func NewMovementRepository(db *sql.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

// Create appends one journal entry inside tx so the entry commits together
// with the balance mutation that produced it.
func (r *MovementRepository) Create(ctx context.Context, tx *sql.Tx, m *domain.Movement) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO movements (
			id, kind, amount, origin_account_id, destination_account_number,
			details, reversed, active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.Kind, m.Amount, m.OriginAccountID, m.DestinationAccountNumber,
		m.Details, m.Reversed, m.Active, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *MovementRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Movement, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+movementColumns+` FROM movements WHERE id = $1 AND active`, id,
	)
	m, err := scanMovement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return m, nil
}

// GetForUpdate locks the journal row so the reversed flag can only flip once
// even under concurrent reversal attempts.
func (r *MovementRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Movement, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+movementColumns+` FROM movements WHERE id = $1 AND active FOR UPDATE`, id,
	)
	m, err := scanMovement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return m, nil
}

func (r *MovementRepository) MarkReversed(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE movements SET reversed = TRUE WHERE id = $1 AND NOT reversed`, id,
	)
	if err != nil {
		return fmt.Errorf("MarkReversed: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkReversed: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("MarkReversed: %w", domain.ErrAlreadyReversed)
	}
	return nil
}

type MovementFilter struct {
	From *time.Time
	To   *time.Time
}

// ListByAccount returns journal entries touching the account (as origin or
// destination), newest first, optionally bounded to a time range.
func (r *MovementRepository) ListByAccount(ctx context.Context, account *domain.Account, filter MovementFilter, limit, offset int) ([]domain.Movement, int, error) {
	where := `WHERE active AND (origin_account_id = $1 OR destination_account_number = $2)`
	args := []any{account.ID, account.AccountNumber}

	if filter.From != nil {
		args = append(args, *filter.From)
		where += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += fmt.Sprintf(` AND created_at <= $%d`, len(args))
	}

	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movements `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByAccount: count: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+movementColumns+` FROM movements `+where+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByAccount: %w", err)
	}
	defer rows.Close()

	var movements []domain.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ListByAccount: scan: %w", err)
		}
		movements = append(movements, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListByAccount: rows: %w", err)
	}
	return movements, total, nil
}

// SoftDelete hides a journal entry from listings. Balances are untouched.
func (r *MovementRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE movements SET active = FALSE WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("SoftDelete: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SoftDelete: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("SoftDelete: %w", domain.ErrNotFound)
	}
	return nil
}

func scanMovement(s scanner) (*domain.Movement, error) {
	var m domain.Movement
	err := s.Scan(
		&m.ID, &m.Kind, &m.Amount, &m.OriginAccountID, &m.DestinationAccountNumber,
		&m.Details, &m.Reversed, &m.Active, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
