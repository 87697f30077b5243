package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/banca-gt/banking-api/internal/domain"
)

const purchaseColumns = `id, buyer_user_id, product_id, quantity, total, movement_id, created_at`

type PurchaseRepository struct {
	db *sql.DB
}

func NewPurchaseRepository(db *sql.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

func (r *PurchaseRepository) Create(ctx context.Context, p *domain.Purchase) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO purchases (id, buyer_user_id, product_id, quantity, total, movement_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.BuyerUserID, p.ProductID, p.Quantity, p.Total, p.MovementID, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *PurchaseRepository) ListByBuyer(ctx context.Context, buyerUserID uuid.UUID) ([]domain.Purchase, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+purchaseColumns+` FROM purchases
		WHERE buyer_user_id = $1 ORDER BY created_at DESC`, buyerUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByBuyer: %w", err)
	}
	defer rows.Close()

	var purchases []domain.Purchase
	for rows.Next() {
		var p domain.Purchase
		if err := rows.Scan(&p.ID, &p.BuyerUserID, &p.ProductID, &p.Quantity, &p.Total, &p.MovementID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListByBuyer: scan: %w", err)
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByBuyer: rows: %w", err)
	}
	return purchases, nil
}
