package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/banca-gt/banking-api/internal/domain"
	"github.com/banca-gt/banking-api/internal/ledger"
	"github.com/banca-gt/banking-api/internal/logging"
)

type productRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
}

type purchaseRepo interface {
	Create(ctx context.Context, p *domain.Purchase) error
	ListByBuyer(ctx context.Context, buyerUserID uuid.UUID) ([]domain.Purchase, error)
}

type buyerAccountResolver interface {
	GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*domain.Account, error)
}

type transferEngine interface {
	Transfer(ctx context.Context, req ledger.TransferRequest) (*domain.Movement, error)
}

// PurchaseService sits outside the engine: it selects the product, computes
// the total, and hands the money movement to the ledger engine. Purchases go
// through the same caps as any transfer.
type PurchaseService struct {
	products           productRepo
	purchases          purchaseRepo
	accounts           buyerAccountResolver
	engine             transferEngine
	houseAccountNumber string
}

func NewPurchaseService(products productRepo, purchases purchaseRepo, accounts buyerAccountResolver, engine transferEngine, houseAccountNumber string) *PurchaseService {
	return &PurchaseService{
		products:           products,
		purchases:          purchases,
		accounts:           accounts,
		engine:             engine,
		houseAccountNumber: houseAccountNumber,
	}
}

func (s *PurchaseService) BuyProduct(ctx context.Context, buyerUserID, productID uuid.UUID, quantity int) (*domain.Purchase, error) {
	log := logging.FromContext(ctx)

	if quantity <= 0 {
		return nil, fmt.Errorf("BuyProduct: quantity: %w", domain.ErrInvalidRequest)
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("BuyProduct: %w", err)
	}
	if !product.Active {
		return nil, fmt.Errorf("BuyProduct: product: %w", domain.ErrNotFound)
	}

	buyerAccount, err := s.accounts.GetByOwnerID(ctx, buyerUserID)
	if err != nil {
		return nil, fmt.Errorf("BuyProduct: %w", err)
	}

	total := product.Price.Mul(decimal.NewFromInt(int64(quantity)))

	movement, err := s.engine.Transfer(ctx, ledger.TransferRequest{
		OriginAccountID:          buyerAccount.ID,
		DestinationAccountNumber: s.houseAccountNumber,
		Amount:                   total,
		Details:                  fmt.Sprintf("purchase: %dx %s", quantity, product.Name),
	})
	if err != nil {
		return nil, fmt.Errorf("BuyProduct: %w", err)
	}

	purchase := &domain.Purchase{
		ID:          uuid.New(),
		BuyerUserID: buyerUserID,
		ProductID:   productID,
		Quantity:    quantity,
		Total:       total,
		MovementID:  movement.ID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.purchases.Create(ctx, purchase); err != nil {
		// The transfer committed; ownership bookkeeping failing here must
		// be visible to operators even though funds already moved.
		log.Error("purchase record failed after transfer committed",
			"movement_id", movement.ID,
			"buyer_user_id", buyerUserID,
			"product_id", productID,
			"error", err,
		)
		return nil, fmt.Errorf("BuyProduct: record purchase: %w", err)
	}

	log.Info("product purchased",
		"purchase_id", purchase.ID,
		"product_id", productID,
		"quantity", quantity,
		"total", total,
		"movement_id", movement.ID,
	)

	return purchase, nil
}

func (s *PurchaseService) ListPurchases(ctx context.Context, buyerUserID uuid.UUID) ([]domain.Purchase, error) {
	purchases, err := s.purchases.ListByBuyer(ctx, buyerUserID)
	if err != nil {
		return nil, fmt.Errorf("ListPurchases: %w", err)
	}
	return purchases, nil
}
