package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/banca-gt/banking-api/internal/config"
	"github.com/banca-gt/banking-api/internal/domain"
	"github.com/banca-gt/banking-api/internal/logging"
)

type bootstrapUserRepo interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type bootstrapAccountRepo interface {
	GetByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	Create(ctx context.Context, account *domain.Account) error
}

type bootstrapProductRepo interface {
	GetByName(ctx context.Context, name string) (*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
}

// Bootstrap seeds the default administrator, the house account that absorbs
// purchase funds, and a default catalog product. Safe to run on every start.
func Bootstrap(ctx context.Context, cfg *config.Config, users bootstrapUserRepo, accounts bootstrapAccountRepo, products bootstrapProductRepo) error {
	log := logging.FromContext(ctx)

	if err := seedAdmin(ctx, cfg, users); err != nil {
		return fmt.Errorf("Bootstrap: %w", err)
	}
	if err := seedHouseAccount(ctx, cfg, accounts); err != nil {
		return fmt.Errorf("Bootstrap: %w", err)
	}
	if err := seedDefaultProduct(ctx, products); err != nil {
		return fmt.Errorf("Bootstrap: %w", err)
	}

	log.Info("bootstrap complete", "house_account", cfg.HouseAccountNumber)
	return nil
}

func seedAdmin(ctx context.Context, cfg *config.Config, users bootstrapUserRepo) error {
	_, err := users.GetByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("seedAdmin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seedAdmin: hash password: %w", err)
	}

	admin := &domain.User{
		ID:           uuid.New(),
		Email:        cfg.AdminEmail,
		Name:         "Administrator",
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := users.Create(ctx, admin); err != nil {
		// Another instance may have seeded concurrently.
		if errors.Is(err, domain.ErrEmailExists) {
			return nil
		}
		return fmt.Errorf("seedAdmin: %w", err)
	}
	return nil
}

func seedHouseAccount(ctx context.Context, cfg *config.Config, accounts bootstrapAccountRepo) error {
	_, err := accounts.GetByNumber(ctx, cfg.HouseAccountNumber)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("seedHouseAccount: %w", err)
	}

	seed, err := decimal.NewFromString(cfg.HouseSeedBalance)
	if err != nil {
		return fmt.Errorf("seedHouseAccount: parse seed balance: %w", err)
	}

	house := &domain.Account{
		ID:            uuid.New(),
		OwnerID:       nil,
		AccountNumber: cfg.HouseAccountNumber,
		Balance:       seed,
		Version:       1,
		Active:        true,
		CreatedAt:     time.Now().UTC(),
	}
	if err := accounts.Create(ctx, house); err != nil {
		return fmt.Errorf("seedHouseAccount: %w", err)
	}
	return nil
}

const defaultProductName = "Chequera"

func seedDefaultProduct(ctx context.Context, products bootstrapProductRepo) error {
	_, err := products.GetByName(ctx, defaultProductName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("seedDefaultProduct: %w", err)
	}

	p := &domain.Product{
		ID:          uuid.New(),
		Name:        defaultProductName,
		Description: "Standard checkbook, 25 checks",
		Price:       decimal.NewFromInt(25),
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	if err := products.Create(ctx, p); err != nil {
		return fmt.Errorf("seedDefaultProduct: %w", err)
	}
	return nil
}
