package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/banca-gt/banking-api/internal/domain"
	"github.com/banca-gt/banking-api/internal/logging"
	"github.com/banca-gt/banking-api/internal/repository"
)

type accountRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*domain.Account, error)
	List(ctx context.Context, limit, offset int) ([]domain.Account, int, error)
	Create(ctx context.Context, account *domain.Account) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type userChecker interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type AccountService struct {
	accounts accountRepo
	users    userChecker
}

func NewAccountService(accounts accountRepo, users userChecker) *AccountService {
	return &AccountService{accounts: accounts, users: users}
}

// maxNumberRetries bounds the unique-violation retry loop for randomly
// generated account numbers; collisions on a 10-digit space are rare.
const maxNumberRetries = 5

// CreateAccount opens the single account a user may own.
func (s *AccountService) CreateAccount(ctx context.Context, ownerID uuid.UUID) (*domain.Account, error) {
	log := logging.FromContext(ctx)

	if _, err := s.users.GetByID(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("CreateAccount: %w", err)
	}

	_, err := s.accounts.GetByOwnerID(ctx, ownerID)
	if err == nil {
		return nil, fmt.Errorf("CreateAccount: %w", domain.ErrAccountExists)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("CreateAccount: check existing: %w", err)
	}

	account := &domain.Account{
		OwnerID:   &ownerID,
		Balance:   decimal.Zero,
		Version:   1,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.createWithFreshNumber(ctx, account); err != nil {
		return nil, fmt.Errorf("CreateAccount: %w", err)
	}

	log.Info("account created",
		"account_id", account.ID,
		"owner_id", ownerID,
		"account_number", account.AccountNumber,
	)

	return account, nil
}

func (s *AccountService) createWithFreshNumber(ctx context.Context, account *domain.Account) error {
	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		number, err := generateAccountNumber()
		if err != nil {
			return err
		}

		account.ID = uuid.New()
		account.AccountNumber = number

		err = s.accounts.Create(ctx, account)
		if err == nil {
			return nil
		}
		if repository.IsUniqueViolation(err) {
			continue
		}
		return err
	}
	return fmt.Errorf("createWithFreshNumber: exhausted %d attempts", maxNumberRetries)
}

func (s *AccountService) GetAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetAccountByID: %w", err)
	}
	return account, nil
}

func (s *AccountService) GetAccountByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Account, error) {
	account, err := s.accounts.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("GetAccountByOwner: %w", err)
	}
	return account, nil
}

func (s *AccountService) ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, int, error) {
	accounts, total, err := s.accounts.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ListAccounts: %w", err)
	}
	return accounts, total, nil
}

// DeactivateAccount soft-deletes: the row and its history remain.
func (s *AccountService) DeactivateAccount(ctx context.Context, id uuid.UUID) error {
	if err := s.accounts.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("DeactivateAccount: %w", err)
	}
	logging.FromContext(ctx).Info("account deactivated", "account_id", id)
	return nil
}

func generateAccountNumber() (string, error) {
	digits := make([]byte, 10)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generateAccountNumber: %w", err)
		}
		digits[i] = '0' + byte(n.Int64())
	}
	return string(digits), nil
}
