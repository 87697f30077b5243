package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/banca-gt/banking-api/internal/auth"
	"github.com/banca-gt/banking-api/internal/domain"
	"github.com/banca-gt/banking-api/internal/logging"
)

type accountService interface {
	GetAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetAccountByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Account, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, int, error)
	DeactivateAccount(ctx context.Context, id uuid.UUID) error
}

type dailyTotalReader interface {
	GetDailyTotal(ctx context.Context, accountID uuid.UUID, day time.Time) (decimal.Decimal, error)
}

type AccountHandler struct {
	accounts accountService
	ledger   dailyTotalReader
}

func NewAccountHandler(accounts accountService, ledger dailyTotalReader) *AccountHandler {
	return &AccountHandler{accounts: accounts, ledger: ledger}
}

type accountDTO struct {
	ID            uuid.UUID       `json:"id"`
	OwnerID       *uuid.UUID      `json:"owner_id"`
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toAccountDTO(a *domain.Account) accountDTO {
	return accountDTO{
		ID:            a.ID,
		OwnerID:       a.OwnerID,
		AccountNumber: a.AccountNumber,
		Balance:       a.Balance,
		Active:        a.Active,
		CreatedAt:     a.CreatedAt,
	}
}

// GetOwn returns the caller's account.
func (h *AccountHandler) GetOwn(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	account, err := h.accounts.GetAccountByOwner(r.Context(), userID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toAccountDTO(account))
}

// GetByID returns an account to its owner or to an administrator.
func (h *AccountHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	account, err := h.accounts.GetAccountByID(r.Context(), accountID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	if appErr := requireOwnerOrAdmin(r, account); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	RespondSuccess(w, http.StatusOK, toAccountDTO(account))
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 10)

	accounts, total, err := h.accounts.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list accounts", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]accountDTO, 0, len(accounts))
	for i := range accounts {
		dtos = append(dtos, toAccountDTO(&accounts[i]))
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"total":    total,
		"accounts": dtos,
	})
}

func (h *AccountHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	if err := h.accounts.DeactivateAccount(r.Context(), accountID); err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// GetDailyTotal reports the amount transferred out of the account on a
// calendar day (today when the date parameter is absent).
func (h *AccountHandler) GetDailyTotal(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	account, err := h.accounts.GetAccountByID(r.Context(), accountID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	if appErr := requireOwnerOrAdmin(r, account); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	day := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		day, err = time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			RespondValidationError(w, []FieldError{{Field: "date", Message: "must be YYYY-MM-DD"}})
			return
		}
	}

	total, err := h.ledger.GetDailyTotal(r.Context(), accountID, day)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"account_id": accountID,
		"date":       domain.Day(day).Format("2006-01-02"),
		"total":      total,
	})
}

func paginationParams(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
