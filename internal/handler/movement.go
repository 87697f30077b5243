package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/banca-gt/banking-api/internal/auth"
	"github.com/banca-gt/banking-api/internal/domain"
	"github.com/banca-gt/banking-api/internal/ledger"
	"github.com/banca-gt/banking-api/internal/logging"
	"github.com/banca-gt/banking-api/internal/repository"
)

type transferService interface {
	Transfer(ctx context.Context, req ledger.TransferRequest) (*domain.Movement, error)
}

type movementReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Movement, error)
	ListByAccount(ctx context.Context, account *domain.Account, filter repository.MovementFilter, limit, offset int) ([]domain.Movement, int, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type accountReader interface {
	GetAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetAccountByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Account, error)
}

type MovementHandler struct {
	engine    transferService
	movements movementReader
	accounts  accountReader
}

func NewMovementHandler(engine transferService, movements movementReader, accounts accountReader) *MovementHandler {
	return &MovementHandler{engine: engine, movements: movements, accounts: accounts}
}

const maxDetailsLength = 75

type createTransferRequest struct {
	DestinationAccountNumber string          `json:"destination_account_number"`
	Amount                   decimal.Decimal `json:"amount"`
	Details                  string          `json:"details"`
}

func (r createTransferRequest) Validate() []FieldError {
	var errs []FieldError
	if r.DestinationAccountNumber == "" {
		errs = append(errs, FieldError{Field: "destination_account_number", Message: "required"})
	}
	if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	if len(r.Details) > maxDetailsLength {
		errs = append(errs, FieldError{Field: "details", Message: "must be at most 75 characters"})
	}
	return errs
}

type movementDTO struct {
	ID                       uuid.UUID       `json:"id"`
	Kind                     string          `json:"kind"`
	Amount                   decimal.Decimal `json:"amount"`
	OriginAccountID          *uuid.UUID      `json:"origin_account_id"`
	DestinationAccountNumber string          `json:"destination_account_number"`
	Details                  string          `json:"details"`
	Reversed                 bool            `json:"reversed"`
	CreatedAt                time.Time       `json:"created_at"`
}

func toMovementDTO(m *domain.Movement) movementDTO {
	return movementDTO{
		ID:                       m.ID,
		Kind:                     string(m.Kind),
		Amount:                   m.Amount,
		OriginAccountID:          m.OriginAccountID,
		DestinationAccountNumber: m.DestinationAccountNumber,
		Details:                  m.Details,
		Reversed:                 m.Reversed,
		CreatedAt:                m.CreatedAt,
	}
}

// CreateTransfer moves funds out of the caller's own account.
func (h *MovementHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req createTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	origin, err := h.accounts.GetAccountByOwner(r.Context(), userID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	m, err := h.engine.Transfer(r.Context(), ledger.TransferRequest{
		OriginAccountID:          origin.ID,
		DestinationAccountNumber: req.DestinationAccountNumber,
		Amount:                   req.Amount,
		Details:                  req.Details,
	})
	if err != nil {
		log.Warn("transfer failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toMovementDTO(m))
}

func (h *MovementHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	movementID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	m, err := h.movements.GetByID(r.Context(), movementID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toMovementDTO(m))
}

// ListByAccount returns an account's history, newest first, optionally
// bounded by from/to (RFC 3339).
func (h *MovementHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
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

	filter, fields := movementFilterFromQuery(r)
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	limit, offset := paginationParams(r, 10)

	movements, total, err := h.movements.ListByAccount(r.Context(), account, filter, limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list movements", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]movementDTO, 0, len(movements))
	for i := range movements {
		dtos = append(dtos, toMovementDTO(&movements[i]))
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"total":     total,
		"movements": dtos,
	})
}

// SoftDelete hides a journal entry; balances stay as they are.
func (h *MovementHandler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	movementID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	if err := h.movements.SoftDelete(r.Context(), movementID); err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{"status": "disabled"})
}

func movementFilterFromQuery(r *http.Request) (repository.MovementFilter, []FieldError) {
	var filter repository.MovementFilter
	var errs []FieldError

	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			errs = append(errs, FieldError{Field: "from", Message: "must be RFC 3339"})
		} else {
			filter.From = &t
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			errs = append(errs, FieldError{Field: "to", Message: "must be RFC 3339"})
		} else {
			filter.To = &t
		}
	}
	return filter, errs
}
