package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/banca-gt/banking-api/internal/domain"
	"github.com/banca-gt/banking-api/internal/ledger"
	"github.com/banca-gt/banking-api/internal/logging"
)

type depositService interface {
	Deposit(ctx context.Context, req ledger.DepositRequest) (*domain.Movement, error)
	ReverseDeposit(ctx context.Context, movementID uuid.UUID) (*domain.Movement, error)
}

// DepositHandler serves the teller endpoints: crediting an account and
// undoing a recent deposit.
type DepositHandler struct {
	engine depositService
}

func NewDepositHandler(engine depositService) *DepositHandler {
	return &DepositHandler{engine: engine}
}

type createDepositRequest struct {
	AccountNumber string          `json:"account_number"`
	Amount        decimal.Decimal `json:"amount"`
	Details       string          `json:"details"`
}

func (r createDepositRequest) Validate() []FieldError {
	var errs []FieldError
	if r.AccountNumber == "" {
		errs = append(errs, FieldError{Field: "account_number", Message: "required"})
	}
	if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	if len(r.Details) > maxDetailsLength {
		errs = append(errs, FieldError{Field: "details", Message: "must be at most 75 characters"})
	}
	return errs
}

func (h *DepositHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req createDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	m, err := h.engine.Deposit(r.Context(), ledger.DepositRequest{
		DestinationAccountNumber: req.AccountNumber,
		Amount:                   req.Amount,
		Details:                  req.Details,
	})
	if err != nil {
		log.Warn("deposit failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toMovementDTO(m))
}

func (h *DepositHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	movementID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	m, err := h.engine.ReverseDeposit(r.Context(), movementID)
	if err != nil {
		log.Warn("deposit reversal failed", "movement_id", movementID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toMovementDTO(m))
}
