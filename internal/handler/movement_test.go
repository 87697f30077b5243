package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banca-gt/banking-api/internal/auth"
	"github.com/banca-gt/banking-api/internal/domain"
	"github.com/banca-gt/banking-api/internal/ledger"
	"github.com/banca-gt/banking-api/internal/repository"
)

type mockTransferEngine struct {
	got *ledger.TransferRequest
	m   *domain.Movement
	err error
}

func (m *mockTransferEngine) Transfer(_ context.Context, req ledger.TransferRequest) (*domain.Movement, error) {
	m.got = &req
	if m.err != nil {
		return nil, m.err
	}
	return m.m, nil
}

type mockAccountReader struct {
	account *domain.Account
	err     error
}

func (m *mockAccountReader) GetAccountByID(context.Context, uuid.UUID) (*domain.Account, error) {
	return m.account, m.err
}

func (m *mockAccountReader) GetAccountByOwner(context.Context, uuid.UUID) (*domain.Account, error) {
	return m.account, m.err
}

type mockMovementReader struct{}

func (mockMovementReader) GetByID(context.Context, uuid.UUID) (*domain.Movement, error) {
	return nil, domain.ErrNotFound
}

func (mockMovementReader) ListByAccount(context.Context, *domain.Account, repository.MovementFilter, int, int) ([]domain.Movement, int, error) {
	return nil, 0, nil
}

func (mockMovementReader) SoftDelete(context.Context, uuid.UUID) error { return nil }

func authedRequest(method, target, body string, userID uuid.UUID, role domain.Role) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := auth.ContextWithClaims(req.Context(), &auth.Claims{
		UserID: userID,
		Email:  "caller@test.com",
		Role:   role,
	})
	return req.WithContext(ctx)
}

func transferBody(destination, amount, details string) string {
	b, _ := json.Marshal(map[string]string{
		"destination_account_number": destination,
		"amount":                     amount,
		"details":                    details,
	})
	return string(b)
}

func TestCreateTransfer(t *testing.T) {
	userID := uuid.New()
	originID := uuid.New()
	origin := &domain.Account{
		ID:            originID,
		OwnerID:       &userID,
		AccountNumber: "1000000001",
		Balance:       decimal.NewFromInt(5000),
		Active:        true,
	}
	completed := &domain.Movement{
		ID:                       uuid.New(),
		Kind:                     domain.MovementKindTransfer,
		Amount:                   decimal.NewFromInt(100),
		OriginAccountID:          &originID,
		DestinationAccountNumber: "1000000002",
		Details:                  "rent",
		CreatedAt:                time.Now().UTC(),
	}

	tests := []struct {
		name       string
		body       string
		engineErr  error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "valid transfer",
			body:       transferBody("1000000002", "100", "rent"),
			wantStatus: http.StatusCreated,
		},
		{
			name:       "invalid JSON body",
			body:       "not-json",
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "missing destination",
			body:       transferBody("", "100", ""),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "zero amount",
			body:       transferBody("1000000002", "0", ""),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "details over 75 characters",
			body:       transferBody("1000000002", "100", strings.Repeat("x", 76)),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "per-transfer limit",
			body:       transferBody("1000000002", "2000", ""),
			engineErr:  fmt.Errorf("Transfer: %w", domain.ErrTransferLimitExceeded),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "TRANSFER_LIMIT_EXCEEDED",
		},
		{
			name:       "daily limit",
			body:       transferBody("1000000002", "100", ""),
			engineErr:  fmt.Errorf("Transfer: %w", domain.ErrDailyLimitExceeded),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "DAILY_LIMIT_EXCEEDED",
		},
		{
			name:       "insufficient funds",
			body:       transferBody("1000000002", "100", ""),
			engineErr:  fmt.Errorf("Transfer: %w", domain.ErrInsufficientFunds),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "INSUFFICIENT_FUNDS",
		},
		{
			name:       "self transfer",
			body:       transferBody("1000000001", "100", ""),
			engineErr:  fmt.Errorf("Transfer: %w", domain.ErrSelfTransfer),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "SELF_TRANSFER_NOT_ALLOWED",
		},
		{
			name:       "unknown destination",
			body:       transferBody("9999999999", "100", ""),
			engineErr:  fmt.Errorf("Transfer: %w", domain.ErrAccountNotFound),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "ACCOUNT_NOT_FOUND",
		},
		{
			name:       "engine failure returns 500",
			body:       transferBody("1000000002", "100", ""),
			engineErr:  fmt.Errorf("connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			eng := &mockTransferEngine{m: completed, err: tc.engineErr}
			h := NewMovementHandler(eng, mockMovementReader{}, &mockAccountReader{account: origin})

			req := authedRequest(http.MethodPost, "/api/v1/transfers", tc.body, userID, domain.RoleClient)
			rr := httptest.NewRecorder()

			h.CreateTransfer(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)

			var resp APIResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

			if tc.wantCode == "" {
				assert.True(t, resp.Success)
			} else {
				assert.False(t, resp.Success)
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
			}
		})
	}
}

func TestCreateTransfer_UsesCallersAccountAsOrigin(t *testing.T) {
	userID := uuid.New()
	originID := uuid.New()
	origin := &domain.Account{ID: originID, OwnerID: &userID, AccountNumber: "1000000001", Active: true}

	eng := &mockTransferEngine{m: &domain.Movement{ID: uuid.New(), OriginAccountID: &originID}}
	h := NewMovementHandler(eng, mockMovementReader{}, &mockAccountReader{account: origin})

	req := authedRequest(http.MethodPost, "/api/v1/transfers", transferBody("1000000002", "42.50", "lunch"), userID, domain.RoleClient)
	rr := httptest.NewRecorder()

	h.CreateTransfer(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	require.NotNil(t, eng.got)
	assert.Equal(t, originID, eng.got.OriginAccountID)
	assert.Equal(t, "1000000002", eng.got.DestinationAccountNumber)
	assert.True(t, eng.got.Amount.Equal(decimal.RequireFromString("42.50")))
	assert.Equal(t, "lunch", eng.got.Details)
}

func TestCreateTransfer_Unauthenticated(t *testing.T) {
	h := NewMovementHandler(&mockTransferEngine{}, mockMovementReader{}, &mockAccountReader{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", strings.NewReader(transferBody("1000000002", "100", "")))
	rr := httptest.NewRecorder()

	h.CreateTransfer(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
