package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"}
	ErrForbidden          = &AppError{http.StatusForbidden, "FORBIDDEN", "Administrator role required"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrAccountNotFound       = &AppError{http.StatusUnprocessableEntity, "ACCOUNT_NOT_FOUND", "Account not found"}
	ErrAccountInactive       = &AppError{http.StatusUnprocessableEntity, "ACCOUNT_INACTIVE", "Account is inactive"}
	ErrInvalidAmount         = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrSelfTransfer          = &AppError{http.StatusUnprocessableEntity, "SELF_TRANSFER_NOT_ALLOWED", "Cannot transfer to the same account"}
	ErrTransferLimitExceeded = &AppError{http.StatusUnprocessableEntity, "TRANSFER_LIMIT_EXCEEDED", "Amount exceeds the per-transfer limit"}
	ErrDailyLimitExceeded    = &AppError{http.StatusUnprocessableEntity, "DAILY_LIMIT_EXCEEDED", "Daily transfer limit exceeded"}
	ErrInsufficientFunds     = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient funds"}
	ErrAlreadyReversed       = &AppError{http.StatusConflict, "ALREADY_REVERSED", "Deposit was already reversed"}
	ErrReversalWindowExpired = &AppError{http.StatusUnprocessableEntity, "REVERSAL_WINDOW_EXPIRED", "Reversal window has expired"}
	ErrNotReversible         = &AppError{http.StatusUnprocessableEntity, "NOT_REVERSIBLE", "Movement is not a reversible deposit"}
	ErrVersionConflict       = &AppError{http.StatusConflict, "VERSION_CONFLICT", "Resource was modified concurrently, please retry"}
	ErrAccountExists         = &AppError{http.StatusConflict, "ACCOUNT_ALREADY_EXISTS", "User already has an account"}
	ErrEmailExists           = &AppError{http.StatusConflict, "EMAIL_ALREADY_EXISTS", "Email already registered"}

	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
)
