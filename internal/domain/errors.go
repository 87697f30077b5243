package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrAccountNotFound       = errors.New("account not found")
	ErrAccountInactive       = errors.New("account inactive")
	ErrInvalidAmount         = errors.New("amount must be greater than zero")
	ErrSelfTransfer          = errors.New("cannot transfer to same account")
	ErrTransferLimitExceeded = errors.New("amount exceeds per-transfer limit")
	ErrDailyLimitExceeded    = errors.New("daily transfer limit exceeded")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrAlreadyReversed       = errors.New("deposit already reversed")
	ErrReversalWindowExpired = errors.New("reversal window expired")
	ErrNotReversible         = errors.New("movement is not a reversible deposit")
	ErrVersionConflict       = errors.New("optimistic lock conflict")
	ErrAccountExists         = errors.New("user already has an account")
	ErrEmailExists           = errors.New("email already registered")
	ErrInvalidRequest        = errors.New("invalid request")
)
