package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is the durable balance record. OwnerID is nil only for the house
// account, which belongs to the bank itself. Balance never goes below zero,
// and only the ledger engine writes it.
type Account struct {
	ID            uuid.UUID
	OwnerID       *uuid.UUID
	AccountNumber string
	Balance       decimal.Decimal
	Version       int64
	Active        bool
	CreatedAt     time.Time
}
