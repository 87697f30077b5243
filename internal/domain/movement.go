package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MovementKind string

const (
	MovementKindTransfer MovementKind = "transfer"
	MovementKindDeposit  MovementKind = "deposit"
	MovementKindReversal MovementKind = "reversal"
)

// Movement is one journal entry: a completed transfer, deposit, or deposit
// reversal. Entries are immutable once written except for the reversed flag
// (deposits, false->true exactly once) and the active soft-delete flag, which
// never touches balances.
type Movement struct {
	ID                       uuid.UUID
	Kind                     MovementKind
	Amount                   decimal.Decimal
	OriginAccountID          *uuid.UUID
	DestinationAccountNumber string
	Details                  string
	Reversed                 bool
	Active                   bool
	CreatedAt                time.Time
}

// DefaultDetails is recorded when the caller supplies no description.
const DefaultDetails = "Sin detalles"
