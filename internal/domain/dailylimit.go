package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DailyLimitRecord accumulates the amount transferred out of one account on
// one calendar day. At most one record exists per (account, day); it is only
// read or written while the origin account's row lock is held.
type DailyLimitRecord struct {
	AccountID uuid.UUID
	Day       time.Time
	Amount    decimal.Decimal
}

// Day truncates t to local midnight, the boundary daily limits align to.
func Day(t time.Time) time.Time {
	local := t.Local()
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}
