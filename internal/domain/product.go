package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Image       *string
	Active      bool
	CreatedAt   time.Time
}

// Purchase records product ownership after the purchase transfer committed.
// The monetary effect lives in the referenced movement, not here.
type Purchase struct {
	ID          uuid.UUID
	BuyerUserID uuid.UUID
	ProductID   uuid.UUID
	Quantity    int
	Total       decimal.Decimal
	MovementID  uuid.UUID
	CreatedAt   time.Time
}
