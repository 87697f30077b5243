package testutil

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/banca-gt/banking-api/internal/domain"
)

const HouseAccountNumber = "0000000001"

var houseSeedBalance = decimal.NewFromInt(10_000_000)

func SeedTestUser(t *testing.T, db *sql.DB, email string, role domain.Role) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         "Test",
		Surname:      "User",
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, email, name, surname, password_hash, role, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Email, u.Name, u.Surname, u.PasswordHash, u.Role, u.Active, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed test user %s: %v", email, err)
	}
	return u
}

func SeedTestAccount(t *testing.T, db *sql.DB, ownerID uuid.UUID, balance decimal.Decimal) *domain.Account {
	t.Helper()

	a := &domain.Account{
		ID:            uuid.New(),
		OwnerID:       &ownerID,
		AccountNumber: nextAccountNumber(),
		Balance:       balance,
		Version:       1,
		Active:        true,
		CreatedAt:     time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO accounts (id, owner_id, account_number, balance, version, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.OwnerID, a.AccountNumber, a.Balance, a.Version, a.Active, a.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed test account for %s: %v", ownerID, err)
	}
	return a
}

func SeedHouseAccount(t *testing.T, db *sql.DB) *domain.Account {
	t.Helper()

	a := &domain.Account{
		ID:            uuid.New(),
		AccountNumber: HouseAccountNumber,
		Balance:       houseSeedBalance,
		Version:       1,
		Active:        true,
		CreatedAt:     time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO accounts (id, owner_id, account_number, balance, version, active, created_at)
		 VALUES ($1, NULL, $2, $3, $4, $5, $6)`,
		a.ID, a.AccountNumber, a.Balance, a.Version, a.Active, a.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed house account: %v", err)
	}
	return a
}

func SeedTestProduct(t *testing.T, db *sql.DB, name string, price decimal.Decimal) *domain.Product {
	t.Helper()

	p := &domain.Product{
		ID:          uuid.New(),
		Name:        name,
		Description: "test product",
		Price:       price,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO products (id, name, description, price, image, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Name, p.Description, p.Price, p.Image, p.Active, p.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed test product %s: %v", name, err)
	}
	return p
}

func GetAccountBalance(t *testing.T, db *sql.DB, accountID uuid.UUID) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	err := db.QueryRow(`SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if err != nil {
		t.Fatalf("get account balance %s: %v", accountID, err)
	}
	return balance
}

func CountMovements(t *testing.T, db *sql.DB, accountID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM movements m
		 WHERE m.origin_account_id = $1
		    OR m.destination_account_number = (SELECT account_number FROM accounts WHERE id = $1)`,
		accountID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count movements for account %s: %v", accountID, err)
	}
	return count
}

// BackdateMovement shifts a journal entry into the past, so tests can cross
// the reversal window without sleeping.
func BackdateMovement(t *testing.T, db *sql.DB, movementID uuid.UUID, age time.Duration) {
	t.Helper()

	res, err := db.Exec(
		`UPDATE movements SET created_at = now() - $2::interval WHERE id = $1`,
		movementID, fmt.Sprintf("%d seconds", int(age.Seconds())),
	)
	if err != nil {
		t.Fatalf("backdate movement %s: %v", movementID, err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		t.Fatalf("backdate movement %s: expected 1 row, got %d", movementID, n)
	}
}

var accountNumberSeq atomic.Uint64

func nextAccountNumber() string {
	return fmt.Sprintf("%010d", 1_000_000_000+accountNumberSeq.Add(1))
}
