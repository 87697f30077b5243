package ledger_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banca-gt/banking-api/internal/domain"
	"github.com/banca-gt/banking-api/internal/ledger"
	"github.com/banca-gt/banking-api/internal/repository"
	"github.com/banca-gt/banking-api/internal/testutil"
)

func setupEngine(t *testing.T, db *sql.DB) *ledger.Engine {
	t.Helper()
	return ledger.NewEngine(
		repository.NewAccountRepository(db),
		repository.NewMovementRepository(db),
		repository.NewDailyLimitRepository(db),
		db,
		ledger.Limits{
			PerTransfer:    decimal.NewFromInt(2000),
			PerDay:         decimal.NewFromInt(10000),
			ReversalWindow: 60 * time.Second,
		},
	)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertBalance(t *testing.T, db *sql.DB, accountID uuid.UUID, want decimal.Decimal) {
	t.Helper()
	got := testutil.GetAccountBalance(t, db, accountID)
	assert.True(t, got.Equal(want), "balance: want %s, got %s", want, got)
}

func TestTransfer_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	eng := setupEngine(t, db)
	ctx := context.Background()

	alice := testutil.SeedTestUser(t, db, "alice@test.com", domain.RoleClient)
	bob := testutil.SeedTestUser(t, db, "bob@test.com", domain.RoleClient)
	aliceAcct := testutil.SeedTestAccount(t, db, alice.ID, dec("5000"))
	bobAcct := testutil.SeedTestAccount(t, db, bob.ID, dec("100"))

	m, err := eng.Transfer(ctx, ledger.TransferRequest{
		OriginAccountID:          aliceAcct.ID,
		DestinationAccountNumber: bobAcct.AccountNumber,
		Amount:                   dec("1500"),
		Details:                  "rent",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.MovementKindTransfer, m.Kind)
	assert.True(t, m.Amount.Equal(dec("1500")))
	require.NotNil(t, m.OriginAccountID)
	assert.Equal(t, aliceAcct.ID, *m.OriginAccountID)
	assert.Equal(t, bobAcct.AccountNumber, m.DestinationAccountNumber)
	assert.Equal(t, "rent", m.Details)
	assert.False(t, m.Reversed)

	assertBalance(t, db, aliceAcct.ID, dec("3500"))
	assertBalance(t, db, bobAcct.ID, dec("1600"))

	assert.Equal(t, 1, testutil.CountMovements(t, db, aliceAcct.ID))
	assert.Equal(t, 1, testutil.CountMovements(t, db, bobAcct.ID))

	total, err := eng.GetDailyTotal(ctx, aliceAcct.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("1500")), "daily total: got %s", total)
}

func TestTransfer_DefaultDetails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	eng := setupEngine(t, db)
	ctx := context.Background()

	alice := testutil.SeedTestUser(t, db, "alice@test.com", domain.RoleClient)
	bob := testutil.SeedTestUser(t, db, "bob@test.com", domain.RoleClient)
	aliceAcct := testutil.SeedTestAccount(t, db, alice.ID, dec("1000"))
	bobAcct := testutil.SeedTestAccount(t, db, bob.ID, dec("0"))

	m, err := eng.Transfer(ctx, ledger.TransferRequest{
		OriginAccountID:          aliceAcct.ID,
		DestinationAccountNumber: bobAcct.AccountNumber,
		Amount:                   dec("10"),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultDetails, m.Details)
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	db := testutil.SetupTestDB(t)
	eng := setupEngine(t, db)
	ctx := context.Background()

	alice := testutil.SeedTestUser(t, db, "alice@test.com", domain.RoleClient)
	bob := testutil.SeedTestUser(t, db, "bob@test.com", domain.RoleClient)
	aliceAcct := testutil.SeedTestAccount(t, db, alice.ID, dec("100"))
	bobAcct := testutil.SeedTestAccount(t, db, bob.ID, dec("500"))

	_, err := eng.Transfer(ctx, ledger.TransferRequest{
		OriginAccountID:          aliceAcct.ID,
		DestinationAccountNumber: bobAcct.AccountNumber,
		Amount:                   dec("100.01"),
	})

	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assertBalance(t, db, aliceAcct.ID, dec("100"))
	assertBalance(t, db, bobAcct.ID, dec("500"))
	assert.Equal(t, 0, testutil.CountMovements(t, db, aliceAcct.ID))

	// The failed attempt must not consume daily-limit headroom either.
	total, err := eng.GetDailyTotal(ctx, aliceAcct.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, total.IsZero(), "daily total after rollback: got %s", total)
}

func TestTransfer_ExactBalanceDrainsToZero(t *testing.T) {
	db := testutil.SetupTestDB(t)
	eng := setupEngine(t, db)
	ctx := context.Background()

	alice := testutil.SeedTestUser(t, db, "alice@test.com", domain.RoleClient)
	bob := testutil.SeedTestUser(t, db, "bob@test.com", domain.RoleClient)
	aliceAcct := testutil.SeedTestAccount(t, db, alice.ID, dec("750.25"))
	bobAcct := testutil.SeedTestAccount(t, db, bob.ID, dec("0"))

	_, err := eng.Transfer(ctx, ledger.TransferRequest{
		OriginAccountID:          aliceAcct.ID,
		DestinationAccountNumber: bobAcct.AccountNumber,
		Amount:                   dec("750.25"),
	})

	require.NoError(t, err)
	assertBalance(t, db, aliceAcct.ID, dec("0"))
	assertBalance(t, db, bobAcct.ID, dec("750.25"))
}

func TestTransfer_SelfTransferRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	eng := setupEngine(t, db)
	ctx := context.Background()

	alice := testutil.SeedTestUser(t, db, "alice@test.com", domain.RoleClient)
	aliceAcct := testutil.SeedTestAccount(t, db, alice.ID, dec("1000"))

	_, err := eng.Transfer(ctx, ledger.TransferRequest{
		OriginAccountID:          aliceAcct.ID,
		DestinationAccountNumber: aliceAcct.AccountNumber,
		Amount:                   dec("100"),
	})

	require.ErrorIs(t, err, domain.ErrSelfTransfer)
	assertBalance(t, db, aliceAcct.ID, dec("1000"))
}

func TestTransfer_UnknownDestination(t *testing.T) {
	db := testutil.SetupTestDB(t)
	eng := setupEngine(t, db)
	ctx := context.Background()

	alice := testutil.SeedTestUser(t, db, "alice@test.com", domain.RoleClient)
	aliceAcct := testutil.SeedTestAccount(t, db, alice.ID, dec("1000"))

	_, err := eng.Transfer(ctx, ledger.TransferRequest{
		OriginAccountID:          aliceAcct.ID,
		DestinationAccountNumber: "9999999999",
		Amount:                   dec("100"),
	})

	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestTransfer_InactiveDestination(t *testing.T) {
	db := testutil.SetupTestDB(t)
	eng := setupEngine(t, db)
	ctx := context.Background()

	alice := testutil.SeedTestUser(t, db, "alice@test.com", domain.RoleClient)
	bob := testutil.SeedTestUser(t, db, "bob@test.com", domain.RoleClient)
	aliceAcct := testutil.SeedTestAccount(t, db, alice.ID, dec("1000"))
	bobAcct := testutil.SeedTestAccount(t, db, bob.ID, dec("0"))

	_, err := db.Exec(`UPDATE accounts SET active = FALSE WHERE id = $1`, bobAcct.ID)
	require.NoError(t, err)

	_, err = eng.Transfer(ctx, ledger.TransferRequest{
		OriginAccountID:          aliceAcct.ID,
		DestinationAccountNumber: bobAcct.AccountNumber,
		Amount:                   dec("100"),
	})

	require.ErrorIs(t, err, domain.ErrAccountInactive)
	assertBalance(t, db, aliceAcct.ID, dec("1000"))
}

func TestTransfer_DailyLimitBoundary(t *testing.T) {
	db := testutil.SetupTestDB(t)
	eng := setupEngine(t, db)
	ctx := context.Background()

	alice := testutil.SeedTestUser(t, db, "alice@test.com", domain.RoleClient)
	bob := testutil.SeedTestUser(t, db, "bob@test.com", domain.RoleClient)
	aliceAcct := testutil.SeedTestAccount(t, db, alice.ID, dec("20000"))
	bobAcct := testutil.SeedTestAccount(t, db, bob.ID, dec("0"))

	transfer := func(amount string) error {
		_, err := eng.Transfer(ctx, ledger.TransferRequest{
			OriginAccountID:          aliceAcct.ID,
			DestinationAccountNumber: bobAcct.AccountNumber,
			Amount:                   dec(amount),
		})
		return err
	}

	// Five transfers of 1900 accumulate 9500 against the 10000 cap.
	for range 5 {
		require.NoError(t, transfer("1900"))
	}

	// 501 would push the total to 10001.
	require.ErrorIs(t, transfer("501"), domain.ErrDailyLimitExceeded)

	// Landing exactly on the cap is allowed.
	require.NoError(t, transfer("500"))

	total, err := eng.GetDailyTotal(ctx, aliceAcct.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("10000")), "daily total: got %s", total)

	// The cap is now exhausted for the day.
	require.ErrorIs(t, transfer("0.01"), domain.ErrDailyLimitExceeded)

	assertBalance(t, db, aliceAcct.ID, dec("10000"))
	assertBalance(t, db, bobAcct.ID, dec("10000"))
}

func TestTransfer_ConcurrentDailyLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	eng := setupEngine(t, db)
	ctx := context.Background()

	alice := testutil.SeedTestUser(t, db, "alice@test.com", domain.RoleClient)
	bob := testutil.SeedTestUser(t, db, "bob@test.com", domain.RoleClient)
	aliceAcct := testutil.SeedTestAccount(t, db, alice.ID, dec("20000"))
	bobAcct := testutil.SeedTestAccount(t, db, bob.ID, dec("0"))

	// 9000 already spent today; only one of two concurrent 1000 transfers
	// may fit under the cap.
	_, err := db.Exec(
		`INSERT INTO daily_limits (account_id, day, amount) VALUES ($1, $2, $3)`,
		aliceAcct.ID, domain.Day(time.Now().UTC()), dec("9000"),
	)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 2)

	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.Transfer(ctx, ledger.TransferRequest{
				OriginAccountID:          aliceAcct.ID,
				DestinationAccountNumber: bobAcct.AccountNumber,
				Amount:                   dec("1000"),
			})
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	var successes, failures int
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, domain.ErrDailyLimitExceeded)
			failures++
		}
	}

	assert.Equal(t, 1, successes, "exactly one transfer should succeed")
	assert.Equal(t, 1, failures, "exactly one transfer should hit the cap")

	total, err := eng.GetDailyTotal(ctx, aliceAcct.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("10000")), "daily total: got %s", total)
	assertBalance(t, db, aliceAcct.ID, dec("19000"))
}

func TestTransfer_ConcurrentOverdraft(t *testing.T) {
	db := testutil.SetupTestDB(t)
	eng := setupEngine(t, db)
	ctx := context.Background()

	alice := testutil.SeedTestUser(t, db, "alice@test.com", domain.RoleClient)
	bob := testutil.SeedTestUser(t, db, "bob@test.com", domain.RoleClient)
	aliceAcct := testutil.SeedTestAccount(t, db, alice.ID, dec("3000"))
	bobAcct := testutil.SeedTestAccount(t, db, bob.ID, dec("0"))

	var wg sync.WaitGroup
	results := make(chan error, 2)

	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.Transfer(ctx, ledger.TransferRequest{
				OriginAccountID:          aliceAcct.ID,
				DestinationAccountNumber: bobAcct.AccountNumber,
				Amount:                   dec("1900"),
			})
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	var successes, failures int
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
			failures++
		}
	}

	assert.Equal(t, 1, successes, "exactly one transfer should succeed")
	assert.Equal(t, 1, failures, "exactly one transfer should fail")
	assertBalance(t, db, aliceAcct.ID, dec("1100"))
	assertBalance(t, db, bobAcct.ID, dec("1900"))
}

func TestTransfer_OpposingDirectionsNoDeadlock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	eng := setupEngine(t, db)
	ctx := context.Background()

	alice := testutil.SeedTestUser(t, db, "alice@test.com", domain.RoleClient)
	bob := testutil.SeedTestUser(t, db, "bob@test.com", domain.RoleClient)
	aliceAcct := testutil.SeedTestAccount(t, db, alice.ID, dec("5000"))
	bobAcct := testutil.SeedTestAccount(t, db, bob.ID, dec("5000"))

	const rounds = 10
	var wg sync.WaitGroup
	errs := make(chan error, rounds*2)

	run := func(origin uuid.UUID, destNumber string) {
		defer wg.Done()
		for range rounds {
			_, err := eng.Transfer(ctx, ledger.TransferRequest{
				OriginAccountID:          origin,
				DestinationAccountNumber: destNumber,
				Amount:                   dec("10"),
			})
			errs <- err
		}
	}

	wg.Add(2)
	go run(aliceAcct.ID, bobAcct.AccountNumber)
	go run(bobAcct.ID, aliceAcct.AccountNumber)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// Equal flow in both directions nets out to the starting balances.
	assertBalance(t, db, aliceAcct.ID, dec("5000"))
	assertBalance(t, db, bobAcct.ID, dec("5000"))
}

func TestDeposit_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	eng := setupEngine(t, db)
	ctx := context.Background()

	alice := testutil.SeedTestUser(t, db, "alice@test.com", domain.RoleClient)
	aliceAcct := testutil.SeedTestAccount(t, db, alice.ID, dec("250"))

	m, err := eng.Deposit(ctx, ledger.DepositRequest{
		DestinationAccountNumber: aliceAcct.AccountNumber,
		Amount:                   dec("5000"),
		Details:                  "payroll",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.MovementKindDeposit, m.Kind)
	assert.Nil(t, m.OriginAccountID)
	assert.False(t, m.Reversed)
	assertBalance(t, db, aliceAcct.ID, dec("5250"))

	// Deposits carry no per-transfer cap and never touch the daily total.
	total, err := eng.GetDailyTotal(ctx, aliceAcct.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestDeposit_InvalidAmount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	eng := setupEngine(t, db)
	ctx := context.Background()

	alice := testutil.SeedTestUser(t, db, "alice@test.com", domain.RoleClient)
	aliceAcct := testutil.SeedTestAccount(t, db, alice.ID, dec("0"))

	_, err := eng.Deposit(ctx, ledger.DepositRequest{
		DestinationAccountNumber: aliceAcct.AccountNumber,
		Amount:                   decimal.Zero,
	})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = eng.Deposit(ctx, ledger.DepositRequest{
		DestinationAccountNumber: aliceAcct.AccountNumber,
		Amount:                   dec("-5"),
	})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestReverseDeposit_WithinWindow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	eng := setupEngine(t, db)
	ctx := context.Background()

	alice := testutil.SeedTestUser(t, db, "alice@test.com", domain.RoleClient)
	aliceAcct := testutil.SeedTestAccount(t, db, alice.ID, dec("100"))

	deposit, err := eng.Deposit(ctx, ledger.DepositRequest{
		DestinationAccountNumber: aliceAcct.AccountNumber,
		Amount:                   dec("400"),
	})
	require.NoError(t, err)
	assertBalance(t, db, aliceAcct.ID, dec("500"))

	reversed, err := eng.ReverseDeposit(ctx, deposit.ID)
	require.NoError(t, err)
	assert.True(t, reversed.Reversed)
	assertBalance(t, db, aliceAcct.ID, dec("100"))

	// The reversal leaves an entry of its own in the journal.
	var kinds []string
	rows, err := db.Query(
		`SELECT kind FROM movements WHERE destination_account_number = $1 ORDER BY created_at`,
		aliceAcct.AccountNumber,
	)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var kind string
		require.NoError(t, rows.Scan(&kind))
		kinds = append(kinds, kind)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"deposit", "reversal"}, kinds)
}

func TestReverseDeposit_WindowExpired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	eng := setupEngine(t, db)
	ctx := context.Background()

	alice := testutil.SeedTestUser(t, db, "alice@test.com", domain.RoleClient)
	aliceAcct := testutil.SeedTestAccount(t, db, alice.ID, dec("0"))

	deposit, err := eng.Deposit(ctx, ledger.DepositRequest{
		DestinationAccountNumber: aliceAcct.AccountNumber,
		Amount:                   dec("400"),
	})
	require.NoError(t, err)

	testutil.BackdateMovement(t, db, deposit.ID, 61*time.Second)

	_, err = eng.ReverseDeposit(ctx, deposit.ID)
	require.ErrorIs(t, err, domain.ErrReversalWindowExpired)
	assertBalance(t, db, aliceAcct.ID, dec("400"))
}

func TestReverseDeposit_Twice(t *testing.T) {
	db := testutil.SetupTestDB(t)
	eng := setupEngine(t, db)
	ctx := context.Background()

	alice := testutil.SeedTestUser(t, db, "alice@test.com", domain.RoleClient)
	aliceAcct := testutil.SeedTestAccount(t, db, alice.ID, dec("0"))

	deposit, err := eng.Deposit(ctx, ledger.DepositRequest{
		DestinationAccountNumber: aliceAcct.AccountNumber,
		Amount:                   dec("400"),
	})
	require.NoError(t, err)

	_, err = eng.ReverseDeposit(ctx, deposit.ID)
	require.NoError(t, err)

	_, err = eng.ReverseDeposit(ctx, deposit.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyReversed)
	assertBalance(t, db, aliceAcct.ID, dec("0"))
}

func TestReverseDeposit_FundsAlreadySpent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	eng := setupEngine(t, db)
	ctx := context.Background()

	alice := testutil.SeedTestUser(t, db, "alice@test.com", domain.RoleClient)
	bob := testutil.SeedTestUser(t, db, "bob@test.com", domain.RoleClient)
	aliceAcct := testutil.SeedTestAccount(t, db, alice.ID, dec("0"))
	bobAcct := testutil.SeedTestAccount(t, db, bob.ID, dec("0"))

	deposit, err := eng.Deposit(ctx, ledger.DepositRequest{
		DestinationAccountNumber: aliceAcct.AccountNumber,
		Amount:                   dec("500"),
	})
	require.NoError(t, err)

	// Spend part of the deposited funds before the reversal lands.
	_, err = eng.Transfer(ctx, ledger.TransferRequest{
		OriginAccountID:          aliceAcct.ID,
		DestinationAccountNumber: bobAcct.AccountNumber,
		Amount:                   dec("400"),
	})
	require.NoError(t, err)

	_, err = eng.ReverseDeposit(ctx, deposit.ID)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assertBalance(t, db, aliceAcct.ID, dec("100"))

	var reversed bool
	require.NoError(t, db.QueryRow(
		`SELECT reversed FROM movements WHERE id = $1`, deposit.ID,
	).Scan(&reversed))
	assert.False(t, reversed, "failed reversal must leave the deposit reversible")
}

func TestReverseDeposit_TransferNotReversible(t *testing.T) {
	db := testutil.SetupTestDB(t)
	eng := setupEngine(t, db)
	ctx := context.Background()

	alice := testutil.SeedTestUser(t, db, "alice@test.com", domain.RoleClient)
	bob := testutil.SeedTestUser(t, db, "bob@test.com", domain.RoleClient)
	aliceAcct := testutil.SeedTestAccount(t, db, alice.ID, dec("1000"))
	bobAcct := testutil.SeedTestAccount(t, db, bob.ID, dec("0"))

	m, err := eng.Transfer(ctx, ledger.TransferRequest{
		OriginAccountID:          aliceAcct.ID,
		DestinationAccountNumber: bobAcct.AccountNumber,
		Amount:                   dec("100"),
	})
	require.NoError(t, err)

	_, err = eng.ReverseDeposit(ctx, m.ID)
	require.ErrorIs(t, err, domain.ErrNotReversible)
}

func TestGetDailyTotal_UnknownAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	eng := setupEngine(t, db)
	ctx := context.Background()

	_, err := eng.GetDailyTotal(ctx, uuid.New(), time.Now())
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestGetDailyTotal_FreshAccountIsZero(t *testing.T) {
	db := testutil.SetupTestDB(t)
	eng := setupEngine(t, db)
	ctx := context.Background()

	alice := testutil.SeedTestUser(t, db, "alice@test.com", domain.RoleClient)
	aliceAcct := testutil.SeedTestAccount(t, db, alice.ID, dec("1000"))

	total, err := eng.GetDailyTotal(ctx, aliceAcct.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}
