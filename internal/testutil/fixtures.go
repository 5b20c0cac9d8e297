package testutil

import (
	"database/sql"
	"testing"

	"github.com/itsyourap/atmledger/internal/domain"
)

func SeedTestAccount(t *testing.T, db *sql.DB, userID, userName, pin string, balance int64) *domain.Account {
	t.Helper()

	a := &domain.Account{
		UserID:   userID,
		UserName: userName,
		Balance:  balance,
	}
	err := db.QueryRow(
		`INSERT INTO accounts (user_id, user_name, balance, user_pin)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		userID, userName, balance, pin,
	).Scan(&a.ID)
	if err != nil {
		t.Fatalf("seed test account %s: %v", userID, err)
	}
	return a
}

func GetAccountBalance(t *testing.T, db *sql.DB, accountID int64) int64 {
	t.Helper()

	var balance int64
	err := db.QueryRow(`SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if err != nil {
		t.Fatalf("get account balance %d: %v", accountID, err)
	}
	return balance
}

func CountTransactions(t *testing.T, db *sql.DB, accountID int64) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM transactions WHERE account_id = $1`, accountID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count transactions for account %d: %v", accountID, err)
	}
	return count
}

// CorruptBalance overwrites a stored balance behind the ledger's back, for
// exercising invariant detection.
func CorruptBalance(t *testing.T, db *sql.DB, accountID, balance int64) {
	t.Helper()

	if _, err := db.Exec(
		`UPDATE accounts SET balance = $1 WHERE id = $2`, balance, accountID,
	); err != nil {
		t.Fatalf("corrupt balance for account %d: %v", accountID, err)
	}
}
