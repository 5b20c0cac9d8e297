package store

import (
	"context"
)

// Schema creation is idempotent and runs on every startup. Three tables:
// accounts, the transaction_type lookup, and the append-only transactions
// ledger. Balances and amounts are BIGINT minor units.
var bootstrapStatements = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id        BIGSERIAL PRIMARY KEY,
		user_id   TEXT NOT NULL UNIQUE,
		user_name TEXT NOT NULL,
		balance   BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
		user_pin  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transaction_type (
		id               INT PRIMARY KEY,
		transaction_type TEXT NOT NULL
	)`,
	`INSERT INTO transaction_type (id, transaction_type) VALUES
		(1, 'DEPOSIT'),
		(2, 'WITHDRAW'),
		(3, 'TRANSFER_DEPOSIT'),
		(4, 'TRANSFER_WITHDRAW')
	ON CONFLICT (id) DO NOTHING`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id                     BIGSERIAL PRIMARY KEY,
		account_id             BIGINT NOT NULL REFERENCES accounts (id),
		transaction_type       INT NOT NULL REFERENCES transaction_type (id),
		amount                 BIGINT NOT NULL CHECK (amount > 0),
		other_party_account_id BIGINT REFERENCES accounts (id),
		transfer_ref           UUID,
		created_at             TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_account_id ON transactions (account_id)`,
}

// Bootstrap creates the schema if it is absent. Safe to call on every startup.
func (s *Store) Bootstrap(ctx context.Context) error {
	for _, stmt := range bootstrapStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return storageErr("Bootstrap", err)
		}
	}
	return nil
}

// Seed inserts the demo accounts the original exercise ships with. Existing
// rows are left alone, so re-seeding never resets a balance.
func (s *Store) Seed(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (user_id, user_name, balance, user_pin) VALUES
			('alice', 'Alice Johnson', 100000, '1234'),
			('bob',   'Bob Smith',      50000, '4321'),
			('carol', 'Carol White',    25000, '0000')
		ON CONFLICT (user_id) DO NOTHING`,
	)
	if err != nil {
		return storageErr("Seed", err)
	}
	return nil
}
