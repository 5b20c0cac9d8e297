package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/itsyourap/atmledger/internal/domain"
)

// The PIN is matched in the WHERE clause and never selected; it does not
// leave the store.
const accountColumns = `id, user_id, user_name, balance`

// FindAccountByCredentials returns the account matching both userID and pin
// exactly, with its transaction history loaded. A miss on either field is
// domain.ErrAuthFailed; the caller cannot tell which one was wrong.
func (s *Store) FindAccountByCredentials(ctx context.Context, userID, pin string) (*domain.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 AND user_pin = $2`,
		userID, pin,
	)
	a, err := s.scanAccountWithHistory(ctx, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("FindAccountByCredentials: %w", domain.ErrAuthFailed)
		}
		return nil, classify("FindAccountByCredentials", err)
	}
	return a, nil
}

func (s *Store) FindAccountByUserID(ctx context.Context, userID string) (*domain.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, userID,
	)
	a, err := s.scanAccountWithHistory(ctx, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("FindAccountByUserID: %w", domain.ErrNotFound)
		}
		return nil, classify("FindAccountByUserID", err)
	}
	return a, nil
}

func (s *Store) FindAccountByID(ctx context.Context, id int64) (*domain.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id,
	)
	a, err := s.scanAccountWithHistory(ctx, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("FindAccountByID: %w", domain.ErrNotFound)
		}
		return nil, classify("FindAccountByID", err)
	}
	return a, nil
}

// TransactionHistory returns the account's postings in insertion order,
// newest-last. Re-reads with no intervening writes return identical sequences.
func (s *Store) TransactionHistory(ctx context.Context, accountID int64) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.account_id, tt.transaction_type, t.amount,
			t.other_party_account_id, t.transfer_ref, t.created_at
		FROM transactions t
		LEFT JOIN transaction_type tt ON tt.id = t.transaction_type
		WHERE t.account_id = $1
		ORDER BY t.id`,
		accountID,
	)
	if err != nil {
		return nil, storageErr("TransactionHistory", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, storageErr("TransactionHistory: scan", err)
		}
		txs = append(txs, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("TransactionHistory: rows", err)
	}
	return txs, nil
}

func (s *Store) scanAccountWithHistory(ctx context.Context, row scanner) (*domain.Account, error) {
	var a domain.Account
	if err := row.Scan(&a.ID, &a.UserID, &a.UserName, &a.Balance); err != nil {
		return nil, err
	}
	txs, err := s.TransactionHistory(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	a.Transactions = txs
	return &a, nil
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var (
		t        domain.Transaction
		typeName sql.NullString
	)
	err := s.Scan(
		&t.ID, &t.AccountID, &typeName, &t.Amount,
		&t.OtherPartyAccountID, &t.TransferRef, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	typ, ok := domain.TransactionTypeFromName(typeName.String)
	if !ok {
		return nil, fmt.Errorf("unknown transaction type %q", typeName.String)
	}
	t.Type = typ
	return &t, nil
}

// classify avoids double-wrapping errors that are already storage failures.
func classify(op string, err error) error {
	var se *StorageError
	if errors.As(err, &se) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return storageErr(op, err)
}
