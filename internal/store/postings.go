package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/itsyourap/atmledger/internal/domain"
)

// PostTransaction durably records a single posting: inside one database
// transaction it locks the account row, applies the signed balance
// adjustment, and inserts the transaction row. The balance check happens
// against the locked durable value, so a stale caller-side projection can
// never overdraw the account. On any failure nothing is visible afterwards.
func (s *Store) PostTransaction(ctx context.Context, draft domain.Transaction) (*domain.Transaction, error) {
	if err := validateDraft(draft); err != nil {
		return nil, fmt.Errorf("PostTransaction: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("PostTransaction: begin", err)
	}
	defer tx.Rollback()

	committed, err := postLeg(ctx, tx, draft)
	if err != nil {
		return nil, fmt.Errorf("PostTransaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("PostTransaction: commit", err)
	}
	return committed, nil
}

// PostTransfer records both legs of a transfer as one atomic unit: either
// the TRANSFER_WITHDRAW on from and the TRANSFER_DEPOSIT on to both commit,
// or neither is visible. The legs share a freshly minted transfer reference.
func (s *Store) PostTransfer(ctx context.Context, fromID, toID, amount int64) (withdraw, deposit *domain.Transaction, err error) {
	if amount <= 0 {
		return nil, nil, fmt.Errorf("PostTransfer: %w", domain.ErrInvalidAmount)
	}
	if fromID == toID {
		return nil, nil, fmt.Errorf("PostTransfer: %w", domain.ErrSelfTransfer)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, storageErr("PostTransfer: begin", err)
	}
	defer tx.Rollback()

	// Both rows are locked in ascending id order before either leg posts,
	// so two opposing transfers cannot deadlock.
	if err := lockAccounts(ctx, tx, fromID, toID); err != nil {
		return nil, nil, fmt.Errorf("PostTransfer: %w", err)
	}

	ref := uuid.New()

	withdraw, err = postLeg(ctx, tx, domain.Transaction{
		AccountID:           fromID,
		Type:                domain.TypeTransferWithdraw,
		Amount:              amount,
		OtherPartyAccountID: &toID,
		TransferRef:         &ref,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("PostTransfer: withdraw leg: %w", err)
	}

	deposit, err = postLeg(ctx, tx, domain.Transaction{
		AccountID:           toID,
		Type:                domain.TypeTransferDeposit,
		Amount:              amount,
		OtherPartyAccountID: &fromID,
		TransferRef:         &ref,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("PostTransfer: deposit leg: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, storageErr("PostTransfer: commit", err)
	}
	return withdraw, deposit, nil
}

// VerifyBalance recomputes the account balance from its transaction history
// and compares it to the stored value. A mismatch means a posting and its
// balance adjustment diverged, which must never happen.
func (s *Store) VerifyBalance(ctx context.Context, accountID int64) error {
	var stored, derived int64
	err := s.db.QueryRowContext(ctx,
		`SELECT a.balance,
			COALESCE((
				SELECT SUM(CASE WHEN t.transaction_type IN (1, 3) THEN t.amount ELSE -t.amount END)
				FROM transactions t WHERE t.account_id = a.id
			), 0)
		FROM accounts a
		WHERE a.id = $1`,
		accountID,
	).Scan(&stored, &derived)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("VerifyBalance: %w", domain.ErrNotFound)
	}
	if err != nil {
		return storageErr("VerifyBalance", err)
	}
	if stored != derived {
		return fmt.Errorf("VerifyBalance: account %d: stored %d, derived %d: %w",
			accountID, stored, derived, domain.ErrInvariantViolation)
	}
	return nil
}

func validateDraft(draft domain.Transaction) error {
	if !draft.Type.Valid() {
		return fmt.Errorf("unknown transaction type %d", draft.Type)
	}
	if draft.Amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if draft.Type.IsTransfer() && draft.OtherPartyAccountID == nil {
		return errors.New("transfer leg missing counterparty account")
	}
	if !draft.Type.IsTransfer() && draft.OtherPartyAccountID != nil {
		return errors.New("counterparty account set on non-transfer posting")
	}
	return nil
}

// postLeg applies one posting inside the caller's database transaction:
// lock the account, adjust the balance, insert the row. The conditional
// balance check rejects any withdraw-class posting that would go negative.
func postLeg(ctx context.Context, tx *sql.Tx, draft domain.Transaction) (*domain.Transaction, error) {
	var balance int64
	err := tx.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`, draft.AccountID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("postLeg: account %d: %w", draft.AccountID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("postLeg: lock account", err)
	}

	newBalance := balance + draft.SignedAmount()
	if newBalance < 0 {
		return nil, fmt.Errorf("postLeg: %w", domain.ErrInsufficientFunds)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = $1 WHERE id = $2`, newBalance, draft.AccountID,
	); err != nil {
		return nil, storageErr("postLeg: update balance", err)
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO transactions (account_id, transaction_type, amount, other_party_account_id, transfer_ref)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		draft.AccountID, int(draft.Type), draft.Amount, draft.OtherPartyAccountID, draft.TransferRef,
	).Scan(&draft.ID, &draft.CreatedAt)
	if err != nil {
		return nil, storageErr("postLeg: insert transaction", err)
	}

	return &draft, nil
}

func lockAccounts(ctx context.Context, tx *sql.Tx, ids ...int64) error {
	sorted := make([]int64, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for _, id := range sorted {
		var locked int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, id,
		).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("lockAccounts: account %d: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return storageErr("lockAccounts", err)
		}
	}
	return nil
}
