// Package ledger orchestrates withdraw, deposit, transfer and history against
// the store. The caller-visible account projection is updated only after a
// posting has durably committed, so memory never runs ahead of the database.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/itsyourap/atmledger/internal/domain"
	"github.com/itsyourap/atmledger/internal/logging"
)

type ledgerStore interface {
	FindAccountByCredentials(ctx context.Context, userID, pin string) (*domain.Account, error)
	FindAccountByUserID(ctx context.Context, userID string) (*domain.Account, error)
	FindAccountByID(ctx context.Context, id int64) (*domain.Account, error)
	PostTransaction(ctx context.Context, draft domain.Transaction) (*domain.Transaction, error)
	PostTransfer(ctx context.Context, fromID, toID, amount int64) (*domain.Transaction, *domain.Transaction, error)
	TransactionHistory(ctx context.Context, accountID int64) ([]domain.Transaction, error)
	VerifyBalance(ctx context.Context, accountID int64) error
}

// Service is built for single-writer access: one interactive session, one
// in-flight operation at a time. The store is injected at construction.
type Service struct {
	store ledgerStore

	// Accounts whose stored balance was caught diverging from their
	// transaction history. Writes against them are refused until
	// Reconcile passes again.
	quarantined map[int64]bool
}

func NewService(store ledgerStore) *Service {
	return &Service{
		store:       store,
		quarantined: make(map[int64]bool),
	}
}

// Authenticate matches userID and pin exactly and opens a session holding
// the account projection with its history preloaded.
func (s *Service) Authenticate(ctx context.Context, userID, pin string) (*Session, error) {
	account, err := s.store.FindAccountByCredentials(ctx, userID, pin)
	if err != nil {
		return nil, fmt.Errorf("Authenticate: %w", err)
	}

	logging.FromContext(ctx).Info("session opened",
		"account_id", account.ID,
		"user_id", account.UserID,
	)
	return &Session{account: account}, nil
}

// Withdraw posts a WITHDRAW against the session account. Rejected with
// ErrInsufficientFunds when amount exceeds the projected balance; the store
// re-checks against the locked durable balance inside the same atomic unit.
func (s *Service) Withdraw(ctx context.Context, sess *Session, amount int64) error {
	if err := s.checkWritable(sess.account.ID, amount); err != nil {
		return fmt.Errorf("Withdraw: %w", err)
	}
	if amount > sess.account.Balance {
		return fmt.Errorf("Withdraw: %w", domain.ErrInsufficientFunds)
	}

	committed, err := s.store.PostTransaction(ctx, domain.Transaction{
		AccountID: sess.account.ID,
		Type:      domain.TypeWithdraw,
		Amount:    amount,
	})
	if err != nil {
		return fmt.Errorf("Withdraw: %w", err)
	}
	sess.account.Apply(*committed)

	logging.FromContext(ctx).Info("withdraw posted",
		"account_id", sess.account.ID,
		"transaction_id", committed.ID,
		"amount", amount,
		"balance", sess.account.Balance,
	)
	return s.verify(ctx, sess.account.ID)
}

// Deposit posts a DEPOSIT against the session account. No balance
// precondition.
func (s *Service) Deposit(ctx context.Context, sess *Session, amount int64) error {
	if err := s.checkWritable(sess.account.ID, amount); err != nil {
		return fmt.Errorf("Deposit: %w", err)
	}

	committed, err := s.store.PostTransaction(ctx, domain.Transaction{
		AccountID: sess.account.ID,
		Type:      domain.TypeDeposit,
		Amount:    amount,
	})
	if err != nil {
		return fmt.Errorf("Deposit: %w", err)
	}
	sess.account.Apply(*committed)

	logging.FromContext(ctx).Info("deposit posted",
		"account_id", sess.account.ID,
		"transaction_id", committed.ID,
		"amount", amount,
		"balance", sess.account.Balance,
	)
	return s.verify(ctx, sess.account.ID)
}

// Transfer resolves the recipient by user id and posts both legs as one
// indivisible store operation. Only the withdraw leg touches the session
// projection; the recipient's projection, if any, belongs to another session.
func (s *Service) Transfer(ctx context.Context, sess *Session, recipientUserID string, amount int64) error {
	if err := s.checkWritable(sess.account.ID, amount); err != nil {
		return fmt.Errorf("Transfer: %w", err)
	}

	recipient, err := s.store.FindAccountByUserID(ctx, recipientUserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("Transfer: %w", domain.ErrUnknownRecipient)
		}
		return fmt.Errorf("Transfer: %w", err)
	}
	if recipient.ID == sess.account.ID {
		return fmt.Errorf("Transfer: %w", domain.ErrSelfTransfer)
	}
	if s.quarantined[recipient.ID] {
		return fmt.Errorf("Transfer: recipient: %w", domain.ErrAccountQuarantined)
	}
	if amount > sess.account.Balance {
		return fmt.Errorf("Transfer: %w", domain.ErrInsufficientFunds)
	}

	withdraw, _, err := s.store.PostTransfer(ctx, sess.account.ID, recipient.ID, amount)
	if err != nil {
		return fmt.Errorf("Transfer: %w", err)
	}
	sess.account.Apply(*withdraw)

	logging.FromContext(ctx).Info("transfer posted",
		"account_id", sess.account.ID,
		"recipient_account_id", recipient.ID,
		"transaction_id", withdraw.ID,
		"amount", amount,
		"balance", sess.account.Balance,
	)

	if err := s.verify(ctx, sess.account.ID); err != nil {
		return err
	}
	return s.verify(ctx, recipient.ID)
}

// Reconcile re-verifies a quarantined account and lifts the write block when
// its balance matches its history again.
func (s *Service) Reconcile(ctx context.Context, accountID int64) error {
	if err := s.store.VerifyBalance(ctx, accountID); err != nil {
		return fmt.Errorf("Reconcile: %w", err)
	}
	delete(s.quarantined, accountID)
	return nil
}

func (s *Service) checkWritable(accountID, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if s.quarantined[accountID] {
		return domain.ErrAccountQuarantined
	}
	return nil
}

// verify recomputes the balance invariant after a successful posting. A
// violation quarantines the account and surfaces as an operation failure
// even though the posting itself committed.
func (s *Service) verify(ctx context.Context, accountID int64) error {
	err := s.store.VerifyBalance(ctx, accountID)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvariantViolation) {
		s.quarantined[accountID] = true
		logging.FromContext(ctx).Error("account quarantined",
			"account_id", accountID,
			"error", err,
		)
	}
	return err
}
