package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/itsyourap/atmledger/internal/domain"
)

// Entry is one renderable history line. Transfer legs carry the resolved
// counterparty; plain deposits and withdrawals leave those fields empty.
type Entry struct {
	Transaction        domain.Transaction
	Direction          string // "To" for TRANSFER_WITHDRAW, "From" for TRANSFER_DEPOSIT
	CounterpartyName   string
	CounterpartyUserID string
}

// History returns the session account's postings newest-first, re-read from
// the store so the sequence reflects everything committed so far.
func (s *Service) History(ctx context.Context, sess *Session) ([]Entry, error) {
	txs, err := s.store.TransactionHistory(ctx, sess.account.ID)
	if err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}

	// Counterparties repeat across legs; resolve each account once.
	names := make(map[int64]*domain.Account)

	entries := make([]Entry, 0, len(txs))
	for i := len(txs) - 1; i >= 0; i-- {
		e := Entry{Transaction: txs[i]}
		if txs[i].Type.IsTransfer() && txs[i].OtherPartyAccountID != nil {
			if txs[i].Type == domain.TypeTransferWithdraw {
				e.Direction = "To"
			} else {
				e.Direction = "From"
			}
			other, err := s.resolveCounterparty(ctx, names, *txs[i].OtherPartyAccountID)
			if err != nil {
				return nil, fmt.Errorf("History: %w", err)
			}
			e.CounterpartyName = other.UserName
			e.CounterpartyUserID = other.UserID
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *Service) resolveCounterparty(ctx context.Context, cache map[int64]*domain.Account, id int64) (*domain.Account, error) {
	if a, ok := cache[id]; ok {
		return a, nil
	}
	a, err := s.store.FindAccountByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		// The counterparty row is gone. The leg still rendered rather than
		// failing the whole listing.
		a = &domain.Account{ID: id, UserID: "unknown", UserName: "(closed account)"}
		err = nil
	}
	if err != nil {
		return nil, err
	}
	cache[id] = a
	return a, nil
}
