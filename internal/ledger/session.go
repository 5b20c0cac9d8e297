package ledger

import (
	"slices"

	"github.com/itsyourap/atmledger/internal/domain"
)

// Session is one authenticated terminal session. It owns the account
// projection the service keeps in step with the durable ledger.
type Session struct {
	account *domain.Account
}

// Account returns a read-only snapshot of the projection. The snapshot goes
// stale the moment another writer posts; it is never written through.
func (s *Session) Account() domain.Account {
	snapshot := *s.account
	snapshot.Transactions = slices.Clone(s.account.Transactions)
	return snapshot
}
