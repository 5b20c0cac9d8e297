package domain

// Account is the caller-visible projection of a stored account. The PIN never
// leaves the store. Balance is in minor units and mirrors the durable value:
// it is adjusted only after a posting has committed, so it can lag the store
// but never run ahead of it.
type Account struct {
	ID           int64
	UserID       string
	UserName     string
	Balance      int64
	Transactions []Transaction
}

// Apply folds a committed posting into the projection. Call only after the
// store has durably accepted the posting.
func (a *Account) Apply(tx Transaction) {
	a.Balance += tx.SignedAmount()
	a.Transactions = append(a.Transactions, tx)
}
