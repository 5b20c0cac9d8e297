package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType identifies a posting kind. The numeric values match the
// transaction_type lookup table and are part of the stored representation.
type TransactionType int

const (
	TypeDeposit          TransactionType = 1
	TypeWithdraw         TransactionType = 2
	TypeTransferDeposit  TransactionType = 3
	TypeTransferWithdraw TransactionType = 4
)

func (t TransactionType) String() string {
	switch t {
	case TypeDeposit:
		return "DEPOSIT"
	case TypeWithdraw:
		return "WITHDRAW"
	case TypeTransferDeposit:
		return "TRANSFER_DEPOSIT"
	case TypeTransferWithdraw:
		return "TRANSFER_WITHDRAW"
	default:
		return "UNKNOWN"
	}
}

// Sign is the direction a posting of this type moves the account balance.
func (t TransactionType) Sign() int64 {
	switch t {
	case TypeDeposit, TypeTransferDeposit:
		return 1
	case TypeWithdraw, TypeTransferWithdraw:
		return -1
	default:
		return 0
	}
}

// IsTransfer reports whether the posting is one leg of a two-leg transfer.
func (t TransactionType) IsTransfer() bool {
	return t == TypeTransferDeposit || t == TypeTransferWithdraw
}

func (t TransactionType) Valid() bool {
	return t >= TypeDeposit && t <= TypeTransferWithdraw
}

// TransactionTypeFromName maps a transaction_type row name back to its code.
func TransactionTypeFromName(name string) (TransactionType, bool) {
	switch name {
	case "DEPOSIT":
		return TypeDeposit, true
	case "WITHDRAW":
		return TypeWithdraw, true
	case "TRANSFER_DEPOSIT":
		return TypeTransferDeposit, true
	case "TRANSFER_WITHDRAW":
		return TypeTransferWithdraw, true
	default:
		return 0, false
	}
}

// Transaction is a single immutable posting. Amount is a positive magnitude in
// minor units; the sign is implied by Type. OtherPartyAccountID and TransferRef
// are set only on transfer legs, and the two legs of one transfer share the
// same TransferRef.
type Transaction struct {
	ID                  int64
	AccountID           int64
	Type                TransactionType
	Amount              int64
	OtherPartyAccountID *int64
	TransferRef         *uuid.UUID
	CreatedAt           time.Time
}

// SignedAmount is the balance delta this posting applied.
func (t Transaction) SignedAmount() int64 {
	return t.Type.Sign() * t.Amount
}
