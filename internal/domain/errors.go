package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAuthFailed         = errors.New("invalid user id or pin")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrUnknownRecipient   = errors.New("recipient not found")
	ErrSelfTransfer       = errors.New("cannot transfer to own account")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrStorage            = errors.New("storage failure")
	ErrInvariantViolation = errors.New("balance diverges from transaction history")
	ErrAccountQuarantined = errors.New("account quarantined pending reconciliation")
)
