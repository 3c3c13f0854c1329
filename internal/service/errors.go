package service

import "errors"

// Error strings below are part of the wire contract: they are surfaced
// verbatim in the LNURL error envelope.
var (
	// ErrNotFoundOrExpired covers an unknown k1 or a withdrawal point past
	// its expiry.
	ErrNotFoundOrExpired = errors.New("Withdrawal request not found or expired")

	// ErrInvalidOrExpired covers a known withdrawal whose transaction is no
	// longer PENDING.
	ErrInvalidOrExpired = errors.New("LNURL withdrawal is now invalid or expired")

	// ErrAmountMismatch is returned when the caller's maxWithdrawable does
	// not match the reserved amount.
	ErrAmountMismatch = errors.New("maxWithdrawable exceeds expected amount")
)

// ValidationError marks malformed caller input (k1, tag, amount).
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationErr(reason string) error { return &ValidationError{Reason: reason} }
