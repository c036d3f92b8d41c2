package courterr

import (
	"errors"
	"fmt"
	"strings"
)

// LedgerErrorKind discriminates ledger failures
type LedgerErrorKind string

const (
	// LedgerUserRejected indicates the wallet holder declined to sign
	LedgerUserRejected LedgerErrorKind = "user_rejected"

	// LedgerInsufficientFunds indicates the signer cannot cover escrow plus gas
	LedgerInsufficientFunds LedgerErrorKind = "insufficient_funds"

	// LedgerExecutionReverted indicates the contract reverted the call
	LedgerExecutionReverted LedgerErrorKind = "execution_reverted"

	// LedgerOther covers all remaining ledger failures
	LedgerOther LedgerErrorKind = "other"
)

// UploadError wraps a content store failure
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed; %s", e.Err.Error())
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// LedgerError wraps a ledger failure with its classified kind
type LedgerError struct {
	Kind LedgerErrorKind
	Err  error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger transaction failed (%s); %s", e.Kind, e.Err.Error())
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// BackendError wraps a case record store failure
type BackendError struct {
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("case record store request failed; %s", e.Err.Error())
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// AuthError wraps a session token provider failure
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed; %s", e.Err.Error())
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ValidationError indicates a request rejected before any remote call was made
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s; %s", e.Field, e.Reason)
}

// DivergenceError indicates the ledger accepted a transaction but the case
// record store could not be updated afterward; the ledger state is
// authoritative and manual reconciliation is required.
type DivergenceError struct {
	TxHash string
	Err    error
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("transaction %s confirmed on the ledger but the case record store diverged; contact support; %s", e.TxHash, e.Err.Error())
}

func (e *DivergenceError) Unwrap() error {
	return e.Err
}

// ClassifyLedgerError maps a raw wallet/node error to a LedgerError
func ClassifyLedgerError(err error) *LedgerError {
	var ledgerErr *LedgerError
	if errors.As(err, &ledgerErr) {
		return ledgerErr
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "execution reverted"):
		return &LedgerError{Kind: LedgerExecutionReverted, Err: err}
	case strings.Contains(msg, "insufficient funds"):
		return &LedgerError{Kind: LedgerInsufficientFunds, Err: err}
	case strings.Contains(msg, "user rejected"), strings.Contains(msg, "user denied"):
		return &LedgerError{Kind: LedgerUserRejected, Err: err}
	default:
		return &LedgerError{Kind: LedgerOther, Err: err}
	}
}
