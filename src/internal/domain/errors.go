package domain

import (
	"errors"
	"strings"
)

// ErrorCode identifies a recoverable domain failure. Codes are errors in
// their own right, so fail-fast operations return them directly.
type ErrorCode string

func (c ErrorCode) Error() string {
	return string(c)
}

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrAccountFrozen  ErrorCode = "ACCOUNT_FROZEN"
	ErrInvalidBalance ErrorCode = "INVALID_BALANCE"

	ErrInvalidAmount         ErrorCode = "INVALID_AMOUNT"
	ErrInvalidAccounts       ErrorCode = "INVALID_ACCOUNTS"
	ErrDebitAccountNotFound  ErrorCode = "DEBIT_ACCOUNT_NOT_FOUND"
	ErrCreditAccountNotFound ErrorCode = "CREDIT_ACCOUNT_NOT_FOUND"
	ErrDebitAccountFrozen    ErrorCode = "DEBIT_ACCOUNT_FROZEN"
	ErrCreditAccountFrozen   ErrorCode = "CREDIT_ACCOUNT_FROZEN"
	ErrInsufficientFunds     ErrorCode = "INSUFFICIENT_FUNDS"
	ErrDailyLimitReached     ErrorCode = "DAILY_LIMIT_REACHED"

	ErrInvalidName           ErrorCode = "INVALID_NAME"
	ErrInvalidDateOfBirth    ErrorCode = "INVALID_DATE_OF_BIRTH"
	ErrInvalidDailyLimit     ErrorCode = "INVALID_DAILY_LIMIT"
	ErrInvalidInitialBalance ErrorCode = "INVALID_INITIAL_BALANCE"
)

// Fatal conditions. These are never part of a ValidationErrors set.
var (
	ErrNoAccountsAvailable  = errors.New("no account numbers available")
	ErrInitialAccountFailed = errors.New("initial account could not be created")
)

// IsFatal reports whether err is a condition the ledger has no local recovery for.
func IsFatal(err error) bool {
	return errors.Is(err, ErrNoAccountsAvailable) || errors.Is(err, ErrInitialAccountFailed)
}

// ValidationErrors is the ordered set of codes reported by a collect-all
// validation. It unwraps to its codes, so errors.Is matches any member.
type ValidationErrors []ErrorCode

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, code := range v {
		parts = append(parts, string(code))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Unwrap() []error {
	errs := make([]error, 0, len(v))
	for _, code := range v {
		errs = append(errs, code)
	}
	return errs
}

func (v ValidationErrors) Has(code ErrorCode) bool {
	for _, c := range v {
		if c == code {
			return true
		}
	}
	return false
}

// Add appends code unless it is already present.
func (v ValidationErrors) Add(code ErrorCode) ValidationErrors {
	if v.Has(code) {
		return v
	}
	return append(v, code)
}

// Err returns nil for an empty set so callers can return it unconditionally.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// CodesOf extracts the domain codes carried by err, whether it is a single
// ErrorCode or a ValidationErrors set.
func CodesOf(err error) []ErrorCode {
	var set ValidationErrors
	if errors.As(err, &set) {
		return append([]ErrorCode(nil), set...)
	}
	var code ErrorCode
	if errors.As(err, &code) {
		return []ErrorCode{code}
	}
	return nil
}
