// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// ErrNotFound marks a lookup that matched no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEntry marks a uniqueness violation.
	ErrDuplicateEntry = errors.New("duplicate entry")
	// ErrInUse marks a delete blocked by rows that still reference the target.
	ErrInUse = errors.New("still referenced")
	// ErrBalanceOutOfRange marks a balance change that would overflow int64.
	ErrBalanceOutOfRange = errors.New("balance out of range")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Kind classifies a ledger error for the caller.
type Kind string

// Error kinds.
const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindScopeMismatch Kind = "scope_mismatch"
	KindConflict      Kind = "conflict"
	KindForbidden     Kind = "forbidden"
	KindExpired       Kind = "expired"
)

// Code identifies the precise failure within a kind.
type Code string

// Error codes.
const (
	CodeMissingField      Code = "MissingField"
	CodeInvalidEnum       Code = "InvalidEnum"
	CodeInvalidDate       Code = "InvalidDate"
	CodeNonPositiveAmount Code = "NonPositiveAmount"
	CodeUnexpectedField   Code = "UnexpectedField"
	CodeSameAssetTransfer Code = "SameAssetTransfer"
	CodeAssetNotFound     Code = "AssetNotFound"
	CodeAssetNotInLedger  Code = "AssetNotInLedger"
	CodeSplitSumMismatch  Code = "SplitSumMismatch"
	CodeInvalidSplit      Code = "InvalidSplitCategory"
	CodeBalanceOutOfRange Code = "BalanceOutOfRange"

	CodeCategoryNotFound     Code = "CategoryNotFound"
	CodeCategoryNotInLedger  Code = "CategoryNotInLedger"
	CodeCategoryTypeMismatch Code = "CategoryTypeMismatch"
	CodeCategoryCycle        Code = "CategoryCycle"
	CodeCategoryHasChildren  Code = "CategoryHasChildren"
	CodeCategoryInUse        Code = "CategoryInUse"
	CodeInvalidBillingDay    Code = "InvalidBillingDay"
	CodeGroupNotFound        Code = "GroupNotFound"
	CodeGroupNotInLedger     Code = "GroupNotInLedger"
	CodeTransactionNotFound  Code = "TransactionNotFound"
	CodeTxnNotInLedger       Code = "TransactionNotInLedger"
	CodeDuplicateExternalID  Code = "DuplicateExternalID"

	CodeLedgerNotFound       Code = "LedgerNotFound"
	CodeUserNotFound         Code = "UserNotFound"
	CodeNotMember            Code = "NotMember"
	CodeInsufficientRole     Code = "InsufficientRole"
	CodeAlreadyMember        Code = "AlreadyMember"
	CodeInvitationNotFound   Code = "InvitationNotFound"
	CodeAlreadyResponded     Code = "InvitationAlreadyResponded"
	CodeInvitationExpired    Code = "InvitationExpired"
	CodeEmailMismatch        Code = "InvitationEmailMismatch"
	CodeInvalidEmail         Code = "InvalidEmail"
	CodeInvalidCurrency      Code = "InvalidCurrency"
	CodeInvalidMonthStartDay Code = "InvalidMonthStartDay"
	CodeReorderItemNotFound  Code = "ReorderItemNotFound"
)

// Error is a typed ledger failure carrying a kind, a precise code and a
// message that is safe to show to the user.
type Error struct {
	Err     error
	Kind    Kind
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a typed error with a formatted message.
func NewError(kind Kind, code Code, format string, args ...any) error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Validation, NotFound, ScopeMismatch, Conflict, Forbidden and Expired are
// shorthands for NewError with the matching kind.
func Validation(code Code, format string, args ...any) error {
	return NewError(KindValidation, code, format, args...)
}

func NotFound(code Code, format string, args ...any) error {
	return NewError(KindNotFound, code, format, args...)
}

func ScopeMismatch(code Code, format string, args ...any) error {
	return NewError(KindScopeMismatch, code, format, args...)
}

func Conflict(code Code, format string, args ...any) error {
	return NewError(KindConflict, code, format, args...)
}

func Forbidden(code Code, format string, args ...any) error {
	return NewError(KindForbidden, code, format, args...)
}

func Expired(code Code, format string, args ...any) error {
	return NewError(KindExpired, code, format, args...)
}

// KindOf returns the kind of the first typed error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the code of the first typed error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
