// Package storage provides the data persistence layer for the ledger application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/shared-ledger/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrInvalidID       = errors.New("id must be positive")
	ErrInvalidLedger   = errors.New("invalid ledger")
	ErrInvalidAsset    = errors.New("invalid asset")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidTxn      = errors.New("invalid transaction")
	ErrInvalidInvite   = errors.New("invalid invitation")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateID ensures an id parameter refers to a possible row.
func validateID(id int64, paramName string) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidID, paramName)
	}
	return nil
}

// NormalizeEmail lower-cases and trims an address for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// utc normalizes times before they are written so text comparisons in SQL
// order the same way the instants do.
func utc(t time.Time) time.Time {
	return t.UTC()
}

func validateLedger(l *model.Ledger) error {
	if l == nil {
		return fmt.Errorf("%w: ledger", ErrNilParameter)
	}
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidLedger)
	}
	if err := validateID(l.OwnerID, "owner"); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLedger, err)
	}
	return nil
}

func validateAsset(a *model.Asset) error {
	if a == nil {
		return fmt.Errorf("%w: asset", ErrNilParameter)
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidAsset)
	}
	if !a.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidAsset, a.Kind)
	}
	return validateID(a.LedgerID, "ledger")
}

func validateCategory(c *model.Category) error {
	if c == nil {
		return fmt.Errorf("%w: category", ErrNilParameter)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidCategory)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidCategory, c.Type)
	}
	return validateID(c.LedgerID, "ledger")
}

func validateTransaction(t *model.Transaction) error {
	if t == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if t.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTxn)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTxn)
	}
	if t.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidTxn)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTxn, t.Type)
	}
	return nil
}

func validateInvitation(i *model.LedgerInvitation) error {
	if i == nil {
		return fmt.Errorf("%w: invitation", ErrNilParameter)
	}
	if i.Token == "" {
		return fmt.Errorf("%w: missing token", ErrInvalidInvite)
	}
	if strings.TrimSpace(i.Email) == "" {
		return fmt.Errorf("%w: missing email", ErrInvalidInvite)
	}
	if !i.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInvite, i.Role)
	}
	return validateID(i.LedgerID, "ledger")
}
