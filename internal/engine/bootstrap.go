package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/shared-ledger/internal/common"
	"github.com/Veraticus/shared-ledger/internal/model"
	"github.com/Veraticus/shared-ledger/internal/service"
)

func validateCurrency(code string) error {
	if len(code) != 3 {
		return common.Validation(common.CodeInvalidCurrency, "currency code %q must be three letters", code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return common.Validation(common.CodeInvalidCurrency, "currency code %q must be upper-case letters", code)
		}
	}
	return nil
}

// RegisterUser creates a user on first sight of the address and seeds a
// personal ledger with default categories, owned by and marked main for the
// new user. An address that is already registered returns the existing user.
func (e *Engine) RegisterUser(ctx context.Context, email, displayName string) (*model.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, common.Validation(common.CodeMissingField, "display name is required")
	}

	var user *model.User
	err = e.inTx(ctx, func(tx service.Transaction) error {
		existing, err := tx.GetUserByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("failed to look up user: %w", err)
		}
		if existing != nil {
			user = existing
			return nil
		}

		user, err = tx.CreateUser(ctx, email, displayName)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		ledger := &model.Ledger{
			Name:          displayName + "'s Ledger",
			CurrencyCode:  e.config.DefaultCurrency,
			MonthStartDay: model.MinMonthStartDay,
			OwnerID:       user.ID,
		}
		if err := seedLedger(ctx, tx, ledger); err != nil {
			return err
		}

		id := ledger.ID
		user.MainLedgerID = &id
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("registered user", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// CreateLedger creates an additional ledger owned by ownerID. The first
// ledger a user owns becomes their main ledger.
func (e *Engine) CreateLedger(ctx context.Context, ownerID int64, name, currency string, monthStartDay int) (*model.Ledger, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.Validation(common.CodeMissingField, "ledger name is required")
	}
	if currency == "" {
		currency = e.config.DefaultCurrency
	}
	if err := validateCurrency(currency); err != nil {
		return nil, err
	}
	if monthStartDay < model.MinMonthStartDay || monthStartDay > model.MaxMonthStartDay {
		return nil, common.Validation(common.CodeInvalidMonthStartDay,
			"month start day must be between %d and %d, got %d", model.MinMonthStartDay, model.MaxMonthStartDay, monthStartDay)
	}

	ledger := &model.Ledger{
		Name:          name,
		CurrencyCode:  currency,
		MonthStartDay: monthStartDay,
		OwnerID:       ownerID,
	}
	err := e.inTx(ctx, func(tx service.Transaction) error {
		owner, err := tx.GetUserByID(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("failed to load user: %w", err)
		}
		if owner == nil {
			return common.NotFound(common.CodeUserNotFound, "user %d not found", ownerID)
		}
		if owner.MainLedgerID != nil {
			return createLedgerRows(ctx, tx, ledger)
		}
		return seedLedger(ctx, tx, ledger)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("created ledger", "ledger_id", ledger.ID, "owner_id", ownerID, "currency", currency)
	return ledger, nil
}

// seedLedger creates the ledger rows and marks the ledger as the owner's
// main ledger.
func seedLedger(ctx context.Context, tx service.Transaction, ledger *model.Ledger) error {
	if err := createLedgerRows(ctx, tx, ledger); err != nil {
		return err
	}
	if err := tx.SetMainLedger(ctx, ledger.OwnerID, ledger.ID); err != nil {
		return fmt.Errorf("failed to set main ledger: %w", err)
	}
	return nil
}

// createLedgerRows inserts the ledger, its OWNER membership and the default
// categories.
func createLedgerRows(ctx context.Context, tx service.Transaction, ledger *model.Ledger) error {
	if err := tx.CreateLedger(ctx, ledger); err != nil {
		return fmt.Errorf("failed to create ledger: %w", err)
	}
	if _, err := tx.AddMember(ctx, ledger.ID, ledger.OwnerID, model.RoleOwner); err != nil {
		return fmt.Errorf("failed to add owner: %w", err)
	}
	for _, def := range model.DefaultCategories {
		category := &model.Category{LedgerID: ledger.ID, Name: def.Name, Type: def.Type}
		if err := tx.CreateCategory(ctx, category); err != nil {
			return fmt.Errorf("failed to seed category %q: %w", def.Name, err)
		}
	}
	return nil
}

// ListLedgers returns every ledger the user belongs to.
func (e *Engine) ListLedgers(ctx context.Context, actor int64) ([]model.Ledger, error) {
	ledgers, err := e.storage.ListLedgersForUser(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledgers: %w", err)
	}
	return ledgers, nil
}
