package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/shared-ledger/internal/common"
	"github.com/Veraticus/shared-ledger/internal/model"
	"github.com/Veraticus/shared-ledger/internal/service"
)

// loadCategory resolves a category id within ledgerID.
func loadCategory(ctx context.Context, q service.Queries, ledgerID, id int64) (*model.Category, error) {
	category, err := q.GetCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load category: %w", err)
	}
	if category == nil {
		return nil, common.NotFound(common.CodeCategoryNotFound, "category %d not found", id)
	}
	if category.LedgerID != ledgerID {
		return nil, common.ScopeMismatch(common.CodeCategoryNotInLedger, "category %d belongs to another ledger", id)
	}
	return category, nil
}

// checkParent verifies that parentID may parent a category of the given
// type. When childID is set, a parent that descends from the child is
// rejected so the tree stays acyclic.
func checkParent(ctx context.Context, q service.Queries, ledgerID, parentID int64, categoryType model.CategoryType, childID int64) error {
	parent, err := loadCategory(ctx, q, ledgerID, parentID)
	if err != nil {
		return err
	}
	if parent.Type != categoryType {
		return common.Validation(common.CodeCategoryTypeMismatch,
			"parent %q is %s, category is %s", parent.Name, parent.Type, categoryType)
	}
	if childID == 0 {
		return nil
	}

	for cursor := parent; ; {
		if cursor.ID == childID {
			return common.Validation(common.CodeCategoryCycle, "category %d cannot be moved under its own descendant", childID)
		}
		if cursor.ParentID == nil {
			return nil
		}
		if cursor, err = loadCategory(ctx, q, ledgerID, *cursor.ParentID); err != nil {
			return err
		}
	}
}

// CreateCategory adds a category, optionally under a parent of the same type.
func (e *Engine) CreateCategory(ctx context.Context, actor, ledgerID int64, name string, categoryType model.CategoryType, parentID *int64) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.Validation(common.CodeMissingField, "category name is required")
	}
	if !categoryType.Valid() {
		return nil, common.Validation(common.CodeInvalidEnum, "unknown category type %q", categoryType)
	}

	category := &model.Category{LedgerID: ledgerID, Name: name, Type: categoryType, ParentID: parentID}
	err := e.inTx(ctx, func(tx service.Transaction) error {
		if _, _, err := requireMember(ctx, tx, ledgerID, actor, true); err != nil {
			return err
		}
		if parentID != nil {
			if err := checkParent(ctx, tx, ledgerID, *parentID, categoryType, 0); err != nil {
				return err
			}
		}
		return tx.CreateCategory(ctx, category)
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory renames a category and moves it under parentID, or to the
// top level when parentID is nil. An empty name keeps the current one.
func (e *Engine) UpdateCategory(ctx context.Context, actor, categoryID int64, name string, parentID *int64) (*model.Category, error) {
	var category *model.Category
	err := e.inTx(ctx, func(tx service.Transaction) error {
		current, err := tx.GetCategory(ctx, categoryID)
		if err != nil {
			return fmt.Errorf("failed to load category: %w", err)
		}
		if current == nil {
			return common.NotFound(common.CodeCategoryNotFound, "category %d not found", categoryID)
		}
		if _, _, err := requireMember(ctx, tx, current.LedgerID, actor, true); err != nil {
			return err
		}
		if parentID != nil {
			if err := checkParent(ctx, tx, current.LedgerID, *parentID, current.Type, current.ID); err != nil {
				return err
			}
		}

		if name = strings.TrimSpace(name); name != "" {
			current.Name = name
		}
		current.ParentID = parentID
		if err := tx.UpdateCategory(ctx, current); err != nil {
			return err
		}
		category = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory removes a leaf category that no split references.
func (e *Engine) DeleteCategory(ctx context.Context, actor, categoryID int64) error {
	return e.inTx(ctx, func(tx service.Transaction) error {
		category, err := tx.GetCategory(ctx, categoryID)
		if err != nil {
			return fmt.Errorf("failed to load category: %w", err)
		}
		if category == nil {
			return common.NotFound(common.CodeCategoryNotFound, "category %d not found", categoryID)
		}
		if _, _, err := requireMember(ctx, tx, category.LedgerID, actor, true); err != nil {
			return err
		}

		children, err := tx.CountChildCategories(ctx, categoryID)
		if err != nil {
			return err
		}
		if children > 0 {
			return common.Conflict(common.CodeCategoryHasChildren, "category %q still has %d subcategories", category.Name, children)
		}

		if err := tx.DeleteCategory(ctx, categoryID); err != nil {
			if errors.Is(err, common.ErrInUse) {
				return common.Conflict(common.CodeCategoryInUse, "category %q is used by transactions", category.Name)
			}
			return err
		}
		return nil
	})
}

// ListCategories returns the ledger's category trees.
func (e *Engine) ListCategories(ctx context.Context, actor, ledgerID int64) ([]model.Category, error) {
	if _, _, err := requireMember(ctx, e.storage, ledgerID, actor, false); err != nil {
		return nil, err
	}
	return e.storage.ListCategories(ctx, ledgerID)
}
