package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/shared-ledger/internal/model"
	"github.com/Veraticus/shared-ledger/internal/service"
)

const categoryColumns = `id, ledger_id, parent_id, name, type, sort_order, created_at`

func scanCategory(row interface{ Scan(...any) error }) (*model.Category, error) {
	var (
		cat    model.Category
		parent sql.NullInt64
	)
	if err := row.Scan(&cat.ID, &cat.LedgerID, &parent, &cat.Name, &cat.Type, &cat.SortOrder, &cat.CreatedAt); err != nil {
		return nil, err
	}
	if parent.Valid {
		id := parent.Int64
		cat.ParentID = &id
	}
	return &cat, nil
}

// CreateCategory inserts a category. Unless given, its position is placed
// after its siblings in the (ledger, type, parent) scope.
func (s *queries) CreateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}

	if category.SortOrder == 0 {
		if err := s.q.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(sort_order), 0) + 1 FROM categories
			WHERE ledger_id = ? AND type = ? AND parent_id IS ?`,
			category.LedgerID, category.Type, nullableID(category.ParentID)).Scan(&category.SortOrder); err != nil {
			return fmt.Errorf("failed to compute category order: %w", err)
		}
	}

	now := utc(time.Now())
	result, err := s.q.ExecContext(ctx, `
		INSERT INTO categories (ledger_id, parent_id, name, type, sort_order, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		category.LedgerID, nullableID(category.ParentID), category.Name, category.Type, category.SortOrder, now)
	if err != nil {
		return classifyError("failed to create category", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get category ID: %w", err)
	}

	category.ID = id
	category.CreatedAt = now

	slog.Debug("created new category", "name", category.Name, "id", id, "type", category.Type)
	return nil
}

// GetCategory returns the category or nil when absent.
func (s *queries) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	cat, err := scanCategory(s.q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Category not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return cat, nil
}

// ListCategories returns the ledger's categories grouped by type and parent.
func (s *queries) ListCategories(ctx context.Context, ledgerID int64) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE ledger_id = ?
		ORDER BY type, parent_id IS NOT NULL, parent_id, sort_order, id`, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "ledger_id", ledgerID, "count", len(categories))
	return categories, nil
}

// UpdateCategory renames or reparents a category. Tree rules are enforced
// by the caller.
func (s *queries) UpdateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}

	result, err := s.q.ExecContext(ctx, `
		UPDATE categories SET name = ?, parent_id = ?
		WHERE id = ? AND ledger_id = ?`,
		category.Name, nullableID(category.ParentID), category.ID, category.LedgerID)
	if err != nil {
		return classifyError("failed to update category", err)
	}

	changed, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("category %d: %w", category.ID, sql.ErrNoRows)
	}
	return nil
}

// CountChildCategories returns how many categories name id as their parent.
func (s *queries) CountChildCategories(ctx context.Context, id int64) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE parent_id = ?`, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count child categories: %w", err)
	}
	return count, nil
}

// DeleteCategory removes a category. Splits still pointing at it make the
// delete fail with common.ErrInUse.
func (s *queries) DeleteCategory(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.q.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return classifyError("failed to delete category", err)
	}
	return nil
}

// UpdateCategoryOrder sets one category's ordinal, reporting whether the
// category exists in the ledger.
func (s *queries) UpdateCategoryOrder(ctx context.Context, ledgerID int64, update service.OrderUpdate) (bool, error) {
	return s.updateOrder(ctx, "categories", ledgerID, update)
}
