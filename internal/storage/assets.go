package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Veraticus/shared-ledger/internal/common"
	"github.com/Veraticus/shared-ledger/internal/model"
	"github.com/Veraticus/shared-ledger/internal/service"
)

// CreateAssetGroup inserts a group at the end of the ledger's ordering
// unless a sort order was supplied.
func (s *queries) CreateAssetGroup(ctx context.Context, group *model.AssetGroup) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if group == nil {
		return fmt.Errorf("%w: group", ErrNilParameter)
	}
	if err := validateString(group.Name, "name"); err != nil {
		return err
	}
	if !group.Type.Valid() {
		return fmt.Errorf("%w: unknown group type %q", ErrInvalidAsset, group.Type)
	}

	if group.SortOrder == 0 {
		if err := s.q.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(sort_order), 0) + 1 FROM asset_groups WHERE ledger_id = ?`,
			group.LedgerID).Scan(&group.SortOrder); err != nil {
			return fmt.Errorf("failed to compute group order: %w", err)
		}
	}

	now := utc(time.Now())
	result, err := s.q.ExecContext(ctx, `
		INSERT INTO asset_groups (ledger_id, name, type, sort_order, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		group.LedgerID, group.Name, group.Type, group.SortOrder, now)
	if err != nil {
		return classifyError("failed to create asset group", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get asset group ID: %w", err)
	}
	group.ID = id
	group.CreatedAt = now
	return nil
}

// GetAssetGroup returns the group or nil when absent.
func (s *queries) GetAssetGroup(ctx context.Context, id int64) (*model.AssetGroup, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var g model.AssetGroup
	err := s.q.QueryRowContext(ctx, `
		SELECT id, ledger_id, name, type, sort_order, created_at
		FROM asset_groups
		WHERE id = ?`, id).Scan(&g.ID, &g.LedgerID, &g.Name, &g.Type, &g.SortOrder, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query asset group: %w", err)
	}
	return &g, nil
}

// ListAssetGroups returns the ledger's groups in display order.
func (s *queries) ListAssetGroups(ctx context.Context, ledgerID int64) ([]model.AssetGroup, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT id, ledger_id, name, type, sort_order, created_at
		FROM asset_groups
		WHERE ledger_id = ?
		ORDER BY sort_order, id`, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query asset groups: %w", err)
	}
	defer rows.Close()

	var groups []model.AssetGroup
	for rows.Next() {
		var g model.AssetGroup
		if err := rows.Scan(&g.ID, &g.LedgerID, &g.Name, &g.Type, &g.SortOrder, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan asset group: %w", err)
		}
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating asset groups: %w", err)
	}
	return groups, nil
}

// DeleteAssetGroup removes a group. Its assets are detached, never deleted.
func (s *queries) DeleteAssetGroup(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.q.ExecContext(ctx, `UPDATE assets SET group_id = NULL WHERE group_id = ?`, id); err != nil {
		return classifyError("failed to detach assets", err)
	}
	if _, err := s.q.ExecContext(ctx, `DELETE FROM asset_groups WHERE id = ?`, id); err != nil {
		return classifyError("failed to delete asset group", err)
	}
	return nil
}

const assetColumns = `id, ledger_id, group_id, name, kind, initial_balance, current_balance,
	include_in_net_worth, billing_day, payment_day, payment_asset_id, sort_order, created_at`

func scanAsset(row interface{ Scan(...any) error }) (*model.Asset, error) {
	var (
		a            model.Asset
		groupID      sql.NullInt64
		billingDay   sql.NullInt64
		paymentDay   sql.NullInt64
		paymentAsset sql.NullInt64
	)
	err := row.Scan(&a.ID, &a.LedgerID, &groupID, &a.Name, &a.Kind, &a.InitialBalance, &a.CurrentBalance,
		&a.IncludeInNetWorth, &billingDay, &paymentDay, &paymentAsset, &a.SortOrder, &a.CreatedAt)
	if err != nil {
		return nil, err
	}

	if groupID.Valid {
		id := groupID.Int64
		a.GroupID = &id
	}
	if billingDay.Valid || paymentDay.Valid || paymentAsset.Valid {
		a.Billing = &model.CardBilling{
			BillingDay: int(billingDay.Int64),
			PaymentDay: int(paymentDay.Int64),
		}
		if paymentAsset.Valid {
			id := paymentAsset.Int64
			a.Billing.PaymentAssetID = &id
		}
	}
	return &a, nil
}

func billingArgs(b *model.CardBilling) (billingDay, paymentDay, paymentAsset any) {
	if b == nil {
		return nil, nil, nil
	}
	billingDay, paymentDay = b.BillingDay, b.PaymentDay
	if b.PaymentAssetID != nil {
		paymentAsset = *b.PaymentAssetID
	}
	return billingDay, paymentDay, paymentAsset
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

// CreateAsset inserts an asset. The current balance always starts equal to
// the initial balance, whatever the caller put in CurrentBalance.
func (s *queries) CreateAsset(ctx context.Context, asset *model.Asset) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAsset(asset); err != nil {
		return err
	}

	if asset.SortOrder == 0 {
		if err := s.q.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(sort_order), 0) + 1 FROM assets
			WHERE ledger_id = ? AND group_id IS ?`,
			asset.LedgerID, nullableID(asset.GroupID)).Scan(&asset.SortOrder); err != nil {
			return fmt.Errorf("failed to compute asset order: %w", err)
		}
	}

	now := utc(time.Now())
	billingDay, paymentDay, paymentAsset := billingArgs(asset.Billing)

	result, err := s.q.ExecContext(ctx, `
		INSERT INTO assets (
			ledger_id, group_id, name, kind, initial_balance, current_balance,
			include_in_net_worth, billing_day, payment_day, payment_asset_id, sort_order, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		asset.LedgerID, nullableID(asset.GroupID), asset.Name, asset.Kind,
		asset.InitialBalance, asset.InitialBalance, asset.IncludeInNetWorth,
		billingDay, paymentDay, paymentAsset, asset.SortOrder, now)
	if err != nil {
		return classifyError("failed to create asset", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get asset ID: %w", err)
	}

	asset.ID = id
	asset.CurrentBalance = asset.InitialBalance
	asset.CreatedAt = now
	return nil
}

// GetAsset returns the asset by id regardless of ledger, or nil when absent.
// Callers compare LedgerID themselves so "missing" and "elsewhere" stay distinct.
func (s *queries) GetAsset(ctx context.Context, id int64) (*model.Asset, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	a, err := scanAsset(s.q.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query asset: %w", err)
	}
	return a, nil
}

// ListAssets returns the ledger's assets ordered by group then position.
func (s *queries) ListAssets(ctx context.Context, ledgerID int64) ([]model.Asset, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT `+assetColumns+`
		FROM assets
		WHERE ledger_id = ?
		ORDER BY group_id IS NULL, group_id, sort_order, id`, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []model.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}
	return assets, nil
}

// UpdateAsset rewrites an asset's descriptive fields. Neither balance column
// is ever written here.
func (s *queries) UpdateAsset(ctx context.Context, asset *model.Asset) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAsset(asset); err != nil {
		return err
	}

	billingDay, paymentDay, paymentAsset := billingArgs(asset.Billing)
	result, err := s.q.ExecContext(ctx, `
		UPDATE assets
		SET group_id = ?, name = ?, kind = ?, include_in_net_worth = ?,
			billing_day = ?, payment_day = ?, payment_asset_id = ?
		WHERE id = ? AND ledger_id = ?`,
		nullableID(asset.GroupID), asset.Name, asset.Kind, asset.IncludeInNetWorth,
		billingDay, paymentDay, paymentAsset, asset.ID, asset.LedgerID)
	if err != nil {
		return classifyError("failed to update asset", err)
	}

	changed, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("asset %d: %w", asset.ID, sql.ErrNoRows)
	}
	return nil
}

// AdjustAssetBalance applies a relative change to the current balance. The
// increment happens inside the UPDATE so concurrent postings never lose an
// update to a stale read. A change that would leave the int64 range updates
// nothing and wraps common.ErrBalanceOutOfRange; SQLite would otherwise
// store the sum as REAL.
func (s *queries) AdjustAssetBalance(ctx context.Context, assetID, delta int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.q.ExecContext(ctx, `
		UPDATE assets SET current_balance = current_balance + ?1
		WHERE id = ?2
		  AND ((?1 >= 0 AND current_balance <= ?3 - ?1)
		    OR (?1 < 0 AND current_balance >= ?4 - ?1))`,
		delta, assetID, int64(math.MaxInt64), int64(math.MinInt64))
	if err != nil {
		return classifyError("failed to adjust asset balance", err)
	}

	changed, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if changed {
		return nil
	}

	var exists bool
	if err := s.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM assets WHERE id = ?)`, assetID).Scan(&exists); err != nil {
		return classifyError("failed to check asset", err)
	}
	if !exists {
		return fmt.Errorf("asset %d: %w", assetID, sql.ErrNoRows)
	}
	return fmt.Errorf("asset %d change of %d: %w", assetID, delta, common.ErrBalanceOutOfRange)
}

// UpdateAssetGroupOrder sets one group's ordinal, reporting whether the group
// exists in the ledger.
func (s *queries) UpdateAssetGroupOrder(ctx context.Context, ledgerID int64, update service.OrderUpdate) (bool, error) {
	return s.updateOrder(ctx, "asset_groups", ledgerID, update)
}

// UpdateAssetOrder sets one asset's ordinal, reporting whether the asset
// exists in the ledger.
func (s *queries) UpdateAssetOrder(ctx context.Context, ledgerID int64, update service.OrderUpdate) (bool, error) {
	return s.updateOrder(ctx, "assets", ledgerID, update)
}

func (s *queries) updateOrder(ctx context.Context, table string, ledgerID int64, update service.OrderUpdate) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}

	// table is always one of our own constants, never user input.
	result, err := s.q.ExecContext(ctx,
		`UPDATE `+table+` SET sort_order = ? WHERE id = ? AND ledger_id = ?`,
		update.Order, update.ID, ledgerID)
	if err != nil {
		return false, classifyError("failed to update "+table+" order", err)
	}
	return rowsAffected(result)
}
