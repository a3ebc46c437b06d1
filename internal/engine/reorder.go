package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/shared-ledger/internal/common"
	"github.com/Veraticus/shared-ledger/internal/model"
	"github.com/Veraticus/shared-ledger/internal/service"
)

// ReorderKind selects which rows a reorder batch applies to.
type ReorderKind string

// Reorderable kinds.
const (
	ReorderAssetGroups ReorderKind = "asset_group"
	ReorderAssets      ReorderKind = "asset"
	ReorderCategories  ReorderKind = "category"
)

// Valid reports whether the kind is known.
func (k ReorderKind) Valid() bool {
	switch k {
	case ReorderAssetGroups, ReorderAssets, ReorderCategories:
		return true
	}
	return false
}

func (k ReorderKind) updater(tx service.Transaction) func(context.Context, int64, service.OrderUpdate) (bool, error) {
	switch k {
	case ReorderAssetGroups:
		return tx.UpdateAssetGroupOrder
	case ReorderAssets:
		return tx.UpdateAssetOrder
	default:
		return tx.UpdateCategoryOrder
	}
}

// Reorder applies a batch of ordinals as one unit. Ordinals are taken as
// given: gaps and duplicates are stored unchanged. Every id must belong to
// the ledger; an unknown id aborts the whole batch.
func (e *Engine) Reorder(ctx context.Context, actor int64, kind ReorderKind, ledgerID int64, items []service.OrderUpdate) error {
	if !kind.Valid() {
		return common.Validation(common.CodeInvalidEnum, "unknown reorder kind %q", kind)
	}

	err := e.inTx(ctx, func(tx service.Transaction) error {
		if _, _, err := requireMember(ctx, tx, ledgerID, actor, true); err != nil {
			return err
		}

		update := kind.updater(tx)
		for _, item := range items {
			ok, err := update(ctx, ledgerID, item)
			if err != nil {
				return fmt.Errorf("failed to reorder %s %d: %w", kind, item.ID, err)
			}
			if !ok {
				return common.NotFound(common.CodeReorderItemNotFound, "%s %d not found in ledger %d", kind, item.ID, ledgerID)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Debug("reordered", "kind", kind, "ledger_id", ledgerID, "items", len(items))
	return nil
}

// ReorderAssetGroupList reorders groups and returns them in their new order.
func (e *Engine) ReorderAssetGroupList(ctx context.Context, actor, ledgerID int64, items []service.OrderUpdate) ([]model.AssetGroup, error) {
	if err := e.Reorder(ctx, actor, ReorderAssetGroups, ledgerID, items); err != nil {
		return nil, err
	}
	return e.storage.ListAssetGroups(ctx, ledgerID)
}

// ReorderAssetList reorders assets and returns them in their new order.
func (e *Engine) ReorderAssetList(ctx context.Context, actor, ledgerID int64, items []service.OrderUpdate) ([]model.Asset, error) {
	if err := e.Reorder(ctx, actor, ReorderAssets, ledgerID, items); err != nil {
		return nil, err
	}
	return e.storage.ListAssets(ctx, ledgerID)
}

// ReorderCategoryList reorders categories and returns them in their new order.
func (e *Engine) ReorderCategoryList(ctx context.Context, actor, ledgerID int64, items []service.OrderUpdate) ([]model.Category, error) {
	if err := e.Reorder(ctx, actor, ReorderCategories, ledgerID, items); err != nil {
		return nil, err
	}
	return e.storage.ListCategories(ctx, ledgerID)
}
