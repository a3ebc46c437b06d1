package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/shared-ledger/internal/common"
	"github.com/Veraticus/shared-ledger/internal/model"
	"github.com/Veraticus/shared-ledger/internal/service"
)

// AssetInput describes the editable fields of an asset. InitialBalance is
// only read on creation.
type AssetInput struct {
	GroupID           *int64
	Billing           *model.CardBilling
	Name              string
	Kind              model.AssetKind
	InitialBalance    int64
	IncludeInNetWorth bool
}

// CreateAssetGroup adds a group at the end of the ledger's ordering.
func (e *Engine) CreateAssetGroup(ctx context.Context, actor, ledgerID int64, name string, groupType model.AssetGroupType) (*model.AssetGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.Validation(common.CodeMissingField, "group name is required")
	}
	if !groupType.Valid() {
		return nil, common.Validation(common.CodeInvalidEnum, "unknown group type %q", groupType)
	}

	group := &model.AssetGroup{LedgerID: ledgerID, Name: name, Type: groupType}
	err := e.inTx(ctx, func(tx service.Transaction) error {
		if _, _, err := requireMember(ctx, tx, ledgerID, actor, true); err != nil {
			return err
		}
		return tx.CreateAssetGroup(ctx, group)
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// ListAssetGroups returns the ledger's groups in display order.
func (e *Engine) ListAssetGroups(ctx context.Context, actor, ledgerID int64) ([]model.AssetGroup, error) {
	if _, _, err := requireMember(ctx, e.storage, ledgerID, actor, false); err != nil {
		return nil, err
	}
	return e.storage.ListAssetGroups(ctx, ledgerID)
}

// DeleteAssetGroup removes a group and detaches its assets.
func (e *Engine) DeleteAssetGroup(ctx context.Context, actor, groupID int64) error {
	return e.inTx(ctx, func(tx service.Transaction) error {
		group, err := tx.GetAssetGroup(ctx, groupID)
		if err != nil {
			return fmt.Errorf("failed to load group: %w", err)
		}
		if group == nil {
			return common.NotFound(common.CodeGroupNotFound, "group %d not found", groupID)
		}
		if _, _, err := requireMember(ctx, tx, group.LedgerID, actor, true); err != nil {
			return err
		}
		return tx.DeleteAssetGroup(ctx, groupID)
	})
}

// validateAssetInput checks the fields that need no storage access.
func validateAssetInput(in *AssetInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return common.Validation(common.CodeMissingField, "asset name is required")
	}
	if !in.Kind.Valid() {
		return common.Validation(common.CodeInvalidEnum, "unknown asset kind %q", in.Kind)
	}
	if b := in.Billing; b != nil {
		if b.BillingDay < 1 || b.BillingDay > 31 || b.PaymentDay < 1 || b.PaymentDay > 31 {
			return common.Validation(common.CodeInvalidBillingDay, "billing and payment days must be between 1 and 31")
		}
	}
	return nil
}

// checkAssetRefs verifies the group and payment asset belong to ledgerID.
func checkAssetRefs(ctx context.Context, q service.Queries, ledgerID int64, in *AssetInput) error {
	if in.GroupID != nil {
		group, err := q.GetAssetGroup(ctx, *in.GroupID)
		if err != nil {
			return fmt.Errorf("failed to load group: %w", err)
		}
		if group == nil {
			return common.NotFound(common.CodeGroupNotFound, "group %d not found", *in.GroupID)
		}
		if group.LedgerID != ledgerID {
			return common.ScopeMismatch(common.CodeGroupNotInLedger, "group %d belongs to another ledger", *in.GroupID)
		}
	}
	if in.Billing != nil && in.Billing.PaymentAssetID != nil {
		if _, err := loadAsset(ctx, q, ledgerID, *in.Billing.PaymentAssetID); err != nil {
			return err
		}
	}
	return nil
}

// CreateAsset adds an asset whose current balance starts at its initial balance.
func (e *Engine) CreateAsset(ctx context.Context, actor, ledgerID int64, in AssetInput) (*model.Asset, error) {
	if err := validateAssetInput(&in); err != nil {
		return nil, err
	}

	asset := &model.Asset{
		LedgerID:          ledgerID,
		GroupID:           in.GroupID,
		Name:              in.Name,
		Kind:              in.Kind,
		InitialBalance:    in.InitialBalance,
		IncludeInNetWorth: in.IncludeInNetWorth,
		Billing:           in.Billing,
	}
	err := e.inTx(ctx, func(tx service.Transaction) error {
		if _, _, err := requireMember(ctx, tx, ledgerID, actor, true); err != nil {
			return err
		}
		if err := checkAssetRefs(ctx, tx, ledgerID, &in); err != nil {
			return err
		}
		return tx.CreateAsset(ctx, asset)
	})
	if err != nil {
		return nil, err
	}
	return asset, nil
}

// UpdateAsset edits an asset's descriptive fields. Balances are never
// changed here; in.InitialBalance is ignored.
func (e *Engine) UpdateAsset(ctx context.Context, actor, assetID int64, in AssetInput) (*model.Asset, error) {
	if err := validateAssetInput(&in); err != nil {
		return nil, err
	}

	var asset *model.Asset
	err := e.inTx(ctx, func(tx service.Transaction) error {
		current, err := tx.GetAsset(ctx, assetID)
		if err != nil {
			return fmt.Errorf("failed to load asset: %w", err)
		}
		if current == nil {
			return common.NotFound(common.CodeAssetNotFound, "asset %d not found", assetID)
		}
		if _, _, err := requireMember(ctx, tx, current.LedgerID, actor, true); err != nil {
			return err
		}
		if err := checkAssetRefs(ctx, tx, current.LedgerID, &in); err != nil {
			return err
		}

		current.GroupID = in.GroupID
		current.Name = in.Name
		current.Kind = in.Kind
		current.IncludeInNetWorth = in.IncludeInNetWorth
		current.Billing = in.Billing
		if err := tx.UpdateAsset(ctx, current); err != nil {
			return err
		}
		asset = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return asset, nil
}

// ListAssets returns the ledger's assets.
func (e *Engine) ListAssets(ctx context.Context, actor, ledgerID int64) ([]model.Asset, error) {
	if _, _, err := requireMember(ctx, e.storage, ledgerID, actor, false); err != nil {
		return nil, err
	}
	return e.storage.ListAssets(ctx, ledgerID)
}
