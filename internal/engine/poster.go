package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/shared-ledger/internal/common"
	"github.com/Veraticus/shared-ledger/internal/model"
	"github.com/Veraticus/shared-ledger/internal/service"
)

// PostInput describes a transaction to post. For INCOME and EXPENSE either
// CategoryID or Splits may be set, not both.
type PostInput struct {
	Date           time.Time
	CounterAssetID *int64
	CategoryID     *int64
	Type           model.TransactionType
	Memo           string
	ExternalID     string
	Splits         []model.TransactionSplit
	Tags           []string
	AssetID        int64
	Amount         int64
}

// validateShape runs the checks that need no storage access: enum, amount,
// date and which asset references are present.
func validateShape(in *PostInput) error {
	if !in.Type.Valid() {
		return common.Validation(common.CodeInvalidEnum, "unknown transaction type %q", in.Type)
	}
	if in.Amount <= 0 {
		return common.Validation(common.CodeNonPositiveAmount, "amount must be positive, got %d", in.Amount)
	}
	if in.Date.IsZero() {
		return common.Validation(common.CodeInvalidDate, "transaction date is required")
	}

	if in.AssetID == 0 {
		return common.Validation(common.CodeMissingField, "asset is required")
	}

	switch in.Type {
	case model.TransactionTypeTransfer:
		if in.CounterAssetID == nil || *in.CounterAssetID == 0 {
			return common.Validation(common.CodeMissingField, "transfer requires a counter asset")
		}
		if *in.CounterAssetID == in.AssetID {
			return common.Validation(common.CodeSameAssetTransfer, "cannot transfer asset %d to itself", in.AssetID)
		}
		if in.CategoryID != nil || len(in.Splits) > 0 {
			return common.Validation(common.CodeUnexpectedField, "transfers carry no categories")
		}
	default:
		if in.CounterAssetID != nil {
			return common.Validation(common.CodeUnexpectedField, "%s transactions take no counter asset", strings.ToLower(string(in.Type)))
		}
		if in.CategoryID != nil && len(in.Splits) > 0 {
			return common.Validation(common.CodeUnexpectedField, "give either a category or splits, not both")
		}
	}
	return nil
}

// loadAsset resolves an asset reference, telling a missing row apart from a
// row in another ledger.
func loadAsset(ctx context.Context, q service.Queries, ledgerID, assetID int64) (*model.Asset, error) {
	asset, err := q.GetAsset(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load asset: %w", err)
	}
	if asset == nil {
		return nil, common.NotFound(common.CodeAssetNotFound, "asset %d not found", assetID)
	}
	if asset.LedgerID != ledgerID {
		return nil, common.ScopeMismatch(common.CodeAssetNotInLedger, "asset %d belongs to another ledger", assetID)
	}
	return asset, nil
}

// resolveSplits checks asset scope and split categories and returns the
// split list to store. A single CategoryID becomes a one-element list.
func resolveSplits(ctx context.Context, q service.Queries, ledgerID int64, in *PostInput) ([]model.TransactionSplit, error) {
	if _, err := loadAsset(ctx, q, ledgerID, in.AssetID); err != nil {
		return nil, err
	}
	if in.CounterAssetID != nil {
		if _, err := loadAsset(ctx, q, ledgerID, *in.CounterAssetID); err != nil {
			return nil, err
		}
	}

	if in.Type == model.TransactionTypeTransfer {
		return nil, nil
	}

	splits := in.Splits
	if in.CategoryID != nil {
		splits = []model.TransactionSplit{{CategoryID: *in.CategoryID, Amount: in.Amount}}
	}

	want := in.Type.CategoryType()
	var total int64
	exceeded := false
	for i := range splits {
		split := &splits[i]
		if split.Amount <= 0 {
			return nil, common.Validation(common.CodeInvalidSplit, "split %d amount must be positive", i+1)
		}
		category, err := q.GetCategory(ctx, split.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("failed to load category: %w", err)
		}
		if category == nil {
			return nil, common.NotFound(common.CodeCategoryNotFound, "category %d not found", split.CategoryID)
		}
		if category.LedgerID != ledgerID {
			return nil, common.ScopeMismatch(common.CodeCategoryNotInLedger, "category %d belongs to another ledger", split.CategoryID)
		}
		if category.Type != want {
			return nil, common.Validation(common.CodeInvalidSplit,
				"category %q is %s, transaction is %s", category.Name, category.Type, in.Type)
		}
		// total never exceeds in.Amount, so the subtraction cannot wrap.
		if split.Amount > in.Amount-total {
			exceeded = true
			continue
		}
		total += split.Amount
	}

	if exceeded {
		return nil, common.Conflict(common.CodeSplitSumMismatch, "splits exceed transaction amount %d", in.Amount)
	}
	if len(splits) > 0 && total != in.Amount {
		return nil, common.Conflict(common.CodeSplitSumMismatch, "splits sum to %d, transaction amount is %d", total, in.Amount)
	}
	return splits, nil
}

func applyEffects(ctx context.Context, tx service.Transaction, txn *model.Transaction, sign int64) error {
	for _, effect := range txn.Effects() {
		if err := tx.AdjustAssetBalance(ctx, effect.AssetID, sign*effect.Delta); err != nil {
			if errors.Is(err, common.ErrBalanceOutOfRange) {
				return common.Validation(common.CodeBalanceOutOfRange,
					"posting %d would take asset %d outside the representable balance range", sign*effect.Delta, effect.AssetID)
			}
			return fmt.Errorf("failed to adjust balance of asset %d: %w", effect.AssetID, err)
		}
	}
	return nil
}

func duplicateExternalID(externalID string) error {
	return common.Conflict(common.CodeDuplicateExternalID, "external id %q was already imported for this asset", externalID)
}

// PostTransaction validates the input and atomically inserts the
// transaction, its splits and its balance effects.
func (e *Engine) PostTransaction(ctx context.Context, actor, ledgerID int64, in PostInput) (*model.Transaction, error) {
	if err := validateShape(&in); err != nil {
		return nil, err
	}

	txn := &model.Transaction{
		ID:             e.newID(),
		LedgerID:       ledgerID,
		Type:           in.Type,
		Amount:         in.Amount,
		Date:           in.Date,
		AssetID:        in.AssetID,
		CounterAssetID: in.CounterAssetID,
		Memo:           strings.TrimSpace(in.Memo),
		ExternalID:     strings.TrimSpace(in.ExternalID),
		Tags:           normalizeTags(in.Tags),
		CreatedBy:      actor,
		CreatedAt:      e.now(),
	}

	err := e.inTx(ctx, func(tx service.Transaction) error {
		if _, _, err := requireMember(ctx, tx, ledgerID, actor, true); err != nil {
			return err
		}

		splits, err := resolveSplits(ctx, tx, ledgerID, &in)
		if err != nil {
			return err
		}
		txn.Splits = splits

		if txn.ExternalID != "" {
			exists, existsErr := tx.ExternalIDExists(ctx, txn.AssetID, txn.ExternalID)
			if existsErr != nil {
				return existsErr
			}
			if exists {
				return duplicateExternalID(txn.ExternalID)
			}
		}

		if err := tx.InsertTransaction(ctx, txn); err != nil {
			if errors.Is(err, common.ErrDuplicateEntry) {
				return duplicateExternalID(txn.ExternalID)
			}
			return err
		}
		return applyEffects(ctx, tx, txn, 1)
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("posted transaction",
		"id", txn.ID,
		"ledger_id", ledgerID,
		"type", txn.Type,
		"amount", txn.Amount,
		"splits", len(txn.Splits))
	return txn, nil
}

// loadTransaction fetches a transaction and checks it belongs to ledgerID.
func loadTransaction(ctx context.Context, q service.Queries, ledgerID int64, id string) (*model.Transaction, error) {
	txn, err := q.GetTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	if txn == nil {
		return nil, common.NotFound(common.CodeTransactionNotFound, "transaction %s not found", id)
	}
	if txn.LedgerID != ledgerID {
		return nil, common.ScopeMismatch(common.CodeTxnNotInLedger, "transaction %s belongs to another ledger", id)
	}
	return txn, nil
}

// UpdateTransaction replaces a posted transaction. The old balance effect is
// reversed and the new one applied in the same database transaction, so the
// asset balances never reflect both or neither.
func (e *Engine) UpdateTransaction(ctx context.Context, actor, ledgerID int64, id string, in PostInput) (*model.Transaction, error) {
	if err := validateShape(&in); err != nil {
		return nil, err
	}

	var updated *model.Transaction
	err := e.inTx(ctx, func(tx service.Transaction) error {
		if _, _, err := requireMember(ctx, tx, ledgerID, actor, true); err != nil {
			return err
		}

		old, err := loadTransaction(ctx, tx, ledgerID, id)
		if err != nil {
			return err
		}

		splits, err := resolveSplits(ctx, tx, ledgerID, &in)
		if err != nil {
			return err
		}

		next := *old
		next.Type = in.Type
		next.Amount = in.Amount
		next.Date = in.Date
		next.AssetID = in.AssetID
		next.CounterAssetID = in.CounterAssetID
		next.Memo = strings.TrimSpace(in.Memo)
		next.ExternalID = strings.TrimSpace(in.ExternalID)
		next.Tags = normalizeTags(in.Tags)
		next.Splits = splits

		if next.ExternalID != "" && (next.ExternalID != old.ExternalID || next.AssetID != old.AssetID) {
			exists, existsErr := tx.ExternalIDExists(ctx, next.AssetID, next.ExternalID)
			if existsErr != nil {
				return existsErr
			}
			if exists {
				return duplicateExternalID(next.ExternalID)
			}
		}

		if err := applyEffects(ctx, tx, old, -1); err != nil {
			return err
		}
		if err := tx.ReplaceTransaction(ctx, &next); err != nil {
			if errors.Is(err, common.ErrDuplicateEntry) {
				return duplicateExternalID(next.ExternalID)
			}
			return err
		}
		if err := applyEffects(ctx, tx, &next, 1); err != nil {
			return err
		}

		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("updated transaction", "id", id, "ledger_id", ledgerID, "amount", updated.Amount)
	return updated, nil
}

// DeleteTransaction reverses the transaction's balance effect and removes it.
func (e *Engine) DeleteTransaction(ctx context.Context, actor, ledgerID int64, id string) error {
	err := e.inTx(ctx, func(tx service.Transaction) error {
		if _, _, err := requireMember(ctx, tx, ledgerID, actor, true); err != nil {
			return err
		}

		txn, err := loadTransaction(ctx, tx, ledgerID, id)
		if err != nil {
			return err
		}

		if err := applyEffects(ctx, tx, txn, -1); err != nil {
			return err
		}
		return tx.DeleteTransaction(ctx, id)
	})
	if err != nil {
		return err
	}

	slog.Debug("deleted transaction", "id", id, "ledger_id", ledgerID)
	return nil
}

// GetTransaction returns one transaction of the ledger.
func (e *Engine) GetTransaction(ctx context.Context, actor, ledgerID int64, id string) (*model.Transaction, error) {
	if _, _, err := requireMember(ctx, e.storage, ledgerID, actor, false); err != nil {
		return nil, err
	}
	return loadTransaction(ctx, e.storage, ledgerID, id)
}

// ListTransactions returns the ledger's transactions, newest first.
func (e *Engine) ListTransactions(ctx context.Context, actor int64, filter service.TransactionFilter) ([]model.Transaction, error) {
	if _, _, err := requireMember(ctx, e.storage, filter.LedgerID, actor, false); err != nil {
		return nil, err
	}

	txns, err := e.storage.ListTransactions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
