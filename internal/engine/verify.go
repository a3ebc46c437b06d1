package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/shared-ledger/internal/service"
)

// VerifyBalances recomputes every asset's balance from its initial balance
// and committed transactions, reporting the assets whose stored balance
// differs. The check reads one consistent snapshot.
func (e *Engine) VerifyBalances(ctx context.Context, actor, ledgerID int64) ([]service.BalanceDrift, error) {
	var drifts []service.BalanceDrift
	checked := 0
	err := e.inTx(ctx, func(tx service.Transaction) error {
		if _, _, err := requireMember(ctx, tx, ledgerID, actor, false); err != nil {
			return err
		}

		assets, err := tx.ListAssets(ctx, ledgerID)
		if err != nil {
			return fmt.Errorf("failed to list assets: %w", err)
		}
		checked = len(assets)

		for _, asset := range assets {
			sum, err := tx.SumAssetContributions(ctx, asset.ID)
			if err != nil {
				return err
			}
			if expected := asset.InitialBalance + sum; expected != asset.CurrentBalance {
				drifts = append(drifts, service.BalanceDrift{
					AssetID:   asset.ID,
					AssetName: asset.Name,
					Expected:  expected,
					Actual:    asset.CurrentBalance,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(drifts) > 0 {
		slog.Warn("balance drift detected", "ledger_id", ledgerID, "assets", len(drifts))
	} else {
		slog.Debug("balances verified", "ledger_id", ledgerID, "assets", checked)
	}
	return drifts, nil
}
