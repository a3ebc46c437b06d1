package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/shared-ledger/internal/cli"
	"github.com/Veraticus/shared-ledger/internal/engine"
)

func (a *app) reorderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reorder <asset_group|asset|category> id=order...",
		Short: "Set display ordinals as one batch",
		Long: `Set display ordinals for asset groups, assets or categories. The batch is
applied as a unit: if any id is unknown or belongs to another ledger,
nothing changes.

Example:
  ledger reorder asset 4=0 2=1 3=2`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := engine.ReorderKind(args[0])
			items, err := parseOrderPairs(args[1:])
			if err != nil {
				return err
			}
			return a.run(cmd, true, func(ctx context.Context, s *session) error {
				ledger, err := s.ledger(ctx, cmd)
				if err != nil {
					return err
				}
				if err := retry(ctx, func() error { return s.engine.Reorder(ctx, s.user.ID, kind, ledger.ID, items) }); err != nil {
					return err
				}
				cmd.Println(cli.FormatSuccess(fmt.Sprintf("Reordered %d %s rows", len(items), kind)))
				return nil
			})
		},
	}
	addLedgerFlag(cmd)
	return cmd
}

func (a *app) verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check stored balances against the transaction history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, true, func(ctx context.Context, s *session) error {
				ledger, err := s.ledger(ctx, cmd)
				if err != nil {
					return err
				}
				drifts, err := s.engine.VerifyBalances(ctx, s.user.ID, ledger.ID)
				if err != nil {
					return err
				}
				if len(drifts) == 0 {
					cmd.Println(cli.FormatSuccess(fmt.Sprintf("All balances in %q are consistent", ledger.Name)))
					return nil
				}

				rows := make([][]string, 0, len(drifts))
				for _, d := range drifts {
					rows = append(rows, []string{
						fmt.Sprint(d.AssetID),
						d.AssetName,
						cli.FormatAmount(d.Expected, ledger.CurrencyCode),
						cli.FormatAmount(d.Actual, ledger.CurrencyCode),
					})
				}
				cmd.Println(cli.FormatWarning(fmt.Sprintf("%d assets disagree with their history", len(drifts))))
				cmd.Println(cli.RenderTable([]string{"ID", "Asset", "Expected", "Stored"}, rows))
				return fmt.Errorf("balance drift in %d assets", len(drifts))
			})
		},
	}
	addLedgerFlag(cmd)
	return cmd
}
