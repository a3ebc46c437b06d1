package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/shared-ledger/internal/cli"
	"github.com/Veraticus/shared-ledger/internal/engine"
	"github.com/Veraticus/shared-ledger/internal/model"
)

func (a *app) groupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Manage asset groups",
	}

	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an asset group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupType, _ := cmd.Flags().GetString("type")
			return a.run(cmd, true, func(ctx context.Context, s *session) error {
				ledger, err := s.ledger(ctx, cmd)
				if err != nil {
					return err
				}
				var group *model.AssetGroup
				err = retry(ctx, func() error {
					group, err = s.engine.CreateAssetGroup(ctx, s.user.ID, ledger.ID, args[0], model.AssetGroupType(strings.ToUpper(groupType)))
					return err
				})
				if err != nil {
					return err
				}
				cmd.Println(cli.FormatSuccess(fmt.Sprintf("Created group %d %q", group.ID, group.Name)))
				return nil
			})
		},
	}
	addCmd.Flags().String("type", string(model.AssetGroupTypeAsset), "group type (ASSET, DEBT)")
	addLedgerFlag(addCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List asset groups in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, true, func(ctx context.Context, s *session) error {
				ledger, err := s.ledger(ctx, cmd)
				if err != nil {
					return err
				}
				groups, err := s.engine.ListAssetGroups(ctx, s.user.ID, ledger.ID)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(groups))
				for _, g := range groups {
					rows = append(rows, []string{strconv.FormatInt(g.ID, 10), g.Name, string(g.Type), strconv.Itoa(g.SortOrder)})
				}
				cmd.Println(cli.RenderTable([]string{"ID", "Name", "Type", "Order"}, rows))
				return nil
			})
		},
	}
	addLedgerFlag(listCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an asset group; its assets become ungrouped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "group")
			if err != nil {
				return err
			}
			return a.run(cmd, true, func(ctx context.Context, s *session) error {
				if err := retry(ctx, func() error { return s.engine.DeleteAssetGroup(ctx, s.user.ID, id) }); err != nil {
					return err
				}
				cmd.Println(cli.FormatSuccess(fmt.Sprintf("Deleted group %d", id)))
				return nil
			})
		},
	}

	cmd.AddCommand(addCmd, listCmd, deleteCmd)
	return cmd
}

func addAssetFlags(cmd *cobra.Command) {
	cmd.Flags().String("kind", string(model.AssetKindBank), "asset kind (CASH, BANK, CHECK_CARD, CREDIT_CARD, LOAN, INVESTMENT, OTHER)")
	cmd.Flags().Int64("group", 0, "asset group id")
	cmd.Flags().Bool("exclude-net-worth", false, "leave the asset out of net worth")
	cmd.Flags().Int("billing-day", 0, "card billing day")
	cmd.Flags().Int("payment-day", 0, "card payment day")
	cmd.Flags().Int64("payment-asset", 0, "asset the card is paid from")
	addLedgerFlag(cmd)
}

// applyAssetFlags copies the flags the user set onto in.
func applyAssetFlags(cmd *cobra.Command, in *engine.AssetInput) {
	flags := cmd.Flags()
	if flags.Changed("kind") || in.Kind == "" {
		kind, _ := flags.GetString("kind")
		in.Kind = model.AssetKind(strings.ToUpper(kind))
	}
	if flags.Changed("group") {
		in.GroupID = optionalID(cmd, "group")
		if *in.GroupID == 0 {
			in.GroupID = nil
		}
	}
	if flags.Changed("exclude-net-worth") {
		exclude, _ := flags.GetBool("exclude-net-worth")
		in.IncludeInNetWorth = !exclude
	}
	if flags.Changed("billing-day") || flags.Changed("payment-day") || flags.Changed("payment-asset") {
		if in.Billing == nil {
			in.Billing = &model.CardBilling{}
		}
		if flags.Changed("billing-day") {
			in.Billing.BillingDay, _ = flags.GetInt("billing-day")
		}
		if flags.Changed("payment-day") {
			in.Billing.PaymentDay, _ = flags.GetInt("payment-day")
		}
		if flags.Changed("payment-asset") {
			in.Billing.PaymentAssetID = optionalID(cmd, "payment-asset")
		}
	}
}

func (a *app) assetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Manage assets and show balances",
	}

	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			initial, _ := cmd.Flags().GetString("initial")
			return a.run(cmd, true, func(ctx context.Context, s *session) error {
				ledger, err := s.ledger(ctx, cmd)
				if err != nil {
					return err
				}
				in := engine.AssetInput{Name: args[0], IncludeInNetWorth: true}
				if in.InitialBalance, err = cli.ParseAmount(initial, ledger.CurrencyCode); err != nil {
					return err
				}
				applyAssetFlags(cmd, &in)

				var asset *model.Asset
				err = retry(ctx, func() error {
					asset, err = s.engine.CreateAsset(ctx, s.user.ID, ledger.ID, in)
					return err
				})
				if err != nil {
					return err
				}
				cmd.Println(cli.FormatSuccess(fmt.Sprintf("Created asset %d %q with balance %s",
					asset.ID, asset.Name, cli.FormatAmount(asset.CurrentBalance, ledger.CurrencyCode))))
				return nil
			})
		},
	}
	addCmd.Flags().String("initial", "0", "initial balance, e.g. 1500.00")
	addAssetFlags(addCmd)

	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit an asset; balances are not changed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "asset")
			if err != nil {
				return err
			}
			return a.run(cmd, true, func(ctx context.Context, s *session) error {
				current, err := s.store.GetAsset(ctx, id)
				if err != nil {
					return err
				}
				if current == nil {
					return fmt.Errorf("asset %d not found", id)
				}

				in := engine.AssetInput{
					GroupID:           current.GroupID,
					Billing:           current.Billing,
					Name:              current.Name,
					Kind:              current.Kind,
					IncludeInNetWorth: current.IncludeInNetWorth,
				}
				if name, _ := cmd.Flags().GetString("name"); name != "" {
					in.Name = name
				}
				applyAssetFlags(cmd, &in)

				var asset *model.Asset
				err = retry(ctx, func() error {
					asset, err = s.engine.UpdateAsset(ctx, s.user.ID, id, in)
					return err
				})
				if err != nil {
					return err
				}
				cmd.Println(cli.FormatSuccess(fmt.Sprintf("Updated asset %d %q", asset.ID, asset.Name)))
				return nil
			})
		},
	}
	updateCmd.Flags().String("name", "", "new asset name")
	addAssetFlags(updateCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List assets with their balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, true, func(ctx context.Context, s *session) error {
				ledger, err := s.ledger(ctx, cmd)
				if err != nil {
					return err
				}
				assets, err := s.engine.ListAssets(ctx, s.user.ID, ledger.ID)
				if err != nil {
					return err
				}
				cmd.Println(cli.FormatTitle(ledger.Name))
				cmd.Println(renderAssets(assets, ledger.CurrencyCode))
				return nil
			})
		},
	}
	addLedgerFlag(listCmd)

	cmd.AddCommand(addCmd, updateCmd, listCmd)
	return cmd
}

// renderAssets renders the balance table with a net worth footer.
func renderAssets(assets []model.Asset, currency string) string {
	rows := make([][]string, 0, len(assets)+1)
	var netWorth int64
	for _, asset := range assets {
		group := ""
		if asset.GroupID != nil {
			group = strconv.FormatInt(*asset.GroupID, 10)
		}
		rows = append(rows, []string{
			strconv.FormatInt(asset.ID, 10),
			asset.Name,
			string(asset.Kind),
			group,
			cli.StyleAmount(asset.CurrentBalance, currency),
		})
		if asset.IncludeInNetWorth {
			netWorth += asset.CurrentBalance
		}
	}
	rows = append(rows, []string{"", "Net worth", "", "", cli.StyleAmount(netWorth, currency)})
	return cli.RenderTable([]string{"ID", "Name", "Kind", "Group", "Balance"}, rows)
}
