package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/shared-ledger/internal/cli"
	"github.com/Veraticus/shared-ledger/internal/engine"
	"github.com/Veraticus/shared-ledger/internal/model"
	"github.com/Veraticus/shared-ledger/internal/service"
)

func (a *app) txnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "txn",
		Aliases: []string{"transactions"},
		Short:   "Post, delete and list transactions",
	}

	postCmd := &cobra.Command{
		Use:   "post",
		Short: "Post a transaction",
		Long: `Post an income, expense or transfer. Balances of every asset involved are
updated in the same database transaction as the posting itself.

Examples:
  ledger txn post --type expense --amount 12.50 --asset 2 --category 7
  ledger txn post --type expense --amount 30 --asset 2 --split 7=20 --split 8=10
  ledger txn post --type transfer --amount 100 --asset 2 --counter 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, true, func(ctx context.Context, s *session) error {
				ledger, err := s.ledger(ctx, cmd)
				if err != nil {
					return err
				}
				in, err := postInputFromFlags(cmd, ledger.CurrencyCode, time.Now())
				if err != nil {
					return err
				}

				var txn *model.Transaction
				err = retry(ctx, func() error {
					txn, err = s.engine.PostTransaction(ctx, s.user.ID, ledger.ID, in)
					return err
				})
				if err != nil {
					return err
				}
				cmd.Println(cli.FormatSuccess(fmt.Sprintf("Posted %s %s (%s)",
					strings.ToLower(string(txn.Type)), cli.FormatAmount(txn.Amount, ledger.CurrencyCode), txn.ID)))
				return nil
			})
		},
	}
	flags := postCmd.Flags()
	flags.String("type", "", "transaction type (income, expense, transfer)")
	flags.String("amount", "", "amount, e.g. 12.50")
	flags.Int64("asset", 0, "asset id")
	flags.Int64("counter", 0, "destination asset id for transfers")
	flags.Int64("category", 0, "category id")
	flags.StringArray("split", nil, "category=amount split; repeatable")
	flags.String("date", "", "date as YYYY-MM-DD (default: today)")
	flags.String("memo", "", "memo")
	flags.StringArray("tag", nil, "tag; repeatable")
	flags.String("external-id", "", "external id, unique per asset")
	_ = postCmd.MarkFlagRequired("type")
	_ = postCmd.MarkFlagRequired("amount")
	_ = postCmd.MarkFlagRequired("asset")
	addLedgerFlag(postCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction and reverse its balance effects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, true, func(ctx context.Context, s *session) error {
				ledger, err := s.ledger(ctx, cmd)
				if err != nil {
					return err
				}
				if err := retry(ctx, func() error { return s.engine.DeleteTransaction(ctx, s.user.ID, ledger.ID, args[0]) }); err != nil {
					return err
				}
				cmd.Println(cli.FormatSuccess("Deleted transaction " + args[0]))
				return nil
			})
		},
	}
	addLedgerFlag(deleteCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, true, func(ctx context.Context, s *session) error {
				ledger, err := s.ledger(ctx, cmd)
				if err != nil {
					return err
				}
				filter, err := filterFromFlags(cmd, ledger.ID)
				if err != nil {
					return err
				}
				txns, err := s.engine.ListTransactions(ctx, s.user.ID, filter)
				if err != nil {
					return err
				}
				if len(txns) == 0 {
					cmd.Println(cli.FormatInfo("No transactions"))
					return nil
				}
				cmd.Println(renderTransactions(txns, ledger.CurrencyCode))
				return nil
			})
		},
	}
	listCmd.Flags().String("from", "", "first date, YYYY-MM-DD")
	listCmd.Flags().String("to", "", "last date, YYYY-MM-DD")
	listCmd.Flags().Int64("asset", 0, "only transactions touching this asset")
	listCmd.Flags().Int("limit", 50, "maximum rows")
	addLedgerFlag(listCmd)

	cmd.AddCommand(postCmd, deleteCmd, listCmd)
	return cmd
}

func postInputFromFlags(cmd *cobra.Command, currency string, now time.Time) (engine.PostInput, error) {
	flags := cmd.Flags()
	typeText, _ := flags.GetString("type")
	amountText, _ := flags.GetString("amount")
	dateText, _ := flags.GetString("date")
	splitArgs, _ := flags.GetStringArray("split")

	in := engine.PostInput{
		Type:           model.TransactionType(strings.ToUpper(typeText)),
		CounterAssetID: optionalID(cmd, "counter"),
		CategoryID:     optionalID(cmd, "category"),
	}
	in.AssetID, _ = flags.GetInt64("asset")
	in.Memo, _ = flags.GetString("memo")
	in.ExternalID, _ = flags.GetString("external-id")
	in.Tags, _ = flags.GetStringArray("tag")

	var err error
	if in.Amount, err = cli.ParseAmount(amountText, currency); err != nil {
		return in, err
	}
	if in.Date, err = parseDate(dateText, now); err != nil {
		return in, err
	}
	if in.Splits, err = parseSplits(splitArgs, currency); err != nil {
		return in, err
	}
	return in, nil
}

// parseSplits reads "category=amount" arguments.
func parseSplits(args []string, currency string) ([]model.TransactionSplit, error) {
	if len(args) == 0 {
		return nil, nil
	}
	splits := make([]model.TransactionSplit, 0, len(args))
	for _, arg := range args {
		categoryText, amountText, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid split %q, want category=amount", arg)
		}
		categoryID, err := parseID(categoryText, "category")
		if err != nil {
			return nil, err
		}
		amount, err := cli.ParseAmount(amountText, currency)
		if err != nil {
			return nil, err
		}
		splits = append(splits, model.TransactionSplit{CategoryID: categoryID, Amount: amount})
	}
	return splits, nil
}

func filterFromFlags(cmd *cobra.Command, ledgerID int64) (service.TransactionFilter, error) {
	filter := service.TransactionFilter{LedgerID: ledgerID, AssetID: optionalID(cmd, "asset")}
	filter.Limit, _ = cmd.Flags().GetInt("limit")

	parse := func(name string) (*time.Time, error) {
		text, _ := cmd.Flags().GetString(name)
		if text == "" {
			return nil, nil
		}
		t, err := time.Parse(dateLayout, text)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s date %q, want YYYY-MM-DD", name, text)
		}
		return &t, nil
	}

	var err error
	if filter.StartDate, err = parse("from"); err != nil {
		return filter, err
	}
	if filter.EndDate, err = parse("to"); err != nil {
		return filter, err
	}
	// --to is inclusive; the store's end bound is not.
	if filter.EndDate != nil {
		next := filter.EndDate.AddDate(0, 0, 1)
		filter.EndDate = &next
	}
	return filter, nil
}

func renderTransactions(txns []model.Transaction, currency string) string {
	rows := make([][]string, 0, len(txns))
	for _, txn := range txns {
		amount := txn.Amount
		if txn.Type != model.TransactionTypeIncome {
			amount = -amount
		}
		asset := strconv.FormatInt(txn.AssetID, 10)
		if txn.CounterAssetID != nil {
			asset += " → " + strconv.FormatInt(*txn.CounterAssetID, 10)
		}
		rows = append(rows, []string{
			txn.Date.Format(dateLayout),
			string(txn.Type),
			cli.StyleAmount(amount, currency),
			asset,
			txn.Memo,
			txn.ID,
		})
	}
	return cli.RenderTable([]string{"Date", "Type", "Amount", "Asset", "Memo", "ID"}, rows)
}
