package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/shared-ledger/internal/cli"
	"github.com/Veraticus/shared-ledger/internal/model"
)

func (a *app) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "register <email> <name>",
		Short: "Register a user and create their main ledger",
		Long: `Register a user. The first registration also creates the user's main
ledger with the default categories. Registering an existing email returns
the existing user.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, false, func(ctx context.Context, s *session) error {
				var user *model.User
				err := retry(ctx, func() error {
					var err error
					user, err = s.engine.RegisterUser(ctx, args[0], args[1])
					return err
				})
				if err != nil {
					return err
				}

				mainLedger := "none"
				if user.MainLedgerID != nil {
					mainLedger = strconv.FormatInt(*user.MainLedgerID, 10)
				}
				cmd.Println(cli.FormatSuccess(fmt.Sprintf("User %d %s (main ledger %s)", user.ID, user.Email, mainLedger)))
				return nil
			})
		},
	})

	return cmd
}

func (a *app) ledgersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledgers",
		Short: "Create and list ledgers",
	}

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a ledger owned by the acting user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			currency, _ := cmd.Flags().GetString("currency")
			monthStart, _ := cmd.Flags().GetInt("month-start")

			return a.run(cmd, true, func(ctx context.Context, s *session) error {
				var ledger *model.Ledger
				err := retry(ctx, func() error {
					var err error
					ledger, err = s.engine.CreateLedger(ctx, s.user.ID, args[0], currency, monthStart)
					return err
				})
				if err != nil {
					return err
				}
				cmd.Println(cli.FormatSuccess(fmt.Sprintf("Created ledger %d %q (%s)", ledger.ID, ledger.Name, ledger.CurrencyCode)))
				return nil
			})
		},
	}
	createCmd.Flags().String("currency", "", "ISO 4217 currency code (default: default_currency)")
	createCmd.Flags().Int("month-start", 1, "day of month the financial month starts (1-28)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List ledgers you belong to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, true, func(ctx context.Context, s *session) error {
				ledgers, err := s.engine.ListLedgers(ctx, s.user.ID)
				if err != nil {
					return err
				}
				if len(ledgers) == 0 {
					cmd.Println(cli.FormatInfo("No ledgers"))
					return nil
				}

				rows := make([][]string, 0, len(ledgers))
				for _, l := range ledgers {
					mark := ""
					if s.user.MainLedgerID != nil && *s.user.MainLedgerID == l.ID {
						mark = "*"
					}
					rows = append(rows, []string{
						strconv.FormatInt(l.ID, 10),
						l.Name,
						l.CurrencyCode,
						strconv.Itoa(l.MonthStartDay),
						mark,
					})
				}
				cmd.Println(cli.FormatTitle("Ledgers"))
				cmd.Println(cli.RenderTable([]string{"ID", "Name", "Currency", "Month start", "Main"}, rows))
				return nil
			})
		},
	}

	cmd.AddCommand(createCmd, listCmd)
	return cmd
}
