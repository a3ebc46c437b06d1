package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/shared-ledger/internal/cli"
	"github.com/Veraticus/shared-ledger/internal/model"
)

func (a *app) categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"cat"},
		Short:   "Manage income and expense categories",
	}

	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			categoryType, _ := cmd.Flags().GetString("type")
			return a.run(cmd, true, func(ctx context.Context, s *session) error {
				ledger, err := s.ledger(ctx, cmd)
				if err != nil {
					return err
				}
				var category *model.Category
				err = retry(ctx, func() error {
					category, err = s.engine.CreateCategory(ctx, s.user.ID, ledger.ID, args[0],
						model.CategoryType(strings.ToUpper(categoryType)), optionalID(cmd, "parent"))
					return err
				})
				if err != nil {
					return err
				}
				cmd.Println(cli.FormatSuccess(fmt.Sprintf("Created %s category %d %q",
					strings.ToLower(string(category.Type)), category.ID, category.Name)))
				return nil
			})
		},
	}
	addCmd.Flags().String("type", string(model.CategoryTypeExpense), "category type (INCOME, EXPENSE)")
	addCmd.Flags().Int64("parent", 0, "parent category id")
	addLedgerFlag(addCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List categories in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, true, func(ctx context.Context, s *session) error {
				ledger, err := s.ledger(ctx, cmd)
				if err != nil {
					return err
				}
				categories, err := s.engine.ListCategories(ctx, s.user.ID, ledger.ID)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(categories))
				for _, c := range categories {
					parent := ""
					if c.ParentID != nil {
						parent = strconv.FormatInt(*c.ParentID, 10)
					}
					rows = append(rows, []string{strconv.FormatInt(c.ID, 10), c.Name, string(c.Type), parent, strconv.Itoa(c.SortOrder)})
				}
				cmd.Println(cli.RenderTable([]string{"ID", "Name", "Type", "Parent", "Order"}, rows))
				return nil
			})
		},
	}
	addLedgerFlag(listCmd)

	moveCmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Rename a category or change its parent",
		Long: `Rename a category or change its parent. --parent 0 makes it top-level.
A category cannot become its own ancestor.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "category")
			if err != nil {
				return err
			}
			return a.run(cmd, true, func(ctx context.Context, s *session) error {
				current, err := s.store.GetCategory(ctx, id)
				if err != nil {
					return err
				}
				if current == nil {
					return fmt.Errorf("category %d not found", id)
				}

				name := current.Name
				if n, _ := cmd.Flags().GetString("name"); n != "" {
					name = n
				}
				parent := current.ParentID
				if cmd.Flags().Changed("parent") {
					parent = optionalID(cmd, "parent")
					if *parent == 0 {
						parent = nil
					}
				}

				var category *model.Category
				err = retry(ctx, func() error {
					category, err = s.engine.UpdateCategory(ctx, s.user.ID, id, name, parent)
					return err
				})
				if err != nil {
					return err
				}
				cmd.Println(cli.FormatSuccess(fmt.Sprintf("Updated category %d %q", category.ID, category.Name)))
				return nil
			})
		},
	}
	moveCmd.Flags().String("name", "", "new name")
	moveCmd.Flags().Int64("parent", 0, "new parent category id, 0 for none")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an unused category without children",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "category")
			if err != nil {
				return err
			}
			return a.run(cmd, true, func(ctx context.Context, s *session) error {
				if err := retry(ctx, func() error { return s.engine.DeleteCategory(ctx, s.user.ID, id) }); err != nil {
					return err
				}
				cmd.Println(cli.FormatSuccess(fmt.Sprintf("Deleted category %d", id)))
				return nil
			})
		},
	}

	cmd.AddCommand(addCmd, listCmd, moveCmd, deleteCmd)
	return cmd
}
