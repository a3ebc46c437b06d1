package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/shared-ledger/internal/cli"
	"github.com/Veraticus/shared-ledger/internal/engine"
	"github.com/Veraticus/shared-ledger/internal/model"
	"github.com/Veraticus/shared-ledger/internal/ofx"
)

func (a *app) importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx <files...>",
		Short: "Import transactions from OFX/QFX statements",
		Long: `Import bank or credit card statements exported as OFX or QFX into one asset.

Each entry's FITID is stored as the transaction's external id, so importing
the same statement twice posts nothing new.

Examples:
  ledger import-ofx --asset 2 ~/Downloads/checking_jan.qfx
  ledger import-ofx --asset 5 --account 4111 ~/Downloads/*.ofx`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runImportOFX,
	}

	cmd.Flags().Int64("asset", 0, "asset to post the statement to")
	cmd.Flags().String("account", "", "only import entries for this institution account id")
	cmd.Flags().BoolP("dry-run", "d", false, "parse and summarize without posting")
	_ = cmd.MarkFlagRequired("asset")
	addLedgerFlag(cmd)
	return cmd
}

func (a *app) runImportOFX(cmd *cobra.Command, args []string) error {
	assetID, _ := cmd.Flags().GetInt64("asset")
	account, _ := cmd.Flags().GetString("account")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	return a.run(cmd, true, func(ctx context.Context, s *session) error {
		ledger, err := s.ledger(ctx, cmd)
		if err != nil {
			return err
		}

		parser := ofx.NewParserForCurrency(ledger.CurrencyCode)
		var lines []model.StatementLine
		for _, path := range files {
			fileLines, err := parseStatement(ctx, parser, path)
			if err != nil {
				return err
			}
			lines = append(lines, filterAccount(fileLines, account)...)
		}

		if len(lines) == 0 {
			cmd.Println(cli.FormatWarning("No statement entries found"))
			return nil
		}

		if dryRun {
			cmd.Println(cli.FormatTitle(fmt.Sprintf("%d entries in %d files", len(lines), len(files))))
			cmd.Println(renderStatement(lines, ledger.CurrencyCode))
			return nil
		}

		ctx, stop := context.WithCancel(ctx)
		defer stop()
		interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Import")
		ctx = interrupts.HandleInterrupts(ctx, "Entries posted so far are kept; run the import again to continue.")

		bar := newImportBar(cmd.ErrOrStderr(), len(lines))
		var result engine.ImportResult
		err = retry(ctx, func() error {
			bar.Reset()
			var err error
			result, err = s.engine.ImportStatement(ctx, s.user.ID, ledger.ID, assetID, lines, func() {
				if err := bar.Add(1); err != nil {
					slog.Debug("Failed to advance progress bar", "error", err)
				}
			})
			return err
		})
		if err != nil {
			if interrupts.WasInterrupted() {
				return nil
			}
			return err
		}

		cmd.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d entries, skipped %d already imported", result.Posted, result.Skipped)))
		return nil
	})
}

func newImportBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Posting entries...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

// expandFiles resolves glob patterns, keeping plain paths that exist.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) > 0 {
			files = append(files, matches...)
			continue
		}
		if _, err := os.Stat(pattern); err != nil {
			return nil, fmt.Errorf("no files found matching %s", pattern)
		}
		files = append(files, pattern)
	}
	return files, nil
}

func parseStatement(ctx context.Context, parser *ofx.Parser, path string) ([]model.StatementLine, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the user's own arguments
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	lines, err := parser.ParseFile(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	slog.Info("Processed file", "file", filepath.Base(path), "entries", len(lines))
	return lines, nil
}

func filterAccount(lines []model.StatementLine, account string) []model.StatementLine {
	if account == "" {
		return lines
	}
	kept := lines[:0]
	for _, line := range lines {
		if line.AccountID == account {
			kept = append(kept, line)
		}
	}
	return kept
}

func renderStatement(lines []model.StatementLine, currency string) string {
	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		amount := line.Amount
		if line.Type == model.TransactionTypeExpense {
			amount = -amount
		}
		rows = append(rows, []string{
			line.Date.Format(dateLayout),
			line.AccountID,
			line.Name,
			cli.StyleAmount(amount, currency),
			line.FITID,
		})
	}
	return cli.RenderTable([]string{"Date", "Account", "Name", "Amount", "FITID"}, rows)
}
