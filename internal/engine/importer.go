package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Veraticus/shared-ledger/internal/common"
	"github.com/Veraticus/shared-ledger/internal/model"
)

// ImportResult counts the outcome of a statement import.
type ImportResult struct {
	Posted  int
	Skipped int
}

// ImportStatement posts statement lines against one asset, using each
// line's FITID as the external id. Lines already imported are skipped. Each
// line is posted in its own transaction; the first other failure stops the
// import and the lines posted so far stay committed.
//
// progress, when non-nil, is called once per processed line.
func (e *Engine) ImportStatement(ctx context.Context, actor, ledgerID, assetID int64, lines []model.StatementLine, progress func()) (ImportResult, error) {
	var result ImportResult
	for _, line := range lines {
		_, err := e.PostTransaction(ctx, actor, ledgerID, PostInput{
			Type:       line.Type,
			Amount:     line.Amount,
			Date:       line.Date,
			AssetID:    assetID,
			Memo:       statementMemo(line),
			ExternalID: line.FITID,
		})
		switch {
		case err == nil:
			result.Posted++
		case common.CodeOf(err) == common.CodeDuplicateExternalID:
			result.Skipped++
		default:
			return result, err
		}
		if progress != nil {
			progress()
		}
	}

	slog.Info("imported statement",
		"ledger_id", ledgerID,
		"asset_id", assetID,
		"posted", result.Posted,
		"skipped", result.Skipped)
	return result, nil
}

func statementMemo(line model.StatementLine) string {
	name := strings.TrimSpace(line.Name)
	memo := strings.TrimSpace(line.Memo)
	switch {
	case name == "":
		return memo
	case memo == "" || memo == name:
		return name
	}
	return name + " - " + memo
}
