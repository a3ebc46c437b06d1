// Package ofx reads OFX/QFX bank and credit card statements into statement
// lines that can be posted to a ledger asset.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/Veraticus/shared-ledger/internal/model"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// An SGML opening tag alone on its line, missing its closing bracket.
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Parser converts OFX statements into statement lines.
type Parser struct {
	scale *big.Rat
}

// NewParser creates a parser whose amounts carry the given number of
// fraction digits, e.g. 2 for USD and 0 for KRW.
func NewParser(fractionDigits int) *Parser {
	scale := big.NewInt(1)
	for range fractionDigits {
		scale.Mul(scale, big.NewInt(10))
	}
	return &Parser{scale: new(big.Rat).SetInt(scale)}
}

// NewParserForCurrency creates a parser for the given ISO 4217 code.
func NewParserForCurrency(currency string) *Parser {
	return NewParser(model.CurrencyDigits(currency))
}

// preprocessOFX fixes common formatting issues in OFX files.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

func parseResponse(reader io.Reader) (*ofxgo.Response, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}
	return resp, nil
}

// ParseFile parses an OFX/QFX file. Credits become INCOME lines and debits
// EXPENSE lines; zero-amount entries are dropped.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]model.StatementLine, error) {
	resp, err := parseResponse(reader)
	if err != nil {
		return nil, err
	}

	var lines []model.StatementLine
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			lines = append(lines, p.convertList(stmt.BankTranList, string(stmt.BankAcctFrom.AcctID))...)
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			lines = append(lines, p.convertList(stmt.BankTranList, string(stmt.CCAcctFrom.AcctID))...)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slog.Info("Parsed OFX file",
		"lines", len(lines),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return lines, nil
}

func (p *Parser) convertList(list *ofxgo.TransactionList, accountID string) []model.StatementLine {
	if list == nil {
		return nil
	}

	lines := make([]model.StatementLine, 0, len(list.Transactions))
	for _, ofxTx := range list.Transactions {
		line, err := p.convertTransaction(ofxTx, accountID)
		if err != nil {
			slog.Warn("Skipping statement entry",
				"fitid", string(ofxTx.FiTID),
				"account", accountID,
				"error", err)
			continue
		}
		if line.Amount == 0 {
			slog.Debug("Skipping zero-amount entry", "fitid", line.FITID)
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// convertTransaction converts one OFX entry. OFX signs debits negative.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, accountID string) (model.StatementLine, error) {
	minor, err := p.minorUnits(&ofxTx.TrnAmt.Rat)
	if err != nil {
		return model.StatementLine{}, err
	}

	lineType := model.TransactionTypeIncome
	if minor < 0 {
		lineType = model.TransactionTypeExpense
		minor = -minor
	}

	memo := strings.TrimSpace(string(ofxTx.Memo))
	if ofxTx.CheckNum != "" && memo == "" {
		memo = "check " + string(ofxTx.CheckNum)
	}

	return model.StatementLine{
		Date:      ofxTx.DtPosted.Time,
		FITID:     string(ofxTx.FiTID),
		AccountID: accountID,
		Name:      extractMerchantName(ofxTx),
		Memo:      memo,
		Type:      lineType,
		Amount:    minor,
	}, nil
}

// minorUnits scales amount to integer minor units, rounding half away from
// zero.
func (p *Parser) minorUnits(amount *big.Rat) (int64, error) {
	scaled := new(big.Rat).Mul(amount, p.scale)
	n, err := strconv.ParseInt(scaled.FloatString(0), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %s out of range: %w", amount.FloatString(4), err)
	}
	return n, nil
}

var namePrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

// extractMerchantName tries to get a clean counterparty name from OFX data.
func extractMerchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	for _, prefix := range namePrefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " dates
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}

// GetAccounts extracts unique account IDs from the OFX file in the order
// they appear.
func (p *Parser) GetAccounts(_ context.Context, reader io.Reader) ([]string, error) {
	resp, err := parseResponse(reader)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var accounts []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			accounts = append(accounts, id)
		}
	}

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			add(string(stmt.BankAcctFrom.AcctID))
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			add(string(stmt.CCAcctFrom.AcctID))
		}
	}

	return accounts, nil
}
