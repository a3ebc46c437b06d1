package model

import "time"

// TransactionType is the direction of a transaction.
type TransactionType string

// Transaction types.
const (
	TransactionTypeIncome   TransactionType = "INCOME"
	TransactionTypeExpense  TransactionType = "EXPENSE"
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// Valid reports whether the transaction type is known.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer:
		return true
	}
	return false
}

// CategoryType returns the category type split targets must have.
// Transfers carry no categories and return the empty type.
func (t TransactionType) CategoryType() CategoryType {
	switch t {
	case TransactionTypeIncome:
		return CategoryTypeIncome
	case TransactionTypeExpense:
		return CategoryTypeExpense
	}
	return ""
}

// Transaction is a dated movement of money against one or two assets.
type Transaction struct {
	Date           time.Time
	CreatedAt      time.Time
	CounterAssetID *int64
	ID             string
	Type           TransactionType
	Memo           string
	ExternalID     string // e.g. an OFX FITID, unique per asset
	Splits         []TransactionSplit
	Tags           []string
	LedgerID       int64
	AssetID        int64
	CreatedBy      int64
	Amount         int64 // minor currency units, always positive
}

// TransactionSplit allocates part of a transaction to a category.
type TransactionSplit struct {
	TransactionID string
	Memo          string
	ID            int64
	CategoryID    int64
	Amount        int64
}

// BalanceEffect is a signed change to one asset's current balance.
type BalanceEffect struct {
	AssetID int64
	Delta   int64
}

// Effects returns the balance changes the transaction applies when posted.
// Income credits the asset, expense debits it, and a transfer debits the
// asset and credits the counter-asset.
func (t *Transaction) Effects() []BalanceEffect {
	switch t.Type {
	case TransactionTypeIncome:
		return []BalanceEffect{{AssetID: t.AssetID, Delta: t.Amount}}
	case TransactionTypeExpense:
		return []BalanceEffect{{AssetID: t.AssetID, Delta: -t.Amount}}
	case TransactionTypeTransfer:
		effects := []BalanceEffect{{AssetID: t.AssetID, Delta: -t.Amount}}
		if t.CounterAssetID != nil {
			effects = append(effects, BalanceEffect{AssetID: *t.CounterAssetID, Delta: t.Amount})
		}
		return effects
	}
	return nil
}

// SplitTotal sums the split amounts.
func (t *Transaction) SplitTotal() int64 {
	var total int64
	for _, s := range t.Splits {
		total += s.Amount
	}
	return total
}
