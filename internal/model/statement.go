package model

import "time"

// StatementLine is one entry read from a bank or card statement file.
type StatementLine struct {
	Date      time.Time
	FITID     string // financial institution's id for the entry
	AccountID string // account number as reported by the institution
	Name      string
	Memo      string
	Type      TransactionType // income or expense
	Amount    int64           // positive, minor currency units
}
