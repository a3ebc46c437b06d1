// Package model defines the core domain models used throughout the application.
package model

import "time"

// MinMonthStartDay and MaxMonthStartDay bound the day a financial month begins on.
const (
	MinMonthStartDay = 1
	MaxMonthStartDay = 28
)

// User is a person who can own or collaborate on ledgers.
type User struct {
	CreatedAt    time.Time
	MainLedgerID *int64
	Email        string
	DisplayName  string
	ID           int64
}

// Ledger is a named book of assets, categories and transactions.
type Ledger struct {
	CreatedAt     time.Time
	Name          string
	CurrencyCode  string
	ID            int64
	OwnerID       int64
	MonthStartDay int
}

// FinancialMonth returns the half-open range [start, end) of the financial
// month containing t. A month-start-day of 25 means the month runs from the
// 25th up to (but not including) the 25th of the following month.
func (l Ledger) FinancialMonth(t time.Time) (start, end time.Time) {
	day := l.MonthStartDay
	if day < MinMonthStartDay || day > MaxMonthStartDay {
		day = MinMonthStartDay
	}

	year, month, _ := t.Date()
	start = time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	if t.Before(start) {
		start = start.AddDate(0, -1, 0)
	}
	return start, start.AddDate(0, 1, 0)
}

// CurrencyDigits returns the number of minor-unit digits for an ISO 4217
// code. Amounts are stored as integers in these units.
func CurrencyDigits(code string) int {
	switch code {
	case "JPY", "KRW", "VND", "CLP", "ISK", "PYG", "UGX", "XAF", "XOF":
		return 0
	case "BHD", "JOD", "KWD", "OMR", "TND", "IQD", "LYD":
		return 3
	}
	return 2
}
