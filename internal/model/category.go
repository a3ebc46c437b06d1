package model

import "time"

// CategoryType indicates whether a category is for income or expense.
type CategoryType string

const (
	// CategoryTypeIncome represents categories for income transactions.
	CategoryTypeIncome CategoryType = "INCOME"
	// CategoryTypeExpense represents categories for expense transactions.
	CategoryTypeExpense CategoryType = "EXPENSE"
)

// Valid reports whether the category type is known.
func (t CategoryType) Valid() bool {
	return t == CategoryTypeIncome || t == CategoryTypeExpense
}

// Category is a node in a ledger's income or expense tree.
type Category struct {
	CreatedAt time.Time
	ParentID  *int64
	Name      string
	Type      CategoryType
	ID        int64
	LedgerID  int64
	SortOrder int
}

// DefaultCategories are seeded into every newly registered user's ledger.
var DefaultCategories = []struct {
	Name string
	Type CategoryType
}{
	{"Salary", CategoryTypeIncome},
	{"Bonus", CategoryTypeIncome},
	{"Interest", CategoryTypeIncome},
	{"Other Income", CategoryTypeIncome},
	{"Food", CategoryTypeExpense},
	{"Housing", CategoryTypeExpense},
	{"Transportation", CategoryTypeExpense},
	{"Utilities", CategoryTypeExpense},
	{"Health", CategoryTypeExpense},
	{"Entertainment", CategoryTypeExpense},
	{"Other Expense", CategoryTypeExpense},
}
