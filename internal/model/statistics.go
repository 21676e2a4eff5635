package model

import (
	"time"

	"github.com/google/uuid"
)

// LedgerSummary aggregates posted cash movements over a date range
type LedgerSummary struct {
	Region        string          `json:"region,omitempty"`
	From          time.Time       `json:"from"`
	To            time.Time       `json:"to"`
	TotalIncome   int64           `json:"total_income"`
	TotalExpense  int64           `json:"total_expense"`
	Balance       int64           `json:"balance"`
	IncomeCount   int             `json:"income_count"`
	ExpenseCount  int             `json:"expense_count"`
	TopCategories []CategoryTotal `json:"top_expense_categories"`
}

// CategoryTotal is one category ranked by the expense it accumulated
type CategoryTotal struct {
	CategoryID   *uuid.UUID `json:"category_id"`
	CategoryCode string     `json:"category_code"`
	CategoryName string     `json:"category_name"`
	TotalValue   int64      `json:"total_value"`
	EntryCount   int        `json:"entry_count"`
}
