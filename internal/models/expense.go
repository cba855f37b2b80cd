package models

import "github.com/shopspring/decimal"

// Expense is an amount paid by one group member on behalf of several.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// Title is a short description (e.g., "Groceries").
	Title string

	// Amount is the total paid, with two fractional digits.
	Amount decimal.Decimal

	// PaidBy is the user ID of the payer.
	PaidBy string

	// Shares are the per-participant portions of Amount.
	// Shares are recorded once at creation and never re-derived, so any
	// rounding drift is fixed at that point.
	Shares []Share

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// Share is one participant's portion of an expense.
type Share struct {
	UserID string
	Amount decimal.Decimal
}

// Involves reports whether userID paid for or participates in the expense.
func (e *Expense) Involves(userID string) bool {
	if e.PaidBy == userID {
		return true
	}
	for _, s := range e.Shares {
		if s.UserID == userID {
			return true
		}
	}
	return false
}
