package models

import "github.com/shopspring/decimal"

// Settlement is a transfer instruction: FromUserID owes ToUserID Amount.
// Settlements are regenerated whenever the group's expenses change.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// GroupID is the group this settlement belongs to.
	GroupID string

	// FromUserID is the debtor.
	FromUserID string

	// ToUserID is the creditor.
	ToUserID string

	// Amount is the transfer amount.
	Amount decimal.Decimal

	// Paid is set once the debtor has paid. It is the only field that
	// changes after creation and it does not affect balances.
	Paid bool

	// CreatedAt is the Unix timestamp when the settlement was generated.
	CreatedAt int64
}

// Involves reports whether userID is either party of the settlement.
func (s *Settlement) Involves(userID string) bool {
	return s.FromUserID == userID || s.ToUserID == userID
}
