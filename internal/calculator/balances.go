package calculator

import "github.com/shopspring/decimal"

// ExpenseForBalance represents an expense with the minimal information needed
// for balance calculations.
type ExpenseForBalance struct {
	PayerID string
	Amount  decimal.Decimal
	Shares  []Share
}

// NetBalances folds expenses into one signed balance per user.
// Positive = is owed money, negative = owes money.
//
// The payer is credited the full amount and every participant is debited
// their recorded share. A payer who also participates ends up with
// amount - own share. Decimal addition is exact, so the result does not
// depend on the order of expenses. Users touched by no expense are absent;
// users whose credits and debits cancel are present with a zero balance.
func NetBalances(expenses []ExpenseForBalance) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal)
	for _, e := range expenses {
		balances[e.PayerID] = balances[e.PayerID].Add(e.Amount)
		for _, s := range e.Shares {
			balances[s.UserID] = balances[s.UserID].Sub(s.Amount)
		}
	}
	return balances
}

// Imbalance returns the sum of all balances. It is zero whenever every
// expense's shares add up to its amount.
func Imbalance(balances map[string]decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, b := range balances {
		sum = sum.Add(b)
	}
	return sum
}
