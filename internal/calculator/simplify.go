package calculator

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrResidual is returned when balances cannot be settled down to exactly
// zero. It means the balances did not sum to zero, which points at share
// drift or a conservation bug upstream.
var ErrResidual = errors.New("balances do not settle to zero")

// Transfer is a payment instruction: From pays To Amount.
type Transfer struct {
	From   string
	To     string
	Amount decimal.Decimal
}

type party struct {
	id     string
	amount decimal.Decimal
}

// Simplify reduces net balances to a short list of transfers that zero every
// balance.
//
// Algorithm (greedy two-pointer matching):
//   - creditors (balance > 0) and debtors (balance < 0, as magnitude) are
//     sorted by descending amount, ties by ascending user ID
//   - the current debtor pays the current creditor min(debt, credit)
//   - a cursor advances once its party reaches exactly zero
//   - matching stops when either side runs out
//
// Every step retires at least one party, so the result holds at most
// #creditors + #debtors - 1 transfers. There is no tolerance: if anything is
// left over on either side the transfers computed so far are returned along
// with an error wrapping ErrResidual.
func Simplify(balances map[string]decimal.Decimal) ([]Transfer, error) {
	var creditors, debtors []party
	for id, b := range balances {
		switch b.Sign() {
		case 1:
			creditors = append(creditors, party{id: id, amount: b})
		case -1:
			debtors = append(debtors, party{id: id, amount: b.Neg()})
		}
	}
	sortParties(creditors)
	sortParties(debtors)

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := &debtors[i]
		creditor := &creditors[j]

		amount := decimal.Min(debtor.amount, creditor.amount)
		transfers = append(transfers, Transfer{
			From:   debtor.id,
			To:     creditor.id,
			Amount: amount,
		})

		debtor.amount = debtor.amount.Sub(amount)
		creditor.amount = creditor.amount.Sub(amount)

		if debtor.amount.IsZero() {
			i++
		}
		if creditor.amount.IsZero() {
			j++
		}
	}

	residual := decimal.Zero
	for ; i < len(debtors); i++ {
		residual = residual.Sub(debtors[i].amount)
	}
	for ; j < len(creditors); j++ {
		residual = residual.Add(creditors[j].amount)
	}
	if !residual.IsZero() {
		return transfers, fmt.Errorf("%w: %s left unsettled", ErrResidual, residual.StringFixed(Scale))
	}
	return transfers, nil
}

func sortParties(parties []party) {
	slices.SortFunc(parties, func(a, b party) int {
		if c := b.amount.Cmp(a.amount); c != 0 {
			return c
		}
		return strings.Compare(a.id, b.id)
	})
}
