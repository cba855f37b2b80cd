// Package calculator holds the pure arithmetic of expense sharing: dividing an
// expense into shares, folding expenses into net balances and reducing those
// balances to a minimal list of transfers. Nothing here performs I/O.
package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits every amount carries.
const Scale = 2

var (
	ErrNoParticipants       = errors.New("expense must have at least one participant")
	ErrNegativeAmount       = errors.New("amount cannot be negative")
	ErrNegativeShare        = errors.New("share amount cannot be negative")
	ErrDuplicateParticipant = errors.New("participant appears more than once")
	ErrPrecision            = errors.New("amount has more than two decimal places")
	ErrShareSum             = errors.New("shares do not add up to the expense amount")
)

// cent is the smallest representable amount.
var cent = decimal.New(1, -Scale)

// Share is one participant's portion of an expense.
type Share struct {
	UserID string
	Amount decimal.Decimal
}

// EqualShares divides amount among participants.
// Each share is amount/N rounded half-up to two places. The cents lost or
// gained by rounding are moved onto the trailing participants one cent at a
// time, so the shares always add up to amount exactly:
// 10.00 over three people gives 3.33, 3.33, 3.34.
func EqualShares(amount decimal.Decimal, participants []string) ([]Share, error) {
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	if err := checkUnique(participants); err != nil {
		return nil, err
	}

	n := decimal.NewFromInt(int64(len(participants)))
	each := amount.DivRound(n, Scale)

	// drift is at most N * 0.005 in either direction, i.e. fewer than N cents
	drift := amount.Sub(each.Mul(n))
	cents := drift.Div(cent).IntPart()
	step := cent
	if cents < 0 {
		step = cent.Neg()
		cents = -cents
	}

	shares := make([]Share, len(participants))
	for i, p := range participants {
		shares[i] = Share{UserID: p, Amount: each}
	}
	for k := int64(0); k < cents; k++ {
		idx := len(shares) - 1 - int(k)
		shares[idx].Amount = shares[idx].Amount.Add(step)
	}
	return shares, nil
}

// ValidateShares checks explicitly supplied shares against the expense amount.
// Shares must be non-negative, carry at most two decimal places, name each
// participant once and add up to amount exactly.
func ValidateShares(amount decimal.Decimal, shares []Share) error {
	if len(shares) == 0 {
		return ErrNoParticipants
	}
	if err := checkAmount(amount); err != nil {
		return err
	}

	ids := make([]string, len(shares))
	sum := decimal.Zero
	for i, s := range shares {
		if s.Amount.IsNegative() {
			return fmt.Errorf("%w: %s", ErrNegativeShare, s.UserID)
		}
		if !s.Amount.Equal(s.Amount.Round(Scale)) {
			return fmt.Errorf("%w: share of %s", ErrPrecision, s.UserID)
		}
		ids[i] = s.UserID
		sum = sum.Add(s.Amount)
	}
	if err := checkUnique(ids); err != nil {
		return err
	}
	if !sum.Equal(amount) {
		return fmt.Errorf("%w: shares total %s, expense is %s", ErrShareSum, sum.StringFixed(Scale), amount.StringFixed(Scale))
	}
	return nil
}

func checkAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	if !amount.Equal(amount.Round(Scale)) {
		return ErrPrecision
	}
	return nil
}

func checkUnique(ids []string) error {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return fmt.Errorf("%w: %s", ErrDuplicateParticipant, id)
		}
		seen[id] = true
	}
	return nil
}
