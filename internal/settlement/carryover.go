package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
)

type edge struct {
	from, to, amount string
}

func edgeOf(from, to string, amount decimal.Decimal) edge {
	return edge{from: from, to: to, amount: amount.StringFixed(calculator.Scale)}
}

// carryOver turns transfers into settlement rows. A transfer identical in
// (from, to, amount) to a previous settlement inherits that settlement's ID,
// creation time and paid flag, so marking a debt paid survives a
// recalculation that leaves the debt unchanged. Each previous row is
// inherited at most once.
func carryOver(previous []*models.Settlement, transfers []calculator.Transfer) (next []*models.Settlement, paidKept int) {
	pool := make(map[edge][]*models.Settlement, len(previous))
	for _, p := range previous {
		k := edgeOf(p.FromUserID, p.ToUserID, p.Amount)
		pool[k] = append(pool[k], p)
	}

	next = make([]*models.Settlement, len(transfers))
	for i, t := range transfers {
		s := &models.Settlement{
			FromUserID: t.From,
			ToUserID:   t.To,
			Amount:     t.Amount,
		}
		k := edgeOf(t.From, t.To, t.Amount)
		if prev := pool[k]; len(prev) > 0 {
			s.ID = prev[0].ID
			s.CreatedAt = prev[0].CreatedAt
			s.Paid = prev[0].Paid
			if s.Paid {
				paidKept++
			}
			pool[k] = prev[1:]
		}
		next[i] = s
	}
	return next, paidKept
}
