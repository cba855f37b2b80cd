// Package settlement keeps each group's persisted settlement set consistent
// with its expenses.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// DefaultUserQueryConcurrency bounds how many groups SettlementsForUser
// recalculates at once when no limit is configured.
const DefaultUserQueryConcurrency = 4

// Store is the subset of storage.Store the engine depends on.
type Store interface {
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	ListGroupsByUser(ctx context.Context, userID string) ([]*models.Group, error)
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
	RecalculateSettlements(ctx context.Context, groupID string, plan storage.SettlementPlan) ([]*models.Settlement, error)
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)
	MarkSettlementPaid(ctx context.Context, settlementID string) (*models.Settlement, error)
}

// Resolved is a settlement with both parties looked up.
type Resolved struct {
	*models.Settlement
	From      *models.User
	To        *models.User
	GroupName string
}

// Engine recalculates settlements. Recalculations of the same group are
// serialized in process by a keyed lock and across processes by the store's
// write transaction; different groups run in parallel.
type Engine struct {
	store       Store
	locks       *groupLocks
	concurrency int
}

// Option configures an Engine.
type Option func(*Engine)

// WithUserQueryConcurrency sets how many groups SettlementsForUser processes
// in parallel.
func WithUserQueryConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewEngine creates an Engine backed by store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		locks:       newGroupLocks(),
		concurrency: DefaultUserQueryConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recalculate rebuilds the group's settlement set from its current expenses
// and persists it, replacing whatever was there. A settlement whose
// (from, to, amount) is unchanged keeps its ID and paid flag.
//
// If the balances do not settle to exactly zero nothing is written and the
// returned error wraps calculator.ErrResidual.
func (e *Engine) Recalculate(ctx context.Context, groupID string) ([]*Resolved, error) {
	start := time.Now()
	release, err := e.locks.acquire(ctx, groupID)
	if err != nil {
		return nil, err
	}
	defer release()

	resolved, err := e.recalculateLocked(ctx, groupID)
	metrics.RecalculationDuration.Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		metrics.Recalculations.WithLabelValues(metrics.ResultOK).Inc()
	case errors.Is(err, calculator.ErrResidual):
		metrics.Recalculations.WithLabelValues(metrics.ResultResidual).Inc()
		slog.Error("Settlement recalculation left a residual", "group_id", groupID, "error", err)
	default:
		metrics.Recalculations.WithLabelValues(metrics.ResultError).Inc()
	}
	return resolved, err
}

func (e *Engine) recalculateLocked(ctx context.Context, groupID string) ([]*Resolved, error) {
	var (
		group    *models.Group
		users    map[string]*models.User
		expenses int
		paidKept int
	)
	saved, err := e.store.RecalculateSettlements(ctx, groupID, func(ctx context.Context, snap *storage.LedgerSnapshot) ([]*models.Settlement, error) {
		group = snap.Group
		expenses = len(snap.Expenses)

		transfers, err := calculator.Simplify(calculator.NetBalances(balanceInput(snap.Expenses)))
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", groupID, err)
		}

		users, err = resolveUsers(ctx, snap.Users, transfers)
		if err != nil {
			return nil, err
		}

		var next []*models.Settlement
		next, paidKept = carryOver(snap.Previous, transfers)
		return next, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to recalculate settlements: %w", err)
	}

	metrics.TransfersPerGroup.Observe(float64(len(saved)))
	metrics.PaidCarriedOver.Add(float64(paidKept))
	slog.Debug("Recalculated settlements",
		"group_id", groupID,
		"expenses", expenses,
		"transfers", len(saved),
		"paid_kept", paidKept,
	)

	return resolve(saved, users, group.Name), nil
}

func balanceInput(expenses []*models.Expense) []calculator.ExpenseForBalance {
	input := make([]calculator.ExpenseForBalance, len(expenses))
	for i, exp := range expenses {
		shares := make([]calculator.Share, len(exp.Shares))
		for j, s := range exp.Shares {
			shares[j] = calculator.Share{UserID: s.UserID, Amount: s.Amount}
		}
		input[i] = calculator.ExpenseForBalance{PayerID: exp.PaidBy, Amount: exp.Amount, Shares: shares}
	}
	return input
}

// userLookup matches storage.Store's GetUsersByIDs.
type userLookup func(ctx context.Context, ids []string) (map[string]*models.User, error)

// resolveUsers looks up every party of every transfer. A party that does
// not exist is a storage.ErrNotFound.
func resolveUsers(ctx context.Context, lookup userLookup, transfers []calculator.Transfer) (map[string]*models.User, error) {
	if len(transfers) == 0 {
		return map[string]*models.User{}, nil
	}
	seen := make(map[string]struct{}, len(transfers)*2)
	var ids []string
	for _, t := range transfers {
		for _, id := range []string{t.From, t.To} {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	users, err := lookup(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	var missing []string
	for _, id := range ids {
		if _, ok := users[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("users %s: %w", strings.Join(missing, ", "), storage.ErrNotFound)
	}
	return users, nil
}

func resolve(settlements []*models.Settlement, users map[string]*models.User, groupName string) []*Resolved {
	out := make([]*Resolved, len(settlements))
	for i, s := range settlements {
		out[i] = &Resolved{
			Settlement: s,
			From:       users[s.FromUserID],
			To:         users[s.ToUserID],
			GroupName:  groupName,
		}
	}
	return out
}

// SettlementsForGroup recalculates the group and returns the fresh set, so
// the answer always reflects the current expenses.
func (e *Engine) SettlementsForGroup(ctx context.Context, groupID string) ([]*Resolved, error) {
	return e.Recalculate(ctx, groupID)
}

// SettlementsForUser recalculates every group the user belongs to that has
// expenses and returns the settlements in which the user pays or is paid.
// Results are ordered by group name, then group ID, then generation order.
func (e *Engine) SettlementsForUser(ctx context.Context, userID string) ([]*Resolved, error) {
	groups, err := e.store.ListGroupsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	slices.SortFunc(groups, func(a, b *models.Group) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	perGroup := make([][]*Resolved, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, group := range groups {
		g.Go(func() error {
			expenses, err := e.store.ListExpensesByGroup(gctx, group.ID)
			if err != nil {
				return fmt.Errorf("failed to list expenses: %w", err)
			}
			if len(expenses) == 0 {
				return nil
			}
			resolved, err := e.Recalculate(gctx, group.ID)
			if err != nil {
				return err
			}
			for _, r := range resolved {
				if r.Involves(userID) {
					perGroup[i] = append(perGroup[i], r)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []*Resolved
	for _, rs := range perGroup {
		out = append(out, rs...)
	}
	return out, nil
}

// MarkPaid flags a settlement as paid. Balances are unaffected. It holds the
// group's lock, so a recalculation in this process either sees the flag or
// runs after it.
func (e *Engine) MarkPaid(ctx context.Context, settlementID string) (*Resolved, error) {
	current, err := e.store.GetSettlement(ctx, settlementID)
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	release, err := e.locks.acquire(ctx, current.GroupID)
	if err != nil {
		return nil, err
	}
	defer release()

	s, err := e.store.MarkSettlementPaid(ctx, settlementID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark settlement paid: %w", err)
	}
	return e.resolveOne(ctx, s)
}

// Get returns a single settlement with its parties.
func (e *Engine) Get(ctx context.Context, settlementID string) (*Resolved, error) {
	s, err := e.store.GetSettlement(ctx, settlementID)
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return e.resolveOne(ctx, s)
}

func (e *Engine) resolveOne(ctx context.Context, s *models.Settlement) (*Resolved, error) {
	group, err := e.store.GetGroup(ctx, s.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	users, err := resolveUsers(ctx, e.store.GetUsersByIDs, []calculator.Transfer{{From: s.FromUserID, To: s.ToUserID}})
	if err != nil {
		return nil, err
	}
	return resolve([]*models.Settlement{s}, users, group.Name)[0], nil
}

// TriggerRecalculation recalculates inline. It satisfies the trigger used by
// the expense service when no queue is configured.
func (e *Engine) TriggerRecalculation(ctx context.Context, groupID, reason string) error {
	slog.Debug("Recalculation triggered", "group_id", groupID, "reason", reason)
	_, err := e.Recalculate(ctx, groupID)
	return err
}
