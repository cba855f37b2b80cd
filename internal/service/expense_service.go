package service

import (
	"context"
	"log/slog"
	"strings"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/rpc"
)

// Recalculation reasons passed to the trigger.
const (
	ReasonExpenseCreated = "expense_created"
	ReasonExpenseDeleted = "expense_deleted"
)

// RecalculationTrigger rebuilds a group's settlements after its expenses
// change, either inline or through the queue.
type RecalculationTrigger interface {
	TriggerRecalculation(ctx context.Context, groupID, reason string) error
}

// ExpenseService implements the Connect ExpenseService
type ExpenseService struct {
	store   storage.Store
	trigger RecalculationTrigger
}

var _ rpc.ExpenseServiceHandler = (*ExpenseService)(nil)

// NewExpenseService creates a new ExpenseService with the given storage backend.
func NewExpenseService(store storage.Store, trigger RecalculationTrigger) *ExpenseService {
	return &ExpenseService{store: store, trigger: trigger}
}

// CreateExpense records an expense and triggers recalculation of its group.
// Without explicit shares the amount is split equally among the participants.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[rpc.CreateExpenseRequest]) (*connect.Response[rpc.ExpenseResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	msg := req.Msg
	slog.Info("CreateExpense request received",
		"group_id", msg.GroupID,
		"amount", msg.Amount,
		"participants", len(msg.ParticipantIDs),
		"shares", len(msg.Shares),
	)

	group, err := memberGroup(ctx, s.store, msg.GroupID, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	expense, err := buildExpense(group, msg, userID)
	if err != nil {
		slog.Warn("CreateExpense rejected", "group_id", msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		slog.Error("CreateExpense failed", "error", err)
		return nil, toConnectError(err)
	}
	slog.Info("Expense created", "expense_id", expense.ID, "group_id", group.ID)

	s.recalculate(ctx, group.ID, ReasonExpenseCreated)
	return connect.NewResponse(&rpc.ExpenseResponse{Expense: toRPCExpense(expense)}), nil
}

// buildExpense validates the request against the group and computes shares.
func buildExpense(group *models.Group, msg *rpc.CreateExpenseRequest, caller string) (*models.Expense, error) {
	title := strings.TrimSpace(msg.Title)
	if title == "" {
		return nil, invalidf("title is required")
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(msg.Amount))
	if err != nil {
		return nil, invalidf("amount %q is not a number", msg.Amount)
	}
	if !amount.IsPositive() {
		return nil, invalidf("amount must be positive")
	}

	paidBy := msg.PaidBy
	if paidBy == "" {
		paidBy = caller
	}
	if !group.HasMember(paidBy) {
		return nil, invalidf("payer %s is not a member of the group", paidBy)
	}

	var shares []calculator.Share
	if len(msg.Shares) > 0 {
		shares = make([]calculator.Share, len(msg.Shares))
		for i, sh := range msg.Shares {
			v, err := decimal.NewFromString(strings.TrimSpace(sh.Amount))
			if err != nil {
				return nil, invalidf("share of %s: %q is not a number", sh.UserID, sh.Amount)
			}
			shares[i] = calculator.Share{UserID: sh.UserID, Amount: v}
		}
		if err := calculator.ValidateShares(amount, shares); err != nil {
			return nil, err
		}
	} else {
		shares, err = calculator.EqualShares(amount, msg.ParticipantIDs)
		if err != nil {
			return nil, err
		}
	}

	expense := &models.Expense{
		GroupID: group.ID,
		Title:   title,
		Amount:  amount,
		PaidBy:  paidBy,
		Shares:  make([]models.Share, len(shares)),
	}
	for i, sh := range shares {
		if sh.UserID == "" || !group.HasMember(sh.UserID) {
			return nil, invalidf("participant %q is not a member of the group", sh.UserID)
		}
		expense.Shares[i] = models.Share{UserID: sh.UserID, Amount: sh.Amount}
	}
	return expense, nil
}

// ListExpenses returns the expenses of a group the caller belongs to.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[rpc.ListExpensesRequest]) (*connect.Response[rpc.ListExpensesResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := memberGroup(ctx, s.store, req.Msg.GroupID, userID); err != nil {
		return nil, toConnectError(err)
	}

	expenses, err := s.store.ListExpensesByGroup(ctx, req.Msg.GroupID)
	if err != nil {
		slog.Error("ListExpenses failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&rpc.ListExpensesResponse{Expenses: toRPCExpenses(expenses)}), nil
}

// ListUserExpenses returns every expense the caller paid for or shares in.
func (s *ExpenseService) ListUserExpenses(ctx context.Context, req *connect.Request[rpc.ListUserExpensesRequest]) (*connect.Response[rpc.ListExpensesResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpensesByUser(ctx, userID)
	if err != nil {
		slog.Error("ListUserExpenses failed", "user_id", userID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&rpc.ListExpensesResponse{Expenses: toRPCExpenses(expenses)}), nil
}

// DeleteExpense removes an expense and triggers recalculation of its group.
func (s *ExpenseService) DeleteExpense(ctx context.Context, req *connect.Request[rpc.DeleteExpenseRequest]) (*connect.Response[rpc.DeleteExpenseResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("DeleteExpense request received", "expense_id", req.Msg.ExpenseID)

	expense, err := s.store.GetExpense(ctx, req.Msg.ExpenseID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if _, err := memberGroup(ctx, s.store, expense.GroupID, userID); err != nil {
		return nil, toConnectError(err)
	}

	if err := s.store.DeleteExpense(ctx, expense.ID); err != nil {
		slog.Error("DeleteExpense failed", "expense_id", expense.ID, "error", err)
		return nil, toConnectError(err)
	}
	slog.Info("Expense deleted", "expense_id", expense.ID, "group_id", expense.GroupID)

	s.recalculate(ctx, expense.GroupID, ReasonExpenseDeleted)
	return connect.NewResponse(&rpc.DeleteExpenseResponse{}), nil
}

// recalculate runs the trigger. The expense write has already committed and
// settlement queries recalculate anyway, so a failure is only logged.
func (s *ExpenseService) recalculate(ctx context.Context, groupID, reason string) {
	if s.trigger == nil {
		return
	}
	if err := s.trigger.TriggerRecalculation(ctx, groupID, reason); err != nil {
		slog.Error("Settlement recalculation failed",
			"group_id", groupID,
			"reason", reason,
			"error", err,
		)
	}
}

func toRPCExpenses(expenses []*models.Expense) []*rpc.Expense {
	out := make([]*rpc.Expense, len(expenses))
	for i, e := range expenses {
		out[i] = toRPCExpense(e)
	}
	return out
}
