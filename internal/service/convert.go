package service

import (
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/settlement"
	"github.com/mmynk/splitledger/pkg/rpc"
)

func toRPCUser(u *models.User) *rpc.User {
	if u == nil {
		return nil
	}
	return &rpc.User{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Mobile:   u.Mobile,
	}
}

func toRPCGroup(g *models.Group) *rpc.Group {
	members := make([]rpc.GroupMember, len(g.Members))
	for i, m := range g.Members {
		members[i] = rpc.GroupMember{UserID: m.UserID, JoinedAt: m.JoinedAt}
	}
	return &rpc.Group{
		ID:        g.ID,
		Name:      g.Name,
		CreatedBy: g.CreatedBy,
		Members:   members,
		CreatedAt: g.CreatedAt,
	}
}

func toRPCExpense(e *models.Expense) *rpc.Expense {
	shares := make([]rpc.Share, len(e.Shares))
	for i, s := range e.Shares {
		shares[i] = rpc.Share{UserID: s.UserID, Amount: s.Amount.StringFixed(calculator.Scale)}
	}
	return &rpc.Expense{
		ID:        e.ID,
		GroupID:   e.GroupID,
		Title:     e.Title,
		Amount:    e.Amount.StringFixed(calculator.Scale),
		PaidBy:    e.PaidBy,
		Shares:    shares,
		CreatedAt: e.CreatedAt,
	}
}

func toRPCSettlement(r *settlement.Resolved) *rpc.Settlement {
	return &rpc.Settlement{
		ID:        r.ID,
		GroupID:   r.GroupID,
		GroupName: r.GroupName,
		FromUser:  toRPCUser(r.From),
		ToUser:    toRPCUser(r.To),
		Amount:    r.Amount.StringFixed(calculator.Scale),
		Paid:      r.Paid,
		CreatedAt: r.CreatedAt,
	}
}

func toRPCSettlements(rs []*settlement.Resolved) []*rpc.Settlement {
	out := make([]*rpc.Settlement, len(rs))
	for i, r := range rs {
		out[i] = toRPCSettlement(r)
	}
	return out
}
