package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/settlement"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/rpc"
)

// SettlementService implements the Connect SettlementService
type SettlementService struct {
	store  storage.Store
	engine *settlement.Engine
}

var _ rpc.SettlementServiceHandler = (*SettlementService)(nil)

// NewSettlementService creates a new SettlementService.
func NewSettlementService(store storage.Store, engine *settlement.Engine) *SettlementService {
	return &SettlementService{store: store, engine: engine}
}

// CalculateSettlements recalculates the group from its current expenses and
// returns the resulting transfers.
func (s *SettlementService) CalculateSettlements(ctx context.Context, req *connect.Request[rpc.CalculateSettlementsRequest]) (*connect.Response[rpc.SettlementsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := memberGroup(ctx, s.store, req.Msg.GroupID, userID); err != nil {
		return nil, toConnectError(err)
	}

	resolved, err := s.engine.SettlementsForGroup(ctx, req.Msg.GroupID)
	if err != nil {
		slog.Error("CalculateSettlements failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("CalculateSettlements successful", "group_id", req.Msg.GroupID, "count", len(resolved))
	return connect.NewResponse(&rpc.SettlementsResponse{Settlements: toRPCSettlements(resolved)}), nil
}

// ListUserSettlements returns every settlement the caller pays or receives,
// across all of the caller's groups.
func (s *SettlementService) ListUserSettlements(ctx context.Context, req *connect.Request[rpc.ListUserSettlementsRequest]) (*connect.Response[rpc.SettlementsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	resolved, err := s.engine.SettlementsForUser(ctx, userID)
	if err != nil {
		slog.Error("ListUserSettlements failed", "user_id", userID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&rpc.SettlementsResponse{Settlements: toRPCSettlements(resolved)}), nil
}

// GetSettlement returns one settlement of a group the caller belongs to.
func (s *SettlementService) GetSettlement(ctx context.Context, req *connect.Request[rpc.GetSettlementRequest]) (*connect.Response[rpc.SettlementResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	resolved, err := s.engine.Get(ctx, req.Msg.SettlementID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if _, err := memberGroup(ctx, s.store, resolved.GroupID, userID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&rpc.SettlementResponse{Settlement: toRPCSettlement(resolved)}), nil
}

// MarkSettlementPaid flags a settlement as paid. Balances are unaffected.
func (s *SettlementService) MarkSettlementPaid(ctx context.Context, req *connect.Request[rpc.MarkSettlementPaidRequest]) (*connect.Response[rpc.SettlementResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	current, err := s.engine.Get(ctx, req.Msg.SettlementID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if _, err := memberGroup(ctx, s.store, current.GroupID, userID); err != nil {
		return nil, toConnectError(err)
	}

	resolved, err := s.engine.MarkPaid(ctx, current.ID)
	if err != nil {
		slog.Error("MarkSettlementPaid failed", "settlement_id", current.ID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Settlement marked paid", "settlement_id", resolved.ID, "group_id", resolved.GroupID)
	return connect.NewResponse(&rpc.SettlementResponse{Settlement: toRPCSettlement(resolved)}), nil
}
