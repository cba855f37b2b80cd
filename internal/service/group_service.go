package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/rpc"
)

// GroupService implements the Connect GroupService
type GroupService struct {
	store storage.Store
}

var _ rpc.GroupServiceHandler = (*GroupService)(nil)

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{store: store}
}

// CreateGroup creates a new group. The caller becomes its first member.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[rpc.CreateGroupRequest]) (*connect.Response[rpc.GroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.MemberIDs),
	)

	name := strings.TrimSpace(req.Msg.Name)
	if name == "" {
		return nil, toConnectError(invalidf("group name is required"))
	}

	group := &models.Group{
		Name:      name,
		CreatedBy: userID,
		Members:   []models.GroupMember{{UserID: userID}},
	}
	seen := map[string]bool{userID: true}
	var others []string
	for _, id := range req.Msg.MemberIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		others = append(others, id)
	}
	if err := s.requireUsers(ctx, others); err != nil {
		return nil, toConnectError(err)
	}
	for _, id := range others {
		group.Members = append(group.Members, models.GroupMember{UserID: id})
	}

	// Save to storage (generates ID and CreatedAt)
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Group created", "group_id", group.ID, "members", len(group.Members))
	return connect.NewResponse(&rpc.GroupResponse{Group: toRPCGroup(group)}), nil
}

// GetGroup retrieves a group the caller belongs to.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[rpc.GetGroupRequest]) (*connect.Response[rpc.GroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	group, err := memberGroup(ctx, s.store, req.Msg.GroupID, userID)
	if err != nil {
		slog.Warn("GetGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&rpc.GroupResponse{Group: toRPCGroup(group)}), nil
}

// ListGroups retrieves every group of the caller.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[rpc.ListGroupsRequest]) (*connect.Response[rpc.ListGroupsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	groups, err := s.store.ListGroupsByUser(ctx, userID)
	if err != nil {
		slog.Error("ListGroups failed", "error", err)
		return nil, toConnectError(err)
	}

	out := make([]*rpc.Group, len(groups))
	for i, group := range groups {
		out[i] = toRPCGroup(group)
	}

	slog.Info("ListGroups successful", "count", len(groups))
	return connect.NewResponse(&rpc.ListGroupsResponse{Groups: out}), nil
}

// AddMember adds a user to a group. Only members may add members.
func (s *GroupService) AddMember(ctx context.Context, req *connect.Request[rpc.AddMemberRequest]) (*connect.Response[rpc.GroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.UserID == "" {
		return nil, toConnectError(invalidf("user_id is required"))
	}

	if _, err := memberGroup(ctx, s.store, req.Msg.GroupID, userID); err != nil {
		return nil, toConnectError(err)
	}
	if err := s.requireUsers(ctx, []string{req.Msg.UserID}); err != nil {
		return nil, toConnectError(err)
	}
	if err := s.store.AddGroupMember(ctx, req.Msg.GroupID, req.Msg.UserID); err != nil {
		slog.Warn("AddMember failed", "group_id", req.Msg.GroupID, "user_id", req.Msg.UserID, "error", err)
		return nil, toConnectError(err)
	}

	group, err := s.store.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("Member added", "group_id", group.ID, "user_id", req.Msg.UserID)
	return connect.NewResponse(&rpc.GroupResponse{Group: toRPCGroup(group)}), nil
}

func (s *GroupService) requireUsers(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := users[id]; !ok {
			return fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
		}
	}
	return nil
}
