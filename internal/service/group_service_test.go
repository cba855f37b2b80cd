package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/pkg/rpc"
)

func TestCreateGroup(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	group := env.group(t, alice, "Roommates", bob, alice)

	if group.ID == "" {
		t.Error("expected non-empty group ID")
	}
	if group.CreatedBy != alice.ID {
		t.Errorf("created_by = %q, want %q", group.CreatedBy, alice.ID)
	}
	if len(group.Members) != 2 || group.Members[0].UserID != alice.ID {
		t.Errorf("expected creator first and no duplicates, got %+v", group.Members)
	}
	if group.CreatedAt == 0 {
		t.Error("expected non-zero CreatedAt")
	}

	t.Run("empty name", func(t *testing.T) {
		_, err := env.groups.CreateGroup(ctx, as(alice, &rpc.CreateGroupRequest{Name: "  "}))
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("unknown member", func(t *testing.T) {
		_, err := env.groups.CreateGroup(ctx, as(alice, &rpc.CreateGroupRequest{Name: "X", MemberIDs: []string{"ghost"}}))
		assertCode(t, err, connect.CodeNotFound)
	})
}

func TestGetGroup(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	carol := env.register(t, "carol")
	group := env.group(t, alice, "Work Lunch")

	resp, err := env.groups.GetGroup(ctx, as(alice, &rpc.GetGroupRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if resp.Msg.Group.Name != "Work Lunch" {
		t.Errorf("name = %q", resp.Msg.Group.Name)
	}

	t.Run("not a member", func(t *testing.T) {
		_, err := env.groups.GetGroup(ctx, as(carol, &rpc.GetGroupRequest{GroupID: group.ID}))
		assertCode(t, err, connect.CodePermissionDenied)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := env.groups.GetGroup(ctx, as(alice, &rpc.GetGroupRequest{GroupID: "missing"}))
		assertCode(t, err, connect.CodeNotFound)
	})
}

func TestAddMember(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	carol := env.register(t, "carol")
	group := env.group(t, alice, "Trip")

	t.Run("outsider cannot add", func(t *testing.T) {
		_, err := env.groups.AddMember(ctx, as(carol, &rpc.AddMemberRequest{GroupID: group.ID, UserID: carol.ID}))
		assertCode(t, err, connect.CodePermissionDenied)
	})

	t.Run("member adds", func(t *testing.T) {
		resp, err := env.groups.AddMember(ctx, as(alice, &rpc.AddMemberRequest{GroupID: group.ID, UserID: bob.ID}))
		if err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}
		if len(resp.Msg.Group.Members) != 2 {
			t.Errorf("expected 2 members, got %d", len(resp.Msg.Group.Members))
		}
	})

	t.Run("new member can add others", func(t *testing.T) {
		if _, err := env.groups.AddMember(ctx, as(bob, &rpc.AddMemberRequest{GroupID: group.ID, UserID: carol.ID})); err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		_, err := env.groups.AddMember(ctx, as(alice, &rpc.AddMemberRequest{GroupID: group.ID, UserID: bob.ID}))
		assertCode(t, err, connect.CodeAlreadyExists)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := env.groups.AddMember(ctx, as(alice, &rpc.AddMemberRequest{GroupID: group.ID, UserID: "ghost"}))
		assertCode(t, err, connect.CodeNotFound)
	})
}

func TestListGroups(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	env.group(t, alice, "One", bob)
	env.group(t, alice, "Two")

	tests := []struct {
		user testUser
		want int
	}{
		{alice, 2},
		{bob, 1},
	}
	for _, tt := range tests {
		t.Run(tt.user.Username, func(t *testing.T) {
			resp, err := env.groups.ListGroups(ctx, as(tt.user, &rpc.ListGroupsRequest{}))
			if err != nil {
				t.Fatalf("ListGroups failed: %v", err)
			}
			if len(resp.Msg.Groups) != tt.want {
				t.Errorf("expected %d groups, got %d", tt.want, len(resp.Msg.Groups))
			}
		})
	}
}
