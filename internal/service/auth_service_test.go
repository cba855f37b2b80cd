package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/pkg/rpc"
)

func TestRegisterAndLogin(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	if alice.ID == "" || alice.token == "" {
		t.Fatalf("expected ID and token, got %+v", alice)
	}

	t.Run("duplicate email", func(t *testing.T) {
		_, err := env.auth.Register(ctx, connect.NewRequest(&rpc.RegisterRequest{
			Username: "alice2", Email: "alice@example.com", Password: "password123",
		}))
		assertCode(t, err, connect.CodeAlreadyExists)
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := env.auth.Register(ctx, connect.NewRequest(&rpc.RegisterRequest{
			Username: "bob", Email: "bob@example.com", Password: "short",
		}))
		assertCode(t, err, connect.CodeInvalidArgument)
	})

	t.Run("login", func(t *testing.T) {
		resp, err := env.auth.Login(ctx, connect.NewRequest(&rpc.LoginRequest{
			Email: "alice@example.com", Password: "password123",
		}))
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if resp.Msg.User.ID != alice.ID || resp.Msg.Token == "" {
			t.Errorf("unexpected login response: %+v", resp.Msg)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := env.auth.Login(ctx, connect.NewRequest(&rpc.LoginRequest{
			Email: "alice@example.com", Password: "password124",
		}))
		assertCode(t, err, connect.CodeUnauthenticated)
	})

	t.Run("current user", func(t *testing.T) {
		resp, err := env.auth.GetCurrentUser(ctx, as(alice, &rpc.GetCurrentUserRequest{}))
		if err != nil {
			t.Fatalf("GetCurrentUser failed: %v", err)
		}
		got := resp.Msg.User
		if got.ID != alice.ID || got.Username != "alice" || got.Mobile != "555-0100" {
			t.Errorf("unexpected user: %+v", got)
		}
	})

	t.Run("current user without token", func(t *testing.T) {
		_, err := env.auth.GetCurrentUser(ctx, connect.NewRequest(&rpc.GetCurrentUserRequest{}))
		assertCode(t, err, connect.CodeUnauthenticated)
	})
}
