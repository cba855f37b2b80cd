package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/pkg/rpc"
)

// whoAmI echoes the context user through GetCurrentUser.
type whoAmI struct{}

func (whoAmI) Register(ctx context.Context, req *connect.Request[rpc.RegisterRequest]) (*connect.Response[rpc.AuthResponse], error) {
	return connect.NewResponse(&rpc.AuthResponse{User: &rpc.User{ID: GetUserID(ctx)}}), nil
}

func (whoAmI) Login(ctx context.Context, req *connect.Request[rpc.LoginRequest]) (*connect.Response[rpc.AuthResponse], error) {
	return connect.NewResponse(&rpc.AuthResponse{}), nil
}

func (whoAmI) GetCurrentUser(ctx context.Context, req *connect.Request[rpc.GetCurrentUserRequest]) (*connect.Response[rpc.GetCurrentUserResponse], error) {
	return connect.NewResponse(&rpc.GetCurrentUserResponse{
		User: &rpc.User{ID: GetUserID(ctx), Username: GetUsername(ctx)},
	}), nil
}

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	path, handler := rpc.NewAuthServiceHandler(whoAmI{},
		connect.WithInterceptors(RequireAuth(jwtManager, rpc.PublicProcedures...)),
	)
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	defer server.Close()
	client := rpc.NewAuthServiceClient(http.DefaultClient, server.URL)

	user := models.NewUser("alice", "alice@example.com", "", "hash")
	token, err := jwtManager.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	tests := []struct {
		name     string
		header   string
		wantCode connect.Code
	}{
		{name: "valid token", header: "Bearer " + token},
		{name: "missing header", wantCode: connect.CodeUnauthenticated},
		{name: "wrong scheme", header: "Basic " + token, wantCode: connect.CodeUnauthenticated},
		{name: "bad token", header: "Bearer nope", wantCode: connect.CodeUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := connect.NewRequest(&rpc.GetCurrentUserRequest{})
			if tt.header != "" {
				req.Header().Set("Authorization", tt.header)
			}
			resp, err := client.GetCurrentUser(context.Background(), req)
			if tt.wantCode != 0 {
				var connectErr *connect.Error
				if !errors.As(err, &connectErr) || connectErr.Code() != tt.wantCode {
					t.Fatalf("expected %v, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetCurrentUser failed: %v", err)
			}
			if resp.Msg.User.ID != user.ID || resp.Msg.User.Username != "alice" {
				t.Errorf("context user = %+v", resp.Msg.User)
			}
		})
	}

	t.Run("public procedure skips auth", func(t *testing.T) {
		resp, err := client.Register(context.Background(), connect.NewRequest(&rpc.RegisterRequest{}))
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if resp.Msg.User.ID != "" {
			t.Errorf("public call should carry no user, got %q", resp.Msg.User.ID)
		}
	})
}
