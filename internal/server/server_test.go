package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/settlement"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
	"github.com/mmynk/splitledger/pkg/rpc"
)

func newTestServer(t *testing.T, metrics bool) *httptest.Server {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	h := Handler(Deps{
		Store:          store,
		Engine:         settlement.NewEngine(store),
		Authenticator:  auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost),
		JWT:            auth.NewJWTManager("test-secret", time.Hour),
		MetricsEnabled: metrics,
	})
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return server
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestHandler_Health(t *testing.T) {
	server := newTestServer(t, false)
	status, body := get(t, server.URL+"/health")
	if status != http.StatusOK || !strings.Contains(body, `"ok"`) {
		t.Errorf("GET /health = %d %q", status, body)
	}
}

func TestHandler_Metrics(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		server := newTestServer(t, true)
		status, body := get(t, server.URL+"/metrics")
		if status != http.StatusOK || !strings.Contains(body, "splitledger_settlement_paid_carried_over_total") {
			t.Errorf("GET /metrics = %d, missing splitledger collectors", status)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		server := newTestServer(t, false)
		if status, _ := get(t, server.URL+"/metrics"); status != http.StatusNotFound {
			t.Errorf("GET /metrics = %d, want 404", status)
		}
	})
}

func TestHandler_RPC(t *testing.T) {
	server := newTestServer(t, false)
	ctx := context.Background()
	authClient := rpc.NewAuthServiceClient(http.DefaultClient, server.URL)
	groupClient := rpc.NewGroupServiceClient(http.DefaultClient, server.URL)

	reg, err := authClient.Register(ctx, connect.NewRequest(&rpc.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "password123",
	}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	t.Run("protected without token", func(t *testing.T) {
		_, err := groupClient.ListGroups(ctx, connect.NewRequest(&rpc.ListGroupsRequest{}))
		if connect.CodeOf(err) != connect.CodeUnauthenticated {
			t.Errorf("expected Unauthenticated, got %v", err)
		}
	})

	t.Run("protected with token", func(t *testing.T) {
		req := connect.NewRequest(&rpc.CreateGroupRequest{Name: "Trip"})
		req.Header().Set("Authorization", "Bearer "+reg.Msg.Token)
		resp, err := groupClient.CreateGroup(ctx, req)
		if err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if resp.Msg.Group.CreatedBy != reg.Msg.User.ID {
			t.Errorf("created_by = %q", resp.Msg.Group.CreatedBy)
		}
	})
}

func TestRun_Shutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, "127.0.0.1:0", http.NotFoundHandler()) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
