package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/config"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/queue"
	"github.com/mmynk/splitledger/internal/settlement"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

// seed creates a group where bob owes alice 7.50 and returns its ID.
func seed(t *testing.T, dbPath string) string {
	t.Helper()
	ctx := context.Background()
	store, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	alice := models.NewUser("alice", "alice@example.com", "", "hash")
	bob := models.NewUser("bob", "bob@example.com", "", "hash")
	for _, u := range []*models.User{alice, bob} {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
	}
	group := &models.Group{
		Name:      "Trip",
		CreatedBy: alice.ID,
		Members:   []models.GroupMember{{UserID: alice.ID}, {UserID: bob.ID}},
	}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if err := store.CreateExpense(ctx, &models.Expense{
		GroupID: group.ID,
		Title:   "Lunch",
		Amount:  decimal.RequireFromString("7.50"),
		PaidBy:  alice.ID,
		Shares:  []models.Share{{UserID: bob.ID, Amount: decimal.RequireFromString("7.50")}},
	}); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	return group.ID
}

func TestRecalculateCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	groupID := seed(t, dbPath)
	t.Setenv("DB_PATH", dbPath)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"recalculate", groupID})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "bob pays alice 7.50" {
		t.Errorf("output = %q", got)
	}
}

func TestRecalculateHandler(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "worker.db")
	groupID := seed(t, dbPath)
	store, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	cfg = config.Default()
	handler := recalculateHandler(settlement.NewEngine(store))
	ctx := context.Background()

	t.Run("existing group", func(t *testing.T) {
		if err := handler(ctx, queue.NewRecalculateMessage(groupID, "test")); err != nil {
			t.Fatalf("handler failed: %v", err)
		}
		list, err := store.ListSettlementsByGroup(ctx, groupID)
		if err != nil {
			t.Fatalf("ListSettlementsByGroup failed: %v", err)
		}
		if len(list) != 1 {
			t.Errorf("expected 1 settlement, got %d", len(list))
		}
	})

	t.Run("missing group is permanent", func(t *testing.T) {
		err := handler(ctx, queue.NewRecalculateMessage("missing", "test"))
		if !errors.Is(err, queue.ErrPermanent) {
			t.Errorf("expected ErrPermanent, got %v", err)
		}
	})
}
