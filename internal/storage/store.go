// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitledger/internal/models"
)

var (
	// ErrNotFound is returned when a referenced user, group, expense or
	// settlement does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a uniqueness rule would be violated.
	ErrConflict = errors.New("already exists")
)

// UserStore persists user accounts.
type UserStore interface {
	// CreateUser inserts a new user. Returns ErrConflict if the username or
	// email is taken.
	CreateUser(ctx context.Context, user *models.User) error

	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUsersByIDs returns a map of user ID to user.
	// Users that don't exist are omitted from the result.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// GroupStore persists groups and their membership.
type GroupStore interface {
	// CreateGroup persists a group together with its initial members.
	// The group.ID and CreatedAt fields will be populated by the store.
	CreateGroup(ctx context.Context, group *models.Group) error

	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroupsByUser returns every group the user is a member of.
	ListGroupsByUser(ctx context.Context, userID string) ([]*models.Group, error)

	// AddGroupMember adds a user to a group. Returns ErrConflict if the user
	// is already a member.
	AddGroupMember(ctx context.Context, groupID, userID string) error
}

// ExpenseStore persists expenses and their shares.
type ExpenseStore interface {
	// CreateExpense persists an expense and its shares atomically.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListExpensesByGroup returns the group's expenses with shares resolved.
	ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error)

	// ListExpensesByUser returns expenses the user paid for or takes part in.
	ListExpensesByUser(ctx context.Context, userID string) ([]*models.Expense, error)

	// DeleteExpense removes an expense; its shares go with it.
	DeleteExpense(ctx context.Context, expenseID string) error
}

// LedgerSnapshot is a group's ledger as read inside a recalculation
// transaction.
type LedgerSnapshot struct {
	Group    *models.Group
	Expenses []*models.Expense
	Previous []*models.Settlement

	// Users looks up users through the same transaction. Users that don't
	// exist are omitted from the result.
	Users func(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// SettlementPlan derives a group's new settlement set from a snapshot. It
// runs while the store holds the write transaction, so it must not call back
// into the store.
type SettlementPlan func(ctx context.Context, snap *LedgerSnapshot) ([]*models.Settlement, error)

// SettlementStore persists the derived settlement set of each group.
type SettlementStore interface {
	// RecalculateSettlements reads the group, its expenses and its current
	// settlements, hands them to plan and replaces the set with the result,
	// all in one write transaction. Concurrent writers to the same database,
	// including other processes, are ordered before or after it. An error
	// from plan leaves the previous set untouched.
	RecalculateSettlements(ctx context.Context, groupID string, plan SettlementPlan) ([]*models.Settlement, error)

	// ReplaceSettlements deletes every settlement of the group and inserts
	// the given set in one transaction. Missing IDs are generated. A failure
	// leaves the previous set untouched.
	ReplaceSettlements(ctx context.Context, groupID string, settlements []*models.Settlement) ([]*models.Settlement, error)

	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)

	// ListSettlementsByGroup returns the group's settlements in the order
	// they were generated.
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error)

	// MarkSettlementPaid sets the paid flag and returns the updated row.
	MarkSettlementPaid(ctx context.Context, settlementID string) (*models.Settlement, error)
}

// Store defines the interface for all storage operations.
// This abstraction allows swapping storage backends without changing the
// service layer.
type Store interface {
	UserStore
	GroupStore
	ExpenseStore
	SettlementStore

	// Close releases any resources held by the store.
	Close() error
}
