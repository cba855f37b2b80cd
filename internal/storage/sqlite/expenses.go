package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

const expenseColumns = `id, group_id, title, amount, paid_by, created_at`

// CreateExpense persists a new expense and its shares.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireGroup(ctx, tx, expense.GroupID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.GroupID, expense.Title, expense.Amount, expense.PaidBy, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for i, share := range expense.Shares {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_shares (expense_id, user_id, amount, position) VALUES (?, ?, ?, ?)",
			expense.ID, share.UserID, share.Amount, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense share: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense by ID, including its shares.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	expense := &models.Expense{}
	err := s.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`,
		expenseID,
	).Scan(&expense.ID, &expense.GroupID, &expense.Title, &expense.Amount, &expense.PaidBy, &expense.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	if err := loadShares(ctx, s.db, []*models.Expense{expense}); err != nil {
		return nil, err
	}
	return expense, nil
}

// ListExpensesByGroup retrieves all expenses of a group, oldest first.
func (s *SQLiteStore) ListExpensesByGroup(ctx context.Context, groupID string) ([]*models.Expense, error) {
	return listExpensesByGroup(ctx, s.db, groupID)
}

func listExpensesByGroup(ctx context.Context, q queryer, groupID string) ([]*models.Expense, error) {
	return listExpenses(ctx, q,
		`SELECT `+expenseColumns+` FROM expenses WHERE group_id = ? ORDER BY created_at, id`,
		groupID,
	)
}

// ListExpensesByUser retrieves every expense the user paid for or shares in.
func (s *SQLiteStore) ListExpensesByUser(ctx context.Context, userID string) ([]*models.Expense, error) {
	return listExpenses(ctx, s.db,
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE paid_by = ? OR id IN (SELECT expense_id FROM expense_shares WHERE user_id = ?)
		 ORDER BY created_at DESC, id`,
		userID, userID,
	)
}

// DeleteExpense removes an expense by ID. Shares are removed by cascade.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	return nil
}

func listExpenses(ctx context.Context, q queryer, query string, args ...any) ([]*models.Expense, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	var expenses []*models.Expense
	for rows.Next() {
		expense := &models.Expense{}
		if err := rows.Scan(&expense.ID, &expense.GroupID, &expense.Title, &expense.Amount, &expense.PaidBy, &expense.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	if err := loadShares(ctx, q, expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

// shareBatchSize caps the bound parameters of one share query well below
// SQLite's variable limit.
var shareBatchSize = 500

// loadShares fills in Shares for each expense, one query per batch of IDs.
func loadShares(ctx context.Context, q queryer, expenses []*models.Expense) error {
	byID := make(map[string]*models.Expense, len(expenses))
	ids := make([]string, len(expenses))
	for i, e := range expenses {
		byID[e.ID] = e
		ids[i] = e.ID
	}

	for batch := range slices.Chunk(ids, shareBatchSize) {
		if err := loadShareBatch(ctx, q, byID, batch); err != nil {
			return err
		}
	}
	return nil
}

func loadShareBatch(ctx context.Context, q queryer, byID map[string]*models.Expense, ids []string) error {
	rows, err := q.QueryContext(ctx,
		`SELECT expense_id, user_id, amount FROM expense_shares
		 WHERE expense_id IN (`+placeholders(len(ids))+`)
		 ORDER BY expense_id, position`,
		toArgs(ids)...,
	)
	if err != nil {
		return fmt.Errorf("failed to get expense shares: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var expenseID string
		var share models.Share
		if err := rows.Scan(&expenseID, &share.UserID, &share.Amount); err != nil {
			return fmt.Errorf("failed to scan expense share: %w", err)
		}
		if e, ok := byID[expenseID]; ok {
			e.Shares = append(e.Shares, share)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate expense shares: %w", err)
	}
	return nil
}
