package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

const settlementColumns = `id, group_id, from_user_id, to_user_id, amount, paid, created_at`

// ReplaceSettlements swaps the group's settlement set inside one transaction.
// Readers see either the old set or the new one, never an empty gap.
func (s *SQLiteStore) ReplaceSettlements(ctx context.Context, groupID string, settlements []*models.Settlement) ([]*models.Settlement, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireGroup(ctx, tx, groupID); err != nil {
		return nil, err
	}
	if err := writeSettlements(ctx, tx, groupID, settlements); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return settlements, nil
}

// RecalculateSettlements runs plan against a snapshot read in the same
// immediate transaction that writes its result.
func (s *SQLiteStore) RecalculateSettlements(ctx context.Context, groupID string, plan storage.SettlementPlan) ([]*models.Settlement, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	group, err := getGroup(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	expenses, err := listExpensesByGroup(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	previous, err := listSettlementsByGroup(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}

	next, err := plan(ctx, &storage.LedgerSnapshot{
		Group:    group,
		Expenses: expenses,
		Previous: previous,
		Users: func(ctx context.Context, ids []string) (map[string]*models.User, error) {
			return getUsersByIDs(ctx, tx, ids)
		},
	})
	if err != nil {
		return nil, err
	}

	if err := writeSettlements(ctx, tx, groupID, next); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return next, nil
}

// writeSettlements deletes the group's settlements and inserts the given set
// in order.
func writeSettlements(ctx context.Context, tx *sql.Tx, groupID string, settlements []*models.Settlement) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM settlements WHERE group_id = ?", groupID); err != nil {
		return fmt.Errorf("failed to delete settlements: %w", err)
	}

	now := time.Now().Unix()
	for i, settlement := range settlements {
		if settlement.ID == "" {
			settlement.ID = uuid.New().String()
		}
		if settlement.CreatedAt == 0 {
			settlement.CreatedAt = now
		}
		settlement.GroupID = groupID

		_, err := tx.ExecContext(ctx,
			`INSERT INTO settlements (`+settlementColumns+`, position) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			settlement.ID, settlement.GroupID, settlement.FromUserID, settlement.ToUserID,
			settlement.Amount, settlement.Paid, settlement.CreatedAt, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert settlement: %w", err)
		}
	}
	return nil
}

// GetSettlement retrieves a settlement by ID.
func (s *SQLiteStore) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	settlement := &models.Settlement{}
	err := s.db.QueryRowContext(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE id = ?`,
		settlementID,
	).Scan(&settlement.ID, &settlement.GroupID, &settlement.FromUserID, &settlement.ToUserID,
		&settlement.Amount, &settlement.Paid, &settlement.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return settlement, nil
}

// ListSettlementsByGroup retrieves all settlements for a group.
func (s *SQLiteStore) ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error) {
	return listSettlementsByGroup(ctx, s.db, groupID)
}

func listSettlementsByGroup(ctx context.Context, q queryer, groupID string) ([]*models.Settlement, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE group_id = ? ORDER BY position`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements by group: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		settlement := &models.Settlement{}
		if err := rows.Scan(&settlement.ID, &settlement.GroupID, &settlement.FromUserID, &settlement.ToUserID,
			&settlement.Amount, &settlement.Paid, &settlement.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, settlement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}
	return settlements, nil
}

// MarkSettlementPaid flags a settlement as paid.
func (s *SQLiteStore) MarkSettlementPaid(ctx context.Context, settlementID string) (*models.Settlement, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE settlements SET paid = 1 WHERE id = ?", settlementID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark settlement paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to mark settlement paid: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
	}
	return s.GetSettlement(ctx, settlementID)
}
