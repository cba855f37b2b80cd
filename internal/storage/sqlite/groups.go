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

// CreateGroup persists a new group and its initial members.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (id, name, created_by, created_at) VALUES (?, ?, ?, ?)",
		group.ID, group.Name, group.CreatedBy, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	for i := range group.Members {
		member := &group.Members[i]
		if member.JoinedAt == 0 {
			member.JoinedAt = group.CreatedAt
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)",
			group.ID, member.UserID, member.JoinedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID, including its members.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return getGroup(ctx, s.db, groupID)
}

func getGroup(ctx context.Context, q queryer, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := q.QueryRowContext(ctx,
		"SELECT id, name, created_by, created_at FROM groups WHERE id = ?",
		groupID,
	).Scan(&group.ID, &group.Name, &group.CreatedBy, &group.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	if err := loadMembers(ctx, q, []*models.Group{group}); err != nil {
		return nil, err
	}
	return group, nil
}

// ListGroupsByUser retrieves every group the user belongs to, oldest first.
func (s *SQLiteStore) ListGroupsByUser(ctx context.Context, userID string) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.name, g.created_by, g.created_at
		 FROM groups g JOIN group_members m ON m.group_id = g.id
		 WHERE m.user_id = ?
		 ORDER BY g.created_at, g.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups by user: %w", err)
	}

	var groups []*models.Group
	for rows.Next() {
		group := &models.Group{}
		if err := rows.Scan(&group.ID, &group.Name, &group.CreatedBy, &group.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	if err := loadMembers(ctx, s.db, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// AddGroupMember adds a user to an existing group.
func (s *SQLiteStore) AddGroupMember(ctx context.Context, groupID, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireGroup(ctx, tx, groupID); err != nil {
		return err
	}

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT 1 FROM group_members WHERE group_id = ? AND user_id = ?",
		groupID, userID,
	).Scan(&exists)
	if err == nil {
		return fmt.Errorf("member %s of group %s: %w", userID, groupID, storage.ErrConflict)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check membership: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)",
		groupID, userID, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert group member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// loadMembers fills in Members for each group with a single query.
func loadMembers(ctx context.Context, q queryer, groups []*models.Group) error {
	if len(groups) == 0 {
		return nil
	}
	byID := make(map[string]*models.Group, len(groups))
	ids := make([]string, len(groups))
	for i, g := range groups {
		byID[g.ID] = g
		ids[i] = g.ID
	}

	rows, err := q.QueryContext(ctx,
		`SELECT group_id, user_id, joined_at FROM group_members
		 WHERE group_id IN (`+placeholders(len(ids))+`)
		 ORDER BY joined_at, user_id`,
		toArgs(ids)...,
	)
	if err != nil {
		return fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var groupID string
		var member models.GroupMember
		if err := rows.Scan(&groupID, &member.UserID, &member.JoinedAt); err != nil {
			return fmt.Errorf("failed to scan group member: %w", err)
		}
		if g, ok := byID[groupID]; ok {
			g.Members = append(g.Members, member)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate group members: %w", err)
	}
	return nil
}

// requireGroup returns storage.ErrNotFound unless the group exists.
func requireGroup(ctx context.Context, q queryer, groupID string) error {
	var exists int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", groupID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check group existence: %w", err)
	}
	return nil
}
