package queue

import (
	"encoding/json"
	"errors"
	"time"
)

// RecalculateMessage asks a worker to rebuild one group's settlements.
// It carries only the group ID; the worker reads current expenses itself.
type RecalculateMessage struct {
	GroupID   string    `json:"group_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecalculateMessage creates a message stamped with the current time.
func NewRecalculateMessage(groupID, reason string) *RecalculateMessage {
	return &RecalculateMessage{
		GroupID:   groupID,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecalculateMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecalculateMessageFromJSON decodes a message and rejects one without a group.
func RecalculateMessageFromJSON(data []byte) (*RecalculateMessage, error) {
	var msg RecalculateMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.GroupID == "" {
		return nil, errors.New("message has no group_id")
	}
	return &msg, nil
}
