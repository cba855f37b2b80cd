package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Username is the unique handle shown to other group members.
	Username string

	// Email is the user's email address (unique). Used for login.
	Email string

	// Mobile is a contact phone number.
	Mobile string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// CreatedAt is the Unix timestamp when the user account was created.
	CreatedAt int64
}

// NewUser builds a user with a fresh ID and creation time.
func NewUser(username, email, mobile, passwordHash string) *User {
	return &User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		Mobile:       mobile,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().Unix(),
	}
}
