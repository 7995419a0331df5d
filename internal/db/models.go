package db

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered player.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// ScoreEvent is one immutable point award tied to a user and a completed
// round. Events are appended, never mutated or deleted.
type ScoreEvent struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Points    int
	CreatedAt time.Time
}

// Session is an authenticated web session row.
type Session struct {
	ID        string
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
}
