package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
}

type SessionRepository interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	UpdateLastSeen(ctx context.Context, sessionID snowflake.ID, lastSeen time.Time) error
	RevokeSession(ctx context.Context, sessionID snowflake.ID, revokedAt time.Time) error
	// RotateSession revokes the old session and stores next in one transaction.
	RotateSession(ctx context.Context, oldID snowflake.ID, revokedAt time.Time, next *Session) error
	// DeleteStaleSessions removes up to limit sessions that expired or were
	// revoked before cutoff and returns how many went.
	DeleteStaleSessions(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}
