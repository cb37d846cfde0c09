package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	SignUp(ctx context.Context, req SignUpRequest) (*LoginResult, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Identity, error)
	Refresh(ctx context.Context, rawToken string) (*LoginResult, error)
	GetUser(ctx context.Context, id snowflake.ID) (*User, error)
	UpdateProfile(ctx context.Context, id snowflake.ID, req UpdateProfileRequest) (*User, error)
	PurgeStaleSessions(ctx context.Context, batchSize int) (int64, error)
}

type SignUpRequest struct {
	Email       string
	Password    string
	DisplayName string
	CompanyName string
	UserAgent   string
	IPAddress   string
}

type LoginRequest struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// UpdateProfileRequest changes only the non-nil fields.
type UpdateProfileRequest struct {
	DisplayName *string
	CompanyName *string
}

// LoginResult carries the raw token exactly once; it is never stored.
type LoginResult struct {
	User      *User
	Session   *Session
	RawToken  string
	ExpiresAt time.Time
}

// Identity is an authenticated session with its user.
type Identity struct {
	User    *User
	Session *Session
}
