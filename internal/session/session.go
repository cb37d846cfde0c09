// Package session keeps the signed-in state of the calculator and publishes
// every change to it.
package session

import (
	"context"
	"errors"
	"time"

	authdomain "github.com/smallbiznis/cbam/internal/auth/domain"
)

type EventType string

const (
	EventInitialSession EventType = "INITIAL_SESSION"
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
	EventUserUpdated    EventType = "USER_UPDATED"
)

var (
	// ErrServiceUnavailable means the identity provider could not be reached
	// or never finished initialising. It never means "signed out".
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrNotSignedIn        = errors.New("not_signed_in")
)

// UserSession is the signed-in user as seen by the calculator.
type UserSession struct {
	UserID    string
	Email     string
	Token     string
	ExpiresAt time.Time
	User      authdomain.Profile
}

func (s *UserSession) clone() *UserSession {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}

// Event is one push notification. Seq grows with every event a provider emits.
type Event struct {
	Type    EventType
	Session *UserSession
	Seq     uint64
}

// Provider is the identity backend contract.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*UserSession, error)
	SignIn(ctx context.Context, email, password string) (*UserSession, error)
	SignOut(ctx context.Context) error
	CurrentSession(ctx context.Context) (*UserSession, error)
	CurrentUser(ctx context.Context) (*authdomain.Profile, error)
	Subscribe(handler func(Event)) (cancel func())
}
