// Package domain contains core types for the auth service.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// DefaultCompanyName is shown for accounts without a company.
const DefaultCompanyName = "Independent Exporter"

// User represents a local exporter account.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	Email        string       `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash string       `gorm:"column:password_hash;type:text;not null"`
	DisplayName  string       `gorm:"column:display_name;type:text"`
	CompanyName  string       `gorm:"column:company_name;type:text"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Session represents a persisted login session. Only the token hash is stored.
type Session struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	UserID           snowflake.ID `gorm:"column:user_id;not null;index"`
	SessionTokenHash string       `gorm:"column:session_token_hash;type:text;not null;uniqueIndex"`
	UserAgent        string       `gorm:"column:user_agent;type:text"`
	IPAddress        string       `gorm:"column:ip_address;type:text"`
	ExpiresAt        time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt        *time.Time   `gorm:"column:revoked_at"`
	CreatedAt        time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	LastSeenAt       time.Time    `gorm:"column:last_seen_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }

// Profile is the presentation view of a user.
type Profile struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name"`
	CompanyName   string `json:"company_name"`
	AvatarInitial string `json:"avatar_initial"`
}

// Profile applies the display fallbacks: the email local part for the name
// and DefaultCompanyName for the company.
func (u User) Profile() Profile {
	name := strings.TrimSpace(u.DisplayName)
	if name == "" {
		name = EmailLocalPart(u.Email)
	}
	company := strings.TrimSpace(u.CompanyName)
	if company == "" {
		company = DefaultCompanyName
	}
	initial := ""
	for _, r := range name {
		initial = strings.ToUpper(string(r))
		break
	}
	return Profile{
		UserID:        u.ID.String(),
		Email:         u.Email,
		DisplayName:   name,
		CompanyName:   company,
		AvatarInitial: initial,
	}
}

// EmailLocalPart returns the part of an address before '@'.
func EmailLocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if strings.TrimSpace(local) == "" {
		return email
	}
	return strings.TrimSpace(local)
}
