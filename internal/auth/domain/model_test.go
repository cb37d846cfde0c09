package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileFallbacks(t *testing.T) {
	p := User{ID: 7, Email: "priya@mill.in"}.Profile()
	assert.Equal(t, "priya", p.DisplayName)
	assert.Equal(t, DefaultCompanyName, p.CompanyName)
	assert.Equal(t, "P", p.AvatarInitial)
	assert.Equal(t, "7", p.UserID)

	p = User{Email: "x@y.z", DisplayName: "élodie", CompanyName: "Forge SA"}.Profile()
	assert.Equal(t, "É", p.AvatarInitial)
	assert.Equal(t, "Forge SA", p.CompanyName)
}

func TestEmailLocalPart(t *testing.T) {
	assert.Equal(t, "a.b", EmailLocalPart("a.b@example.com"))
	assert.Equal(t, "@example.com", EmailLocalPart("@example.com"))
	assert.Equal(t, "plain", EmailLocalPart("plain"))
}
