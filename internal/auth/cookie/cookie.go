// Package cookie reads and writes the HTTP cookies that carry the session
// token and the per-device draft id.
package cookie

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/cbam/internal/config"
)

const (
	SessionCookieName = "_sid"
	DeviceCookieName  = "_did"

	deviceCookieTTL = 365 * 24 * time.Hour
)

// Jar manages one named cookie. All cookies are HttpOnly with SameSite=Lax.
type Jar struct {
	name   string
	secure bool
}

func NewJar(name string, secure bool) *Jar {
	return &Jar{name: name, secure: secure}
}

// Manager holds the session and device jars.
type Manager struct {
	Session *Jar
	Device  *Jar
}

func NewManager(cfg config.Config) *Manager {
	return &Manager{
		Session: NewJar(SessionCookieName, cfg.AuthCookieSecure),
		Device:  NewJar(DeviceCookieName, cfg.AuthCookieSecure),
	}
}

func (j *Jar) Name() string {
	return j.name
}

func (j *Jar) Read(c *gin.Context) (string, bool) {
	value, err := c.Cookie(j.name)
	if err != nil {
		return "", false
	}
	if strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}

func (j *Jar) Set(c *gin.Context, value string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(j.name, value, maxAge, "/", "", j.secure, true)
}

// SetLongLived sets a cookie that outlives browser sessions, for device ids.
func (j *Jar) SetLongLived(c *gin.Context, value string) {
	j.Set(c, value, time.Now().Add(deviceCookieTTL))
}

func (j *Jar) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(j.name, "", -1, "/", "", j.secure, true)
}
