package cookie

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestJarRoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jar := NewJar(SessionCookieName, true)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	jar.Set(c, "tok", time.Now().Add(time.Hour))

	resp := w.Result()
	cookies := resp.Cookies()
	if assert.Len(t, cookies, 1) {
		ck := cookies[0]
		assert.Equal(t, "_sid", ck.Name)
		assert.Equal(t, "tok", ck.Value)
		assert.True(t, ck.HttpOnly)
		assert.True(t, ck.Secure)
		assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "_sid", Value: "tok"})
	c2, _ := gin.CreateTestContext(httptest.NewRecorder())
	c2.Request = req
	value, ok := jar.Read(c2)
	assert.True(t, ok)
	assert.Equal(t, "tok", value)
}

func TestJarReadMissingOrBlank(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jar := NewJar(DeviceCookieName, false)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := jar.Read(c)
	assert.False(t, ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "_did", Value: " "})
	c.Request = req
	_, ok = jar.Read(c)
	assert.False(t, ok)
}
