package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/cbam/internal/auth/domain"
)

type SignUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	CompanyName string `json:"company_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	CompanyName *string `json:"company_name"`
}

type sessionView struct {
	User      authdomain.Profile `json:"user"`
	ExpiresAt time.Time          `json:"expires_at"`
}

func (s *Server) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.authsvc.SignUp(c.Request.Context(), authdomain.SignUpRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		CompanyName: req.CompanyName,
		UserAgent:   c.Request.UserAgent(),
		IPAddress:   c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.cookies.Session.Set(c, result.RawToken, result.ExpiresAt)
	c.JSON(http.StatusCreated, gin.H{"data": sessionView{User: result.User.Profile(), ExpiresAt: result.ExpiresAt}})
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.cookies.Session.Set(c, result.RawToken, result.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{"data": sessionView{User: result.User.Profile(), ExpiresAt: result.ExpiresAt}})
}

// Logout always clears the cookie; signing out twice is not an error.
func (s *Server) Logout(c *gin.Context) {
	if token, ok := s.cookies.Session.Read(c); ok {
		if err := s.authsvc.Logout(c.Request.Context(), token); err != nil && !isRejectedSession(err) {
			AbortWithError(c, err)
			return
		}
	}

	s.cookies.Session.Clear(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) Refresh(c *gin.Context) {
	token, ok := s.cookies.Session.Read(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	result, err := s.authsvc.Refresh(c.Request.Context(), token)
	if err != nil {
		if isRejectedSession(err) {
			s.cookies.Session.Clear(c)
		}
		AbortWithError(c, err)
		return
	}

	s.cookies.Session.Set(c, result.RawToken, result.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{"data": sessionView{User: result.User.Profile(), ExpiresAt: result.ExpiresAt}})
}

// CurrentSession reports the signed-in user, or null data when signed out.
// Backend failures are errors, never a signed-out answer.
func (s *Server) CurrentSession(c *gin.Context) {
	token, ok := s.cookies.Session.Read(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"data": nil})
		return
	}

	identity, err := s.authsvc.Authenticate(c.Request.Context(), token)
	if err != nil {
		if isRejectedSession(err) {
			s.cookies.Session.Clear(c)
			c.JSON(http.StatusOK, gin.H{"data": nil})
			return
		}
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sessionView{User: identity.User.Profile(), ExpiresAt: identity.Session.ExpiresAt}})
}

func (s *Server) UpdateProfile(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.authsvc.UpdateProfile(c.Request.Context(), identity.User.ID, authdomain.UpdateProfileRequest{
		DisplayName: req.DisplayName,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user.Profile()})
}

func isRejectedSession(err error) bool {
	switch {
	case errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked),
		errors.Is(err, authdomain.ErrUserNotFound):
		return true
	default:
		return false
	}
}
