package server

import (
	"errors"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/cbam/internal/auth/domain"
	obscontext "github.com/smallbiznis/cbam/internal/observability/context"
	obslogger "github.com/smallbiznis/cbam/internal/observability/logger"
	"github.com/smallbiznis/cbam/internal/ratelimit"
	"go.uber.org/zap"
)

const contextIdentityKey = "identity"

// AuthRequired resolves the session cookie into an identity.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.cookies.Session.Read(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		identity, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextIdentityKey, identity)
		c.Request = c.Request.WithContext(obscontext.WithUserID(c.Request.Context(), identity.User.ID.String()))
		c.Next()
	}
}

func identityFrom(c *gin.Context) (*authdomain.Identity, bool) {
	v, ok := c.Get(contextIdentityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*authdomain.Identity)
	return identity, ok && identity != nil
}

// RateLimitAuth throttles credential attempts per client address. A failing
// limiter lets the request through.
func (s *Server) RateLimitAuth(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.authLimiter == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		wait, err := s.authLimiter.Allow(ctx, action, c.ClientIP())
		if errors.Is(err, ratelimit.ErrRateLimited) {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			AbortWithError(c, err)
			return
		}
		if err != nil {
			obslogger.FromContext(ctx).Warn("auth rate limit check failed", zap.String("action", action), zap.Error(err))
		}
		c.Next()
	}
}
