package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yashrajoria/markup-backend/services/common/errors"
	"github.com/yashrajoria/markup-backend/services/markup-service/services"
	"go.uber.org/zap"
)

const (
	SessionCookieName = "markup_session"
	SessionHeader     = "X-Session-ID"
	sessionIDKey      = "session_id"
)

// CookieOptions controls how the session cookie is issued.
type CookieOptions struct {
	Secure bool
	MaxAge time.Duration
}

// Session resolves the caller's session from the cookie or the X-Session-ID
// header. Unknown or missing ids get a fresh session and a new cookie.
func Session(svc services.SessionService, opts CookieOptions, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := requestedSessionID(c)

		session, created, err := svc.Resolve(c.Request.Context(), id)
		if err != nil {
			logger.Error("Failed to resolve session", zap.String("session_id", id), zap.Error(err))
			apperrors.Respond(c, err)
			return
		}

		if created || id != session.ID {
			SetSessionCookie(c, session.ID, opts)
		}
		c.Set(sessionIDKey, session.ID)
		c.Header(SessionHeader, session.ID)
		c.Next()
	}
}

func requestedSessionID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(SessionHeader)); id != "" {
		return id
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

// SetSessionCookie issues the session cookie and stores id on the context.
func SetSessionCookie(c *gin.Context, id string, opts CookieOptions) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, id, int(opts.MaxAge.Seconds()), "/", "", opts.Secure, true)
	c.Set(sessionIDKey, id)
	c.Header(SessionHeader, id)
}

// SessionID returns the id resolved by Session.
func SessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}
