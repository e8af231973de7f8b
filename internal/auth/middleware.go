package auth

import (
	"strings"

	"chatsock/backend/internal/apperr"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

const sessionKey = "session"

// Session is the per-request identity. UserID is zero for anonymous requests.
type Session struct {
	UserID int64
	Claims jwt.MapClaims
}

func (s Session) Authenticated() bool { return s.UserID != 0 }

// Middleware decodes the token in header. A missing header yields an
// anonymous session; a bad token or one without user_id aborts the request
// with the error recorded on the context.
func Middleware(v *Verifier, header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(header))
		if token == "" {
			c.Set(sessionKey, Session{})
			c.Next()
			return
		}

		claims, err := v.Verify(token)
		if err != nil {
			_ = c.Error(apperr.InvalidToken(err))
			c.Abort()
			return
		}
		userID, ok := UserID(claims)
		if !ok {
			_ = c.Error(apperr.IncorrectToken())
			c.Abort()
			return
		}

		c.Set(sessionKey, Session{UserID: userID, Claims: claims})
		c.Next()
	}
}

// RequireUser rejects anonymous requests.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !SessionFrom(c).Authenticated() {
			_ = c.Error(apperr.Unauthenticated())
			c.Abort()
			return
		}
		c.Next()
	}
}

// SessionFrom returns the request session, anonymous if none was set.
func SessionFrom(c *gin.Context) Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(Session); ok {
			return s
		}
	}
	return Session{}
}
