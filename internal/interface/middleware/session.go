package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-identity/internal/application"
	"github.com/oksasatya/go-ddd-identity/pkg/response"
)

const sessionKey = "session"

// SessionDecoder turns a cookie value into a session, e.g.
// (*application.AuthService).DecodeSession or DecodeAdminSession.
type SessionDecoder func(token string) (*application.Session, error)

// Session decodes the credential in cookieName. It sets session, userID,
// userEmail and userRole in the Gin context on success.
func Session(dec SessionDecoder, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			response.Error[any](c, http.StatusUnauthorized, "unauthorized", nil)
			c.Abort()
			return
		}
		sess, err := dec(token)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "unauthorized", nil)
			c.Abort()
			return
		}
		c.Set(sessionKey, sess)
		c.Set("userID", sess.AccountID)
		c.Set("userEmail", sess.Email)
		c.Set("userRole", sess.Role.String())
		c.Next()
	}
}

// CurrentSession returns the session set by Session, or nil.
func CurrentSession(c *gin.Context) *application.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*application.Session); ok {
			return s
		}
	}
	return nil
}
