package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-identity/internal/application"
	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
	"github.com/oksasatya/go-ddd-identity/pkg/response"
)

const actorKey = "actor"

// AdminAuthorizer is satisfied by *application.AdminService.
type AdminAuthorizer interface {
	Authorize(ctx context.Context, sess *application.Session) (*entity.Account, error)
}

// RequireAdmin runs after Session and re-checks the RBAC gate against the
// stored account on every request. It sets actor in the Gin context.
func RequireAdmin(authz AdminAuthorizer, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := authz.Authorize(c.Request.Context(), CurrentSession(c))
		if err != nil {
			if errors.Is(err, application.ErrAccessDenied) {
				response.Error[any](c, http.StatusForbidden, "access denied", nil)
			} else {
				logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("admin authorization failed")
				response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
			}
			c.Abort()
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// CurrentActor returns the account set by RequireAdmin, or nil.
func CurrentActor(c *gin.Context) *entity.Account {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(*entity.Account); ok {
			return a
		}
	}
	return nil
}
