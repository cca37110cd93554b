package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-identity/internal/application"
	"github.com/oksasatya/go-ddd-identity/pkg/helpers"
	"github.com/oksasatya/go-ddd-identity/pkg/response"
	"github.com/oksasatya/go-ddd-identity/pkg/validation"
)

// bindError answers a request whose body or query failed to bind.
func bindError(c *gin.Context, err error) {
	response.Error[any](c, http.StatusBadRequest, "validation failed", validation.ToDetails(err))
}

// writeError maps application errors onto HTTP. Unexpected errors are logged
// and answered without detail.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	var ve *application.ValidationError
	var de *application.DeliveryError
	switch {
	case errors.As(err, &ve):
		response.Error[any](c, http.StatusBadRequest, "validation failed", ve.Fields)
	case errors.Is(err, application.ErrInvalidToken):
		response.Error[any](c, http.StatusBadRequest, application.ErrInvalidToken.Error(), nil)
	case errors.Is(err, application.ErrInvalidCredentials):
		response.Error[any](c, http.StatusUnauthorized, application.ErrInvalidCredentials.Error(), nil)
	case errors.Is(err, application.ErrEmailNotVerified):
		response.Error[any](c, http.StatusForbidden, application.ErrEmailNotVerified.Error(), nil)
	case errors.Is(err, application.ErrAccessDenied):
		response.Error[any](c, http.StatusForbidden, application.ErrAccessDenied.Error(), nil)
	case errors.Is(err, application.ErrSelfDelete):
		response.Error[any](c, http.StatusForbidden, application.ErrSelfDelete.Error(), nil)
	case errors.Is(err, application.ErrAlreadyExists):
		response.Error[any](c, http.StatusConflict, application.ErrAlreadyExists.Error(), nil)
	case errors.Is(err, application.ErrAccountNotFound):
		response.Error[any](c, http.StatusNotFound, application.ErrAccountNotFound.Error(), nil)
	case errors.As(err, &de):
		helpers.LogError(logger, "email delivery failed", err, logrus.Fields{"request_id": c.GetString("request_id")})
		response.Error[any](c, http.StatusInternalServerError, "failed to send email", nil)
	default:
		helpers.LogError(logger, "request failed", err, logrus.Fields{"request_id": c.GetString("request_id"), "path": c.FullPath()})
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
	}
}
