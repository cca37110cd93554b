package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	handlers "github.com/oksasatya/go-ddd-identity/internal/interface/http"
	"github.com/oksasatya/go-ddd-identity/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-identity/pkg/helpers"
)

type AdminModule struct {
	Handler  *handlers.AdminHandler
	Sessions middleware.SessionDecoder
	Authz    middleware.AdminAuthorizer
	Logger   *logrus.Logger
}

func NewAdminModule(h *handlers.AdminHandler, sessions middleware.SessionDecoder, authz middleware.AdminAuthorizer, logger *logrus.Logger) *AdminModule {
	return &AdminModule{Handler: h, Sessions: sessions, Authz: authz, Logger: logger}
}

func (m *AdminModule) Register(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.POST("/login", m.Handler.Login)
	admin.POST("/logout", m.Handler.Logout)

	// Only admin-audience credentials pass; every route below re-checks the
	// gate against the stored account.
	gated := admin.Group("")
	gated.Use(middleware.Session(m.Sessions, helpers.AdminCookie), middleware.RequireAdmin(m.Authz, m.Logger))
	{
		gated.GET("/verify", m.Handler.Verify)
		gated.GET("/accounts", m.Handler.ListAccounts)
		gated.GET("/accounts/search", m.Handler.SearchAccounts)
		gated.POST("/accounts", m.Handler.CreateAccount)
		gated.PATCH("/accounts/:id/role", m.Handler.UpdateRole)
		gated.DELETE("/accounts/:id", m.Handler.DeleteAccount)
	}
}
