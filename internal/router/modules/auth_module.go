package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-ddd-identity/internal/interface/http"
	"github.com/oksasatya/go-ddd-identity/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-identity/pkg/helpers"
)

type AuthModule struct {
	Handler  *handlers.AuthHandler
	Sessions middleware.SessionDecoder
}

func NewAuthModule(h *handlers.AuthHandler, sessions middleware.SessionDecoder) *AuthModule {
	return &AuthModule{Handler: h, Sessions: sessions}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	auth.POST("/register", m.Handler.Register)
	auth.POST("/login", m.Handler.Login)
	auth.POST("/logout", m.Handler.Logout)
	auth.POST("/forgot-password", m.Handler.ForgotPassword)
	auth.POST("/reset-password", m.Handler.ResetPassword)
	auth.GET("/verify-email", m.Handler.VerifyEmail)
	auth.POST("/verify-email", m.Handler.VerifyEmail)
	auth.POST("/resend-verification", m.Handler.ResendVerification)

	auth.GET("/verify", middleware.Session(m.Sessions, helpers.SessionCookie), m.Handler.Verify)
}
