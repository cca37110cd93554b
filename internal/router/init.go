package router

import (
	"github.com/oksasatya/go-ddd-identity/internal/container"
	handlers "github.com/oksasatya/go-ddd-identity/internal/interface/http"
	"github.com/oksasatya/go-ddd-identity/internal/router/modules"
)

// InitModules builds the handlers from c and registers every module.
// Call once during startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) {
	authHandler := handlers.NewAuthHandler(c.Auth, c.Cookies, c.Logger)
	adminHandler := handlers.NewAdminHandler(c.Auth, c.Admin, c.Cookies, c.Logger)

	var db modules.Pinger
	if c.PGPool != nil {
		db = c.PGPool
	}
	r.Add(modules.NewHealthModule(db))
	r.Add(modules.NewAuthModule(authHandler, c.Auth.DecodeSession))
	r.Add(modules.NewAdminModule(adminHandler, c.Auth.DecodeAdminSession, c.Admin, c.Logger))
}
