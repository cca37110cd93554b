package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-identity/internal/application"
	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
	"github.com/oksasatya/go-ddd-identity/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-identity/pkg/helpers"
	"github.com/oksasatya/go-ddd-identity/pkg/response"
)

type AdminHandler struct {
	Auth    *application.AuthService
	Admin   *application.AdminService
	Cookies *helpers.CookieManager
	Logger  *logrus.Logger
}

func NewAdminHandler(auth *application.AuthService, admin *application.AdminService, cookies *helpers.CookieManager, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{Auth: auth, Admin: admin, Cookies: cookies, Logger: logger}
}

// Login POST /api/admin/login
func (h *AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	sess, err := h.Auth.AdminLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.Set(c, helpers.AdminCookie, sess.Token, sess.ExpiresAt)
	response.Success(c, http.StatusOK, toSessionView(sess), "logged in", nil)
}

// Logout POST /api/admin/logout
func (h *AdminHandler) Logout(c *gin.Context) {
	h.Cookies.Clear(c, helpers.AdminCookie)
	response.Success[any](c, http.StatusOK, nil, "logged out", nil)
}

// Verify GET /api/admin/verify
func (h *AdminHandler) Verify(c *gin.Context) {
	response.Success(c, http.StatusOK, toAccountView(middleware.CurrentActor(c)), "authorized", nil)
}

type listQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// ListAccounts GET /api/admin/accounts
func (h *AdminHandler) ListAccounts(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	accounts, err := h.Admin.ListAccounts(c.Request.Context(), middleware.CurrentActor(c), q.Limit, q.Offset)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	out := make([]AccountView, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountView(a))
	}
	response.Success(c, http.StatusOK, out, "ok", gin.H{"limit": q.Limit, "offset": q.Offset, "count": len(out)})
}

type searchQuery struct {
	Q    string `form:"q" binding:"required,max=200"`
	Size int    `form:"size" binding:"omitempty,min=1,max=50"`
}

// SearchAccounts GET /api/admin/accounts/search
func (h *AdminHandler) SearchAccounts(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	hits, err := h.Admin.SearchAccounts(c.Request.Context(), middleware.CurrentActor(c), q.Q, q.Size)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, hits, "ok", gin.H{"count": len(hits)})
}

type createAccountRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,pwd"`
	Name     string `json:"name" binding:"max=100"`
	Role     string `json:"role" binding:"required,role"`
}

// CreateAccount POST /api/admin/accounts
func (h *AdminHandler) CreateAccount(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	role, err := entity.ParseRole(req.Role)
	if err != nil {
		writeError(c, h.Logger, application.NewValidationError("role", err.Error()))
		return
	}
	a, err := h.Admin.CreateAccount(c.Request.Context(), middleware.CurrentActor(c), application.CreateAccountInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     role,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toAccountView(a), "account created", nil)
}

type accountURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type updateRoleRequest struct {
	Role string `json:"role" binding:"required,role"`
}

// UpdateRole PATCH /api/admin/accounts/:id/role
func (h *AdminHandler) UpdateRole(c *gin.Context) {
	var uri accountURI
	if err := c.ShouldBindUri(&uri); err != nil {
		bindError(c, err)
		return
	}
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	role, err := entity.ParseRole(req.Role)
	if err != nil {
		writeError(c, h.Logger, application.NewValidationError("role", err.Error()))
		return
	}
	a, err := h.Admin.UpdateRole(c.Request.Context(), middleware.CurrentActor(c), uri.ID, role)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toAccountView(a), "role updated", nil)
}

// DeleteAccount DELETE /api/admin/accounts/:id
func (h *AdminHandler) DeleteAccount(c *gin.Context) {
	var uri accountURI
	if err := c.ShouldBindUri(&uri); err != nil {
		bindError(c, err)
		return
	}
	if err := h.Admin.DeleteAccount(c.Request.Context(), middleware.CurrentActor(c), uri.ID); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "account deleted", nil)
}
