package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-ddd-identity/config"
	"github.com/oksasatya/go-ddd-identity/internal/container"
	"github.com/oksasatya/go-ddd-identity/internal/domain/entity"
	"github.com/oksasatya/go-ddd-identity/internal/infrastructure/memory"
	"github.com/oksasatya/go-ddd-identity/pkg/helpers"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	helpers.PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

const rootEmail = "root@example.com"

type captured struct{ email, token string }

type captureNotifier struct {
	mu     sync.Mutex
	verify []captured
	reset  []captured
	fail   error
}

func (n *captureNotifier) SendVerificationEmail(_ context.Context, email, _, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.verify = append(n.verify, captured{email, token})
	return nil
}

func (n *captureNotifier) SendPasswordResetEmail(_ context.Context, email, _, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.reset = append(n.reset, captured{email, token})
	return nil
}

type server struct {
	engine   *gin.Engine
	c        *container.Container
	notifier *captureNotifier
}

func newServer(t *testing.T) *server {
	t.Helper()
	cfg := &config.Config{
		SessionSecret:   "test-secret",
		SessionTTL:      7 * 24 * time.Hour,
		AdminSessionTTL: 24 * time.Hour,
		VerifyTokenTTL:  24 * time.Hour,
		ResetTokenTTL:   time.Hour,
		AdminEmails:     []string{rootEmail, "ops@example.com"},
		CookieDomain:    "localhost",
	}
	n := &captureNotifier{}
	c := container.New(cfg, helpers.NewDiscardLogger(), memory.NewAccountRepository(), n, nil)
	return &server{engine: NewEngine(c), c: c, notifier: n}
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

func (s *server) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	assert.Equal(t, w.Code, env.Status)
	return w, env
}

func (s *server) seed(t *testing.T, email, password string, role entity.Role) *entity.Account {
	t.Helper()
	hash, err := helpers.HashPassword(password)
	require.NoError(t, err)
	a := &entity.Account{Email: email, Name: "Seed", PasswordHash: hash, Role: role, EmailVerified: true}
	require.NoError(t, s.c.Accounts.Create(context.Background(), a))
	return a
}

func cookieNamed(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, ck := range w.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func (s *server) adminLogin(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	w, _ := s.do(t, http.MethodPost, "/api/admin/login", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code)
	return cookieNamed(t, w, helpers.AdminCookie)
}

func TestScenario_Alice(t *testing.T) {
	s := newServer(t)
	creds := gin.H{"email": "alice@example.com", "password": "Passw0rd!"}

	w, env := s.do(t, http.MethodPost, "/api/auth/register", gin.H{"email": "alice@example.com", "password": "Passw0rd!", "name": "Alice"})
	require.Equal(t, http.StatusCreated, w.Code)
	var acct map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &acct))
	assert.Equal(t, false, acct["email_verified"])
	assert.NotContains(t, acct, "password_hash")

	w, env = s.do(t, http.MethodPost, "/api/auth/login", creds)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "email not verified", env.Message)

	require.Len(t, s.notifier.verify, 1)
	w, _ = s.do(t, http.MethodGet, "/api/auth/verify-email?token="+s.notifier.verify[0].token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/auth/verify-email?token="+s.notifier.verify[0].token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "token is single use")

	w, _ = s.do(t, http.MethodPost, "/api/auth/login", creds)
	require.Equal(t, http.StatusOK, w.Code)
	session := cookieNamed(t, w, helpers.SessionCookie)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, session.SameSite)
	assert.Equal(t, "/", session.Path)

	w, env = s.do(t, http.MethodGet, "/api/auth/verify", nil, session)
	require.Equal(t, http.StatusOK, w.Code)
	var claims map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &claims))
	assert.Equal(t, "alice@example.com", claims["email"])
	assert.Equal(t, "STUDENT", claims["role"])
}

func TestLogin_IdenticalRejections(t *testing.T) {
	s := newServer(t)
	s.seed(t, "bob@example.com", "Passw0rd!", entity.RoleStudent)

	w1, unknown := s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "nobody@example.com", "password": "Passw0rd!"})
	w2, wrong := s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "bob@example.com", "password": "Wrong-pass1"})

	assert.Equal(t, http.StatusUnauthorized, w1.Code)
	assert.Equal(t, w1.Code, w2.Code)
	assert.Equal(t, unknown, wrong)
	assert.Empty(t, w1.Result().Cookies())
}

func TestForgotPassword_IdenticalResponses(t *testing.T) {
	s := newServer(t)
	s.seed(t, "bob@example.com", "Passw0rd!", entity.RoleStudent)

	w1, unknown := s.do(t, http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "ghost@example.com"})
	w2, known := s.do(t, http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "bob@example.com"})

	assert.Equal(t, http.StatusOK, w1.Code)
	assert.Equal(t, w1.Code, w2.Code)
	assert.Equal(t, unknown, known)
	assert.Len(t, s.notifier.reset, 1)
}

func TestForgotPassword_DeliveryFailure(t *testing.T) {
	s := newServer(t)
	s.seed(t, "bob@example.com", "Passw0rd!", entity.RoleStudent)
	s.notifier.fail = assert.AnError

	w, env := s.do(t, http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "bob@example.com"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "failed to send email", env.Message)
	assert.False(t, env.Success)

	// unknown emails never reach the mailer
	w, _ = s.do(t, http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResetPassword_OverHTTP(t *testing.T) {
	s := newServer(t)
	s.seed(t, "bob@example.com", "OldPassw0rd!", entity.RoleStudent)

	s.do(t, http.MethodPost, "/api/auth/forgot-password", gin.H{"email": "bob@example.com"})
	require.Len(t, s.notifier.reset, 1)
	tok := s.notifier.reset[0].token

	w, env := s.do(t, http.MethodPost, "/api/auth/reset-password", gin.H{"token": tok, "new_password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, string(env.Error), "new_password")

	w, _ = s.do(t, http.MethodPost, "/api/auth/reset-password", gin.H{"token": tok, "new_password": "NewPassw0rd!"})
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/auth/reset-password", gin.H{"token": tok, "new_password": "NewPassw0rd!"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid or expired token", env.Message)

	w, _ = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "bob@example.com", "password": "NewPassw0rd!"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegister_ValidationAndDuplicate(t *testing.T) {
	s := newServer(t)

	w, env := s.do(t, http.MethodPost, "/api/auth/register", gin.H{"email": "not-an-email", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var fields map[string]string
	require.NoError(t, json.Unmarshal(env.Error, &fields))
	assert.Equal(t, "must be a valid email", fields["email"])
	assert.Contains(t, fields, "password")

	w, _ = s.do(t, http.MethodPost, "/api/auth/register", gin.H{"email": "dup@example.com", "password": "Passw0rd!"})
	require.Equal(t, http.StatusCreated, w.Code)
	w, _ = s.do(t, http.MethodPost, "/api/auth/register", gin.H{"email": "DUP@example.com", "password": "Passw0rd!"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegister_DeliveryFailureStillCreates(t *testing.T) {
	s := newServer(t)
	s.notifier.fail = assert.AnError

	w, env := s.do(t, http.MethodPost, "/api/auth/register", gin.H{"email": "eve@example.com", "password": "Passw0rd!"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)

	w, env = s.do(t, http.MethodPost, "/api/auth/resend-verification", gin.H{"email": "eve@example.com"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "failed to send email", env.Message)
}

func TestAdmin_NonAdminDeniedOnEveryRoute(t *testing.T) {
	s := newServer(t)
	student := s.seed(t, "stu@example.com", "Passw0rd!", entity.RoleStudent)
	s.seed(t, "ops@example.com", "Passw0rd!", entity.RoleStudent)

	w, _ := s.do(t, http.MethodPost, "/api/admin/login", gin.H{"email": "stu@example.com", "password": "Passw0rd!"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Result().Cookies())

	w, _ = s.do(t, http.MethodPost, "/api/admin/login", gin.H{"email": "ops@example.com", "password": "Passw0rd!"})
	assert.Equal(t, http.StatusForbidden, w.Code, "allow-listed email without admin role")

	// A valid general session presented as the admin cookie.
	w, _ = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "stu@example.com", "password": "Passw0rd!"})
	require.Equal(t, http.StatusOK, w.Code)
	general := &http.Cookie{Name: helpers.AdminCookie, Value: cookieNamed(t, w, helpers.SessionCookie).Value}

	// A correctly signed admin credential for an account the gate rejects.
	tok, _, err := s.c.JWT.Issue(student.ID, student.Email, "STUDENT", helpers.AudienceAdmin, time.Hour)
	require.NoError(t, err)
	forged := &http.Cookie{Name: helpers.AdminCookie, Value: tok}

	routes := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/api/admin/verify", nil},
		{http.MethodGet, "/api/admin/accounts", nil},
		{http.MethodGet, "/api/admin/accounts/search?q=stu", nil},
		{http.MethodPost, "/api/admin/accounts", gin.H{"email": "x@example.com", "password": "Passw0rd!", "role": "ADMIN"}},
		{http.MethodPatch, "/api/admin/accounts/" + student.ID + "/role", gin.H{"role": "SUPERADMIN"}},
		{http.MethodDelete, "/api/admin/accounts/" + student.ID, nil},
	}
	for _, rt := range routes {
		w, env := s.do(t, rt.method, rt.path, rt.body, forged)
		assert.Equal(t, http.StatusForbidden, w.Code, "%s %s", rt.method, rt.path)
		assert.Equal(t, "access denied", env.Message)

		w, _ = s.do(t, rt.method, rt.path, rt.body, general)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s with a general session", rt.method, rt.path)

		w, _ = s.do(t, rt.method, rt.path, rt.body)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s without cookie", rt.method, rt.path)
	}

	got, err := s.c.Accounts.GetByID(context.Background(), student.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleStudent, got.Role)
}

func TestAdmin_SelfDeleteRejected(t *testing.T) {
	s := newServer(t)
	root := s.seed(t, rootEmail, "Passw0rd!", entity.RoleSuperAdmin)
	ck := s.adminLogin(t, rootEmail, "Passw0rd!")

	w, env := s.do(t, http.MethodDelete, "/api/admin/accounts/"+root.ID, nil, ck)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "cannot delete own account", env.Message)

	_, err := s.c.Accounts.GetByID(context.Background(), root.ID)
	assert.NoError(t, err)
}

func TestAdmin_ManageAccounts(t *testing.T) {
	s := newServer(t)
	s.seed(t, rootEmail, "Passw0rd!", entity.RoleSuperAdmin)
	ck := s.adminLogin(t, rootEmail, "Passw0rd!")

	w, env := s.do(t, http.MethodGet, "/api/admin/verify", nil, ck)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/admin/accounts", gin.H{"email": "Mentor@Example.com", "password": "Passw0rd!", "name": "T", "role": "admin"}, ck)
	require.Equal(t, http.StatusCreated, w.Code)
	var created map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "mentor@example.com", created["email"])
	assert.Equal(t, "ADMIN", created["role"])
	assert.Equal(t, true, created["email_verified"])
	id := created["id"].(string)

	w, env = s.do(t, http.MethodPatch, "/api/admin/accounts/"+id+"/role", gin.H{"role": "owner"}, ck)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(t, http.MethodPatch, "/api/admin/accounts/"+id+"/role", gin.H{"role": "STUDENT"}, ck)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"role":"STUDENT"`)

	w, env = s.do(t, http.MethodGet, "/api/admin/accounts?limit=10", nil, ck)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 2)

	w, _ = s.do(t, http.MethodGet, "/api/admin/accounts/search?q=mentor", nil, ck)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/admin/accounts/"+id, nil, ck)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodDelete, "/api/admin/accounts/"+id, nil, ck)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/admin/accounts/not-a-uuid", nil, ck)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmin_SessionsAreNotInterchangeable(t *testing.T) {
	s := newServer(t)
	s.seed(t, rootEmail, "Passw0rd!", entity.RoleSuperAdmin)

	w, _ := s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": rootEmail, "password": "Passw0rd!"})
	require.Equal(t, http.StatusOK, w.Code)
	general := cookieNamed(t, w, helpers.SessionCookie)

	w, _ = s.do(t, http.MethodGet, "/api/admin/verify", nil, &http.Cookie{Name: helpers.AdminCookie, Value: general.Value})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "general session outlives the admin lifetime")

	admin := s.adminLogin(t, rootEmail, "Passw0rd!")
	assert.LessOrEqual(t, admin.MaxAge, int((24 * time.Hour).Seconds()))
	w, _ = s.do(t, http.MethodGet, "/api/auth/verify", nil, &http.Cookie{Name: helpers.SessionCookie, Value: admin.Value})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/admin/verify", nil, admin)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdmin_DemotedSessionLosesAccess(t *testing.T) {
	s := newServer(t)
	ops := s.seed(t, "ops@example.com", "Passw0rd!", entity.RoleAdmin)
	ck := s.adminLogin(t, "ops@example.com", "Passw0rd!")

	w, _ := s.do(t, http.MethodGet, "/api/admin/verify", nil, ck)
	require.Equal(t, http.StatusOK, w.Code)

	_, err := s.c.Accounts.UpdateRole(context.Background(), ops.ID, entity.RoleStudent)
	require.NoError(t, err)

	w, _ = s.do(t, http.MethodGet, "/api/admin/verify", nil, ck)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLogout_ClearsCookie(t *testing.T) {
	s := newServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ck := cookieNamed(t, w, helpers.SessionCookie)
	assert.Empty(t, ck.Value)
	assert.True(t, ck.MaxAge < 0)
}

func TestSession_TamperedCookie(t *testing.T) {
	s := newServer(t)
	s.seed(t, "bob@example.com", "Passw0rd!", entity.RoleStudent)

	w, _ := s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "bob@example.com", "password": "Passw0rd!"})
	ck := cookieNamed(t, w, helpers.SessionCookie)
	ck.Value = ck.Value[:len(ck.Value)-2]

	w, _ = s.do(t, http.MethodGet, "/api/auth/verify", nil, ck)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	w, _ := s.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
