package users

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madrasa-erp/madrasa-erp/internal/rbac"
	"github.com/madrasa-erp/madrasa-erp/internal/shared"
)

func newRouter(t *testing.T, svc *Service, store *rbac.Store, roleIDs ...string) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mw := rbac.Middleware{Store: store, Logger: logger}
	sm := shared.NewSessionManager(nil, "test_session", "secret", time.Hour, false)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sm.Load(req.Context(), req)
			require.NoError(t, err)
			sess.SetSubject(shared.Subject{UserID: "operator", RoleIDs: roleIDs})
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	r.Use(mw.Bind)
	r.Route("/users", NewHandler(logger, svc, mw).MountRoutes)
	return r
}

func send(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestUserEndpoints(t *testing.T) {
	svc, store := newService(t)
	h := newRouter(t, svc, store, rbac.RoleAdmin)

	rr := send(h, http.MethodPost, "/users", `{"email":"bad","name":"x","password":"short"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = send(h, http.MethodPost, "/users", `{"email":"t@madrasa.test","name":"Teacher","password":"s3cretpass","roles":["role_teacher"]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.NotContains(t, rr.Body.String(), "PasswordHash")

	rr = send(h, http.MethodGet, "/users/"+created.ID+"/effective-roles", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var roles map[string][]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &roles))
	assert.Equal(t, []string{rbac.RoleTeacher, rbac.RoleStudent}, roles["roles"])

	rr = send(h, http.MethodPost, "/users/"+created.ID+"/roles/role_parent", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = send(h, http.MethodGet, "/users/"+created.ID+"/permissions", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var perms map[string][]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &perms))
	assert.Contains(t, perms["permissions"], "view_students")

	rr = send(h, http.MethodPut, "/users/"+created.ID+"/roles", `{"roles":["role_ghost"]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = send(h, http.MethodPut, "/users/"+created.ID+"/departments", `{"departments":["dept_primary"]}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = send(h, http.MethodGet, "/users?page=1&per_page=10", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var page Page
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Pagination.Total)

	rr = send(h, http.MethodGet, "/users/nobody", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAssignRolesRequiresPermission(t *testing.T) {
	svc, store := newService(t)
	u, err := svc.CreateUser(context.Background(), svc.Actor(), CreateUserRequest{Email: "s@madrasa.test", Name: "S", Password: "s3cretpass"})
	require.NoError(t, err)

	h := newRouter(t, svc, store, rbac.RoleTeacher)
	rr := send(h, http.MethodPost, "/users/"+u.ID+"/roles/role_admin", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAdminCannotEscalateToRoot(t *testing.T) {
	svc, store := newService(t)
	self, err := svc.CreateUser(context.Background(), svc.Actor(), CreateUserRequest{Email: "a@madrasa.test", Name: "A", Password: "s3cretpass", Roles: []string{rbac.RoleAdmin}})
	require.NoError(t, err)

	h := newRouter(t, svc, store, rbac.RoleAdmin)
	rr := send(h, http.MethodPost, "/users/"+self.ID+"/roles/role_superadmin", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = send(h, http.MethodPut, "/users/"+self.ID+"/roles", `{"roles":["role_admin","role_superadmin"]}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = send(h, http.MethodPost, "/users", `{"email":"r@madrasa.test","name":"R","password":"s3cretpass","roles":["role_superadmin"]}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = send(h, http.MethodPost, "/users/"+self.ID+"/roles/role_teacher", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	sub, err := svc.ResolveSubject(context.Background(), self.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{rbac.RoleAdmin, rbac.RoleTeacher}, sub.RoleIDs)
}
