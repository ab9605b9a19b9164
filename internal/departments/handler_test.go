package departments

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

type membersStub struct{ removed []string }

func (m *membersStub) RemoveDepartmentFromAll(_ context.Context, id string) error {
	m.removed = append(m.removed, id)
	return nil
}

func setup(t *testing.T, roleIDs ...string) (*rbac.Store, *membersStub, http.Handler) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := rbac.NewStore(context.Background(), rbac.SeedSource(), logger)
	require.NoError(t, err)

	members := &membersStub{}
	mw := rbac.Middleware{Store: store, Logger: logger}
	sm := shared.NewSessionManager(nil, "test_session", "secret", time.Hour, false)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sm.Load(req.Context(), req)
			require.NoError(t, err)
			sess.SetSubject(shared.Subject{UserID: "u1", RoleIDs: roleIDs})
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	r.Use(mw.Bind)
	r.Route("/departments", NewHandler(logger, NewService(store, members, logger), mw).MountRoutes)
	return store, members, r
}

func call(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestDepartmentCRUD(t *testing.T) {
	store, members, h := setup(t, rbac.RoleAdmin)

	rr := call(h, http.MethodGet, "/departments", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []rbac.Department
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list, 4)

	rr = call(h, http.MethodPost, "/departments", `{"id":"dept_hostel","name":"Hostel","rolesAllowed":["role_student"]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = call(h, http.MethodPost, "/departments", `{"name":"Ghost","rolesAllowed":["role_ghost"]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = call(h, http.MethodPut, "/departments/dept_hostel", `{"name":"Boarding","rolesAllowed":["role_student","role_teacher"]}`)
	require.Equal(t, http.StatusOK, rr.Code)
	d, _ := store.Snapshot().Department("dept_hostel")
	assert.Equal(t, []string{rbac.RoleStudent, rbac.RoleTeacher}, d.RolesAllowed)

	rr = call(h, http.MethodDelete, "/departments/dept_hostel", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, []string{"dept_hostel"}, members.removed)

	rr = call(h, http.MethodGet, "/departments/dept_hostel", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDepartmentRoutesGated(t *testing.T) {
	_, _, h := setup(t, rbac.RoleTeacher)
	assert.Equal(t, http.StatusForbidden, call(h, http.MethodGet, "/departments", "").Code)
}
