package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madrasa-erp/madrasa-erp/internal/shared"
)

type decisionCounter struct {
	granted, denied int
}

func (d *decisionCounter) ObserveDecision(_ string, granted bool) {
	if granted {
		d.granted++
		return
	}
	d.denied++
}

type subjectsFunc func(ctx context.Context, userID string) (shared.Subject, error)

func (f subjectsFunc) ResolveSubject(ctx context.Context, userID string) (shared.Subject, error) {
	return f(ctx, userID)
}

// withSubject injects a session carrying sub, or an anonymous one when sub is nil.
func withSubject(t *testing.T, sub *shared.Subject) func(http.Handler) http.Handler {
	t.Helper()
	sm := shared.NewSessionManager(nil, "test_session", "secret", time.Hour, false)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sm.Load(r.Context(), r)
			require.NoError(t, err)
			if sub != nil {
				sess.SetSubject(*sub)
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithSession(r.Context(), sess)))
		})
	}
}

func guardedRouter(t *testing.T, mw Middleware, sub *shared.Subject, guard func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(withSubject(t, sub))
	r.Use(mw.Bind)
	r.With(guard).Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRequireAnyAnonymousIsUnauthorized(t *testing.T) {
	counter := &decisionCounter{}
	mw := Middleware{Store: newSeedStore(t), Logger: testLogger(), Metrics: counter}

	rr := serve(guardedRouter(t, mw, nil, mw.RequireAny("view_roles")), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, 1, counter.denied)
}

func TestRequireAnyUsesInheritance(t *testing.T) {
	counter := &decisionCounter{}
	mw := Middleware{Store: newSeedStore(t), Logger: testLogger(), Metrics: counter}
	sub := &shared.Subject{UserID: "u1", RoleIDs: []string{RoleAdmin}}

	rr := serve(guardedRouter(t, mw, sub, mw.RequireAny("grade_exams")), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = serve(guardedRouter(t, mw, sub, mw.RequireAny("restore_data")), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	assert.Equal(t, 1, counter.granted)
	assert.Equal(t, 1, counter.denied)
}

func TestRequireAllAndRole(t *testing.T) {
	mw := Middleware{Store: newSeedStore(t), Logger: testLogger()}
	sub := &shared.Subject{UserID: "u1", RoleIDs: []string{RoleTeacher}}

	rr := serve(guardedRouter(t, mw, sub, mw.RequireAll("grade_exams", "view_schedule")), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = serve(guardedRouter(t, mw, sub, mw.RequireAll("grade_exams", "manage_fees")), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(guardedRouter(t, mw, sub, mw.RequireRole(RoleStudent)), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(guardedRouter(t, mw, sub, mw.RequireRole(RoleTeacher)), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestBindRefreshesSubject(t *testing.T) {
	mw := Middleware{
		Store:  newSeedStore(t),
		Logger: testLogger(),
		Subjects: subjectsFunc(func(_ context.Context, userID string) (shared.Subject, error) {
			if userID == "gone" {
				return shared.Subject{}, errors.New("not found")
			}
			return shared.Subject{UserID: userID, RoleIDs: []string{RoleSuperAdmin}}, nil
		}),
	}

	stale := &shared.Subject{UserID: "u1", RoleIDs: []string{RoleStudent}}
	rr := serve(guardedRouter(t, mw, stale, mw.RequireAny("restore_data")), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	gone := &shared.Subject{UserID: "gone", RoleIDs: []string{RoleSuperAdmin}}
	rr = serve(guardedRouter(t, mw, gone, mw.RequireAny("restore_data")), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
