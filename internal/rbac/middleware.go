package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/madrasa-erp/madrasa-erp/internal/platform/httpx"
	"github.com/madrasa-erp/madrasa-erp/internal/shared"
)

// SubjectResolver returns the current role and department assignments of a user.
type SubjectResolver interface {
	ResolveSubject(ctx context.Context, userID string) (shared.Subject, error)
}

// DecisionRecorder receives every authorization decision made by Middleware.
type DecisionRecorder interface {
	ObserveDecision(check string, granted bool)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Store *Store
	// Subjects, when set, refreshes assignments on every request instead
	// of trusting the roles captured in the session at login.
	Subjects SubjectResolver
	Logger   *slog.Logger
	Metrics  DecisionRecorder
}

// Bind attaches a Binder for the session's subject to the request context.
// Anonymous requests get an unbound Binder.
func (m Middleware) Bind(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		binder := NewBinder(m.Store)
		if sess := shared.SessionFromContext(r.Context()); sess != nil {
			sub := sess.Subject()
			if strings.TrimSpace(sub.UserID) != "" {
				if m.Subjects != nil {
					fresh, err := m.Subjects.ResolveSubject(r.Context(), sub.UserID)
					if err != nil {
						m.logDebug("rbac resolve subject", slog.String("user", sub.UserID), slog.Any("error", err))
						next.ServeHTTP(w, r.WithContext(WithBinder(r.Context(), binder)))
						return
					}
					sub = fresh
				}
				binder.SetContext(sub.RoleIDs, sub.DepartmentIDs)
			}
		}
		next.ServeHTTP(w, r.WithContext(WithBinder(r.Context(), binder)))
	})
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizeIDs(perms)
	return m.require("any", func(b *Binder) bool {
		return len(normalized) == 0 || b.HasAnyPermission(normalized...)
	})
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizeIDs(perms)
	return m.require("all", func(b *Binder) bool {
		return b.HasAllPermissions(normalized...)
	})
}

// RequireRole ensures one of the roles is directly assigned.
func (m Middleware) RequireRole(roleIDs ...string) func(http.Handler) http.Handler {
	normalized := normalizeIDs(roleIDs)
	return m.require("role", func(b *Binder) bool {
		return b.HasAnyRole(normalized...)
	})
}

func (m Middleware) require(check string, allowed func(*Binder) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			binder := BinderFromContext(r.Context())
			if !binder.Bound() {
				m.observe(check, false)
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if !allowed(binder) {
				m.observe(check, false)
				m.logDebug("rbac denied", slog.String("check", check), slog.String("path", r.URL.Path), slog.Any("roles", binder.RoleIDs()))
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			m.observe(check, true)
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) observe(check string, granted bool) {
	if m.Metrics != nil {
		m.Metrics.ObserveDecision(check, granted)
	}
}

func (m Middleware) logDebug(msg string, attrs ...any) {
	if m.Logger != nil {
		m.Logger.Debug(msg, attrs...)
	}
}
