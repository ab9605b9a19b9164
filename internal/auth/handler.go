package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/madrasa-erp/madrasa-erp/internal/platform/httpx"
	"github.com/madrasa-erp/madrasa-erp/internal/rbac"
	"github.com/madrasa-erp/madrasa-erp/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	store       *rbac.Store
	sessions    *shared.SessionManager
	csrfManager *shared.CSRFManager
	validator   *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, store *rbac.Store, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		service:     service,
		store:       store,
		sessions:    sessions,
		csrfManager: csrf,
		validator:   validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/csrf", h.handleCSRF)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
}

// handleLogin binds the session to the user's roles and departments.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.InvalidFields(w, httpx.ValidationErrors(err))
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.RespondError(w, errSessionMissing)
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Info("login rejected", slog.String("email", req.Email))
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
		return
	}

	sess.SetSubject(shared.Subject{UserID: user.ID, RoleIDs: user.RoleIDs, DepartmentIDs: user.DepartmentIDs})
	binder := rbac.NewBinder(h.store)
	binder.SetContext(user.RoleIDs, user.DepartmentIDs)
	token, _ := h.csrfManager.EnsureToken(r.Context(), sess)

	h.logger.Info("login", slog.String("user", user.ID), slog.Any("roles", user.RoleIDs))
	httpx.JSON(w, http.StatusOK, describe(user.ID, user.Email, binder, token))
}

// handleLogout destroys the session, returning the caller to the unbound state.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessions.Destroy(sess)
	}
	if binder := rbac.BinderFromContext(r.Context()); binder != nil {
		binder.Clear()
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCSRF issues the token anonymous clients must echo on POST /auth/login.
func (h *Handler) handleCSRF(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrfManager.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	binder := rbac.BinderFromContext(r.Context())
	sess := shared.SessionFromContext(r.Context())
	if !binder.Bound() || sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	token, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	httpx.JSON(w, http.StatusOK, describe(sess.User(), "", binder, token))
}

func describe(userID, email string, b *rbac.Binder, csrfToken string) Me {
	return Me{
		UserID:         userID,
		Email:          email,
		Roles:          b.RoleIDs(),
		Departments:    b.DepartmentIDs(),
		EffectiveRoles: b.EffectiveRoles(),
		Permissions:    b.Permissions(),
		CSRFToken:      csrfToken,
	}
}
