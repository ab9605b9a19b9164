package roles

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/madrasa-erp/madrasa-erp/internal/platform/httpx"
	"github.com/madrasa-erp/madrasa-erp/internal/rbac"
	"github.com/madrasa-erp/madrasa-erp/internal/shared"
)

// Handler manages role management endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), rbac: rbac}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermViewRoles))
		r.Get("/", h.listRoles)
		r.Get("/{id}", h.getRole)
		r.Get("/{id}/effective-permissions", h.effectivePermissions)
		r.Get("/{id}/hierarchy", h.hierarchy)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermAddRoles))
		r.Post("/", h.createRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermEditRoles))
		r.Put("/{id}", h.updateRole)
		r.Post("/{id}/parents/{parentID}", h.addParent)
		r.Delete("/{id}/parents/{parentID}", h.removeParent)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermDeleteRoles))
		r.Delete("/{id}", h.deleteRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermManagePermissions))
		r.Put("/{id}/permissions", h.setPermissions)
		r.Post("/{id}/permissions/{permissionID}", h.grantPermission)
		r.Delete("/{id}/permissions/{permissionID}", h.revokePermission)
	})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, roles)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.GetRole(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) effectivePermissions(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.EffectivePermissions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) hierarchy(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Hierarchy(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	role, err := h.service.CreateRole(r.Context(), rbac.BinderFromContext(r.Context()), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	var req UpdateRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	role, err := h.service.UpdateRole(r.Context(), rbac.BinderFromContext(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRole(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setPermissions(w http.ResponseWriter, r *http.Request) {
	var req SetPermissionsRequest
	if !h.decode(w, r, &req) {
		return
	}
	role, err := h.service.SetPermissions(r.Context(), chi.URLParam(r, "id"), req.Permissions)
	h.respondRole(w, role, err)
}

func (h *Handler) grantPermission(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.GrantPermission(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "permissionID"))
	h.respondRole(w, role, err)
}

func (h *Handler) revokePermission(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.RevokePermission(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "permissionID"))
	h.respondRole(w, role, err)
}

func (h *Handler) addParent(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.AddParent(r.Context(), rbac.BinderFromContext(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "parentID"))
	h.respondRole(w, role, err)
}

func (h *Handler) removeParent(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.RemoveParent(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "parentID"))
	h.respondRole(w, role, err)
}

func (h *Handler) respondRole(w http.ResponseWriter, role rbac.Role, err error) {
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.InvalidFields(w, httpx.ValidationErrors(err))
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	var merr *rbac.MutationError
	if !errors.As(err, &merr) && !errors.Is(err, httpx.ErrNotFound) {
		h.logger.Error("roles handler", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
