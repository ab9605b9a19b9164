package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/madrasa-erp/madrasa-erp/internal/platform/httpx"
	"github.com/madrasa-erp/madrasa-erp/internal/rbac"
	"github.com/madrasa-erp/madrasa-erp/internal/shared"
)

// Handler manages user management endpoints.
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

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermViewUsers))
		r.Get("/", h.listUsers)
		r.Get("/{id}", h.getUser)
		r.Get("/{id}/permissions", h.permissions)
		r.Get("/{id}/effective-roles", h.effectiveRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermAddUsers))
		r.Post("/", h.createUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermAssignRoles))
		r.Put("/{id}/roles", h.setRoles)
		r.Post("/{id}/roles/{roleID}", h.assignRole)
		r.Delete("/{id}/roles/{roleID}", h.removeRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermEditUsers, shared.PermAssignRolesDepartment))
		r.Put("/{id}/departments", h.setDepartments)
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	result, err := h.service.ListUsers(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.GetUser(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, http.StatusOK, u, err)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.service.CreateUser(r.Context(), rbac.BinderFromContext(r.Context()), req)
	h.respond(w, http.StatusCreated, u, err)
}

func (h *Handler) setRoles(w http.ResponseWriter, r *http.Request) {
	var req SetRolesRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.service.SetRoles(r.Context(), rbac.BinderFromContext(r.Context()), chi.URLParam(r, "id"), req.Roles)
	h.respond(w, http.StatusOK, u, err)
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.AssignRole(r.Context(), rbac.BinderFromContext(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "roleID"))
	h.respond(w, http.StatusOK, u, err)
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.RemoveRole(r.Context(), rbac.BinderFromContext(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "roleID"))
	h.respond(w, http.StatusOK, u, err)
}

func (h *Handler) setDepartments(w http.ResponseWriter, r *http.Request) {
	var req SetDepartmentsRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.service.SetDepartments(r.Context(), chi.URLParam(r, "id"), req.Departments)
	h.respond(w, http.StatusOK, u, err)
}

func (h *Handler) permissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.Permissions(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, http.StatusOK, map[string][]string{"permissions": perms}, err)
}

func (h *Handler) effectiveRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.EffectiveRoles(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, http.StatusOK, map[string][]string{"roles": roles}, err)
}

func (h *Handler) respond(w http.ResponseWriter, status int, body any, err error) {
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, status, body)
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
