package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/madrasa-erp/madrasa-erp/internal/platform/httpx"
	"github.com/madrasa-erp/madrasa-erp/internal/shared"
)

// PermissionsHandler manages the permission catalog over JSON.
type PermissionsHandler struct {
	logger   *slog.Logger
	store    *Store
	validate *validator.Validate
	rbac     Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, store *Store, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, store: store, validate: validator.New(), rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermViewRoles, shared.PermManagePermissions))
		r.Get("/", h.listPermissions)
		r.Get("/{id}", h.getPermission)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermManagePermissions))
		r.Post("/", h.createPermission)
		r.Put("/{id}", h.updatePermission)
		r.Delete("/{id}", h.deletePermission)
	})
}

type permissionRequest struct {
	ID          string `json:"id" validate:"omitempty,max=64"`
	Name        string `json:"name" validate:"max=120"`
	Description string `json:"description" validate:"max=500"`
	Category    string `json:"category" validate:"max=120"`
	Action      string `json:"action" validate:"omitempty,oneof=read create update delete manage assign"`
	Resource    string `json:"resource" validate:"max=64"`
}

func (p permissionRequest) toPermission() Permission {
	return Permission{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Action:      p.Action,
		Resource:    p.Resource,
	}
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	perms := h.store.Snapshot().Catalog().Permissions(PermissionFilter{
		Category: q.Get("category"),
		Action:   q.Get("action"),
		Resource: q.Get("resource"),
	})
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *PermissionsHandler) getPermission(w http.ResponseWriter, r *http.Request) {
	p, ok := h.store.Snapshot().Catalog().Lookup(chi.URLParam(r, "id"))
	if !ok {
		httpx.RespondError(w, ErrPermissionNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *PermissionsHandler) createPermission(w http.ResponseWriter, r *http.Request) {
	var req permissionRequest
	if !h.decode(w, r, &req) {
		return
	}
	created, err := h.store.CreatePermission(req.toPermission())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("permission created", slog.String("permission", created.ID))
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *PermissionsHandler) updatePermission(w http.ResponseWriter, r *http.Request) {
	var req permissionRequest
	if !h.decode(w, r, &req) {
		return
	}
	updated, err := h.store.UpdatePermission(chi.URLParam(r, "id"), req.toPermission())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *PermissionsHandler) deletePermission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeletePermission(id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("permission deleted", slog.String("permission", id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *PermissionsHandler) decode(w http.ResponseWriter, r *http.Request, req *permissionRequest) bool {
	if err := httpx.DecodeJSON(r, req); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.InvalidFields(w, httpx.ValidationErrors(err))
		return false
	}
	return true
}
