package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/madrasa-erp/madrasa-erp/internal/auth"
	"github.com/madrasa-erp/madrasa-erp/internal/departments"
	"github.com/madrasa-erp/madrasa-erp/internal/observability"
	"github.com/madrasa-erp/madrasa-erp/internal/platform/httpx"
	"github.com/madrasa-erp/madrasa-erp/internal/rbac"
	"github.com/madrasa-erp/madrasa-erp/internal/roles"
	"github.com/madrasa-erp/madrasa-erp/internal/shared"
	"github.com/madrasa-erp/madrasa-erp/internal/users"
	"github.com/madrasa-erp/madrasa-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	CSRFManager        *shared.CSRFManager
	Store              *rbac.Store
	RBACMiddleware     rbac.Middleware
	AuthHandler        *auth.Handler
	RolesHandler       *roles.Handler
	PermissionsHandler *rbac.PermissionsHandler
	DepartmentsHandler *departments.Handler
	UsersHandler       *users.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Madrasa defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	// Probes stay outside sessions, CSRF and rate limiting.
	r.Group(func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
			body := map[string]any{"status": "ok"}
			if params.Store != nil {
				body["rbac_version"] = params.Store.Snapshot().Version()
			}
			httpx.JSON(w, http.StatusOK, body)
		})
		if params.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
		}
	})

	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:         params.Logger,
			Config:         params.Config,
			SessionManager: params.SessionManager,
			CSRFManager:    params.CSRFManager,
			Metrics:        params.Metrics,
		}) {
			r.Use(mw)
		}
		r.Use(chimw.Logger)
		r.Use(params.RBACMiddleware.Bind)

		r.Route("/auth", params.AuthHandler.MountRoutes)
		if params.RolesHandler != nil {
			r.Route("/roles", params.RolesHandler.MountRoutes)
		}
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
		if params.DepartmentsHandler != nil {
			r.Route("/departments", params.DepartmentsHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Group(func(r chi.Router) {
				r.Use(params.RBACMiddleware.RequireAny(shared.PermViewLogs, shared.PermSystemMaintenance))
				r.Route("/jobs", params.JobHandler.MountRoutes)
			})
		}
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no route for "+req.URL.Path)
	})
	return r
}
