package app

import (
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/madrasa-erp/madrasa-erp/internal/auth"
	"github.com/madrasa-erp/madrasa-erp/internal/departments"
	"github.com/madrasa-erp/madrasa-erp/internal/observability"
	"github.com/madrasa-erp/madrasa-erp/internal/rbac"
	"github.com/madrasa-erp/madrasa-erp/internal/roles"
	"github.com/madrasa-erp/madrasa-erp/internal/shared"
	"github.com/madrasa-erp/madrasa-erp/internal/users"
	"github.com/madrasa-erp/madrasa-erp/jobs"
)

const sessionCookie = "madrasa_session"

// Deps are the long-lived resources the HTTP application is built from.
type Deps struct {
	Logger    *slog.Logger
	Config    *Config
	Store     *rbac.Store
	Redis     *redis.Client
	Metrics   *observability.Metrics
	Inspector jobs.QueueInspector
	// Users defaults to an in-memory repository.
	Users users.RepositoryPort
}

// Application is the assembled HTTP surface.
type Application struct {
	Handler http.Handler
	Users   *users.Service
}

// Build wires services and handlers around the shared RBAC store.
func Build(deps Deps) *Application {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = &Config{}
	}
	repo := deps.Users
	if repo == nil {
		repo = users.NewMemoryRepository()
	}

	sessionManager := shared.NewSessionManager(deps.Redis, sessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	userService := users.NewService(repo, deps.Store, logger)
	rbacMiddleware := rbac.Middleware{Store: deps.Store, Subjects: userService, Logger: logger}
	if deps.Metrics != nil {
		rbacMiddleware.Metrics = deps.Metrics
	}

	authHandler := auth.NewHandler(logger, auth.NewService(userService), deps.Store, sessionManager, csrfManager)
	rolesHandler := roles.NewHandler(logger, roles.NewService(deps.Store, userService, logger), rbacMiddleware)
	departmentsHandler := departments.NewHandler(logger, departments.NewService(deps.Store, userService, logger), rbacMiddleware)
	permissionsHandler := rbac.NewPermissionsHandler(logger, deps.Store, rbacMiddleware)
	usersHandler := users.NewHandler(logger, userService, rbacMiddleware)

	router := NewRouter(RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Store:              deps.Store,
		RBACMiddleware:     rbacMiddleware,
		AuthHandler:        authHandler,
		RolesHandler:       rolesHandler,
		PermissionsHandler: permissionsHandler,
		DepartmentsHandler: departmentsHandler,
		UsersHandler:       usersHandler,
		JobHandler:         jobs.NewHandler(deps.Inspector, logger),
		Metrics:            deps.Metrics,
	})
	return &Application{Handler: router, Users: userService}
}
