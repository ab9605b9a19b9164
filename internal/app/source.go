package app

import (
	"context"
	"log/slog"

	"github.com/madrasa-erp/madrasa-erp/internal/platform/db"
	"github.com/madrasa-erp/madrasa-erp/internal/rbac"
)

// OpenRBACSource returns the role data source selected by RBAC_SOURCE and a
// function releasing its resources.
func OpenRBACSource(ctx context.Context, cfg *Config, logger *slog.Logger) (rbac.Source, func(), error) {
	if cfg == nil || cfg.RBACSource != SourcePostgres {
		return rbac.SeedSource(), func() {}, nil
	}
	pool, err := db.New(ctx, cfg.PGDSN, db.Config{MaxConns: 4})
	if err != nil {
		return nil, nil, err
	}
	if logger != nil {
		logger.Info("rbac source", slog.String("kind", SourcePostgres))
	}
	return rbac.NewRepository(pool), pool.Close, nil
}

// OpenStore loads the initial snapshot from the configured source.
func OpenStore(ctx context.Context, cfg *Config, logger *slog.Logger) (*rbac.Store, func(), error) {
	source, closeFn, err := OpenRBACSource(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	store, err := rbac.NewStore(ctx, source, logger)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return store, closeFn, nil
}
