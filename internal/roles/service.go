package roles

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/madrasa-erp/madrasa-erp/internal/platform/httpx"
	"github.com/madrasa-erp/madrasa-erp/internal/rbac"
)

// ErrRootInheritance rejects an inheritance edge to a root-reaching role
// made by a subject that is not itself root.
var ErrRootInheritance = fmt.Errorf("roles: only a root subject may inherit from a root role: %w", httpx.ErrForbidden)

// AssignmentPruner removes a deleted role from every subject assignment.
type AssignmentPruner interface {
	RemoveRoleFromAll(ctx context.Context, roleID string) error
}

// Service handles role business logic.
type Service struct {
	store       *rbac.Store
	assignments AssignmentPruner
	logger      *slog.Logger
}

// NewService builds Service instance.
func NewService(store *rbac.Store, assignments AssignmentPruner, logger *slog.Logger) *Service {
	return &Service{store: store, assignments: assignments, logger: logger}
}

// ListRoles returns all roles ordered by id.
func (s *Service) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	return s.store.Snapshot().Graph().Roles(), nil
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id string) (rbac.Role, error) {
	role, ok := s.store.Snapshot().Graph().Role(id)
	if !ok {
		return rbac.Role{}, fmt.Errorf("%w: %s", rbac.ErrRoleNotFound, id)
	}
	return role, nil
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, actor *rbac.Binder, req CreateRoleRequest) (rbac.Role, error) {
	if err := s.checkParents(actor, req.InheritsFrom); err != nil {
		return rbac.Role{}, err
	}
	role, err := s.store.CreateRole(rbac.Role{
		ID:           req.ID,
		Name:         req.Name,
		Description:  req.Description,
		Color:        req.Color,
		Permissions:  req.Permissions,
		InheritsFrom: req.InheritsFrom,
		IsRootRole:   req.IsRootRole,
		Departments:  req.Departments,
	})
	if err != nil {
		return rbac.Role{}, err
	}
	s.logger.Info("role created", slog.String("role", role.ID))
	return role, nil
}

// UpdateRole merges the supplied fields into the stored role.
func (s *Service) UpdateRole(ctx context.Context, actor *rbac.Binder, id string, req UpdateRoleRequest) (rbac.Role, error) {
	current, err := s.GetRole(ctx, id)
	if err != nil {
		return rbac.Role{}, err
	}
	if req.Name != nil {
		current.Name = *req.Name
	}
	if req.Description != nil {
		current.Description = *req.Description
	}
	if req.Color != nil {
		current.Color = *req.Color
	}
	if req.Permissions != nil {
		current.Permissions = *req.Permissions
	}
	if req.InheritsFrom != nil {
		if err := s.checkParents(actor, *req.InheritsFrom); err != nil {
			return rbac.Role{}, err
		}
		current.InheritsFrom = *req.InheritsFrom
	}
	if req.IsRootRole != nil {
		current.IsRootRole = *req.IsRootRole
	}
	if req.Departments != nil {
		current.Departments = *req.Departments
	}
	return s.store.UpdateRole(id, current)
}

// DeleteRole removes the role from the graph, then from every user.
func (s *Service) DeleteRole(ctx context.Context, id string) error {
	if err := s.store.DeleteRole(id); err != nil {
		return err
	}
	if s.assignments != nil {
		if err := s.assignments.RemoveRoleFromAll(ctx, id); err != nil {
			return fmt.Errorf("roles: prune assignments: %w", err)
		}
	}
	s.logger.Info("role deleted", slog.String("role", id))
	return nil
}

// EffectivePermissions resolves a role through its inheritance chain.
func (s *Service) EffectivePermissions(ctx context.Context, id string) (EffectivePermissions, error) {
	snap := s.store.Snapshot()
	if _, ok := snap.Graph().Role(id); !ok {
		return EffectivePermissions{}, fmt.Errorf("%w: %s", rbac.ErrRoleNotFound, id)
	}
	res := snap.Resolve(id)
	return EffectivePermissions{RoleID: id, Permissions: res.Permissions.Slice(), Universal: res.Universal}, nil
}

// Hierarchy returns the role and its ancestors.
func (s *Service) Hierarchy(ctx context.Context, id string) (Hierarchy, error) {
	snap := s.store.Snapshot()
	if _, ok := snap.Graph().Role(id); !ok {
		return Hierarchy{}, fmt.Errorf("%w: %s", rbac.ErrRoleNotFound, id)
	}
	all := snap.EffectiveRoles(id)
	return Hierarchy{RoleID: id, Ancestors: all[1:], Roles: all}, nil
}

// SetPermissions replaces the direct grants of a role.
func (s *Service) SetPermissions(ctx context.Context, id string, permissionIDs []string) (rbac.Role, error) {
	return s.store.SetRolePermissions(id, permissionIDs)
}

// GrantPermission adds one direct grant.
func (s *Service) GrantPermission(ctx context.Context, id, permissionID string) (rbac.Role, error) {
	return s.store.GrantPermission(id, permissionID)
}

// RevokePermission removes one direct grant.
func (s *Service) RevokePermission(ctx context.Context, id, permissionID string) (rbac.Role, error) {
	return s.store.RevokePermission(id, permissionID)
}

// AddParent adds an inheritance edge.
func (s *Service) AddParent(ctx context.Context, actor *rbac.Binder, id, parentID string) (rbac.Role, error) {
	if err := s.checkParents(actor, []string{parentID}); err != nil {
		return rbac.Role{}, err
	}
	return s.store.AddParent(id, parentID)
}

// RemoveParent drops an inheritance edge.
func (s *Service) RemoveParent(ctx context.Context, id, parentID string) (rbac.Role, error) {
	return s.store.RemoveParent(id, parentID)
}

// checkParents makes universal access reachable through inheritance only
// for subjects that already have it.
func (s *Service) checkParents(actor *rbac.Binder, parentIDs []string) error {
	if actor.IsUniversal() {
		return nil
	}
	snap := s.store.Snapshot()
	for _, id := range parentIDs {
		if snap.Resolve(id).Universal {
			return fmt.Errorf("%w: %s", ErrRootInheritance, id)
		}
	}
	return nil
}
