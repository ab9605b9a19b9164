package departments

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/madrasa-erp/madrasa-erp/internal/rbac"
)

// MembershipPruner removes a deleted department from every user.
type MembershipPruner interface {
	RemoveDepartmentFromAll(ctx context.Context, departmentID string) error
}

// Service handles department business logic.
type Service struct {
	store   *rbac.Store
	members MembershipPruner
	logger  *slog.Logger
}

// NewService builds Service instance.
func NewService(store *rbac.Store, members MembershipPruner, logger *slog.Logger) *Service {
	return &Service{store: store, members: members, logger: logger}
}

// ListDepartments returns every department ordered by id.
func (s *Service) ListDepartments(ctx context.Context) []rbac.Department {
	return s.store.Snapshot().Departments()
}

// GetDepartment fetches one department.
func (s *Service) GetDepartment(ctx context.Context, id string) (rbac.Department, error) {
	d, ok := s.store.Snapshot().Department(id)
	if !ok {
		return rbac.Department{}, fmt.Errorf("%w: %s", rbac.ErrDepartmentNotFound, id)
	}
	return d, nil
}

// CreateDepartment inserts a department.
func (s *Service) CreateDepartment(ctx context.Context, req DepartmentRequest) (rbac.Department, error) {
	d, err := s.store.CreateDepartment(req.toDepartment())
	if err != nil {
		return rbac.Department{}, err
	}
	s.logger.Info("department created", slog.String("department", d.ID))
	return d, nil
}

// UpdateDepartment replaces a department's fields.
func (s *Service) UpdateDepartment(ctx context.Context, id string, req DepartmentRequest) (rbac.Department, error) {
	return s.store.UpdateDepartment(id, req.toDepartment())
}

// DeleteDepartment removes a department from the graph, then from every user.
func (s *Service) DeleteDepartment(ctx context.Context, id string) error {
	if err := s.store.DeleteDepartment(id); err != nil {
		return err
	}
	if s.members != nil {
		if err := s.members.RemoveDepartmentFromAll(ctx, id); err != nil {
			return fmt.Errorf("departments: prune members: %w", err)
		}
	}
	s.logger.Info("department deleted", slog.String("department", id))
	return nil
}

func (r DepartmentRequest) toDepartment() rbac.Department {
	return rbac.Department{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		Color:        r.Color,
		RolesAllowed: r.RolesAllowed,
	}
}
