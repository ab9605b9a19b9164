package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/madrasa-erp/madrasa-erp/internal/rbac"
	"github.com/madrasa-erp/madrasa-erp/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	CreateUser(ctx context.Context, u User) (User, error)
	UpdateUser(ctx context.Context, u User) (User, error)
	RemoveRoleFromAll(ctx context.Context, roleID string) error
	RemoveDepartmentFromAll(ctx context.Context, departmentID string) error
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	store  *rbac.Store
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, store *rbac.Store, logger *slog.Logger) *Service {
	return &Service{repo: repo, store: store, logger: logger}
}

// ListUsers returns one page of users.
func (s *Service) ListUsers(ctx context.Context, page, perPage int) (Page, error) {
	all, err := s.repo.ListUsers(ctx)
	if err != nil {
		return Page{}, err
	}
	p := shared.NewPagination(page, perPage, len(all))
	start := (p.Page - 1) * p.PerPage
	if start > len(all) {
		start = len(all)
	}
	end := min(start+p.PerPage, len(all))
	return Page{Users: all[start:end], Pagination: p}, nil
}

// GetUser fetches a user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// FindByEmail fetches a user by email.
func (s *Service) FindByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.FindByEmail(ctx, email)
}

// CreateUser hashes the password and stores a new active account. The
// actor must be allowed to assign every requested role.
func (s *Service) CreateUser(ctx context.Context, actor *rbac.Binder, req CreateUserRequest) (User, error) {
	if err := s.checkAssignable(actor, req.Roles); err != nil {
		return User{}, err
	}
	if err := s.checkAssignments(req.Roles, req.Departments); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	u, err := s.repo.CreateUser(ctx, User{
		Email:         req.Email,
		Name:          strings.TrimSpace(req.Name),
		PasswordHash:  string(hash),
		IsActive:      true,
		RoleIDs:       dedupe(req.Roles),
		DepartmentIDs: dedupe(req.Departments),
	})
	if err != nil {
		return User{}, err
	}
	s.logger.Info("user created", slog.String("user", u.ID), slog.Any("roles", u.RoleIDs))
	return s.dropVanished(ctx, u)
}

// SetRoles replaces the user's role assignments. Every role added or
// removed must be assignable by the actor.
func (s *Service) SetRoles(ctx context.Context, actor *rbac.Binder, id string, roleIDs []string) (User, error) {
	if err := s.checkAssignments(roleIDs, nil); err != nil {
		return User{}, err
	}
	next := dedupe(roleIDs)
	return s.modify(ctx, id, func(u *User) error {
		if err := s.checkAssignable(actor, changedRoles(u.RoleIDs, next)); err != nil {
			return err
		}
		u.RoleIDs = next
		return nil
	})
}

// AssignRole adds one role assignment.
func (s *Service) AssignRole(ctx context.Context, actor *rbac.Binder, id, roleID string) (User, error) {
	if err := s.checkAssignments([]string{roleID}, nil); err != nil {
		return User{}, err
	}
	if err := s.checkAssignable(actor, []string{roleID}); err != nil {
		return User{}, err
	}
	return s.modify(ctx, id, func(u *User) error {
		u.RoleIDs = dedupe(append(u.RoleIDs, roleID))
		return nil
	})
}

// RemoveRole drops one role assignment. Taking a role away needs the same
// authority as granting it.
func (s *Service) RemoveRole(ctx context.Context, actor *rbac.Binder, id, roleID string) (User, error) {
	return s.modify(ctx, id, func(u *User) error {
		if !slices.Contains(u.RoleIDs, roleID) {
			return nil
		}
		if err := s.checkAssignable(actor, []string{roleID}); err != nil {
			return err
		}
		kept := u.RoleIDs[:0]
		for _, r := range u.RoleIDs {
			if r != roleID {
				kept = append(kept, r)
			}
		}
		u.RoleIDs = kept
		return nil
	})
}

// SetDepartments replaces the user's department memberships.
func (s *Service) SetDepartments(ctx context.Context, id string, departmentIDs []string) (User, error) {
	if err := s.checkAssignments(nil, departmentIDs); err != nil {
		return User{}, err
	}
	return s.modify(ctx, id, func(u *User) error {
		u.DepartmentIDs = dedupe(departmentIDs)
		return nil
	})
}

// Actor returns a Binder bound to the root role, for assignments made by
// the system itself such as the bootstrap administrator. Without a root
// role the Binder is unbound and denies every assignment.
func (s *Service) Actor() *rbac.Binder {
	b := rbac.NewBinder(s.store)
	if root, ok := s.store.Snapshot().Graph().RootRole(); ok {
		b.SetContext([]string{root.ID}, nil)
	}
	return b
}

// Permissions returns the user's effective permission ids.
func (s *Service) Permissions(ctx context.Context, id string) ([]string, error) {
	b, err := s.binder(ctx, id)
	if err != nil {
		return nil, err
	}
	return b.Permissions(), nil
}

// EffectiveRoles returns the user's roles plus every inherited ancestor.
func (s *Service) EffectiveRoles(ctx context.Context, id string) ([]string, error) {
	b, err := s.binder(ctx, id)
	if err != nil {
		return nil, err
	}
	return b.EffectiveRoles(), nil
}

// ResolveSubject returns current assignments for an active user.
func (s *Service) ResolveSubject(ctx context.Context, userID string) (shared.Subject, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return shared.Subject{}, err
	}
	if !u.IsActive {
		return shared.Subject{}, ErrInactive
	}
	return shared.Subject{UserID: u.ID, RoleIDs: u.RoleIDs, DepartmentIDs: u.DepartmentIDs}, nil
}

// RemoveRoleFromAll implements roles.AssignmentPruner.
func (s *Service) RemoveRoleFromAll(ctx context.Context, roleID string) error {
	return s.repo.RemoveRoleFromAll(ctx, roleID)
}

// RemoveDepartmentFromAll implements departments.MembershipPruner.
func (s *Service) RemoveDepartmentFromAll(ctx context.Context, departmentID string) error {
	return s.repo.RemoveDepartmentFromAll(ctx, departmentID)
}

// Bootstrap ensures an administrator holding the root role exists.
// It is a no-op when the email is already registered.
func (s *Service) Bootstrap(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil
	}
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	root, ok := s.store.Snapshot().Graph().RootRole()
	if !ok {
		return errors.New("users: bootstrap: no root role defined")
	}
	_, err := s.CreateUser(ctx, s.Actor(), CreateUserRequest{
		Email:    email,
		Name:     "Administrator",
		Password: password,
		Roles:    []string{root.ID},
	})
	return err
}

func (s *Service) modify(ctx context.Context, id string, fn func(u *User) error) (User, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err := fn(&u); err != nil {
		return User{}, err
	}
	updated, err := s.repo.UpdateUser(ctx, u)
	if err != nil {
		return User{}, err
	}
	s.logger.Info("user assignments updated", slog.String("user", id), slog.Any("roles", updated.RoleIDs), slog.Any("departments", updated.DepartmentIDs))
	return s.dropVanished(ctx, updated)
}

// dropVanished re-checks a freshly written user against the current
// snapshot. Role and department deletions publish before they prune user
// assignments, so a write that raced one of them is caught here and the
// dangling id is pruned the same way.
func (s *Service) dropVanished(ctx context.Context, u User) (User, error) {
	snap := s.store.Snapshot()
	pruned := false
	for _, id := range u.RoleIDs {
		if _, ok := snap.Graph().Role(id); !ok {
			if err := s.repo.RemoveRoleFromAll(ctx, id); err != nil {
				return User{}, err
			}
			pruned = true
		}
	}
	for _, id := range u.DepartmentIDs {
		if _, ok := snap.Department(id); !ok {
			if err := s.repo.RemoveDepartmentFromAll(ctx, id); err != nil {
				return User{}, err
			}
			pruned = true
		}
	}
	if !pruned {
		return u, nil
	}
	s.logger.Warn("user assignment raced a deletion", slog.String("user", u.ID))
	return s.repo.GetUser(ctx, u.ID)
}

func (s *Service) binder(ctx context.Context, id string) (*rbac.Binder, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	b := rbac.NewBinder(s.store)
	b.SetContext(u.RoleIDs, u.DepartmentIDs)
	return b, nil
}

func (s *Service) checkAssignments(roleIDs, departmentIDs []string) error {
	snap := s.store.Snapshot()
	for _, id := range roleIDs {
		if _, ok := snap.Graph().Role(id); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownRole, id)
		}
	}
	for _, id := range departmentIDs {
		if _, ok := snap.Department(id); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownDepartment, id)
		}
	}
	return nil
}

func (s *Service) checkAssignable(actor *rbac.Binder, roleIDs []string) error {
	for _, id := range roleIDs {
		if !actor.CanAssignRole(id) {
			return fmt.Errorf("%w: %s", ErrRoleNotAssignable, id)
		}
	}
	return nil
}

// changedRoles returns the ids present in exactly one of before and after.
func changedRoles(before, after []string) []string {
	var out []string
	for _, id := range after {
		if !slices.Contains(before, id) {
			out = append(out, id)
		}
	}
	for _, id := range before {
		if !slices.Contains(after, id) {
			out = append(out, id)
		}
	}
	return out
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
