package rbac

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CreateRole adds a role. A blank id is replaced with a generated one.
func (s *Store) CreateRole(role Role) (Role, error) {
	const op = "create role"
	role = role.normalized()
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	var out Role
	err := s.update(op, func(next *Snapshot) error {
		if _, exists := next.graph.roles[role.ID]; exists {
			return invalid(op, ErrDuplicateID, role.ID)
		}
		now := s.now()
		role.CreatedAt, role.UpdatedAt = now, now
		next.graph.roles[role.ID] = role
		if err := next.checkRole(op, role); err != nil {
			return err
		}
		out = role.clone()
		return nil
	})
	return out, err
}

// UpdateRole replaces every mutable field of the role with the given id.
// The root flag cannot be cleared on the root role.
func (s *Store) UpdateRole(id string, role Role) (Role, error) {
	return s.modifyRole("update role", id, func(r *Role) error {
		r.Name = role.Name
		r.Description = role.Description
		r.Color = role.Color
		r.Permissions = role.Permissions
		r.InheritsFrom = role.InheritsFrom
		r.IsRootRole = role.IsRootRole
		r.Departments = role.Departments
		return nil
	})
}

// SetRolePermissions replaces the direct grants of a role.
func (s *Store) SetRolePermissions(roleID string, permissionIDs []string) (Role, error) {
	return s.modifyRole("set role permissions", roleID, func(r *Role) error {
		r.Permissions = permissionIDs
		return nil
	})
}

// GrantPermission adds a direct grant. Granting twice is a no-op.
func (s *Store) GrantPermission(roleID, permissionID string) (Role, error) {
	return s.modifyRole("grant permission", roleID, func(r *Role) error {
		r.Permissions = append(r.Permissions, permissionID)
		return nil
	})
}

// RevokePermission removes a direct grant if present.
func (s *Store) RevokePermission(roleID, permissionID string) (Role, error) {
	return s.modifyRole("revoke permission", roleID, func(r *Role) error {
		r.Permissions, _ = removeID(r.Permissions, permissionID)
		return nil
	})
}

// AddParent makes roleID inherit from parentID.
func (s *Store) AddParent(roleID, parentID string) (Role, error) {
	return s.modifyRole("add parent", roleID, func(r *Role) error {
		r.InheritsFrom = append(r.InheritsFrom, parentID)
		return nil
	})
}

// RemoveParent drops an inheritance edge if present.
func (s *Store) RemoveParent(roleID, parentID string) (Role, error) {
	return s.modifyRole("remove parent", roleID, func(r *Role) error {
		r.InheritsFrom, _ = removeID(r.InheritsFrom, parentID)
		return nil
	})
}

func (s *Store) modifyRole(op, id string, fn func(r *Role) error) (Role, error) {
	var out Role
	err := s.update(op, func(next *Snapshot) error {
		current, ok := next.graph.roles[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrRoleNotFound, id)
		}
		r := current.clone()
		if err := fn(&r); err != nil {
			return err
		}
		r = r.normalized()
		if current.IsRootRole && !r.IsRootRole {
			return invalid(op, ErrRootRoleProtected, id)
		}
		r.ID = id
		r.CreatedAt = current.CreatedAt
		r.UpdatedAt = s.now()
		next.graph.roles[id] = r
		if err := next.checkRole(op, r); err != nil {
			return err
		}
		out = r.clone()
		return nil
	})
	return out, err
}

// DeleteRole removes a role and every reference to it from other roles
// and departments. The root role cannot be deleted.
func (s *Store) DeleteRole(id string) error {
	const op = "delete role"
	return s.update(op, func(next *Snapshot) error {
		r, ok := next.graph.roles[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrRoleNotFound, id)
		}
		if r.IsRootRole {
			return invalid(op, ErrRootRoleProtected, id)
		}
		delete(next.graph.roles, id)
		now := s.now()
		for rid, other := range next.graph.roles {
			if parents, changed := removeID(other.InheritsFrom, id); changed {
				other.InheritsFrom = parents
				other.UpdatedAt = now
				next.graph.roles[rid] = other
			}
		}
		for did, d := range next.departments {
			if allowed, changed := removeID(d.RolesAllowed, id); changed {
				d.RolesAllowed = allowed
				d.UpdatedAt = now
				next.departments[did] = d
			}
		}
		return nil
	})
}

// CreatePermission adds a permission to the catalog.
func (s *Store) CreatePermission(p Permission) (Permission, error) {
	const op = "create permission"
	p = p.normalized()
	if p.ID == "" {
		p.ID = uuid.NewString()
		if p.Name == "" {
			return Permission{}, invalid(op, ErrNameRequired, "")
		}
	}
	err := s.update(op, func(next *Snapshot) error {
		if next.catalog.Has(p.ID) {
			return invalid(op, ErrDuplicateID, p.ID)
		}
		now := s.now()
		p.CreatedAt, p.UpdatedAt = now, now
		next.catalog.permissions[p.ID] = p
		return nil
	})
	if err != nil {
		return Permission{}, err
	}
	return p, nil
}

// UpdatePermission replaces display metadata. The id cannot change.
func (s *Store) UpdatePermission(id string, p Permission) (Permission, error) {
	const op = "update permission"
	p = p.normalized()
	if p.ID != "" && p.ID != id {
		return Permission{}, invalid(op, ErrPermissionIDChanged, p.ID)
	}
	var out Permission
	err := s.update(op, func(next *Snapshot) error {
		current, ok := next.catalog.permissions[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrPermissionNotFound, id)
		}
		p.ID = id
		if p.Name == "" {
			p.Name = current.Name
		}
		p.CreatedAt = current.CreatedAt
		p.UpdatedAt = s.now()
		next.catalog.permissions[id] = p
		out = p
		return nil
	})
	return out, err
}

// DeletePermission removes a permission and revokes it from every role.
func (s *Store) DeletePermission(id string) error {
	const op = "delete permission"
	return s.update(op, func(next *Snapshot) error {
		if !next.catalog.Has(id) {
			return fmt.Errorf("%w: %s", ErrPermissionNotFound, id)
		}
		delete(next.catalog.permissions, id)
		now := s.now()
		for rid, r := range next.graph.roles {
			if perms, changed := removeID(r.Permissions, id); changed {
				r.Permissions = perms
				r.UpdatedAt = now
				next.graph.roles[rid] = r
			}
		}
		return nil
	})
}

// CreateDepartment adds a department.
func (s *Store) CreateDepartment(d Department) (Department, error) {
	const op = "create department"
	d = d.normalized()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	var out Department
	err := s.update(op, func(next *Snapshot) error {
		if _, exists := next.departments[d.ID]; exists {
			return invalid(op, ErrDuplicateID, d.ID)
		}
		if err := next.checkDepartment(op, d); err != nil {
			return err
		}
		now := s.now()
		d.CreatedAt, d.UpdatedAt = now, now
		next.departments[d.ID] = d
		out = d.clone()
		return nil
	})
	return out, err
}

// UpdateDepartment replaces every mutable field of a department.
func (s *Store) UpdateDepartment(id string, d Department) (Department, error) {
	const op = "update department"
	d = d.normalized()
	var out Department
	err := s.update(op, func(next *Snapshot) error {
		current, ok := next.departments[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrDepartmentNotFound, id)
		}
		d.ID = id
		if err := next.checkDepartment(op, d); err != nil {
			return err
		}
		d.CreatedAt = current.CreatedAt
		d.UpdatedAt = s.now()
		next.departments[id] = d
		out = d.clone()
		return nil
	})
	return out, err
}

// DeleteDepartment removes a department and unlinks it from every role.
func (s *Store) DeleteDepartment(id string) error {
	const op = "delete department"
	return s.update(op, func(next *Snapshot) error {
		if _, ok := next.departments[id]; !ok {
			return fmt.Errorf("%w: %s", ErrDepartmentNotFound, id)
		}
		delete(next.departments, id)
		now := s.now()
		for rid, r := range next.graph.roles {
			if depts, changed := removeID(r.Departments, id); changed {
				r.Departments = depts
				r.UpdatedAt = now
				next.graph.roles[rid] = r
			}
		}
		return nil
	})
}

// checkRole validates r against the snapshot it was just written into.
func (s *Snapshot) checkRole(op string, r Role) error {
	if r.Name == "" {
		return invalid(op, ErrNameRequired, r.ID)
	}
	for _, p := range r.Permissions {
		if !s.catalog.Has(p) {
			return invalid(op, ErrUnknownPermission, p)
		}
	}
	for _, d := range r.Departments {
		if _, ok := s.departments[d]; !ok {
			return invalid(op, ErrUnknownDepartment, d)
		}
	}
	if r.IsRootRole {
		for _, id := range s.graph.rootIDs() {
			if id != r.ID {
				return invalid(op, ErrRootRoleExists, id)
			}
		}
	}
	for _, parent := range r.InheritsFrom {
		if parent == r.ID {
			return invalid(op, ErrCyclicInheritance, r.ID+" -> "+r.ID)
		}
		if _, ok := s.graph.roles[parent]; !ok {
			return invalid(op, ErrUnknownRole, parent)
		}
		if path := s.graph.pathTo(parent, r.ID); path != nil {
			return invalid(op, ErrCyclicInheritance, r.ID+" -> "+strings.Join(path, " -> "))
		}
	}
	return nil
}

func (s *Snapshot) checkDepartment(op string, d Department) error {
	if d.Name == "" {
		return invalid(op, ErrNameRequired, d.ID)
	}
	for _, id := range d.RolesAllowed {
		if _, ok := s.graph.roles[id]; !ok {
			return invalid(op, ErrUnknownRole, id)
		}
	}
	return nil
}
