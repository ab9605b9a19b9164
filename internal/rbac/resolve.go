package rbac

import (
	"maps"
	"slices"
)

// PermissionSet is an unordered set of permission ids.
type PermissionSet map[string]struct{}

// Has reports membership.
func (p PermissionSet) Has(id string) bool {
	_, ok := p[id]
	return ok
}

// Len returns the set size.
func (p PermissionSet) Len() int { return len(p) }

// Slice returns the members in ascending order.
func (p PermissionSet) Slice() []string {
	return slices.Sorted(maps.Keys(p))
}

// Resolution is the outcome of walking one or more roles and their ancestors.
type Resolution struct {
	Permissions PermissionSet
	// Universal is set when a root role was reached. A universal
	// resolution grants every id, including ids absent from the catalog.
	Universal bool
}

// Grants reports whether the resolution allows permissionID.
func (r Resolution) Grants(permissionID string) bool {
	return r.Universal || r.Permissions.Has(permissionID)
}

// Resolve walks the given roles and everything they inherit from. Unknown
// ids contribute nothing and each role is expanded at most once, so cycles
// terminate.
func (s *Snapshot) Resolve(roleIDs ...string) Resolution {
	res := Resolution{Permissions: make(PermissionSet)}
	if s == nil {
		return res
	}
	visited := make(map[string]struct{})
	for _, id := range roleIDs {
		s.collect(id, visited, &res)
	}
	return res
}

func (s *Snapshot) collect(roleID string, visited map[string]struct{}, res *Resolution) {
	if _, seen := visited[roleID]; seen {
		return
	}
	visited[roleID] = struct{}{}

	role, ok := s.graph.roles[roleID]
	if !ok {
		return
	}
	if role.IsRootRole {
		res.Universal = true
		for id := range s.catalog.permissions {
			res.Permissions[id] = struct{}{}
		}
		return
	}
	for _, p := range role.Permissions {
		res.Permissions[p] = struct{}{}
	}
	for _, parent := range role.InheritsFrom {
		s.collect(parent, visited, res)
	}
}

// EffectivePermissions returns the permissions a single role grants,
// directly or through inheritance. A root role yields the whole catalog.
func (s *Snapshot) EffectivePermissions(roleID string) PermissionSet {
	return s.Resolve(roleID).Permissions
}

// RoleHasPermission reports whether roleID grants permissionID.
func (s *Snapshot) RoleHasPermission(roleID, permissionID string) bool {
	return s.Resolve(roleID).Grants(permissionID)
}

// EffectiveRoles returns the given role ids followed by every ancestor
// reachable through inheritsFrom, without duplicates. Given ids are kept
// even when unknown; ancestors are limited to roles that exist.
func (s *Snapshot) EffectiveRoles(roleIDs ...string) []string {
	out := make([]string, 0, len(roleIDs))
	seen := make(map[string]struct{})
	for _, id := range roleIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if s == nil {
		return out
	}

	expanded := make(map[string]struct{})
	var walk func(id string)
	walk = func(id string) {
		if _, done := expanded[id]; done {
			return
		}
		expanded[id] = struct{}{}
		role, ok := s.graph.roles[id]
		if !ok {
			return
		}
		for _, parent := range role.InheritsFrom {
			if _, exists := s.graph.roles[parent]; !exists {
				continue
			}
			if _, dup := seen[parent]; !dup {
				seen[parent] = struct{}{}
				out = append(out, parent)
			}
			walk(parent)
		}
	}
	for _, id := range roleIDs {
		walk(id)
	}
	return out
}
