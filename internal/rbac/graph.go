package rbac

import (
	"maps"
	"slices"
)

// Graph holds the role definitions and their inheritance edges.
// Edges point from a role to the parents it inherits from.
type Graph struct {
	roles map[string]Role
}

// NewGraph indexes roles by id, rejecting blank and duplicate ids.
// References are not validated here; see CheckIntegrity.
func NewGraph(roles ...Role) (*Graph, error) {
	g := &Graph{roles: make(map[string]Role, len(roles))}
	for _, r := range roles {
		r = r.normalized()
		if r.ID == "" {
			return nil, invalid("load roles", ErrNameRequired, "role id")
		}
		if _, dup := g.roles[r.ID]; dup {
			return nil, invalid("load roles", ErrDuplicateID, r.ID)
		}
		g.roles[r.ID] = r
	}
	return g, nil
}

// Role returns a copy of the role with the given id.
func (g *Graph) Role(id string) (Role, bool) {
	if g == nil {
		return Role{}, false
	}
	r, ok := g.roles[id]
	if !ok {
		return Role{}, false
	}
	return r.clone(), true
}

// Parents returns the direct parents of id. Unknown ids yield an empty list.
func (g *Graph) Parents(id string) []string {
	if g == nil {
		return []string{}
	}
	r, ok := g.roles[id]
	if !ok {
		return []string{}
	}
	return slices.Clone(r.InheritsFrom)
}

// Roles returns every role ordered by id.
func (g *Graph) Roles() []Role {
	if g == nil {
		return []Role{}
	}
	out := make([]Role, 0, len(g.roles))
	for _, id := range slices.Sorted(maps.Keys(g.roles)) {
		out = append(out, g.roles[id].clone())
	}
	return out
}

// Len returns the number of roles.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.roles)
}

// IsRoot reports whether id names a root role.
func (g *Graph) IsRoot(id string) bool {
	if g == nil {
		return false
	}
	return g.roles[id].IsRootRole
}

// RootRole returns the root role, if any. With several roots (only
// possible in externally loaded data) the lowest id wins.
func (g *Graph) RootRole() (Role, bool) {
	roots := g.rootIDs()
	if len(roots) == 0 {
		return Role{}, false
	}
	return g.Role(roots[0])
}

func (g *Graph) rootIDs() []string {
	if g == nil {
		return nil
	}
	var ids []string
	for id, r := range g.roles {
		if r.IsRootRole {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// pathTo returns a parent-edge path from "from" to "target", or nil.
func (g *Graph) pathTo(from, target string) []string {
	visited := make(map[string]struct{})
	var walk func(id string) []string
	walk = func(id string) []string {
		if id == target {
			return []string{id}
		}
		if _, seen := visited[id]; seen {
			return nil
		}
		visited[id] = struct{}{}
		r, ok := g.roles[id]
		if !ok {
			return nil
		}
		for _, parent := range r.InheritsFrom {
			if rest := walk(parent); rest != nil {
				return append([]string{id}, rest...)
			}
		}
		return nil
	}
	return walk(from)
}

func (g *Graph) clone() *Graph {
	return &Graph{roles: maps.Clone(g.roles)}
}
