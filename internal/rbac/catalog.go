package rbac

import (
	"maps"
	"slices"
	"strings"
)

// Catalog indexes the known permissions by id.
type Catalog struct {
	permissions map[string]Permission
}

// PermissionFilter narrows a catalog listing. Empty fields match everything.
type PermissionFilter struct {
	Category string
	Action   string
	Resource string
}

// NewCatalog builds a catalog, rejecting blank and duplicate ids.
func NewCatalog(perms ...Permission) (*Catalog, error) {
	c := &Catalog{permissions: make(map[string]Permission, len(perms))}
	for _, p := range perms {
		p = p.normalized()
		if p.ID == "" {
			return nil, invalid("load catalog", ErrNameRequired, "permission id")
		}
		if _, dup := c.permissions[p.ID]; dup {
			return nil, invalid("load catalog", ErrDuplicateID, p.ID)
		}
		c.permissions[p.ID] = p
	}
	return c, nil
}

// Lookup returns the permission with the given id.
func (c *Catalog) Lookup(id string) (Permission, bool) {
	if c == nil {
		return Permission{}, false
	}
	p, ok := c.permissions[id]
	return p, ok
}

// Has reports whether id is a known permission.
func (c *Catalog) Has(id string) bool {
	_, ok := c.Lookup(id)
	return ok
}

// Len returns the number of permissions.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.permissions)
}

// IDs returns every permission id in ascending order.
func (c *Catalog) IDs() []string {
	if c == nil {
		return []string{}
	}
	return slices.Sorted(maps.Keys(c.permissions))
}

// Permissions lists permissions matching filter, ordered by id.
func (c *Catalog) Permissions(filter PermissionFilter) []Permission {
	out := make([]Permission, 0, c.Len())
	for _, id := range c.IDs() {
		p := c.permissions[id]
		if !matches(p.Category, filter.Category) || !matches(p.Action, filter.Action) || !matches(p.Resource, filter.Resource) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matches(value, want string) bool {
	want = strings.TrimSpace(want)
	return want == "" || strings.EqualFold(value, want)
}

func (c *Catalog) clone() *Catalog {
	return &Catalog{permissions: maps.Clone(c.permissions)}
}
