package rbac

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Permission represents an atomic capability. Only ID takes part in
// resolution; the remaining fields are display metadata.
type Permission struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Action      string    `json:"action"`
	Resource    string    `json:"resource"`
	CreatedAt   time.Time `json:"created_date"`
	UpdatedAt   time.Time `json:"updated_date"`
}

// Role represents a named bundle of permissions that may inherit from other roles.
type Role struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Color        string    `json:"color"`
	Permissions  []string  `json:"permissions"`
	InheritsFrom []string  `json:"inheritsFrom"`
	IsRootRole   bool      `json:"isRootRole"`
	Departments  []string  `json:"departments"`
	CreatedAt    time.Time `json:"created_date"`
	UpdatedAt    time.Time `json:"updated_date"`
}

// Department is an organisational unit that can be gated by role.
type Department struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Color        string    `json:"color"`
	RolesAllowed []string  `json:"rolesAllowed"`
	CreatedAt    time.Time `json:"created_date"`
	UpdatedAt    time.Time `json:"updated_date"`
}

func (p Permission) normalized() Permission {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		p.Name = labelFromID(p.ID)
	}
	p.Description = strings.TrimSpace(p.Description)
	p.Category = strings.TrimSpace(p.Category)
	p.Action = strings.TrimSpace(p.Action)
	p.Resource = strings.TrimSpace(p.Resource)
	return p
}

func (r Role) normalized() Role {
	r.ID = strings.TrimSpace(r.ID)
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.Color = strings.TrimSpace(r.Color)
	r.Permissions = normalizeIDs(r.Permissions)
	r.InheritsFrom = normalizeIDs(r.InheritsFrom)
	r.Departments = normalizeIDs(r.Departments)
	return r
}

func (r Role) clone() Role {
	r.Permissions = slices.Clone(r.Permissions)
	r.InheritsFrom = slices.Clone(r.InheritsFrom)
	r.Departments = slices.Clone(r.Departments)
	return r
}

func (d Department) normalized() Department {
	d.ID = strings.TrimSpace(d.ID)
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)
	d.Color = strings.TrimSpace(d.Color)
	d.RolesAllowed = normalizeIDs(d.RolesAllowed)
	return d
}

func (d Department) clone() Department {
	d.RolesAllowed = slices.Clone(d.RolesAllowed)
	return d
}

// normalizeIDs trims, drops blanks and collapses duplicates while keeping
// first-seen order. The result is never nil.
func normalizeIDs(ids []string) []string {
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

func removeID(ids []string, target string) ([]string, bool) {
	idx := slices.Index(ids, target)
	if idx < 0 {
		return ids, false
	}
	return slices.Delete(slices.Clone(ids), idx, idx+1), true
}

// labelFromID turns "view_students" into "View Students".
func labelFromID(id string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(id))
	if len(words) == 0 {
		return ""
	}
	return cases.Title(language.English).String(strings.Join(words, " "))
}
