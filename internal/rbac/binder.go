package rbac

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// SnapshotReader hands out the snapshot current at call time.
type SnapshotReader interface {
	Snapshot() *Snapshot
}

// Binder holds the subject a set of authorization queries is answered for.
// An unbound Binder, and a nil *Binder, deny everything.
type Binder struct {
	source SnapshotReader

	mu            sync.RWMutex
	bound         bool
	roleIDs       []string
	departmentIDs []string
}

// NewBinder returns an unbound Binder reading from source.
func NewBinder(source SnapshotReader) *Binder {
	return &Binder{source: source}
}

// SetContext binds the subject. Nil lists are treated as empty.
func (b *Binder) SetContext(roleIDs, departmentIDs []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roleIDs = normalizeIDs(roleIDs)
	b.departmentIDs = normalizeIDs(departmentIDs)
	b.bound = true
}

// Clear returns the Binder to the unbound state.
func (b *Binder) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roleIDs = nil
	b.departmentIDs = nil
	b.bound = false
}

// Bound reports whether a subject is set.
func (b *Binder) Bound() bool {
	if b == nil {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bound
}

// RoleIDs returns the directly assigned roles of the bound subject.
func (b *Binder) RoleIDs() []string {
	_, roles, _, _ := b.view()
	return roles
}

// DepartmentIDs returns the departments of the bound subject.
func (b *Binder) DepartmentIDs() []string {
	_, _, depts, _ := b.view()
	return depts
}

func (b *Binder) view() (*Snapshot, []string, []string, bool) {
	if b == nil {
		return nil, []string{}, []string{}, false
	}
	b.mu.RLock()
	bound := b.bound
	roles := slices.Clone(b.roleIDs)
	depts := slices.Clone(b.departmentIDs)
	b.mu.RUnlock()
	if !bound {
		return nil, []string{}, []string{}, false
	}
	var snap *Snapshot
	if b.source != nil {
		snap = b.source.Snapshot()
	}
	return snap, roles, depts, true
}

func (b *Binder) resolve() (Resolution, bool) {
	snap, roles, _, bound := b.view()
	if !bound {
		return Resolution{Permissions: PermissionSet{}}, false
	}
	return snap.Resolve(roles...), true
}

// HasPermission reports whether the subject holds permissionID directly,
// through inheritance, or through a root role.
func (b *Binder) HasPermission(permissionID string) bool {
	res, bound := b.resolve()
	return bound && res.Grants(permissionID)
}

// HasAnyPermission reports whether at least one id is granted.
// An empty list is never satisfied.
func (b *Binder) HasAnyPermission(permissionIDs ...string) bool {
	res, bound := b.resolve()
	if !bound {
		return false
	}
	for _, id := range permissionIDs {
		if res.Grants(id) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every id is granted.
// An empty list is satisfied by any bound subject.
func (b *Binder) HasAllPermissions(permissionIDs ...string) bool {
	res, bound := b.resolve()
	if !bound {
		return false
	}
	for _, id := range permissionIDs {
		if !res.Grants(id) {
			return false
		}
	}
	return true
}

// HasRole reports direct assignment only; inherited roles do not count.
func (b *Binder) HasRole(roleID string) bool {
	_, roles, _, bound := b.view()
	return bound && slices.Contains(roles, roleID)
}

// HasAnyRole reports whether any id is directly assigned.
func (b *Binder) HasAnyRole(roleIDs ...string) bool {
	_, roles, _, bound := b.view()
	if !bound {
		return false
	}
	for _, id := range roleIDs {
		if slices.Contains(roles, id) {
			return true
		}
	}
	return false
}

// HasDepartmentAccess reports membership of departmentID. Subjects whose
// roles reach a root role have access to every department.
func (b *Binder) HasDepartmentAccess(departmentID string) bool {
	snap, roles, depts, bound := b.view()
	if !bound {
		return false
	}
	if snap.Resolve(roles...).Universal {
		return true
	}
	return slices.Contains(depts, departmentID)
}

// CanPerformAction reports whether the subject may apply action to
// resource. The pair is matched against the catalog's action and resource
// metadata and is granted when any matching permission is held. A non-empty
// departmentID must also pass HasDepartmentAccess. Root subjects bypass both
// checks; blank or unknown pairs are denied.
func (b *Binder) CanPerformAction(action, resource, departmentID string) bool {
	snap, roles, depts, bound := b.view()
	if !bound {
		return false
	}
	res := snap.Resolve(roles...)
	if res.Universal {
		return true
	}
	if departmentID != "" && !slices.Contains(depts, departmentID) {
		return false
	}
	action, resource = strings.TrimSpace(action), strings.TrimSpace(resource)
	if action == "" || resource == "" || snap == nil {
		return false
	}
	for _, p := range snap.Catalog().Permissions(PermissionFilter{Action: action, Resource: resource}) {
		if res.Grants(p.ID) {
			return true
		}
	}
	return false
}

// CanAssignRole reports whether the subject may grant roleID to someone,
// or take it away. Root subjects may assign any role. Others may assign a
// role only when they already hold every permission it resolves to, so an
// assignment never hands out more than the assigner has. Roles that reach
// the root role, and unknown roles, are reserved for root subjects.
func (b *Binder) CanAssignRole(roleID string) bool {
	snap, roles, _, bound := b.view()
	if !bound {
		return false
	}
	mine := snap.Resolve(roles...)
	if mine.Universal {
		return true
	}
	if _, ok := snap.Graph().Role(roleID); !ok {
		return false
	}
	target := snap.Resolve(roleID)
	if target.Universal {
		return false
	}
	for id := range target.Permissions {
		if !mine.Grants(id) {
			return false
		}
	}
	return true
}

// EffectiveRoles returns the assigned roles plus every inherited ancestor.
func (b *Binder) EffectiveRoles() []string {
	snap, roles, _, bound := b.view()
	if !bound {
		return []string{}
	}
	return snap.EffectiveRoles(roles...)
}

// Permissions returns every granted permission id in ascending order.
// For a root subject this is the whole catalog.
func (b *Binder) Permissions() []string {
	res, bound := b.resolve()
	if !bound {
		return []string{}
	}
	return res.Permissions.Slice()
}

// IsUniversal reports whether the bound subject reaches a root role.
func (b *Binder) IsUniversal() bool {
	res, bound := b.resolve()
	return bound && res.Universal
}

type binderContextKey struct{}

// WithBinder stores the binder in ctx.
func WithBinder(ctx context.Context, b *Binder) context.Context {
	return context.WithValue(ctx, binderContextKey{}, b)
}

// BinderFromContext extracts the binder. The result may be nil, which
// denies every query.
func BinderFromContext(ctx context.Context) *Binder {
	b, _ := ctx.Value(binderContextKey{}).(*Binder)
	return b
}
