package rbac

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/madrasa-erp/madrasa-erp/internal/platform/db"
)

const (
	queryPermissions = `SELECT id, name, description, category, action, resource, created_at, updated_at FROM rbac_permissions ORDER BY id`
	queryRoles       = `SELECT id, name, description, color, is_root, created_at, updated_at FROM rbac_roles ORDER BY id`
	queryGrants      = `SELECT role_id, permission_id FROM rbac_role_permissions ORDER BY role_id, permission_id`
	queryParents     = `SELECT role_id, parent_id FROM rbac_role_parents ORDER BY role_id, position`
	queryRoleDepts   = `SELECT role_id, department_id FROM rbac_role_departments ORDER BY role_id, department_id`
	queryDepartments = `SELECT id, name, description, color, created_at, updated_at FROM rbac_departments ORDER BY id`
	queryDeptRoles   = `SELECT department_id, role_id FROM rbac_department_roles ORDER BY department_id, role_id`
)

// Repository loads snapshots from PostgreSQL.
type Repository struct {
	pool db.TxBeginner
}

// NewRepository constructs a Repository over pool.
func NewRepository(pool db.TxBeginner) *Repository {
	return &Repository{pool: pool}
}

// Load reads every rbac table inside one repeatable-read transaction.
func (r *Repository) Load(ctx context.Context) (*Snapshot, error) {
	var (
		perms []Permission
		roles []Role
		depts []Department
	)
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		if perms, err = loadPermissions(ctx, tx); err != nil {
			return fmt.Errorf("rbac: load permissions: %w", err)
		}
		if roles, err = loadRoles(ctx, tx); err != nil {
			return fmt.Errorf("rbac: load roles: %w", err)
		}
		if depts, err = loadDepartments(ctx, tx); err != nil {
			return fmt.Errorf("rbac: load departments: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewSnapshot(perms, roles, depts)
}

func loadPermissions(ctx context.Context, tx pgx.Tx) ([]Permission, error) {
	rows, err := tx.Query(ctx, queryPermissions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Action, &p.Resource, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func loadRoles(ctx context.Context, tx pgx.Tx) ([]Role, error) {
	rows, err := tx.Query(ctx, queryRoles)
	if err != nil {
		return nil, err
	}
	var (
		out   []Role
		index = make(map[string]int)
	)
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.Color, &role.IsRootRole, &role.CreatedAt, &role.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		index[role.ID] = len(out)
		out = append(out, role)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	grants, err := loadPairs(ctx, tx, queryGrants)
	if err != nil {
		return nil, err
	}
	for _, g := range grants {
		// grants for unknown roles have nowhere to attach
		if i, ok := index[g[0]]; ok {
			out[i].Permissions = append(out[i].Permissions, g[1])
		}
	}
	parents, err := loadPairs(ctx, tx, queryParents)
	if err != nil {
		return nil, err
	}
	for _, p := range parents {
		if i, ok := index[p[0]]; ok {
			out[i].InheritsFrom = append(out[i].InheritsFrom, p[1])
		}
	}
	scoped, err := loadPairs(ctx, tx, queryRoleDepts)
	if err != nil {
		return nil, err
	}
	for _, d := range scoped {
		if i, ok := index[d[0]]; ok {
			out[i].Departments = append(out[i].Departments, d[1])
		}
	}
	return out, nil
}

func loadDepartments(ctx context.Context, tx pgx.Tx) ([]Department, error) {
	rows, err := tx.Query(ctx, queryDepartments)
	if err != nil {
		return nil, err
	}
	var (
		out   []Department
		index = make(map[string]int)
	)
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.Color, &d.CreatedAt, &d.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		index[d.ID] = len(out)
		out = append(out, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	allowed, err := loadPairs(ctx, tx, queryDeptRoles)
	if err != nil {
		return nil, err
	}
	for _, a := range allowed {
		if i, ok := index[a[0]]; ok {
			out[i].RolesAllowed = append(out[i].RolesAllowed, a[1])
		}
	}
	return out, nil
}

func loadPairs(ctx context.Context, tx pgx.Tx, query string) ([][2]string, error) {
	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out [][2]string
	for rows.Next() {
		var pair [2]string
		if err := rows.Scan(&pair[0], &pair[1]); err != nil {
			return nil, err
		}
		out = append(out, pair)
	}
	return out, rows.Err()
}

var _ Source = (*Repository)(nil)

const (
	clearRBAC = `TRUNCATE rbac_department_roles, rbac_departments, rbac_role_departments, rbac_role_parents, rbac_role_permissions, rbac_roles, rbac_permissions`

	insertPermission = `INSERT INTO rbac_permissions (id, name, description, category, action, resource, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	insertRole       = `INSERT INTO rbac_roles (id, name, description, color, is_root, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	insertGrant      = `INSERT INTO rbac_role_permissions (role_id, permission_id) VALUES ($1, $2)`
	insertParent     = `INSERT INTO rbac_role_parents (role_id, parent_id, position) VALUES ($1, $2, $3)`
	insertRoleDept   = `INSERT INTO rbac_role_departments (role_id, department_id) VALUES ($1, $2)`
	insertDepartment = `INSERT INTO rbac_departments (id, name, description, color, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`
	insertDeptRole   = `INSERT INTO rbac_department_roles (department_id, role_id) VALUES ($1, $2)`
)

// Replace overwrites every rbac table with the contents of snap in one
// transaction.
func (r *Repository) Replace(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("rbac: replace: nil snapshot")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, clearRBAC); err != nil {
			return fmt.Errorf("rbac: clear tables: %w", err)
		}
		for _, p := range snap.Catalog().Permissions(PermissionFilter{}) {
			if _, err := tx.Exec(ctx, insertPermission, p.ID, p.Name, p.Description, p.Category, p.Action, p.Resource, p.CreatedAt, p.UpdatedAt); err != nil {
				return fmt.Errorf("rbac: insert permission %s: %w", p.ID, err)
			}
		}
		roles := snap.Graph().Roles()
		for _, role := range roles {
			if _, err := tx.Exec(ctx, insertRole, role.ID, role.Name, role.Description, role.Color, role.IsRootRole, role.CreatedAt, role.UpdatedAt); err != nil {
				return fmt.Errorf("rbac: insert role %s: %w", role.ID, err)
			}
		}
		for _, role := range roles {
			for _, perm := range role.Permissions {
				if _, err := tx.Exec(ctx, insertGrant, role.ID, perm); err != nil {
					return fmt.Errorf("rbac: insert grant %s/%s: %w", role.ID, perm, err)
				}
			}
			for i, parent := range role.InheritsFrom {
				if _, err := tx.Exec(ctx, insertParent, role.ID, parent, i); err != nil {
					return fmt.Errorf("rbac: insert parent %s/%s: %w", role.ID, parent, err)
				}
			}
			for _, dept := range role.Departments {
				if _, err := tx.Exec(ctx, insertRoleDept, role.ID, dept); err != nil {
					return fmt.Errorf("rbac: insert role department %s/%s: %w", role.ID, dept, err)
				}
			}
		}
		for _, d := range snap.Departments() {
			if _, err := tx.Exec(ctx, insertDepartment, d.ID, d.Name, d.Description, d.Color, d.CreatedAt, d.UpdatedAt); err != nil {
				return fmt.Errorf("rbac: insert department %s: %w", d.ID, err)
			}
			for _, roleID := range d.RolesAllowed {
				if _, err := tx.Exec(ctx, insertDeptRole, d.ID, roleID); err != nil {
					return fmt.Errorf("rbac: insert department role %s/%s: %w", d.ID, roleID, err)
				}
			}
		}
		return nil
	})
}
