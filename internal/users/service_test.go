package users

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/madrasa-erp/madrasa-erp/internal/platform/httpx"
	"github.com/madrasa-erp/madrasa-erp/internal/rbac"
)

func newService(t *testing.T) (*Service, *rbac.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := rbac.NewStore(context.Background(), rbac.SeedSource(), logger)
	require.NoError(t, err)
	return NewService(NewMemoryRepository(), store, logger), store
}

func TestCreateUserHashesPassword(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, svc.Actor(), CreateUserRequest{
		Email:    " Aisha@Madrasa.test ",
		Name:     "Aisha",
		Password: "s3cretpass",
		Roles:    []string{rbac.RoleTeacher, rbac.RoleTeacher},
	})
	require.NoError(t, err)
	assert.Equal(t, "aisha@madrasa.test", u.Email)
	assert.Equal(t, []string{rbac.RoleTeacher}, u.RoleIDs)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cretpass")))

	_, err = svc.CreateUser(ctx, svc.Actor(), CreateUserRequest{Email: "aisha@madrasa.test", Name: "Dup", Password: "s3cretpass"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.CreateUser(ctx, svc.Actor(), CreateUserRequest{Email: "x@madrasa.test", Name: "X", Password: "s3cretpass", Roles: []string{"role_ghost"}})
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestUserPermissionsFollowInheritance(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, svc.Actor(), CreateUserRequest{Email: "t@madrasa.test", Name: "T", Password: "s3cretpass", Roles: []string{rbac.RoleTeacher}})
	require.NoError(t, err)

	perms, err := svc.Permissions(ctx, u.ID)
	require.NoError(t, err)
	assert.Contains(t, perms, "receive_notifications")

	roles, err := svc.EffectiveRoles(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{rbac.RoleTeacher, rbac.RoleStudent}, roles)

	_, err = store.RemoveParent(rbac.RoleTeacher, rbac.RoleStudent)
	require.NoError(t, err)
	perms, err = svc.Permissions(ctx, u.ID)
	require.NoError(t, err)
	assert.NotContains(t, perms, "receive_notifications")
}

func TestRoleAssignments(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	u, err := svc.CreateUser(ctx, svc.Actor(), CreateUserRequest{Email: "p@madrasa.test", Name: "P", Password: "s3cretpass"})
	require.NoError(t, err)

	u, err = svc.AssignRole(ctx, svc.Actor(), u.ID, rbac.RoleParent)
	require.NoError(t, err)
	u, err = svc.AssignRole(ctx, svc.Actor(), u.ID, rbac.RoleParent)
	require.NoError(t, err)
	assert.Equal(t, []string{rbac.RoleParent}, u.RoleIDs)

	_, err = svc.AssignRole(ctx, svc.Actor(), u.ID, "role_ghost")
	assert.ErrorIs(t, err, ErrUnknownRole)

	u, err = svc.SetRoles(ctx, svc.Actor(), u.ID, []string{rbac.RoleStudent, rbac.RoleParent})
	require.NoError(t, err)
	u, err = svc.RemoveRole(ctx, svc.Actor(), u.ID, rbac.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, []string{rbac.RoleParent}, u.RoleIDs)

	u, err = svc.SetDepartments(ctx, u.ID, []string{"dept_hifz"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dept_hifz"}, u.DepartmentIDs)

	_, err = svc.SetDepartments(ctx, u.ID, []string{"dept_ghost"})
	assert.ErrorIs(t, err, ErrUnknownDepartment)

	_, err = svc.AssignRole(ctx, svc.Actor(), "missing", rbac.RoleParent)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssignmentsAreLimitedToTheActorsAuthority(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	root, err := svc.CreateUser(ctx, svc.Actor(), CreateUserRequest{Email: "root@madrasa.test", Name: "Root", Password: "s3cretpass", Roles: []string{rbac.RoleSuperAdmin}})
	require.NoError(t, err)
	u, err := svc.CreateUser(ctx, svc.Actor(), CreateUserRequest{Email: "a@madrasa.test", Name: "A", Password: "s3cretpass", Roles: []string{rbac.RoleAdmin}})
	require.NoError(t, err)

	admin := rbac.NewBinder(store)
	admin.SetContext([]string{rbac.RoleAdmin}, nil)

	u, err = svc.AssignRole(ctx, admin, u.ID, rbac.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, []string{rbac.RoleAdmin, rbac.RoleTeacher}, u.RoleIDs)

	_, err = svc.AssignRole(ctx, admin, u.ID, rbac.RoleSuperAdmin)
	assert.ErrorIs(t, err, ErrRoleNotAssignable)
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	_, err = svc.SetRoles(ctx, admin, u.ID, []string{rbac.RoleAdmin, rbac.RoleSuperAdmin})
	assert.ErrorIs(t, err, ErrRoleNotAssignable)

	_, err = svc.CreateUser(ctx, admin, CreateUserRequest{Email: "x@madrasa.test", Name: "X", Password: "s3cretpass", Roles: []string{rbac.RoleSuperAdmin}})
	assert.ErrorIs(t, err, ErrRoleNotAssignable)
	_, err = svc.FindByEmail(ctx, "x@madrasa.test")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.RemoveRole(ctx, admin, root.ID, rbac.RoleSuperAdmin)
	assert.ErrorIs(t, err, ErrRoleNotAssignable)
	_, err = svc.SetRoles(ctx, admin, root.ID, nil)
	assert.ErrorIs(t, err, ErrRoleNotAssignable)

	_, err = svc.AssignRole(ctx, nil, u.ID, rbac.RoleStudent)
	assert.ErrorIs(t, err, ErrRoleNotAssignable)

	sub, err := svc.ResolveSubject(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{rbac.RoleAdmin, rbac.RoleTeacher}, sub.RoleIDs)
	sub, err = svc.ResolveSubject(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{rbac.RoleSuperAdmin}, sub.RoleIDs)
}

// deletingRepository deletes a role from the store while a user write is
// in flight, the way a concurrent DELETE /roles/{id} would.
type deletingRepository struct {
	*MemoryRepository
	store  *rbac.Store
	roleID string
}

func (r *deletingRepository) UpdateUser(ctx context.Context, u User) (User, error) {
	if err := r.store.DeleteRole(r.roleID); err != nil {
		return User{}, err
	}
	if err := r.MemoryRepository.RemoveRoleFromAll(ctx, r.roleID); err != nil {
		return User{}, err
	}
	return r.MemoryRepository.UpdateUser(ctx, u)
}

func TestAssignmentRacingRoleDeletionIsPruned(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := rbac.NewStore(context.Background(), rbac.SeedSource(), logger)
	require.NoError(t, err)
	repo := &deletingRepository{MemoryRepository: NewMemoryRepository(), store: store, roleID: rbac.RoleParent}
	svc := NewService(repo, store, logger)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, svc.Actor(), CreateUserRequest{Email: "p@madrasa.test", Name: "P", Password: "s3cretpass", Roles: []string{rbac.RoleStudent}})
	require.NoError(t, err)

	u, err = svc.AssignRole(ctx, svc.Actor(), u.ID, rbac.RoleParent)
	require.NoError(t, err)
	assert.Equal(t, []string{rbac.RoleStudent}, u.RoleIDs)

	sub, err := svc.ResolveSubject(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{rbac.RoleStudent}, sub.RoleIDs)
}

func TestPruneAssignments(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	u, err := svc.CreateUser(ctx, svc.Actor(), CreateUserRequest{
		Email: "s@madrasa.test", Name: "S", Password: "s3cretpass",
		Roles: []string{rbac.RoleStudent, rbac.RoleParent}, Departments: []string{"dept_arabic", "dept_hifz"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveRoleFromAll(ctx, rbac.RoleStudent))
	require.NoError(t, svc.RemoveDepartmentFromAll(ctx, "dept_arabic"))

	sub, err := svc.ResolveSubject(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{rbac.RoleParent}, sub.RoleIDs)
	assert.Equal(t, []string{"dept_hifz"}, sub.DepartmentIDs)
}

func TestListUsersPaginates(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	for _, email := range []string{"c@m.test", "a@m.test", "b@m.test"} {
		_, err := svc.CreateUser(ctx, svc.Actor(), CreateUserRequest{Email: email, Name: email, Password: "s3cretpass"})
		require.NoError(t, err)
	}

	page, err := svc.ListUsers(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "c@m.test", page.Users[0].Email)
	assert.Equal(t, 2, page.Pagination.TotalPages)

	page, err = svc.ListUsers(ctx, 5, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Users)
}

func TestBootstrapCreatesRootAdmin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Bootstrap(ctx, "admin@madrasa.test", "changeme123"))
	require.NoError(t, svc.Bootstrap(ctx, "admin@madrasa.test", "changeme123"))

	u, err := svc.FindByEmail(ctx, "admin@madrasa.test")
	require.NoError(t, err)
	assert.Equal(t, []string{rbac.RoleSuperAdmin}, u.RoleIDs)

	require.NoError(t, svc.Bootstrap(ctx, "", ""))
}
