package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckIntegrityCleanSeed(t *testing.T) {
	snap, err := Seed()
	require.NoError(t, err)
	assert.Empty(t, CheckIntegrity(snap))
}

func TestCheckIntegrityFindings(t *testing.T) {
	snap := mustSnapshot(t, catalogOf("x"), []Role{
		{ID: "A", Name: "A", InheritsFrom: []string{"B", "ghost"}, Permissions: []string{"x", "gone"}},
		{ID: "B", Name: "B", InheritsFrom: []string{"A"}},
		{ID: "R1", Name: "R1", IsRootRole: true},
		{ID: "R2", Name: "R2", IsRootRole: true, Departments: []string{"nowhere"}},
	}, Department{ID: "d1", Name: "D1", RolesAllowed: []string{"deleted_role"}})

	findings := CheckIntegrity(snap)
	require.Len(t, findings, 6)

	assert.Equal(t, Finding{Kind: FindingDanglingParent, RoleID: "A", Ref: "ghost"}, findings[0])
	assert.Equal(t, Finding{Kind: FindingDanglingGrant, RoleID: "A", Ref: "gone"}, findings[1])
	assert.Equal(t, Finding{Kind: FindingDanglingDepartment, RoleID: "R2", Ref: "nowhere"}, findings[2])
	assert.Equal(t, Finding{Kind: FindingDanglingAllowed, RoleID: "deleted_role", Ref: "d1"}, findings[3])
	assert.Equal(t, FindingCycle, findings[4].Kind)
	assert.Equal(t, []string{"A", "B", "A"}, findings[4].Path)
	assert.Equal(t, "cycle: A -> B -> A", findings[4].String())
	assert.Equal(t, Finding{Kind: FindingMultipleRoots, Path: []string{"R1", "R2"}}, findings[5])
}

func TestRootRoleLookup(t *testing.T) {
	snap, err := Seed()
	require.NoError(t, err)

	root, ok := snap.Graph().RootRole()
	require.True(t, ok)
	assert.Equal(t, RoleSuperAdmin, root.ID)
	assert.True(t, snap.Graph().IsRoot(RoleSuperAdmin))
	assert.False(t, snap.Graph().IsRoot(RoleAdmin))
	assert.Equal(t, []string{}, snap.Graph().Parents("missing"))
	assert.Equal(t, []string{RoleStudent}, snap.Graph().Parents(RoleTeacher))
}
