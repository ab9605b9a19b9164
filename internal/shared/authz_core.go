package shared

// Permissions gating the administration API. They match seed catalog ids.
const (
	PermViewUsers   = "view_users"
	PermAddUsers    = "add_users"
	PermEditUsers   = "edit_users"
	PermDeleteUsers = "delete_users"
	PermAssignRoles = "assign_roles"

	PermViewRoles         = "view_roles"
	PermAddRoles          = "add_roles"
	PermEditRoles         = "edit_roles"
	PermDeleteRoles       = "delete_roles"
	PermManagePermissions = "manage_permissions"

	PermViewDepartments       = "view_departments"
	PermAddDepartments        = "add_departments"
	PermEditDepartments       = "edit_departments"
	PermDeleteDepartments     = "delete_departments"
	PermAssignRolesDepartment = "assign_roles_department"

	PermViewLogs          = "view_logs"
	PermSystemMaintenance = "system_maintenance"
)

// CoreScopes lists every permission the administration API checks.
func CoreScopes() []string {
	return []string{
		PermViewUsers, PermAddUsers, PermEditUsers, PermDeleteUsers, PermAssignRoles,
		PermViewRoles, PermAddRoles, PermEditRoles, PermDeleteRoles, PermManagePermissions,
		PermViewDepartments, PermAddDepartments, PermEditDepartments, PermDeleteDepartments, PermAssignRolesDepartment,
		PermViewLogs, PermSystemMaintenance,
	}
}
