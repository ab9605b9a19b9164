package rbac

import (
	"context"
	"time"
)

// Seed role ids.
const (
	RoleSuperAdmin = "role_superadmin"
	RoleAdmin      = "role_admin"
	RoleTeacher    = "role_teacher"
	RoleStudent    = "role_student"
	RoleParent     = "role_parent"
)

type seedGroup struct {
	category string
	perms    []Permission
}

// perm leaves Name empty so the catalog derives it from the id.
func perm(id, action, resource, description string) Permission {
	return Permission{ID: id, Action: action, Resource: resource, Description: description}
}

func named(p Permission, name string) Permission {
	p.Name = name
	return p
}

var seedPermissions = []seedGroup{
	{"User Management", []Permission{
		perm("view_users", "read", "users", "View user accounts and information"),
		perm("add_users", "create", "users", "Create new user accounts"),
		perm("edit_users", "update", "users", "Modify existing user accounts"),
		perm("delete_users", "delete", "users", "Delete user accounts"),
		perm("assign_roles", "assign", "roles", "Assign roles to users"),
	}},
	{"Academic Management", []Permission{
		perm("view_schedule", "read", "schedules", "View class schedules"),
		perm("add_schedule", "create", "schedules", "Create new class schedules"),
		perm("edit_schedule", "update", "schedules", "Modify existing class schedules"),
		perm("delete_schedule", "delete", "schedules", "Delete class schedules"),
		perm("view_assignments", "read", "assignments", "View assignments and study materials"),
		perm("add_assignments", "create", "assignments", "Create new assignments"),
		perm("edit_assignments", "update", "assignments", "Modify existing assignments"),
		perm("delete_assignments", "delete", "assignments", "Delete assignments"),
		perm("view_exams", "read", "exams", "View exams and assessments"),
		perm("add_exams", "create", "exams", "Create new exams"),
		perm("edit_exams", "update", "exams", "Modify existing exams"),
		perm("delete_exams", "delete", "exams", "Delete exams"),
		perm("grade_exams", "manage", "exams", "Grade student exams and assignments"),
	}},
	{"Student Management", []Permission{
		perm("view_students", "read", "students", "View student information"),
		perm("add_students", "create", "students", "Add new students"),
		perm("edit_students", "update", "students", "Edit student information"),
		perm("delete_students", "delete", "students", "Delete student records"),
		perm("view_attendance", "read", "attendance", "View attendance records"),
		perm("mark_attendance", "manage", "attendance", "Mark student attendance"),
		perm("edit_attendance", "update", "attendance", "Edit attendance records"),
		perm("view_progress", "read", "progress", "View student progress"),
		perm("update_progress", "update", "progress", "Update student progress"),
	}},
	{"Teacher Management", []Permission{
		perm("view_teachers", "read", "teachers", "View teacher information"),
		perm("add_teachers", "create", "teachers", "Add new teachers"),
		perm("edit_teachers", "update", "teachers", "Edit teacher information"),
		perm("delete_teachers", "delete", "teachers", "Delete teacher records"),
		perm("assign_subjects", "assign", "subjects", "Assign subjects to teachers"),
		perm("assign_classes", "assign", "classes", "Assign classes to teachers"),
	}},
	{"Finance Management", []Permission{
		perm("view_finances", "read", "finances", "View financial records"),
		named(perm("add_finances", "create", "finances", "Add financial records"), "Add Financial Records"),
		named(perm("edit_finances", "update", "finances", "Edit financial records"), "Edit Financial Records"),
		named(perm("delete_finances", "delete", "finances", "Delete financial records"), "Delete Financial Records"),
		perm("view_fees", "read", "fees", "View fee information"),
		perm("manage_fees", "manage", "fees", "Manage fee collection"),
		perm("view_donations", "read", "donations", "View donation records"),
		perm("manage_donations", "manage", "donations", "Manage donations"),
	}},
	{"Department Management", []Permission{
		perm("view_departments", "read", "departments", "View department information"),
		perm("add_departments", "create", "departments", "Create new departments"),
		perm("edit_departments", "update", "departments", "Edit department information"),
		perm("delete_departments", "delete", "departments", "Delete departments"),
		named(perm("assign_roles_department", "assign", "departments", "Assign roles to departments"), "Assign Roles to Departments"),
	}},
	{"Role & Permission Management", []Permission{
		perm("view_roles", "read", "roles", "View role information"),
		perm("add_roles", "create", "roles", "Create new roles"),
		perm("edit_roles", "update", "roles", "Edit role information"),
		perm("delete_roles", "delete", "roles", "Delete roles"),
		perm("manage_permissions", "manage", "permissions", "Manage role permissions"),
	}},
	{"Reports & Analytics", []Permission{
		perm("view_reports", "read", "reports", "View system reports"),
		perm("generate_reports", "create", "reports", "Generate new reports"),
		perm("export_reports", "manage", "reports", "Export reports"),
	}},
	{"Data Management", []Permission{
		perm("view_data", "read", "data", "View system data"),
		perm("import_data", "create", "data", "Import data into system"),
		perm("export_data", "manage", "data", "Export data from system"),
		perm("backup_data", "create", "backups", "Create data backups"),
		perm("restore_data", "manage", "backups", "Restore data from backups"),
	}},
	{"Messaging & Notifications", []Permission{
		perm("view_messages", "read", "messages", "View messages"),
		perm("send_messages", "create", "messages", "Send messages"),
		perm("send_notifications", "create", "notifications", "Send notifications"),
		perm("receive_notifications", "read", "notifications", "Receive notifications"),
		perm("manage_announcements", "manage", "announcements", "Manage announcements"),
	}},
	{"System Administration", []Permission{
		named(perm("view_settings", "read", "settings", "View system settings"), "View System Settings"),
		named(perm("configure_settings", "manage", "settings", "Configure system settings"), "Configure System Settings"),
		named(perm("view_logs", "read", "logs", "View system logs"), "View System Logs"),
		perm("manage_backups", "manage", "backups", "Manage system backups"),
		perm("system_maintenance", "manage", "system", "Perform system maintenance"),
	}},
}

var seedRoles = []Role{
	{
		ID:          RoleSuperAdmin,
		Name:        "SuperAdmin",
		Description: "Full control over all clusters, organizations, departments, and users.",
		Color:       "rose",
		IsRootRole:  true,
	},
	{
		ID:           RoleAdmin,
		Name:         "Admin",
		Description:  "Admin of a cluster or organization. Manages staff, roles, and settings.",
		Color:        "slate",
		InheritsFrom: []string{RoleTeacher, RoleStudent, RoleParent},
		Permissions: []string{
			"view_users", "add_users", "edit_users", "delete_users", "assign_roles",
			"view_roles", "add_roles", "edit_roles", "delete_roles", "manage_permissions",
			"view_departments", "add_departments", "edit_departments", "delete_departments", "assign_roles_department",
			"view_finances", "add_finances", "edit_finances", "delete_finances", "view_fees", "manage_fees", "view_donations", "manage_donations",
			"view_reports", "generate_reports", "export_reports",
			"view_settings", "configure_settings", "view_logs", "manage_backups", "system_maintenance",
		},
	},
	{
		ID:           RoleTeacher,
		Name:         "Teacher",
		Description:  "Handles academic content, student performance, and class scheduling.",
		Color:        "emerald",
		InheritsFrom: []string{RoleStudent},
		Permissions: []string{
			"view_schedule", "add_schedule", "edit_schedule", "delete_schedule",
			"view_assignments", "add_assignments", "edit_assignments", "delete_assignments",
			"view_exams", "add_exams", "edit_exams", "delete_exams", "grade_exams",
			"view_students", "view_attendance", "mark_attendance", "edit_attendance",
			"view_progress", "update_progress",
			"send_messages", "send_notifications", "manage_announcements",
		},
	},
	{
		ID:          RoleStudent,
		Name:        "Student",
		Description: "Can view their schedule, assignments, exams, and personal progress.",
		Color:       "sky",
		Permissions: []string{"view_schedule", "view_assignments", "view_exams", "view_fees", "view_progress", "receive_notifications"},
	},
	{
		ID:          RoleParent,
		Name:        "Parent",
		Description: "Guardian role for tracking a child's progress and financial dues.",
		Color:       "amber",
		Permissions: []string{"view_students", "view_attendance", "view_progress", "view_fees", "receive_notifications"},
	},
}

var seedDepartments = []Department{
	{ID: "dept_arabic", Name: "Arabic Studies", Color: "#1D4ED8", Description: "Covers Quran, Hadith, and Arabic language studies.", RolesAllowed: []string{RoleTeacher, RoleStudent}},
	{ID: "dept_science", Name: "Science & Modern Studies", Color: "#059669", Description: "Mathematics, Science, and modern subjects.", RolesAllowed: []string{RoleTeacher, RoleStudent}},
	{ID: "dept_hifz", Name: "Hifz & Memorization", Color: "#7C3AED", Description: "Quran memorization and recitation studies.", RolesAllowed: []string{RoleTeacher, RoleStudent}},
	{ID: "dept_primary", Name: "Primary Education", Color: "#DC2626", Description: "Basic education for young students.", RolesAllowed: []string{RoleTeacher, RoleStudent}},
}

// Seed builds the built-in madrasa catalog.
func Seed() (*Snapshot, error) {
	now := time.Now().UTC()
	var perms []Permission
	for _, group := range seedPermissions {
		for _, p := range group.perms {
			p.Category = group.category
			p.CreatedAt, p.UpdatedAt = now, now
			perms = append(perms, p)
		}
	}
	roles := make([]Role, 0, len(seedRoles))
	for _, r := range seedRoles {
		r = r.clone()
		r.CreatedAt, r.UpdatedAt = now, now
		roles = append(roles, r)
	}
	depts := make([]Department, 0, len(seedDepartments))
	for _, d := range seedDepartments {
		d = d.clone()
		d.CreatedAt, d.UpdatedAt = now, now
		depts = append(depts, d)
	}
	return NewSnapshot(perms, roles, depts)
}

// SeedSource serves the built-in catalog. Every Load returns a fresh copy.
func SeedSource() Source {
	return SourceFunc(func(context.Context) (*Snapshot, error) {
		return Seed()
	})
}
