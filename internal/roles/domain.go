package roles

// CreateRoleRequest is the body of POST /roles.
type CreateRoleRequest struct {
	ID           string   `json:"id" validate:"omitempty,max=64"`
	Name         string   `json:"name" validate:"required,max=120"`
	Description  string   `json:"description" validate:"max=500"`
	Color        string   `json:"color" validate:"max=32"`
	Permissions  []string `json:"permissions" validate:"dive,required"`
	InheritsFrom []string `json:"inheritsFrom" validate:"dive,required"`
	IsRootRole   bool     `json:"isRootRole"`
	Departments  []string `json:"departments" validate:"dive,required"`
}

// UpdateRoleRequest is the body of PUT /roles/{id}. Absent fields keep
// their current value.
type UpdateRoleRequest struct {
	Name         *string   `json:"name" validate:"omitempty,min=1,max=120"`
	Description  *string   `json:"description" validate:"omitempty,max=500"`
	Color        *string   `json:"color" validate:"omitempty,max=32"`
	Permissions  *[]string `json:"permissions"`
	InheritsFrom *[]string `json:"inheritsFrom"`
	IsRootRole   *bool     `json:"isRootRole"`
	Departments  *[]string `json:"departments"`
}

// SetPermissionsRequest is the body of PUT /roles/{id}/permissions.
type SetPermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"dive,required"`
}

// EffectivePermissions describes what a role grants after inheritance.
type EffectivePermissions struct {
	RoleID      string   `json:"roleId"`
	Permissions []string `json:"permissions"`
	Universal   bool     `json:"isUniversal"`
}

// Hierarchy lists a role followed by all of its ancestors.
type Hierarchy struct {
	RoleID    string   `json:"roleId"`
	Ancestors []string `json:"ancestors"`
	Roles     []string `json:"roles"`
}
