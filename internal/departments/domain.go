package departments

// DepartmentRequest is the body of POST and PUT /departments.
type DepartmentRequest struct {
	ID           string   `json:"id" validate:"omitempty,max=64"`
	Name         string   `json:"name" validate:"required,max=120"`
	Description  string   `json:"description" validate:"max=500"`
	Color        string   `json:"color" validate:"max=32"`
	RolesAllowed []string `json:"rolesAllowed" validate:"dive,required"`
}
