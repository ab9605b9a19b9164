package users

import (
	"fmt"
	"time"

	"github.com/madrasa-erp/madrasa-erp/internal/platform/httpx"
	"github.com/madrasa-erp/madrasa-erp/internal/shared"
)

// User represents a user account for management.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	PasswordHash  string    `json:"-"`
	IsActive      bool      `json:"is_active"`
	RoleIDs       []string  `json:"roles"`
	DepartmentIDs []string  `json:"departments"`
	CreatedAt     time.Time `json:"created_date"`
	UpdatedAt     time.Time `json:"updated_date"`
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Email       string   `json:"email" validate:"required,email"`
	Name        string   `json:"name" validate:"required,max=120"`
	Password    string   `json:"password" validate:"required,min=8,max=72"`
	Roles       []string `json:"roles" validate:"dive,required"`
	Departments []string `json:"departments" validate:"dive,required"`
}

// SetRolesRequest is the body of PUT /users/{id}/roles.
type SetRolesRequest struct {
	Roles []string `json:"roles" validate:"dive,required"`
}

// SetDepartmentsRequest is the body of PUT /users/{id}/departments.
type SetDepartmentsRequest struct {
	Departments []string `json:"departments" validate:"dive,required"`
}

// Page is one page of a user listing.
type Page struct {
	Users      []User            `json:"users"`
	Pagination shared.Pagination `json:"pagination"`
}

var (
	ErrNotFound          = fmt.Errorf("users: user %w", httpx.ErrNotFound)
	ErrEmailTaken        = fmt.Errorf("users: email %w", httpx.ErrDuplicate)
	ErrUnknownRole       = fmt.Errorf("users: unknown role: %w", httpx.ErrValidation)
	ErrUnknownDepartment = fmt.Errorf("users: unknown department: %w", httpx.ErrValidation)
	ErrInactive          = fmt.Errorf("users: account disabled: %w", httpx.ErrUnauthorized)
	ErrRoleNotAssignable = fmt.Errorf("users: role not assignable: %w", httpx.ErrForbidden)
)
