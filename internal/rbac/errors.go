package rbac

import (
	"errors"
	"fmt"

	"github.com/madrasa-erp/madrasa-erp/internal/platform/httpx"
)

// Lookup failures on the mutation path.
var (
	ErrRoleNotFound       = fmt.Errorf("rbac: role %w", httpx.ErrNotFound)
	ErrPermissionNotFound = fmt.Errorf("rbac: permission %w", httpx.ErrNotFound)
	ErrDepartmentNotFound = fmt.Errorf("rbac: department %w", httpx.ErrNotFound)
)

// ErrInvalidMutation is wrapped by every *MutationError.
var ErrInvalidMutation = fmt.Errorf("rbac: invalid mutation: %w", httpx.ErrValidation)

// Reasons carried by *MutationError.
var (
	ErrDuplicateID         = fmt.Errorf("duplicate id: %w", httpx.ErrDuplicate)
	ErrNameRequired        = errors.New("name required")
	ErrUnknownPermission   = errors.New("unknown permission")
	ErrUnknownRole         = errors.New("unknown role")
	ErrUnknownDepartment   = errors.New("unknown department")
	ErrCyclicInheritance   = errors.New("cyclic inheritance")
	ErrRootRoleExists      = errors.New("a root role is already defined")
	ErrRootRoleProtected   = errors.New("root role cannot be deleted or demoted")
	ErrPermissionIDChanged = errors.New("permission id is immutable")
)

// MutationError reports a rejected write. The snapshot is left untouched.
type MutationError struct {
	Op     string
	Reason error
	Detail string
}

func (e *MutationError) Error() string {
	msg := "rbac: " + e.Op + ": " + e.Reason.Error()
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Unwrap exposes both the specific reason and ErrInvalidMutation.
func (e *MutationError) Unwrap() []error {
	return []error{e.Reason, ErrInvalidMutation}
}

func invalid(op string, reason error, detail string) error {
	return &MutationError{Op: op, Reason: reason, Detail: detail}
}
