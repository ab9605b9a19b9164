package auth

import "errors"

// Me describes the bound authorization context of the caller.
type Me struct {
	UserID         string   `json:"user_id"`
	Email          string   `json:"email,omitempty"`
	Roles          []string `json:"roles"`
	Departments    []string `json:"departments"`
	EffectiveRoles []string `json:"effective_roles"`
	Permissions    []string `json:"permissions"`
	CSRFToken      string   `json:"csrf_token,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

var errSessionMissing = errors.New("auth: session missing")
