package shared

import "slices"

// Subject is the authorization identity stored in a session at login.
type Subject struct {
	UserID        string   `json:"user_id"`
	RoleIDs       []string `json:"roles"`
	DepartmentIDs []string `json:"departments"`
}

// SetSubject binds the session to a user and its role and department ids.
func (s *Session) SetSubject(sub Subject) {
	s.userID = sub.UserID
	s.roles = slices.Clone(sub.RoleIDs)
	s.departments = slices.Clone(sub.DepartmentIDs)
	s.dirty = true
}

// Subject returns the bound subject. UserID is empty for anonymous sessions.
func (s *Session) Subject() Subject {
	return Subject{
		UserID:        s.userID,
		RoleIDs:       slices.Clone(s.roles),
		DepartmentIDs: slices.Clone(s.departments),
	}
}
