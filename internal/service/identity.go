package service

import "github.com/stemsi/exam-portal/internal/model"

// Identity is the authenticated caller as established by the bearer token.
type Identity struct {
	UserID int
	Role   model.Role
}

func (i Identity) IsStudent() bool { return i.Role == model.RoleStudent }

// HasRole reports whether the caller holds any of the given roles.
func (i Identity) HasRole(roles ...model.Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}
