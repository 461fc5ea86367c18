package model

// Role is the single role carried by every user account.
type Role string

const (
	RoleSystemAdmin     Role = "System Admin"
	RoleExamManager     Role = "Exam Manager"
	RoleQuestionManager Role = "Question Manager"
	RoleResultManager   Role = "Result Manager"
	RoleStudent         Role = "Student"
)

// AllRoles lists every role known to the portal.
var AllRoles = []Role{
	RoleSystemAdmin,
	RoleExamManager,
	RoleQuestionManager,
	RoleResultManager,
	RoleStudent,
}

// Valid reports whether r is one of AllRoles.
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// Managers are the staff roles allowed to browse exams.
var Managers = []Role{
	RoleSystemAdmin,
	RoleExamManager,
	RoleQuestionManager,
	RoleResultManager,
}
