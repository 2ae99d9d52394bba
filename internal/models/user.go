package models

type UserRole string

const (
	UserRoleStudent   UserRole = "Student"
	UserRoleCompany   UserRole = "Company"
	UserRoleCounselor UserRole = "Counselor"
	UserRoleAdmin     UserRole = "Admin"
)

// User is the minimal slice of the platform's user table the notification
// core needs: recipients must exist and carry a role for targeting.
// Registration, profiles and authentication live in other services.
type User struct {
	BaseModel
	Name  string   `gorm:"not null"`
	Email string   `gorm:"uniqueIndex;not null"`
	Role  UserRole `gorm:"not null;index"`
}

func IsValidUserRole(role UserRole) bool {
	switch role {
	case UserRoleStudent, UserRoleCompany, UserRoleCounselor, UserRoleAdmin:
		return true
	}
	return false
}
