package models

import "strings"

type Role string

const (
	RoleApplicant  Role = "applicant"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

type User struct {
	ID              string  `db:"id" json:"id"`
	Email           string  `db:"email" json:"email"`
	FirstName       *string `db:"first_name" json:"first_name"`
	LastName        *string `db:"last_name" json:"last_name"`
	Phone           *string `db:"phone" json:"phone,omitempty"`
	Role            Role    `db:"role" json:"role"`
	Team            *string `db:"team" json:"team"`
	ExternalSubject *string `db:"external_subject" json:"-"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// DisplayName joins first and last name, "Unknown" when both are missing.
func DisplayName(first, last *string) string {
	parts := make([]string, 0, 2)
	for _, p := range []*string{first, last} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}
	if len(parts) == 0 {
		return "Unknown"
	}
	return strings.Join(parts, " ")
}
