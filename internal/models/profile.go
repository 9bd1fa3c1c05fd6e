package models

import "time"

// Role represents the closed set of account roles.
type Role string

const (
	RoleStudent    Role = "STUDENT"
	RoleSupervisor Role = "SUPERVISOR"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Profile represents a user account stored in the profiles table.
type Profile struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         Role       `db:"role" json:"role"`
	IsStaff      bool       `db:"is_staff" json:"is_staff"`
	Deadfiled    bool       `db:"deadfiled" json:"deadfiled"`
	Organization *string    `db:"organization" json:"organization,omitempty"`
	SupervisorID *string    `db:"supervisor_id" json:"supervisor_id,omitempty"`
	StudyRouteID *string    `db:"study_route_id" json:"study_route_id,omitempty"`
	CanAttest    bool       `db:"can_attest" json:"can_attest"`
	CanSign      bool       `db:"can_sign" json:"can_sign"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Capabilities is the single place role strings and permission flags are
// turned into actionable rights. Component logic branches on these only.
type Capabilities struct {
	CanAttestCertificates bool
	CanSealCertificates   bool
	CanManageCourses      bool
	CanGradeSubmissions   bool
	CanViewStaffBoard     bool
}

// ResolveCapabilities derives capabilities from a role and the certificate
// permission flags carried on the profile.
func ResolveCapabilities(role Role, isStaff, canAttest, canSign bool) Capabilities {
	caps := Capabilities{
		CanAttestCertificates: canAttest,
		CanSealCertificates:   canSign,
	}
	switch role {
	case RoleAdmin, RoleSuperAdmin:
		caps.CanAttestCertificates = true
		caps.CanSealCertificates = true
		caps.CanManageCourses = true
		caps.CanGradeSubmissions = true
		caps.CanViewStaffBoard = true
	case RoleSupervisor:
		caps.CanGradeSubmissions = true
		caps.CanViewStaffBoard = true
	}
	if isStaff {
		caps.CanViewStaffBoard = true
	}
	return caps
}
