package models

import "time"

// StaffRole describes the appointment held by a staff member.
type StaffRole string

const (
	StaffRoleLabTechnician StaffRole = "LAB_TECHNICIAN"
	StaffRoleProfessor     StaffRole = "PROFESSOR"
)

// Valid returns true when the role is a supported value.
func (r StaffRole) Valid() bool {
	switch r {
	case StaffRoleLabTechnician, StaffRoleProfessor:
		return true
	default:
		return false
	}
}

// Staff is a teaching or lab staff member referenced by class sections.
type Staff struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	FullName   string    `db:"full_name" json:"full_name"`
	EmployeeNo string    `db:"employee_no" json:"employee_no"`
	Role       StaffRole `db:"role" json:"role"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// StaffAssignment links a staff member to a class section they run.
// The (class_section_id, staff_id) pair is unique.
type StaffAssignment struct {
	ID             string    `db:"id" json:"id"`
	ClassSectionID string    `db:"class_section_id" json:"class_section_id"`
	StaffID        string    `db:"staff_id" json:"staff_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
