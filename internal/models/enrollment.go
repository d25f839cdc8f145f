package models

import "time"

// PresenceStatus is the per-session presence state of an enrollee.
type PresenceStatus string

const (
	PresenceAbsent  PresenceStatus = "ABSENT"
	PresencePresent PresenceStatus = "PRESENT"
)

// Valid returns true when the status is a supported value.
func (s PresenceStatus) Valid() bool {
	return s == PresenceAbsent || s == PresencePresent
}

// EnrollmentRecord is the per-student, per-session-date row carrying the seat
// number and presence status. The (session_date_id, student_id) pair is
// unique, and a student's seat number is identical across every session date
// of the same class section.
type EnrollmentRecord struct {
	ID            string         `db:"id" json:"id"`
	SessionDateID string         `db:"session_date_id" json:"session_date_id"`
	StudentID     string         `db:"student_id" json:"student_id"`
	SeatNo        int            `db:"seat_no" json:"seat_no"`
	Status        PresenceStatus `db:"status" json:"status"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// RosterRow is an enrollment record joined with student identity, used for
// section rosters and session reports.
type RosterRow struct {
	EnrollmentRecord
	MatricNo    string `db:"matric_no" json:"matric_no"`
	StudentName string `db:"student_name" json:"student_name"`
}

// SectionRosterEntry is one enrolled student of a class section. The seat
// number is section-wide, identical on every session date.
type SectionRosterEntry struct {
	StudentID   string `db:"student_id" json:"student_id"`
	MatricNo    string `db:"matric_no" json:"matric_no"`
	StudentName string `db:"student_name" json:"student_name"`
	Email       string `db:"email" json:"email"`
	SeatNo      int    `db:"seat_no" json:"seat_no"`
}

// Absentee is a still-absent enrollee with the contact address the
// notification collaborator needs.
type Absentee struct {
	StudentID   string `db:"student_id" json:"student_id"`
	MatricNo    string `db:"matric_no" json:"matric_no"`
	StudentName string `db:"student_name" json:"student_name"`
	Email       string `db:"email" json:"email"`
	SeatNo      int    `db:"seat_no" json:"seat_no"`
}

// MarkOutcome reports the effect of a presence claim.
type MarkOutcome string

const (
	MarkApplied        MarkOutcome = "APPLIED"
	MarkAlreadyPresent MarkOutcome = "ALREADY_PRESENT"
)
