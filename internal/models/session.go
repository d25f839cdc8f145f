package models

import "time"

// SessionDate is one concrete calendar occurrence of a class section.
// The (class_section_id, date) pair is unique. At most one session date per
// class section may have SessionOpen set at any instant; the session gate
// and a partial unique index both enforce this.
type SessionDate struct {
	ID             string    `db:"id" json:"id"`
	ClassSectionID string    `db:"class_section_id" json:"class_section_id"`
	Date           time.Time `db:"date" json:"date"`
	SessionOpen    bool      `db:"session_open" json:"session_open"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// SessionDateDetail carries the section and course context used by reports
// and notifications.
type SessionDateDetail struct {
	SessionDate
	SectionExternalID string `db:"section_external_id" json:"section_external_id"`
	SectionLabel      string `db:"section_label" json:"section_label"`
	CourseCode        string `db:"course_code" json:"course_code"`
	CourseName        string `db:"course_name" json:"course_name"`
}
