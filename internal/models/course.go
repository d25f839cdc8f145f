package models

import "time"

// Course is identified by its unique course code. Deleting a course cascades
// through its class sections, session dates and enrollment records.
type Course struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ClassSection is one scheduled offering (index) of a course. The
// (course_id, external_id) pair is unique.
type ClassSection struct {
	ID         string    `db:"id" json:"id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	ExternalID string    `db:"external_id" json:"external_id"`
	Label      string    `db:"label" json:"label"`
	Room       string    `db:"room" json:"room"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ClassSectionDetail extends a section with its course context.
type ClassSectionDetail struct {
	ClassSection
	CourseCode string `db:"course_code" json:"course_code"`
	CourseName string `db:"course_name" json:"course_name"`
}

// CourseWithSections is the course listing view.
type CourseWithSections struct {
	Course
	Sections []ClassSection `json:"sections"`
}
