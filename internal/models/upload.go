package models

import "time"

// CourseUploadRow is one parsed row of the course upload CSV. Field names are
// the contract with the uploaded file's header line.
type CourseUploadRow struct {
	CourseCode      string    `json:"courseCode"`
	CourseName      string    `json:"courseName"`
	SectionID       string    `json:"sectionId"`
	SectionLabel    string    `json:"sectionLabel"`
	Room            string    `json:"room"`
	Date            time.Time `json:"date"`
	StaffEmployeeNo string    `json:"staffEmployeeNo"`
}

// StudentUploadRow is one parsed row of the student upload CSV.
type StudentUploadRow struct {
	StudentID    string `json:"studentId"`
	StudentName  string `json:"studentName"`
	StudentEmail string `json:"studentEmail"`
}

// RosterUploadRow is one parsed row of the attendance roster CSV. SeatNo is
// optional; zero means the next free seat in the section is allocated.
type RosterUploadRow struct {
	SectionID string `json:"sectionId"`
	StudentID string `json:"studentId"`
	SeatNo    int    `json:"seatNo"`
}

// ReconcileSummary reports the effect of applying one upload batch. A batch
// where every row was already on file has RowsApplied > 0 and
// EntitiesCreated == 0, which is distinct from a failed batch (error, no
// summary at all).
type ReconcileSummary struct {
	RowsApplied     int `json:"rows_applied"`
	EntitiesCreated int `json:"entities_created"`
	EntitiesSkipped int `json:"entities_skipped"`
}
