package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-labs/attendance-api/internal/models"
)

// UnresolvedError names a referenced record an upload row expected to find
// on file. It aborts the whole batch.
type UnresolvedError struct {
	Kind string
	Ref  string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("%s %q is not on file", e.Kind, e.Ref)
}

// RosterRepository merges upload batches into the entity graph using
// find-or-create per natural key. Each batch runs in a single transaction:
// either every row lands or none does.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository constructs the repository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// ApplyCourseBatch reconciles course upload rows. Entities are resolved in
// dependency order (course, section, session date, staff assignment) and
// every creation is flushed with INSERT ... RETURNING before anything later
// in the row references its identifier. A row naming a staff member that is
// not on file aborts the batch with an UnresolvedError.
func (r *RosterRepository) ApplyCourseBatch(ctx context.Context, rows []models.CourseUploadRow) (models.ReconcileSummary, error) {
	var summary models.ReconcileSummary

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("begin course batch: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	for _, row := range rows {
		courseID, created, err := findOrCreateCourse(ctx, tx, row.CourseCode, row.CourseName)
		if err != nil {
			return models.ReconcileSummary{}, err
		}
		tally(&summary, created)

		sectionID, created, err := findOrCreateSection(ctx, tx, courseID, row.SectionID, row.SectionLabel, row.Room)
		if err != nil {
			return models.ReconcileSummary{}, err
		}
		tally(&summary, created)

		_, created, err = findOrCreateSessionDate(ctx, tx, sectionID, row.Date)
		if err != nil {
			return models.ReconcileSummary{}, err
		}
		tally(&summary, created)

		var staffID string
		const staffQuery = `SELECT id FROM staff WHERE employee_no = $1`
		if err := tx.GetContext(ctx, &staffID, staffQuery, row.StaffEmployeeNo); err != nil {
			if err == sql.ErrNoRows {
				return models.ReconcileSummary{}, &UnresolvedError{Kind: "staff", Ref: row.StaffEmployeeNo}
			}
			return models.ReconcileSummary{}, fmt.Errorf("find staff: %w", err)
		}

		_, created, err = findOrCreateAssignment(ctx, tx, sectionID, staffID)
		if err != nil {
			return models.ReconcileSummary{}, err
		}
		tally(&summary, created)

		summary.RowsApplied++
	}

	if err := tx.Commit(); err != nil {
		return models.ReconcileSummary{}, fmt.Errorf("commit course batch: %w", err)
	}
	committed = true
	return summary, nil
}

// ApplyStudentBatch reconciles student upload rows against the matric
// number natural key.
func (r *RosterRepository) ApplyStudentBatch(ctx context.Context, rows []models.StudentUploadRow) (models.ReconcileSummary, error) {
	var summary models.ReconcileSummary

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("begin student batch: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	for _, row := range rows {
		var existingID string
		const findQuery = `SELECT id FROM students WHERE matric_no = $1`
		err := tx.GetContext(ctx, &existingID, findQuery, row.StudentID)
		switch {
		case err == sql.ErrNoRows:
			const insertQuery = `INSERT INTO students (id, matric_no, full_name, email, created_at)
        VALUES ($1, $2, $3, $4, $5) RETURNING id`
			var id string
			if err := tx.QueryRowxContext(ctx, insertQuery, uuid.NewString(), row.StudentID, row.StudentName, row.StudentEmail, time.Now().UTC()).Scan(&id); err != nil {
				return models.ReconcileSummary{}, fmt.Errorf("create student: %w", err)
			}
			summary.EntitiesCreated++
		case err != nil:
			return models.ReconcileSummary{}, fmt.Errorf("find student: %w", err)
		default:
			summary.EntitiesSkipped++
		}
		summary.RowsApplied++
	}

	if err := tx.Commit(); err != nil {
		return models.ReconcileSummary{}, fmt.Errorf("commit student batch: %w", err)
	}
	committed = true
	return summary, nil
}

// ApplyRosterBatch reconciles attendance roster rows, enrolling each student
// into every session date of the named section with one stable seat number.
// Sections and students must already be on file.
func (r *RosterRepository) ApplyRosterBatch(ctx context.Context, rows []models.RosterUploadRow) (models.ReconcileSummary, error) {
	var summary models.ReconcileSummary

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("begin roster batch: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	for _, row := range rows {
		var sectionID string
		const sectionQuery = `SELECT id FROM class_sections WHERE external_id = $1`
		if err := tx.GetContext(ctx, &sectionID, sectionQuery, row.SectionID); err != nil {
			if err == sql.ErrNoRows {
				return models.ReconcileSummary{}, &UnresolvedError{Kind: "class section", Ref: row.SectionID}
			}
			return models.ReconcileSummary{}, fmt.Errorf("find class section: %w", err)
		}

		var studentID string
		const studentQuery = `SELECT id FROM students WHERE matric_no = $1`
		if err := tx.GetContext(ctx, &studentID, studentQuery, row.StudentID); err != nil {
			if err == sql.ErrNoRows {
				return models.ReconcileSummary{}, &UnresolvedError{Kind: "student", Ref: row.StudentID}
			}
			return models.ReconcileSummary{}, fmt.Errorf("find student: %w", err)
		}

		_, created, err := enrollInTx(ctx, tx, sectionID, studentID, row.SeatNo)
		if err != nil {
			return models.ReconcileSummary{}, err
		}
		if created > 0 {
			summary.EntitiesCreated += created
		} else {
			summary.EntitiesSkipped++
		}
		summary.RowsApplied++
	}

	if err := tx.Commit(); err != nil {
		return models.ReconcileSummary{}, fmt.Errorf("commit roster batch: %w", err)
	}
	committed = true
	return summary, nil
}

func tally(summary *models.ReconcileSummary, created bool) {
	if created {
		summary.EntitiesCreated++
	} else {
		summary.EntitiesSkipped++
	}
}

func findOrCreateCourse(ctx context.Context, tx *sqlx.Tx, code, name string) (string, bool, error) {
	var id string
	const findQuery = `SELECT id FROM courses WHERE code = $1`
	err := tx.GetContext(ctx, &id, findQuery, code)
	if err == nil {
		return id, false, nil
	}
	if err != sql.ErrNoRows {
		return "", false, fmt.Errorf("find course: %w", err)
	}
	const insertQuery = `INSERT INTO courses (id, code, name, created_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := tx.QueryRowxContext(ctx, insertQuery, uuid.NewString(), code, name, time.Now().UTC()).Scan(&id); err != nil {
		return "", false, fmt.Errorf("create course: %w", err)
	}
	return id, true, nil
}

func findOrCreateSection(ctx context.Context, tx *sqlx.Tx, courseID, externalID, label, room string) (string, bool, error) {
	var id string
	const findQuery = `SELECT id FROM class_sections WHERE course_id = $1 AND external_id = $2`
	err := tx.GetContext(ctx, &id, findQuery, courseID, externalID)
	if err == nil {
		return id, false, nil
	}
	if err != sql.ErrNoRows {
		return "", false, fmt.Errorf("find class section: %w", err)
	}
	const insertQuery = `INSERT INTO class_sections (id, course_id, external_id, label, room, created_at)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := tx.QueryRowxContext(ctx, insertQuery, uuid.NewString(), courseID, externalID, label, room, time.Now().UTC()).Scan(&id); err != nil {
		return "", false, fmt.Errorf("create class section: %w", err)
	}
	return id, true, nil
}

func findOrCreateSessionDate(ctx context.Context, tx *sqlx.Tx, sectionID string, date time.Time) (string, bool, error) {
	var id string
	const findQuery = `SELECT id FROM session_dates WHERE class_section_id = $1 AND date = $2`
	err := tx.GetContext(ctx, &id, findQuery, sectionID, date)
	if err == nil {
		return id, false, nil
	}
	if err != sql.ErrNoRows {
		return "", false, fmt.Errorf("find session date: %w", err)
	}
	const insertQuery = `INSERT INTO session_dates (id, class_section_id, date, session_open, created_at)
        VALUES ($1, $2, $3, FALSE, $4) RETURNING id`
	if err := tx.QueryRowxContext(ctx, insertQuery, uuid.NewString(), sectionID, date, time.Now().UTC()).Scan(&id); err != nil {
		return "", false, fmt.Errorf("create session date: %w", err)
	}
	return id, true, nil
}

func findOrCreateAssignment(ctx context.Context, tx *sqlx.Tx, sectionID, staffID string) (string, bool, error) {
	var id string
	const findQuery = `SELECT id FROM staff_assignments WHERE class_section_id = $1 AND staff_id = $2`
	err := tx.GetContext(ctx, &id, findQuery, sectionID, staffID)
	if err == nil {
		return id, false, nil
	}
	if err != sql.ErrNoRows {
		return "", false, fmt.Errorf("find staff assignment: %w", err)
	}
	const insertQuery = `INSERT INTO staff_assignments (id, class_section_id, staff_id, created_at)
        VALUES ($1, $2, $3, $4) RETURNING id`
	if err := tx.QueryRowxContext(ctx, insertQuery, uuid.NewString(), sectionID, staffID, time.Now().UTC()).Scan(&id); err != nil {
		return "", false, fmt.Errorf("create staff assignment: %w", err)
	}
	return id, true, nil
}
