package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campus-labs/attendance-api/internal/models"
)

// CourseRepository handles persistence of courses and class sections.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns every course with its class sections.
func (r *CourseRepository) List(ctx context.Context) ([]models.CourseWithSections, error) {
	const courseQuery = `SELECT id, code, name, created_at FROM courses ORDER BY code ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, courseQuery); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	const sectionQuery = `SELECT id, course_id, external_id, label, room, created_at FROM class_sections ORDER BY external_id ASC`
	var sections []models.ClassSection
	if err := r.db.SelectContext(ctx, &sections, sectionQuery); err != nil {
		return nil, fmt.Errorf("list class sections: %w", err)
	}

	byCourse := make(map[string][]models.ClassSection, len(courses))
	for _, s := range sections {
		byCourse[s.CourseID] = append(byCourse[s.CourseID], s)
	}

	out := make([]models.CourseWithSections, 0, len(courses))
	for _, c := range courses {
		out = append(out, models.CourseWithSections{Course: c, Sections: byCourse[c.ID]})
	}
	return out, nil
}

// FindByCode returns the course with the given code.
func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	const query = `SELECT id, code, name, created_at FROM courses WHERE code = $1 LIMIT 1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, code); err != nil {
		return nil, err
	}
	return &course, nil
}

// Delete removes a course. Class sections, session dates and enrollment
// records underneath it go with it via the schema's cascade rules.
func (r *CourseRepository) Delete(ctx context.Context, id string) (bool, error) {
	const query = `DELETE FROM courses WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete course: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete course result: %w", err)
	}
	return affected > 0, nil
}

// FindSectionByID returns a class section with its course context.
func (r *CourseRepository) FindSectionByID(ctx context.Context, id string) (*models.ClassSectionDetail, error) {
	const query = `SELECT cs.id, cs.course_id, cs.external_id, cs.label, cs.room, cs.created_at,
        c.code AS course_code, c.name AS course_name
        FROM class_sections cs
        JOIN courses c ON c.id = cs.course_id
        WHERE cs.id = $1`
	var section models.ClassSectionDetail
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// ListSectionDates returns every session date of a class section.
func (r *CourseRepository) ListSectionDates(ctx context.Context, classSectionID string) ([]models.SessionDate, error) {
	const query = `SELECT id, class_section_id, date, session_open, created_at FROM session_dates
        WHERE class_section_id = $1 ORDER BY date ASC`
	var dates []models.SessionDate
	if err := r.db.SelectContext(ctx, &dates, query, classSectionID); err != nil {
		return nil, fmt.Errorf("list session dates: %w", err)
	}
	return dates, nil
}
