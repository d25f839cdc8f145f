package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/campus-labs/attendance-api/internal/models"
	appErrors "github.com/campus-labs/attendance-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context) ([]models.CourseWithSections, error)
	Delete(ctx context.Context, id string) (bool, error)
	FindSectionByID(ctx context.Context, id string) (*models.ClassSectionDetail, error)
	ListSectionDates(ctx context.Context, classSectionID string) ([]models.SessionDate, error)
}

type studentLookup interface {
	FindByMatricNo(ctx context.Context, matricNo string) (*models.Student, error)
}

type enrollmentWriter interface {
	Enroll(ctx context.Context, classSectionID, studentID string, seatNo int) (int, int, error)
	SectionRoster(ctx context.Context, classSectionID string) ([]models.SectionRosterEntry, error)
}

// CourseService covers course reads, cascade deletion and single-student
// enrollment.
type CourseService struct {
	courses     courseRepository
	students    studentLookup
	enrollments enrollmentWriter
	logger      *zap.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(courses courseRepository, students studentLookup, enrollments enrollmentWriter, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{courses: courses, students: students, enrollments: enrollments, logger: logger}
}

// List returns all courses with their class sections.
func (s *CourseService) List(ctx context.Context) ([]models.CourseWithSections, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// Delete removes a course and everything it owns: class sections, session
// dates and enrollment records all cascade.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	deleted, err := s.courses.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	s.logger.Info("course deleted", zap.String("course_id", id))
	return nil
}

// SectionDetail returns a class section with its session dates.
func (s *CourseService) SectionDetail(ctx context.Context, sectionID string) (*models.ClassSectionDetail, []models.SessionDate, error) {
	section, err := s.courses.FindSectionByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "class section not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class section")
	}
	dates, err := s.courses.ListSectionDates(ctx, sectionID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session dates")
	}
	return section, dates, nil
}

// SectionRoster returns the enrolled students of a class section with their
// section-wide seat numbers.
func (s *CourseService) SectionRoster(ctx context.Context, sectionID string) ([]models.SectionRosterEntry, error) {
	if _, err := s.courses.FindSectionByID(ctx, sectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class section")
	}
	entries, err := s.enrollments.SectionRoster(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section roster")
	}
	return entries, nil
}

// EnrollResult reports the effect of enrolling one student.
type EnrollResult struct {
	SeatNo       int `json:"seat_no"`
	RecordsAdded int `json:"records_added"`
}

// Enroll adds one student to a class section. The next free seat is
// allocated and the same seat lands on every session date of the section.
// Re-enrolling an already enrolled student is a no-op reporting zero added
// records.
func (s *CourseService) Enroll(ctx context.Context, sectionID, matricNo string) (*EnrollResult, error) {
	if _, err := s.courses.FindSectionByID(ctx, sectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class section")
	}

	student, err := s.students.FindByMatricNo(ctx, matricNo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnknownStudent, "student "+matricNo+" is not on file")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	seat, created, err := s.enrollments.Enroll(ctx, sectionID, student.ID, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}

	s.logger.Info("student enrolled",
		zap.String("class_section_id", sectionID),
		zap.String("matric_no", matricNo),
		zap.Int("seat_no", seat),
		zap.Int("records_added", created))
	return &EnrollResult{SeatNo: seat, RecordsAdded: created}, nil
}
