package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/campus-labs/attendance-api/internal/models"
)

func courseRow(staffNo string) models.CourseUploadRow {
	return models.CourseUploadRow{
		CourseCode:      "CZ3002",
		CourseName:      "Advanced Software Engineering",
		SectionID:       "101",
		SectionLabel:    "SSP1",
		Room:            "SWLAB3",
		Date:            time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		StaffEmployeeNo: staffNo,
	}
}

func TestRosterRepositoryApplyCourseBatchCreatesGraph(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)
	row := courseRow("EMP001")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM courses WHERE code = $1")).
		WithArgs(row.CourseCode).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO courses")).
		WithArgs(sqlmock.AnyArg(), row.CourseCode, row.CourseName, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("course-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM class_sections WHERE course_id = $1 AND external_id = $2")).
		WithArgs("course-1", row.SectionID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO class_sections")).
		WithArgs(sqlmock.AnyArg(), "course-1", row.SectionID, row.SectionLabel, row.Room, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sec-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM session_dates WHERE class_section_id = $1 AND date = $2")).
		WithArgs("sec-1", row.Date).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO session_dates")).
		WithArgs(sqlmock.AnyArg(), "sec-1", row.Date, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sd-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM staff WHERE employee_no = $1")).
		WithArgs(row.StaffEmployeeNo).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("staff-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM staff_assignments WHERE class_section_id = $1 AND staff_id = $2")).
		WithArgs("sec-1", "staff-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO staff_assignments")).
		WithArgs(sqlmock.AnyArg(), "sec-1", "staff-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sa-1"))
	mock.ExpectCommit()

	summary, err := repo.ApplyCourseBatch(context.Background(), []models.CourseUploadRow{row})
	require.NoError(t, err)
	require.Equal(t, 1, summary.RowsApplied)
	require.Equal(t, 4, summary.EntitiesCreated)
	require.Equal(t, 0, summary.EntitiesSkipped)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryApplyCourseBatchIdempotent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)
	row := courseRow("EMP001")

	// Re-uploading a batch that is fully on file reports applied rows but
	// zero created entities.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM courses WHERE code = $1")).
		WithArgs(row.CourseCode).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("course-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM class_sections WHERE course_id = $1 AND external_id = $2")).
		WithArgs("course-1", row.SectionID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sec-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM session_dates WHERE class_section_id = $1 AND date = $2")).
		WithArgs("sec-1", row.Date).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sd-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM staff WHERE employee_no = $1")).
		WithArgs(row.StaffEmployeeNo).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("staff-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM staff_assignments WHERE class_section_id = $1 AND staff_id = $2")).
		WithArgs("sec-1", "staff-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sa-1"))
	mock.ExpectCommit()

	summary, err := repo.ApplyCourseBatch(context.Background(), []models.CourseUploadRow{row})
	require.NoError(t, err)
	require.Equal(t, 1, summary.RowsApplied)
	require.Equal(t, 0, summary.EntitiesCreated)
	require.Equal(t, 4, summary.EntitiesSkipped)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryApplyCourseBatchUnknownStaff(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)
	row := courseRow("EMP404")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM courses WHERE code = $1")).
		WithArgs(row.CourseCode).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("course-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM class_sections WHERE course_id = $1 AND external_id = $2")).
		WithArgs("course-1", row.SectionID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sec-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM session_dates WHERE class_section_id = $1 AND date = $2")).
		WithArgs("sec-1", row.Date).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sd-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM staff WHERE employee_no = $1")).
		WithArgs(row.StaffEmployeeNo).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.ApplyCourseBatch(context.Background(), []models.CourseUploadRow{row})
	var unresolved *UnresolvedError
	require.ErrorAs(t, err, &unresolved)
	require.Equal(t, "staff", unresolved.Kind)
	require.Equal(t, "EMP404", unresolved.Ref)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryApplyStudentBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)

	rows := []models.StudentUploadRow{
		{StudentID: "U1922103F", StudentName: "Tan Wei Ming", StudentEmail: "u1922103f@e.ntu.edu.sg"},
		{StudentID: "U1922104G", StudentName: "Lim Hui Ling", StudentEmail: "u1922104g@e.ntu.edu.sg"},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM students WHERE matric_no = $1")).
		WithArgs("U1922103F").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("stu-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM students WHERE matric_no = $1")).
		WithArgs("U1922104G").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO students")).
		WithArgs(sqlmock.AnyArg(), "U1922104G", "Lim Hui Ling", "u1922104g@e.ntu.edu.sg", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("stu-2"))
	mock.ExpectCommit()

	summary, err := repo.ApplyStudentBatch(context.Background(), rows)
	require.NoError(t, err)
	require.Equal(t, 2, summary.RowsApplied)
	require.Equal(t, 1, summary.EntitiesCreated)
	require.Equal(t, 1, summary.EntitiesSkipped)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryApplyRosterBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)

	rows := []models.RosterUploadRow{{SectionID: "101", StudentID: "U1922103F"}}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM class_sections WHERE external_id = $1")).
		WithArgs("101").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sec-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM students WHERE matric_no = $1")).
		WithArgs("U1922103F").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("stu-1"))
	expectSeatAllocation(mock, "sec-1", "stu-1", nil, 1, []string{"sd-1", "sd-2", "sd-3"}, 1)
	mock.ExpectCommit()

	summary, err := repo.ApplyRosterBatch(context.Background(), rows)
	require.NoError(t, err)
	require.Equal(t, 1, summary.RowsApplied)
	require.Equal(t, 3, summary.EntitiesCreated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepositoryApplyRosterBatchUnknownSection(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRosterRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM class_sections WHERE external_id = $1")).
		WithArgs("999").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.ApplyRosterBatch(context.Background(), []models.RosterUploadRow{{SectionID: "999", StudentID: "U1922103F"}})
	var unresolved *UnresolvedError
	require.ErrorAs(t, err, &unresolved)
	require.Equal(t, "class section", unresolved.Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}
