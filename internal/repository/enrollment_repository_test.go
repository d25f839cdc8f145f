package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/campus-labs/attendance-api/internal/models"
)

func TestEnrollmentRepositoryMarkPresentApplied(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT session_open FROM session_dates WHERE id = $1")).
		WithArgs("sd-1").
		WillReturnRows(sqlmock.NewRows([]string{"session_open"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF er")).
		WithArgs("sd-1", "U1922103F").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow("er-1", models.PresenceAbsent))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollment_records SET status = $2")).
		WithArgs("er-1", models.PresencePresent, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome, err := repo.MarkPresent(context.Background(), "sd-1", "U1922103F")
	require.NoError(t, err)
	require.Equal(t, models.MarkApplied, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryMarkPresentAlreadyPresent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT session_open FROM session_dates WHERE id = $1")).
		WithArgs("sd-1").
		WillReturnRows(sqlmock.NewRows([]string{"session_open"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF er")).
		WithArgs("sd-1", "U1922103F").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow("er-1", models.PresencePresent))
	mock.ExpectCommit()

	outcome, err := repo.MarkPresent(context.Background(), "sd-1", "U1922103F")
	require.NoError(t, err)
	require.Equal(t, models.MarkAlreadyPresent, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryMarkPresentSessionClosed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT session_open FROM session_dates WHERE id = $1")).
		WithArgs("sd-1").
		WillReturnRows(sqlmock.NewRows([]string{"session_open"}).AddRow(false))
	mock.ExpectRollback()

	_, err := repo.MarkPresent(context.Background(), "sd-1", "U1922103F")
	require.ErrorIs(t, err, ErrSessionClosed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryMarkPresentUnknownStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT session_open FROM session_dates WHERE id = $1")).
		WithArgs("sd-1").
		WillReturnRows(sqlmock.NewRows([]string{"session_open"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE OF er")).
		WithArgs("sd-1", "U0000000X").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}))
	mock.ExpectRollback()

	_, err := repo.MarkPresent(context.Background(), "sd-1", "U0000000X")
	require.ErrorIs(t, err, ErrNotEnrolled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryRevertAbsent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollment_records SET status = $3")).
		WithArgs("sd-1", "U1922103F", models.PresenceAbsent, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RevertAbsent(context.Background(), "sd-1", "U1922103F"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryRevertAbsentNotEnrolled(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollment_records SET status = $3")).
		WithArgs("sd-1", "U0000000X", models.PresenceAbsent, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RevertAbsent(context.Background(), "sd-1", "U0000000X")
	require.ErrorIs(t, err, ErrNotEnrolled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func expectSeatAllocation(mock sqlmock.Sqlmock, sectionID, studentID string, existing *int, nextSeat int, dateIDs []string, insertedPerDate int64) {
	mock.ExpectExec(regexp.QuoteMeta("pg_advisory_xact_lock")).
		WithArgs(sectionID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	seatRows := sqlmock.NewRows([]string{"min"})
	if existing != nil {
		seatRows.AddRow(*existing)
	} else {
		seatRows.AddRow(nil)
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT MIN(er.seat_no)")).
		WithArgs(sectionID, studentID).
		WillReturnRows(seatRows)

	seat := nextSeat
	if existing == nil {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(er.seat_no), 0) + 1")).
			WithArgs(sectionID).
			WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(nextSeat))
	} else {
		seat = *existing
	}

	dateRows := sqlmock.NewRows([]string{"id"})
	for _, id := range dateIDs {
		dateRows.AddRow(id)
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM session_dates WHERE class_section_id = $1 ORDER BY date ASC")).
		WithArgs(sectionID).
		WillReturnRows(dateRows)

	for _, dateID := range dateIDs {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollment_records")).
			WithArgs(sqlmock.AnyArg(), dateID, studentID, seat, models.PresenceAbsent, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, insertedPerDate))
	}
}

func TestEnrollmentRepositoryEnrollAllocatesNextSeat(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	expectSeatAllocation(mock, "sec-1", "stu-1", nil, 3, []string{"sd-1", "sd-2"}, 1)
	mock.ExpectCommit()

	seat, created, err := repo.Enroll(context.Background(), "sec-1", "stu-1", 0)
	require.NoError(t, err)
	require.Equal(t, 3, seat)
	require.Equal(t, 2, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollReturningStudentKeepsSeat(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	existing := 7
	mock.ExpectBegin()
	expectSeatAllocation(mock, "sec-1", "stu-1", &existing, 0, []string{"sd-1", "sd-2"}, 0)
	mock.ExpectCommit()

	seat, created, err := repo.Enroll(context.Background(), "sec-1", "stu-1", 0)
	require.NoError(t, err)
	require.Equal(t, 7, seat)
	require.Equal(t, 0, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryAbsentees(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "matric_no", "student_name", "email", "seat_no"}).
		AddRow("stu-1", "U1922103F", "Tan Wei Ming", "u1922103f@e.ntu.edu.sg", 1).
		AddRow("stu-2", "U1922104G", "Lim Hui Ling", "u1922104g@e.ntu.edu.sg", 4)
	mock.ExpectQuery(regexp.QuoteMeta("er.status = $2")).
		WithArgs("sd-1", models.PresenceAbsent).
		WillReturnRows(rows)

	absentees, err := repo.Absentees(context.Background(), "sd-1")
	require.NoError(t, err)
	require.Len(t, absentees, 2)
	require.Equal(t, "U1922103F", absentees[0].MatricNo)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollment_records WHERE session_date_id = $1")).
		WithArgs("sd-1").
		WillReturnRows(sqlmock.NewRows([]string{"present", "absent"}).AddRow(18, 3))

	present, absent, err := repo.CountByStatus(context.Background(), "sd-1")
	require.NoError(t, err)
	require.Equal(t, 18, present)
	require.Equal(t, 3, absent)
	require.NoError(t, mock.ExpectationsWereMet())
}
