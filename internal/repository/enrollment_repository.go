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

// EnrollmentRepository handles enrollment records: seat allocation, presence
// transitions and roster reads.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// MarkPresent applies the idempotent Absent -> Present transition for the
// student identified by matric number on the given session date. The open
// check, the enrollment lookup and the write share one transaction so a
// concurrent stop cannot slip between check and act.
func (r *EnrollmentRepository) MarkPresent(ctx context.Context, sessionDateID, matricNo string) (models.MarkOutcome, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin mark present: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	var open bool
	const openQuery = `SELECT session_open FROM session_dates WHERE id = $1`
	if err := tx.GetContext(ctx, &open, openQuery, sessionDateID); err != nil {
		return "", err
	}
	if !open {
		return "", ErrSessionClosed
	}

	var record struct {
		ID     string                `db:"id"`
		Status models.PresenceStatus `db:"status"`
	}
	const recordQuery = `SELECT er.id, er.status FROM enrollment_records er
        JOIN students s ON s.id = er.student_id
        WHERE er.session_date_id = $1 AND s.matric_no = $2 FOR UPDATE OF er`
	if err := tx.GetContext(ctx, &record, recordQuery, sessionDateID, matricNo); err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotEnrolled
		}
		return "", fmt.Errorf("find enrollment record: %w", err)
	}

	if record.Status == models.PresencePresent {
		if err := tx.Commit(); err != nil {
			return "", fmt.Errorf("commit mark present: %w", err)
		}
		committed = true
		return models.MarkAlreadyPresent, nil
	}

	const markQuery = `UPDATE enrollment_records SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, markQuery, record.ID, models.PresencePresent, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("mark present: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit mark present: %w", err)
	}
	committed = true
	return models.MarkApplied, nil
}

// RevertAbsent is the privileged edit that puts an enrollment record back to
// Absent. It deliberately ignores the session window state.
func (r *EnrollmentRepository) RevertAbsent(ctx context.Context, sessionDateID, matricNo string) error {
	const query = `UPDATE enrollment_records SET status = $3, updated_at = $4
        WHERE session_date_id = $1 AND student_id = (SELECT id FROM students WHERE matric_no = $2)`
	res, err := r.db.ExecContext(ctx, query, sessionDateID, matricNo, models.PresenceAbsent, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("revert absent: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revert absent result: %w", err)
	}
	if affected == 0 {
		return ErrNotEnrolled
	}
	return nil
}

// Enroll adds one student to every session date of a class section, all rows
// carrying the same seat number. When seatNo is zero the next free seat
// (max existing + 1, or 1) is computed inside the same transaction. A
// transaction-scoped advisory lock on the section serialises concurrent seat
// allocations for the same section.
func (r *EnrollmentRepository) Enroll(ctx context.Context, classSectionID, studentID string, seatNo int) (int, int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin enroll: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	seat, created, err := enrollInTx(ctx, tx, classSectionID, studentID, seatNo)
	if err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit enroll: %w", err)
	}
	committed = true
	return seat, created, nil
}

// enrollInTx performs the seat lookup and the per-date inserts on an open
// transaction. Shared with the roster reconciler so upload batches keep
// their single-transaction contract.
func enrollInTx(ctx context.Context, tx *sqlx.Tx, classSectionID, studentID string, seatNo int) (int, int, error) {
	const lockQuery = `SELECT pg_advisory_xact_lock(hashtext($1))`
	if _, err := tx.ExecContext(ctx, lockQuery, classSectionID); err != nil {
		return 0, 0, fmt.Errorf("lock section for enroll: %w", err)
	}

	// A returning student keeps the seat already on file for this section.
	var existingSeat sql.NullInt64
	const seatQuery = `SELECT MIN(er.seat_no) FROM enrollment_records er
        JOIN session_dates sd ON sd.id = er.session_date_id
        WHERE sd.class_section_id = $1 AND er.student_id = $2`
	if err := tx.GetContext(ctx, &existingSeat, seatQuery, classSectionID, studentID); err != nil {
		return 0, 0, fmt.Errorf("find existing seat: %w", err)
	}

	seat := seatNo
	if existingSeat.Valid {
		seat = int(existingSeat.Int64)
	} else if seat <= 0 {
		const nextSeatQuery = `SELECT COALESCE(MAX(er.seat_no), 0) + 1 FROM enrollment_records er
        JOIN session_dates sd ON sd.id = er.session_date_id
        WHERE sd.class_section_id = $1`
		if err := tx.GetContext(ctx, &seat, nextSeatQuery, classSectionID); err != nil {
			return 0, 0, fmt.Errorf("allocate seat: %w", err)
		}
	}

	var dateIDs []string
	const datesQuery = `SELECT id FROM session_dates WHERE class_section_id = $1 ORDER BY date ASC`
	if err := tx.SelectContext(ctx, &dateIDs, datesQuery, classSectionID); err != nil {
		return 0, 0, fmt.Errorf("list section dates for enroll: %w", err)
	}

	created := 0
	const insertQuery = `INSERT INTO enrollment_records (id, session_date_id, student_id, seat_no, status, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (session_date_id, student_id) DO NOTHING`
	now := time.Now().UTC()
	for _, dateID := range dateIDs {
		res, err := tx.ExecContext(ctx, insertQuery, uuid.NewString(), dateID, studentID, seat, models.PresenceAbsent, now)
		if err != nil {
			return 0, 0, fmt.Errorf("insert enrollment record: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, 0, fmt.Errorf("insert enrollment result: %w", err)
		}
		created += int(affected)
	}
	return seat, created, nil
}

// Roster returns every enrollment record for a session date with student
// identity, ordered by seat.
func (r *EnrollmentRepository) Roster(ctx context.Context, sessionDateID string) ([]models.RosterRow, error) {
	const query = `SELECT er.id, er.session_date_id, er.student_id, er.seat_no, er.status, er.updated_at,
        s.matric_no, s.full_name AS student_name
        FROM enrollment_records er
        JOIN students s ON s.id = er.student_id
        WHERE er.session_date_id = $1
        ORDER BY er.seat_no ASC`
	var rows []models.RosterRow
	if err := r.db.SelectContext(ctx, &rows, query, sessionDateID); err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	return rows, nil
}

// SectionRoster returns each enrolled student of a class section once,
// ordered by seat.
func (r *EnrollmentRepository) SectionRoster(ctx context.Context, classSectionID string) ([]models.SectionRosterEntry, error) {
	const query = `SELECT DISTINCT er.student_id, s.matric_no, s.full_name AS student_name, s.email, er.seat_no
        FROM enrollment_records er
        JOIN session_dates sd ON sd.id = er.session_date_id
        JOIN students s ON s.id = er.student_id
        WHERE sd.class_section_id = $1
        ORDER BY er.seat_no ASC`
	var entries []models.SectionRosterEntry
	if err := r.db.SelectContext(ctx, &entries, query, classSectionID); err != nil {
		return nil, fmt.Errorf("load section roster: %w", err)
	}
	return entries, nil
}

// Absentees returns the still-absent enrollees of a session date with their
// contact addresses. The result is stable across repeated calls; no sent
// marker exists.
func (r *EnrollmentRepository) Absentees(ctx context.Context, sessionDateID string) ([]models.Absentee, error) {
	const query = `SELECT er.student_id, s.matric_no, s.full_name AS student_name, s.email, er.seat_no
        FROM enrollment_records er
        JOIN students s ON s.id = er.student_id
        WHERE er.session_date_id = $1 AND er.status = $2
        ORDER BY er.seat_no ASC`
	var absentees []models.Absentee
	if err := r.db.SelectContext(ctx, &absentees, query, sessionDateID, models.PresenceAbsent); err != nil {
		return nil, fmt.Errorf("load absentees: %w", err)
	}
	return absentees, nil
}

// CountByStatus returns present and absent totals for a session date.
func (r *EnrollmentRepository) CountByStatus(ctx context.Context, sessionDateID string) (present, absent int, err error) {
	const query = `SELECT
        COUNT(*) FILTER (WHERE status = 'PRESENT') AS present,
        COUNT(*) FILTER (WHERE status = 'ABSENT') AS absent
        FROM enrollment_records WHERE session_date_id = $1`
	var counts struct {
		Present int `db:"present"`
		Absent  int `db:"absent"`
	}
	if err := r.db.GetContext(ctx, &counts, query, sessionDateID); err != nil {
		return 0, 0, fmt.Errorf("count presence: %w", err)
	}
	return counts.Present, counts.Absent, nil
}
