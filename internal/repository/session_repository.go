package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campus-labs/attendance-api/internal/models"
)

// Sentinel errors surfaced by the session gate and presence writes. The
// service layer translates these into typed API outcomes.
var (
	ErrOpenSessionExists = errors.New("another session date of this class section is open")
	ErrSessionClosed     = errors.New("session date is not open")
	ErrNotEnrolled       = errors.New("student has no enrollment record for this session date")
)

const uniqueViolation = "23505"

// SessionRepository handles session-date state, including the attendance
// window gate.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// FindByID returns a session date.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.SessionDate, error) {
	const query = `SELECT id, class_section_id, date, session_open, created_at FROM session_dates WHERE id = $1`
	var sd models.SessionDate
	if err := r.db.GetContext(ctx, &sd, query, id); err != nil {
		return nil, err
	}
	return &sd, nil
}

// FindDetail returns a session date with section and course context.
func (r *SessionRepository) FindDetail(ctx context.Context, id string) (*models.SessionDateDetail, error) {
	const query = `SELECT sd.id, sd.class_section_id, sd.date, sd.session_open, sd.created_at,
        cs.external_id AS section_external_id, cs.label AS section_label,
        c.code AS course_code, c.name AS course_name
        FROM session_dates sd
        JOIN class_sections cs ON cs.id = sd.class_section_id
        JOIN courses c ON c.id = cs.course_id
        WHERE sd.id = $1`
	var detail models.SessionDateDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Open transitions the session date's attendance window to open. The check
// that no other date of the same class section is open and the flag write
// happen in one transaction; the partial unique index on
// (class_section_id) WHERE session_open makes concurrent opens lose cleanly
// instead of both succeeding. Returns ErrOpenSessionExists when the section
// already has an open window (including this date itself: start is only
// legal from the closed state).
func (r *SessionRepository) Open(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin open session: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	var sd models.SessionDate
	const lockQuery = `SELECT id, class_section_id, date, session_open, created_at FROM session_dates WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &sd, lockQuery, id); err != nil {
		return err
	}
	if sd.SessionOpen {
		return ErrOpenSessionExists
	}

	const openQuery = `UPDATE session_dates SET session_open = TRUE
        WHERE id = $1 AND NOT EXISTS (
            SELECT 1 FROM session_dates WHERE class_section_id = $2 AND session_open
        )`
	res, err := tx.ExecContext(ctx, openQuery, id, sd.ClassSectionID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			return ErrOpenSessionExists
		}
		return fmt.Errorf("open session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("open session result: %w", err)
	}
	if affected == 0 {
		return ErrOpenSessionExists
	}

	if err := tx.Commit(); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			return ErrOpenSessionExists
		}
		return fmt.Errorf("commit open session: %w", err)
	}
	committed = true
	return nil
}

// Close clears the attendance window flag. Closing an already-closed session
// date is a no-op, not an error.
func (r *SessionRepository) Close(ctx context.Context, id string) error {
	const query = `UPDATE session_dates SET session_open = FALSE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}
