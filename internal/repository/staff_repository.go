package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campus-labs/attendance-api/internal/models"
)

// StaffRepository handles persistence of staff records.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository constructs the repository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// FindByEmployeeNo returns the staff member with the given employee number.
func (r *StaffRepository) FindByEmployeeNo(ctx context.Context, employeeNo string) (*models.Staff, error) {
	const query = `SELECT id, user_id, full_name, employee_no, role, created_at FROM staff WHERE employee_no = $1 LIMIT 1`
	var staff models.Staff
	if err := r.db.GetContext(ctx, &staff, query, employeeNo); err != nil {
		return nil, err
	}
	return &staff, nil
}

// CreateAccount inserts the login user and its staff record in one
// transaction so a half-created staff account can never be observed.
func (r *StaffRepository) CreateAccount(ctx context.Context, user *models.User, staff *models.Staff) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create staff account: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	const userQuery = `INSERT INTO users (id, email, password_hash, role, active, created_at, updated_at)
        VALUES (:id, :email, :password_hash, :role, :active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, userQuery, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	const staffQuery = `INSERT INTO staff (id, user_id, full_name, employee_no, role, created_at)
        VALUES (:id, :user_id, :full_name, :employee_no, :role, :created_at)`
	if _, err := tx.NamedExecContext(ctx, staffQuery, staff); err != nil {
		return fmt.Errorf("create staff: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create staff account: %w", err)
	}
	committed = true
	return nil
}

// ListAssignments returns the staff assignments for a class section.
func (r *StaffRepository) ListAssignments(ctx context.Context, classSectionID string) ([]models.StaffAssignment, error) {
	const query = `SELECT id, class_section_id, staff_id, created_at FROM staff_assignments WHERE class_section_id = $1`
	var assignments []models.StaffAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, classSectionID); err != nil {
		return nil, fmt.Errorf("list staff assignments: %w", err)
	}
	return assignments, nil
}
