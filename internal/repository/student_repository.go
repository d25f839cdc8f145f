package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/campus-labs/attendance-api/internal/models"
)

// StudentRepository handles persistence of student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByMatricNo returns the student with the given matriculation number.
func (r *StudentRepository) FindByMatricNo(ctx context.Context, matricNo string) (*models.Student, error) {
	const query = `SELECT id, matric_no, full_name, email, created_at FROM students WHERE matric_no = $1 LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, matricNo); err != nil {
		return nil, err
	}
	return &student, nil
}

// List returns students filtered by an optional search term.
func (r *StudentRepository) List(ctx context.Context, search string, page, pageSize int) ([]models.Student, int, error) {
	where := "1=1"
	args := []interface{}{}
	if search != "" {
		where = "(matric_no ILIKE $1 OR full_name ILIKE $1)"
		args = append(args, "%"+strings.TrimSpace(search)+"%")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT id, matric_no, full_name, email, created_at FROM students WHERE %s
        ORDER BY matric_no ASC LIMIT %d OFFSET %d`, where, pageSize, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM students WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}
