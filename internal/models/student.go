package models

import "time"

// Student is identified by its matriculation number.
type Student struct {
	ID        string    `db:"id" json:"id"`
	MatricNo  string    `db:"matric_no" json:"matric_no"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
