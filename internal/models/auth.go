package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims carries the authenticated user identity inside access tokens.
type JWTClaims struct {
	UserID string   `json:"uid"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

// LoginRequest is the credentials payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginResponse is returned after successful authentication.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	User        UserInfo  `json:"user"`
}

// UserInfo is the redacted user view embedded in auth responses.
type UserInfo struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
}

// RegisterStaffRequest creates a staff login plus its staff record.
type RegisterStaffRequest struct {
	Email      string `json:"email" validate:"required,email,campus_email"`
	Password   string `json:"password" validate:"required,min=8,max=64"`
	FullName   string `json:"full_name" validate:"required,max=100"`
	EmployeeNo string `json:"employee_no" validate:"required,max=20"`
	Role       string `json:"role" validate:"required,staff_role"`
}
