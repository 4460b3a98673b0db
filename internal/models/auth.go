package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the roles carried by access tokens.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// JWTClaims represents the access token claims issued by the auth provider.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	StudentID string   `json:"student_id,omitempty"`
	jwt.RegisteredClaims
}

// SubjectStudentID is the student a STUDENT token speaks for.
func (c *JWTClaims) SubjectStudentID() string {
	if c.StudentID != "" {
		return c.StudentID
	}
	return c.UserID
}
