package models

// Class is a class the student is enrolled in.
type Class struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	CourseID string `json:"courseId,omitempty"`
}
