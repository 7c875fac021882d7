// Package student defines the student entity. Enrollment is an ordered list
// of course identities on the student document; the service layer enforces
// unique membership, not the store.
package student

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/edustack/campus-api/internal/apperr"
)

// Student is a registered student.
type Student struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"_id,omitempty"`
	FirstName string               `bson:"firstName" json:"firstName"`
	LastName  string               `bson:"lastName" json:"lastName"`
	Email     string               `bson:"email" json:"email"`
	Courses   []primitive.ObjectID `bson:"courses,omitempty" json:"courses,omitempty"`
}

// Validate checks the required fields for creation.
func (s *Student) Validate() error {
	if strings.TrimSpace(s.FirstName) == "" {
		return &apperr.ValidationError{Field: "firstName"}
	}
	if strings.TrimSpace(s.LastName) == "" {
		return &apperr.ValidationError{Field: "lastName"}
	}
	if strings.TrimSpace(s.Email) == "" {
		return &apperr.ValidationError{Field: "email"}
	}
	return nil
}

// Enrolled reports whether the student's course list contains id.
func (s *Student) Enrolled(id primitive.ObjectID) bool {
	for _, c := range s.Courses {
		if c == id {
			return true
		}
	}
	return false
}

// Stats aggregates point-in-time student statistics.
type Stats struct {
	TotalStudents int64 `json:"totalStudents"`
}
