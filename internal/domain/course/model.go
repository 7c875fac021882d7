// Package course defines the course entity and its aggregate statistics.
package course

import (
	"encoding/json"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/edustack/campus-api/internal/apperr"
)

// Course is a catalog entry. Title and description are required; callers may
// attach arbitrary additional fields, which round-trip through both the
// document store (inline bson) and JSON payloads (flattened).
type Course struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Extra       map[string]any     `bson:",inline"`
}

// Validate checks the required fields for creation.
func (c *Course) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return &apperr.ValidationError{Field: "title"}
	}
	if strings.TrimSpace(c.Description) == "" {
		return &apperr.ValidationError{Field: "description"}
	}
	return nil
}

// MarshalJSON flattens Extra alongside the declared fields.
func (c Course) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Extra)+3)
	for k, v := range c.Extra {
		out[k] = v
	}
	if !c.ID.IsZero() {
		out["_id"] = c.ID.Hex()
	}
	out["title"] = c.Title
	out["description"] = c.Description
	return json.Marshal(out)
}

// UnmarshalJSON collects unknown keys into Extra.
func (c *Course) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if raw, ok := m["_id"]; ok {
		if err := json.Unmarshal(raw, &c.ID); err != nil {
			return err
		}
		delete(m, "_id")
	}
	if raw, ok := m["title"]; ok {
		if err := json.Unmarshal(raw, &c.Title); err != nil {
			return err
		}
		delete(m, "title")
	}
	if raw, ok := m["description"]; ok {
		if err := json.Unmarshal(raw, &c.Description); err != nil {
			return err
		}
		delete(m, "description")
	}
	if len(m) == 0 {
		c.Extra = nil
		return nil
	}
	c.Extra = make(map[string]any, len(m))
	for k, raw := range m {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		c.Extra[k] = v
	}
	return nil
}

// EnrollmentCount pairs a course with the number of students enrolled in it.
type EnrollmentCount struct {
	CourseID     primitive.ObjectID `json:"courseId"`
	StudentCount int64              `json:"studentCount"`
}

// Stats aggregates point-in-time course statistics. Individual counts are
// independent snapshots; no cross-count consistency is guaranteed.
type Stats struct {
	TotalCourses             int64            `json:"totalCourses"`
	CourseWithMostStudents   *EnrollmentCount `json:"courseWithMostStudents"`
	AverageStudentsPerCourse float64          `json:"averageStudentsPerCourse"`
	TotalStudentsRegistered  int64            `json:"totalStudentsRegistered"`
	CoursesWithoutStudents   int              `json:"coursesWithoutStudents"`
}
