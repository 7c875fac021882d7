// Package students implements the student service: CRUD with a read-through
// / write-invalidate cache, course enrollment, and statistics.
package students

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/edustack/campus-api/internal/apperr"
	"github.com/edustack/campus-api/internal/cache"
	"github.com/edustack/campus-api/internal/domain/course"
	"github.com/edustack/campus-api/internal/domain/student"
	"github.com/edustack/campus-api/internal/metrics"
	"github.com/edustack/campus-api/internal/storage"
	"github.com/edustack/campus-api/pkg/logger"
)

// CacheTTL is how long a cached student snapshot lives.
const CacheTTL = 3600 * time.Second

var (
	// ErrAlreadyEnrolled reports a duplicate enrollment attempt.
	ErrAlreadyEnrolled = fmt.Errorf("%w: student already enrolled in this course", apperr.ErrConflict)

	// ErrNotEnrolled reports an unenrollment for a course the student does
	// not hold.
	ErrNotEnrolled = fmt.Errorf("%w: student not enrolled in this course", apperr.ErrNotFound)
)

func cacheKey(id string) string { return "student:" + id }

// CourseReader is the slice of the course service enrollment needs. Course
// lookups go through it so they participate in the course cache.
type CourseReader interface {
	Get(ctx context.Context, id string) (course.Course, error)
}

// Service manages students and their enrollment lists.
type Service struct {
	store   storage.Store[student.Student]
	courses CourseReader
	cache   cache.Cache
	log     *logger.Logger
}

// New constructs a student service.
func New(store storage.Store[student.Student], courses CourseReader, c cache.Cache, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("students")
	}
	return &Service{store: store, courses: courses, cache: c, log: log}
}

// Create validates required fields and inserts the student.
func (s *Service) Create(ctx context.Context, st student.Student) (string, error) {
	if err := st.Validate(); err != nil {
		return "", err
	}
	id, err := s.store.Insert(ctx, st)
	if err != nil {
		return "", err
	}
	s.log.WithField("student_id", id).Info("student created")
	return id, nil
}

// Get returns the student by id through the cache. Cache read failures
// degrade to a store lookup; populate failures do not fail the read.
func (s *Service) Get(ctx context.Context, id string) (student.Student, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return student.Student{}, apperr.ErrInvalidID
	}

	key := cacheKey(id)
	var cached student.Student
	hit, err := s.cache.Get(ctx, key, &cached)
	switch {
	case err != nil:
		metrics.RecordCacheOutcome("student", "error")
		s.log.WithError(err).WithField("key", key).Warn("cache read failed, falling back to store")
	case hit:
		metrics.RecordCacheOutcome("student", "hit")
		return cached, nil
	default:
		metrics.RecordCacheOutcome("student", "miss")
	}

	st, err := s.store.GetByID(ctx, id)
	if err != nil {
		return student.Student{}, err
	}
	if err := s.cache.Set(ctx, key, st, CacheTTL); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache populate failed")
	}
	return st, nil
}

// Update merges the provided fields, then invalidates the cache entry.
func (s *Service) Update(ctx context.Context, id string, fields map[string]any) error {
	set := sanitizeFields(fields)
	if len(set) == 0 {
		return &apperr.ValidationError{Field: "update"}
	}
	matched, err := s.store.UpdateByID(ctx, id, set)
	if err != nil {
		return err
	}
	if matched == 0 {
		return apperr.ErrNotFound
	}
	s.invalidate(ctx, id)
	return nil
}

// Delete removes the student, then invalidates the cache entry.
func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return apperr.ErrNotFound
	}
	s.invalidate(ctx, id)
	return nil
}

// List returns all students matching filter as a materialized slice.
func (s *Service) List(ctx context.Context, filter map[string]any) ([]student.Student, error) {
	return s.store.List(ctx, bson.M(filter))
}

// Enroll appends courseID to the student's enrollment list and invalidates
// the student's cache entry. Both lookups go through the read-by-id
// protocol, so they participate in caching.
//
// The membership check and the append are separate store round-trips: two
// concurrent enrollments for the same pair can both pass the check before
// either append lands. The store's $push does not deduplicate, so the race
// can produce a duplicate entry.
func (s *Service) Enroll(ctx context.Context, studentID, courseID string) error {
	if _, err := primitive.ObjectIDFromHex(studentID); err != nil {
		return apperr.ErrInvalidID
	}
	if _, err := primitive.ObjectIDFromHex(courseID); err != nil {
		return apperr.ErrInvalidID
	}

	st, err := s.Get(ctx, studentID)
	if err != nil {
		return err
	}
	crs, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return err
	}
	if st.Enrolled(crs.ID) {
		return ErrAlreadyEnrolled
	}

	update := bson.M{"$push": bson.M{"courses": crs.ID}}
	if len(st.Courses) == 0 {
		update = bson.M{"$set": bson.M{"courses": primitive.A{crs.ID}}}
	}
	matched, err := s.store.Apply(ctx, studentID, update)
	if err != nil {
		return err
	}
	if matched == 0 {
		return apperr.ErrNotFound
	}
	s.invalidate(ctx, studentID)
	s.log.WithField("student_id", studentID).WithField("course_id", courseID).Info("student enrolled")
	return nil
}

// Unenroll removes courseID from the student's enrollment list. The
// membership requirement is checked against the fetched document only; a
// course the student never held yields ErrNotEnrolled with no mutation.
func (s *Service) Unenroll(ctx context.Context, studentID, courseID string) error {
	if _, err := primitive.ObjectIDFromHex(studentID); err != nil {
		return apperr.ErrInvalidID
	}
	if _, err := primitive.ObjectIDFromHex(courseID); err != nil {
		return apperr.ErrInvalidID
	}

	st, err := s.Get(ctx, studentID)
	if err != nil {
		return err
	}
	crs, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return err
	}
	if !st.Enrolled(crs.ID) {
		return ErrNotEnrolled
	}

	matched, err := s.store.Apply(ctx, studentID, bson.M{"$pull": bson.M{"courses": crs.ID}})
	if err != nil {
		return err
	}
	if matched == 0 {
		return apperr.ErrNotFound
	}
	s.invalidate(ctx, studentID)
	s.log.WithField("student_id", studentID).WithField("course_id", courseID).Info("student unenrolled")
	return nil
}

// Stats computes aggregate student statistics.
func (s *Service) Stats(ctx context.Context) (student.Stats, error) {
	total, err := s.store.Count(ctx, nil)
	if err != nil {
		return student.Stats{}, err
	}
	return student.Stats{TotalStudents: total}, nil
}

func (s *Service) invalidate(ctx context.Context, id string) {
	key := cacheKey(id)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache invalidation failed")
	}
}

func sanitizeFields(fields map[string]any) bson.M {
	out := make(bson.M, len(fields))
	for k, v := range fields {
		if k == "_id" || strings.HasPrefix(k, "$") {
			continue
		}
		out[k] = v
	}
	return out
}
