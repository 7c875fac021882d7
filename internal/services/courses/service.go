// Package courses implements the course service: CRUD with a read-through /
// write-invalidate cache, filtered listing, and aggregate statistics.
package courses

import (
	"context"
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

// CacheTTL is how long a cached course snapshot lives. Entries are never
// refreshed by reads.
const CacheTTL = 3600 * time.Second

func cacheKey(id string) string { return "course:" + id }

// Service manages courses. The cache is advisory: cache failures degrade a
// read to a store round-trip and never mask a successful store mutation.
type Service struct {
	store    storage.Store[course.Course]
	students storage.Store[student.Student]
	cache    cache.Cache
	log      *logger.Logger
}

// New constructs a course service. students is consulted only for
// enrollment counts in Stats.
func New(store storage.Store[course.Course], students storage.Store[student.Student], c cache.Cache, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("courses")
	}
	return &Service{store: store, students: students, cache: c, log: log}
}

// Create validates required fields and inserts the course. Nothing is
// cached on create.
func (s *Service) Create(ctx context.Context, c course.Course) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	id, err := s.store.Insert(ctx, c)
	if err != nil {
		return "", err
	}
	s.log.WithField("course_id", id).Info("course created")
	return id, nil
}

// Get returns the course by id, consulting the cache first. A cache read
// failure degrades to a miss; a cache populate failure does not fail the
// read. Absence is never cached.
func (s *Service) Get(ctx context.Context, id string) (course.Course, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return course.Course{}, apperr.ErrInvalidID
	}

	key := cacheKey(id)
	var cached course.Course
	hit, err := s.cache.Get(ctx, key, &cached)
	switch {
	case err != nil:
		metrics.RecordCacheOutcome("course", "error")
		s.log.WithError(err).WithField("key", key).Warn("cache read failed, falling back to store")
	case hit:
		metrics.RecordCacheOutcome("course", "hit")
		return cached, nil
	default:
		metrics.RecordCacheOutcome("course", "miss")
	}

	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return course.Course{}, err
	}
	if err := s.cache.Set(ctx, key, c, CacheTTL); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache populate failed")
	}
	return c, nil
}

// Update merges the provided fields into the course, then invalidates the
// cache entry. A zero-match update is not found and skips invalidation.
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

// Delete removes the course, then invalidates the cache entry.
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

// List returns all courses matching filter (nil or empty filter = all), as
// a materialized slice.
func (s *Service) List(ctx context.Context, filter map[string]any) ([]course.Course, error) {
	return s.store.List(ctx, bson.M(filter))
}

// Stats computes aggregate course statistics. Each count is an independent
// point-in-time snapshot; enrollment counts are one query per course.
func (s *Service) Stats(ctx context.Context) (course.Stats, error) {
	total, err := s.store.Count(ctx, nil)
	if err != nil {
		return course.Stats{}, err
	}
	all, err := s.store.List(ctx, nil)
	if err != nil {
		return course.Stats{}, err
	}

	var (
		sum  int64
		most *course.EnrollmentCount
		zero int
	)
	for _, c := range all {
		n, err := s.students.Count(ctx, bson.M{"courses": c.ID})
		if err != nil {
			return course.Stats{}, err
		}
		sum += n
		if n == 0 {
			zero++
		}
		if n > 0 && (most == nil || n > most.StudentCount) {
			most = &course.EnrollmentCount{CourseID: c.ID, StudentCount: n}
		}
	}

	totalStudents, err := s.students.Count(ctx, nil)
	if err != nil {
		return course.Stats{}, err
	}

	stats := course.Stats{
		TotalCourses:            total,
		CourseWithMostStudents:  most,
		TotalStudentsRegistered: totalStudents,
		CoursesWithoutStudents:  zero,
	}
	if total > 0 {
		stats.AverageStudentsPerCourse = float64(sum) / float64(total)
	}
	return stats, nil
}

// invalidate drops the cache entry after a successful mutation. The store
// is the source of truth, so a failure here is logged, not returned.
func (s *Service) invalidate(ctx context.Context, id string) {
	key := cacheKey(id)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("cache invalidation failed")
	}
}

// sanitizeFields strips the identity and any operator-shaped keys from an
// update payload before it reaches the store.
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
