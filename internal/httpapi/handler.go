// Package httpapi exposes the course and student services over REST.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/edustack/campus-api/internal/apperr"
	"github.com/edustack/campus-api/internal/domain/course"
	"github.com/edustack/campus-api/internal/domain/student"
	"github.com/edustack/campus-api/internal/metrics"
	"github.com/edustack/campus-api/internal/middleware"
	"github.com/edustack/campus-api/internal/services/courses"
	"github.com/edustack/campus-api/internal/services/students"
	"github.com/edustack/campus-api/pkg/logger"
)

// handler bundles HTTP endpoints for the entity services.
type handler struct {
	courses  *courses.Service
	students *students.Service
	log      *logger.Logger
}

// Options tunes the router's outer middleware. The zero value allows every
// origin and applies no rate limit.
type Options struct {
	AllowedOrigins []string
	RateLimit      *middleware.RateLimiter
}

// NewRouter returns the API router. The stats and filter routes are
// registered ahead of the {id} routes so they are never shadowed.
func NewRouter(coursesSvc *courses.Service, studentsSvc *students.Service, opts Options, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{courses: coursesSvc, students: studentsSvc, log: log}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := mux.NewRouter()
	r.Use(middleware.Logging(log), middleware.Metrics(), middleware.CORS(origins))
	if opts.RateLimit != nil {
		r.Use(opts.RateLimit.Handler())
	}

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/courses", h.createCourse).Methods(http.MethodPost)
	api.HandleFunc("/courses", h.listCourses).Methods(http.MethodGet)
	api.HandleFunc("/courses/stats", h.courseStats).Methods(http.MethodGet)
	api.HandleFunc("/courses/filter", h.filterCourses).Methods(http.MethodPost)
	api.HandleFunc("/courses/{id}", h.getCourse).Methods(http.MethodGet)
	api.HandleFunc("/courses/{id}", h.updateCourse).Methods(http.MethodPut)
	api.HandleFunc("/courses/{id}", h.deleteCourse).Methods(http.MethodDelete)

	api.HandleFunc("/students", h.createStudent).Methods(http.MethodPost)
	api.HandleFunc("/students", h.listStudents).Methods(http.MethodGet)
	api.HandleFunc("/students/stats", h.studentStats).Methods(http.MethodGet)
	api.HandleFunc("/students/filter", h.filterStudents).Methods(http.MethodPost)
	api.HandleFunc("/students/{id}", h.getStudent).Methods(http.MethodGet)
	api.HandleFunc("/students/{id}", h.updateStudent).Methods(http.MethodPut)
	api.HandleFunc("/students/{id}", h.deleteStudent).Methods(http.MethodDelete)
	api.HandleFunc("/students/{id}/courses", h.enroll).Methods(http.MethodPost)
	api.HandleFunc("/students/{id}/courses", h.unenroll).Methods(http.MethodDelete)

	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Courses ---------------------------------------------------------------

func (h *handler) createCourse(w http.ResponseWriter, r *http.Request) {
	var c course.Course
	if err := decodeJSON(r.Body, &c); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := h.courses.Create(r.Context(), c)
	if err != nil {
		h.serviceError(w, err, "course not found")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message":  "course created",
		"courseId": id,
	})
}

func (h *handler) getCourse(w http.ResponseWriter, r *http.Request) {
	c, err := h.courses.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.serviceError(w, err, "course not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) updateCourse(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := decodeJSON(r.Body, &fields); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.courses.Update(r.Context(), mux.Vars(r)["id"], fields); err != nil {
		h.serviceError(w, err, "course not found")
		return
	}
	writeMessage(w, http.StatusOK, "course updated")
}

func (h *handler) deleteCourse(w http.ResponseWriter, r *http.Request) {
	if err := h.courses.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.serviceError(w, err, "course not found")
		return
	}
	writeMessage(w, http.StatusOK, "course deleted")
}

func (h *handler) listCourses(w http.ResponseWriter, r *http.Request) {
	h.writeCourseList(w, r, nil)
}

func (h *handler) filterCourses(w http.ResponseWriter, r *http.Request) {
	var filter map[string]any
	if err := decodeJSON(r.Body, &filter); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.writeCourseList(w, r, filter)
}

// writeCourseList reports an empty result set as not found, matching the
// course collection's listing contract.
func (h *handler) writeCourseList(w http.ResponseWriter, r *http.Request, filter map[string]any) {
	list, err := h.courses.List(r.Context(), filter)
	if err != nil {
		h.serviceError(w, err, "course not found")
		return
	}
	if len(list) == 0 {
		writeMessage(w, http.StatusNotFound, "no courses found")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) courseStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.courses.Stats(r.Context())
	if err != nil {
		h.serviceError(w, err, "course not found")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Students --------------------------------------------------------------

func (h *handler) createStudent(w http.ResponseWriter, r *http.Request) {
	var st student.Student
	if err := decodeJSON(r.Body, &st); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := h.students.Create(r.Context(), st)
	if err != nil {
		h.serviceError(w, err, "student not found")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message":   "student created",
		"studentId": id,
	})
}

func (h *handler) getStudent(w http.ResponseWriter, r *http.Request) {
	st, err := h.students.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.serviceError(w, err, "student not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) updateStudent(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := decodeJSON(r.Body, &fields); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.students.Update(r.Context(), mux.Vars(r)["id"], fields); err != nil {
		h.serviceError(w, err, "student not found")
		return
	}
	writeMessage(w, http.StatusOK, "student updated")
}

func (h *handler) deleteStudent(w http.ResponseWriter, r *http.Request) {
	if err := h.students.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.serviceError(w, err, "student not found")
		return
	}
	writeMessage(w, http.StatusOK, "student deleted")
}

func (h *handler) listStudents(w http.ResponseWriter, r *http.Request) {
	list, err := h.students.List(r.Context(), nil)
	if err != nil {
		h.serviceError(w, err, "student not found")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) filterStudents(w http.ResponseWriter, r *http.Request) {
	var filter map[string]any
	if err := decodeJSON(r.Body, &filter); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	list, err := h.students.List(r.Context(), filter)
	if err != nil {
		h.serviceError(w, err, "student not found")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) studentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.students.Stats(r.Context())
	if err != nil {
		h.serviceError(w, err, "student not found")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Enrollment ------------------------------------------------------------

type enrollmentPayload struct {
	CourseID string `json:"courseId"`
}

func (h *handler) enroll(w http.ResponseWriter, r *http.Request) {
	var payload enrollmentPayload
	if err := decodeJSONStrict(r.Body, &payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.students.Enroll(r.Context(), mux.Vars(r)["id"], payload.CourseID); err != nil {
		h.serviceError(w, err, "student or course not found")
		return
	}
	writeMessage(w, http.StatusOK, "course added to student")
}

func (h *handler) unenroll(w http.ResponseWriter, r *http.Request) {
	var payload enrollmentPayload
	if err := decodeJSONStrict(r.Body, &payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.students.Unenroll(r.Context(), mux.Vars(r)["id"], payload.CourseID); err != nil {
		h.serviceError(w, err, "student or course not found")
		return
	}
	writeMessage(w, http.StatusOK, "course removed from student")
}

// Helpers ---------------------------------------------------------------

// serviceError maps the error taxonomy to a status code. 500 responses carry
// a generic message; backend details stay in the logs.
func (h *handler) serviceError(w http.ResponseWriter, err error, notFound string) {
	var ve *apperr.ValidationError
	switch {
	case errors.Is(err, apperr.ErrInvalidID):
		writeMessage(w, http.StatusBadRequest, "invalid id")
	case errors.As(err, &ve):
		writeMessage(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, students.ErrNotEnrolled):
		writeMessage(w, http.StatusNotFound, "student is not enrolled in this course")
	case errors.Is(err, apperr.ErrConflict):
		writeMessage(w, http.StatusConflict, "student is already enrolled in this course")
	case errors.Is(err, apperr.ErrNotFound):
		writeMessage(w, http.StatusNotFound, notFound)
	default:
		h.log.WithError(err).Error("request failed")
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(body io.ReadCloser, dst any) error {
	defer body.Close()
	return json.NewDecoder(body).Decode(dst)
}

func decodeJSONStrict(body io.ReadCloser, dst any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
