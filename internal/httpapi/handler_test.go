package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/edustack/campus-api/internal/cache"
	"github.com/edustack/campus-api/internal/domain/course"
	"github.com/edustack/campus-api/internal/domain/student"
	"github.com/edustack/campus-api/internal/httpapi"
	"github.com/edustack/campus-api/internal/services/courses"
	"github.com/edustack/campus-api/internal/services/students"
	"github.com/edustack/campus-api/internal/storage/memory"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	courseStore := memory.NewCollection[course.Course]()
	studentStore := memory.NewCollection[student.Student]()
	mem := cache.NewMemory()
	courseSvc := courses.New(courseStore, studentStore, mem, nil)
	studentSvc := students.New(studentStore, courseSvc, mem, nil)
	return httpapi.NewRouter(courseSvc, studentSvc, httpapi.Options{}, nil)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestMetricsExposition(t *testing.T) {
	h := newTestRouter(t)

	// drive one request through the middleware so the counters have a series
	rec := do(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "campus_api_http_requests_total")
}

func TestCourseLifecycle(t *testing.T) {
	h := newTestRouter(t)

	// empty catalog lists as not found
	rec := do(t, h, http.MethodGet, "/api/courses", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/courses", map[string]any{
		"title":       "algebra",
		"description": "linear algebra basics",
		"credits":     6,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id, _ := decode(t, rec)["courseId"].(string)
	require.NotEmpty(t, id)
	_, err := primitive.ObjectIDFromHex(id)
	require.NoError(t, err)

	rec = do(t, h, http.MethodGet, "/api/courses/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "algebra", body["title"])
	assert.Equal(t, float64(6), body["credits"], "extra fields round-trip")

	rec = do(t, h, http.MethodGet, "/api/courses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList(t, rec), 1)

	rec = do(t, h, http.MethodPut, "/api/courses/"+id, map[string]any{"title": "calculus"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/courses/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "calculus", decode(t, rec)["title"])

	rec = do(t, h, http.MethodDelete, "/api/courses/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/courses/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCourseValidationAndIdentityErrors(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/courses", map[string]any{"description": "no title"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/courses/not-a-hex-id", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/courses/"+primitive.NewObjectID().Hex(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/courses", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCourseFilter(t *testing.T) {
	h := newTestRouter(t)

	for _, title := range []string{"algebra", "poetry"} {
		rec := do(t, h, http.MethodPost, "/api/courses", map[string]any{
			"title":       title,
			"description": title + " course",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := do(t, h, http.MethodPost, "/api/courses/filter", map[string]any{"title": "poetry"})
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeList(t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "poetry", list[0]["title"])

	rec = do(t, h, http.MethodPost, "/api/courses/filter", map[string]any{"title": "chemistry"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCourseStatsRouteNotShadowed(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/courses/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(0), body["totalCourses"])
	assert.Contains(t, body, "courseWithMostStudents")
}

func TestStudentLifecycle(t *testing.T) {
	h := newTestRouter(t)

	// empty student list is an empty 200, unlike courses
	rec := do(t, h, http.MethodGet, "/api/students", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	rec = do(t, h, http.MethodPost, "/api/students", map[string]any{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "ada@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id, _ := decode(t, rec)["studentId"].(string)
	require.NotEmpty(t, id)

	rec = do(t, h, http.MethodGet, "/api/students/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ada", decode(t, rec)["firstName"])

	rec = do(t, h, http.MethodPut, "/api/students/"+id, map[string]any{"email": "ada@campus.edu"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/students/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["totalStudents"])

	rec = do(t, h, http.MethodDelete, "/api/students/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/students/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEnrollmentFlow(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/courses", map[string]any{
		"title":       "algebra",
		"description": "basics",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	courseID, _ := decode(t, rec)["courseId"].(string)

	rec = do(t, h, http.MethodPost, "/api/students", map[string]any{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "ada@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	studentID, _ := decode(t, rec)["studentId"].(string)

	enrollPath := "/api/students/" + studentID + "/courses"
	payload := map[string]any{"courseId": courseID}

	rec = do(t, h, http.MethodPost, enrollPath, payload)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/students/"+studentID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	courseList, ok := decode(t, rec)["courses"].([]any)
	require.True(t, ok)
	require.Len(t, courseList, 1)
	assert.Equal(t, courseID, courseList[0])

	// duplicate enrollment conflicts
	rec = do(t, h, http.MethodPost, enrollPath, payload)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/students/filter", map[string]any{"email": "ada@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeList(t, rec), 1)

	rec = do(t, h, http.MethodDelete, enrollPath, payload)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodDelete, enrollPath, payload)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, enrollPath, map[string]any{"courseId": primitive.NewObjectID().Hex()})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, enrollPath, map[string]any{"courseId": "bad"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// after the final unenrollment the course is back to zero students
	rec = do(t, h, http.MethodGet, "/api/courses/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)
	assert.Equal(t, float64(1), stats["totalCourses"])
	assert.Equal(t, float64(1), stats["coursesWithoutStudents"])
}
