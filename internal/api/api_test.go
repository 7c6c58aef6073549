package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Nizarll/darsi/internal/auth"
	"github.com/Nizarll/darsi/internal/logger"
	"github.com/Nizarll/darsi/internal/middleware"
	"github.com/Nizarll/darsi/internal/store/sqlstore"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	store   *sqlstore.SQLStore
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	s, err := sqlstore.New("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost, 4)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService("test-secret", 24*time.Hour)
	require.NoError(t, err)
	creds, err := auth.NewCredentials(s, hasher)
	require.NoError(t, err)

	log := logger.Nop()
	h := NewHandlers(s, creds, tokens, log, opts)
	handler := middleware.RequestID(middleware.Recovery(log)(h.Router()))
	return &testServer{t: t, handler: handler, store: s}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(s.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(username, password, role string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/register", "", map[string]string{
		"username": username, "password": password, "role": role,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var resp sessionResponse
	decode(s.t, w, &resp)
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestRegisterLoginProfile(t *testing.T) {
	s := newTestServer(t, Options{})

	w := s.do(http.MethodPost, "/register", "", map[string]string{
		"username": "alice", "password": "Passw0rd", "role": "student",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reg sessionResponse
	decode(t, w, &reg)
	assert.Equal(t, "Registration successful", reg.Message)
	assert.Equal(t, "alice", reg.User.Username)
	assert.NotEmpty(t, reg.Token)

	w = s.do(http.MethodPost, "/login", "", map[string]string{"username": "alice", "password": "Passw0rd"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login sessionResponse
	decode(t, w, &login)
	assert.Equal(t, "Login successful", login.Message)
	assert.Equal(t, reg.User.ID, login.User.ID)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.Equal(t, login.Token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
	assert.False(t, cookies[0].Secure)

	w = s.do(http.MethodGet, "/profile", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var profile struct {
		Message string `json:"message"`
		User    struct {
			UserID   int64  `json:"userId"`
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	decode(t, w, &profile)
	assert.Equal(t, "Profile data", profile.Message)
	assert.Equal(t, reg.User.ID, profile.User.UserID)
	assert.Equal(t, "alice", profile.User.Username)
	assert.Equal(t, "student", profile.User.Role)

	w = s.do(http.MethodGet, "/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/profile", login.Token+"tampered", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Cookie transport.
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookies[0])
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userId":`+jsonInt(reg.User.ID)+`}`, rec.Body.String())
}

func jsonInt(i int64) string {
	b, _ := json.Marshal(i)
	return string(b)
}

func TestRegisterDefaultsToStudent(t *testing.T) {
	s := newTestServer(t, Options{})
	token := s.register("bob", "Passw0rd", "")

	w := s.do(http.MethodGet, "/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"student"`)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t, Options{})

	tests := []struct {
		name  string
		body  interface{}
		field string
	}{
		{"short username", map[string]string{"username": "al", "password": "Passw0rd"}, "username"},
		{"short password", map[string]string{"username": "alice", "password": "Pa0"}, "password"},
		{"no uppercase", map[string]string{"username": "alice", "password": "passw0rd"}, "password"},
		{"no digit", map[string]string{"username": "alice", "password": "Password"}, "password"},
		{"non-ascii classes", map[string]string{"username": "alice", "password": "ééÉÉ١x"}, "password"},
		{"longer than bcrypt accepts", map[string]string{"username": "alice", "password": "Aa1" + strings.Repeat("x", 80)}, "password"},
		{"unknown role", map[string]string{"username": "alice", "password": "Passw0rd", "role": "admin"}, "role"},
		{"malformed json", `{"username":`, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/register", "", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			var resp struct {
				Message string       `json:"message"`
				Errors  []FieldError `json:"errors"`
			}
			decode(t, w, &resp)
			assert.Equal(t, "Invalid input", resp.Message)
			require.NotEmpty(t, resp.Errors)
			assert.Equal(t, tt.field, resp.Errors[0].Field)
		})
	}
}

func TestRegisterLongestPassword(t *testing.T) {
	s := newTestServer(t, Options{})
	password := "Aa1" + strings.Repeat("x", 69)
	require.Len(t, password, 72)
	s.register("alice", password, "")

	w := s.do(http.MethodPost, "/login", "", map[string]string{"username": "alice", "password": password})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestOversizedBody(t *testing.T) {
	s := newTestServer(t, Options{})
	s.handler = middleware.MaxBytes(64)(s.handler)

	w := s.do(http.MethodPost, "/register", "", map[string]string{
		"username": "alice", "password": "Passw0rd", "role": strings.Repeat("x", 100),
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.JSONEq(t, `{"message":"Request body too large"}`, w.Body.String())
}

func TestDuplicateRegistration(t *testing.T) {
	s := newTestServer(t, Options{})
	s.register("alice", "Passw0rd", "student")

	w := s.do(http.MethodPost, "/register", "", map[string]string{"username": "alice", "password": "Other1pass"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"message":"Username already taken"}`, w.Body.String())

	// The original password still works, so nothing was overwritten.
	w = s.do(http.MethodPost, "/login", "", map[string]string{"username": "alice", "password": "Passw0rd"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginFailuresLookAlike(t *testing.T) {
	s := newTestServer(t, Options{})
	s.register("alice", "Passw0rd", "student")

	wrong := s.do(http.MethodPost, "/login", "", map[string]string{"username": "alice", "password": "wrongpass"})
	missing := s.do(http.MethodPost, "/login", "", map[string]string{"username": "nouser", "password": "anything"})

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, wrong.Code, missing.Code)
	assert.Equal(t, wrong.Body.String(), missing.Body.String())
	assert.Empty(t, wrong.Result().Cookies())
}

func TestLogoutClearsCookie(t *testing.T) {
	s := newTestServer(t, Options{})
	w := s.do(http.MethodPost, "/logout", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
}

func TestCourseLifecycle(t *testing.T) {
	s := newTestServer(t, Options{})
	token := s.register("teach", "Passw0rd", "teacher")

	w := s.do(http.MethodPost, "/courses", "", map[string]string{"title": "Go"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/courses", token, map[string]string{"description": "no title"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/courses", token, map[string]string{"title": "Go", "description": "Basics"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Message  string `json:"message"`
		CourseID int64  `json:"courseId"`
	}
	decode(t, w, &created)
	assert.Equal(t, "Course created successfully", created.Message)
	courseID := jsonInt(created.CourseID)

	// Front-end style paths.
	w = s.do(http.MethodGet, "/api/courses/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Courses []struct {
			ID    int64  `json:"id"`
			Title string `json:"title"`
		} `json:"courses"`
	}
	decode(t, w, &list)
	require.Len(t, list.Courses, 1)
	assert.Equal(t, "Go", list.Courses[0].Title)

	w = s.do(http.MethodPost, "/chapters", token, map[string]interface{}{"course_id": created.CourseID, "title": "Intro"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var chapter struct {
		ChapterID int64 `json:"chapterId"`
	}
	decode(t, w, &chapter)

	for _, l := range []map[string]interface{}{
		{"course_id": created.CourseID, "title": "second", "order_index": 2},
		{"course_id": created.CourseID, "title": "first", "order_index": 1, "video_url": "https://example.com/v.mp4"},
	} {
		w = s.do(http.MethodPost, "/lessons", token, l)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = s.do(http.MethodPost, "/lessons", token, map[string]interface{}{"course_id": created.CourseID, "title": "bad", "video_url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/courses/"+courseID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		ID       int64             `json:"id"`
		Title    string            `json:"title"`
		Chapters []json.RawMessage `json:"chapters"`
		Lessons  []struct {
			Title string `json:"title"`
		} `json:"lessons"`
		Subscribed *bool `json:"subscribed"`
	}
	decode(t, w, &detail)
	assert.Equal(t, "Go", detail.Title)
	assert.Len(t, detail.Chapters, 1)
	require.Len(t, detail.Lessons, 2)
	assert.Equal(t, "first", detail.Lessons[0].Title)
	assert.Equal(t, "second", detail.Lessons[1].Title)
	assert.Nil(t, detail.Subscribed)

	w = s.do(http.MethodPut, "/chapters/"+jsonInt(chapter.ChapterID), token, map[string]string{"content": "hello"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(http.MethodGet, "/chapters/"+jsonInt(chapter.ChapterID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"Intro"`)
	assert.Contains(t, w.Body.String(), `"content":"hello"`)

	w = s.do(http.MethodPut, "/courses/"+courseID, token, map[string]string{"title": "Go 2"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Course updated successfully"}`, w.Body.String())

	w = s.do(http.MethodDelete, "/courses/"+courseID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/courses/"+courseID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"Course not found"}`, w.Body.String())
	w = s.do(http.MethodGet, "/chapters/"+jsonInt(chapter.ChapterID), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(http.MethodGet, "/courses/"+courseID+"/lessons", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"lessons":[]}`, w.Body.String())
}

func TestChapterForUnknownCourse(t *testing.T) {
	s := newTestServer(t, Options{})
	token := s.register("teach", "Passw0rd", "teacher")

	w := s.do(http.MethodPost, "/chapters", token, map[string]interface{}{"course_id": 999, "title": "Orphan"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/chapters", token, map[string]interface{}{"course_id": -1, "title": "Bad"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMissingIDs(t *testing.T) {
	s := newTestServer(t, Options{})
	token := s.register("teach", "Passw0rd", "teacher")

	for _, tc := range []struct {
		method, path string
		body         interface{}
		want         int
	}{
		{http.MethodPut, "/courses/42", map[string]string{"title": "x"}, http.StatusNotFound},
		{http.MethodDelete, "/chapters/42", nil, http.StatusNotFound},
		{http.MethodPut, "/lessons/42", map[string]string{"title": "x"}, http.StatusNotFound},
		{http.MethodDelete, "/quizzes/42", nil, http.StatusNotFound},
		{http.MethodGet, "/lessons/42", nil, http.StatusNotFound},
		{http.MethodGet, "/quizzes/abc", nil, http.StatusBadRequest},
		{http.MethodGet, "/courses/0", nil, http.StatusBadRequest},
	} {
		w := s.do(tc.method, tc.path, token, tc.body)
		assert.Equal(t, tc.want, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestQuizRoundTrip(t *testing.T) {
	s := newTestServer(t, Options{})
	token := s.register("teach", "Passw0rd", "teacher")

	w := s.do(http.MethodPost, "/quizzes", token, map[string]interface{}{
		"title":         "Pick one",
		"options":       []string{"A", "B", "C"},
		"valid_options": []string{"B"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		QuizID int64 `json:"quizId"`
	}
	decode(t, w, &created)

	w = s.do(http.MethodGet, "/quizzes/"+jsonInt(created.QuizID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var quiz struct {
		Options      []string `json:"options"`
		ValidOptions []string `json:"valid_options"`
	}
	decode(t, w, &quiz)
	assert.Equal(t, []string{"A", "B", "C"}, quiz.Options)
	assert.Equal(t, []string{"B"}, quiz.ValidOptions)

	w = s.do(http.MethodGet, "/quizzes", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"options":["A","B","C"]`)

	w = s.do(http.MethodPut, "/quizzes/"+jsonInt(created.QuizID), token, map[string]interface{}{
		"title":         "Pick one",
		"options":       []string{"A", "B"},
		"valid_options": []string{"Z"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "valid_options must be a subset of options")

	w = s.do(http.MethodPost, "/quizzes", token, map[string]interface{}{
		"title":         "Empty",
		"options":       []string{},
		"valid_options": []string{},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscribe(t *testing.T) {
	s := newTestServer(t, Options{})
	token := s.register("alice", "Passw0rd", "student")

	w := s.do(http.MethodPost, "/courses", token, map[string]string{"title": "Go"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		CourseID int64 `json:"courseId"`
	}
	decode(t, w, &created)
	id := jsonInt(created.CourseID)

	w = s.do(http.MethodGet, "/subscribe/"+id, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/subscribe/"+id, token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/subscribe/"+id, token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodGet, "/subscribe/0", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/subscribe/999", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/user_courses/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine struct {
		Data []struct {
			UserID   int64 `json:"user_id"`
			CourseID int64 `json:"course_id"`
		} `json:"data"`
	}
	decode(t, w, &mine)
	require.Len(t, mine.Data, 1)
	assert.Equal(t, created.CourseID, mine.Data[0].CourseID)

	w = s.do(http.MethodGet, "/courses/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"subscribed":true`)
}

func TestTeacherOnlyWrites(t *testing.T) {
	s := newTestServer(t, Options{TeacherOnlyWrites: true})
	student := s.register("alice", "Passw0rd", "student")
	teacher := s.register("bob", "Passw0rd", "teacher")

	w := s.do(http.MethodPost, "/courses", student, map[string]string{"title": "Go"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/courses", teacher, map[string]string{"title": "Go"})
	assert.Equal(t, http.StatusCreated, w.Code)

	// Reads and enrollment stay open to students.
	w = s.do(http.MethodGet, "/courses", student, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/subscribe/1", student, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := newTestServer(t, Options{Gatherer: reg, Metrics: middleware.NewMetrics(reg)})

	w := s.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `darsi_http_requests_total{method="GET",route="/healthz",status="200"} 1`), w.Body.String())
}

func TestMetricsCountUnmatchedRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := newTestServer(t, Options{Gatherer: reg, Metrics: middleware.NewMetrics(reg)})

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/nope", "", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, s.do(http.MethodPatch, "/courses", "", nil).Code)

	body := s.do(http.MethodGet, "/metrics", "", nil).Body.String()
	assert.Contains(t, body, `darsi_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
	assert.Contains(t, body, `darsi_http_requests_total{method="PATCH",route="unmatched",status="405"} 1`)
}

func TestStorageFailureIsGeneric(t *testing.T) {
	s := newTestServer(t, Options{})
	require.NoError(t, s.store.Close())

	w := s.do(http.MethodGet, "/courses", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"Internal server error"}`, w.Body.String())

	w = s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, Options{})
	w := s.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"Not found"}`, w.Body.String())
}
