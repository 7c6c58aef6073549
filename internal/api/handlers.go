package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Nizarll/darsi/internal/auth"
	"github.com/Nizarll/darsi/internal/httputil"
	"github.com/Nizarll/darsi/internal/logger"
	"github.com/Nizarll/darsi/internal/middleware"
	"github.com/Nizarll/darsi/internal/models"
	"github.com/Nizarll/darsi/internal/store"
)

// Options configures the HTTP surface.
type Options struct {
	// SecureCookies marks the session cookie Secure (production).
	SecureCookies bool
	// TeacherOnlyWrites restricts content mutations to the teacher role.
	TeacherOnlyWrites bool
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Metrics instruments every routed request; nil disables it.
	Metrics *middleware.Metrics
}

type Handlers struct {
	store    store.Store
	creds    *auth.Credentials
	tokens   *auth.TokenService
	authn    *middleware.Auth
	log      *logger.Logger
	validate *validator.Validate
	opts     Options
}

func NewHandlers(s store.Store, creds *auth.Credentials, tokens *auth.TokenService, log *logger.Logger, opts Options) *Handlers {
	return &Handlers{
		store:    s,
		creds:    creds,
		tokens:   tokens,
		authn:    middleware.NewAuth(tokens),
		log:      log,
		validate: newValidator(),
		opts:     opts,
	}
}

// Router returns the application routes, served both at the root and under
// /api. Trailing slashes are ignored.
func (h *Handlers) Router() http.Handler {
	r := mux.NewRouter()
	if h.opts.Metrics != nil {
		r.Use(h.opts.Metrics.Handler)
	}
	r.NotFoundHandler = h.instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusNotFound, "Not found")
	}))
	r.MethodNotAllowedHandler = h.instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}))

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	if h.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	h.register(r.PathPrefix("/api").Subrouter())
	h.register(r)

	return stripTrailingSlash(r)
}

// instrument covers handlers that mux runs without its middleware chain.
func (h *Handlers) instrument(next http.Handler) http.Handler {
	if h.opts.Metrics == nil {
		return next
	}
	return h.opts.Metrics.Handler(next)
}

func (h *Handlers) register(r *mux.Router) {
	required := h.authn.RequireAuth

	r.HandleFunc("/register", h.registerUser).Methods(http.MethodPost)
	r.HandleFunc("/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/logout", h.logout).Methods(http.MethodPost)
	r.Handle("/profile", required(http.HandlerFunc(h.profile))).Methods(http.MethodGet)
	r.Handle("/dashboard", required(http.HandlerFunc(h.dashboard))).Methods(http.MethodGet)

	r.HandleFunc("/courses", h.listCourses).Methods(http.MethodGet)
	r.Handle("/courses", h.write(h.createCourse)).Methods(http.MethodPost)
	r.Handle("/courses/{id}", h.authn.OptionalAuth(http.HandlerFunc(h.getCourse))).Methods(http.MethodGet)
	r.Handle("/courses/{id}", h.write(h.updateCourse)).Methods(http.MethodPut)
	r.Handle("/courses/{id}", h.write(h.deleteCourse)).Methods(http.MethodDelete)
	r.HandleFunc("/courses/{id}/chapters", h.listChapters).Methods(http.MethodGet)
	r.HandleFunc("/courses/{id}/lessons", h.listLessons).Methods(http.MethodGet)

	r.Handle("/chapters", h.write(h.createChapter)).Methods(http.MethodPost)
	r.HandleFunc("/chapters/{id}", h.getChapter).Methods(http.MethodGet)
	r.Handle("/chapters/{id}", h.write(h.updateChapter)).Methods(http.MethodPut)
	r.Handle("/chapters/{id}", h.write(h.deleteChapter)).Methods(http.MethodDelete)

	r.Handle("/lessons", h.write(h.createLesson)).Methods(http.MethodPost)
	r.HandleFunc("/lessons/{id}", h.getLesson).Methods(http.MethodGet)
	r.Handle("/lessons/{id}", h.write(h.updateLesson)).Methods(http.MethodPut)
	r.Handle("/lessons/{id}", h.write(h.deleteLesson)).Methods(http.MethodDelete)

	r.HandleFunc("/quizzes", h.listQuizzes).Methods(http.MethodGet)
	r.Handle("/quizzes", h.write(h.createQuiz)).Methods(http.MethodPost)
	r.HandleFunc("/quizzes/{id}", h.getQuiz).Methods(http.MethodGet)
	r.Handle("/quizzes/{id}", h.write(h.updateQuiz)).Methods(http.MethodPut)
	r.Handle("/quizzes/{id}", h.write(h.deleteQuiz)).Methods(http.MethodDelete)

	r.Handle("/subscribe/{id}", required(http.HandlerFunc(h.subscribe))).Methods(http.MethodGet)
	r.Handle("/user_courses", required(http.HandlerFunc(h.userCourses))).Methods(http.MethodGet)
}

// write guards a content mutation.
func (h *Handlers) write(fn http.HandlerFunc) http.Handler {
	var next http.Handler = fn
	if h.opts.TeacherOnlyWrites {
		next = middleware.RequireRole(models.RoleTeacher)(next)
	}
	return h.authn.RequireAuth(next)
}

func stripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := r.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") {
			r.URL.Path = strings.TrimRight(p, "/")
			if r.URL.Path == "" {
				r.URL.Path = "/"
			}
			r.URL.RawPath = ""
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.log.Warn("health check failed", "error", err)
		httputil.WriteError(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode parses and validates the body, writing the 400 itself on failure.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := httputil.ParseJSON(r, dest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		httputil.WriteValidationError(w, []FieldError{{Field: "body", Message: "request body must be valid JSON"}})
		return false
	}
	if err := h.validate.Struct(dest); err != nil {
		if details, ok := fieldErrors(err); ok {
			httputil.WriteValidationError(w, details)
			return false
		}
		h.log.Error("validation failed unexpectedly", "error", err)
		httputil.WriteInternalError(w)
		return false
	}
	return true
}

func (h *Handlers) pathID(w http.ResponseWriter, r *http.Request, invalidMsg string) (int64, bool) {
	id, err := httputil.ParsePathID(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, invalidMsg)
		return 0, false
	}
	return id, true
}

// fail maps store and service errors onto the response categories. The
// cause of a 500 is logged, never sent.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, notFound)
	case errors.Is(err, store.ErrDuplicateUsername):
		httputil.WriteError(w, http.StatusConflict, "Username already taken")
	case errors.Is(err, store.ErrAlreadyEnrolled):
		httputil.WriteError(w, http.StatusConflict, "Already subscribed to this course")
	case errors.Is(err, store.ErrUserNotFound):
		httputil.WriteError(w, http.StatusUnauthorized, "User no longer exists")
	default:
		h.log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"error", err,
		)
		httputil.WriteInternalError(w)
	}
}

type userSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type sessionResponse struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    userSummary `json:"user"`
}

func (h *Handlers) startSession(w http.ResponseWriter, r *http.Request, status int, msg string, id int64, username string, role models.Role) {
	token, err := h.tokens.Issue(id, username, role)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	auth.SetAuthCookie(w, token, h.tokens.TTL(), h.opts.SecureCookies)
	httputil.WriteJSON(w, status, sessionResponse{
		Message: msg,
		Token:   token,
		User:    userSummary{ID: id, Username: username},
	})
}

func (h *Handlers) registerUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Role == "" {
		req.Role = models.RoleStudent
	}

	id, err := h.creds.CreateUser(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.log.Info("user registered", "user_id", id, "role", req.Role)
	h.startSession(w, r, http.StatusCreated, "Registration successful", id, req.Username, req.Role)
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, err := h.creds.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	if u == nil {
		httputil.WriteError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	h.startSession(w, r, http.StatusOK, "Login successful", u.ID, u.Username, u.Role)
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearAuthCookie(w, h.opts.SecureCookies)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (h *Handlers) profile(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Profile data",
		"user":    claims,
	})
}

func (h *Handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"userId": claims.UserID})
}
