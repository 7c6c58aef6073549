package store

import (
	"context"
	"errors"

	"github.com/Nizarll/darsi/internal/models"
)

var (
	// ErrNotFound is returned when the referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateUsername is returned when a username is already registered.
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrAlreadyEnrolled is returned when the (user, course) pair already exists.
	ErrAlreadyEnrolled = errors.New("already enrolled")
	// ErrUserNotFound is returned when an operation names a user id that no
	// longer exists, e.g. a token issued before the user was removed.
	ErrUserNotFound = errors.New("user not found")
)

// UserStore persists user credentials.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string, role models.Role) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// ChapterPatch and LessonPatch carry partial updates; nil fields keep their
// stored value.
type ChapterPatch struct {
	Title       *string
	Description *string
	Content     *string
}

type LessonPatch struct {
	Title       *string
	Description *string
	Content     *string
	VideoURL    *string
	OrderIndex  *int
}

// Store defines the interface for all database operations
type Store interface {
	UserStore

	// Courses
	CreateCourse(ctx context.Context, c models.Course) (int64, error)
	ListCourses(ctx context.Context) ([]models.Course, error)
	GetCourse(ctx context.Context, id int64) (*models.Course, error)
	GetCourseDetail(ctx context.Context, id int64) (*models.CourseDetail, error)
	UpdateCourse(ctx context.Context, c models.Course) error
	DeleteCourse(ctx context.Context, id int64) error

	// Chapters
	CreateChapter(ctx context.Context, ch models.Chapter) (int64, error)
	GetChaptersByCourse(ctx context.Context, courseID int64) ([]models.Chapter, error)
	GetChapter(ctx context.Context, id int64) (*models.Chapter, error)
	UpdateChapter(ctx context.Context, id int64, p ChapterPatch) error
	DeleteChapter(ctx context.Context, id int64) error

	// Lessons
	CreateLesson(ctx context.Context, l models.Lesson) (int64, error)
	GetLessonsByCourse(ctx context.Context, courseID int64) ([]models.Lesson, error)
	GetLesson(ctx context.Context, id int64) (*models.Lesson, error)
	UpdateLesson(ctx context.Context, id int64, p LessonPatch) error
	DeleteLesson(ctx context.Context, id int64) error

	// Quizzes
	CreateQuiz(ctx context.Context, q models.Quiz) (int64, error)
	ListQuizzes(ctx context.Context) ([]models.Quiz, error)
	GetQuiz(ctx context.Context, id int64) (*models.Quiz, error)
	UpdateQuiz(ctx context.Context, q models.Quiz) error
	DeleteQuiz(ctx context.Context, id int64) error

	// Enrollments
	Enroll(ctx context.Context, userID, courseID int64) error
	GetUserCourses(ctx context.Context, userID int64) ([]models.Enrollment, error)

	Ping(ctx context.Context) error
	Close() error
}
