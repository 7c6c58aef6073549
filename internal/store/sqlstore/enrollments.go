package sqlstore

import (
	"context"
	"fmt"

	"github.com/Nizarll/darsi/internal/models"
	"github.com/Nizarll/darsi/internal/store"
)

// Enroll records that userID follows courseID. The lookup only saves a
// failing insert; the composite primary key is what rejects duplicates
// written by concurrent requests. A missing course is store.ErrNotFound and a
// missing user is store.ErrUserNotFound.
func (s *SQLStore) Enroll(ctx context.Context, userID, courseID int64) error {
	var exists int
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM user_courses WHERE user_id = ? AND course_id = ?"), userID, courseID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check enrollment: %w", err)
	}
	if exists > 0 {
		return store.ErrAlreadyEnrolled
	}

	_, err = s.db.ExecContext(ctx, s.rebind("INSERT INTO user_courses (user_id, course_id) VALUES (?, ?)"), userID, courseID)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return store.ErrAlreadyEnrolled
	case isForeignKeyViolation(err):
		return s.missingEnrollmentSide(ctx, courseID)
	default:
		return fmt.Errorf("failed to insert enrollment: %w", err)
	}
}

func (s *SQLStore) GetUserCourses(ctx context.Context, userID int64) ([]models.Enrollment, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT user_id, course_id FROM user_courses WHERE user_id = ? ORDER BY course_id"), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get courses for user %d: %w", userID, err)
	}
	defer rows.Close()

	enrollments := []models.Enrollment{}
	for rows.Next() {
		var e models.Enrollment
		if err := rows.Scan(&e.UserID, &e.CourseID); err != nil {
			return nil, fmt.Errorf("failed to scan enrollment row: %w", err)
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

// missingEnrollmentSide reports which reference broke the foreign key. The
// course is checked; if it still exists the user row is the one missing.
func (s *SQLStore) missingEnrollmentSide(ctx context.Context, courseID int64) error {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM courses WHERE id = ?"), courseID).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to check course %d: %w", courseID, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrUserNotFound
}
