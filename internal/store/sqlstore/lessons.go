package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Nizarll/darsi/internal/models"
	"github.com/Nizarll/darsi/internal/store"
)

const lessonColumns = "id, course_id, title, description, content, video_url, order_index"

func scanLesson(row interface{ Scan(...any) error }, l *models.Lesson) error {
	return row.Scan(&l.ID, &l.CourseID, &l.Title, &l.Description, &l.Content, &l.VideoURL, &l.OrderIndex)
}

// CreateLesson returns store.ErrNotFound when the course does not exist.
func (s *SQLStore) CreateLesson(ctx context.Context, l models.Lesson) (int64, error) {
	id, err := s.insert(ctx, "INSERT INTO lessons (course_id, title, description, content, video_url, order_index) VALUES (?, ?, ?, ?, ?, ?)",
		l.CourseID, l.Title, l.Description, l.Content, l.VideoURL, l.OrderIndex)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, store.ErrNotFound
		}
		return 0, fmt.Errorf("failed to insert lesson: %w", err)
	}
	return id, nil
}

// GetLessonsByCourse orders by order_index, ties by id.
func (s *SQLStore) GetLessonsByCourse(ctx context.Context, courseID int64) ([]models.Lesson, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT "+lessonColumns+" FROM lessons WHERE course_id = ? ORDER BY order_index, id"), courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lessons for course %d: %w", courseID, err)
	}
	defer rows.Close()

	lessons := []models.Lesson{}
	for rows.Next() {
		var l models.Lesson
		if err := scanLesson(rows, &l); err != nil {
			return nil, fmt.Errorf("failed to scan lesson row: %w", err)
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

func (s *SQLStore) GetLesson(ctx context.Context, id int64) (*models.Lesson, error) {
	var l models.Lesson
	err := scanLesson(s.db.QueryRowContext(ctx, s.rebind("SELECT "+lessonColumns+" FROM lessons WHERE id = ?"), id), &l)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson %d: %w", id, err)
	}
	return &l, nil
}

func (s *SQLStore) UpdateLesson(ctx context.Context, id int64, p store.LessonPatch) error {
	err := s.execOne(ctx, `UPDATE lessons SET
		title = COALESCE(?, title),
		description = COALESCE(?, description),
		content = COALESCE(?, content),
		video_url = COALESCE(?, video_url),
		order_index = COALESCE(?, order_index)
		WHERE id = ?`, p.Title, p.Description, p.Content, p.VideoURL, p.OrderIndex, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to update lesson %d: %w", id, err)
	}
	return err
}

func (s *SQLStore) DeleteLesson(ctx context.Context, id int64) error {
	err := s.execOne(ctx, "DELETE FROM lessons WHERE id = ?", id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to delete lesson %d: %w", id, err)
	}
	return err
}
