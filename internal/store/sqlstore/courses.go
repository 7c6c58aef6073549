package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Nizarll/darsi/internal/models"
	"github.com/Nizarll/darsi/internal/store"
)

func (s *SQLStore) CreateCourse(ctx context.Context, c models.Course) (int64, error) {
	id, err := s.insert(ctx, "INSERT INTO courses (title, description, content) VALUES (?, ?, ?)", c.Title, c.Description, c.Content)
	if err != nil {
		return 0, fmt.Errorf("failed to insert course: %w", err)
	}
	return id, nil
}

func (s *SQLStore) ListCourses(ctx context.Context) ([]models.Course, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, title, description, content, created_at FROM courses ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	courses := []models.Course{}
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan course row: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (s *SQLStore) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	var c models.Course
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT id, title, description, content, created_at FROM courses WHERE id = ?"), id).
		Scan(&c.ID, &c.Title, &c.Description, &c.Content, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course %d: %w", id, err)
	}
	return &c, nil
}

// GetCourseDetail reads the course, then its chapters and lessons in
// parallel. The three reads are not isolated from concurrent writes.
func (s *SQLStore) GetCourseDetail(ctx context.Context, id int64) (*models.CourseDetail, error) {
	course, err := s.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &models.CourseDetail{Course: *course}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		chapters, err := s.GetChaptersByCourse(gctx, id)
		detail.Chapters = chapters
		return err
	})
	g.Go(func() error {
		lessons, err := s.GetLessonsByCourse(gctx, id)
		detail.Lessons = lessons
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *SQLStore) UpdateCourse(ctx context.Context, c models.Course) error {
	err := s.execOne(ctx, "UPDATE courses SET title = ?, description = ?, content = ? WHERE id = ?", c.Title, c.Description, c.Content, c.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to update course %d: %w", c.ID, err)
	}
	return err
}

// DeleteCourse removes the course; chapters, lessons and enrollments go with it.
func (s *SQLStore) DeleteCourse(ctx context.Context, id int64) error {
	err := s.execOne(ctx, "DELETE FROM courses WHERE id = ?", id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to delete course %d: %w", id, err)
	}
	return err
}
