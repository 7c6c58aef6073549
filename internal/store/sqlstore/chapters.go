package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Nizarll/darsi/internal/models"
	"github.com/Nizarll/darsi/internal/store"
)

// CreateChapter returns store.ErrNotFound when the course does not exist.
func (s *SQLStore) CreateChapter(ctx context.Context, ch models.Chapter) (int64, error) {
	id, err := s.insert(ctx, "INSERT INTO chapters (course_id, title, description, content) VALUES (?, ?, ?, ?)",
		ch.CourseID, ch.Title, ch.Description, ch.Content)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, store.ErrNotFound
		}
		return 0, fmt.Errorf("failed to insert chapter: %w", err)
	}
	return id, nil
}

func (s *SQLStore) GetChaptersByCourse(ctx context.Context, courseID int64) ([]models.Chapter, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT id, course_id, title, description, content FROM chapters WHERE course_id = ? ORDER BY id"), courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chapters for course %d: %w", courseID, err)
	}
	defer rows.Close()

	chapters := []models.Chapter{}
	for rows.Next() {
		var ch models.Chapter
		if err := rows.Scan(&ch.ID, &ch.CourseID, &ch.Title, &ch.Description, &ch.Content); err != nil {
			return nil, fmt.Errorf("failed to scan chapter row: %w", err)
		}
		chapters = append(chapters, ch)
	}
	return chapters, rows.Err()
}

func (s *SQLStore) GetChapter(ctx context.Context, id int64) (*models.Chapter, error) {
	var ch models.Chapter
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT id, course_id, title, description, content FROM chapters WHERE id = ?"), id).
		Scan(&ch.ID, &ch.CourseID, &ch.Title, &ch.Description, &ch.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter %d: %w", id, err)
	}
	return &ch, nil
}

func (s *SQLStore) UpdateChapter(ctx context.Context, id int64, p store.ChapterPatch) error {
	err := s.execOne(ctx, `UPDATE chapters SET
		title = COALESCE(?, title),
		description = COALESCE(?, description),
		content = COALESCE(?, content)
		WHERE id = ?`, p.Title, p.Description, p.Content, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to update chapter %d: %w", id, err)
	}
	return err
}

func (s *SQLStore) DeleteChapter(ctx context.Context, id int64) error {
	err := s.execOne(ctx, "DELETE FROM chapters WHERE id = ?", id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to delete chapter %d: %w", id, err)
	}
	return err
}
