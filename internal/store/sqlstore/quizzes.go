package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Nizarll/darsi/internal/models"
	"github.com/Nizarll/darsi/internal/store"
)

const quizColumns = "id, title, description, content, options, valid_options"

func scanQuiz(row interface{ Scan(...any) error }, q *models.Quiz) error {
	return row.Scan(&q.ID, &q.Title, &q.Description, &q.Content, &q.Options, &q.ValidOptions)
}

// Options and valid options are always written together; models.OptionList
// handles the JSON encoding.

func (s *SQLStore) CreateQuiz(ctx context.Context, q models.Quiz) (int64, error) {
	id, err := s.insert(ctx, "INSERT INTO quizzes (title, description, content, options, valid_options) VALUES (?, ?, ?, ?, ?)",
		q.Title, q.Description, q.Content, q.Options, q.ValidOptions)
	if err != nil {
		return 0, fmt.Errorf("failed to insert quiz: %w", err)
	}
	return id, nil
}

func (s *SQLStore) ListQuizzes(ctx context.Context) ([]models.Quiz, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+quizColumns+" FROM quizzes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	defer rows.Close()

	quizzes := []models.Quiz{}
	for rows.Next() {
		var q models.Quiz
		if err := scanQuiz(rows, &q); err != nil {
			return nil, fmt.Errorf("failed to scan quiz row: %w", err)
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

func (s *SQLStore) GetQuiz(ctx context.Context, id int64) (*models.Quiz, error) {
	var q models.Quiz
	err := scanQuiz(s.db.QueryRowContext(ctx, s.rebind("SELECT "+quizColumns+" FROM quizzes WHERE id = ?"), id), &q)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz %d: %w", id, err)
	}
	return &q, nil
}

func (s *SQLStore) UpdateQuiz(ctx context.Context, q models.Quiz) error {
	err := s.execOne(ctx, "UPDATE quizzes SET title = ?, description = ?, content = ?, options = ?, valid_options = ? WHERE id = ?",
		q.Title, q.Description, q.Content, q.Options, q.ValidOptions, q.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to update quiz %d: %w", q.ID, err)
	}
	return err
}

func (s *SQLStore) DeleteQuiz(ctx context.Context, id int64) error {
	err := s.execOne(ctx, "DELETE FROM quizzes WHERE id = ?", id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to delete quiz %d: %w", id, err)
	}
	return err
}
