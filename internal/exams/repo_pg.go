package exams

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"quizgen-backend/internal/shared/storage/db"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const testColumns = `id, user_id, primary_document_id, title, description, language, questions, total_questions, created_at`

// Create inserts the test row and its ordered sources in one transaction.
func (r *PGRepo) Create(ctx context.Context, test Test) (Test, error) {
	if err := test.Validate(); err != nil {
		return Test{}, err
	}
	questions, err := json.Marshal(test.Questions)
	if err != nil {
		return Test{}, fmt.Errorf("encode questions: %w", err)
	}

	const insertTest = `
INSERT INTO tests (
    id,
    user_id,
    primary_document_id,
    title,
    description,
    language,
    questions,
    total_questions,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	const insertSource = `
INSERT INTO test_sources (test_id, document_id, position)
VALUES ($1, $2, $3)`

	err = db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertTest,
			test.ID,
			test.UserID,
			nullString(test.PrimaryDocumentID),
			test.Title,
			test.Description,
			test.Language,
			questions,
			test.TotalQuestions,
			test.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert test: %w", err)
		}
		for i, docID := range test.SourceDocumentIDs {
			if _, err := tx.ExecContext(ctx, insertSource, test.ID, docID, i); err != nil {
				return fmt.Errorf("insert test source %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return Test{}, err
	}
	return test, nil
}

// GetByID fetches a test with its sources and checks ownership.
func (r *PGRepo) GetByID(ctx context.Context, userID, testID string) (Test, error) {
	const query = `
SELECT ` + testColumns + `
FROM tests
WHERE id = $1
LIMIT 1`
	test, err := scanTest(r.DB.QueryRowContext(ctx, query, testID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Test{}, ErrNotFound
		}
		return Test{}, err
	}
	if test.UserID != userID {
		return Test{}, ErrForbidden
	}

	sources, err := r.sources(ctx, test.ID)
	if err != nil {
		return Test{}, err
	}
	test.SourceDocumentIDs = sources
	return test, nil
}

// ListByUser lists tests ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Test, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT ` + testColumns + `
FROM tests
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Test
	for rows.Next() {
		test, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, test)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		sources, err := r.sources(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].SourceDocumentIDs = sources
	}
	return out, nil
}

func (r *PGRepo) sources(ctx context.Context, testID string) ([]string, error) {
	const query = `
SELECT document_id
FROM test_sources
WHERE test_id = $1
ORDER BY position`
	rows, err := r.DB.QueryContext(ctx, query, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var docID string
		if err := rows.Scan(&docID); err != nil {
			return nil, err
		}
		out = append(out, docID)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTest(row rowScanner) (Test, error) {
	var test Test
	var primary sql.NullString
	var questions []byte
	if err := row.Scan(
		&test.ID,
		&test.UserID,
		&primary,
		&test.Title,
		&test.Description,
		&test.Language,
		&questions,
		&test.TotalQuestions,
		&test.CreatedAt,
	); err != nil {
		return Test{}, err
	}
	if primary.Valid {
		test.PrimaryDocumentID = primary.String
	}
	if err := json.Unmarshal(questions, &test.Questions); err != nil {
		return Test{}, fmt.Errorf("decode questions for test %s: %w", test.ID, err)
	}
	return test, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Repo = (*PGRepo)(nil)
