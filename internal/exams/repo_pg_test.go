package exams

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

var testRowColumns = []string{"id", "user_id", "primary_document_id", "title", "description", "language", "questions", "total_questions", "created_at"}

func TestPGRepoCreateWritesTestAndSourcesInTx(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, time.May, 2, 12, 0, 0, 0, time.UTC)
	test := sampleTest("t-1", "user-1", 3, created)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tests").
		WithArgs(test.ID, test.UserID, "doc-a", test.Title, test.Description, "es", sqlmock.AnyArg(), 3, created).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO test_sources").
		WithArgs("t-1", "doc-a", 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO test_sources").
		WithArgs("t-1", "doc-b", 1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	got, err := repo.Create(context.Background(), test)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.ID != "t-1" || got.TotalQuestions != 3 {
		t.Fatalf("unexpected result: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCreateRollsBackOnSourceFailure(t *testing.T) {
	repo, mock := newMockRepo(t)
	test := sampleTest("t-1", "user-1", 1, time.Now().UTC())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tests").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO test_sources").
		WithArgs("t-1", "doc-a", 0).
		WillReturnError(errors.New("foreign key violation"))
	mock.ExpectRollback()

	if _, err := repo.Create(context.Background(), test); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCreateRejectsInvalidBeforeWrite(t *testing.T) {
	repo, mock := newMockRepo(t)

	_, err := repo.Create(context.Background(), sampleTest("t-1", "user-1", 0, time.Now()))
	if !errors.Is(err, ErrInvalidTest) {
		t.Fatalf("expected ErrInvalidTest, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected no database calls: %v", err)
	}
}

func TestPGRepoGetByIDRoundTrip(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, time.May, 2, 12, 0, 0, 0, time.UTC)
	test := sampleTest("t-1", "user-1", 4, created)
	questions, err := json.Marshal(test.Questions)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	mock.ExpectQuery("SELECT (.+) FROM tests").
		WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows(testRowColumns).
			AddRow("t-1", "user-1", "doc-a", test.Title, test.Description, "es", questions, 4, created))
	mock.ExpectQuery("SELECT document_id FROM test_sources").
		WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows([]string{"document_id"}).AddRow("doc-a").AddRow("doc-b"))

	got, err := repo.GetByID(context.Background(), "user-1", "t-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.TotalQuestions != 4 || len(got.Questions) != 4 {
		t.Fatalf("unexpected counts: %+v", got)
	}
	for i := range got.Questions {
		if got.Questions[i].Question != test.Questions[i].Question || got.Questions[i].CorrectAnswer != test.Questions[i].CorrectAnswer {
			t.Fatalf("question %d not preserved", i)
		}
	}
	if got.PrimaryDocumentID != "doc-a" || len(got.SourceDocumentIDs) != 2 || got.SourceDocumentIDs[1] != "doc-b" {
		t.Fatalf("unexpected sources: %q %v", got.PrimaryDocumentID, got.SourceDocumentIDs)
	}
}

func TestPGRepoGetByIDOwnershipAndMissing(t *testing.T) {
	t.Run("other owner", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("SELECT (.+) FROM tests").
			WithArgs("t-1").
			WillReturnRows(sqlmock.NewRows(testRowColumns).
				AddRow("t-1", "user-2", nil, "t", "", "es", []byte(`[]`), 1, time.Now()))

		if _, err := repo.GetByID(context.Background(), "user-1", "t-1"); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("SELECT (.+) FROM tests").WithArgs("t-9").WillReturnError(sql.ErrNoRows)

		if _, err := repo.GetByID(context.Background(), "user-1", "t-9"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestPGRepoListByUserClampsAndLoadsSources(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Now().UTC()
	questions, _ := json.Marshal([]Question{sampleQuestion(0)})

	mock.ExpectQuery("SELECT (.+) FROM tests").
		WithArgs("user-1", 100, 0).
		WillReturnRows(sqlmock.NewRows(testRowColumns).
			AddRow("t-1", "user-1", "doc-a", "t", "1 preguntas generadas por IA", "es", questions, 1, created))
	mock.ExpectQuery("SELECT document_id FROM test_sources").
		WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows([]string{"document_id"}).AddRow("doc-a"))

	list, err := repo.ListByUser(context.Background(), "user-1", 500, -3)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 1 || len(list[0].SourceDocumentIDs) != 1 {
		t.Fatalf("unexpected list: %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
