package runs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	run := Run{
		ID:          "run-1",
		SiteURL:     "https://acme.example",
		BrandName:   "Acme",
		Language:    "en",
		CurrentStep: StepPending,
		Status:      StatusPending,
		Progress:    Progress{Step: StepPending, Percent: 0, Message: "run created"},
		CreatedAt:   time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO runs").
		WithArgs(
			run.ID,
			"", // company_id, nulled in SQL
			run.SiteURL,
			run.BrandName,
			run.Country,
			run.Language,
			run.Region,
			run.CurrentStep,
			run.Status,
			run.Progress.Step,
			run.Progress.Percent,
			run.Progress.Message,
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), run); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery("SELECT").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoUpdateStateNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("UPDATE runs").
		WithArgs(StepSitemapFound, StatusRunning, StepSitemapFound, 15, "sitemap discovered", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdateState(context.Background(), "missing", StepSitemapFound, StatusRunning, Progress{
		Step:    StepSitemapFound,
		Percent: 15,
		Message: "sitemap discovered",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoSetError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("UPDATE runs").
		WithArgs(StatusFailed, "llm timeout", "run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetError(context.Background(), "run-1", "llm timeout"); err != nil {
		t.Fatalf("SetError: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
