package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/studypath/studypath-backend/internal/core/domain"
)

func newRunRepoWithMock(t *testing.T) (*RunRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &RunRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestRunCreateMapsUniqueViolationToConflict(t *testing.T) {
	repo, mock, done := newRunRepoWithMock(t)
	defer done()

	// Two concurrent StartRun calls can both pass the HasActiveRun check;
	// the partial unique index on runs(user_id) rejects the loser.
	mock.ExpectExec("INSERT INTO runs").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uniq_runs_active_user"})

	now := time.Now().UTC()
	err := repo.Create(context.Background(), &domain.Run{
		ID:        "r2",
		UserID:    "u1",
		AssetIDs:  []string{"a1"},
		Stage:     domain.StagePending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrRunAlreadyInProgress) {
		t.Fatalf("expected ErrRunAlreadyInProgress, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRunGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRunRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, user_id, asset_ids, stage").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRunUpdateStageReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRunRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE runs").
		WithArgs("missing", string(domain.StageExtracting), 10, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStage(context.Background(), "missing", domain.StageExtracting, 10, "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestHasActiveRunExcludesTerminalStages(t *testing.T) {
	repo, mock, done := newRunRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	active, err := repo.HasActiveRun(context.Background(), "u1")
	if err != nil {
		t.Fatalf("HasActiveRun: %v", err)
	}
	if !active {
		t.Fatalf("expected active run")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
