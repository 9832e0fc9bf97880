package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/tradepilot/tradepilot/internal/core/domain"
)

func TestInsertRunBindsAllColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	created := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	record := domain.RunRecord{
		ID:                  "run-1",
		Question:            "Tariff for cars from Japan to Canada?",
		ExtractionStatus:    "success",
		AcquisitionStatus:   "success",
		DocumentsWritten:    true,
		FallbackUsed:        false,
		RetrievedChunkCount: 6,
		AnswerPreview:       "The preferential duty is...",
		DurationMS:          4200,
		CreatedAt:           created,
	}

	mock.ExpectExec("INSERT INTO runs").
		WithArgs(record.ID, record.Question, record.ExtractionStatus, record.AcquisitionStatus,
			record.DocumentsWritten, record.FallbackUsed, record.RetrievedChunkCount, nil,
			record.AnswerPreview, record.DurationMS, record.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewRunRepository(db)
	if err := repo.InsertRun(context.Background(), record); err != nil {
		t.Fatalf("InsertRun() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertRunPassesFailedStageWhenSet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	record := domain.RunRecord{
		ID:                "run-2",
		Question:          "q",
		ExtractionStatus:  "success",
		AcquisitionStatus: "error",
		FailedStage:       "acquire_documents",
		CreatedAt:         time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO runs").
		WithArgs(record.ID, record.Question, record.ExtractionStatus, record.AcquisitionStatus,
			false, false, 0, record.FailedStage, "", int64(0), record.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewRunRepository(db)
	if err := repo.InsertRun(context.Background(), record); err != nil {
		t.Fatalf("InsertRun() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnsureSchemaRunsDDLInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	repo := NewRunRepository(db)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
