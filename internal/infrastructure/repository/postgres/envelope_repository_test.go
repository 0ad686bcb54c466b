package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*EnvelopeRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &EnvelopeRepository{db: db}, mock, func() { _ = db.Close() }
}

var documentColumns = []string{
	"id", "envelope_id", "position", "title", "source", "source_url", "storage_path",
	"status", "error_message", "filing", "created_at", "updated_at",
}

func TestCreateEnvelopeInsertsDocumentsInTransaction(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	envelope := &domain.Envelope{
		ID:        "env-1",
		Subject:   "CASE NUMBER 062024CA018136AXXXCE",
		Status:    domain.EnvelopeReceived,
		CreatedAt: now,
		UpdatedAt: now,
		Documents: []domain.Document{
			{ID: "doc-1", Position: 1, Title: "Order", Source: domain.SourceLink, SourceURL: "https://x", Status: domain.StatusPending, CreatedAt: now, UpdatedAt: now},
			{ID: "doc-2", Position: 2, Title: "Notice", Source: domain.SourceAttachment, StoragePath: "env-1/02_notice.pdf", Status: domain.StatusPending, CreatedAt: now, UpdatedAt: now},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO envelopes").
		WithArgs("env-1", envelope.Subject, "", nil, "received", "", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO envelope_documents").
		WithArgs("doc-1", "env-1", 1, "Order", "link", "https://x", "", "pending", "", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO envelope_documents").
		WithArgs("doc-2", "env-1", 2, "Notice", "attachment", "", "env-1/02_notice.pdf", "pending", "", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.CreateEnvelope(context.Background(), envelope); err != nil {
		t.Fatalf("CreateEnvelope() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateEnvelopeRollsBackOnDocumentFailure(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	envelope := &domain.Envelope{ID: "env-1", Documents: []domain.Document{{ID: "doc-1", Position: 1}}}
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO envelopes").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO envelope_documents").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	if err := repo.CreateEnvelope(context.Background(), envelope); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetEnvelopeReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, subject, sender").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetEnvelope(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrEnvelopeNotFound) {
		t.Fatalf("expected ErrEnvelopeNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetEnvelopeLoadsDocumentsWithFiling(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	filing := domain.FilingResult{
		Decision: domain.FilingDecision{TargetPath: "272/90250273 - Tomasini/Orders", Tier: domain.TierSorted, Filename: "2025.10.01 - Order.pdf"},
		Identity: domain.CaseIdentity{Client: "272", Matter: "90250273", Confidence: domain.ConfidenceExact},
	}
	filingJSON, _ := json.Marshal(filing)

	mock.ExpectQuery("SELECT id, subject, sender").
		WithArgs("env-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject", "sender", "received_at", "status", "error_message", "created_at", "updated_at"}).
			AddRow("env-1", "subject", "court@example", now, "processed", "", now, now))
	mock.ExpectQuery("FROM envelope_documents").
		WithArgs("env-1").
		WillReturnRows(sqlmock.NewRows(documentColumns).
			AddRow("doc-1", "env-1", 1, "Order", "link", "https://x", "", "filed", "", filingJSON, now, now).
			AddRow("doc-2", "env-1", 2, "Notice", "attachment", "", "env-1/02.pdf", "failed", "not a pdf", nil, now, now))

	envelope, err := repo.GetEnvelope(context.Background(), "env-1")
	if err != nil {
		t.Fatalf("GetEnvelope() error: %v", err)
	}
	if envelope.ReceivedAt == nil || envelope.Status != domain.EnvelopeProcessed {
		t.Fatalf("unexpected envelope %+v", envelope)
	}
	if len(envelope.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(envelope.Documents))
	}
	first := envelope.Documents[0]
	if first.Filing == nil || first.Filing.Decision.Tier != domain.TierSorted {
		t.Fatalf("expected decoded filing, got %+v", first.Filing)
	}
	if envelope.Documents[1].Filing != nil || envelope.Documents[1].Error != "not a pdf" {
		t.Fatalf("unexpected second document %+v", envelope.Documents[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetDocumentReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("FROM envelope_documents").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetDocument(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestUpdateDocumentStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE envelope_documents").
		WithArgs("missing", string(domain.StatusProcessing), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateDocumentStatus(context.Background(), "missing", domain.StatusProcessing, "")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateEnvelopeStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE envelopes").
		WithArgs("missing", string(domain.EnvelopeFailed), "boom", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateEnvelopeStatus(context.Background(), "missing", domain.EnvelopeFailed, "boom")
	if !domain.IsKind(err, domain.ErrEnvelopeNotFound) {
		t.Fatalf("expected ErrEnvelopeNotFound, got %v", err)
	}
}

func TestSaveFilingMarksDocumentFiled(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE envelope_documents").
		WithArgs("doc-1", sqlmock.AnyArg(), string(domain.StatusFiled), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveFiling(context.Background(), "doc-1", domain.FilingResult{}); err != nil {
		t.Fatalf("SaveFiling() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
