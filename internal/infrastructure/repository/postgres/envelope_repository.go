package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
)

type EnvelopeRepository struct {
	db *sql.DB
}

func NewEnvelopeRepository(db *sql.DB) *EnvelopeRepository {
	return &EnvelopeRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *EnvelopeRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101701)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS envelopes (
	id TEXT PRIMARY KEY,
	subject TEXT NOT NULL,
	sender TEXT NOT NULL DEFAULT '',
	received_at TIMESTAMPTZ,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS envelope_documents (
	id TEXT PRIMARY KEY,
	envelope_id TEXT NOT NULL REFERENCES envelopes(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	title TEXT NOT NULL,
	source TEXT NOT NULL,
	source_url TEXT NOT NULL DEFAULT '',
	storage_path TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	filing JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (envelope_id, position)
);

CREATE INDEX IF NOT EXISTS idx_envelopes_status ON envelopes(status);
CREATE INDEX IF NOT EXISTS idx_envelopes_created_at ON envelopes(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_envelope_documents_envelope ON envelope_documents(envelope_id, position);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *EnvelopeRepository) CreateEnvelope(ctx context.Context, envelope *domain.Envelope) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin envelope tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO envelopes (id, subject, sender, received_at, status, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		envelope.ID, envelope.Subject, envelope.Sender, envelope.ReceivedAt, string(envelope.Status),
		envelope.Error, envelope.CreatedAt, envelope.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert envelope: %w", err)
	}

	for _, doc := range envelope.Documents {
		_, err = tx.ExecContext(ctx, `
INSERT INTO envelope_documents (
	id, envelope_id, position, title, source, source_url, storage_path, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
			doc.ID, envelope.ID, doc.Position, doc.Title, string(doc.Source), doc.SourceURL, doc.StoragePath,
			string(doc.Status), doc.Error, doc.CreatedAt, doc.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert envelope document %d: %w", doc.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit envelope tx: %w", err)
	}
	return nil
}

func (r *EnvelopeRepository) GetEnvelope(ctx context.Context, id string) (*domain.Envelope, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, subject, sender, received_at, status, error_message, created_at, updated_at
FROM envelopes
WHERE id = $1
`, id)

	var envelope domain.Envelope
	var receivedAt sql.NullTime
	var status string
	err := row.Scan(
		&envelope.ID, &envelope.Subject, &envelope.Sender, &receivedAt, &status,
		&envelope.Error, &envelope.CreatedAt, &envelope.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrEnvelopeNotFound, "get envelope", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan envelope: %w", err)
	}
	envelope.Status = domain.EnvelopeStatus(status)
	if receivedAt.Valid {
		t := receivedAt.Time
		envelope.ReceivedAt = &t
	}

	rows, err := r.db.QueryContext(ctx, documentSelect+`
WHERE envelope_id = $1
ORDER BY position ASC
`, id)
	if err != nil {
		return nil, fmt.Errorf("query envelope documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		envelope.Documents = append(envelope.Documents, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate envelope documents: %w", err)
	}
	return &envelope, nil
}

func (r *EnvelopeRepository) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, documentSelect+`
WHERE id = $1
`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, err
	}
	return doc, nil
}

func (r *EnvelopeRepository) UpdateEnvelopeStatus(ctx context.Context, id string, status domain.EnvelopeStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE envelopes
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update envelope status: %w", err)
	}
	return requireAffected(res, domain.ErrEnvelopeNotFound, "update envelope status", id)
}

func (r *EnvelopeRepository) UpdateDocumentStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE envelope_documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireAffected(res, domain.ErrDocumentNotFound, "update document status", id)
}

// SaveFiling stores the pipeline result and marks the document filed.
func (r *EnvelopeRepository) SaveFiling(ctx context.Context, documentID string, result domain.FilingResult) error {
	filingJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal filing: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE envelope_documents
SET filing = $2, status = $3, error_message = '', updated_at = $4
WHERE id = $1
`, documentID, filingJSON, string(domain.StatusFiled), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save filing: %w", err)
	}
	return requireAffected(res, domain.ErrDocumentNotFound, "save filing", documentID)
}

const documentSelect = `
SELECT id, envelope_id, position, title, source, source_url, storage_path, status, error_message, filing, created_at, updated_at
FROM envelope_documents`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var source, status string
	var filingRaw []byte
	err := row.Scan(
		&doc.ID, &doc.EnvelopeID, &doc.Position, &doc.Title, &source, &doc.SourceURL, &doc.StoragePath,
		&status, &doc.Error, &filingRaw, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	doc.Source = domain.DocumentSource(source)
	doc.Status = domain.DocumentStatus(status)
	if len(filingRaw) > 0 {
		var filing domain.FilingResult
		if err := json.Unmarshal(filingRaw, &filing); err != nil {
			return nil, fmt.Errorf("unmarshal filing: %w", err)
		}
		doc.Filing = &filing
	}
	return &doc, nil
}

func requireAffected(res sql.Result, kind error, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(kind, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}
