package ports

import (
	"context"
	"io"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
)

// EnvelopeRepository persists envelopes, their documents and filing results.
type EnvelopeRepository interface {
	CreateEnvelope(ctx context.Context, envelope *domain.Envelope) error
	GetEnvelope(ctx context.Context, id string) (*domain.Envelope, error)
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	UpdateEnvelopeStatus(ctx context.Context, id string, status domain.EnvelopeStatus, errMessage string) error
	UpdateDocumentStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveFiling(ctx context.Context, documentID string, result domain.FilingResult) error
}

// ObjectStorage keeps inbound attachment bytes until the worker picks them up.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes envelope events.
type MessageQueue interface {
	PublishEnvelopeReceived(ctx context.Context, envelopeID string) error
	SubscribeEnvelopeReceived(ctx context.Context, handler func(context.Context, string) error) error
}

// CaseRegistry is the firm's case lookup table. Rows are only ever appended
// or have their calendar columns filled in.
type CaseRegistry interface {
	Records(ctx context.Context) ([]domain.RegistryRecord, error)
	AppendRecord(ctx context.Context, record domain.RegistryRecord) error
	RecordTrialDates(ctx context.Context, caseNumber string, dates domain.ExtractedDates, orderDate string) error
}

// CaseStore is the client/matter folder tree documents are filed into.
type CaseStore interface {
	ListMatterFolders(ctx context.Context) ([]domain.MatterFolder, error)
	Write(ctx context.Context, dir, filename string, data []byte) (domain.StoredFile, error)
}

// PDFTextExtractor returns plain text per page for at most maxPages pages.
type PDFTextExtractor interface {
	ExtractPages(ctx context.Context, data []byte, maxPages int) ([]string, error)
}

// DocumentFetcher downloads linked court documents.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// TrialNotifier announces newly filed trial and case management orders.
type TrialNotifier interface {
	NotifyTrialOrder(ctx context.Context, notice domain.TrialOrderNotice) error
}

// LinkExtractor finds individual court document links in an email body.
type LinkExtractor interface {
	DocumentLinks(bodyHTML string) ([]domain.DocumentLink, error)
}
