package ports

import (
	"context"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
)

// EnvelopeIngestor accepts one inbound email with its court documents.
type EnvelopeIngestor interface {
	Submit(ctx context.Context, input domain.EnvelopeInput) (*domain.Envelope, error)
}

// EnvelopeProcessor is the inbound contract for asynchronous envelope processing.
type EnvelopeProcessor interface {
	ProcessByID(ctx context.Context, envelopeID string) error
}

// EnvelopeReader is the inbound read model for envelope and document state.
type EnvelopeReader interface {
	GetEnvelope(ctx context.Context, id string) (*domain.Envelope, error)
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
}

// FilingResolver runs the extraction, classification, resolution and filing
// ladder for one document.
type FilingResolver interface {
	ResolveAndFile(ctx context.Context, doc domain.DocumentContext, opts domain.ResolveOptions) (*domain.FilingResult, error)
}

// IndexInvalidator drops the cached case index so the next resolution rebuilds it.
type IndexInvalidator interface {
	Invalidate()
}
