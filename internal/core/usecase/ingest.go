package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
	"github.com/kirillkom/court-docket-router/internal/core/ports"
)

const (
	DefaultMaxArchiveBytes int64 = 100 << 20
	DefaultMaxMemberBytes  int64 = 50 << 20
)

type IngestLimits struct {
	MaxArchiveBytes int64
	MaxMemberBytes  int64
}

type IngestEnvelopeUseCase struct {
	repo    ports.EnvelopeRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	links   ports.LinkExtractor
	limits  IngestLimits
}

func NewIngestEnvelopeUseCase(
	repo ports.EnvelopeRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	links ports.LinkExtractor,
	limits IngestLimits,
) *IngestEnvelopeUseCase {
	if limits.MaxArchiveBytes <= 0 {
		limits.MaxArchiveBytes = DefaultMaxArchiveBytes
	}
	if limits.MaxMemberBytes <= 0 {
		limits.MaxMemberBytes = DefaultMaxMemberBytes
	}
	return &IngestEnvelopeUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
		links:   links,
		limits:  limits,
	}
}

// Submit stores the PDFs an email carries and queues the envelope. Court
// download links are processed before attachments. Assignment emails are
// queued even without documents so the registry row gets written.
func (uc *IngestEnvelopeUseCase) Submit(ctx context.Context, input domain.EnvelopeInput) (*domain.Envelope, error) {
	links, err := uc.links.DocumentLinks(input.BodyHTML)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse email body", err)
	}
	attachments, err := uc.collectPDFs(input.Attachments)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 && len(attachments) == 0 && !isAssignmentSubject(input.Subject) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit envelope", errors.New("no pdf links or attachments"))
	}

	now := time.Now().UTC()
	envelope := &domain.Envelope{
		ID:         uuid.NewString(),
		Subject:    strings.TrimSpace(input.Subject),
		Sender:     strings.TrimSpace(input.Sender),
		ReceivedAt: input.ReceivedAt,
		Status:     domain.EnvelopeReceived,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	for _, link := range links {
		envelope.Documents = append(envelope.Documents, uc.newDocument(envelope, domain.SourceLink, link.Title, now, func(doc *domain.Document) {
			doc.SourceURL = link.URL
		}))
	}
	for _, attachment := range attachments {
		doc := uc.newDocument(envelope, domain.SourceAttachment, domain.TitleFromFilename(attachment.Filename), now, nil)
		doc.StoragePath = fmt.Sprintf("%s/%02d_%s", envelope.ID, doc.Position, sanitizeFilename(attachment.Filename))
		if err := uc.storage.Save(ctx, doc.StoragePath, bytes.NewReader(attachment.Data)); err != nil {
			return nil, fmt.Errorf("save to object storage: %w", err)
		}
		envelope.Documents = append(envelope.Documents, doc)
	}

	if err := uc.repo.CreateEnvelope(ctx, envelope); err != nil {
		return nil, fmt.Errorf("create envelope metadata: %w", err)
	}

	if err := uc.queue.PublishEnvelopeReceived(ctx, envelope.ID); err != nil {
		return nil, fmt.Errorf("publish envelope event: %w", err)
	}

	return envelope, nil
}

func (uc *IngestEnvelopeUseCase) newDocument(
	envelope *domain.Envelope,
	source domain.DocumentSource,
	title string,
	now time.Time,
	apply func(*domain.Document),
) domain.Document {
	doc := domain.Document{
		ID:         uuid.NewString(),
		EnvelopeID: envelope.ID,
		Position:   len(envelope.Documents),
		Title:      strings.TrimSpace(title),
		Source:     source,
		Status:     domain.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if doc.Title == "" {
		doc.Title = fmt.Sprintf("Document %d", doc.Position+1)
	}
	if apply != nil {
		apply(&doc)
	}
	return doc
}

// collectPDFs keeps PDF attachments and expands ZIP bundles. Other files
// are ignored.
func (uc *IngestEnvelopeUseCase) collectPDFs(attachments []domain.Attachment) ([]domain.Attachment, error) {
	var out []domain.Attachment
	for _, attachment := range attachments {
		name := strings.ToLower(attachment.Filename)
		switch {
		case strings.HasSuffix(name, ".pdf"):
			out = append(out, attachment)
		case strings.HasSuffix(name, ".zip"):
			members, err := uc.expandZip(attachment)
			if err != nil {
				return nil, err
			}
			out = append(out, members...)
		}
	}
	return out, nil
}

func (uc *IngestEnvelopeUseCase) expandZip(attachment domain.Attachment) ([]domain.Attachment, error) {
	if int64(len(attachment.Data)) > uc.limits.MaxArchiveBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "expand zip", fmt.Errorf("%s exceeds %d bytes", attachment.Filename, uc.limits.MaxArchiveBytes))
	}
	reader, err := zip.NewReader(bytes.NewReader(attachment.Data), int64(len(attachment.Data)))
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open zip", err)
	}

	var out []domain.Attachment
	for _, file := range reader.File {
		if file.FileInfo().IsDir() || strings.Contains(file.Name, "..") {
			continue
		}
		base := path.Base(strings.ReplaceAll(file.Name, `\`, "/"))
		if !strings.HasSuffix(strings.ToLower(base), ".pdf") {
			continue
		}
		if file.UncompressedSize64 > uint64(uc.limits.MaxMemberBytes) {
			continue
		}
		data, err := readZipMember(file, uc.limits.MaxMemberBytes)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Attachment{Filename: base, Data: data})
	}
	return out, nil
}

func readZipMember(file *zip.File, limit int64) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open zip member", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read zip member", err)
	}
	if int64(len(data)) > limit {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read zip member", fmt.Errorf("%s exceeds %d bytes", file.Name, limit))
	}
	return data, nil
}

func sanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "/" {
		return "document.pdf"
	}
	return base
}
