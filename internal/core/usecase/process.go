package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
	"github.com/kirillkom/court-docket-router/internal/core/ports"
)

const (
	DefaultMaxPages       = 3
	DefaultMaxEnvelopeAge = 7 * 24 * time.Hour

	orderDateLayout = "2006-01-02"
)

// FilingObserver is notified about every filed document.
type FilingObserver interface {
	ObserveFiling(result domain.FilingResult)
}

type ProcessOptions struct {
	MaxPages       int
	MaxEnvelopeAge time.Duration
	TrackerUpdates bool
	Observer       FilingObserver
}

type ProcessEnvelopeUseCase struct {
	repo        ports.EnvelopeRepository
	storage     ports.ObjectStorage
	fetcher     ports.DocumentFetcher
	extractor   ports.PDFTextExtractor
	pipeline    ports.FilingResolver
	store       ports.CaseStore
	tracker     ports.CaseRegistry
	notifier    ports.TrialNotifier
	assignments *AssignmentUseCase
	opts        ProcessOptions
	now         func() time.Time
}

func NewProcessEnvelopeUseCase(
	repo ports.EnvelopeRepository,
	storage ports.ObjectStorage,
	fetcher ports.DocumentFetcher,
	extractor ports.PDFTextExtractor,
	pipeline ports.FilingResolver,
	store ports.CaseStore,
	tracker ports.CaseRegistry,
	notifier ports.TrialNotifier,
	assignments *AssignmentUseCase,
	opts ProcessOptions,
) *ProcessEnvelopeUseCase {
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	return &ProcessEnvelopeUseCase{
		repo:        repo,
		storage:     storage,
		fetcher:     fetcher,
		extractor:   extractor,
		pipeline:    pipeline,
		store:       store,
		tracker:     tracker,
		notifier:    notifier,
		assignments: assignments,
		opts:        opts,
		now:         time.Now,
	}
}

// ProcessByID files every document of an envelope in order. A failing
// document is marked failed and the rest continue; the envelope only fails
// when none of its documents could be filed.
func (uc *ProcessEnvelopeUseCase) ProcessByID(ctx context.Context, envelopeID string) error {
	envelope, err := uc.repo.GetEnvelope(ctx, envelopeID)
	if err != nil {
		return fmt.Errorf("fetch envelope by id: %w", err)
	}
	if envelope.Status == domain.EnvelopeProcessed || envelope.Status == domain.EnvelopeExpired {
		return nil
	}

	if uc.expired(envelope) {
		slog.Info("envelope_expired", "envelope_id", envelope.ID, "max_age", uc.opts.MaxEnvelopeAge.String())
		if err := uc.repo.UpdateEnvelopeStatus(ctx, envelope.ID, domain.EnvelopeExpired, "court download links expired"); err != nil {
			return fmt.Errorf("set status=expired: %w", err)
		}
		return nil
	}

	if err := uc.repo.UpdateEnvelopeStatus(ctx, envelope.ID, domain.EnvelopeProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if uc.assignments != nil {
		if _, err := uc.assignments.Register(ctx, envelope.Subject); err != nil {
			return uc.failEnvelope(ctx, envelope.ID, err)
		}
	}

	var prior *domain.CaseIdentity
	filed := 0
	for _, doc := range envelope.Documents {
		if doc.Status == domain.StatusFiled && doc.Filing != nil {
			filed++
			if prior == nil && doc.Filing.Identity.Resolved() {
				identity := doc.Filing.Identity
				prior = &identity
			}
			continue
		}
		result, err := uc.processDocument(ctx, envelope, doc, prior)
		if err != nil {
			slog.Warn("document_failed", "envelope_id", envelope.ID, "document_id", doc.ID, "title", doc.Title, "error", err.Error())
			if markErr := uc.repo.UpdateDocumentStatus(ctx, doc.ID, domain.StatusFailed, err.Error()); markErr != nil {
				return fmt.Errorf("%w; mark failed status: %v", err, markErr)
			}
			continue
		}
		filed++
		if prior == nil && result.Identity.Resolved() {
			identity := result.Identity
			prior = &identity
		}
	}

	if filed == 0 && (len(envelope.Documents) > 0 || !isAssignmentSubject(envelope.Subject)) {
		return uc.failEnvelope(ctx, envelope.ID, fmt.Errorf("none of %d documents was filed", len(envelope.Documents)))
	}
	if err := uc.repo.UpdateEnvelopeStatus(ctx, envelope.ID, domain.EnvelopeProcessed, ""); err != nil {
		return fmt.Errorf("set status=processed: %w", err)
	}
	return nil
}

func (uc *ProcessEnvelopeUseCase) processDocument(
	ctx context.Context,
	envelope *domain.Envelope,
	doc domain.Document,
	prior *domain.CaseIdentity,
) (*domain.FilingResult, error) {
	if err := uc.repo.UpdateDocumentStatus(ctx, doc.ID, domain.StatusProcessing, ""); err != nil {
		return nil, fmt.Errorf("set document status=processing: %w", err)
	}

	data, err := uc.loadContent(ctx, doc)
	if err != nil {
		return nil, err
	}

	pages, err := uc.extractor.ExtractPages(ctx, data, uc.opts.MaxPages)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	docCtx := domain.NewDocumentContext(doc.Title, envelope.Subject, pages, envelope.ReceivedAt)
	result, err := uc.pipeline.ResolveAndFile(ctx, docCtx, domain.ResolveOptions{Prior: prior})
	if err != nil {
		return nil, fmt.Errorf("resolve filing: %w", err)
	}

	stored, err := uc.store.Write(ctx, result.Decision.TargetPath, result.Decision.Filename, data)
	if err != nil {
		return nil, fmt.Errorf("write to case store: %w", err)
	}
	result.StoredPath = stored.Path
	result.Duplicate = stored.Duplicate
	result.FiledAt = uc.now().UTC()

	if err := uc.repo.SaveFiling(ctx, doc.ID, *result); err != nil {
		return nil, fmt.Errorf("save filing: %w", err)
	}

	slog.Info("document_filed",
		"envelope_id", envelope.ID,
		"document_id", doc.ID,
		"tier", string(result.Decision.Tier),
		"type", string(result.Classification.Type),
		"resolved_by", result.Identity.ResolvedBy,
		"path", result.StoredPath,
		"duplicate", result.Duplicate,
	)

	if result.Dates.DocumentType.IsTrialOrder() && result.Dates.HasCalendarData() {
		uc.announceTrialOrder(ctx, envelope, doc, *result)
	}
	if uc.opts.Observer != nil {
		uc.opts.Observer.ObserveFiling(*result)
	}
	return result, nil
}

func (uc *ProcessEnvelopeUseCase) loadContent(ctx context.Context, doc domain.Document) ([]byte, error) {
	switch doc.Source {
	case domain.SourceLink:
		data, err := uc.fetcher.Fetch(ctx, doc.SourceURL)
		if err != nil {
			return nil, fmt.Errorf("download document: %w", err)
		}
		return data, nil
	default:
		rc, err := uc.storage.Open(ctx, doc.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("open stored attachment: %w", err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read stored attachment: %w", err)
		}
		return data, nil
	}
}

// announceTrialOrder updates the tracker columns and sends the notice.
// Neither is allowed to fail the document.
func (uc *ProcessEnvelopeUseCase) announceTrialOrder(ctx context.Context, envelope *domain.Envelope, doc domain.Document, result domain.FilingResult) {
	if uc.opts.TrackerUpdates && result.Identity.CaseNumber != "" {
		err := uc.tracker.RecordTrialDates(ctx, result.Identity.CaseNumber, result.Dates, uc.orderDate(result.Dates))
		switch {
		case errors.Is(err, domain.ErrCaseNotFound):
			slog.Warn("tracker_case_missing", "case_number", result.Identity.CaseNumber)
		case err != nil:
			slog.Warn("tracker_update_failed", "case_number", result.Identity.CaseNumber, "error", err.Error())
		}
	}

	if uc.notifier == nil {
		return
	}
	notice := domain.TrialOrderNotice{
		EnvelopeID: envelope.ID,
		Title:      doc.Title,
		Identity:   result.Identity,
		Dates:      result.Dates,
		StoredPath: result.StoredPath,
	}
	if err := uc.notifier.NotifyTrialOrder(ctx, notice); err != nil {
		slog.Warn("trial_notice_failed", "envelope_id", envelope.ID, "error", err.Error())
	}
}

// orderDate prefers the e-filing stamp (YYYY.MM.DD) over the processing date.
func (uc *ProcessEnvelopeUseCase) orderDate(dates domain.ExtractedDates) string {
	if parsed, err := time.Parse("2006.01.02", dates.EFilingDate); err == nil {
		return parsed.Format(orderDateLayout)
	}
	return uc.now().Format(orderDateLayout)
}

func (uc *ProcessEnvelopeUseCase) expired(envelope *domain.Envelope) bool {
	if uc.opts.MaxEnvelopeAge <= 0 {
		return false
	}
	received := envelope.CreatedAt
	if envelope.ReceivedAt != nil {
		received = *envelope.ReceivedAt
	}
	return uc.now().Sub(received) > uc.opts.MaxEnvelopeAge
}

func (uc *ProcessEnvelopeUseCase) failEnvelope(ctx context.Context, envelopeID string, processErr error) error {
	if err := uc.repo.UpdateEnvelopeStatus(ctx, envelopeID, domain.EnvelopeFailed, processErr.Error()); err != nil {
		return fmt.Errorf("%w; mark failed status: %v", processErr, err)
	}
	return processErr
}
