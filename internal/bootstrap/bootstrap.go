package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/court-docket-router/internal/config"
	"github.com/kirillkom/court-docket-router/internal/core/classify"
	"github.com/kirillkom/court-docket-router/internal/core/domain"
	"github.com/kirillkom/court-docket-router/internal/core/extract"
	"github.com/kirillkom/court-docket-router/internal/core/ports"
	"github.com/kirillkom/court-docket-router/internal/core/resolve"
	"github.com/kirillkom/court-docket-router/internal/core/usecase"
	"github.com/kirillkom/court-docket-router/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/court-docket-router/internal/infrastructure/fetch/httpfetch"
	"github.com/kirillkom/court-docket-router/internal/infrastructure/mailbody"
	"github.com/kirillkom/court-docket-router/internal/infrastructure/notify/noop"
	"github.com/kirillkom/court-docket-router/internal/infrastructure/notify/ses"
	"github.com/kirillkom/court-docket-router/internal/infrastructure/queue/nats"
	"github.com/kirillkom/court-docket-router/internal/infrastructure/registry/xlsx"
	"github.com/kirillkom/court-docket-router/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/court-docket-router/internal/infrastructure/resilience"
	"github.com/kirillkom/court-docket-router/internal/infrastructure/storage/localfs"
	s3store "github.com/kirillkom/court-docket-router/internal/infrastructure/storage/s3"
	"github.com/kirillkom/court-docket-router/internal/observability/metrics"
)

const (
	StorageBackendLocal = "local"
	StorageBackendS3    = "s3"
)

// Filing is the part of the application that needs neither Postgres nor
// NATS: registry, case store and the filing pipeline built on them.
type Filing struct {
	Rules      config.Rules
	Registry   *xlsx.Registry
	Inbox      ports.ObjectStorage
	CaseStore  ports.CaseStore
	Indexes    *resolve.IndexProvider
	Classifier *classify.Classifier
	Dates      *extract.DateExtractor
	Pipeline   *usecase.FilingPipeline
	Executor   *resilience.Executor
}

type App struct {
	Config config.Config
	*Filing

	Queue     *nats.Queue
	Repo      ports.EnvelopeRepository
	IngestUC  *usecase.IngestEnvelopeUseCase
	ProcessUC *usecase.ProcessEnvelopeUseCase
	QueryUC   *usecase.EnvelopeQueryUseCase

	closeFn func()
}

func NewFiling(ctx context.Context, cfg config.Config) (*Filing, error) {
	return newFiling(ctx, cfg, nil)
}

func newFiling(ctx context.Context, cfg config.Config, onBreaker func(operation, from, to string)) (*Filing, error) {
	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	executor := resilience.NewExecutor(resilienceConfig(cfg, onBreaker))

	inbox, cases, err := newStorage(ctx, cfg, executor)
	if err != nil {
		return nil, err
	}

	registry := xlsx.New(cfg.RegistryPath, cfg.RegistrySheet)
	indexes := resolve.NewIndexProvider(registry, cases, cfg.IndexTTL)
	resolver := resolve.NewResolver(resolve.DefaultStrategies(registry, inferenceRules(rules))...)
	classifier := classify.NewClassifier(subfolders(rules))
	dates := extract.NewDateExtractor(cfg.CalendarFallbackWindow)

	return &Filing{
		Rules:      rules,
		Registry:   registry,
		Inbox:      inbox,
		CaseStore:  cases,
		Indexes:    indexes,
		Classifier: classifier,
		Dates:      dates,
		Pipeline:   usecase.NewFilingPipeline(indexes, resolver, classifier, dates),
		Executor:   executor,
	}, nil
}

// New wires the full ingestion service. observer may be nil when the
// process does not export worker metrics.
func New(ctx context.Context, cfg config.Config, observer *metrics.WorkerMetrics) (*App, error) {
	var onBreaker func(operation, from, to string)
	if observer != nil {
		onBreaker = observer.ObserveBreakerState
	}
	filing, err := newFiling(ctx, cfg, onBreaker)
	if err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewEnvelopeRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		HandlerTimeout:     cfg.WorkerHandlerTimeout,
		ResilienceExecutor: filing.Executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	notifier, err := newNotifier(ctx, cfg, filing.Executor)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, err
	}

	fetcher := httpfetch.New(httpfetch.Options{
		UserAgent: cfg.FetchUserAgent,
		Timeout:   cfg.FetchTimeout,
		Executor:  filing.Executor,
	})
	links := mailbody.NewLinkExtractor(cfg.LinkMarker)
	extractor := pdftext.NewExtractor(cfg.PDFValidate)
	assignments := usecase.NewAssignmentUseCase(filing.Registry, filing.Indexes, filing.Rules.Attorney)

	opts := usecase.ProcessOptions{
		MaxPages:       filing.Rules.MaxPages,
		MaxEnvelopeAge: cfg.WorkerMaxEnvelopeAge,
		TrackerUpdates: cfg.TrackerUpdatesEnabled,
	}
	if observer != nil {
		opts.Observer = observer
	}

	ingestUC := usecase.NewIngestEnvelopeUseCase(repo, filing.Inbox, queue, links, usecase.IngestLimits{MaxArchiveBytes: cfg.MaxUploadBytes})
	processUC := usecase.NewProcessEnvelopeUseCase(
		repo,
		filing.Inbox,
		fetcher,
		extractor,
		filing.Pipeline,
		filing.CaseStore,
		filing.Registry,
		notifier,
		assignments,
		opts,
	)

	return &App{
		Config: cfg,
		Filing: filing,
		Queue:  queue,
		Repo:   repo,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		QueryUC:   usecase.NewEnvelopeQueryUseCase(repo),

		closeFn: closeAll(queue, db),
	}, nil
}

func closeAll(queue *nats.Queue, db *sql.DB) func() {
	return func() {
		queue.Close()
		_ = db.Close()
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newStorage(ctx context.Context, cfg config.Config, executor *resilience.Executor) (ports.ObjectStorage, ports.CaseStore, error) {
	switch cfg.StorageBackend {
	case "", StorageBackendLocal:
		inbox, err := localfs.New(cfg.InboxPath)
		if err != nil {
			return nil, nil, fmt.Errorf("init inbox storage: %w", err)
		}
		cases, err := localfs.NewCaseStore(cfg.CasesRoot)
		if err != nil {
			return nil, nil, fmt.Errorf("init case store: %w", err)
		}
		return inbox, cases, nil
	case StorageBackendS3:
		client, err := s3store.NewClient(ctx, s3store.Config{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init s3 client: %w", err)
		}
		inbox := s3store.NewStore(client, cfg.S3Bucket, cfg.S3InboxPrefix, executor)
		cases := s3store.NewStore(client, cfg.S3Bucket, cfg.S3CasesPrefix, executor)
		return inbox, cases, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}

func newNotifier(ctx context.Context, cfg config.Config, executor *resilience.Executor) (ports.TrialNotifier, error) {
	if strings.TrimSpace(cfg.SESFromAddress) == "" || len(cfg.NotifyRecipients) == 0 {
		slog.Info("trial_notifier_disabled")
		return noop.New(), nil
	}
	notifier, err := ses.New(ctx, cfg.SESRegion, cfg.SESFromAddress, cfg.SESFromName, cfg.NotifyRecipients, executor)
	if err != nil {
		return nil, fmt.Errorf("init ses notifier: %w", err)
	}
	return notifier, nil
}

// resilienceConfig keeps the slower portal policy for downloads and lets
// the environment tune attempts for both families.
func resilienceConfig(cfg config.Config, onBreaker func(operation, from, to string)) resilience.Config {
	out := resilience.DefaultConfig()
	out.Breaker.Enabled = cfg.BreakerEnabled
	out.OnStateChange = onBreaker
	if cfg.RetryMaxAttempts > 0 {
		out.Retry.MaxAttempts = cfg.RetryMaxAttempts
	}
	if cfg.FetchRetryMaxAttempts > 0 {
		portal := out.Overrides["fetch"]
		portal.MaxAttempts = cfg.FetchRetryMaxAttempts
		out.Overrides["fetch"] = portal
	}
	return out
}

func inferenceRules(rules config.Rules) resolve.InferenceRules {
	out := resolve.InferenceRules{
		DefaultClient: rules.DefaultClient,
		Attorney:      rules.Attorney,
	}
	for _, rule := range rules.DefendantClients {
		out.DefendantClients = append(out.DefendantClients, resolve.DefendantClient{Match: rule.Match, Client: rule.Client})
	}
	return out
}

// subfolders maps rule keys to document types case-insensitively. Unknown
// keys are ignored with a warning.
func subfolders(rules config.Rules) classify.Subfolders {
	known := []domain.DocumentType{
		domain.DocTypeUTO,
		domain.DocTypeCMO,
		domain.DocTypePleading,
		domain.DocTypeDiscovery,
		domain.DocTypeDeposition,
		domain.DocTypeOrder,
		domain.DocTypeOther,
		domain.DocTypeUnknown,
	}
	out := make(classify.Subfolders, len(rules.Subfolders))
	for key, folder := range rules.Subfolders {
		matched := false
		for _, docType := range known {
			if strings.EqualFold(strings.TrimSpace(key), string(docType)) {
				out[docType] = folder
				matched = true
				break
			}
		}
		if !matched {
			slog.Warn("rules_unknown_document_type", slog.String("key", key))
		}
	}
	return out
}
