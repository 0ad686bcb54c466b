package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/kirillkom/court-docket-router/internal/core/classify"
	"github.com/kirillkom/court-docket-router/internal/core/domain"
	"github.com/kirillkom/court-docket-router/internal/core/extract"
	"github.com/kirillkom/court-docket-router/internal/core/resolve"
)

type envelopeStatusCall struct {
	status domain.EnvelopeStatus
	errMsg string
}

type documentStatusCall struct {
	id     string
	status domain.DocumentStatus
	errMsg string
}

type envelopeRepoFake struct {
	envelope      *domain.Envelope
	created       *domain.Envelope
	createErr     error
	getErr        error
	envelopeCalls []envelopeStatusCall
	documentCalls []documentStatusCall
	filings       map[string]domain.FilingResult
	saveFilingErr error
}

func (f *envelopeRepoFake) CreateEnvelope(_ context.Context, envelope *domain.Envelope) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = envelope
	return nil
}

func (f *envelopeRepoFake) GetEnvelope(context.Context, string) (*domain.Envelope, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.envelope == nil {
		return nil, domain.ErrEnvelopeNotFound
	}
	copyEnvelope := *f.envelope
	return &copyEnvelope, nil
}

func (f *envelopeRepoFake) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	if f.envelope != nil {
		for _, doc := range f.envelope.Documents {
			if doc.ID == id {
				copyDoc := doc
				return &copyDoc, nil
			}
		}
	}
	return nil, domain.ErrDocumentNotFound
}

func (f *envelopeRepoFake) UpdateEnvelopeStatus(_ context.Context, _ string, status domain.EnvelopeStatus, errMessage string) error {
	f.envelopeCalls = append(f.envelopeCalls, envelopeStatusCall{status: status, errMsg: errMessage})
	return nil
}

func (f *envelopeRepoFake) UpdateDocumentStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	f.documentCalls = append(f.documentCalls, documentStatusCall{id: id, status: status, errMsg: errMessage})
	return nil
}

func (f *envelopeRepoFake) SaveFiling(_ context.Context, documentID string, result domain.FilingResult) error {
	if f.saveFilingErr != nil {
		return f.saveFilingErr
	}
	if f.filings == nil {
		f.filings = make(map[string]domain.FilingResult)
	}
	f.filings[documentID] = result
	return nil
}

func (f *envelopeRepoFake) lastEnvelopeStatus() domain.EnvelopeStatus {
	if len(f.envelopeCalls) == 0 {
		return ""
	}
	return f.envelopeCalls[len(f.envelopeCalls)-1].status
}

func (f *envelopeRepoFake) failedDocuments() []string {
	var ids []string
	for _, call := range f.documentCalls {
		if call.status == domain.StatusFailed {
			ids = append(ids, call.id)
		}
	}
	return ids
}

type storageFake struct {
	mu      sync.Mutex
	objects map[string][]byte
	saveErr error
}

func newStorageFake() *storageFake {
	return &storageFake{objects: make(map[string][]byte)}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = b
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

type queueFake struct {
	published  []string
	publishErr error
}

func (f *queueFake) PublishEnvelopeReceived(_ context.Context, envelopeID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, envelopeID)
	return nil
}

func (f *queueFake) SubscribeEnvelopeReceived(context.Context, func(context.Context, string) error) error {
	return nil
}

type linksFake struct {
	links []domain.DocumentLink
	err   error
}

func (f *linksFake) DocumentLinks(string) ([]domain.DocumentLink, error) {
	return f.links, f.err
}

type fetcherFake struct {
	content map[string][]byte
	err     error
}

func (f *fetcherFake) Fetch(_ context.Context, url string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.content[url]
	if !ok {
		return nil, errors.New("link expired")
	}
	return b, nil
}

// pagesExtractorFake treats the document bytes as text with pages separated by form feeds.
type pagesExtractorFake struct {
	err error
}

func (f *pagesExtractorFake) ExtractPages(_ context.Context, data []byte, maxPages int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var pages []string
	for _, page := range bytes.Split(data, []byte("\f")) {
		if len(pages) == maxPages {
			break
		}
		pages = append(pages, string(page))
	}
	return pages, nil
}

type caseStoreWrite struct {
	dir      string
	filename string
	data     []byte
}

type caseStoreFake struct {
	folders  []domain.MatterFolder
	listErr  error
	writes   []caseStoreWrite
	writeErr error
}

func (f *caseStoreFake) ListMatterFolders(context.Context) ([]domain.MatterFolder, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.folders, nil
}

func (f *caseStoreFake) Write(_ context.Context, dir, filename string, data []byte) (domain.StoredFile, error) {
	if f.writeErr != nil {
		return domain.StoredFile{}, f.writeErr
	}
	for _, w := range f.writes {
		if w.dir == dir && w.filename == filename && bytes.Equal(w.data, data) {
			return domain.StoredFile{Path: dir + "/" + filename, Duplicate: true}, nil
		}
	}
	f.writes = append(f.writes, caseStoreWrite{dir: dir, filename: filename, data: data})
	return domain.StoredFile{Path: dir + "/" + filename}, nil
}

type trialDatesCall struct {
	caseNumber string
	dates      domain.ExtractedDates
	orderDate  string
}

type registryFake struct {
	records    []domain.RegistryRecord
	appended   []domain.RegistryRecord
	appendErr  error
	trialCalls []trialDatesCall
	trialErr   error
}

func (f *registryFake) Records(context.Context) ([]domain.RegistryRecord, error) {
	return append([]domain.RegistryRecord(nil), f.records...), nil
}

func (f *registryFake) AppendRecord(_ context.Context, record domain.RegistryRecord) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, record)
	f.records = append(f.records, record)
	return nil
}

func (f *registryFake) RecordTrialDates(_ context.Context, caseNumber string, dates domain.ExtractedDates, orderDate string) error {
	f.trialCalls = append(f.trialCalls, trialDatesCall{caseNumber: caseNumber, dates: dates, orderDate: orderDate})
	return f.trialErr
}

type notifierFake struct {
	notices []domain.TrialOrderNotice
	err     error
}

func (f *notifierFake) NotifyTrialOrder(_ context.Context, notice domain.TrialOrderNotice) error {
	f.notices = append(f.notices, notice)
	return f.err
}

type observerFake struct {
	results []domain.FilingResult
}

func (f *observerFake) ObserveFiling(result domain.FilingResult) {
	f.results = append(f.results, result)
}

var fixedNow = time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)

var testFolders = []domain.MatterFolder{
	{Client: "272", Name: "90250143 - Tomasini"},
	{Client: "300", Name: "1001 - Smith, John"},
	{Client: "300", Name: "1002 - Smith, Mary"},
	{Client: "310", Name: "2001 - Unique Defendant"},
}

var testRules = resolve.InferenceRules{
	DefendantClients: []resolve.DefendantClient{{Match: "Acme Insurance", Client: "4700"}},
	DefaultClient:    "4694",
	Attorney:         "EAZ",
}

type pipelineHarness struct {
	registry *registryFake
	store    *caseStoreFake
	indexes  *resolve.IndexProvider
	pipeline *FilingPipeline
}

func newPipelineHarness(records []domain.RegistryRecord) *pipelineHarness {
	registry := &registryFake{records: records}
	store := &caseStoreFake{folders: testFolders}
	indexes := resolve.NewIndexProvider(registry, store, 0)
	pipeline := NewFilingPipeline(
		indexes,
		resolve.NewResolver(resolve.DefaultStrategies(registry, testRules)...),
		classify.NewClassifier(nil),
		extract.NewDateExtractor(0),
	)
	pipeline.now = func() time.Time { return fixedNow }
	return &pipelineHarness{registry: registry, store: store, indexes: indexes, pipeline: pipeline}
}
