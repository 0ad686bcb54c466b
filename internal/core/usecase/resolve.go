package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/court-docket-router/internal/core/classify"
	"github.com/kirillkom/court-docket-router/internal/core/domain"
	"github.com/kirillkom/court-docket-router/internal/core/extract"
	"github.com/kirillkom/court-docket-router/internal/core/filing"
	"github.com/kirillkom/court-docket-router/internal/core/resolve"
)

// CaseIndexSource hands out the current case index snapshot.
type CaseIndexSource interface {
	Index(ctx context.Context) (*resolve.Index, error)
}

// FilingPipeline turns one document context into a filing decision. Dates,
// classification and case resolution run independently; the path ladder
// combines them.
type FilingPipeline struct {
	indexes    CaseIndexSource
	resolver   *resolve.Resolver
	classifier *classify.Classifier
	dates      *extract.DateExtractor
	now        func() time.Time
}

func NewFilingPipeline(
	indexes CaseIndexSource,
	resolver *resolve.Resolver,
	classifier *classify.Classifier,
	dates *extract.DateExtractor,
) *FilingPipeline {
	return &FilingPipeline{
		indexes:    indexes,
		resolver:   resolver,
		classifier: classifier,
		dates:      dates,
		now:        time.Now,
	}
}

func (p *FilingPipeline) ResolveAndFile(ctx context.Context, doc domain.DocumentContext, opts domain.ResolveOptions) (*domain.FilingResult, error) {
	dates, ok := p.dates.Extract(extract.Normalize(doc.RawText))
	if !ok {
		dates = domain.EmptyExtraction()
	}
	efiling, stamped := extract.ExtractEFilingDate(doc.FirstPage)
	if stamped {
		dates.EFilingDate = efiling
	}

	classification := p.classifier.Classify(doc.Title, extract.Normalize(doc.FirstPage))

	identity, err := p.resolveIdentity(ctx, doc, opts)
	if err != nil {
		return nil, err
	}

	decision := filing.ResolvePath(&identity, classification, doc.Title)
	decision.Filename = filing.Filename(extract.DatePrefix(efiling, stamped, p.now()), doc.Title)

	return &domain.FilingResult{
		Decision:       decision,
		Dates:          dates,
		Identity:       identity,
		Classification: classification,
	}, nil
}

func (p *FilingPipeline) resolveIdentity(ctx context.Context, doc domain.DocumentContext, opts domain.ResolveOptions) (domain.CaseIdentity, error) {
	var index *resolve.Index
	if opts.Prior == nil || !opts.Prior.Resolved() {
		var err error
		index, err = p.indexes.Index(ctx)
		if err != nil {
			return domain.CaseIdentity{}, fmt.Errorf("load case index: %w", err)
		}
	}

	identity, err := p.resolver.Resolve(ctx, index, resolve.SignalsFrom(doc), opts)
	if err != nil {
		return domain.CaseIdentity{}, fmt.Errorf("resolve case: %w", err)
	}
	return identity, nil
}
