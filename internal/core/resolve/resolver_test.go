package resolve

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
)

var testRules = InferenceRules{
	DefendantClients: []DefendantClient{
		{Match: "Citizens", Client: "272"},
		{Match: "Acme Insurance", Client: "4700"},
	},
	DefaultClient: "4694",
	Attorney:      "EAZ",
}

func newTestResolver(registry *registryFake) *Resolver {
	return NewResolver(DefaultStrategies(registry, testRules)...)
}

func resolveSubject(t *testing.T, registry *registryFake, subject string, opts domain.ResolveOptions) (domain.CaseIdentity, *Index) {
	t.Helper()
	ix := NewIndex(registry.records, sampleFolders, time.Now())
	doc := domain.NewDocumentContext("Notice", subject, []string{"page one"}, nil)
	identity, err := newTestResolver(registry).Resolve(context.Background(), ix, SignalsFrom(doc), opts)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	return identity, ix
}

func TestResolveSubjectCaseNumber(t *testing.T) {
	registry := &registryFake{records: []domain.RegistryRecord{
		{Client: "272", Matter: "90250143", CaseNumber: "062024CA018136AXXXCE"},
	}}
	identity, _ := resolveSubject(t, registry, "SERVICE OF COURT DOCUMENT CASE NUMBER: 062024CA018136AXXXCE Tomasini vs Citizens", domain.ResolveOptions{})

	if identity.Confidence != domain.ConfidenceExact || identity.RelativePath != "272/90250143 - Tomasini" {
		t.Fatalf("unexpected identity %+v", identity)
	}
	if identity.ResolvedBy != StrategySubjectCaseNumber {
		t.Fatalf("expected subject strategy, got %q", identity.ResolvedBy)
	}
	if len(registry.appended) != 0 {
		t.Fatalf("exact match must not append rows")
	}
}

func TestResolveCaptionCaseNumber(t *testing.T) {
	registry := &registryFake{records: []domain.RegistryRecord{
		{Client: "272", Matter: "90250143", CaseNumber: "062024CA018136AXXXCE"},
	}}
	ix := NewIndex(registry.records, sampleFolders, time.Now())
	doc := domain.NewDocumentContext("Notice", "", []string{"IN THE CIRCUIT COURT\n", "CASE NO.: 062024CA018136AXXXCE\n"}, nil)

	identity, err := newTestResolver(registry).Resolve(context.Background(), ix, SignalsFrom(doc), domain.ResolveOptions{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if identity.ResolvedBy != StrategyCaptionCaseNumber || identity.Confidence != domain.ConfidenceExact {
		t.Fatalf("unexpected identity %+v", identity)
	}
}

func TestResolveClaimNumber(t *testing.T) {
	registry := &registryFake{records: []domain.RegistryRecord{
		{Client: "310", Matter: "2001", ClaimNo: "2023-632391"},
	}}
	identity, _ := resolveSubject(t, registry, "Re: Claim # 2023-632391 documents", domain.ResolveOptions{})
	if identity.ResolvedBy != StrategyClaimNumber || identity.RelativePath != "310/2001 - Unique Defendant Corp Claim" {
		t.Fatalf("unexpected identity %+v", identity)
	}
}

func TestResolveUniquePartyMatch(t *testing.T) {
	registry := &registryFake{}
	identity, _ := resolveSubject(t, registry, "Smith v. Unique Defendant Corp", domain.ResolveOptions{})

	if identity.Confidence != domain.ConfidenceExact || identity.ResolvedBy != StrategyPartyMatch {
		t.Fatalf("expected party match, got %+v", identity)
	}
	if identity.Client != "310" || identity.Matter != "2001" {
		t.Fatalf("unexpected identity %+v", identity)
	}
}

func TestResolveAmbiguousPartyStaysUnresolved(t *testing.T) {
	registry := &registryFake{}
	identity, _ := resolveSubject(t, registry, "Smith v. Nobody Known", domain.ResolveOptions{})
	if identity.Confidence != domain.ConfidenceUnresolved {
		t.Fatalf("expected unresolved, got %+v", identity)
	}
	if len(registry.appended) != 0 {
		t.Fatalf("unresolved documents must not append rows")
	}
}

func TestResolveClientInferenceFromDefendant(t *testing.T) {
	registry := &registryFake{}
	identity, _ := resolveSubject(t, registry, "Jones v. Acme Insurance Co - Notice", domain.ResolveOptions{})

	if identity.Confidence != domain.ConfidenceClientOnly || identity.Client != "4700" {
		t.Fatalf("expected client-only 4700, got %+v", identity)
	}
	if len(registry.appended) != 1 {
		t.Fatalf("expected one appended row, got %d", len(registry.appended))
	}
	row := registry.appended[0]
	if row.Attorney != "EAZ" || row.Client != "4700" || row.Style != "Jones vs Acme Insurance Co" {
		t.Fatalf("unexpected row %+v", row)
	}
}

func TestResolveClientInferenceDefaultClientNeedsCaseNumber(t *testing.T) {
	registry := &registryFake{}
	identity, ix := resolveSubject(t, registry, "CASE NUMBER: 992025CC000999 Doe vs Roe, Notice", domain.ResolveOptions{})

	if identity.Client != "4694" || identity.Confidence != domain.ConfidenceClientOnly {
		t.Fatalf("expected default client, got %+v", identity)
	}
	if len(registry.appended) != 1 || registry.appended[0].CaseNumber != "992025CC000999" || registry.appended[0].Style != "Doe vs Roe" {
		t.Fatalf("unexpected appended rows %+v", registry.appended)
	}
	if got, ok := ix.LookupCase("992025CC000999"); !ok || got.Client != "4694" {
		t.Fatalf("index must reflect the append, got %+v", got)
	}

	registry = &registryFake{}
	identity, _ = resolveSubject(t, registry, "Doe v. Roe", domain.ResolveOptions{})
	if identity.Confidence != domain.ConfidenceUnresolved || len(registry.appended) != 0 {
		t.Fatalf("default client needs a case number, got %+v", identity)
	}
}

func TestResolveDryRunDoesNotAppend(t *testing.T) {
	registry := &registryFake{}
	identity, ix := resolveSubject(t, registry, "CASE NUMBER: 992025CC000999 Doe vs Roe", domain.ResolveOptions{DryRun: true})

	if identity.Confidence != domain.ConfidenceClientOnly {
		t.Fatalf("dry run still decides, got %+v", identity)
	}
	if len(registry.appended) != 0 {
		t.Fatalf("dry run must not write to the registry")
	}
	if _, ok := ix.Record("992025CC000999"); ok {
		t.Fatalf("dry run must not touch the index")
	}
}

func TestResolveKnownClientOnlyRowIsNotDuplicated(t *testing.T) {
	registry := &registryFake{records: []domain.RegistryRecord{{Client: "500", CaseNumber: "CASE-9"}}}
	identity, _ := resolveSubject(t, registry, "CASE NUMBER: CASE-9", domain.ResolveOptions{})

	if identity.Client != "500" || identity.ResolvedBy != StrategySubjectCaseNumber {
		t.Fatalf("expected registry client, got %+v", identity)
	}
	if len(registry.appended) != 0 {
		t.Fatalf("known case number must not append, got %+v", registry.appended)
	}
}

func TestResolveAppendFailureIsAnError(t *testing.T) {
	registry := &registryFake{appendErr: errors.New("workbook locked")}
	ix := NewIndex(nil, sampleFolders, time.Now())
	doc := domain.NewDocumentContext("Notice", "CASE NUMBER: CASE-77", nil, nil)

	if _, err := newTestResolver(registry).Resolve(context.Background(), ix, SignalsFrom(doc), domain.ResolveOptions{}); err == nil {
		t.Fatalf("expected append error")
	}
	if _, ok := ix.Record("CASE-77"); ok {
		t.Fatalf("failed append must not reach the index")
	}
}

func TestResolvePriorShortCircuits(t *testing.T) {
	registry := &registryFake{}
	prior := &domain.CaseIdentity{Client: "272", Matter: "1", RelativePath: "272/1 - A", Confidence: domain.ConfidenceExact}
	identity, _ := resolveSubject(t, registry, "CASE NUMBER: CASE-77", domain.ResolveOptions{Prior: prior})

	if identity.RelativePath != "272/1 - A" || identity.ResolvedBy != StrategySibling {
		t.Fatalf("expected sibling identity, got %+v", identity)
	}
	if len(registry.appended) != 0 {
		t.Fatalf("sibling reuse must skip client inference")
	}
}

type fixedStrategy struct {
	name     string
	identity domain.CaseIdentity
	called   *int
}

func (s fixedStrategy) Name() string { return s.name }

func (s fixedStrategy) Resolve(context.Context, Query) (domain.CaseIdentity, error) {
	if s.called != nil {
		*s.called++
	}
	return s.identity, nil
}

func TestResolverPrefersLaterExactOverEarlierClientOnly(t *testing.T) {
	var lastCalls int
	r := NewResolver(
		fixedStrategy{name: "a", identity: domain.CaseIdentity{Client: "1", Confidence: domain.ConfidenceClientOnly}},
		fixedStrategy{name: "b", identity: domain.CaseIdentity{Client: "2", RelativePath: "2/x", Confidence: domain.ConfidenceExact}},
		fixedStrategy{name: "c", identity: domain.CaseIdentity{Client: "3", Confidence: domain.ConfidenceExact}, called: &lastCalls},
	)
	identity, err := r.Resolve(context.Background(), NewIndex(nil, nil, time.Now()), Signals{}, domain.ResolveOptions{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if identity.Client != "2" || identity.ResolvedBy != "b" {
		t.Fatalf("unexpected identity %+v", identity)
	}
	if lastCalls != 0 {
		t.Fatalf("chain must stop at the first exact outcome")
	}
}

func TestResolverKeepsFirstClientOnly(t *testing.T) {
	r := NewResolver(
		fixedStrategy{name: "a", identity: domain.CaseIdentity{Client: "1", Confidence: domain.ConfidenceClientOnly}},
		fixedStrategy{name: "b", identity: domain.CaseIdentity{Client: "2", Confidence: domain.ConfidenceClientOnly}},
	)
	identity, _ := r.Resolve(context.Background(), NewIndex(nil, nil, time.Now()), Signals{}, domain.ResolveOptions{})
	if identity.Client != "1" || identity.ResolvedBy != "a" {
		t.Fatalf("unexpected identity %+v", identity)
	}
}

func TestResolveClientInferenceAppendsStyleOnce(t *testing.T) {
	registry := &registryFake{}
	ix := NewIndex(nil, sampleFolders, time.Now())
	resolver := newTestResolver(registry)
	doc := domain.NewDocumentContext("Notice", "Jones v. Acme Insurance Co - Notice", []string{"page one"}, nil)

	for i := 0; i < 3; i++ {
		identity, err := resolver.Resolve(context.Background(), ix, SignalsFrom(doc), domain.ResolveOptions{})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if identity.Client != "4700" || identity.Confidence != domain.ConfidenceClientOnly {
			t.Fatalf("run %d: unexpected identity %+v", i, identity)
		}
	}
	if len(registry.appended) != 1 {
		t.Fatalf("expected one appended row across runs, got %+v", registry.appended)
	}
}

func TestResolveClientInferenceSkipsRowWithoutStyleOrCase(t *testing.T) {
	registry := &registryFake{}
	identity, _ := resolveSubject(t, registry, "Courtesy copy from Citizens Property Insurance", domain.ResolveOptions{})

	if identity.Client != "272" || identity.Confidence != domain.ConfidenceClientOnly {
		t.Fatalf("expected client-only 272, got %+v", identity)
	}
	if len(registry.appended) != 0 {
		t.Fatalf("a row without case number or style must not be appended, got %+v", registry.appended)
	}
}

func TestResolveClientInferenceKnownStyleIsNotDuplicated(t *testing.T) {
	registry := &registryFake{records: []domain.RegistryRecord{{Client: "4700", Style: "JONES VS ACME INSURANCE CO"}}}
	identity, _ := resolveSubject(t, registry, "Jones v. Acme Insurance Co - Notice", domain.ResolveOptions{})

	if identity.Client != "4700" {
		t.Fatalf("unexpected identity %+v", identity)
	}
	if len(registry.appended) != 0 {
		t.Fatalf("registry already holds the style, got %+v", registry.appended)
	}
}

func TestResolvePartyMatchByWordsWithoutCaseNumber(t *testing.T) {
	folders := []domain.MatterFolder{
		{Client: "310", Name: "2001 - Unique Defendant"},
		{Client: "272", Name: "90250143 - Tomasini"},
	}
	registry := &registryFake{}
	ix := NewIndex(nil, folders, time.Now())
	doc := domain.NewDocumentContext("Notice of Deposition", "Smith v. Unique Defendant Corp", []string{"NOTICE OF TAKING DEPOSITION"}, nil)

	identity, err := newTestResolver(registry).Resolve(context.Background(), ix, SignalsFrom(doc), domain.ResolveOptions{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if identity.ResolvedBy != StrategyPartyMatch || identity.Confidence != domain.ConfidenceExact {
		t.Fatalf("expected party match, got %+v", identity)
	}
	if identity.RelativePath != "310/2001 - Unique Defendant" || identity.Matter != "2001" {
		t.Fatalf("unexpected identity %+v", identity)
	}
	if len(registry.appended) != 0 {
		t.Fatalf("party match must not append rows")
	}
}
