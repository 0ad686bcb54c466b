package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
	"github.com/kirillkom/court-docket-router/internal/core/ports"
)

const (
	StrategySubjectCaseNumber = "subject_case_number"
	StrategyCaptionCaseNumber = "caption_case_number"
	StrategyClaimNumber       = "claim_number"
	StrategyPartyMatch        = "party_match"
	StrategyClientInference   = "client_inference"
	StrategySibling           = "sibling"
)

// Query is the input of one strategy. Partial is the best client-only
// outcome of the strategies tried before, if any.
type Query struct {
	Index   *Index
	Signals Signals
	Partial *domain.CaseIdentity
	DryRun  bool
}

// Strategy returns an unresolved identity when it has no decision.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, q Query) (domain.CaseIdentity, error)
}

type caseNumberStrategy struct {
	name string
	pick func(Signals) string
}

func SubjectCaseNumber() Strategy {
	return caseNumberStrategy{name: StrategySubjectCaseNumber, pick: func(s Signals) string { return s.SubjectCaseNumber }}
}

func CaptionCaseNumber() Strategy {
	return caseNumberStrategy{name: StrategyCaptionCaseNumber, pick: func(s Signals) string { return s.CaptionCaseNumber }}
}

func ClaimNumber() Strategy {
	return caseNumberStrategy{name: StrategyClaimNumber, pick: func(s Signals) string { return s.ClaimNumber }}
}

func (s caseNumberStrategy) Name() string { return s.name }

func (s caseNumberStrategy) Resolve(_ context.Context, q Query) (domain.CaseIdentity, error) {
	id := s.pick(q.Signals)
	if id == "" {
		return domain.UnresolvedIdentity(), nil
	}
	identity, _ := q.Index.LookupCase(id)
	return identity, nil
}

type partyStrategy struct{}

// PartyMatch tries the plaintiff surname and then the defendant from the
// subject against the folder names.
func PartyMatch() Strategy { return partyStrategy{} }

func (partyStrategy) Name() string { return StrategyPartyMatch }

func (partyStrategy) Resolve(_ context.Context, q Query) (domain.CaseIdentity, error) {
	parties := q.Signals.SubjectParties
	for _, name := range []string{parties.Plaintiff, parties.Defendant} {
		if folder, ok := q.Index.MatchParty(name); ok {
			return identityFromFolder(folder), nil
		}
	}
	return domain.UnresolvedIdentity(), nil
}

// DefendantClient routes documents against a defendant to a client code
// when Match is a case-insensitive substring of the defendant.
type DefendantClient struct {
	Match  string
	Client string
}

type InferenceRules struct {
	DefendantClients []DefendantClient
	DefaultClient    string
	Attorney         string
}

// ClientFor returns the first configured client whose match is found in text.
func (r InferenceRules) ClientFor(text string) (string, bool) {
	upper := strings.ToUpper(text)
	for _, rule := range r.DefendantClients {
		match := strings.ToUpper(strings.TrimSpace(rule.Match))
		if match != "" && strings.Contains(upper, match) {
			return rule.Client, true
		}
	}
	return "", false
}

type clientInferenceStrategy struct {
	registry ports.CaseRegistry
	rules    InferenceRules
}

// ClientInference is the last resort. It picks a client from the defendant
// table (or the default client when a case number was seen), appends a
// minimal registry row and files client-only. Without a case number the row
// needs a style, and one row per client and style is enough.
func ClientInference(registry ports.CaseRegistry, rules InferenceRules) Strategy {
	return clientInferenceStrategy{registry: registry, rules: rules}
}

func (clientInferenceStrategy) Name() string { return StrategyClientInference }

func (s clientInferenceStrategy) Resolve(ctx context.Context, q Query) (domain.CaseIdentity, error) {
	if q.Partial != nil {
		return domain.UnresolvedIdentity(), nil
	}
	caseNumber := q.Signals.CaseNumber()

	client, ok := s.rules.ClientFor(q.Signals.DefendantText())
	if !ok && caseNumber != "" {
		client = s.rules.DefaultClient
	}
	client = strings.TrimSpace(client)
	if client == "" {
		return domain.UnresolvedIdentity(), nil
	}

	if caseNumber != "" {
		if existing, found := q.Index.Record(caseNumber); found && strings.TrimSpace(existing.Client) != "" {
			return domain.CaseIdentity{
				Client:     existing.Client,
				Style:      existing.Style,
				CaseNumber: caseNumber,
				Confidence: domain.ConfidenceClientOnly,
			}, nil
		}
	}

	record := domain.RegistryRecord{
		Attorney:   s.rules.Attorney,
		Client:     client,
		Style:      q.Signals.StyleText(),
		CaseNumber: caseNumber,
	}
	if !q.DryRun && s.worthAppending(q.Index, record) {
		if err := s.registry.AppendRecord(ctx, record); err != nil {
			return domain.CaseIdentity{}, fmt.Errorf("append registry record: %w", err)
		}
		q.Index.AddRecord(record)
	}

	return domain.CaseIdentity{
		Client:     client,
		Style:      record.Style,
		CaseNumber: caseNumber,
		Confidence: domain.ConfidenceClientOnly,
	}, nil
}

func (clientInferenceStrategy) worthAppending(ix *Index, record domain.RegistryRecord) bool {
	if record.CaseNumber != "" {
		return true
	}
	return record.Style != "" && !ix.HasStyle(record.Client, record.Style)
}
