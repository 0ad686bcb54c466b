package resolve

import (
	"context"
	"fmt"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
	"github.com/kirillkom/court-docket-router/internal/core/ports"
)

// Resolver tries strategies in order. The first exact identity wins, else
// the first client-only one.
type Resolver struct {
	strategies []Strategy
}

func NewResolver(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

func DefaultStrategies(registry ports.CaseRegistry, rules InferenceRules) []Strategy {
	return []Strategy{
		SubjectCaseNumber(),
		CaptionCaseNumber(),
		ClaimNumber(),
		PartyMatch(),
		ClientInference(registry, rules),
	}
}

// Resolve returns the unresolved identity, not an error, when no strategy
// decides. Errors only come from registry writes.
func (r *Resolver) Resolve(ctx context.Context, ix *Index, sig Signals, opts domain.ResolveOptions) (domain.CaseIdentity, error) {
	if opts.Prior != nil && opts.Prior.Resolved() {
		identity := *opts.Prior
		identity.ResolvedBy = StrategySibling
		return identity, nil
	}

	var partial *domain.CaseIdentity
	for _, strategy := range r.strategies {
		identity, err := strategy.Resolve(ctx, Query{
			Index:   ix,
			Signals: sig,
			Partial: partial,
			DryRun:  opts.DryRun,
		})
		if err != nil {
			return domain.UnresolvedIdentity(), fmt.Errorf("%s: %w", strategy.Name(), err)
		}
		switch identity.Confidence {
		case domain.ConfidenceExact:
			identity.ResolvedBy = strategy.Name()
			return identity, nil
		case domain.ConfidenceClientOnly:
			if partial == nil {
				identity.ResolvedBy = strategy.Name()
				partial = &identity
			}
		}
	}
	if partial != nil {
		return *partial, nil
	}
	return domain.UnresolvedIdentity(), nil
}
