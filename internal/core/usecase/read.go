package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
	"github.com/kirillkom/court-docket-router/internal/core/ports"
)

type EnvelopeQueryUseCase struct {
	repo ports.EnvelopeRepository
}

func NewEnvelopeQueryUseCase(repo ports.EnvelopeRepository) *EnvelopeQueryUseCase {
	return &EnvelopeQueryUseCase{repo: repo}
}

func (uc *EnvelopeQueryUseCase) GetEnvelope(ctx context.Context, id string) (*domain.Envelope, error) {
	envelope, err := uc.repo.GetEnvelope(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get envelope: %w", err)
	}
	return envelope, nil
}

func (uc *EnvelopeQueryUseCase) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := uc.repo.GetDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}
