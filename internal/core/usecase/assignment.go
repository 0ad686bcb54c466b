package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
	"github.com/kirillkom/court-docket-router/internal/core/extract"
	"github.com/kirillkom/court-docket-router/internal/core/ports"
)

// AssignmentUseCase registers new matters announced by assignment emails
// ("Our File no. 272-90250273 Doe, Jane vs Citizens (001-00-603213)").
type AssignmentUseCase struct {
	registry ports.CaseRegistry
	indexes  CaseIndexSource
	attorney string
}

func NewAssignmentUseCase(registry ports.CaseRegistry, indexes CaseIndexSource, attorney string) *AssignmentUseCase {
	return &AssignmentUseCase{registry: registry, indexes: indexes, attorney: attorney}
}

// Register reports false when the subject is not an assignment or the
// claim number is already known.
func (uc *AssignmentUseCase) Register(ctx context.Context, subject string) (bool, error) {
	assignment, ok := extract.AssignmentFromSubject(subject)
	if !ok {
		return false, nil
	}

	index, err := uc.indexes.Index(ctx)
	if err != nil {
		return false, fmt.Errorf("load case index: %w", err)
	}
	if _, exists := index.Record(assignment.ClaimNo); exists {
		return false, nil
	}

	record := domain.RegistryRecord{
		Attorney: uc.attorney,
		Client:   assignment.Client,
		Matter:   assignment.Matter,
		Style:    assignment.Style,
		ClaimNo:  assignment.ClaimNo,
	}
	if err := uc.registry.AppendRecord(ctx, record); err != nil {
		return false, fmt.Errorf("append assignment record: %w", err)
	}
	index.AddRecord(record)

	slog.Info("assignment_registered", "client", record.Client, "matter", record.Matter, "claim_no", record.ClaimNo)
	return true, nil
}

func isAssignmentSubject(subject string) bool {
	_, ok := extract.AssignmentFromSubject(subject)
	return ok
}
