package resolve

import (
	"context"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
)

type registryFake struct {
	records     []domain.RegistryRecord
	recordsErr  error
	appendErr   error
	appended    []domain.RegistryRecord
	recordCalls int
}

func (f *registryFake) Records(context.Context) ([]domain.RegistryRecord, error) {
	f.recordCalls++
	if f.recordsErr != nil {
		return nil, f.recordsErr
	}
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

func (f *registryFake) RecordTrialDates(context.Context, string, domain.ExtractedDates, string) error {
	return nil
}

type storeFake struct {
	folders []domain.MatterFolder
	err     error
}

func (f *storeFake) ListMatterFolders(context.Context) ([]domain.MatterFolder, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.folders, nil
}

func (f *storeFake) Write(_ context.Context, dir, filename string, _ []byte) (domain.StoredFile, error) {
	return domain.StoredFile{Path: dir + "/" + filename}, nil
}
