package xlsx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
)

const DefaultSheet = "Lookup Table 2"

const (
	colAttorney     = "Attorney"
	colClient       = "Client"
	colMatter       = "Matter"
	colStyle        = "Style"
	colClaimNo      = "Claim No."
	colCaseNo       = "Case No."
	colCalendarCall = "Calendar Call"
	colTrialDate    = "Trial Date"
	colOrderDate    = "Order Date"
)

// Headers is the column layout of a freshly created registry sheet.
var Headers = []string{colAttorney, colClient, colMatter, colStyle, colClaimNo, colCaseNo, colCalendarCall, colTrialDate, colOrderDate}

// Registry reads and updates the case lookup sheet of a workbook on disk.
// Every write reopens and saves the file, so edits made by people in between
// are kept.
type Registry struct {
	path  string
	sheet string
	mu    sync.Mutex
}

func New(path, sheet string) *Registry {
	if strings.TrimSpace(sheet) == "" {
		sheet = DefaultSheet
	}
	return &Registry{path: path, sheet: sheet}
}

func (r *Registry) Records(ctx context.Context) ([]domain.RegistryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := r.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, columns, err := r.rows(f)
	if err != nil {
		return nil, err
	}

	records := make([]domain.RegistryRecord, 0, len(rows))
	for _, row := range rows[1:] {
		record := domain.RegistryRecord{
			Attorney:   columns.value(row, colAttorney),
			Client:     columns.value(row, colClient),
			Matter:     columns.value(row, colMatter),
			Style:      columns.value(row, colStyle),
			ClaimNo:    columns.value(row, colClaimNo),
			CaseNumber: columns.value(row, colCaseNo),
		}
		if record.Client == "" {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *Registry) AppendRecord(ctx context.Context, record domain.RegistryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := r.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, columns, err := r.rows(f)
	if err != nil {
		return err
	}
	rowIdx := len(rows) + 1

	values := map[string]string{
		colAttorney: record.Attorney,
		colClient:   record.Client,
		colMatter:   record.Matter,
		colStyle:    record.Style,
		colClaimNo:  record.ClaimNo,
		colCaseNo:   record.CaseNumber,
	}
	for name, value := range values {
		if value == "" {
			continue
		}
		if err := r.setCell(f, columns, name, rowIdx, value); err != nil {
			return err
		}
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("save registry: %w", err)
	}
	return nil
}

// RecordTrialDates fills the calendar columns of the first row for the case.
// Empty dates leave the existing cells alone; the order date is always set.
func (r *Registry) RecordTrialDates(ctx context.Context, caseNumber string, dates domain.ExtractedDates, orderDate string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	caseNumber = strings.TrimSpace(caseNumber)
	if caseNumber == "" {
		return domain.WrapError(domain.ErrInvalidInput, "record trial dates", errors.New("case number is required"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := r.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, columns, err := r.rows(f)
	if err != nil {
		return err
	}

	rowIdx := 0
	for i, row := range rows[1:] {
		if strings.EqualFold(columns.value(row, colCaseNo), caseNumber) {
			rowIdx = i + 2
			break
		}
	}
	if rowIdx == 0 {
		return domain.WrapError(domain.ErrCaseNotFound, "record trial dates", fmt.Errorf("case %s", caseNumber))
	}

	updates := []struct {
		column string
		value  string
	}{
		{colCalendarCall, dates.CalendarCall},
		{colTrialDate, dates.TrialStart},
		{colOrderDate, orderDate},
	}
	for _, u := range updates {
		if u.value == "" || !columns.has(u.column) {
			continue
		}
		if err := r.setCell(f, columns, u.column, rowIdx, u.value); err != nil {
			return err
		}
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("save registry: %w", err)
	}
	return nil
}

func (r *Registry) open() (*excelize.File, error) {
	if _, err := os.Stat(r.path); err != nil {
		return nil, domain.WrapError(domain.ErrRegistryUnavailable, "open registry", err)
	}
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRegistryUnavailable, "open registry", err)
	}
	return f, nil
}

func (r *Registry) rows(f *excelize.File) ([][]string, headerIndex, error) {
	if idx, _ := f.GetSheetIndex(r.sheet); idx == -1 {
		return nil, nil, domain.WrapError(domain.ErrRegistryUnavailable, "read registry", fmt.Errorf("sheet %q not found", r.sheet))
	}
	rows, err := f.GetRows(r.sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read registry rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, domain.WrapError(domain.ErrRegistryUnavailable, "read registry", errors.New("header row is missing"))
	}
	columns := newHeaderIndex(rows[0])
	for _, required := range []string{colClient, colCaseNo} {
		if !columns.has(required) {
			return nil, nil, domain.WrapError(domain.ErrRegistryUnavailable, "read registry", fmt.Errorf("column %q not found", required))
		}
	}
	return rows, columns, nil
}

func (r *Registry) setCell(f *excelize.File, columns headerIndex, column string, row int, value string) error {
	col, ok := columns[column]
	if !ok {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return fmt.Errorf("registry cell name: %w", err)
	}
	if err := f.SetCellValue(r.sheet, cell, value); err != nil {
		return fmt.Errorf("set registry cell %s: %w", cell, err)
	}
	return nil
}

// headerIndex maps a column title to its zero-based position.
type headerIndex map[string]int

func newHeaderIndex(header []string) headerIndex {
	index := make(headerIndex, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, seen := index[name]; name != "" && !seen {
			index[name] = i
		}
	}
	return index
}

func (h headerIndex) has(column string) bool {
	_, ok := h[column]
	return ok
}

func (h headerIndex) value(row []string, column string) string {
	i, ok := h[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
