package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
)

var pdfMagic = []byte("%PDF")

// Extractor reads per-page plain text. Scanned pages without a text layer
// come back as empty strings.
type Extractor struct {
	validate bool
	logger   *slog.Logger
}

func NewExtractor(validate bool) *Extractor {
	return &Extractor{validate: validate, logger: slog.Default()}
}

func (e *Extractor) ExtractPages(ctx context.Context, data []byte, maxPages int) ([]string, error) {
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, domain.WrapError(domain.ErrNotPDF, "extract pdf text", errors.New("missing %PDF header"))
	}

	var validationErr error
	if e.validate {
		conf := model.NewDefaultConfiguration()
		conf.ValidationMode = model.ValidationRelaxed
		if validationErr = api.Validate(bytes.NewReader(data), conf); validationErr != nil {
			e.logger.Warn("pdf_validation_failed", "error", validationErr)
		}
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if validationErr != nil {
			err = errors.Join(err, validationErr)
		}
		return nil, domain.WrapError(domain.ErrNotPDF, "open pdf", err)
	}

	total := reader.NumPage()
	if maxPages > 0 && total > maxPages {
		total = maxPages
	}

	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages = append(pages, e.pageText(reader, i))
	}
	return pages, nil
}

// pageText never fails: the parser panics on some malformed content streams,
// and a page it cannot read counts as a page without text.
func (e *Extractor) pageText(reader *pdf.Reader, number int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("pdf_page_unreadable", "page", number, "error", fmt.Sprint(r))
			text = ""
		}
	}()

	page := reader.Page(number)
	if page.V.IsNull() {
		return ""
	}
	content, err := page.GetPlainText(nil)
	if err != nil {
		e.logger.Warn("pdf_page_unreadable", "page", number, "error", err)
		return ""
	}
	return content
}
