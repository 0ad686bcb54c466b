package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
)

// buildPDF writes a minimal PDF with one Helvetica text line per page.
func buildPDF(pages ...string) []byte {
	var objects []string
	pageCount := len(pages)
	kids := make([]string, 0, pageCount)
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+i*2))
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pageCount),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	)
	for i, text := range pages {
		stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+i*2),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtractPagesReadsTextLayer(t *testing.T) {
	data := buildPDF("UNIFORM TRIAL ORDER", "CALENDAR CALL")
	pages, err := NewExtractor(true).ExtractPages(context.Background(), data, 3)
	if err != nil {
		t.Fatalf("ExtractPages() error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if !strings.Contains(pages[0], "UNIFORM TRIAL ORDER") {
		t.Fatalf("unexpected first page %q", pages[0])
	}
}

func TestExtractPagesRespectsPageLimit(t *testing.T) {
	data := buildPDF("one", "two", "three")
	pages, err := NewExtractor(false).ExtractPages(context.Background(), data, 2)
	if err != nil {
		t.Fatalf("ExtractPages() error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected page limit to apply, got %d", len(pages))
	}
}

func TestExtractPagesRejectsNonPDF(t *testing.T) {
	_, err := NewExtractor(true).ExtractPages(context.Background(), []byte("<html>login</html>"), 3)
	if !domain.IsKind(err, domain.ErrNotPDF) {
		t.Fatalf("expected not-pdf error, got %v", err)
	}
}

func TestExtractPagesHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewExtractor(false).ExtractPages(ctx, buildPDF("x"), 3); err == nil {
		t.Fatalf("expected context error")
	}
}
