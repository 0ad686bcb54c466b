package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
	"github.com/kirillkom/court-docket-router/internal/infrastructure/mailbox/eml"
)

const message = "From: efiling@flcourts.example\r\n" +
	"Subject: SERVICE OF COURT DOCUMENT CASE NUMBER 062024CA018136AXXXCE\r\n" +
	"Content-Type: text/html\r\n\r\n" +
	"<a href=\"https://portal.example/document.nefdd?nai=1\">All</a>\r\n"

func writeMessage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "service.eml")
	if err := os.WriteFile(path, []byte(message), 0o600); err != nil {
		t.Fatalf("write eml: %v", err)
	}
	return path
}

func TestIngestFileDryRun(t *testing.T) {
	got := ingestFile(context.Background(), eml.NewParser(0), nil, writeMessage(t))
	if got.Error != "" {
		t.Fatalf("unexpected error %q", got.Error)
	}
	if got.Sender != "efiling@flcourts.example" || !got.HasBody || got.EnvelopeID != "" {
		t.Fatalf("unexpected summary %+v", got)
	}
}

func TestIngestFileSubmits(t *testing.T) {
	var submitted []domain.EnvelopeInput
	submit := func(_ context.Context, input domain.EnvelopeInput) (*domain.Envelope, error) {
		submitted = append(submitted, input)
		return &domain.Envelope{ID: "env-1"}, nil
	}
	got := ingestFile(context.Background(), eml.NewParser(0), submit, writeMessage(t))
	if got.EnvelopeID != "env-1" || len(submitted) != 1 {
		t.Fatalf("unexpected summary %+v", got)
	}
}

func TestIngestFileReportsErrors(t *testing.T) {
	if got := ingestFile(context.Background(), eml.NewParser(0), nil, filepath.Join(t.TempDir(), "missing.eml")); got.Error == "" {
		t.Fatalf("expected error for missing file")
	}
	submit := func(context.Context, domain.EnvelopeInput) (*domain.Envelope, error) {
		return nil, errors.New("no pdf links or attachments")
	}
	if got := ingestFile(context.Background(), eml.NewParser(0), submit, writeMessage(t)); got.Error == "" {
		t.Fatalf("expected submit error")
	}
}
