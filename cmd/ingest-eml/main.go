package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/kirillkom/court-docket-router/internal/bootstrap"
	"github.com/kirillkom/court-docket-router/internal/config"
	"github.com/kirillkom/court-docket-router/internal/core/domain"
	"github.com/kirillkom/court-docket-router/internal/infrastructure/mailbox/eml"
	"github.com/kirillkom/court-docket-router/internal/observability/logging"
)

type summary struct {
	File        string   `json:"file"`
	Subject     string   `json:"subject"`
	Sender      string   `json:"sender"`
	Attachments []string `json:"attachments"`
	HasBody     bool     `json:"has_body"`
	EnvelopeID  string   `json:"envelope_id,omitempty"`
	Error       string   `json:"error,omitempty"`
}

func main() {
	cfg := config.Load()

	dryRun := pflag.Bool("dry-run", false, "Parse the messages and print what would be submitted")
	logLevel := pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	logFormat := pflag.String("logformat", "text", "Log format (text or json)")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] message.eml...\n\nSubmits saved court service emails for filing.\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	logger := logging.New(os.Stderr, "docket-ingest-eml", *logLevel, *logFormat)
	slog.SetDefault(logger)

	files := pflag.Args()
	if len(files) == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var submit func(context.Context, domain.EnvelopeInput) (*domain.Envelope, error)
	if !*dryRun {
		app, err := bootstrap.New(ctx, cfg, nil)
		if err != nil {
			logger.Error("bootstrap_failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer app.Close()
		submit = app.IngestUC.Submit
	}

	parser := eml.NewParser(cfg.MaxUploadBytes)
	encoder := json.NewEncoder(os.Stdout)
	failed := 0
	for _, path := range files {
		result := ingestFile(ctx, parser, submit, path)
		if result.Error != "" {
			failed++
			logger.Warn("eml_ingest_failed", slog.String("file", path), slog.String("error", result.Error))
		}
		_ = encoder.Encode(result)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func ingestFile(
	ctx context.Context,
	parser *eml.Parser,
	submit func(context.Context, domain.EnvelopeInput) (*domain.Envelope, error),
	path string,
) summary {
	result := summary{File: path}
	f, err := os.Open(path)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer f.Close()

	input, err := parser.Parse(f)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Subject = input.Subject
	result.Sender = input.Sender
	result.HasBody = input.BodyHTML != ""
	for _, a := range input.Attachments {
		result.Attachments = append(result.Attachments, a.Filename)
	}
	if submit == nil {
		return result
	}

	envelope, err := submit(ctx, input)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.EnvelopeID = envelope.ID
	return result
}
