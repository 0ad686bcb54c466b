package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
	"github.com/kirillkom/court-docket-router/internal/core/extract"
	"github.com/kirillkom/court-docket-router/internal/core/ports"
)

const (
	ServerName = "court-docket-router"

	// Form feed separates pages in the text argument, the way pdftotext emits them.
	pageSeparator = "\f"
)

type DocumentClassifier interface {
	Classify(title, firstPage string) domain.Classification
}

type DateExtractor interface {
	Extract(text string) (domain.ExtractedDates, bool)
}

// Server exposes the read-only parts of the filing pipeline as MCP tools.
// Every tool is a dry run: no registry row is touched and no file is written.
type Server struct {
	resolver   ports.FilingResolver
	classifier DocumentClassifier
	dates      DateExtractor
	mcpServer  *server.MCPServer
}

func NewServer(version string, resolver ports.FilingResolver, classifier DocumentClassifier, dates DateExtractor) (*Server, error) {
	if resolver == nil || classifier == nil || dates == nil {
		return nil, fmt.Errorf("mcp server: resolver, classifier and date extractor are required")
	}
	s := &Server{
		resolver:   resolver,
		classifier: classifier,
		dates:      dates,
		mcpServer:  server.NewMCPServer(ServerName, version, server.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"resolve_filing",
		mcp.WithDescription("Decide where a court document would be filed, without writing anything"),
		mcp.WithString("title", mcp.Required(), mcp.Description("Document title as shown in the service email")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Extracted PDF text, pages separated by form feeds")),
		mcp.WithString("subject", mcp.Description("Subject line of the service email")),
		mcp.WithString("received_at", mcp.Description("RFC3339 time the email was received")),
	), s.handleResolveFiling)

	s.mcpServer.AddTool(mcp.NewTool(
		"classify_document",
		mcp.WithDescription("Classify a court document and name its matter subfolder"),
		mcp.WithString("title", mcp.Required(), mcp.Description("Document title")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text of the first page")),
	), s.handleClassifyDocument)

	s.mcpServer.AddTool(mcp.NewTool(
		"extract_trial_dates",
		mcp.WithDescription("Extract calendar call and trial period dates from an order"),
		mcp.WithString("text", mcp.Required(), mcp.Description("Extracted order text")),
	), s.handleExtractTrialDates)
}

func (s *Server) handleResolveFiling(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var receivedAt *time.Time
	if raw := strings.TrimSpace(request.GetString("received_at", "")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return mcp.NewToolResultError("received_at must be RFC3339"), nil
		}
		receivedAt = &parsed
	}

	doc := domain.NewDocumentContext(title, request.GetString("subject", ""), strings.Split(text, pageSeparator), receivedAt)
	result, err := s.resolver.ResolveAndFile(ctx, doc, domain.ResolveOptions{DryRun: true})
	if err != nil {
		slog.Warn("mcp_resolve_failed", slog.String("title", title), slog.String("error", err.Error()))
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (s *Server) handleClassifyDocument(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.classifier.Classify(title, text))
}

func (s *Server) handleExtractTrialDates(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dates, ok := s.dates.Extract(extract.Normalize(text))
	if !ok {
		return mcp.NewToolResultText("no calendar dates found"), nil
	}
	return jsonResult(dates)
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

// ServeStdio blocks until stdin closes or the process receives a signal.
func (s *Server) ServeStdio() error {
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("serve mcp stdio: %w", err)
	}
	return nil
}
