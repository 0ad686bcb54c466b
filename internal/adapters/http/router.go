package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/court-docket-router/internal/config"
	"github.com/kirillkom/court-docket-router/internal/core/domain"
	"github.com/kirillkom/court-docket-router/internal/core/ports"
	"github.com/kirillkom/court-docket-router/internal/observability/metrics"
)

const (
	serviceName        = "docket-api"
	multipartMemory    = 32 << 20
	defaultUploadLimit = 100 << 20
)

type Router struct {
	cfg         config.Config
	ingest      ports.EnvelopeIngestor
	reader      ports.EnvelopeReader
	resolver    ports.FilingResolver
	invalidator ports.IndexInvalidator
	metrics     *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	ingest ports.EnvelopeIngestor,
	reader ports.EnvelopeReader,
	resolver ports.FilingResolver,
	invalidator ports.IndexInvalidator,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultUploadLimit
	}
	return &Router{
		cfg:         cfg,
		ingest:      ingest,
		reader:      reader,
		resolver:    resolver,
		invalidator: invalidator,
		metrics:     httpMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/envelopes", rt.submitEnvelope)
	mux.HandleFunc("/v1/envelopes/", rt.getEnvelopeByID)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	mux.HandleFunc("/v1/resolve", rt.resolveFiling)
	mux.HandleFunc("/v1/index/invalidate", rt.invalidateIndex)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = openAPIValidationMiddleware(handler)
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst, rt.onRateLimited)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) submitEnvelope(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "envelope exceeds upload limit"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form is required"})
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	input := domain.EnvelopeInput{
		Subject:  r.FormValue("subject"),
		Sender:   r.FormValue("sender"),
		BodyHTML: r.FormValue("body_html"),
	}
	if strings.TrimSpace(input.Subject) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "subject is required"})
		return
	}
	if raw := strings.TrimSpace(r.FormValue("received_at")); raw != "" {
		receivedAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "received_at must be RFC3339"})
			return
		}
		input.ReceivedAt = &receivedAt
	}
	for _, header := range r.MultipartForm.File["file"] {
		attachment, err := readAttachment(header)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		input.Attachments = append(input.Attachments, attachment)
	}

	envelope, err := rt.ingest.Submit(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordEnvelope(serviceName, envelope)
	}
	writeJSON(w, http.StatusAccepted, envelope)
}

func readAttachment(header *multipart.FileHeader) (domain.Attachment, error) {
	file, err := header.Open()
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("open attachment %s: %w", header.Filename, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("read attachment %s: %w", header.Filename, err)
	}
	return domain.Attachment{Filename: header.Filename, Data: data}, nil
}

func (rt *Router) getEnvelopeByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/envelopes/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "envelope id is required"})
		return
	}

	envelope, err := rt.reader.GetEnvelope(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.reader.GetDocument(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type resolveRequest struct {
	Title      string               `json:"title"`
	Subject    string               `json:"subject"`
	Pages      []string             `json:"pages"`
	ReceivedAt *time.Time           `json:"received_at"`
	Prior      *domain.CaseIdentity `json:"prior"`
}

// resolveFiling runs the filing pipeline on already extracted page text.
// Nothing is written: the registry stays untouched and no file is stored.
func (rt *Router) resolveFiling(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	doc := domain.NewDocumentContext(req.Title, req.Subject, req.Pages, req.ReceivedAt)
	result, err := rt.resolver.ResolveAndFile(r.Context(), doc, domain.ResolveOptions{Prior: req.Prior, DryRun: true})
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordDryRun(serviceName, result.Decision.Tier)
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) invalidateIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	rt.invalidator.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) onRateLimited(r *http.Request) {
	if rt.metrics != nil {
		rt.metrics.RecordRateLimited(serviceName, r.URL.Path)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
