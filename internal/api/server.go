// Package api exposes batch submission and result lookup over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dunamismax/logocrunch/internal/domain"
	"github.com/dunamismax/logocrunch/internal/id"
	"github.com/dunamismax/logocrunch/internal/progress"
	"github.com/dunamismax/logocrunch/internal/store"
)

const defaultSubjectHeader = "X-Client-ID"

type Server struct {
	logger         *log.Logger
	queueClient    batchEnqueuer
	queueName      string
	results        store.ResultStore
	sourceType     string
	progressClient redis.UniversalClient
	progressPrefix string
	documents      DocumentLinker
	linkTTL        time.Duration
	rateLimiter    RateLimiter
	subjectHeader  string
	metrics        *metrics
	tracer         trace.Tracer
	mux            *http.ServeMux
}

type batchEnqueuer interface {
	EnqueueBatch(ctx context.Context, batchID, sourceType, webhookURL string, batch domain.JobBatch) (int, error)
}

// DocumentLinker issues download links for documents written to object
// storage.
type DocumentLinker interface {
	PresignedGetURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

type Options struct {
	QueueName      string
	SourceType     string
	RateLimiter    RateLimiter
	SubjectHeader  string
	ProgressClient redis.UniversalClient
	ProgressPrefix string
	Documents      DocumentLinker
	LinkTTL        time.Duration
}

func NewServer(logger *log.Logger, queueClient batchEnqueuer, results store.ResultStore, opts Options) *Server {
	if opts.SourceType == "" {
		opts.SourceType = domain.SourceTypeLocalFile
	}
	if opts.SubjectHeader == "" {
		opts.SubjectHeader = defaultSubjectHeader
	}
	if opts.LinkTTL <= 0 {
		opts.LinkTTL = 15 * time.Minute
	}

	s := &Server{
		logger:         logger,
		queueClient:    queueClient,
		queueName:      opts.QueueName,
		results:        results,
		sourceType:     opts.SourceType,
		progressClient: opts.ProgressClient,
		progressPrefix: opts.ProgressPrefix,
		documents:      opts.Documents,
		linkTTL:        opts.LinkTTL,
		rateLimiter:    opts.RateLimiter,
		subjectHeader:  opts.SubjectHeader,
		metrics:        newMetrics(),
		tracer:         otel.Tracer("logocrunch/api"),
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.withTracing(s.metrics.withHTTPMetrics(s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())
	s.mux.HandleFunc("POST /v1/batches", s.handleCreateBatch)
	s.mux.HandleFunc("GET /v1/batches/{id}", s.handleGetBatch)
	s.mux.HandleFunc("GET /v1/logos/{id}", s.handleGetLogo)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if !s.allow(w, r, len(req.Logos)) {
		return
	}

	batchID := id.New()
	enqueued, err := s.queueClient.EnqueueBatch(r.Context(), batchID, s.sourceType, req.WebhookURL, domain.JobBatch(req.Logos))
	if err != nil {
		s.logger.Printf("enqueue failed batch_id=%s enqueued=%d err=%v", batchID, enqueued, err)
		if enqueued == 0 {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to enqueue batch"})
			return
		}
	}
	s.metrics.queueEnqueued.WithLabelValues(s.queueName).Add(float64(enqueued))
	s.metrics.batchSize.Observe(float64(len(req.Logos)))
	s.logger.Printf("batch accepted batch_id=%s logos=%d enqueued=%d", batchID, len(req.Logos), enqueued)

	body := map[string]any{
		"batch_id":   batchID,
		"status":     domain.JobStatusQueued,
		"logos":      len(req.Logos),
		"enqueued":   enqueued,
		"status_url": "/v1/batches/" + batchID,
	}
	if err != nil {
		body["error"] = "batch partially enqueued"
	}
	writeJSON(w, http.StatusAccepted, body)
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	batchID := strings.TrimSpace(r.PathValue("id"))
	if batchID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "batch id is required"})
		return
	}

	results, err := s.results.ListBatch(r.Context(), batchID)
	if err != nil {
		s.logger.Printf("list batch failed batch_id=%s err=%v", batchID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load batch"})
		return
	}

	body := map[string]any{
		"batch_id": batchID,
		"results":  results,
	}
	if s.progressClient != nil {
		counts, err := progress.ReadCounts(r.Context(), s.progressClient, progress.Key(s.progressPrefix, batchID))
		if err != nil {
			s.logger.Printf("read progress failed batch_id=%s err=%v", batchID, err)
		} else {
			body["total"] = counts.Total
			body["completed"] = counts.Completed
			body["failed"] = counts.Failed
			body["done"] = counts.Done()
		}
	}
	if len(results) == 0 && body["total"] == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "batch not found"})
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleGetLogo(w http.ResponseWriter, r *http.Request) {
	jobID, err := parseLogoID(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result, ok, err := s.results.Get(r.Context(), jobID)
	if err != nil {
		s.logger.Printf("fetch result failed job_id=%d err=%v", jobID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load result"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "logo not found"})
		return
	}

	body := map[string]any{"result": result}
	if url := s.downloadURL(r.Context(), result); url != "" {
		body["download_url"] = url
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) downloadURL(ctx context.Context, result domain.LogoResult) string {
	if s.documents == nil || s.sourceType != domain.SourceTypeObjectStore ||
		result.Status != domain.JobStatusSucceeded || result.OutputPath == "" {
		return ""
	}
	url, err := s.documents.PresignedGetURL(ctx, result.OutputPath, s.linkTTL)
	if err != nil {
		s.logger.Printf("presign download failed job_id=%d err=%v", result.JobID, err)
		return ""
	}
	return url
}

func parseLogoID(raw string) (uint32, error) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("logo id must be an unsigned 32-bit integer: %q", raw)
	}
	return uint32(parsed), nil
}

func decodeJSON(r *http.Request, into any) error {
	const maxBodyBytes = 1 << 20
	limited := io.LimitReader(r.Body, maxBodyBytes)
	decoder := json.NewDecoder(limited)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid JSON body: multiple JSON values are not allowed")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
