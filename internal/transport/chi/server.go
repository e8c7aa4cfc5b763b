// Package chi exposes the HTTP API: CSV upload, session-scoped search and
// index listing, maintenance reaping, health, and metrics.
package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/csvsearch/internal/domain"
	"github.com/kailas-cloud/csvsearch/internal/metrics"
	healthuc "github.com/kailas-cloud/csvsearch/internal/usecase/health"
	indicesuc "github.com/kailas-cloud/csvsearch/internal/usecase/indices"
	searchuc "github.com/kailas-cloud/csvsearch/internal/usecase/search"
	uploaduc "github.com/kailas-cloud/csvsearch/internal/usecase/upload"
	"github.com/kailas-cloud/csvsearch/internal/version"
)

// SessionHeader carries the caller's session id on every data endpoint.
const SessionHeader = "X-Session-ID"

// MaintenanceHeader carries the reaper secret.
const MaintenanceHeader = "X-Maintenance-Secret"

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server handles the csvsearch HTTP API.
type Server struct {
	upload         *uploaduc.Service
	search         *searchuc.Service
	indices        *indicesuc.Service
	health         *healthuc.Service
	logger         *zap.Logger
	errorHandlers  []errorHandler
	maxUploadBytes int64
}

// NewServer creates an HTTP API server.
func NewServer(
	upload *uploaduc.Service,
	search *searchuc.Service,
	indices *indicesuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
	maxUploadBytes int64,
) *Server {
	s := &Server{
		upload:         upload,
		search:         search,
		indices:        indices,
		health:         health,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrMalformedInput, http.StatusBadRequest, "malformed_input"),
		sentinelHandler(domain.ErrInvalidIndexName, http.StatusBadRequest, "invalid_index_name"),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, "invalid_query"),
		sentinelHandler(domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"),
		sentinelHandler(domain.ErrForbidden, http.StatusForbidden, "forbidden"),
		sentinelHandler(domain.ErrIndexNotFound, http.StatusNotFound, "index_not_found"),
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusServiceUnavailable, "backend_unavailable"),
		sentinelHandler(domain.ErrSearchBackend, http.StatusBadGateway, "search_backend_error"),
	}
	return s
}

// Routes mounts all endpoints on the router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/", s.Landing)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Post("/upload-csv", s.UploadCSV)
	r.Post("/search", s.Search)
	r.Get("/indices", s.ListIndices)
	r.Post("/maintenance/reap", s.Reap)
}

// UploadCSV handles POST /upload-csv: multipart form with a "file" part and
// an optional "index_name" value (defaults to the filename).
func (s *Server) UploadCSV(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "uploaded file is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", "multipart form with a \"file\" part is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "uploaded file is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", "read file: "+err.Error())
		return
	}

	indexName := r.FormValue("index_name")
	if indexName == "" {
		indexName = nameFromFilename(header.Filename)
	}

	start := time.Now()
	res, err := s.upload.Upload(r.Context(), sessionID, indexName, header.Filename, data)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	metrics.UploadDuration.Observe(time.Since(start).Seconds())
	metrics.RowsIndexedTotal.Add(float64(res.Report.Success))
	metrics.RowsFailedTotal.Add(float64(res.Report.Failed))

	writeJSON(w, http.StatusOK, uploadToDTO(res))
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	rs, err := s.search.Search(r.Context(), sessionID, searchuc.Query{
		Index:      req.IndexName,
		Query:      req.Query,
		Size:       req.Size,
		AggField:   req.AggField,
		MaxBuckets: req.MaxBuckets,
	})
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		s.handleDomainError(w, err)
		return
	}

	metrics.SearchesTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, searchToDTO(rs))
}

// ListIndices handles GET /indices.
func (s *Server) ListIndices(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	entries, err := s.indices.List(r.Context(), sessionID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, indicesToDTO(entries))
}

// Reap handles POST /maintenance/reap.
func (s *Server) Reap(w http.ResponseWriter, r *http.Request) {
	rep, err := s.indices.Reap(r.Context(), r.Header.Get(MaintenanceHeader))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	metrics.IndicesReapedTotal.Add(float64(len(rep.Reaped)))

	reaped := rep.Reaped
	if reaped == nil {
		reaped = []string{}
	}
	writeJSON(w, http.StatusOK, reapResponse{
		Scanned: rep.Scanned,
		Reaped:  reaped,
		Failed:  rep.Failed,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// Landing handles GET /.
func (s *Server) Landing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "csvsearch",
		"version": version.Version,
		"endpoints": map[string]string{
			"upload": "POST /upload-csv",
			"search": "POST /search",
			"list":   "GET /indices",
			"health": "GET /health",
		},
	})
}

func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := strings.TrimSpace(r.Header.Get(SessionHeader))
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", SessionHeader+" header is required")
		return "", false
	}
	return sessionID, true
}

// nameFromFilename derives a usable index name from an uploaded filename.
func nameFromFilename(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = strings.ToLower(base)

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrMalformedInput,
		domain.ErrInvalidIndexName,
		domain.ErrInvalidQuery,
		domain.ErrUnauthorized,
		domain.ErrForbidden,
		domain.ErrIndexNotFound,
		domain.ErrBackendUnavailable,
		domain.ErrSearchBackend,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
