package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/csvsearch/internal/domain"
	domidx "github.com/kailas-cloud/csvsearch/internal/domain/index"
	domsearch "github.com/kailas-cloud/csvsearch/internal/domain/search"
	"github.com/kailas-cloud/csvsearch/internal/domain/schema"
	healthuc "github.com/kailas-cloud/csvsearch/internal/usecase/health"
	indicesuc "github.com/kailas-cloud/csvsearch/internal/usecase/indices"
	searchuc "github.com/kailas-cloud/csvsearch/internal/usecase/search"
	uploaduc "github.com/kailas-cloud/csvsearch/internal/usecase/upload"
)

const testReapSecret = "reap-secret"

// --- usecase contract stubs ---

type stubIndexCreator struct {
	err error
}

func (s *stubIndexCreator) Create(_ context.Context, _ string, _ schema.Mapping) error {
	return s.err
}

type stubBulkWriter struct{}

func (s *stubBulkWriter) BulkWrite(_ context.Context, _ string, rows []domain.Document) ([]error, error) {
	return make([]error, len(rows)), nil
}

func (s *stubBulkWriter) Refresh(_ context.Context, _ string) error { return nil }

type stubSearchRepo struct {
	searchErr error
}

func (s *stubSearchRepo) Search(_ context.Context, _, _ string, _ int, _ []string) (*domsearch.Result, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return &domsearch.Result{
		Total: 1,
		Hits: []domsearch.Hit{{
			ID:         0,
			Score:      1.0,
			Source:     map[string]any{"city": "berlin"},
			Highlights: map[string]string{"city": "<em>berlin</em>"},
		}},
	}, nil
}

func (s *stubSearchRepo) Aggregate(_ context.Context, _, _, _ string, _ int) ([]domsearch.Bucket, error) {
	return []domsearch.Bucket{{Value: "berlin", Count: 1}}, nil
}

type stubMappingReader struct {
	err error
}

func (s *stubMappingReader) Mapping(_ context.Context, _ string) (schema.Mapping, error) {
	if s.err != nil {
		return nil, s.err
	}
	return schema.Mapping{{Name: "city", Type: schema.Text}}, nil
}

type stubIndicesRepo struct {
	entries []domidx.Entry
}

func (s *stubIndicesRepo) List(_ context.Context, _ string) ([]domidx.Entry, error) {
	return s.entries, nil
}

func (s *stubIndicesRepo) Metas(_ context.Context, _ string) ([]domidx.Meta, error) {
	return nil, nil
}

func (s *stubIndicesRepo) Delete(_ context.Context, _ string) error { return nil }

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(_ context.Context) error { return s.err }

type serverStubs struct {
	indexCreator  *stubIndexCreator
	searchRepo    *stubSearchRepo
	mappingReader *stubMappingReader
	indicesRepo   *stubIndicesRepo
	pinger        *stubPinger
}

func newTestServer(t *testing.T) (http.Handler, *serverStubs) {
	t.Helper()

	stubs := &serverStubs{
		indexCreator:  &stubIndexCreator{},
		searchRepo:    &stubSearchRepo{},
		mappingReader: &stubMappingReader{},
		indicesRepo:   &stubIndicesRepo{},
		pinger:        &stubPinger{},
	}

	logger := zap.NewNop()
	uploadSvc := uploaduc.New(stubs.indexCreator, &stubBulkWriter{}, logger)
	searchSvc := searchuc.New(stubs.searchRepo, stubs.mappingReader)
	indicesSvc := indicesuc.New(stubs.indicesRepo, logger, testReapSecret)
	healthSvc := healthuc.New(stubs.pinger)

	server := NewServer(uploadSvc, searchSvc, indicesSvc, healthSvc, logger, 1<<20)
	r := chi.NewRouter()
	server.Routes(r)
	return r, stubs
}

func multipartCSV(t *testing.T, filename, indexName, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if indexName != "" {
		if err := w.WriteField("index_name", indexName); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

// --- upload ---

func TestUploadCSV_HappyPath(t *testing.T) {
	handler, _ := newTestServer(t)

	body, contentType := multipartCSV(t, "orders.csv", "orders", "city,amount\nberlin,10\nmunich,20\n")
	req := httptest.NewRequest("POST", "/upload-csv", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(SessionHeader, "s1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp uploadResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.IndexName != "temp-s1-orders" {
		t.Errorf("unexpected index name: %s", resp.IndexName)
	}
	if resp.Stats.TotalRows != 2 || resp.Stats.SuccessCount != 2 || resp.Stats.ErrorCount != 0 {
		t.Errorf("unexpected stats: %+v", resp.Stats)
	}
	if len(resp.Mapping) != 2 {
		t.Errorf("unexpected mapping: %v", resp.Mapping)
	}
}

func TestUploadCSV_NoSession(t *testing.T) {
	handler, _ := newTestServer(t)

	body, contentType := multipartCSV(t, "orders.csv", "orders", "a\n1\n")
	req := httptest.NewRequest("POST", "/upload-csv", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUploadCSV_MissingFilePart(t *testing.T) {
	handler, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/upload-csv", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	req.Header.Set(SessionHeader, "s1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUploadCSV_NonCSVRejected(t *testing.T) {
	handler, _ := newTestServer(t)

	body, contentType := multipartCSV(t, "orders.xlsx", "orders", "a\n1\n")
	req := httptest.NewRequest("POST", "/upload-csv", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(SessionHeader, "s1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if resp := decodeError(t, rr); resp.Code != "malformed_input" {
		t.Errorf("unexpected code: %s", resp.Code)
	}
}

func TestUploadCSV_DefaultIndexNameFromFilename(t *testing.T) {
	handler, _ := newTestServer(t)

	body, contentType := multipartCSV(t, "My Report (final).csv", "", "a\n1\n")
	req := httptest.NewRequest("POST", "/upload-csv", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(SessionHeader, "s1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp uploadResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.IndexName != "temp-s1-my_report__final_" {
		t.Errorf("unexpected derived name: %s", resp.IndexName)
	}
}

func TestUploadCSV_BackendDown(t *testing.T) {
	handler, stubs := newTestServer(t)
	stubs.indexCreator.err = domain.ErrBackendUnavailable

	body, contentType := multipartCSV(t, "orders.csv", "orders", "a\n1\n")
	req := httptest.NewRequest("POST", "/upload-csv", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(SessionHeader, "s1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("got %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

// --- search ---

func searchBody(t *testing.T, req searchRequest) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(req); err != nil {
		t.Fatalf("encode request: %v", err)
	}
	return &buf
}

func TestSearch_HappyPath(t *testing.T) {
	handler, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/search", searchBody(t, searchRequest{
		IndexName: "temp-s1-orders",
		Query:     "berlin",
	}))
	req.Header.Set(SessionHeader, "s1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || resp.Returned != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Hits[0].Highlights["city"] != "<em>berlin</em>" {
		t.Errorf("unexpected highlights: %v", resp.Hits[0].Highlights)
	}
}

func TestSearch_NoSession(t *testing.T) {
	handler, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/search", searchBody(t, searchRequest{
		IndexName: "temp-s1-orders", Query: "x",
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSearch_EmptyQuery_400(t *testing.T) {
	handler, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/search", searchBody(t, searchRequest{
		IndexName: "temp-s1-orders", Query: " ",
	}))
	req.Header.Set(SessionHeader, "s1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if resp := decodeError(t, rr); resp.Code != "invalid_query" {
		t.Errorf("unexpected code: %s", resp.Code)
	}
}

func TestSearch_ForeignIndex_403(t *testing.T) {
	handler, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/search", searchBody(t, searchRequest{
		IndexName: "temp-other-orders", Query: "x",
	}))
	req.Header.Set(SessionHeader, "s1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusForbidden)
	}
	if resp := decodeError(t, rr); resp.Code != "forbidden" {
		t.Errorf("unexpected code: %s", resp.Code)
	}
}

func TestSearch_UnknownIndex_404(t *testing.T) {
	handler, stubs := newTestServer(t)
	stubs.mappingReader.err = domain.ErrIndexNotFound

	req := httptest.NewRequest("POST", "/search", searchBody(t, searchRequest{
		IndexName: "temp-s1-ghost", Query: "x",
	}))
	req.Header.Set(SessionHeader, "s1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestSearch_BackendFault_502(t *testing.T) {
	handler, stubs := newTestServer(t)
	stubs.searchRepo.searchErr = domain.ErrSearchBackend

	req := httptest.NewRequest("POST", "/search", searchBody(t, searchRequest{
		IndexName: "temp-s1-orders", Query: "x",
	}))
	req.Header.Set(SessionHeader, "s1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Errorf("got %d, want %d", rr.Code, http.StatusBadGateway)
	}
}

func TestSearch_InternalErrorHidesDetails(t *testing.T) {
	handler, stubs := newTestServer(t)
	stubs.searchRepo.searchErr = errors.New("secret internal detail")

	req := httptest.NewRequest("POST", "/search", searchBody(t, searchRequest{
		IndexName: "temp-s1-orders", Query: "x",
	}))
	req.Header.Set(SessionHeader, "s1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if strings.Contains(rr.Body.String(), "secret internal detail") {
		t.Error("internal error details must not leak to the client")
	}
}

// --- indices ---

func TestListIndices_HappyPath(t *testing.T) {
	handler, stubs := newTestServer(t)
	stubs.indicesRepo.entries = []domidx.Entry{{Name: "temp-s1-orders", DocCount: 5}}

	req := httptest.NewRequest("GET", "/indices", http.NoBody)
	req.Header.Set(SessionHeader, "s1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusOK)
	}

	var resp indicesResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Indices) != 1 || resp.Indices[0].Name != "temp-s1-orders" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestListIndices_NoSession(t *testing.T) {
	handler, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/indices", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- maintenance ---

func TestReap_WrongSecret_401(t *testing.T) {
	handler, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/maintenance/reap", http.NoBody)
	req.Header.Set(MaintenanceHeader, "wrong")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	if resp := decodeError(t, rr); resp.Code != "unauthorized" {
		t.Errorf("unexpected code: %s", resp.Code)
	}
}

func TestReap_HappyPath(t *testing.T) {
	handler, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/maintenance/reap", http.NoBody)
	req.Header.Set(MaintenanceHeader, testReapSecret)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp reapResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Reaped == nil {
		t.Error("reaped must serialize as an empty array, not null")
	}
}

// --- health and landing ---

func TestHealthCheck_OK(t *testing.T) {
	handler, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestHealthCheck_Degraded_503(t *testing.T) {
	handler, stubs := newTestServer(t)
	stubs.pinger.err = errors.New("down")

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("got %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestLanding(t *testing.T) {
	handler, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("got %d, want %d", rr.Code, http.StatusOK)
	}
}

// --- helpers ---

func TestNameFromFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"orders.csv", "orders"},
		{"My Report (final).csv", "my_report__final_"},
		{"data-2024_v2.csv", "data-2024_v2"},
		{"/tmp/path/to/file.csv", "file"},
	}
	for _, tc := range tests {
		if got := nameFromFilename(tc.in); got != tc.want {
			t.Errorf("nameFromFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
