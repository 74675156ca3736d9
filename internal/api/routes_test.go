package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/MigzCtrl/TireOps-sub000/internal/extract"
	"github.com/MigzCtrl/TireOps-sub000/internal/inventory"
	"github.com/MigzCtrl/TireOps-sub000/internal/match"
)

type stubExtractor struct {
	result extract.Result
	err    error
}

func (s *stubExtractor) Analyze(_ context.Context, _ io.Reader, _ string, _ extract.ImportType) (extract.Result, error) {
	return s.result, s.err
}

func newTestServer(t *testing.T, extractor Extractor) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	server, err := NewServer(Config{
		DBPath:    filepath.Join(t.TempDir(), "api.db"),
		SilentDB:  true,
		Extractor: extractor,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	router, err := server.Router()
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	return server, router
}

func multipartFile(t *testing.T, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "upload.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &body, writer.FormDataContentType()
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func createSession(t *testing.T, router *gin.Engine) SessionDTO {
	t.Helper()
	recorder := doJSON(t, router, http.MethodPost, "/api/imports/customers/sessions", nil)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create session: status %d body %s", recorder.Code, recorder.Body.String())
	}
	var dto SessionDTO
	if err := json.Unmarshal(recorder.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return dto
}

func analyze(t *testing.T, router *gin.Engine, sessionID string) AnalyzeResponse {
	t.Helper()
	body, contentType := multipartFile(t, "fake upload")
	req := httptest.NewRequest(http.MethodPost, "/api/imports/customers/sessions/"+sessionID+"/analyze", body)
	req.Header.Set("Content-Type", contentType)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("analyze: status %d body %s", recorder.Code, recorder.Body.String())
	}
	var resp AnalyzeResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode analyze response: %v", err)
	}
	return resp
}

func TestCustomerImportFlow(t *testing.T) {
	extractor := &stubExtractor{result: extract.Result{
		Method: "csv",
		Customers: []match.Candidate{
			{Name: "John Smith", Phone: "5551234567"},
			{Name: "Customer Name"},
		},
	}}
	_, router := newTestServer(t, extractor)

	session := createSession(t, router)

	first := analyze(t, router, session.ID)
	if first.Stats.Added != 1 || first.Stats.Dropped != 1 {
		t.Fatalf("unexpected first pass stats: %+v", first.Stats)
	}
	if first.Session.CommitableCount != 1 {
		t.Fatalf("expected one commitable row, got %d", first.Session.CommitableCount)
	}

	// Re-upload with an overlapping record and a new one.
	extractor.result = extract.Result{
		Method: "ai",
		Customers: []match.Candidate{
			{Name: "John S.", Phone: "555-123-4567", Email: "john@x.com"},
			{Name: "Jane Doe", Email: "jane@x.com"},
		},
	}
	second := analyze(t, router, session.ID)
	if second.Stats.Merged != 1 || second.Stats.Added != 1 {
		t.Fatalf("unexpected second pass stats: %+v", second.Stats)
	}
	if len(second.Session.Rows) != 2 {
		t.Fatalf("expected two staged rows, got %d", len(second.Session.Rows))
	}
	merged := second.Session.Rows[0]
	if merged.Name != "John Smith" || merged.Phone != "5551234567" || merged.Email != "john@x.com" {
		t.Fatalf("unexpected merged row: %+v", merged)
	}
	// The method tag sticks to the first upload.
	if second.Session.Method != "csv" {
		t.Fatalf("expected csv method, got %q", second.Session.Method)
	}

	// Edit a staged row through the grid contract.
	edit := doJSON(t, router, http.MethodPut, "/api/imports/customers/sessions/"+session.ID+"/rows/1", RowRequest{
		Name:  "Jane Doe",
		Email: "jane@x.com",
		Phone: "1-555-999-0000",
	})
	if edit.Code != http.StatusOK {
		t.Fatalf("edit: status %d body %s", edit.Code, edit.Body.String())
	}

	commit := doJSON(t, router, http.MethodPost, "/api/imports/customers/sessions/"+session.ID+"/commit", nil)
	if commit.Code != http.StatusOK {
		t.Fatalf("commit: status %d body %s", commit.Code, commit.Body.String())
	}
	var committed CommitResponse
	if err := json.Unmarshal(commit.Body.Bytes(), &committed); err != nil {
		t.Fatalf("decode commit: %v", err)
	}
	if committed.Created != 2 {
		t.Fatalf("expected two customers created, got %d", committed.Created)
	}

	// The session is destroyed on commit.
	if resp := doJSON(t, router, http.MethodGet, "/api/imports/customers/sessions/"+session.ID, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after commit, got %d", resp.Code)
	}

	// The audit trail records the commit.
	history := doJSON(t, router, http.MethodGet, "/api/imports/history", nil)
	if history.Code != http.StatusOK {
		t.Fatalf("history: status %d", history.Code)
	}
	var page struct {
		Items []ImportRecordDTO `json:"items"`
	}
	if err := json.Unmarshal(history.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ImportType != "customers" || page.Items[0].RowCount != 2 {
		t.Fatalf("unexpected history: %+v", page.Items)
	}
}

func TestCommitWithoutRowsBlocked(t *testing.T) {
	_, router := newTestServer(t, &stubExtractor{})
	session := createSession(t, router)

	resp := doJSON(t, router, http.MethodPost, "/api/imports/customers/sessions/"+session.ID+"/commit", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body %s", resp.Code, resp.Body.String())
	}
}

func TestAnalyzeExtractionFailurePreservesStagedSet(t *testing.T) {
	extractor := &stubExtractor{result: extract.Result{
		Method:    "csv",
		Customers: []match.Candidate{{Name: "John Smith", Phone: "5551234567"}},
	}}
	_, router := newTestServer(t, extractor)
	session := createSession(t, router)
	analyze(t, router, session.ID)

	extractor.err = errors.New("extraction exploded")
	body, contentType := multipartFile(t, "fake upload")
	req := httptest.NewRequest(http.MethodPost, "/api/imports/customers/sessions/"+session.ID+"/analyze", body)
	req.Header.Set("Content-Type", contentType)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", recorder.Code)
	}

	snapshot := doJSON(t, router, http.MethodGet, "/api/imports/customers/sessions/"+session.ID, nil)
	var dto SessionDTO
	if err := json.Unmarshal(snapshot.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if len(dto.Rows) != 1 {
		t.Fatalf("re-upload failure must preserve staged rows, got %d", len(dto.Rows))
	}
}

func TestInventoryAnalyzeAndCommit(t *testing.T) {
	extractor := &stubExtractor{result: extract.Result{
		Method: "excel",
		Inventory: []inventory.Candidate{
			{Brand: "Michelin", Size: "225/45R17", Quantity: 4, Price: 180},
		},
	}}
	_, router := newTestServer(t, extractor)

	body, contentType := multipartFile(t, "stock")
	req := httptest.NewRequest(http.MethodPost, "/api/imports/inventory/analyze", body)
	req.Header.Set("Content-Type", contentType)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("analyze: status %d body %s", recorder.Code, recorder.Body.String())
	}
	var analyzed InventoryAnalyzeResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &analyzed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if analyzed.HasDuplicates {
		t.Fatal("fresh store should have no duplicates")
	}

	commit := doJSON(t, router, http.MethodPost, "/api/imports/inventory/commit", InventoryCommitRequest{
		Mode:  inventory.ModeAdd,
		Items: analyzed.Items,
	})
	if commit.Code != http.StatusOK {
		t.Fatalf("commit: status %d body %s", commit.Code, commit.Body.String())
	}

	// The same file analyzed again now collides with the persisted row.
	body2, contentType2 := multipartFile(t, "stock")
	req2 := httptest.NewRequest(http.MethodPost, "/api/imports/inventory/analyze", body2)
	req2.Header.Set("Content-Type", contentType2)
	recorder2 := httptest.NewRecorder()
	router.ServeHTTP(recorder2, req2)
	var again InventoryAnalyzeResponse
	if err := json.Unmarshal(recorder2.Body.Bytes(), &again); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !again.HasDuplicates || len(again.Duplicates) != 1 {
		t.Fatalf("expected duplicate warning, got %+v", again)
	}

	// Merge mode folds the collision into the existing row.
	merge := doJSON(t, router, http.MethodPost, "/api/imports/inventory/commit", InventoryCommitRequest{
		Mode:  inventory.ModeMerge,
		Items: again.Items,
	})
	if merge.Code != http.StatusOK {
		t.Fatalf("merge commit: status %d body %s", merge.Code, merge.Body.String())
	}
	var summary inventory.CommitSummary
	if err := json.Unmarshal(merge.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Updated != 1 || summary.Inserted != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestInventoryCommitValidation(t *testing.T) {
	_, router := newTestServer(t, &stubExtractor{})

	if resp := doJSON(t, router, http.MethodPost, "/api/imports/inventory/commit", InventoryCommitRequest{
		Mode: inventory.ModeAdd,
	}); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty items, got %d", resp.Code)
	}

	if resp := doJSON(t, router, http.MethodPost, "/api/imports/inventory/commit", InventoryCommitRequest{
		Mode:  "replace",
		Items: []inventory.Candidate{{Brand: "M", Size: "S"}},
	}); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad mode, got %d", resp.Code)
	}
}
