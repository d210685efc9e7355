package httpadapter

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

	"github.com/kirillkom/theo-assistant/internal/core/domain"
	"github.com/kirillkom/theo-assistant/internal/infrastructure/export/xlsx"
)

func serve(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", res.Body.String(), err)
	}
	return out
}

func TestHealthzSetsRequestID(t *testing.T) {
	handler := NewRouter(testConfig(), testDependencies()).Handler()

	res := serve(t, handler, http.MethodGet, "/healthz", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestOpenAPISpecIsServedAndLoads(t *testing.T) {
	if _, err := loadOpenAPIRouter(); err != nil {
		t.Fatalf("loadOpenAPIRouter() error = %v", err)
	}
	handler := NewRouter(testConfig(), testDependencies()).Handler()
	res := serve(t, handler, http.MethodGet, "/openapi.yaml", nil)
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), "/v1/reports/process") {
		t.Fatalf("unexpected openapi response: %d", res.Code)
	}
}

func TestProcessReportRejectsMissingOrNonStringText(t *testing.T) {
	deps := testDependencies()
	processor := &processorFake{}
	deps.Processor = processor
	handler := NewRouter(testConfig(), deps).Handler()

	for name, body := range map[string]string{
		"missing":    `{}`,
		"number":     `{"report_text": 42}`,
		"null":       `{"report_text": null}`,
		"not json":   `report`,
		"array text": `{"report_text": ["a"]}`,
	} {
		t.Run(name, func(t *testing.T) {
			res := serve(t, handler, http.MethodPost, "/v1/reports/process", body)
			if res.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", res.Code, res.Body.String())
			}
		})
	}
	if len(processor.texts) != 0 {
		t.Fatalf("pipeline must not run for invalid input, ran %d times", len(processor.texts))
	}
}

func TestProcessReportAcceptsEmptyText(t *testing.T) {
	deps := testDependencies()
	processor := &processorFake{}
	deps.Processor = processor
	handler := NewRouter(testConfig(), deps).Handler()

	res := serve(t, handler, http.MethodPost, "/v1/reports/process", map[string]string{"report_text": ""})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if got := decodeBody(t, res)["run_id"]; got != "run-1" {
		t.Fatalf("expected run id in result, got %v", got)
	}
	if len(processor.texts) != 1 || processor.texts[0] != "" {
		t.Fatalf("unexpected pipeline calls: %v", processor.texts)
	}
}

func TestProcessReportMapsErrorKinds(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"configuration", domain.WrapError(domain.ErrConfiguration, "pipeline", errors.New("no model")), http.StatusInternalServerError, "configuration_error"},
		{"deadline", errors.Join(context.DeadlineExceeded, errors.New("process report")), http.StatusGatewayTimeout, "timeout"},
		{"temporary", domain.WrapError(domain.ErrTemporary, "nats request", errors.New("no responders")), http.StatusServiceUnavailable, "temporarily_unavailable"},
		{"invalid", domain.WrapError(domain.ErrInvalidInput, "process", errors.New("bad utf-8")), http.StatusBadRequest, "invalid_input"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			deps := testDependencies()
			deps.Processor = &processorFake{err: tc.err}
			handler := NewRouter(testConfig(), deps).Handler()

			res := serve(t, handler, http.MethodPost, "/v1/reports/process", map[string]string{"report_text": "laudo"})
			if res.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, res.Code)
			}
			if got := decodeBody(t, res)["code"]; got != tc.code {
				t.Fatalf("expected code %q, got %v", tc.code, got)
			}
		})
	}
}

func TestExtractReportReturnsFactsAndSummary(t *testing.T) {
	handler := NewRouter(testConfig(), testDependencies()).Handler()

	res := serve(t, handler, http.MethodPost, "/v1/reports/extract", map[string]string{"report_text": "CID F84.0"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := decodeBody(t, res)
	facts, _ := body["facts"].(map[string]any)
	if facts["diagnosis_code"] != "F84.0" {
		t.Fatalf("unexpected facts: %v", body["facts"])
	}
	if summary, _ := body["summary"].(string); !strings.Contains(summary, "CID: F84.0") {
		t.Fatalf("unexpected summary %q", summary)
	}
}

func uploadRequest(t *testing.T, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart() error = %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/reports/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadReportRunsPipelineOnExtractedText(t *testing.T) {
	deps := testDependencies()
	processor := &processorFake{}
	deps.Processor = processor
	handler := NewRouter(testConfig(), deps).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, uploadRequest(t, "laudo.html", "text/html", []byte("<p>CID F84.0</p><p>Idade 7</p>")))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if len(processor.texts) != 1 || processor.texts[0] != "CID F84.0\nIdade 7" {
		t.Fatalf("unexpected pipeline input: %q", processor.texts)
	}
}

func TestUploadReportRejectsUnsupportedAndOversized(t *testing.T) {
	handler := NewRouter(testConfig(), testDependencies()).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, uploadRequest(t, "foto.png", "image/png", []byte{0x89, 'P', 'N', 'G'}))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported file, got %d", res.Code)
	}

	cfg := testConfig()
	cfg.MaxUploadBytes = 64
	small := NewRouter(cfg, testDependencies()).Handler()
	res = httptest.NewRecorder()
	small.ServeHTTP(res, uploadRequest(t, "laudo.txt", "text/plain", bytes.Repeat([]byte("a"), 4096)))
	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for oversized upload, got %d", res.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/reports/upload", strings.NewReader("plain"))
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without multipart file, got %d", res.Code)
	}
}

func TestMatchBenefitsNormalizesFacts(t *testing.T) {
	deps := testDependencies()
	matcher := &matcherFake{}
	deps.Matcher = matcher
	handler := NewRouter(testConfig(), deps).Handler()

	res := serve(t, handler, http.MethodPost, "/v1/benefits/match", `{"facts":{"diagnosis_code":"F84.0","age":7}}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if matcher.got.SchoolType != domain.SchoolUnspecified {
		t.Fatalf("expected unspecified school type, got %q", matcher.got.SchoolType)
	}
	if age, ok := matcher.got.KnownAge(); !ok || age != 7 {
		t.Fatalf("expected age 7, got %v", matcher.got.Age)
	}
}

func TestChecklistFormats(t *testing.T) {
	handler := NewRouter(testConfig(), testDependencies()).Handler()

	res := serve(t, handler, http.MethodPost, "/v1/benefits/ciptea/checklist", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	items, _ := decodeBody(t, res)["checklist"].([]any)
	if len(items) != domain.MinChecklistItems {
		t.Fatalf("expected %d items, got %d", domain.MinChecklistItems, len(items))
	}

	res = serve(t, handler, http.MethodPost, "/v1/benefits/ciptea/checklist?format=xlsx", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if got := res.Header().Get("Content-Type"); got != xlsx.ContentType {
		t.Fatalf("unexpected content type %q", got)
	}
	if !bytes.HasPrefix(res.Body.Bytes(), []byte("PK")) {
		t.Fatalf("expected a zip container")
	}

	res = serve(t, handler, http.MethodPost, "/v1/benefits/ciptea/checklist?format=pdf", nil)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown format, got %d", res.Code)
	}

	res = serve(t, handler, http.MethodPost, "/v1/benefits/unknown/checklist", nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown benefit, got %d", res.Code)
	}
}

func TestDraftDocument(t *testing.T) {
	handler := NewRouter(testConfig(), testDependencies()).Handler()

	res := serve(t, handler, http.MethodPost, "/v1/documents/draft", map[string]any{
		"benefit_id": "ciptea",
		"type":       "formal-email",
		"recipient":  "Secretaria",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if got := decodeBody(t, res)["title"]; got != "E-mail Formal - CIPTEA" {
		t.Fatalf("unexpected title %v", got)
	}

	res = serve(t, handler, http.MethodPost, "/v1/documents/draft", map[string]any{"benefit_id": "ciptea", "type": "poem"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown type, got %d", res.Code)
	}

	res = serve(t, handler, http.MethodPost, "/v1/documents/draft", map[string]any{"benefit_id": "missing", "type": "formal-email"})
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown benefit, got %d", res.Code)
	}
}

func TestChatReturnsNextSession(t *testing.T) {
	handler := NewRouter(testConfig(), testDependencies()).Handler()

	res := serve(t, handler, http.MethodPost, "/v1/chat", map[string]any{
		"session":    map[string]any{"stage": "exploring", "turns": 1},
		"action":     "focus_benefit",
		"benefit_id": "ciptea",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	session, _ := decodeBody(t, res)["session"].(map[string]any)
	if session["stage"] != "benefit_focus" || session["benefit_id"] != "ciptea" {
		t.Fatalf("unexpected session %v", session)
	}

	res = serve(t, handler, http.MethodPost, "/v1/chat", map[string]any{"action": "report_processed"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid transition, got %d", res.Code)
	}
}

func TestGetRun(t *testing.T) {
	disabled := NewRouter(testConfig(), testDependencies()).Handler()
	if res := serve(t, disabled, http.MethodGet, "/v1/runs/run-1", nil); res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with audit disabled, got %d", res.Code)
	}

	deps := testDependencies()
	deps.Runs = runsFake{}
	handler := NewRouter(testConfig(), deps).Handler()

	res := serve(t, handler, http.MethodGet, "/v1/runs/run-1", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := decodeBody(t, res)["matched_count"]; got != float64(2) {
		t.Fatalf("unexpected matched count %v", got)
	}
	if res := serve(t, handler, http.MethodGet, "/v1/runs/other", nil); res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown run, got %d", res.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := NewRouter(testConfig(), testDependencies()).Handler()
	if res := serve(t, handler, http.MethodGet, "/v1/reports/process", nil); res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}
