package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/theo-assistant/internal/config"
	"github.com/kirillkom/theo-assistant/internal/core/domain"
	"github.com/kirillkom/theo-assistant/internal/core/ports"
	"github.com/kirillkom/theo-assistant/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/theo-assistant/internal/infrastructure/extractor"
	"github.com/kirillkom/theo-assistant/internal/observability/metrics"
)

const (
	serviceName     = "theo-api"
	maxJSONBodySize = 1 << 20
)

// Dependencies are the inbound ports served over HTTP. Runs and Metrics are optional.
type Dependencies struct {
	Processor  ports.ReportProcessor
	Extractor  ports.ReportFactsExtractor
	Matcher    ports.BenefitMatcher
	Checklists ports.ChecklistBuilder
	Drafter    ports.DocumentDrafter
	Chat       ports.ChatResponder
	Catalog    ports.BenefitCatalog
	Runs       ports.RunReader
	Metrics    *metrics.HTTPServerMetrics
}

type Router struct {
	cfg  config.Config
	deps Dependencies
}

func NewRouter(cfg config.Config, deps Dependencies) *Router {
	return &Router{cfg: cfg, deps: deps}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.yaml", rt.openAPI)
	if rt.deps.Metrics != nil {
		mux.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}

	api := http.NewServeMux()
	api.HandleFunc("GET /v1/benefits", rt.listBenefits)
	api.HandleFunc("POST /v1/benefits/match", rt.matchBenefits)
	api.HandleFunc("POST /v1/benefits/{benefit_id}/checklist", rt.buildChecklist)
	api.HandleFunc("POST /v1/reports/extract", rt.extractReport)
	api.HandleFunc("POST /v1/reports/process", rt.processReport)
	api.HandleFunc("POST /v1/reports/upload", rt.uploadReport)
	api.HandleFunc("POST /v1/documents/draft", rt.draftDocument)
	api.HandleFunc("POST /v1/chat", rt.chat)
	api.HandleFunc("GET /v1/runs/{run_id}", rt.getRun)

	oaRouter, err := loadOpenAPIRouter()
	if err != nil {
		slog.Error("openapi_validation_disabled", "error", err.Error())
	}

	var onReject rejectRecorder
	if rt.deps.Metrics != nil {
		onReject = func(reason string) { rt.deps.Metrics.RecordRejected(serviceName, reason) }
	}

	var v1 http.Handler = requestValidationMiddleware(api, oaRouter)
	v1 = backpressureWithRecorder(v1, rt.cfg.APIMaxInFlight, rt.cfg.BackpressureWait(), onReject)
	v1 = rateLimitMiddleware(v1, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, onReject)
	mux.Handle("/v1/", v1)

	var handler http.Handler = mux
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = recoverMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPISpec)
}

func (rt *Router) listBenefits(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"benefits": rt.deps.Catalog.Entries()})
}

type reportRequest struct {
	ReportText *string `json:"report_text"`
}

func (rt *Router) decodeReport(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req reportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return "", false
	}
	if req.ReportText == nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "decode report", errors.New("report_text is required")))
		return "", false
	}
	return *req.ReportText, true
}

func (rt *Router) extractReport(w http.ResponseWriter, r *http.Request) {
	text, ok := rt.decodeReport(w, r)
	if !ok {
		return
	}
	facts := rt.deps.Extractor.Extract(r.Context(), text)
	writeJSON(w, http.StatusOK, map[string]any{
		"facts":   facts,
		"summary": rt.deps.Extractor.Summarize(facts),
	})
}

func (rt *Router) processReport(w http.ResponseWriter, r *http.Request) {
	text, ok := rt.decodeReport(w, r)
	if !ok {
		return
	}
	rt.runPipeline(w, r, text)
}

func (rt *Router) uploadReport(w http.ResponseWriter, r *http.Request) {
	limit := rt.cfg.MaxUploadBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	if r.ContentLength > limit {
		writeErrorMessage(w, http.StatusRequestEntityTooLarge, "invalid_input", fmt.Sprintf("upload exceeds %d bytes", limit))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorMessage(w, http.StatusRequestEntityTooLarge, "invalid_input", fmt.Sprintf("upload exceeds %d bytes", limit))
			return
		}
		writeErrorMessage(w, http.StatusBadRequest, "invalid_input", "multipart field 'file' is required")
		return
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "read upload", err))
		return
	}
	text, err := extractor.Extract(header.Filename, header.Header.Get("Content-Type"), body)
	if err != nil {
		writeError(w, err)
		return
	}
	rt.runPipeline(w, r, text)
}

func (rt *Router) runPipeline(w http.ResponseWriter, r *http.Request, text string) {
	ctx := r.Context()
	if timeout := rt.cfg.PipelineTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	result, err := rt.deps.Processor.ProcessReport(ctx, text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) matchBenefits(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Facts domain.ReportFacts `json:"facts"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	benefits := rt.deps.Matcher.Match(r.Context(), req.Facts.Normalized())
	writeJSON(w, http.StatusOK, map[string]any{"benefits": benefits})
}

func (rt *Router) buildChecklist(w http.ResponseWriter, r *http.Request) {
	var benefitID string
	if err := runtime.BindStyledParameterWithOptions("simple", "benefit_id", r.PathValue("benefit_id"), &benefitID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true}); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "bind benefit_id", err))
		return
	}
	format := "json"
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "bind format", err))
		return
	}
	if format != "json" && format != "xlsx" {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "bind format", fmt.Errorf("unknown format %q", format)))
		return
	}

	benefit, ok := rt.deps.Catalog.Get(benefitID)
	if !ok {
		writeError(w, domain.WrapError(domain.ErrNotFound, "build checklist", fmt.Errorf("benefit %q", benefitID)))
		return
	}
	items := rt.deps.Checklists.Build(r.Context(), benefit)

	if format == "xlsx" {
		data, err := xlsx.ChecklistWorkbook(benefit, items)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", xlsx.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", xlsx.Filename(benefit)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"benefit": benefit, "checklist": items})
}

func (rt *Router) draftDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BenefitID string             `json:"benefit_id"`
		Type      string             `json:"type"`
		Recipient string             `json:"recipient"`
		Facts     domain.ReportFacts `json:"facts"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	docType, err := domain.ParseDocumentType(req.Type)
	if err != nil {
		writeError(w, err)
		return
	}
	benefit, ok := rt.deps.Catalog.Get(strings.TrimSpace(req.BenefitID))
	if !ok {
		writeError(w, domain.WrapError(domain.ErrNotFound, "draft document", fmt.Errorf("benefit %q", req.BenefitID)))
		return
	}
	doc, err := rt.deps.Drafter.Draft(r.Context(), benefit, req.Facts.Normalized(), docType, req.Recipient)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) chat(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	reply, err := rt.deps.Chat.Respond(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (rt *Router) getRun(w http.ResponseWriter, r *http.Request) {
	var runID string
	if err := runtime.BindStyledParameterWithOptions("simple", "run_id", r.PathValue("run_id"), &runID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true}); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "bind run_id", err))
		return
	}
	if rt.deps.Runs == nil {
		writeError(w, domain.WrapError(domain.ErrNotFound, "get run", errors.New("run audit is disabled")))
		return
	}
	run, err := rt.deps.Runs.GetRun(r.Context(), runID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodySize))
	if err := dec.Decode(dst); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode json", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

