package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
	"github.com/kirillkom/theo-assistant/internal/core/ports"
)

// Dependencies are the pipeline ports exposed as tools.
type Dependencies struct {
	Processor  ports.ReportProcessor
	Extractor  ports.ReportFactsExtractor
	Matcher    ports.BenefitMatcher
	Checklists ports.ChecklistBuilder
	Drafter    ports.DocumentDrafter
	Catalog    ports.BenefitCatalog
}

type tools struct {
	deps Dependencies
}

func NewServer(deps Dependencies, version string) *server.MCPServer {
	s := server.NewMCPServer("theo", version, server.WithToolCapabilities(false), server.WithRecovery())
	t := &tools{deps: deps}

	s.AddTool(mcp.NewTool("process_report",
		mcp.WithDescription("Runs the full report pipeline: extracts facts, matches benefits and returns checklists, documents and supportive messages."),
		mcp.WithString("report_text", mcp.Required(), mcp.Description("Plain text of the medical report.")),
	), t.processReport)

	s.AddTool(mcp.NewTool("extract_report_facts",
		mcp.WithDescription("Extracts diagnosis code, age, support level, school type and observations from a report."),
		mcp.WithString("report_text", mcp.Required(), mcp.Description("Plain text of the medical report.")),
	), t.extractFacts)

	s.AddTool(mcp.NewTool("match_benefits",
		mcp.WithDescription("Lists the catalog benefits that apply to the given facts, highest priority first."),
		mcp.WithObject("facts", mcp.Description("Report facts as returned by extract_report_facts.")),
	), t.matchBenefits)

	s.AddTool(mcp.NewTool("build_checklist",
		mcp.WithDescription("Builds the ordered application checklist for one benefit."),
		mcp.WithString("benefit_id", mcp.Required(), mcp.Description("Catalog benefit id.")),
	), t.buildChecklist)

	s.AddTool(mcp.NewTool("draft_document",
		mcp.WithDescription("Drafts an official document for one benefit."),
		mcp.WithString("benefit_id", mcp.Required(), mcp.Description("Catalog benefit id.")),
		mcp.WithString("type", mcp.Required(),
			mcp.Enum(string(domain.DocumentAdministrativeRequest), string(domain.DocumentFormalEmail), string(domain.DocumentSchoolLetter), string(domain.DocumentLegalPetition)),
			mcp.Description("Document type.")),
		mcp.WithString("recipient", mcp.Description("Addressee; a default is chosen from the benefit when empty.")),
		mcp.WithObject("facts", mcp.Description("Report facts used to personalise the document.")),
	), t.draftDocument)

	return s
}

func (t *tools) processReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("report_text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := t.deps.Processor.ProcessReport(ctx, text)
	if err != nil {
		return toolError("process_report", err), nil
	}
	return jsonResult(result)
}

func (t *tools) extractFacts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("report_text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	facts := t.deps.Extractor.Extract(ctx, text)
	return jsonResult(map[string]any{
		"facts":   facts,
		"summary": t.deps.Extractor.Summarize(facts),
	})
}

func (t *tools) matchBenefits(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	facts, err := factsArgument(req)
	if err != nil {
		return toolError("match_benefits", err), nil
	}
	return jsonResult(map[string]any{"benefits": t.deps.Matcher.Match(ctx, facts)})
}

func (t *tools) buildChecklist(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	benefit, err := t.benefitArgument(req)
	if err != nil {
		return toolError("build_checklist", err), nil
	}
	return jsonResult(map[string]any{
		"benefit":   benefit,
		"checklist": t.deps.Checklists.Build(ctx, benefit),
	})
}

func (t *tools) draftDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	benefit, err := t.benefitArgument(req)
	if err != nil {
		return toolError("draft_document", err), nil
	}
	docType, err := domain.ParseDocumentType(req.GetString("type", ""))
	if err != nil {
		return toolError("draft_document", err), nil
	}
	facts, err := factsArgument(req)
	if err != nil {
		return toolError("draft_document", err), nil
	}
	doc, err := t.deps.Drafter.Draft(ctx, benefit, facts, docType, req.GetString("recipient", ""))
	if err != nil {
		return toolError("draft_document", err), nil
	}
	return jsonResult(doc)
}

func (t *tools) benefitArgument(req mcp.CallToolRequest) (domain.BenefitDescriptor, error) {
	id, err := req.RequireString("benefit_id")
	if err != nil {
		return domain.BenefitDescriptor{}, domain.WrapError(domain.ErrInvalidInput, "benefit argument", err)
	}
	benefit, ok := t.deps.Catalog.Get(strings.TrimSpace(id))
	if !ok {
		return domain.BenefitDescriptor{}, domain.WrapError(domain.ErrNotFound, "benefit argument", fmt.Errorf("benefit %q", id))
	}
	return benefit, nil
}

// factsArgument decodes the optional facts object. A missing object means nothing is known.
func factsArgument(req mcp.CallToolRequest) (domain.ReportFacts, error) {
	raw, ok := req.GetArguments()["facts"]
	if !ok || raw == nil {
		return domain.EmptyFacts(), nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return domain.ReportFacts{}, domain.WrapError(domain.ErrInvalidInput, "facts argument", err)
	}
	var facts domain.ReportFacts
	if err := json.Unmarshal(data, &facts); err != nil {
		return domain.ReportFacts{}, domain.WrapError(domain.ErrInvalidInput, "facts argument", err)
	}
	return facts.Normalized(), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func toolError(tool string, err error) *mcp.CallToolResult {
	slog.Warn("mcp_tool_failed", "tool", tool, "error_kind", domain.KindName(err), "error", err.Error())
	return mcp.NewToolResultError(domain.KindName(err) + ": " + err.Error())
}

// ServeStdio blocks serving the tools on stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
