package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	domaincategory "github.com/alanyang/promptkit/internal/domain/category"
	"github.com/alanyang/promptkit/internal/domain/parser"
	"github.com/alanyang/promptkit/internal/domain/quality"
	"github.com/alanyang/promptkit/internal/domain/similarity"
	promptsvc "github.com/alanyang/promptkit/internal/service/prompt"
)

var formatEnum = []string{
	string(parser.FormatJSON),
	string(parser.FormatYAML),
	string(parser.FormatMarkdown),
	string(parser.FormatText),
}

// RegisterTools registers all MCP tools on the server.
func RegisterTools(s *mcpserver.MCPServer, watchers *WatchRegistry, svc *promptsvc.Service) {
	s.AddTool(mcpmcp.NewTool("parse_prompt",
		mcpmcp.WithDescription("Parse a prompt document (JSON, YAML, Markdown with frontmatter, or plain text) into the canonical prompt model."),
		mcpmcp.WithString("text", mcpmcp.Required(), mcpmcp.Description("Raw prompt document")),
		mcpmcp.WithString("format", mcpmcp.Enum(formatEnum...), mcpmcp.Description("Document format. Detected from the text when omitted.")),
	), parsePromptHandler())

	s.AddTool(mcpmcp.NewTool("check_prompt_quality",
		mcpmcp.WithDescription("Score prompt text with deterministic heuristics. Returns validity, a score in [0,1], issues, stats and suggestions."),
		mcpmcp.WithString("text", mcpmcp.Required(), mcpmcp.Description("Prompt content to check")),
	), checkQualityHandler())

	s.AddTool(mcpmcp.NewTool("compare_prompts",
		mcpmcp.WithDescription("Similarity of two prompt texts after normalization (1 = identical, 0 = disjoint)."),
		mcpmcp.WithString("a", mcpmcp.Required(), mcpmcp.Description("First text")),
		mcpmcp.WithString("b", mcpmcp.Required(), mcpmcp.Description("Second text")),
		mcpmcp.WithNumber("threshold", mcpmcp.Min(0), mcpmcp.Max(1), mcpmcp.Description("Similarity threshold. Server default when omitted.")),
	), comparePromptsHandler(svc))

	s.AddTool(mcpmcp.NewTool("find_similar_prompts",
		mcpmcp.WithDescription("Search the catalogue for prompts similar to the given document, best match first."),
		mcpmcp.WithString("text", mcpmcp.Required(), mcpmcp.Description("Prompt document to search for")),
		mcpmcp.WithString("category_id", mcpmcp.Description("Restrict the search to one category")),
		mcpmcp.WithNumber("threshold", mcpmcp.Min(0), mcpmcp.Max(1), mcpmcp.Description("Minimum similarity")),
		mcpmcp.WithNumber("limit", mcpmcp.Min(0), mcpmcp.Description("Maximum number of matches, 0 for all")),
	), findSimilarHandler(svc))

	s.AddTool(mcpmcp.NewTool("import_prompt",
		mcpmcp.WithDescription("Validate and store a prompt document. Fails when the content has quality errors or duplicates a prompt already in the category, unless force is set."),
		mcpmcp.WithString("text", mcpmcp.Required(), mcpmcp.Description("Raw prompt document")),
		mcpmcp.WithString("format", mcpmcp.Enum(formatEnum...), mcpmcp.Description("Document format. Detected from the text when omitted.")),
		mcpmcp.WithString("category_id", mcpmcp.Description("Category UUID")),
		mcpmcp.WithBoolean("force", mcpmcp.Description("Store even when similar prompts exist")),
	), importPromptHandler(svc))

	s.AddTool(mcpmcp.NewTool("watch_category",
		mcpmcp.WithDescription("Receive catalogue events (imports, deletions, duplicates) for one category, or for the whole catalogue when category_id is omitted, as log notifications on this session."),
		mcpmcp.WithString("category_id", mcpmcp.Description("Category UUID")),
	), watchCategoryHandler(watchers))
}

func optionalUUID(req mcpmcp.CallToolRequest, key string) (*uuid.UUID, error) {
	raw := mcpmcp.ParseString(req, key, "")
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", key)
	}
	return &id, nil
}

func optionalFormat(req mcpmcp.CallToolRequest) (parser.Format, error) {
	raw := mcpmcp.ParseString(req, "format", "")
	f := parser.Format(raw)
	if raw != "" && !f.Valid() {
		return "", fmt.Errorf("unknown format %q", raw)
	}
	return f, nil
}

func jsonResult(v any) (*mcpmcp.CallToolResult, error) {
	res, err := mcpmcp.NewToolResultJSON(v)
	if err != nil {
		return mcpmcp.NewToolResultError(err.Error()), nil
	}
	return res, nil
}

func parsePromptHandler() mcpserver.ToolHandlerFunc {
	return func(_ context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		f, err := optionalFormat(req)
		if err != nil {
			return mcpmcp.NewToolResultError(err.Error()), nil
		}
		doc, detected, err := parser.Decode(mcpmcp.ParseString(req, "text", ""), f)
		if err != nil {
			return mcpmcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"format": detected, "prompt": doc})
	}
}

func checkQualityHandler() mcpserver.ToolHandlerFunc {
	return func(_ context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		text := mcpmcp.ParseString(req, "text", "")
		return jsonResult(struct {
			quality.Result
			Suggestions []string `json:"suggestions"`
		}{quality.Check(text), quality.Suggestions(text)})
	}
}

func comparePromptsHandler(svc *promptsvc.Service) mcpserver.ToolHandlerFunc {
	return func(_ context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		a := mcpmcp.ParseString(req, "a", "")
		b := mcpmcp.ParseString(req, "b", "")
		threshold := svc.Threshold(mcpmcp.ParseFloat64(req, "threshold", 0))

		score := similarity.Similarity(a, b)
		return jsonResult(map[string]any{
			"score":     score,
			"similar":   score >= threshold,
			"threshold": threshold,
		})
	}
}

func findSimilarHandler(svc *promptsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		categoryID, err := optionalUUID(req, "category_id")
		if err != nil {
			return mcpmcp.NewToolResultError(err.Error()), nil
		}

		matches, err := svc.FindSimilar(ctx,
			mcpmcp.ParseString(req, "text", ""),
			categoryID,
			mcpmcp.ParseFloat64(req, "threshold", 0),
			mcpmcp.ParseInt(req, "limit", 0),
		)
		if err != nil {
			return mcpmcp.NewToolResultError(err.Error()), nil
		}
		if matches == nil {
			matches = []promptsvc.Match{}
		}
		return jsonResult(map[string]any{"matches": matches})
	}
}

func importPromptHandler(svc *promptsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		f, err := optionalFormat(req)
		if err != nil {
			return mcpmcp.NewToolResultError(err.Error()), nil
		}
		categoryID, err := optionalUUID(req, "category_id")
		if err != nil {
			return mcpmcp.NewToolResultError(err.Error()), nil
		}

		res, err := svc.Import(ctx, promptsvc.ImportInput{
			CategoryID: categoryID,
			Text:       mcpmcp.ParseString(req, "text", ""),
			Format:     f,
			Force:      mcpmcp.ParseBoolean(req, "force", false),
		})
		switch {
		case errors.Is(err, promptsvc.ErrDuplicate):
			ids := make([]string, len(res.Duplicates))
			for i, m := range res.Duplicates {
				ids[i] = fmt.Sprintf("%s (%.2f)", m.Prompt.ID, m.Score)
			}
			return mcpmcp.NewToolResultError(fmt.Sprintf("duplicate of %v; pass force=true to store anyway", ids)), nil
		case errors.Is(err, domaincategory.ErrNotFound):
			return mcpmcp.NewToolResultError("unknown category_id"), nil
		case err != nil:
			return mcpmcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(res)
	}
}

func watchCategoryHandler(watchers *WatchRegistry) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		categoryID, err := optionalUUID(req, "category_id")
		if err != nil {
			return mcpmcp.NewToolResultError(err.Error()), nil
		}
		session := mcpserver.ClientSessionFromContext(ctx)
		if session == nil {
			return mcpmcp.NewToolResultError("watch_category requires a session"), nil
		}

		watchers.Watch(session.SessionID(), categoryID)
		scope := "all categories"
		if categoryID != nil {
			scope = "category " + categoryID.String()
		}
		return mcpmcp.NewToolResultText("watching " + scope), nil
	}
}
