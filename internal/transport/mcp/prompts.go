package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	domainprompt "github.com/alanyang/promptkit/internal/domain/prompt"
	promptsvc "github.com/alanyang/promptkit/internal/service/prompt"
)

// RegisterPrompts exposes stored catalogue prompts as MCP prompts.
func RegisterPrompts(s *mcpserver.MCPServer, svc *promptsvc.Service) {
	s.AddPrompt(
		mcpmcp.NewPrompt("render_prompt",
			mcpmcp.WithPromptDescription("A catalogued prompt with its {{variables}} filled in."),
			mcpmcp.WithArgument("prompt_id",
				mcpmcp.ArgumentDescription("Prompt UUID"),
				mcpmcp.RequiredArgument(),
			),
			mcpmcp.WithArgument("values",
				mcpmcp.ArgumentDescription(`Variable values as a JSON object, e.g. {"topic":"tides"}. Declared defaults fill the rest.`),
			),
		),
		renderPromptHandler(svc),
	)
}

func renderPromptHandler(svc *promptsvc.Service) mcpserver.PromptHandlerFunc {
	return func(ctx context.Context, req mcpmcp.GetPromptRequest) (*mcpmcp.GetPromptResult, error) {
		id, err := uuid.Parse(req.Params.Arguments["prompt_id"])
		if err != nil {
			return nil, fmt.Errorf("invalid prompt_id: %w", err)
		}

		var values map[string]string
		if raw := req.Params.Arguments["values"]; raw != "" {
			if err := json.Unmarshal([]byte(raw), &values); err != nil {
				return nil, fmt.Errorf("invalid values: %w", err)
			}
		}

		p, err := svc.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		doc := p.Document.Interpolate(values)

		messages := make([]mcpmcp.PromptMessage, 0, len(doc.Messages))
		for _, m := range doc.Messages {
			messages = append(messages, mcpmcp.NewPromptMessage(promptRole(m.Role), mcpmcp.NewTextContent(m.Content)))
		}

		desc := p.Description
		if desc == "" {
			desc = p.Name
		}
		return mcpmcp.NewGetPromptResult(desc, messages), nil
	}
}

// promptRole maps message roles onto MCP roles. MCP has no system role, so
// system content is delivered as user content.
func promptRole(r domainprompt.Role) mcpmcp.Role {
	if r == domainprompt.RoleAssistant {
		return mcpmcp.RoleAssistant
	}
	return mcpmcp.RoleUser
}
