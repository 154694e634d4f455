package prompt

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("prompt not found")

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type ModelParameters struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxTokens        *int     `json:"maxTokens,omitempty"`
	TopP             *float64 `json:"topP,omitempty"`
	FrequencyPenalty *float64 `json:"frequencyPenalty,omitempty"`
	PresencePenalty  *float64 `json:"presencePenalty,omitempty"`
}

// IsZero reports whether no parameter is set.
func (m ModelParameters) IsZero() bool {
	return m.Temperature == nil && m.MaxTokens == nil && m.TopP == nil &&
		m.FrequencyPenalty == nil && m.PresencePenalty == nil
}

type Variable struct {
	Description string  `json:"description,omitempty"`
	Default     *string `json:"default,omitempty"`
	Required    *bool   `json:"required,omitempty"`
}

// ParsedPrompt is the format-agnostic document every decoder converges to.
// Messages keep source order.
type ParsedPrompt struct {
	Name            string              `json:"name,omitempty"`
	Description     string              `json:"description,omitempty"`
	Model           string              `json:"model,omitempty"`
	ModelParameters *ModelParameters    `json:"modelParameters,omitempty"`
	Messages        []Message           `json:"messages"`
	Variables       map[string]Variable `json:"variables,omitempty"`
	Metadata        map[string]any      `json:"metadata,omitempty"`
}

// SystemPrompt returns the content of the first system message, or "".
func (p ParsedPrompt) SystemPrompt() string {
	for _, m := range p.Messages {
		if m.Role == RoleSystem {
			return m.Content
		}
	}
	return ""
}

// Content is the text the catalogue scores and deduplicates: the system
// prompt when there is one, otherwise every message joined by a blank line.
func (p ParsedPrompt) Content() string {
	if s := p.SystemPrompt(); s != "" {
		return s
	}
	parts := make([]string, 0, len(p.Messages))
	for _, m := range p.Messages {
		if m.Content != "" {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Interpolate substitutes {{name}} placeholders in every message. A value
// from values wins over the variable's default; unresolved placeholders are
// left as they are. The receiver is not modified.
func (p ParsedPrompt) Interpolate(values map[string]string) ParsedPrompt {
	out := p
	if p.Messages == nil {
		return out
	}
	out.Messages = make([]Message, len(p.Messages))
	for i, m := range p.Messages {
		out.Messages[i] = Message{
			Role:    m.Role,
			Content: placeholderRe.ReplaceAllStringFunc(m.Content, func(match string) string {
				name := placeholderRe.FindStringSubmatch(match)[1]
				if v, ok := values[name]; ok {
					return v
				}
				if v, ok := p.Variables[name]; ok && v.Default != nil {
					return *v.Default
				}
				return match
			}),
		}
	}
	return out
}

// Placeholders lists the distinct {{name}} placeholders in message order.
func (p ParsedPrompt) Placeholders() []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range p.Messages {
		for _, sm := range placeholderRe.FindAllStringSubmatch(m.Content, -1) {
			if !seen[sm[1]] {
				seen[sm[1]] = true
				names = append(names, sm[1])
			}
		}
	}
	return names
}

// Prompt is a catalogued document.
type Prompt struct {
	ID          uuid.UUID    `json:"id"`
	CategoryID  *uuid.UUID   `json:"category_id,omitempty"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Format      string       `json:"format"`
	Document    ParsedPrompt `json:"document"`
	Content     string       `json:"content"`
	Fingerprint string       `json:"fingerprint"`
	Score       float64      `json:"score"`
	CreatedAt   time.Time    `json:"created_at"`
}

func New(categoryID *uuid.UUID, format string, doc ParsedPrompt, fingerprint string, score float64) Prompt {
	return Prompt{
		ID:          uuid.New(),
		CategoryID:  categoryID,
		Name:        doc.Name,
		Description: doc.Description,
		Format:      format,
		Document:    doc,
		Content:     doc.Content(),
		Fingerprint: fingerprint,
		Score:       score,
		CreatedAt:   time.Now().UTC(),
	}
}

type ListFilters struct {
	CategoryID *uuid.UUID
	Limit      int
	Offset     int
}
