package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/alanyang/promptkit/internal/domain/prompt"
)

type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

func (f Format) Valid() bool {
	switch f {
	case FormatJSON, FormatYAML, FormatMarkdown, FormatText:
		return true
	}
	return false
}

// ErrSyntax is matched by every *ParseError.
var ErrSyntax = errors.New("syntax error")

// ParseError is returned for malformed JSON or inconsistent markdown
// frontmatter. No partial result accompanies it.
type ParseError struct {
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: syntax error: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrSyntax }

var frontmatterRe = regexp.MustCompile(`(?s)^---[ \t]*\r?\n(?:(.*?)\r?\n)?---[ \t]*(?:\r?\n(.*))?$`)

// Detect infers the document format from its leading characters.
func Detect(text string) Format {
	t := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(t, "{"):
		return FormatJSON
	case strings.HasPrefix(t, "---"):
		return FormatMarkdown
	case strings.Contains(t, ":") && (strings.Contains(t, "\n  ") || strings.Contains(t, "\n-")):
		return FormatYAML
	}
	return FormatText
}

// FormatFromPath maps a file extension to a format, or "" when the
// extension says nothing and the content has to be sniffed.
func FormatFromPath(p string) Format {
	switch strings.ToLower(path.Ext(p)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".md", ".markdown":
		return FormatMarkdown
	case ".txt":
		return FormatText
	}
	return ""
}

// Parse decodes text in its detected format.
func Parse(text string) (prompt.ParsedPrompt, error) {
	p, _, err := Decode(text, "")
	return p, err
}

// ParseFormat decodes text as f. An empty or unknown f falls back to
// detection.
func ParseFormat(text string, f Format) (prompt.ParsedPrompt, error) {
	p, _, err := Decode(text, f)
	return p, err
}

// Decode is ParseFormat that also reports the format actually used.
func Decode(text string, f Format) (prompt.ParsedPrompt, Format, error) {
	detected := !f.Valid()
	if detected {
		f = Detect(text)
	}

	switch f {
	case FormatJSON:
		p, err := decodeJSON(text)
		return p, f, err
	case FormatYAML:
		p := normalize(decodeYAML(text))
		// A sniffed "yaml" document that yields nothing recognisable was
		// prose with a colon in it.
		if detected && isBlank(p) {
			return decodeText(text), FormatText, nil
		}
		return p, f, nil
	case FormatMarkdown:
		p, err := decodeMarkdown(text)
		return p, f, err
	}
	return decodeText(text), FormatText, nil
}

func decodeJSON(text string) (prompt.ParsedPrompt, error) {
	var raw any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return prompt.ParsedPrompt{}, &ParseError{Format: FormatJSON, Err: err}
	}
	m, ok := fromJSON(raw).(*mapping)
	if !ok {
		return prompt.ParsedPrompt{}, &ParseError{Format: FormatJSON, Err: errors.New("document is not an object")}
	}
	return normalize(m), nil
}

func decodeMarkdown(text string) (prompt.ParsedPrompt, error) {
	trimmed := strings.TrimSpace(text)
	m := frontmatterRe.FindStringSubmatch(trimmed)
	if m == nil {
		return decodeText(trimmed), nil
	}

	fm := decodeYAML(m[1])
	if fm.len() == 0 && hasContent(m[1]) {
		return prompt.ParsedPrompt{}, &ParseError{Format: FormatMarkdown, Err: errors.New("frontmatter is not a key/value mapping")}
	}

	p := normalize(fm)
	if body := strings.TrimSpace(m[2]); body != "" {
		p.Messages = []prompt.Message{{Role: prompt.RoleSystem, Content: body}}
	}
	return p, nil
}

func decodeText(text string) prompt.ParsedPrompt {
	p := prompt.ParsedPrompt{Messages: []prompt.Message{}}
	if t := strings.TrimSpace(text); t != "" {
		p.Messages = append(p.Messages, prompt.Message{Role: prompt.RoleSystem, Content: t})
	}
	return p
}

func hasContent(block string) bool {
	for _, line := range strings.Split(block, "\n") {
		t := strings.TrimSpace(line)
		if t != "" && !strings.HasPrefix(t, "#") {
			return true
		}
	}
	return false
}

func isBlank(p prompt.ParsedPrompt) bool {
	return len(p.Messages) == 0 && p.Name == "" && p.Description == "" && p.Model == "" &&
		p.ModelParameters == nil && len(p.Variables) == 0 && len(p.Metadata) == 0
}
