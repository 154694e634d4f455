package parser

import (
	"math"
	"strings"

	"github.com/alanyang/promptkit/internal/domain/prompt"
)

// normalize maps a decoded document onto the canonical model. Unknown
// top-level fields are dropped.
func normalize(m *mapping) prompt.ParsedPrompt {
	p := prompt.ParsedPrompt{
		Name:            textField(m, "name"),
		Description:     textField(m, "description"),
		Model:           textField(m, "model"),
		ModelParameters: modelParameters(m),
		Messages:        messages(m),
		Variables:       variables(m),
	}

	if v, ok := m.get("metadata"); ok {
		if mm, ok := v.(*mapping); ok && mm.len() > 0 {
			p.Metadata = toAny(mm).(map[string]any)
		}
	}
	return p
}

func textField(m *mapping, key string) string {
	v, ok := m.get(key)
	if !ok {
		return ""
	}
	s, _ := asText(v)
	return s
}

func messages(m *mapping) []prompt.Message {
	out := []prompt.Message{}
	if v, ok := m.get("messages"); ok {
		if seq, ok := v.(sequence); ok {
			for _, entry := range seq {
				em, ok := entry.(*mapping)
				if !ok {
					continue
				}
				out = append(out, prompt.Message{
					Role:    role(em),
					Content: textField(em, "content"),
				})
			}
		}
	}
	if len(out) > 0 {
		return out
	}

	for _, key := range []string{"content", "prompt"} {
		v, ok := m.get(key)
		if !ok {
			continue
		}
		if s, ok := asString(v); ok && strings.TrimSpace(s) != "" {
			return []prompt.Message{{Role: prompt.RoleSystem, Content: s}}
		}
	}
	return out
}

func role(m *mapping) prompt.Role {
	r := prompt.Role(strings.ToLower(strings.TrimSpace(textField(m, "role"))))
	if !r.Valid() {
		return prompt.RoleUser
	}
	return r
}

func modelParameters(m *mapping) *prompt.ModelParameters {
	var src *mapping
	for _, key := range []string{"modelParameters", "model_parameters"} {
		if v, ok := m.get(key); ok {
			if mm, ok := v.(*mapping); ok {
				src = mm
				break
			}
		}
	}
	if src == nil {
		return nil
	}

	var mp prompt.ModelParameters
	mp.Temperature = floatField(src, "temperature")
	mp.TopP = floatField(src, "topP", "top_p")
	mp.FrequencyPenalty = floatField(src, "frequencyPenalty", "frequency_penalty")
	mp.PresencePenalty = floatField(src, "presencePenalty", "presence_penalty")
	if f := floatField(src, "maxTokens", "max_tokens"); f != nil && *f == math.Trunc(*f) {
		n := int(*f)
		mp.MaxTokens = &n
	}
	if mp.IsZero() {
		return nil
	}
	return &mp
}

func floatField(m *mapping, keys ...string) *float64 {
	for _, key := range keys {
		v, ok := m.get(key)
		if !ok {
			continue
		}
		if f, ok := asFloat(v); ok {
			return &f
		}
	}
	return nil
}

// variables accepts either a mapping of name to definition or a sequence of
// records that carry their own name.
func variables(m *mapping) map[string]prompt.Variable {
	v, ok := m.get("variables")
	if !ok {
		return nil
	}

	out := make(map[string]prompt.Variable)
	switch t := v.(type) {
	case *mapping:
		for _, name := range t.keys {
			out[name] = variable(t.fields[name])
		}
	case sequence:
		for _, entry := range t {
			em, ok := entry.(*mapping)
			if !ok {
				continue
			}
			if name := textField(em, "name"); name != "" {
				out[name] = variable(em)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func variable(v value) prompt.Variable {
	var out prompt.Variable
	m, ok := v.(*mapping)
	if !ok {
		out.Description, _ = asText(v)
		return out
	}
	out.Description = textField(m, "description")
	if d, ok := m.get("default"); ok {
		if s, ok := asText(d); ok {
			out.Default = &s
		}
	}
	if r, ok := m.get("required"); ok {
		if b, ok := asBool(r); ok {
			out.Required = &b
		}
	}
	return out
}
