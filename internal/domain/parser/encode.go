package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/alanyang/promptkit/internal/domain/prompt"
)

// ToJSON encodes p. Map keys come out sorted so the output is deterministic.
func ToJSON(p prompt.ParsedPrompt, pretty bool) ([]byte, error) {
	if p.Messages == nil {
		p.Messages = []prompt.Message{}
	}
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(p, "", "  ")
	} else {
		data, err = json.Marshal(p)
	}
	if err != nil {
		return nil, fmt.Errorf("encode prompt json: %w", err)
	}
	return data, nil
}

var bareKeyRe = regexp.MustCompile(`^[A-Za-z_][\w.-]*$`)

// yamlKey quotes keys the decoder would not read back bare. The decoder's
// quoted keys have no escapes, so a key holding a double quote is
// single-quoted instead.
func yamlKey(k string) string {
	switch {
	case bareKeyRe.MatchString(k):
		return k
	case !strings.Contains(k, `"`):
		return `"` + k + `"`
	case !strings.Contains(k, "'"):
		return "'" + k + "'"
	}
	return `"` + strings.ReplaceAll(k, `"`, "") + `"`
}

// ToYAML emits p in the subset the YAML decoder reads back. Multi-line
// strings become block scalars, everything else is double-quoted.
func ToYAML(p prompt.ParsedPrompt) string {
	var b strings.Builder

	writeText(&b, 0, "name", p.Name)
	writeText(&b, 0, "description", p.Description)
	writeText(&b, 0, "model", p.Model)

	if mp := p.ModelParameters; mp != nil && !mp.IsZero() {
		b.WriteString("modelParameters:\n")
		writeFloat(&b, "temperature", mp.Temperature)
		if mp.MaxTokens != nil {
			fmt.Fprintf(&b, "  maxTokens: %d\n", *mp.MaxTokens)
		}
		writeFloat(&b, "topP", mp.TopP)
		writeFloat(&b, "frequencyPenalty", mp.FrequencyPenalty)
		writeFloat(&b, "presencePenalty", mp.PresencePenalty)
	}

	if len(p.Messages) > 0 {
		b.WriteString("messages:\n")
		for _, m := range p.Messages {
			fmt.Fprintf(&b, "  - role: %s\n", m.Role)
			writeString(&b, 4, "content", m.Content)
		}
	}

	if len(p.Variables) > 0 {
		b.WriteString("variables:\n")
		for _, name := range sortedKeys(p.Variables) {
			v := p.Variables[name]
			fmt.Fprintf(&b, "  %s:\n", yamlKey(name))
			writeText(&b, 4, "description", v.Description)
			if v.Default != nil {
				writeString(&b, 4, "default", *v.Default)
			}
			if v.Required != nil {
				fmt.Fprintf(&b, "    required: %t\n", *v.Required)
			}
		}
	}

	if len(p.Metadata) > 0 {
		writeAny(&b, 0, "metadata", p.Metadata)
	}
	return b.String()
}

func writeFloat(b *strings.Builder, key string, f *float64) {
	if f != nil {
		fmt.Fprintf(b, "  %s: %s\n", key, strconv.FormatFloat(*f, 'f', -1, 64))
	}
}

func writeText(b *strings.Builder, indent int, key, s string) {
	if s != "" {
		writeString(b, indent, key, s)
	}
}

func writeString(b *strings.Builder, indent int, key, s string) {
	pad := strings.Repeat(" ", indent)
	key = yamlKey(key)
	if !strings.Contains(s, "\n") {
		fmt.Fprintf(b, "%s%s: %s\n", pad, key, quote(s))
		return
	}
	fmt.Fprintf(b, "%s%s: |\n", pad, key)
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			b.WriteString("\n")
			continue
		}
		b.WriteString(pad + "  " + line + "\n")
	}
}

func writeAny(b *strings.Builder, indent int, key string, v any) {
	pad := strings.Repeat(" ", indent)
	switch t := v.(type) {
	case nil:
	case map[string]any:
		if len(t) == 0 {
			return
		}
		fmt.Fprintf(b, "%s%s:\n", pad, yamlKey(key))
		for _, k := range sortedKeys(t) {
			writeAny(b, indent+2, k, t[k])
		}
	case []any:
		if len(t) == 0 {
			return
		}
		fmt.Fprintf(b, "%s%s:\n", pad, yamlKey(key))
		for _, item := range t {
			writeItem(b, indent+2, item)
		}
	case string:
		writeString(b, indent, key, t)
	default:
		fmt.Fprintf(b, "%s%s: %s\n", pad, yamlKey(key), plain(t))
	}
}

// writeItem emits one sequence entry. Records keep only scalar fields.
func writeItem(b *strings.Builder, indent int, item any) {
	pad := strings.Repeat(" ", indent)
	rec, ok := item.(map[string]any)
	if !ok {
		if s, ok := item.(string); ok {
			fmt.Fprintf(b, "%s- %s\n", pad, quote(s))
		} else if item != nil {
			fmt.Fprintf(b, "%s- %s\n", pad, plain(item))
		}
		return
	}
	first := true
	for _, k := range sortedKeys(rec) {
		var val string
		switch t := rec[k].(type) {
		case map[string]any, []any, nil:
			continue
		case string:
			val = quote(t)
		default:
			val = plain(t)
		}
		if first {
			fmt.Fprintf(b, "%s- %s: %s\n", pad, yamlKey(k), val)
			first = false
		} else {
			fmt.Fprintf(b, "%s  %s: %s\n", pad, yamlKey(k), val)
		}
	}
}

func plain(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
