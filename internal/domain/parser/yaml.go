package parser

import (
	"regexp"
	"strings"
)

// The YAML decoder understands only what prompt documents use: flat
// "key: value" pairs, block scalars ("key: |"), nested mappings decoded
// recursively, and sequences of scalars or of small records. It is a
// line-at-a-time state machine; anything it does not recognise is dropped.

type decodeState int

const (
	stateRoot decodeState = iota
	statePending
	stateInArray
	stateInMultiline
	stateInMapping
)

var keyValueRe = regexp.MustCompile(`^(?:"([^"]+)"|'([^']+)'|([A-Za-z_][\w.-]*))[ \t]*:(?:[ \t]+(.*))?$`)

var numberRe = regexp.MustCompile(`^[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?$`)

type yamlDecoder struct {
	state  decodeState
	result *mapping

	key       string
	keyIndent int

	items       sequence
	arrayIndent int
	item        *mapping

	block       []string
	blockKey    string
	blockIndent int
	blockParent int
	blockInItem bool

	nested []string
}

func decodeYAML(text string) *mapping {
	d := &yamlDecoder{result: newMapping()}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, line := range strings.Split(text, "\n") {
		d.feed(line)
	}
	d.finish()
	return d.result
}

func (d *yamlDecoder) feed(line string) {
	trimmed := strings.TrimSpace(line)
	indent := indentOf(line)

	switch d.state {
	case stateInMultiline:
		if trimmed == "" {
			d.block = append(d.block, "")
			return
		}
		if indent > d.blockParent {
			if d.blockIndent < 0 {
				d.blockIndent = indent
			}
			d.block = append(d.block, dedent(line, d.blockIndent))
			return
		}
		d.closeMultiline()
		d.feed(line)
		return
	case stateInMapping:
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || indent > d.keyIndent {
			d.nested = append(d.nested, line)
			return
		}
		d.closeMapping()
		d.feed(line)
		return
	}

	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return
	}

	switch d.state {
	case statePending:
		switch {
		case isDash(trimmed) && indent >= d.keyIndent:
			d.state = stateInArray
			d.items = sequence{}
			d.arrayIndent = indent
			d.arrayLine(line, trimmed, indent)
			return
		case indent > d.keyIndent:
			d.state = stateInMapping
			d.nested = []string{line}
			return
		}
		d.result.set(d.key, scalar{v: ""})
		d.state = stateRoot
	case stateInArray:
		if d.arrayLine(line, trimmed, indent) {
			return
		}
		d.closeArray()
	}

	d.rootLine(trimmed, indent)
}

func (d *yamlDecoder) rootLine(trimmed string, indent int) {
	key, val, ok := splitKeyValue(trimmed)
	if !ok {
		return
	}
	d.key, d.keyIndent = key, indent
	switch {
	case isBlockIndicator(val):
		d.openBlock(key, indent, false)
	case val == "":
		d.state = statePending
	default:
		d.result.set(key, coerce(val))
	}
}

// arrayLine reports whether the line belongs to the open sequence.
func (d *yamlDecoder) arrayLine(line, trimmed string, indent int) bool {
	if isDash(trimmed) && indent >= d.keyIndent && indent <= d.arrayIndent {
		d.flushItem()
		rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "-"))
		if rest == "" {
			d.item = newMapping()
			return true
		}
		if key, val, ok := splitKeyValue(rest); ok {
			d.item = newMapping()
			d.recordField(key, val, indent+strings.Index(line[indent:], rest))
			return true
		}
		d.items = append(d.items, coerce(rest))
		return true
	}
	if indent > d.arrayIndent {
		if d.item != nil {
			if key, val, ok := splitKeyValue(trimmed); ok {
				d.recordField(key, val, indent)
			}
		}
		return true
	}
	return false
}

func (d *yamlDecoder) recordField(key, val string, keyIndent int) {
	if isBlockIndicator(val) {
		d.openBlock(key, keyIndent, true)
		return
	}
	d.item.set(key, coerce(val))
}

func (d *yamlDecoder) openBlock(key string, parentIndent int, inItem bool) {
	d.state = stateInMultiline
	d.block = nil
	d.blockKey = key
	d.blockIndent = -1
	d.blockParent = parentIndent
	d.blockInItem = inItem
}

func (d *yamlDecoder) closeMultiline() {
	content := scalar{v: strings.TrimSpace(strings.Join(d.block, "\n"))}
	d.block = nil
	if d.blockInItem {
		d.item.set(d.blockKey, content)
		d.state = stateInArray
		return
	}
	d.result.set(d.blockKey, content)
	d.state = stateRoot
}

func (d *yamlDecoder) flushItem() {
	if d.item != nil {
		d.items = append(d.items, d.item)
		d.item = nil
	}
}

func (d *yamlDecoder) closeArray() {
	d.flushItem()
	d.result.set(d.key, d.items)
	d.items = nil
	d.state = stateRoot
}

func (d *yamlDecoder) closeMapping() {
	d.result.set(d.key, decodeYAML(dedentBlock(d.nested)))
	d.nested = nil
	d.state = stateRoot
}

func (d *yamlDecoder) finish() {
	for d.state != stateRoot {
		switch d.state {
		case stateInMultiline:
			d.closeMultiline()
		case stateInArray:
			d.closeArray()
		case stateInMapping:
			d.closeMapping()
		case statePending:
			d.result.set(d.key, scalar{v: ""})
			d.state = stateRoot
		}
	}
}

func splitKeyValue(s string) (string, string, bool) {
	m := keyValueRe.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	key := m[1] + m[2] + m[3]
	return key, strings.TrimSpace(m[4]), true
}

func isDash(trimmed string) bool {
	return trimmed == "-" || strings.HasPrefix(trimmed, "- ")
}

func isBlockIndicator(v string) bool {
	switch v {
	case "|", "|-", "|+", ">", ">-", ">+":
		return true
	}
	return false
}

// coerce types a plain value: quoted string, then true/false, then number,
// else the raw text.
func coerce(raw string) value {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 {
		switch {
		case raw[0] == '"' && raw[len(raw)-1] == '"':
			return scalar{v: unescapeDouble(raw[1 : len(raw)-1])}
		case raw[0] == '\'' && raw[len(raw)-1] == '\'':
			return scalar{v: strings.ReplaceAll(raw[1:len(raw)-1], "''", "'")}
		}
	}
	switch raw {
	case "true":
		return scalar{v: true}
	case "false":
		return scalar{v: false}
	}
	if numberRe.MatchString(raw) {
		if f, ok := asFloat(scalar{v: raw}); ok {
			return scalar{v: f}
		}
	}
	return scalar{v: raw}
}

func unescapeDouble(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '"', '\\':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		if r != ' ' && r != '\t' {
			break
		}
		n++
	}
	return n
}

func dedent(line string, n int) string {
	i := indentOf(line)
	if i > n {
		i = n
	}
	return line[i:]
}

func dedentBlock(lines []string) string {
	least := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if i := indentOf(l); least < 0 || i < least {
			least = i
		}
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		if least > 0 {
			out[i] = dedent(l, least)
		} else {
			out[i] = l
		}
	}
	return strings.Join(out, "\n")
}
