package parser

import (
	"sort"
	"strconv"
)

// value is the intermediate decode result shared by the JSON and YAML
// decoders: a scalar, a sequence or a mapping.
type value interface {
	isValue()
}

// scalar holds a string, bool, float64 or nil.
type scalar struct {
	v any
}

type sequence []value

// mapping keeps keys in insertion order so emitted metadata is stable.
type mapping struct {
	keys   []string
	fields map[string]value
}

func (scalar) isValue()   {}
func (sequence) isValue() {}
func (*mapping) isValue() {}

func newMapping() *mapping {
	return &mapping{fields: make(map[string]value)}
}

func (m *mapping) set(key string, v value) {
	if _, ok := m.fields[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.fields[key] = v
}

func (m *mapping) get(key string) (value, bool) {
	v, ok := m.fields[key]
	return v, ok
}

func (m *mapping) len() int { return len(m.keys) }

// fromJSON converts the output of encoding/json into a value tree.
func fromJSON(v any) value {
	switch t := v.(type) {
	case map[string]any:
		m := newMapping()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m.set(k, fromJSON(t[k]))
		}
		return m
	case []any:
		seq := make(sequence, 0, len(t))
		for _, item := range t {
			seq = append(seq, fromJSON(item))
		}
		return seq
	default:
		return scalar{v: t}
	}
}

// toAny is the inverse of fromJSON, used for opaque metadata passthrough.
func toAny(v value) any {
	switch t := v.(type) {
	case *mapping:
		out := make(map[string]any, t.len())
		for _, k := range t.keys {
			out[k] = toAny(t.fields[k])
		}
		return out
	case sequence:
		out := make([]any, 0, len(t))
		for _, item := range t {
			out = append(out, toAny(item))
		}
		return out
	case scalar:
		return t.v
	}
	return nil
}

// asText stringifies a scalar. Collections are not text.
func asText(v value) (string, bool) {
	s, ok := v.(scalar)
	if !ok {
		return "", false
	}
	switch t := s.v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	}
	return "", false
}

func asString(v value) (string, bool) {
	s, ok := v.(scalar)
	if !ok {
		return "", false
	}
	str, ok := s.v.(string)
	return str, ok
}

func asFloat(v value) (float64, bool) {
	s, ok := v.(scalar)
	if !ok {
		return 0, false
	}
	switch t := s.v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}

func asBool(v value) (bool, bool) {
	s, ok := v.(scalar)
	if !ok {
		return false, false
	}
	switch t := s.v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(t)
		return b, err == nil
	}
	return false, false
}
