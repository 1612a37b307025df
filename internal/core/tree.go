package core

import (
	"encoding/json"
	"maps"
	"math"
	"slices"
	"sort"
	"strconv"
)

// Tree is the generic parsed form of a manifest: nested mappings,
// sequences and scalars as produced by a JSON, YAML or CBOR parser.
type Tree = map[string]any

// DecodeOptions controls how a decoder treats the input tree.
type DecodeOptions struct {
	// ZeroCopy converts the string lists and string maps of the input
	// tree in place and lets the decoded entity share them: a change to
	// either afterwards shows in the other.
	ZeroCopy bool
}

func joinPath(path string, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func indexPath(path string, index int) string {
	return path + "[" + strconv.Itoa(index) + "]"
}

func asMap(value any, path string) (map[string]any, error) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, nil
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			name, ok := key.(string)
			if !ok {
				return nil, invalidf("%s: expected string keys, got %T", path, key)
			}
			out[name] = item
		}
		return out, nil
	default:
		return nil, invalidf("%s: expected mapping, got %T", path, value)
	}
}

func childMap(m map[string]any, path string, key string) (map[string]any, error) {
	value, ok := m[key]
	if !ok {
		return nil, invalidf("%s: missing required key", joinPath(path, key))
	}
	return asMap(value, joinPath(path, key))
}

func optChildMap(m map[string]any, path string, key string) (map[string]any, bool, error) {
	value, ok := m[key]
	if !ok || value == nil {
		return nil, false, nil
	}
	out, err := asMap(value, joinPath(path, key))
	return out, err == nil, err
}

func reqString(m map[string]any, path string, key string) (string, error) {
	value, ok := m[key]
	if !ok {
		return "", invalidf("%s: missing required key", joinPath(path, key))
	}
	text, ok := value.(string)
	if !ok {
		return "", invalidf("%s: expected string, got %T", joinPath(path, key), value)
	}
	return text, nil
}

// optString returns "" for an absent or null key.
func optString(m map[string]any, path string, key string) (string, error) {
	value, ok := m[key]
	if !ok || value == nil {
		return "", nil
	}
	text, ok := value.(string)
	if !ok {
		return "", invalidf("%s: expected string, got %T", joinPath(path, key), value)
	}
	return text, nil
}

func optBool(m map[string]any, path string, key string, fallback bool) (bool, error) {
	value, ok := m[key]
	if !ok || value == nil {
		return fallback, nil
	}
	flag, ok := value.(bool)
	if !ok {
		return false, invalidf("%s: expected boolean, got %T", joinPath(path, key), value)
	}
	return flag, nil
}

func reqInt(m map[string]any, path string, key string) (int64, error) {
	value, ok := m[key]
	if !ok {
		return 0, invalidf("%s: missing required key", joinPath(path, key))
	}
	number, ok := asInt(value)
	if !ok {
		return 0, invalidf("%s: expected integer, got %T", joinPath(path, key), value)
	}
	return number, nil
}

// optInt returns nil for an absent or null key.
func optInt(m map[string]any, path string, key string) (*int64, error) {
	value, ok := m[key]
	if !ok || value == nil {
		return nil, nil
	}
	number, ok := asInt(value)
	if !ok {
		return nil, invalidf("%s: expected integer, got %T", joinPath(path, key), value)
	}
	return &number, nil
}

func asInt(value any) (int64, bool) {
	switch typed := value.(type) {
	case int:
		return int64(typed), true
	case int8:
		return int64(typed), true
	case int16:
		return int64(typed), true
	case int32:
		return int64(typed), true
	case int64:
		return typed, true
	case uint:
		return int64(typed), true
	case uint8:
		return int64(typed), true
	case uint16:
		return int64(typed), true
	case uint32:
		return int64(typed), true
	case uint64:
		if typed > math.MaxInt64 {
			return 0, false
		}
		return int64(typed), true
	case float64:
		if typed != math.Trunc(typed) {
			return 0, false
		}
		return int64(typed), true
	case json.Number:
		number, err := typed.Int64()
		if err != nil {
			return 0, false
		}
		return number, true
	case string:
		// INI and hand-written manifests occasionally quote numbers.
		number, err := strconv.ParseInt(typed, 10, 64)
		if err != nil {
			return 0, false
		}
		return number, true
	default:
		return 0, false
	}
}

func asList(value any, path string) ([]any, error) {
	switch typed := value.(type) {
	case []any:
		return typed, nil
	case []string:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = item
		}
		return out, nil
	case []map[string]any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = item
		}
		return out, nil
	default:
		return nil, invalidf("%s: expected sequence, got %T", path, value)
	}
}

// stringList reads m[key] as a list of strings. With ZeroCopy the
// converted list replaces m[key], so the input tree and the decoded
// entity share one backing array.
func stringList(m map[string]any, at string, key string, opts DecodeOptions) ([]string, error) {
	path := joinPath(at, key)
	if typed, ok := m[key].([]string); ok {
		if opts.ZeroCopy {
			return typed, nil
		}
		return slices.Clone(typed), nil
	}
	items, err := asList(m[key], path)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		text, ok := item.(string)
		if !ok {
			return nil, invalidf("%s[%d]: expected string, got %T", path, i, item)
		}
		out = append(out, text)
	}
	if opts.ZeroCopy {
		m[key] = out
	}
	return out, nil
}

// stringMap reads m[key] as a string to string mapping, sharing it with
// the input tree under ZeroCopy like stringList.
func stringMap(m map[string]any, at string, key string, opts DecodeOptions) (map[string]string, error) {
	path := joinPath(at, key)
	if typed, ok := m[key].(map[string]string); ok {
		if opts.ZeroCopy {
			return typed, nil
		}
		return maps.Clone(typed), nil
	}
	raw, err := asMap(m[key], path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(raw))
	for name, item := range raw {
		text, ok := item.(string)
		if !ok {
			return nil, invalidf("%s: expected string, got %T", joinPath(path, name), item)
		}
		out[name] = text
	}
	if opts.ZeroCopy {
		m[key] = out
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}
