package hostconfig

import (
	"encoding/json"
)

// concatKeys are the array-valued keys merged by concatenation.
var concatKeys = map[string]bool{
	"plugin":       true,
	"instructions": true,
}

// Merge returns src merged over dst. Neither input is modified.
func Merge(dst, src any) any {
	dm, dok := dst.(map[string]any)
	sm, sok := src.(map[string]any)
	if dok && sok {
		return mergeObjects(dm, sm)
	}
	return clone(src)
}

// MergeObjects is Merge specialised to objects.
func MergeObjects(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	return mergeObjects(dst, src)
}

func mergeObjects(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = clone(v)
	}
	for k, sv := range src {
		dv, exists := out[k]
		if !exists {
			out[k] = clone(sv)
			continue
		}
		if concatKeys[k] {
			da, dok := dv.([]any)
			sa, sok := sv.([]any)
			if dok && sok {
				out[k] = Dedup(append(da, sa...))
				continue
			}
		}
		out[k] = Merge(dv, sv)
	}
	return out
}

// Dedup removes repeated values, keeping first occurrences in order.
func Dedup(values []any) []any {
	seen := make(map[string]bool, len(values))
	out := make([]any, 0, len(values))
	for _, v := range values {
		k := key(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, clone(v))
	}
	return out
}

func key(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = clone(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = clone(e)
		}
		return s
	default:
		return v
	}
}

// Strings converts a string slice to a generic array.
func Strings(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// ToValue round-trips v through JSON into a generic value.
func ToValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
