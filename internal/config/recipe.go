package config

import "fmt"

// Name returns the component's symbolic name, or "" if missing.
func (c Component) Name() string {
	name, _ := c["name"].(string)
	return name
}

// Params returns a deep copy of the entry without its name.
func (c Component) Params() map[string]any {
	params := CloneMap(c)
	delete(params, "name")
	return params
}

// normalize rewrites mappings with non-string keys, which YAML allows, into
// string-keyed maps so every recipe value can be copied and JSON-encoded.
func (r *Recipe) normalize() {
	for _, entries := range [][]Component{r.Pipeline, r.Policies} {
		for _, c := range entries {
			for k, v := range c {
				c[k] = normalizeValue(v)
			}
		}
	}
}

func normalizeValue(v any) any {
	switch v := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[fmt.Sprint(k)] = normalizeValue(item)
		}
		return out
	case map[string]any:
		for k, item := range v {
			v[k] = normalizeValue(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = normalizeValue(item)
		}
		return v
	default:
		return v
	}
}

// Validate checks that every entry carries a string name.
func (r *Recipe) Validate() error {
	for i, c := range r.Pipeline {
		if c.Name() == "" {
			return fmt.Errorf("pipeline entry %d: missing name", i)
		}
	}
	for i, c := range r.Policies {
		if c.Name() == "" {
			return fmt.Errorf("policies entry %d: missing name", i)
		}
	}
	return nil
}

// CloneMap deep-copies a configuration mapping. Nested maps and slices are
// copied; scalar values are shared.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return CloneMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), v...)
	default:
		return v
	}
}
