package expr

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
)

// placeholder matches {{state.path}} with optional inner whitespace.
var placeholder = regexp.MustCompile(`\{\{\s*(state(?:\.[A-Za-z0-9_\-]+)*)\s*\}\}`)

// Render substitutes every {{state.path}} placeholder in tmpl with the value
// found in view. Strings are inserted verbatim, other values as JSON.
// Unresolved placeholders render as the empty string.
func Render(tmpl string, view map[string]any) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(match string) string {
		path := placeholder.FindStringSubmatch(match)[1]
		v, ok := domain.LookupPath(view, path)
		if !ok || v == nil {
			return ""
		}
		return Stringify(v)
	})
}

// Placeholders returns the paths referenced by tmpl, in order of appearance.
func Placeholders(tmpl string) []string {
	matches := placeholder.FindAllStringSubmatch(tmpl, -1)
	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, m[1])
	}
	return paths
}

// RenderValue substitutes placeholders inside an arbitrary JSON-like value.
// A string consisting of exactly one placeholder is replaced by the raw
// referenced value so that numbers and objects keep their type.
func RenderValue(v any, view map[string]any) any {
	switch val := v.(type) {
	case string:
		trimmed := strings.TrimSpace(val)
		if loc := placeholder.FindStringSubmatchIndex(trimmed); loc != nil && loc[0] == 0 && loc[1] == len(trimmed) {
			if resolved, ok := domain.LookupPath(view, trimmed[loc[2]:loc[3]]); ok {
				return resolved
			}
			return nil
		}
		return Render(val, view)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = RenderValue(item, view)
		}
		return out
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			out = append(out, RenderValue(item, view))
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(val))
		for k, item := range val {
			out[k] = Render(item, view)
		}
		return out
	}
	return v
}

// Stringify renders a state value for insertion into text.
func Stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
