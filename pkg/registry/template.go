package registry

import (
	"fmt"
	"strings"
)

// Template is a parsed URI or name pattern made of literal segments and
// {param} placeholders, separated by '/'.
type Template struct {
	raw      string
	segments []segment
	nparams  int
}

type segment struct {
	literal string
	param   string // non-empty for placeholder segments
}

// ParseTemplate parses a pattern such as "logs://{date}/{level}" or
// "review/{style}". Placeholder names must be non-empty and unique within
// the pattern.
func ParseTemplate(raw string) (*Template, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty template")
	}

	parts := strings.Split(raw, "/")
	t := &Template{raw: raw, segments: make([]segment, 0, len(parts))}
	seen := make(map[string]bool)

	for _, part := range parts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			name := part[1 : len(part)-1]
			if name == "" {
				return nil, fmt.Errorf("template %q: empty placeholder name", raw)
			}
			if seen[name] {
				return nil, fmt.Errorf("template %q: duplicate placeholder %q", raw, name)
			}
			seen[name] = true
			t.segments = append(t.segments, segment{param: name})
			t.nparams++
			continue
		}
		if strings.ContainsAny(part, "{}") {
			return nil, fmt.Errorf("template %q: malformed segment %q", raw, part)
		}
		t.segments = append(t.segments, segment{literal: part})
	}

	return t, nil
}

// Raw returns the original pattern string
func (t *Template) Raw() string {
	return t.raw
}

// NumParams returns the number of placeholder segments
func (t *Template) NumParams() int {
	return t.nparams
}

// Match splits the candidate on '/' and matches it segment-wise against the
// pattern: a literal segment must match exactly, a placeholder segment
// matches any non-empty segment and binds its value. It returns the bindings
// and whether the candidate matched.
func (t *Template) Match(candidate string) (map[string]string, bool) {
	parts := strings.Split(candidate, "/")
	if len(parts) != len(t.segments) {
		return nil, false
	}

	bindings := make(map[string]string, t.nparams)
	for idx, seg := range t.segments {
		if seg.param != "" {
			if parts[idx] == "" {
				return nil, false
			}
			bindings[seg.param] = parts[idx]
			continue
		}
		if parts[idx] != seg.literal {
			return nil, false
		}
	}

	return bindings, true
}
