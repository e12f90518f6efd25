package registry

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"api-conformance/internal/types"
)

var paramName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// segment is either a literal run of path text or a named placeholder.
type segment struct {
	literal string
	param   string
}

// PathTemplate is a parsed endpoint path such as /orders/{orderId}/notes/{noteId}.
type PathTemplate struct {
	raw      string
	segments []segment
}

// ParseTemplate splits raw into literal and placeholder segments.
// Template-literal leftovers like "${this.baseURL}" are rejected rather than
// sent to the backend as a literal path.
func ParseTemplate(raw string) (*PathTemplate, error) {
	if strings.Contains(raw, "${") {
		return nil, fmt.Errorf("%w: %q contains an unresolved ${...} expression", types.ErrMalformedTemplate, raw)
	}
	if !strings.HasPrefix(raw, "/") {
		return nil, fmt.Errorf("%w: %q must start with /", types.ErrMalformedTemplate, raw)
	}
	if strings.Contains(raw, "//") {
		return nil, fmt.Errorf("%w: %q contains an empty path segment", types.ErrMalformedTemplate, raw)
	}

	t := &PathTemplate{raw: raw}
	rest := raw
	for rest != "" {
		lb := strings.IndexByte(rest, '{')
		rb := strings.IndexByte(rest, '}')
		if lb == -1 {
			if rb != -1 {
				return nil, fmt.Errorf("%w: %q has an unmatched }", types.ErrMalformedTemplate, raw)
			}
			t.segments = append(t.segments, segment{literal: rest})
			break
		}
		if rb != -1 && rb < lb {
			return nil, fmt.Errorf("%w: %q has an unmatched }", types.ErrMalformedTemplate, raw)
		}
		if lb > 0 {
			t.segments = append(t.segments, segment{literal: rest[:lb]})
		}
		end := strings.IndexByte(rest[lb:], '}')
		if end == -1 {
			return nil, fmt.Errorf("%w: %q has an unmatched {", types.ErrMalformedTemplate, raw)
		}
		name := rest[lb+1 : lb+end]
		if !paramName.MatchString(name) {
			return nil, fmt.Errorf("%w: %q has invalid parameter name %q", types.ErrMalformedTemplate, raw, name)
		}
		t.segments = append(t.segments, segment{param: name})
		rest = rest[lb+end+1:]
	}
	return t, nil
}

// MustParseTemplate is ParseTemplate for templates known at compile time.
func MustParseTemplate(raw string) *PathTemplate {
	t, err := ParseTemplate(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the template as written.
func (t *PathTemplate) String() string {
	return t.raw
}

// Params lists placeholder names in order of appearance. Repeated names appear
// once.
func (t *PathTemplate) Params() []string {
	var names []string
	seen := make(map[string]bool)
	for _, s := range t.segments {
		if s.param != "" && !seen[s.param] {
			seen[s.param] = true
			names = append(names, s.param)
		}
	}
	return names
}

// Resolve substitutes every placeholder from params. A placeholder with no entry
// (or an empty one) is an error.
func (t *PathTemplate) Resolve(params map[string]string) (string, error) {
	var b strings.Builder
	for _, s := range t.segments {
		if s.param == "" {
			b.WriteString(s.literal)
			continue
		}
		v, ok := params[s.param]
		if !ok || v == "" {
			return "", fmt.Errorf("%w: %q in %s", types.ErrMissingParam, s.param, t.raw)
		}
		b.WriteString(url.PathEscape(v))
	}
	return b.String(), nil
}

// Resolve parses the endpoint's template and fills each placeholder from the
// endpoint's params, defaulting to the sentinel.
func Resolve(e types.EndpointSpec) (string, error) {
	t, err := ParseTemplate(e.Path)
	if err != nil {
		return "", err
	}
	params := make(map[string]string)
	for _, name := range t.Params() {
		params[name] = e.Param(name)
	}
	return t.Resolve(params)
}
