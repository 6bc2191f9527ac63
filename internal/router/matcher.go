package router

import (
	"fmt"
	"regexp"
	"strings"
)

// PathMatcher is the interface for path matching.
type PathMatcher interface {
	Match(path string) (bool, map[string]string)
	Type() string
	Pattern() string
}

// ExactMatcher matches exact paths.
type ExactMatcher struct {
	path string
}

// NewExactMatcher creates a new exact path matcher.
func NewExactMatcher(path string) *ExactMatcher {
	return &ExactMatcher{path: path}
}

// Match checks if the path matches exactly.
func (m *ExactMatcher) Match(path string) (matched bool, params map[string]string) {
	return path == m.path, nil
}

// Type returns the matcher type.
func (m *ExactMatcher) Type() string {
	return "exact"
}

// Pattern returns the pattern.
func (m *ExactMatcher) Pattern() string {
	return m.path
}

// PrefixMatcher matches path prefixes. The comparison is a plain string
// prefix test: "/users" matches "/users", "/users/7" and "/usersettings".
type PrefixMatcher struct {
	prefix string
}

// NewPrefixMatcher creates a new prefix path matcher.
func NewPrefixMatcher(prefix string) *PrefixMatcher {
	return &PrefixMatcher{prefix: prefix}
}

// Match checks if the path starts with the prefix.
func (m *PrefixMatcher) Match(path string) (matched bool, params map[string]string) {
	return strings.HasPrefix(path, m.prefix), nil
}

// Type returns the matcher type.
func (m *PrefixMatcher) Type() string {
	return "prefix"
}

// Pattern returns the pattern.
func (m *PrefixMatcher) Pattern() string {
	return m.prefix
}

// ParameterMatcher matches paths with parameters like /users/{id}.
// A parameter matches exactly one non-empty path segment.
type ParameterMatcher struct {
	pattern  string
	segments []segment
	regex    *regexp.Regexp
}

type segment struct {
	value     string
	isParam   bool
	paramName string
}

// paramNamePattern restricts parameter names to valid capture group names.
var paramNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// NewParameterMatcher creates a new parameter path matcher.
func NewParameterMatcher(pattern string) (*ParameterMatcher, error) {
	segments, err := parsePathPattern(pattern)
	if err != nil {
		return nil, err
	}

	var regexPattern strings.Builder
	regexPattern.WriteString("^")

	for _, seg := range segments {
		if seg.isParam {
			regexPattern.WriteString("/(?P<")
			regexPattern.WriteString(seg.paramName)
			regexPattern.WriteString(">[^/]+)")
		} else {
			regexPattern.WriteString("/")
			regexPattern.WriteString(regexp.QuoteMeta(seg.value))
		}
	}
	regexPattern.WriteString("$")

	regex, err := regexp.Compile(regexPattern.String())
	if err != nil {
		return nil, err
	}

	return &ParameterMatcher{
		pattern:  pattern,
		segments: segments,
		regex:    regex,
	}, nil
}

// parsePathPattern parses a path pattern into segments.
func parsePathPattern(pattern string) ([]segment, error) {
	parts := strings.Split(strings.Trim(pattern, "/"), "/")
	segments := make([]segment, 0, len(parts))
	seen := make(map[string]bool)

	for _, part := range parts {
		if part == "" {
			continue
		}

		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			paramName := part[1 : len(part)-1]
			if !paramNamePattern.MatchString(paramName) {
				return nil, fmt.Errorf("invalid parameter name %q in pattern %s", paramName, pattern)
			}
			if seen[paramName] {
				return nil, fmt.Errorf("duplicate parameter name %q in pattern %s", paramName, pattern)
			}
			seen[paramName] = true
			segments = append(segments, segment{
				value:     part,
				isParam:   true,
				paramName: paramName,
			})
			continue
		}

		if strings.ContainsAny(part, "{}") {
			return nil, fmt.Errorf("malformed parameter segment %q in pattern %s", part, pattern)
		}
		segments = append(segments, segment{value: part})
	}

	return segments, nil
}

// Match checks if the path matches the pattern and extracts parameters.
func (m *ParameterMatcher) Match(path string) (matched bool, params map[string]string) {
	matches := m.regex.FindStringSubmatch(path)
	if matches == nil {
		return false, nil
	}

	params = make(map[string]string)
	for i, name := range m.regex.SubexpNames() {
		if i > 0 && name != "" && i < len(matches) {
			params[name] = matches[i]
		}
	}

	return true, params
}

// Type returns the matcher type.
func (m *ParameterMatcher) Type() string {
	return "parameter"
}

// Pattern returns the pattern.
func (m *ParameterMatcher) Pattern() string {
	return m.pattern
}

// literalSegments returns the number of non-parameter segments.
func (m *ParameterMatcher) literalSegments() int {
	n := 0
	for _, seg := range m.segments {
		if !seg.isParam {
			n++
		}
	}
	return n
}

// couldStartWith reports whether some path matched by m starts with prefix.
func (m *ParameterMatcher) couldStartWith(prefix string) bool {
	if !strings.HasPrefix(prefix, "/") {
		return false
	}

	parts := strings.Split(prefix[1:], "/")
	if len(parts) > len(m.segments) {
		return false
	}

	for i, part := range parts {
		last := i == len(parts)-1
		seg := m.segments[i]

		if seg.isParam {
			// A parameter segment cannot be empty unless the prefix ends here.
			if part == "" && !last {
				return false
			}
			continue
		}

		if last {
			if !strings.HasPrefix(seg.value, part) {
				return false
			}
			continue
		}
		if part != seg.value {
			return false
		}
	}

	return true
}

// intersects reports whether some path is matched by both parameter matchers.
func (m *ParameterMatcher) intersects(other *ParameterMatcher) bool {
	if len(m.segments) != len(other.segments) {
		return false
	}
	for i, seg := range m.segments {
		o := other.segments[i]
		if seg.isParam || o.isParam {
			continue
		}
		if seg.value != o.value {
			return false
		}
	}
	return true
}

// HasPathParameters checks if a path contains parameters.
func HasPathParameters(path string) bool {
	return strings.Contains(path, "{") && strings.Contains(path, "}")
}

// CreatePathMatcher creates a path matcher for a pattern and mode.
// Parameters are only supported in exact mode.
func CreatePathMatcher(pattern string, mode MatchMode) (PathMatcher, error) {
	switch mode {
	case MatchExact:
		if HasPathParameters(pattern) {
			return NewParameterMatcher(pattern)
		}
		if strings.ContainsAny(pattern, "{}") {
			return nil, fmt.Errorf("malformed parameter in pattern %s", pattern)
		}
		return NewExactMatcher(pattern), nil
	case MatchPrefix:
		if strings.ContainsAny(pattern, "{}") {
			return nil, fmt.Errorf("prefix pattern %s cannot contain parameters", pattern)
		}
		return NewPrefixMatcher(pattern), nil
	default:
		return nil, fmt.Errorf("unsupported match mode: %s", mode)
	}
}

// matchersOverlap reports whether some URI path is matched by both matchers.
func matchersOverlap(a, b PathMatcher) bool {
	switch x := a.(type) {
	case *ExactMatcher:
		matched, _ := b.Match(x.path)
		return matched
	case *PrefixMatcher:
		switch y := b.(type) {
		case *ExactMatcher:
			return strings.HasPrefix(y.path, x.prefix)
		case *PrefixMatcher:
			return strings.HasPrefix(x.prefix, y.prefix) || strings.HasPrefix(y.prefix, x.prefix)
		case *ParameterMatcher:
			return y.couldStartWith(x.prefix)
		}
	case *ParameterMatcher:
		switch y := b.(type) {
		case *ExactMatcher:
			matched, _ := x.Match(y.path)
			return matched
		case *PrefixMatcher:
			return x.couldStartWith(y.prefix)
		case *ParameterMatcher:
			return x.intersects(y)
		}
	}
	return false
}
