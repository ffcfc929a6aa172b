package cache

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mqtt-tools/hivemq-tui/internal/resource"
)

// MatchMode selects how a filter pattern is compared with a value.
type MatchMode int

const (
	// MatchSubstring matches when the pattern occurs anywhere in the value.
	MatchSubstring MatchMode = iota
	// MatchRegex matches when the RE2 pattern finds a match in the value.
	MatchRegex
)

func (m MatchMode) String() string {
	if m == MatchRegex {
		return "regex"
	}
	return "substring"
}

// ParseMatchMode maps "substring" and "regex" to a MatchMode.
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "substring", "contains":
		return MatchSubstring, nil
	case "regex", "regexp":
		return MatchRegex, nil
	default:
		return MatchSubstring, fmt.Errorf("unknown filter mode %q", s)
	}
}

// MatchOptions configures NewMatcher.
type MatchOptions struct {
	Mode          MatchMode
	CaseSensitive bool
}

// Matcher decides whether a value's text satisfies a filter pattern.
type Matcher struct {
	pattern string
	opts    MatchOptions
	re      *regexp.Regexp
}

// NewMatcher compiles pattern. An empty pattern matches every value.
func NewMatcher(pattern string, opts MatchOptions) (Matcher, error) {
	m := Matcher{pattern: pattern, opts: opts}
	if pattern == "" {
		return m, nil
	}
	switch opts.Mode {
	case MatchRegex:
		expr := pattern
		if !opts.CaseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return Matcher{}, fmt.Errorf("%w: %v", resource.ErrInvalidFilter, err)
		}
		m.re = re
	default:
		if !opts.CaseSensitive {
			m.pattern = strings.ToLower(pattern)
		}
	}
	return m, nil
}

// MatchAll reports whether the matcher accepts everything.
func (m Matcher) MatchAll() bool {
	return m.pattern == ""
}

// Match reports whether value satisfies the pattern.
func (m Matcher) Match(value string) bool {
	if m.pattern == "" {
		return true
	}
	if m.re != nil {
		return m.re.MatchString(value)
	}
	if !m.opts.CaseSensitive {
		value = strings.ToLower(value)
	}
	return strings.Contains(value, m.pattern)
}
