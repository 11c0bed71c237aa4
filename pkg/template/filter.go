package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/praetorian-inc/gosek/pkg/types"
)

// FilterConfig specifies include and exclude patterns for template filtering.
type FilterConfig struct {
	Include []string // Regex patterns - only matching templates included
	Exclude []string // Regex patterns - matching templates excluded
}

// ParsePatterns splits a comma-separated string into individual patterns.
// Patterns are trimmed of whitespace.
func ParsePatterns(patterns string) []string {
	if patterns == "" {
		return []string{}
	}

	parts := strings.Split(patterns, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Filter applies include and exclude patterns to templates. A template is
// selected by a pattern when the pattern matches its name or its ID.
// Include is applied first, then exclude. Empty include means "include all".
// Returns error if any pattern is invalid regex.
func Filter(templates []types.Template, config FilterConfig) ([]types.Template, error) {
	if len(templates) == 0 {
		return templates, nil
	}

	includeRegexes, err := compileAll(config.Include)
	if err != nil {
		return nil, err
	}
	excludeRegexes, err := compileAll(config.Exclude)
	if err != nil {
		return nil, err
	}

	filtered := templates
	if len(includeRegexes) > 0 {
		filtered = keep(filtered, func(t types.Template) bool { return matchesAny(t, includeRegexes) })
	}
	if len(excludeRegexes) > 0 {
		filtered = keep(filtered, func(t types.Template) bool { return !matchesAny(t, excludeRegexes) })
	}

	return filtered, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	var out []*regexp.Regexp
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, &types.ConfigError{Field: "filter", Err: fmt.Errorf("invalid regex pattern %q: %w", pattern, err)}
		}
		out = append(out, re)
	}
	return out, nil
}

func keep(templates []types.Template, pred func(types.Template) bool) []types.Template {
	result := make([]types.Template, 0, len(templates))
	for _, t := range templates {
		if pred(t) {
			result = append(result, t)
		}
	}
	return result
}

func matchesAny(t types.Template, regexes []*regexp.Regexp) bool {
	for _, re := range regexes {
		if re.MatchString(t.Name) || (t.ID != "" && re.MatchString(t.ID)) {
			return true
		}
	}
	return false
}
