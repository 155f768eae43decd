package filter

import (
	"fmt"

	"github.com/gobwas/glob"
)

// PatternFilter decides whether a path relative to the watch root is
// interesting. Exclude patterns win over includes; an empty include set
// matches everything. Wildcards cross path separators, so "*.rs" matches
// "src/main.rs".
type PatternFilter struct {
	includes []compiledPattern
	excludes []compiledPattern
}

type compiledPattern struct {
	source   string
	variants []glob.Glob
}

func New(includes, excludes []string) (*PatternFilter, error) {
	compiledIncludes, err := compilePatterns(includes)
	if err != nil {
		return nil, fmt.Errorf("invalid include pattern: %w", err)
	}
	compiledExcludes, err := compilePatterns(excludes)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude pattern: %w", err)
	}
	return &PatternFilter{
		includes: compiledIncludes,
		excludes: compiledExcludes,
	}, nil
}

// Matches reports whether the slash-separated relative path passes the
// filter chain.
func (filter *PatternFilter) Matches(relPath string) bool {
	if filter == nil {
		return true
	}
	for _, pattern := range filter.excludes {
		if pattern.matches(relPath) {
			return false
		}
	}
	if len(filter.includes) == 0 {
		return true
	}
	for _, pattern := range filter.includes {
		if pattern.matches(relPath) {
			return true
		}
	}
	return false
}

func (filter *PatternFilter) IncludeCount() int {
	if filter == nil {
		return 0
	}
	return len(filter.includes)
}

func (filter *PatternFilter) ExcludeCount() int {
	if filter == nil {
		return 0
	}
	return len(filter.excludes)
}

func (pattern compiledPattern) matches(relPath string) bool {
	for _, variant := range pattern.variants {
		if variant.Match(relPath) {
			return true
		}
	}
	return false
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		entry := compiledPattern{source: pattern}
		for _, variant := range expandGlobstars(pattern) {
			matcher, err := glob.Compile(variant)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", pattern, err)
			}
			entry.variants = append(entry.variants, matcher)
		}
		compiled = append(compiled, entry)
	}
	return compiled, nil
}
