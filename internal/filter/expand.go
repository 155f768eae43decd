package filter

import "strings"

const maxPatternVariants = 64

// expandGlobstars rewrites a pattern into variants so that "**/" can also
// match zero path components. "src/**/*.rs" becomes both "src/**/*.rs" and
// "src/*.rs"; without the second variant the literal slash after "**" would
// never match "src/main.rs".
func expandGlobstars(pattern string) []string {
	variants := expandSuffix(pattern)
	if len(variants) > maxPatternVariants {
		variants = variants[:maxPatternVariants]
	}
	return variants
}

func expandSuffix(pattern string) []string {
	index := strings.Index(pattern, "**/")
	if index < 0 {
		return []string{pattern}
	}
	prefix := pattern[:index]
	tails := expandSuffix(pattern[index+len("**/"):])
	variants := make([]string, 0, len(tails)*2)
	for _, tail := range tails {
		variants = append(variants, prefix+"**/"+tail)
		variants = append(variants, prefix+tail)
	}
	return variants
}
