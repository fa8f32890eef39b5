package pipeline

import (
	"regexp"
	"strings"
)

// =============================================================================
// Variable Expansion
// =============================================================================

// placeholderRe matches ${VAR} and ${VAR:-default}.
var placeholderRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*)?\}`)

// Expand replaces ${VAR} and ${VAR:-default} placeholders in s with values
// from vars. A ${VAR} with no value and no default is left as written so the
// problem is visible downstream instead of silently becoming empty.
//
// Example:
//
//	Expand("app-${BUILD_NUMBER}", map[string]string{"BUILD_NUMBER": "42"}) // "app-42"
//	Expand("${PORT:-8080}", nil)                                          // "8080"
//	Expand("${MISSING}", nil)                                             // "${MISSING}"
func Expand(s string, vars map[string]string) string {
	if s == "" || !strings.Contains(s, "${") {
		return s
	}
	return placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		groups := placeholderRe.FindStringSubmatch(match)
		name, def := groups[1], groups[2]
		if v, ok := vars[name]; ok {
			return v
		}
		if def != "" {
			return strings.TrimPrefix(def, ":-")
		}
		return match
	})
}

// MergeVars layers variable maps left to right, later maps winning. Used to
// stack process environment under pipeline-level env.
func MergeVars(maps ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// EnvironToVars converts os.Environ-style "KEY=VALUE" strings to a map.
func EnvironToVars(environ []string) map[string]string {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			vars[k] = v
		}
	}
	return vars
}
