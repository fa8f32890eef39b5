package pipeline

import "strings"

// =============================================================================
// Naming Helpers
// =============================================================================

// RepositoryName extracts the bare repository name from a clone URL.
//
// Example:
//
//	RepositoryName("https://github.com/acme/site.git") // "site"
//	RepositoryName("git@github.com:acme/site.git")     // "site"
func RepositoryName(url string) string {
	name := strings.TrimSuffix(url, "/")
	if i := strings.LastIndexAny(name, "/:"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, ".git")
}

// SanitizeName converts an arbitrary string to a valid container name:
// lowercase, with every run of characters outside [a-z0-9_.-] collapsed to
// one "-" and leading separators trimmed.
func SanitizeName(raw string) string {
	var b strings.Builder
	lastDash := true // trims leading separators
	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			if r == '-' || r == '.' || r == '_' {
				if lastDash {
					continue
				}
				lastDash = true
			} else {
				lastDash = false
			}
			b.WriteRune(r)
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-._")
}
