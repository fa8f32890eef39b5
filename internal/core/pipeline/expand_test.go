package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Expand Tests
// =============================================================================

func TestExpand_TableDriven(t *testing.T) {
	vars := map[string]string{"APP": "site", "BUILD_NUMBER": "42"}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "no placeholder", in: "plain", want: "plain"},
		{name: "empty", in: "", want: ""},
		{name: "single", in: "${APP}", want: "site"},
		{name: "embedded", in: "app-${BUILD_NUMBER}-release", want: "app-42-release"},
		{name: "multiple", in: "${APP}:${BUILD_NUMBER}", want: "site:42"},
		{name: "default used", in: "${PORT:-8080}", want: "8080"},
		{name: "default ignored when set", in: "${APP:-other}", want: "site"},
		{name: "empty default", in: "${PORT:-}", want: ""},
		{name: "missing no default stays", in: "${MISSING}", want: "${MISSING}"},
		{name: "dollar without brace", in: "$APP", want: "$APP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Expand(tt.in, vars))
		})
	}
}

func TestExpand_NilVars(t *testing.T) {
	assert.Equal(t, "${X}", Expand("${X}", nil))
	assert.Equal(t, "def", Expand("${X:-def}", nil))
}

// =============================================================================
// Variable Map Helpers
// =============================================================================

func TestMergeVars_LaterWins(t *testing.T) {
	merged := MergeVars(
		map[string]string{"A": "1", "B": "1"},
		map[string]string{"B": "2", "C": "2"},
	)
	assert.Equal(t, map[string]string{"A": "1", "B": "2", "C": "2"}, merged)
}

func TestEnvironToVars(t *testing.T) {
	vars := EnvironToVars([]string{"PATH=/usr/bin", "EMPTY=", "MALFORMED", "X=a=b"})
	assert.Equal(t, "/usr/bin", vars["PATH"])
	assert.Equal(t, "", vars["EMPTY"])
	assert.Equal(t, "a=b", vars["X"])
	assert.NotContains(t, vars, "MALFORMED")
}

// =============================================================================
// Naming Tests
// =============================================================================

func TestRepositoryName(t *testing.T) {
	assert.Equal(t, "site", RepositoryName("https://github.com/acme/site.git"))
	assert.Equal(t, "site", RepositoryName("git@github.com:acme/site.git"))
	assert.Equal(t, "site", RepositoryName("https://github.com/acme/site"))
	assert.Equal(t, "site", RepositoryName("site.git"))
}

func TestSanitizeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"My App", "my-app"},
		{"web_1", "web_1"},
		{"--flags--", "flags"},
		{"a..b", "a.b"},
		{"Site (staging)", "site-staging"},
		{"UPPER", "upper"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeName(tt.in), "input %q", tt.in)
	}
}
