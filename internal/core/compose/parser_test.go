package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Parse Tests
// =============================================================================

const validCompose = `
services:
  web:
    image: nginx:1.27
    ports:
      - "8080:80"
  db:
    image: postgres:16
    volumes:
      - pgdata:/var/lib/postgresql/data
networks:
  edge: {}
volumes:
  pgdata: {}
`

func TestParse_Valid(t *testing.T) {
	summary, err := Parse(validCompose)
	require.NoError(t, err)

	assert.Equal(t, []string{"db", "web"}, summary.ServiceNames())
	assert.Equal(t, []string{"edge"}, summary.Networks)
	assert.Equal(t, []string{"pgdata"}, summary.Volumes)

	for _, svc := range summary.Services {
		if svc.Name == "web" {
			assert.Equal(t, "nginx:1.27", svc.Image)
		}
	}
}

func TestParse_EmptyInput(t *testing.T) {
	_, err := Parse("")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = Parse("   \n\t  ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse("services:\n  web:\n   image: [unclosed")
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestParse_NotAMapping(t *testing.T) {
	_, err := Parse("- just\n- a\n- list\n")
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestParse_NoServices(t *testing.T) {
	_, err := Parse("volumes:\n  data: {}\n")
	assert.Error(t, err)
}

func TestParse_ServiceWithBuildOnly(t *testing.T) {
	summary, err := Parse(`
services:
  app:
    build: .
`)
	require.NoError(t, err)
	require.Len(t, summary.Services, 1)
	assert.Equal(t, "app", summary.Services[0].Name)
	assert.Empty(t, summary.Services[0].Image)
}

func TestParse_Interpolation(t *testing.T) {
	summary, err := Parse(`
services:
  web:
    image: nginx:${NGINX_TAG:-1.27}
`)
	require.NoError(t, err)
	assert.Equal(t, "nginx:1.27", summary.Services[0].Image)
}

func TestParse_ServiceWithoutImageOrBuild(t *testing.T) {
	_, err := Parse(`
services:
  broken:
    restart: always
`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceNoImage)
}
