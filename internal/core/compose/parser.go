package compose

import (
	"context"
	"sort"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Parsing
// =============================================================================

// ServiceSummary is the part of a compose service the compose step reports
// before handing off to docker compose.
type ServiceSummary struct {
	Name  string
	Image string // empty when the service builds its image
}

// Summary describes a validated compose file.
type Summary struct {
	Services []ServiceSummary
	Networks []string
	Volumes  []string
}

// ServiceNames lists the service names, sorted.
func (s *Summary) ServiceNames() []string {
	names := make([]string, len(s.Services))
	for i, svc := range s.Services {
		names[i] = svc.Name
	}
	sort.Strings(names)
	return names
}

// Parse validates compose YAML and returns a summary of what docker compose
// will deploy. The deploy itself is the compose CLI's job; this gate exists
// so a broken file fails with a precise error before any containers move.
func Parse(yamlContent string) (*Summary, error) {
	if strings.TrimSpace(yamlContent) == "" {
		return nil, ErrEmptyInput
	}

	var dict map[string]interface{}
	if err := yaml.Unmarshal([]byte(yamlContent), &dict); err != nil || dict == nil {
		return nil, &ParseError{Message: "invalid YAML syntax", Err: ErrInvalidYAML}
	}

	project, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{Content: []byte(yamlContent), Config: dict},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName("deckhand", false)
		opts.SkipValidation = false
		opts.SkipInterpolation = false
		// In-memory content: nothing to resolve paths or extends against.
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		if strings.Contains(err.Error(), "image") && strings.Contains(err.Error(), "build") {
			return nil, &ParseError{Message: err.Error(), Err: ErrServiceNoImage}
		}
		return nil, &ParseError{Message: err.Error(), Err: ErrInvalidYAML}
	}

	if len(project.Services) == 0 {
		return nil, ErrNoServices
	}

	summary := &Summary{
		Services: make([]ServiceSummary, 0, len(project.Services)),
		Networks: make([]string, 0, len(project.Networks)),
		Volumes:  make([]string, 0, len(project.Volumes)),
	}
	for _, svc := range project.Services {
		if svc.Image == "" && svc.Build == nil {
			return nil, &ParseError{
				Field:   "services." + svc.Name,
				Message: "service must have image or build",
				Err:     ErrServiceNoImage,
			}
		}
		summary.Services = append(summary.Services, ServiceSummary{Name: svc.Name, Image: svc.Image})
	}
	sort.Slice(summary.Services, func(i, j int) bool { return summary.Services[i].Name < summary.Services[j].Name })
	for name := range project.Networks {
		summary.Networks = append(summary.Networks, name)
	}
	for name := range project.Volumes {
		summary.Volumes = append(summary.Volumes, name)
	}
	sort.Strings(summary.Networks)
	sort.Strings(summary.Volumes)
	return summary, nil
}
