package pipeline

import (
	"fmt"

	shellwords "github.com/mattn/go-shellwords"
)

// =============================================================================
// Build Step and Framework Presets
// =============================================================================

// BuildStep runs a framework's build commands inside a tool container with
// the workspace mounted. Either Framework selects a preset or Commands
// overrides the command list entirely.
type BuildStep struct {
	Framework string   `yaml:"framework"`
	Image     string   `yaml:"image"`
	SkipLint  bool     `yaml:"skip_lint"`
	SkipTests bool     `yaml:"skip_tests"`
	Env       []string `yaml:"env"`
	Commands  []string `yaml:"commands"`
}

// Command is one planned build command.
type Command struct {
	// Phase groups commands for logging and skip flags: install, lint,
	// test, build, or custom.
	Phase string
	Argv  []string
}

// Preset is a framework's default tool image and phased command list.
type Preset struct {
	Image   string
	Install [][]string
	Lint    [][]string
	Test    [][]string
	Build   [][]string
}

var presets = map[string]Preset{
	"nextjs": {
		Image:   "node:20-bookworm",
		Install: [][]string{{"npm", "ci"}},
		Lint:    [][]string{{"npm", "run", "lint"}},
		Test:    [][]string{{"npm", "test"}},
		Build:   [][]string{{"npm", "run", "build"}},
	},
	"python": {
		Image:   "python:3.12-slim",
		Install: [][]string{{"pip", "install", "-r", "requirements.txt"}},
		Lint:    [][]string{{"flake8", "."}},
		Test:    [][]string{{"pytest"}},
	},
	"jekyll": {
		Image:   "ruby:3.3",
		Install: [][]string{{"bundle", "install"}},
		Build:   [][]string{{"bundle", "exec", "jekyll", "build"}},
	},
}

// Frameworks lists the known preset names, for error messages and help text.
func Frameworks() []string {
	return []string{"jekyll", "nextjs", "python"}
}

// PresetFor returns the preset for a framework name.
func PresetFor(framework string) (Preset, error) {
	p, ok := presets[framework]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q (known: jekyll, nextjs, python)", ErrUnknownFramework, framework)
	}
	return p, nil
}

// ToolImage returns the container image the build commands run in: the
// step's explicit image when set, otherwise the preset default.
func (s BuildStep) ToolImage() (string, error) {
	if s.Image != "" {
		return s.Image, nil
	}
	p, err := PresetFor(s.Framework)
	if err != nil {
		return "", err
	}
	return p.Image, nil
}

// PlanCommands expands the step into the ordered command list. Custom
// Commands (shell-quoted strings) replace the preset entirely; otherwise
// the preset phases run in install, lint, test, build order with the skip
// flags dropping their phases. ${VAR} placeholders are expanded from vars.
func (s BuildStep) PlanCommands(vars map[string]string) ([]Command, error) {
	if len(s.Commands) > 0 {
		cmds := make([]Command, 0, len(s.Commands))
		for _, raw := range s.Commands {
			argv, err := shellwords.Parse(Expand(raw, vars))
			if err != nil {
				return nil, fmt.Errorf("build command %q: %w", raw, err)
			}
			if len(argv) == 0 {
				return nil, fmt.Errorf("build command %q: empty after expansion", raw)
			}
			cmds = append(cmds, Command{Phase: "custom", Argv: argv})
		}
		return cmds, nil
	}

	p, err := PresetFor(s.Framework)
	if err != nil {
		return nil, err
	}

	var cmds []Command
	appendPhase := func(phase string, argvs [][]string) {
		for _, argv := range argvs {
			expanded := make([]string, len(argv))
			for i, a := range argv {
				expanded[i] = Expand(a, vars)
			}
			cmds = append(cmds, Command{Phase: phase, Argv: expanded})
		}
	}

	appendPhase("install", p.Install)
	if !s.SkipLint {
		appendPhase("lint", p.Lint)
	}
	if !s.SkipTests {
		appendPhase("test", p.Test)
	}
	appendPhase("build", p.Build)
	return cmds, nil
}
