package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/tunnelvisionlabs/language-types/internal/gen"
	"github.com/tunnelvisionlabs/language-types/internal/newline"
)

const configFileName = "polyfill.toml"

type projectConfig struct {
	Generator generatorConfig `toml:"generator"`
}

type generatorConfig struct {
	Newline         string   `toml:"newline"`
	Jobs            int      `toml:"jobs"`
	Include         []string `toml:"include"`
	Exclude         []string `toml:"exclude"`
	ForwardArtifact string   `toml:"forward_artifact"`
}

func findConfig(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

func loadProjectConfig(path string) (projectConfig, error) {
	var cfg projectConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return projectConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("generator") {
		return projectConfig{}, fmt.Errorf("%s: missing [generator]", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return projectConfig{}, fmt.Errorf("%s: unknown field %s", path, undecoded[0])
	}
	if meta.IsDefined("generator", "newline") {
		if _, err := newline.ParseStyle(cfg.Generator.Newline); err != nil {
			return projectConfig{}, fmt.Errorf("%s: [generator].newline: %w", path, err)
		}
	}
	if cfg.Generator.Jobs < 0 {
		return projectConfig{}, fmt.Errorf("%s: [generator].jobs must not be negative", path)
	}
	return cfg, nil
}

// resolveConfig loads the explicit --config file, or the nearest
// polyfill.toml above startDir. No file yields the zero config.
func resolveConfig(explicit, startDir string) (projectConfig, string, error) {
	path := explicit
	if path == "" {
		found, ok, err := findConfig(startDir)
		if err != nil {
			return projectConfig{}, "", err
		}
		if !ok {
			return projectConfig{}, "", nil
		}
		path = found
	}
	cfg, err := loadProjectConfig(path)
	if err != nil {
		return projectConfig{}, "", err
	}
	return cfg, path, nil
}

// generatorFlags are the command-line overrides shared by gen and plan.
type generatorFlags struct {
	newline         string
	jobs            int
	include         []string
	exclude         []string
	forwardArtifact string
}

func (f *generatorFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.newline, "newline", "", "newline style of emitted text (lf|crlf)")
	cmd.Flags().IntVar(&f.jobs, "jobs", 0, "concurrent symbol probes (0 = GOMAXPROCS)")
	cmd.Flags().StringSliceVar(&f.include, "include", nil, "polyfill keys to consider (default: all)")
	cmd.Flags().StringSliceVar(&f.exclude, "exclude", nil, "polyfill keys to skip")
	cmd.Flags().StringVar(&f.forwardArtifact, "forward-artifact", "", "name of the shared type-forwarding artifact")
}

// generatorOptions merges cfg and the flags that were set on cmd.
func generatorOptions(cmd *cobra.Command, cfg projectConfig, f *generatorFlags) (gen.Options, error) {
	g := cfg.Generator
	flags := cmd.Flags()
	if flags.Changed("newline") {
		g.Newline = f.newline
	}
	if flags.Changed("jobs") {
		g.Jobs = f.jobs
	}
	if flags.Changed("include") {
		g.Include = f.include
	}
	if flags.Changed("exclude") {
		g.Exclude = f.exclude
	}
	if flags.Changed("forward-artifact") {
		g.ForwardArtifact = f.forwardArtifact
	}
	return g.options()
}

func (g generatorConfig) options() (gen.Options, error) {
	style, err := newline.ParseStyle(g.Newline)
	if err != nil {
		return gen.Options{}, err
	}
	if g.Jobs < 0 {
		return gen.Options{}, fmt.Errorf("jobs must not be negative")
	}
	return gen.Options{
		Include:         g.Include,
		Exclude:         g.Exclude,
		Newline:         style,
		Jobs:            g.Jobs,
		ForwardArtifact: g.ForwardArtifact,
	}, nil
}

func configForCommand(cmd *cobra.Command) (projectConfig, error) {
	explicit, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return projectConfig{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return projectConfig{}, err
	}
	cfg, _, err := resolveConfig(explicit, wd)
	return cfg, err
}
