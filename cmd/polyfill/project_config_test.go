package main

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/spf13/cobra"

	"github.com/tunnelvisionlabs/language-types/internal/newline"
)

func writeTestFile(t *testing.T, path, text string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFindConfigWalksUp(t *testing.T) {
	root := t.TempDir()
	cfgPath := filepath.Join(root, configFileName)
	writeTestFile(t, cfgPath, "[generator]\n")
	nested := filepath.Join(root, "src", "app")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, ok, err := findConfig(nested)
	if err != nil || !ok {
		t.Fatalf("findConfig = %q, %v, %v", got, ok, err)
	}
	want, _ := filepath.Abs(cfgPath)
	if got != want {
		t.Fatalf("findConfig = %q, want %q", got, want)
	}
}

func TestResolveConfigMissingIsZero(t *testing.T) {
	cfg, path, err := resolveConfig("", t.TempDir())
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	// a polyfill.toml above the temp dir would be picked up too
	if path == "" && (cfg.Generator.Jobs != 0 || cfg.Generator.Newline != "") {
		t.Fatalf("expected zero config, got %+v", cfg)
	}
}

func TestLoadProjectConfig(t *testing.T) {
	p := filepath.Join(t.TempDir(), configFileName)
	writeTestFile(t, p, `
[generator]
newline = "crlf"
jobs = 4
include = ["System.Index", "System.Range"]
exclude = ["System.Range"]
forward_artifact = "Forwards.g.cs"
`)
	cfg, err := loadProjectConfig(p)
	if err != nil {
		t.Fatalf("loadProjectConfig: %v", err)
	}
	opts, err := cfg.Generator.options()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Newline != newline.CRLF || opts.Jobs != 4 || opts.ForwardArtifact != "Forwards.g.cs" {
		t.Fatalf("options = %+v", opts)
	}
	if !slices.Equal(opts.Exclude, []string{"System.Range"}) {
		t.Fatalf("exclude = %v", opts.Exclude)
	}
}

func TestLoadProjectConfigRejects(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"nogen.toml":   "[other]\n",
		"unknown.toml": "[generator]\ncolour = \"red\"\n",
		"newline.toml": "[generator]\nnewline = \"cr\"\n",
		"jobs.toml":    "[generator]\njobs = -1\n",
	}
	for name, text := range cases {
		p := filepath.Join(dir, name)
		writeTestFile(t, p, text)
		if _, err := loadProjectConfig(p); err == nil {
			t.Errorf("%s accepted", name)
		}
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	var f generatorFlags
	cmd := &cobra.Command{Use: "x"}
	f.register(cmd)
	if err := cmd.ParseFlags([]string{"--newline", "crlf", "--include", "System.Index"}); err != nil {
		t.Fatal(err)
	}
	cfg := projectConfig{Generator: generatorConfig{Newline: "lf", Jobs: 2, Include: []string{"System.Range"}}}
	opts, err := generatorOptions(cmd, cfg, &f)
	if err != nil {
		t.Fatalf("generatorOptions: %v", err)
	}
	if opts.Newline != newline.CRLF || opts.Jobs != 2 || !slices.Equal(opts.Include, []string{"System.Index"}) {
		t.Fatalf("options = %+v", opts)
	}
}
