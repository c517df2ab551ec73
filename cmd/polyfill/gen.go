package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tunnelvisionlabs/language-types/internal/compilation"
	"github.com/tunnelvisionlabs/language-types/internal/decision"
	"github.com/tunnelvisionlabs/language-types/internal/diag"
	"github.com/tunnelvisionlabs/language-types/internal/gen"
	"github.com/tunnelvisionlabs/language-types/internal/observ"
	"github.com/tunnelvisionlabs/language-types/internal/refindex"
	"github.com/tunnelvisionlabs/language-types/internal/registry"
	"github.com/tunnelvisionlabs/language-types/internal/sink"
)

const defaultOutDir = "polyfills"

var (
	genFlags   generatorFlags
	genOut     string
	genStdout  bool
	genPrune   bool
	genFormat  string
	genUI      string
	genVerbose bool
)

func init() {
	genFlags.register(genCmd)
	genCmd.Flags().StringVarP(&genOut, "out", "o", defaultOutDir, "output directory (one subdirectory per unit when several compilations are given)")
	genCmd.Flags().BoolVar(&genStdout, "stdout", false, "print artifacts instead of writing files")
	genCmd.Flags().BoolVar(&genPrune, "prune", false, "remove stale generated files from the output directory")
	genCmd.Flags().StringVar(&genFormat, "format", "pretty", "output format (pretty|json)")
	genCmd.Flags().StringVar(&genUI, "ui", "auto", "progress UI (auto|on|off)")
	genCmd.Flags().BoolVarP(&genVerbose, "verbose", "v", false, "report every per-symbol decision")
}

var genCmd = &cobra.Command{
	Use:   "gen [flags] <compilation.toml>...",
	Short: "Generate polyfills for one or more compilations",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGenCommand,
}

// genRequest is everything one gen invocation needs after flag parsing.
type genRequest struct {
	comps          []*compilation.Compilation
	options        gen.Options
	outDir         string
	stdout         bool
	prune          bool
	maxDiagnostics int
}

type unitOutcome struct {
	manifest string
	outDir   string
	result   *gen.Result
	memory   *sink.Memory
	pruned   []string
	err      error
}

func runGenCommand(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(genFormat)
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", genFormat)
	}
	mode, err := readUIMode(genUI)
	if err != nil {
		return err
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if maxDiagnostics <= 0 || maxDiagnostics > math.MaxUint16 {
		return fmt.Errorf("--max-diagnostics must be between 1 and %d", math.MaxUint16)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}

	cfg, err := configForCommand(cmd)
	if err != nil {
		return err
	}
	opts, err := generatorOptions(cmd, cfg, &genFlags)
	if err != nil {
		return err
	}
	comps, err := loadCompilations(args)
	if err != nil {
		return err
	}

	req := genRequest{
		comps:          comps,
		options:        opts,
		outDir:         genOut,
		stdout:         genStdout,
		prune:          genPrune,
		maxDiagnostics: maxDiagnostics,
	}

	var (
		outcomes []unitOutcome
		bag      *diag.Bag
		runErr   error
	)
	// the progress UI shares stdout with artifacts and JSON, so it only runs
	// when stdout carries nothing else
	if !quiet && !genStdout && format == "pretty" && shouldUseTUI(mode) {
		outcomes, bag, runErr = runGenerateWithUI(cmd.Context(), "generating polyfills", unitNames(comps), req)
	} else {
		outcomes, bag, runErr = runGenerate(cmd.Context(), req, nil)
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		if err := renderGenJSON(out, outcomes, genStdout, showTimings); err != nil {
			return err
		}
	} else {
		renderGenPretty(out, outcomes, genStdout, quiet)
		if showTimings {
			for _, o := range outcomes {
				if o.result != nil {
					_ = o.result.Timings.Write(out)
				}
			}
		}
	}
	if bag != nil {
		if text := diag.FormatShort(bag.Items(), genVerbose); text != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), text)
		}
	}
	return runErr
}

func loadCompilations(paths []string) ([]*compilation.Compilation, error) {
	comps := make([]*compilation.Compilation, 0, len(paths))
	for _, p := range paths {
		c, err := compilation.Load(p)
		if err != nil {
			code := diag.IOLoadCompilation
			if errors.Is(err, refindex.ErrSchema) {
				code = diag.IOReadIndex
			}
			return nil, fmt.Errorf("%s: %w", code.ID(), err)
		}
		comps = append(comps, c)
	}
	return comps, nil
}

func unitNames(comps []*compilation.Compilation) []string {
	names := make([]string, len(comps))
	for i, c := range comps {
		names[i] = string(c.Unit())
	}
	return names
}

// runGenerate runs every compilation concurrently. A failure in one
// compilation does not stop the others; the returned error joins all of them.
func runGenerate(ctx context.Context, req genRequest, progress gen.ProgressSink) ([]unitOutcome, *diag.Bag, error) {
	bag := diag.NewBag(req.maxDiagnostics)
	reporter := diag.NewDedupReporter(&diag.BagReporter{Bag: bag})

	if !req.stdout && len(req.comps) > 1 {
		seen := make(map[string]string, len(req.comps))
		for _, c := range req.comps {
			if prev, dup := seen[string(c.Unit())]; dup {
				return nil, bag, fmt.Errorf("%s and %s both build unit %s", prev, c.Path(), c.Unit())
			}
			seen[string(c.Unit())] = c.Path()
		}
	}

	opts := []gen.Option{gen.WithReporter(reporter)}
	if progress != nil {
		opts = append(opts, gen.WithProgress(progress))
	}
	g, err := gen.New(registry.Default(), req.options, opts...)
	if err != nil {
		return nil, bag, err
	}

	for _, c := range req.comps {
		if progress != nil {
			progress.OnEvent(gen.Event{Unit: string(c.Unit()), Stage: gen.StageProbe, Status: gen.StatusQueued})
		}
	}

	outcomes := make([]unitOutcome, len(req.comps))
	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, c := range req.comps {
		eg.Go(func() error {
			outcomes[i] = generateOne(ctx, g, c, req)
			return nil
		})
	}
	_ = eg.Wait()

	var errs []error
	for _, o := range outcomes {
		if o.err != nil {
			errs = append(errs, o.err)
		}
	}
	return outcomes, bag, errors.Join(errs...)
}

func generateOne(ctx context.Context, g *gen.Generator, c *compilation.Compilation, req genRequest) unitOutcome {
	o := unitOutcome{manifest: c.Path()}
	if req.stdout {
		o.memory = sink.NewMemory()
		o.result, o.err = g.Run(ctx, c, o.memory)
		return o
	}

	o.outDir = req.outDir
	if len(req.comps) > 1 {
		o.outDir = filepath.Join(req.outDir, string(c.Unit()))
	}
	dir := sink.NewDir(o.outDir)
	o.result, o.err = g.Run(ctx, c, dir)
	if o.err == nil && req.prune {
		o.pruned, o.err = dir.Prune()
		if o.err != nil {
			o.err = fmt.Errorf("prune %s: %w", o.outDir, o.err)
		}
	}
	return o
}

func renderGenPretty(out io.Writer, outcomes []unitOutcome, stdout, quiet bool) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	faint := color.New(color.Faint)
	red := color.New(color.FgRed, color.Bold)

	for _, o := range outcomes {
		if o.result == nil {
			if o.err != nil && !quiet {
				fmt.Fprintf(out, "%s %s\n", red.Sprint("failed"), o.manifest)
			}
			continue
		}
		res := o.result
		if stdout {
			for _, a := range res.Artifacts {
				fmt.Fprintf(out, "// ==> %s/%s\n", res.Unit, a.Name)
				text, _ := o.memory.Text(a.Name)
				fmt.Fprint(out, text)
			}
			continue
		}
		if quiet {
			continue
		}
		fmt.Fprintf(out, "%s  %s  %s  %s  -> %s  %s\n",
			bold.Sprint(res.Unit),
			green.Sprintf("%d defined", res.Count(decision.EmitDefinition)),
			cyan.Sprintf("%d forwarded", res.Count(decision.EmitForward)),
			faint.Sprintf("%d suppressed", res.Count(decision.Suppress)),
			o.outDir,
			faint.Sprint("["+res.Fingerprint.Short()+"]"),
		)
		for _, name := range o.pruned {
			fmt.Fprintf(out, "  pruned %s\n", name)
		}
	}
}

type genPayload struct {
	Unit        string            `json:"unit,omitempty"`
	Manifest    string            `json:"manifest"`
	Output      string            `json:"output,omitempty"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Plan        []stepPayload     `json:"plan,omitempty"`
	Artifacts   []artifactPayload `json:"artifacts,omitempty"`
	Pruned      []string          `json:"pruned,omitempty"`
	Timings     *observ.Report    `json:"timings,omitempty"`
	Error       string            `json:"error,omitempty"`
}

type artifactPayload struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Symbols []string `json:"symbols"`
	Variant string   `json:"variant,omitempty"`
	Text    string   `json:"text,omitempty"`
}

func renderGenJSON(out io.Writer, outcomes []unitOutcome, withText, withTimings bool) error {
	payload := make([]genPayload, 0, len(outcomes))
	for _, o := range outcomes {
		p := genPayload{Manifest: o.manifest, Output: o.outDir, Pruned: o.pruned}
		if o.err != nil {
			p.Error = o.err.Error()
		}
		if res := o.result; res != nil {
			p.Unit = string(res.Unit)
			p.Fingerprint = res.Fingerprint.String()
			p.Plan = planPayload(res)
			for _, a := range res.Artifacts {
				ap := artifactPayload{Name: a.Name, Kind: a.Kind.String(), Variant: a.Variant}
				for _, k := range a.Symbols {
					ap.Symbols = append(ap.Symbols, k.String())
				}
				if withText {
					ap.Text = a.Text
				}
				p.Artifacts = append(p.Artifacts, ap)
			}
			if withTimings {
				t := res.Timings
				p.Timings = &t
			}
		}
		payload = append(payload, p)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
