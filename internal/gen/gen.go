// Package gen runs one generation pass for a compilation: probe, decide,
// emit, publish.
//
// All probing finishes before the batch is built, and the batch is complete
// before anything reaches the sink. A resolver fault, an unknown key or a
// cancelled context therefore leaves the sink untouched.
package gen

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/tunnelvisionlabs/language-types/internal/avail"
	"github.com/tunnelvisionlabs/language-types/internal/batch"
	"github.com/tunnelvisionlabs/language-types/internal/decision"
	"github.com/tunnelvisionlabs/language-types/internal/diag"
	"github.com/tunnelvisionlabs/language-types/internal/emit"
	"github.com/tunnelvisionlabs/language-types/internal/newline"
	"github.com/tunnelvisionlabs/language-types/internal/observ"
	"github.com/tunnelvisionlabs/language-types/internal/registry"
	"github.com/tunnelvisionlabs/language-types/internal/sink"
	"github.com/tunnelvisionlabs/language-types/internal/symkey"
	"github.com/tunnelvisionlabs/language-types/internal/trace"
)

// Options select and shape the generated polyfills.
type Options struct {
	Include         []string // empty means every registered key
	Exclude         []string
	Newline         newline.Style
	Jobs            int // probe concurrency, 0 = GOMAXPROCS
	ForwardArtifact string
}

// Generator is reusable across compilations and safe for concurrent Runs.
type Generator struct {
	reg      *registry.Registry
	opts     Options
	keys     []symkey.Key
	prereqs  []symkey.Key
	emitter  *emit.Emitter
	reporter diag.Reporter
	progress ProgressSink
}

// Option customises a Generator.
type Option func(*Generator)

// WithReporter sends diagnostics to r.
func WithReporter(r diag.Reporter) Option { return func(g *Generator) { g.reporter = r } }

// WithProgress sends progress events to p.
func WithProgress(p ProgressSink) Option { return func(g *Generator) { g.progress = p } }

// New validates opts against reg. Include or Exclude naming a key the
// registry does not hold fails with an *emit.UnknownKeyError.
func New(reg *registry.Registry, opts Options, extra ...Option) (*Generator, error) {
	g := &Generator{reg: reg, opts: opts, reporter: diag.NopReporter{}}
	for _, o := range extra {
		o(g)
	}
	keys, err := g.selectKeys()
	if err != nil {
		return nil, err
	}
	g.keys = keys
	g.prereqs = reg.Prerequisites(keys)
	g.emitter = emit.New(reg, emit.Options{Newline: opts.Newline, ForwardArtifact: opts.ForwardArtifact})
	return g, nil
}

func (g *Generator) selectKeys() ([]symkey.Key, error) {
	parse := func(names []string) ([]symkey.Key, error) {
		var out, unknown []symkey.Key
		for _, n := range names {
			k, err := symkey.Parse(n)
			if err != nil {
				diag.ReportError(g.reporter, diag.GenInvalidOptions, n, err.Error())
				return nil, err
			}
			if _, ok := g.reg.Lookup(k); !ok {
				unknown = append(unknown, k)
				continue
			}
			out = append(out, k)
		}
		if len(unknown) > 0 {
			for _, k := range unknown {
				diag.ReportError(g.reporter, diag.GenUnknownSymbolKey, k.String(), "not a registered polyfill")
			}
			return nil, &emit.UnknownKeyError{Keys: unknown}
		}
		return out, nil
	}

	include, err := parse(g.opts.Include)
	if err != nil {
		return nil, err
	}
	exclude, err := parse(g.opts.Exclude)
	if err != nil {
		return nil, err
	}
	if len(include) == 0 {
		include = g.reg.Keys()
	}
	slices.SortFunc(include, symkey.Compare)
	include = slices.Compact(include)
	return slices.DeleteFunc(include, func(k symkey.Key) bool { return slices.Contains(exclude, k) }), nil
}

// Keys returns the polyfill keys this generator decides on.
func (g *Generator) Keys() []symkey.Key { return slices.Clone(g.keys) }

// Result describes a completed pass.
type Result struct {
	Unit        avail.UnitID
	Plan        []emit.Step
	Artifacts   []emit.Artifact
	Fingerprint batch.Digest
	Timings     observ.Report
}

// Count returns how many plan steps took decision d.
func (r *Result) Count(d decision.Decision) int {
	n := 0
	for _, s := range r.Plan {
		if s.Decision == d {
			n++
		}
	}
	return n
}

// Probe builds the batch for the compilation behind r.
func (g *Generator) Probe(ctx context.Context, r avail.Resolver) (*batch.Batch, error) {
	all := append(slices.Clone(g.keys), g.prereqs...)
	states, err := avail.ProbeAll(ctx, r, all, g.opts.Jobs)
	if err != nil {
		return nil, emit.Abort(r.Unit(), err)
	}
	entries := make([]batch.Entry, len(g.keys))
	for i, k := range g.keys {
		entries[i] = batch.Entry{Key: k, State: states[k]}
	}
	prereqs := make(map[symkey.Key]avail.State, len(g.prereqs))
	for _, k := range g.prereqs {
		prereqs[k] = states[k]
	}
	return batch.New(r.Unit(), entries, prereqs)
}

// Plan probes and decides without emitting.
func (g *Generator) Plan(ctx context.Context, r avail.Resolver) (*Result, error) {
	b, err := g.Probe(ctx, r)
	if err != nil {
		g.report(r.Unit(), err)
		return nil, err
	}
	steps, err := g.emitter.Plan(b)
	if err != nil {
		g.report(r.Unit(), err)
		return nil, err
	}
	return &Result{Unit: b.Unit(), Plan: steps, Fingerprint: g.fingerprint(b)}, nil
}

// Run performs a full pass and publishes the artifacts to s. On error s has
// received nothing.
func (g *Generator) Run(ctx context.Context, r avail.Resolver, s sink.Sink) (*Result, error) {
	unit := r.Unit()
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "gen:"+string(unit), trace.CurrentSpan(ctx).SpanID)
	ctx = trace.WithSpan(ctx, span)
	timer := observ.NewTimer(string(unit))

	res, err := g.run(ctx, r, s, timer)
	if err != nil {
		g.report(unit, err)
		span.End("failed: " + err.Error())
		return nil, err
	}
	res.Timings = timer.Report()
	span.WithExtra("fingerprint", res.Fingerprint.Short()).
		WithExtra("artifacts", strconv.Itoa(len(res.Artifacts))).
		End("")
	return res, nil
}

func (g *Generator) run(ctx context.Context, r avail.Resolver, s sink.Sink, timer *observ.Timer) (*Result, error) {
	unit := r.Unit()

	g.event(unit, StageProbe, StatusWorking, nil, 0)
	start := time.Now()
	idx := timer.Begin("probe")
	probeSpan := trace.Begin(trace.FromContext(ctx), trace.ScopeBatch, "probe", trace.CurrentSpan(ctx).SpanID)
	b, err := g.Probe(trace.WithSpan(ctx, probeSpan), r)
	probeSpan.End("")
	timer.End(idx, len(g.keys)+len(g.prereqs), "keys", err)
	if err != nil {
		g.event(unit, StageProbe, StatusError, err, time.Since(start))
		return nil, err
	}
	steps, err := g.emitter.Plan(b)
	if err != nil {
		g.event(unit, StageProbe, StatusError, err, time.Since(start))
		return nil, err
	}

	g.event(unit, StageEmit, StatusWorking, nil, time.Since(start))
	idx = timer.Begin("emit")
	arts, err := g.emitter.Emit(ctx, b)
	timer.End(idx, len(arts), "artifacts", err)
	if err != nil {
		g.event(unit, StageEmit, StatusError, err, time.Since(start))
		return nil, err
	}

	g.event(unit, StagePublish, StatusWorking, nil, time.Since(start))
	idx = timer.Begin("publish")
	pubSpan := trace.Begin(trace.FromContext(ctx), trace.ScopeBatch, "publish", trace.CurrentSpan(ctx).SpanID)
	err = sink.Publish(s, arts)
	pubSpan.End("")
	timer.End(idx, len(arts), "", err)
	if err != nil {
		err = fmt.Errorf("publish %s: %w", unit, err)
		g.event(unit, StagePublish, StatusError, err, time.Since(start))
		return nil, err
	}
	g.event(unit, StagePublish, StatusDone, nil, time.Since(start))

	// one reporter may serve several units, so the subject names both
	for _, st := range steps {
		subject := string(unit) + ":" + st.Key.String()
		switch st.Decision {
		case decision.EmitDefinition:
			diag.ReportInfo(g.reporter, diag.InfoDefinitionOut, subject, "emitted "+st.Artifact+" ("+st.Variant+")")
		case decision.EmitForward:
			diag.ReportInfo(g.reporter, diag.InfoForwarded, subject, "forwarded in "+st.Artifact)
		case decision.Suppress:
			diag.ReportInfo(g.reporter, diag.InfoDefinedLocal, subject, "defined in "+string(unit))
		}
	}
	return &Result{Unit: unit, Plan: steps, Artifacts: arts, Fingerprint: g.fingerprint(b)}, nil
}

// fingerprint covers the batch, the registry revision and the output options.
func (g *Generator) fingerprint(b *batch.Batch) batch.Digest {
	opts := g.emitter.Options()
	return batch.Combine(
		b.Fingerprint(g.reg.Version()),
		sha256.Sum256([]byte(opts.Newline.String()+"\x00"+opts.ForwardArtifact)),
	)
}

func (g *Generator) event(unit avail.UnitID, stage Stage, status Status, err error, elapsed time.Duration) {
	if g.progress == nil {
		return
	}
	g.progress.OnEvent(Event{Unit: string(unit), Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}

func (g *Generator) report(unit avail.UnitID, err error) {
	var uke *emit.UnknownKeyError
	switch {
	case errors.As(err, &uke):
		for _, k := range uke.Keys {
			diag.ReportError(g.reporter, diag.GenUnknownSymbolKey, k.String(), "not a registered polyfill")
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		diag.ReportError(g.reporter, diag.GenBatchAborted, string(unit), err.Error())
	case errors.Is(err, emit.ErrBatchAborted):
		diag.ReportError(g.reporter, diag.GenResolverFault, string(unit), err.Error())
	case errors.Is(err, emit.ErrDuplicateArtifact), errors.Is(err, sink.ErrDuplicate):
		diag.ReportError(g.reporter, diag.GenDuplicateArtifact, string(unit), err.Error())
	default:
		diag.ReportError(g.reporter, diag.IOWriteArtifact, string(unit), err.Error())
	}
}
