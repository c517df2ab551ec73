// Package emit turns a generation batch into source artifacts.
//
// For every entry the emitter first selects the template variant from the
// prerequisite's availability, then applies the decision table: definitions
// become one artifact each, forwarded keys are gathered into a single
// forwarding artifact, suppressed keys produce nothing. Output is normalised
// to one newline style and sorted by name, so equal batches give equal bytes.
package emit

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/tunnelvisionlabs/language-types/internal/avail"
	"github.com/tunnelvisionlabs/language-types/internal/batch"
	"github.com/tunnelvisionlabs/language-types/internal/decision"
	"github.com/tunnelvisionlabs/language-types/internal/newline"
	"github.com/tunnelvisionlabs/language-types/internal/registry"
	"github.com/tunnelvisionlabs/language-types/internal/symkey"
	"github.com/tunnelvisionlabs/language-types/internal/trace"
)

// DefaultForwardArtifact is the name of the shared forwarding artifact.
const DefaultForwardArtifact = "TypeForwards.g.cs"

// Kind tells definition artifacts from the forwarding artifact.
type Kind uint8

const (
	KindDefinition Kind = iota
	KindForwarding
)

func (k Kind) String() string {
	if k == KindForwarding {
		return "forwarding"
	}
	return "definition"
}

// Artifact is one named text handed to the host.
type Artifact struct {
	Name    string
	Kind    Kind
	Symbols []symkey.Key // keys the artifact was produced for
	Variant string       // definition only
	Text    string
}

// Step is the per-key outcome of planning.
type Step struct {
	Key      symkey.Key
	State    avail.State
	Decision decision.Decision
	Variant  string // selected template variant, also for non-emitted keys
	Artifact string // "" when suppressed
}

// Options configure an Emitter.
type Options struct {
	Newline         newline.Style
	ForwardArtifact string
}

// Emitter renders batches against one registry.
type Emitter struct {
	reg  *registry.Registry
	opts Options
}

// New returns an Emitter. An empty ForwardArtifact selects DefaultForwardArtifact.
func New(reg *registry.Registry, opts Options) *Emitter {
	if opts.ForwardArtifact == "" {
		opts.ForwardArtifact = DefaultForwardArtifact
	}
	return &Emitter{reg: reg, opts: opts}
}

// Options returns the effective options.
func (e *Emitter) Options() Options { return e.opts }

// Plan resolves every entry to a decision and variant without rendering.
// Unknown keys fail the whole batch.
func (e *Emitter) Plan(b *batch.Batch) ([]Step, error) {
	entries := b.Entries()
	var unknown []symkey.Key
	steps := make([]Step, 0, len(entries))
	for _, en := range entries {
		tpl, ok := e.reg.Lookup(en.Key)
		if !ok {
			unknown = append(unknown, en.Key)
			continue
		}
		v, err := e.selectVariant(b, tpl)
		if err != nil {
			return nil, err
		}
		s := Step{Key: en.Key, State: en.State, Decision: decision.Decide(en.State), Variant: v.Tag}
		switch s.Decision {
		case decision.EmitDefinition:
			s.Artifact = tpl.Artifact
		case decision.EmitForward:
			s.Artifact = e.opts.ForwardArtifact
		}
		steps = append(steps, s)
	}
	if len(unknown) > 0 {
		return nil, &UnknownKeyError{Keys: unknown}
	}
	return steps, nil
}

// selectVariant picks the text by the prerequisite's state. It runs for every
// key, emitted or not, so it can never influence gating.
func (e *Emitter) selectVariant(b *batch.Batch, tpl *registry.Template) (registry.Variant, error) {
	if !tpl.HasPrerequisite() {
		return tpl.Select(avail.Absent), nil
	}
	st, ok := b.Prerequisite(tpl.Prerequisite)
	if !ok {
		return registry.Variant{}, fmt.Errorf("%s: prerequisite %s was not probed", tpl.Key, tpl.Prerequisite)
	}
	return tpl.Select(st), nil
}

// Emit renders b. On any error, including cancellation of ctx, it returns no
// artifacts.
func (e *Emitter) Emit(ctx context.Context, b *batch.Batch) ([]Artifact, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeBatch, "emit", trace.CurrentSpan(ctx).SpanID)
	arts, err := e.emit(ctx, b, tracer, span.ID())
	if err != nil {
		span.End("failed: " + err.Error())
		return nil, err
	}
	span.WithExtra("artifacts", strconv.Itoa(len(arts))).End("")
	return arts, nil
}

func (e *Emitter) emit(ctx context.Context, b *batch.Batch, tracer trace.Tracer, spanID uint64) ([]Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, Abort(b.Unit(), err)
	}
	steps, err := e.Plan(b)
	if err != nil {
		return nil, err
	}

	var (
		arts      []Artifact
		forwarded []symkey.Key
	)
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, Abort(b.Unit(), err)
		}
		trace.Point(tracer, trace.ScopeSymbol, "decide:"+s.Key.String(), spanID, s.Decision.String()+"/"+s.Variant)
		switch s.Decision {
		case decision.EmitDefinition:
			tpl, _ := e.reg.Lookup(s.Key)
			v, err := e.selectVariant(b, tpl)
			if err != nil {
				return nil, err
			}
			arts = append(arts, Artifact{
				Name:    tpl.Artifact,
				Kind:    KindDefinition,
				Symbols: []symkey.Key{s.Key},
				Variant: v.Tag,
				Text:    newline.Normalize(v.Text, e.opts.Newline),
			})
		case decision.EmitForward:
			forwarded = append(forwarded, s.Key)
		case decision.Suppress:
		}
	}

	// every key has been decided; the shared artifact can be finalised
	if len(forwarded) > 0 {
		arts = append(arts, Artifact{
			Name:    e.opts.ForwardArtifact,
			Kind:    KindForwarding,
			Symbols: forwarded,
			Text:    newline.Normalize(RenderForwards(forwarded), e.opts.Newline),
		})
	}

	slices.SortFunc(arts, func(a, b Artifact) int { return strings.Compare(a.Name, b.Name) })
	for i := 1; i < len(arts); i++ {
		if arts[i-1].Name == arts[i].Name {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateArtifact, arts[i].Name)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, Abort(b.Unit(), err)
	}
	return arts, nil
}

// RenderForwards renders one TypeForwardedTo attribute per key, in the given
// order.
func RenderForwards(keys []symkey.Key) string {
	var sb strings.Builder
	sb.WriteString("// <auto-generated/>\n#nullable disable\n\n")
	for _, k := range keys {
		fmt.Fprintf(&sb, "[assembly: global::System.Runtime.CompilerServices.TypeForwardedTo(typeof(%s))]\n", TypeOfName(k))
	}
	return sb.String()
}

// TypeOfName renders k as a C# typeof operand: System.ValueTuple`2 becomes
// global::System.ValueTuple<,>.
func TypeOfName(k symkey.Key) string {
	segs := strings.Split(k.String(), ".")
	for i, seg := range segs {
		name, arity, ok := strings.Cut(seg, "`")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(arity)
		if err != nil || n < 1 {
			continue
		}
		segs[i] = name + "<" + strings.Repeat(",", n-1) + ">"
	}
	return "global::" + strings.Join(segs, ".")
}
