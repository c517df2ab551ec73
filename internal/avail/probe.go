// Package avail answers "where is this symbol already defined" for a
// compilation. The symbol table itself belongs to the host and is injected as
// a Resolver; this package only classifies the host's answer.
package avail

import (
	"context"
	"fmt"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/tunnelvisionlabs/language-types/internal/symkey"
	"github.com/tunnelvisionlabs/language-types/internal/trace"
)

// UnitID names a compiled unit (assembly) known to the host.
type UnitID string

// Symbol is the host's resolved answer for a name.
type Symbol struct {
	Name  string
	Owner UnitID
}

// Resolver is the host symbol-table capability.
//
// Resolve looks name up against everything visible to the compilation. When
// several candidates are visible the resolver applies its own best-match
// policy and returns at most one of them. ok=false means unresolved.
type Resolver interface {
	Unit() UnitID
	Resolve(ctx context.Context, name string) (sym Symbol, ok bool, err error)
}

// Probe classifies a single key. It has no side effects.
func Probe(ctx context.Context, r Resolver, key symkey.Key) (State, error) {
	if err := ctx.Err(); err != nil {
		return Absent, err
	}
	sym, ok, err := r.Resolve(ctx, key.String())
	if err != nil {
		return Absent, fmt.Errorf("resolve %s: %w", key, err)
	}
	if !ok {
		return Absent, nil
	}
	if sym.Owner == r.Unit() {
		return DefinedLocally, nil
	}
	return ReferencedExternally, nil
}

// ProbeAll probes every key concurrently with at most jobs probes in flight
// (jobs <= 0 means GOMAXPROCS). Either every key gets a state or an error is
// returned and the partial result is discarded.
func ProbeAll(ctx context.Context, r Resolver, keys []symkey.Key, jobs int) (map[symkey.Key]State, error) {
	keys = slices.Clone(keys)
	slices.SortFunc(keys, symkey.Compare)
	keys = slices.Compact(keys)
	if len(keys) == 0 {
		return map[symkey.Key]State{}, nil
	}

	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	tracer := trace.FromContext(ctx)
	parent := trace.CurrentSpan(ctx).SpanID

	// each goroutine owns its slot
	states := make([]State, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(keys)))
	for i, key := range keys {
		g.Go(func() error {
			st, err := Probe(gctx, r, key)
			if err != nil {
				return err
			}
			states[i] = st
			trace.Point(tracer, trace.ScopeSymbol, "probe:"+key.String(), parent, st.String())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// A cancelled parent may let every probe finish before Wait observes it.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[symkey.Key]State, len(keys))
	for i, key := range keys {
		out[key] = states[i]
	}
	return out, nil
}
