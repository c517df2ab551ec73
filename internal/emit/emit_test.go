package emit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/tunnelvisionlabs/language-types/internal/avail"
	"github.com/tunnelvisionlabs/language-types/internal/batch"
	"github.com/tunnelvisionlabs/language-types/internal/decision"
	"github.com/tunnelvisionlabs/language-types/internal/newline"
	"github.com/tunnelvisionlabs/language-types/internal/registry"
	"github.com/tunnelvisionlabs/language-types/internal/symkey"
)

var (
	alpha = symkey.MustParse("Alpha")
	beta  = symkey.MustParse("Beta")
	gamma = symkey.MustParse("Gamma")
	delta = symkey.MustParse("Delta")
	tuple = symkey.MustParse("Tuple`2")
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	fsys := fstest.MapFS{
		"manifest.toml": {Data: []byte(`
version = 1

[[polyfill]]
key = "Alpha"
file = "alpha.cs"

[[polyfill]]
key = "Beta"
file = "beta.cs"

[[polyfill]]
key = "Gamma"
file = "gamma.cs"

[[polyfill]]
key = "Delta"
prerequisite = "Tuple` + "`" + `2"
[polyfill.variants.absent]
tag = "plain"
file = "delta.plain.cs"
[polyfill.variants.referenced]
tag = "tuple"
file = "delta.tuple.cs"
[polyfill.variants.local]
tag = "tuple"
file = "delta.tuple.cs"
`)},
		"alpha.cs":       {Data: []byte("class Alpha\r\n{\r}\u0085")},
		"beta.cs":        {Data: []byte("class Beta {}\n")},
		"gamma.cs":       {Data: []byte("class Gamma {}\n")},
		"delta.plain.cs": {Data: []byte("class Delta { void M(out int a, out int b) {} }\n")},
		"delta.tuple.cs": {Data: []byte("class Delta { (int, int) M() => default; }\n")},
	}
	r, err := registry.Load(fsys)
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	return r
}

func mustBatch(t *testing.T, entries []batch.Entry, prereqs map[symkey.Key]avail.State) *batch.Batch {
	t.Helper()
	b, err := batch.New("App", entries, prereqs)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	return b
}

func names(arts []Artifact) []string {
	out := make([]string, len(arts))
	for i, a := range arts {
		out[i] = a.Name
	}
	return out
}

func TestEmitScenarioAlphaBetaGamma(t *testing.T) {
	e := New(testRegistry(t), Options{})
	b := mustBatch(t, []batch.Entry{
		{Key: alpha, State: avail.Absent},
		{Key: beta, State: avail.ReferencedExternally},
		{Key: gamma, State: avail.DefinedLocally},
	}, nil)

	arts, err := e.Emit(context.Background(), b)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(arts) != 2 {
		t.Fatalf("expected 2 artifacts, got %v", names(arts))
	}
	def, fwd := arts[0], arts[1]
	if def.Name != "Alpha.g.cs" || def.Kind != KindDefinition {
		t.Fatalf("unexpected definition artifact %+v", def)
	}
	if def.Text != "class Alpha\n{\n}\n" {
		t.Fatalf("definition text not normalised: %q", def.Text)
	}
	if fwd.Name != DefaultForwardArtifact || fwd.Kind != KindForwarding {
		t.Fatalf("unexpected forwarding artifact %+v", fwd)
	}
	if len(fwd.Symbols) != 1 || fwd.Symbols[0] != beta {
		t.Fatalf("forwarding artifact must list only Beta, got %v", fwd.Symbols)
	}
	if !strings.Contains(fwd.Text, "typeof(global::Beta)") || strings.Contains(fwd.Text, "Gamma") || strings.Contains(fwd.Text, "Alpha") {
		t.Fatalf("unexpected forwarding text:\n%s", fwd.Text)
	}
	for _, a := range arts {
		if strings.Contains(a.Text, "Gamma") {
			t.Fatalf("locally defined Gamma leaked into %s", a.Name)
		}
	}
}

func TestEmitAllLocalYieldsNothing(t *testing.T) {
	e := New(testRegistry(t), Options{})
	b := mustBatch(t, []batch.Entry{
		{Key: alpha, State: avail.DefinedLocally},
		{Key: beta, State: avail.DefinedLocally},
		{Key: gamma, State: avail.DefinedLocally},
	}, nil)
	arts, err := e.Emit(context.Background(), b)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(arts) != 0 {
		t.Fatalf("expected no artifacts, got %v", names(arts))
	}
}

func TestEmitSingleForwardingArtifact(t *testing.T) {
	e := New(testRegistry(t), Options{ForwardArtifact: "Forwards.g.cs"})
	b := mustBatch(t, []batch.Entry{
		{Key: gamma, State: avail.ReferencedExternally},
		{Key: alpha, State: avail.ReferencedExternally},
		{Key: beta, State: avail.ReferencedExternally},
	}, nil)
	arts, err := e.Emit(context.Background(), b)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(arts) != 1 || arts[0].Name != "Forwards.g.cs" {
		t.Fatalf("expected one forwarding artifact, got %v", names(arts))
	}
	want := "// <auto-generated/>\n#nullable disable\n\n" +
		"[assembly: global::System.Runtime.CompilerServices.TypeForwardedTo(typeof(global::Alpha))]\n" +
		"[assembly: global::System.Runtime.CompilerServices.TypeForwardedTo(typeof(global::Beta))]\n" +
		"[assembly: global::System.Runtime.CompilerServices.TypeForwardedTo(typeof(global::Gamma))]\n"
	if arts[0].Text != want {
		t.Fatalf("unexpected forwarding text:\n%s", arts[0].Text)
	}
}

func TestEmitIdempotent(t *testing.T) {
	e := New(testRegistry(t), Options{Newline: newline.CRLF})
	b := mustBatch(t, []batch.Entry{
		{Key: alpha, State: avail.Absent},
		{Key: beta, State: avail.ReferencedExternally},
		{Key: delta, State: avail.Absent},
	}, map[symkey.Key]avail.State{tuple: avail.ReferencedExternally})

	first, err := e.Emit(context.Background(), b)
	if err != nil {
		t.Fatalf("first Emit: %v", err)
	}
	second, err := e.Emit(context.Background(), b)
	if err != nil {
		t.Fatalf("second Emit: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("artifact counts differ")
	}
	for i := range first {
		if first[i].Name != second[i].Name || first[i].Text != second[i].Text {
			t.Fatalf("artifact %d differs between runs", i)
		}
		if newline.HasForeign(first[i].Text, newline.CRLF) {
			t.Fatalf("%s has non-CRLF terminators", first[i].Name)
		}
	}
}

func TestVariantSelectionIndependentOfGating(t *testing.T) {
	e := New(testRegistry(t), Options{})
	texts := map[avail.State]string{}
	for _, pre := range avail.States {
		b := mustBatch(t, []batch.Entry{{Key: delta, State: avail.Absent}}, map[symkey.Key]avail.State{tuple: pre})
		arts, err := e.Emit(context.Background(), b)
		if err != nil {
			t.Fatalf("Emit with prerequisite %v: %v", pre, err)
		}
		if len(arts) != 1 || arts[0].Name != "Delta.g.cs" {
			t.Fatalf("prerequisite %v changed gating: %v", pre, names(arts))
		}
		texts[pre] = arts[0].Text
	}
	if texts[avail.Absent] == texts[avail.ReferencedExternally] {
		t.Fatalf("prerequisite availability did not change the variant")
	}
	if texts[avail.ReferencedExternally] != texts[avail.DefinedLocally] {
		t.Fatalf("referenced and local prerequisites should share the tuple variant")
	}

	// a suppressed dependent stays suppressed whatever the prerequisite is
	for _, pre := range avail.States {
		b := mustBatch(t, []batch.Entry{{Key: delta, State: avail.DefinedLocally}}, map[symkey.Key]avail.State{tuple: pre})
		arts, err := e.Emit(context.Background(), b)
		if err != nil || len(arts) != 0 {
			t.Fatalf("prerequisite %v: expected nothing, got %v, %v", pre, names(arts), err)
		}
	}
}

func TestEmitUnknownKeyFailsFast(t *testing.T) {
	e := New(testRegistry(t), Options{})
	bogus := symkey.MustParse("Bogus")
	b := mustBatch(t, []batch.Entry{{Key: alpha, State: avail.Absent}, {Key: bogus, State: avail.Absent}}, nil)
	arts, err := e.Emit(context.Background(), b)
	if !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
	var uke *UnknownKeyError
	if !errors.As(err, &uke) || len(uke.Keys) != 1 || uke.Keys[0] != bogus {
		t.Fatalf("unexpected error detail: %v", err)
	}
	if arts != nil {
		t.Fatalf("expected no artifacts, got %v", names(arts))
	}
}

func TestEmitMissingPrerequisite(t *testing.T) {
	e := New(testRegistry(t), Options{})
	b := mustBatch(t, []batch.Entry{{Key: delta, State: avail.Absent}}, nil)
	if _, err := e.Emit(context.Background(), b); err == nil {
		t.Fatalf("expected error for unprobed prerequisite")
	}
}

func TestEmitCancelledDiscardsEverything(t *testing.T) {
	e := New(testRegistry(t), Options{})
	b := mustBatch(t, []batch.Entry{{Key: alpha, State: avail.Absent}, {Key: beta, State: avail.ReferencedExternally}}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	arts, err := e.Emit(ctx, b)
	if !errors.Is(err, ErrBatchAborted) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected aborted batch, got %v", err)
	}
	if arts != nil {
		t.Fatalf("cancelled batch emitted %v", names(arts))
	}
}

func TestEmitForwardNameCollision(t *testing.T) {
	e := New(testRegistry(t), Options{ForwardArtifact: "Alpha.g.cs"})
	b := mustBatch(t, []batch.Entry{{Key: alpha, State: avail.Absent}, {Key: beta, State: avail.ReferencedExternally}}, nil)
	if _, err := e.Emit(context.Background(), b); !errors.Is(err, ErrDuplicateArtifact) {
		t.Fatalf("expected ErrDuplicateArtifact, got %v", err)
	}
}

func TestPlan(t *testing.T) {
	e := New(testRegistry(t), Options{})
	b := mustBatch(t, []batch.Entry{
		{Key: delta, State: avail.ReferencedExternally},
		{Key: alpha, State: avail.Absent},
		{Key: gamma, State: avail.DefinedLocally},
	}, map[symkey.Key]avail.State{tuple: avail.Absent})
	steps, err := e.Plan(b)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := []Step{
		{Key: alpha, State: avail.Absent, Decision: decision.EmitDefinition, Variant: "default", Artifact: "Alpha.g.cs"},
		{Key: delta, State: avail.ReferencedExternally, Decision: decision.EmitForward, Variant: "plain", Artifact: DefaultForwardArtifact},
		{Key: gamma, State: avail.DefinedLocally, Decision: decision.Suppress, Variant: "default"},
	}
	if len(steps) != len(want) {
		t.Fatalf("got %d steps, want %d", len(steps), len(want))
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Errorf("step %d = %+v, want %+v", i, steps[i], want[i])
		}
	}
}

func TestTypeOfName(t *testing.T) {
	cases := map[string]string{
		"System.Index":        "global::System.Index",
		"System.ValueTuple`2": "global::System.ValueTuple<,>",
		"System.Func`3":       "global::System.Func<,,>",
		"Outer`1.Inner":       "global::Outer<>.Inner",
	}
	for in, want := range cases {
		if got := TypeOfName(symkey.MustParse(in)); got != want {
			t.Errorf("TypeOfName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEmitDefaultRegistryRange(t *testing.T) {
	e := New(registry.Default(), Options{})
	rangeKey := symkey.MustParse("System.Range")
	valueTuple := symkey.MustParse("System.ValueTuple`2")
	for pre, marker := range map[avail.State]string{
		avail.Absent:               "out int offset, out int count",
		avail.ReferencedExternally: "(int Offset, int Length)",
	} {
		b := mustBatch(t, []batch.Entry{{Key: rangeKey, State: avail.Absent}}, map[symkey.Key]avail.State{valueTuple: pre})
		arts, err := e.Emit(context.Background(), b)
		if err != nil {
			t.Fatalf("Emit: %v", err)
		}
		if len(arts) != 1 || arts[0].Name != "System.Range.g.cs" || !strings.Contains(arts[0].Text, marker) {
			t.Fatalf("prerequisite %v: unexpected artifacts %v", pre, names(arts))
		}
	}
}
