package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLevelFiltersScopes(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopeDriver, false},
		{LevelPhase, ScopeDriver, true},
		{LevelPhase, ScopeBatch, false},
		{LevelDetail, ScopeBatch, true},
		{LevelDetail, ScopeSymbol, false},
		{LevelDebug, ScopeSymbol, true},
	}
	for _, tc := range cases {
		if got := tc.level.ShouldEmit(tc.scope); got != tc.want {
			t.Errorf("%v.ShouldEmit(%v) = %v, want %v", tc.level, tc.scope, got, tc.want)
		}
	}
}

func TestStreamTracerText(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatText)
	span := Begin(tr, ScopeBatch, "emit", 0)
	Point(tr, ScopeSymbol, "probe:System.Index", span.ID(), "absent")
	span.WithExtra("b", "2").WithExtra("a", "1").End("ok")

	out := buf.String()
	for _, want := range []string{"→ emit", "• probe:System.Index (absent)", "← emit (ok) {a=1, b=2}"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStreamTracerNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatNDJSON)
	Begin(tr, ScopeDriver, "gen", 0).End("")
	Begin(tr, ScopeBatch, "filtered", 0).End("")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 events, got %d:\n%s", len(lines), buf.String())
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev["name"] != "gen" || ev["kind"] != "begin" || ev["scope"] != "driver" {
		t.Fatalf("unexpected event: %v", ev)
	}
}

func TestRingTracerWraps(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(r, ScopeSymbol, name, 0, "")
	}
	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 events, got %d", len(snap))
	}
	got := []string{snap[0].Name, snap[1].Name, snap[2].Name}
	if strings.Join(got, "") != "cde" {
		t.Fatalf("snapshot order = %v, want [c d e]", got)
	}
}

func TestContextPropagation(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("expected Nop without tracer")
	}
	r := NewRingTracer(8, LevelDebug)
	ctx := WithTracer(context.Background(), r)
	if FromContext(ctx) != Tracer(r) {
		t.Fatalf("tracer not propagated")
	}
	span := Begin(r, ScopeDriver, "gen", 0)
	ctx = WithSpan(ctx, span)
	if CurrentSpan(ctx).SpanID != span.ID() {
		t.Fatalf("span not propagated")
	}
}

func TestNewOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tr.Enabled() {
		t.Fatalf("expected disabled tracer")
	}
	span := Begin(tr, ScopeDriver, "x", 0)
	if span.End("") != 0 || span.ID() != 0 {
		t.Fatalf("nop span recorded something")
	}
}

func TestMultiTracerFansOut(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelDebug, Mode: ModeBoth, Output: &buf, RingSize: 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	Point(tr, ScopeSymbol, "x", 0, "")
	m, ok := tr.(*MultiTracer)
	if !ok {
		t.Fatalf("expected MultiTracer, got %T", tr)
	}
	if len(m.Ring().Snapshot()) != 1 || buf.Len() == 0 {
		t.Fatalf("event not delivered to both tracers")
	}
}

func TestHeartbeatStops(t *testing.T) {
	r := NewRingTracer(64, LevelPhase)
	h := StartHeartbeat(r, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	h.Stop()
	h.Stop()
	n := len(r.Snapshot())
	if n == 0 {
		t.Fatalf("expected heartbeat events")
	}
	time.Sleep(5 * time.Millisecond)
	if len(r.Snapshot()) != n {
		t.Fatalf("heartbeat kept running after Stop")
	}
	var nilHB *Heartbeat
	nilHB.Stop()
}
