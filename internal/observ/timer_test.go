package observ

import (
	"errors"
	"strings"
	"testing"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer("App")
	p := tm.Begin("probe")
	tm.End(p, 20, "keys", nil)
	e := tm.Begin("emit")
	tm.End(e, 0, "", errors.New("boom"))
	tm.End(99, 1, "ignored", nil)

	r := tm.Report()
	if r.Unit != "App" || len(r.Phases) != 2 {
		t.Fatalf("unexpected report %+v", r)
	}
	probe, ok := r.Phase("probe")
	if !ok || probe.Items != 20 || probe.Note != "20 keys" || probe.Failed {
		t.Fatalf("probe = %+v", probe)
	}
	if emit, _ := r.Phase("emit"); !emit.Failed || emit.Note != "" {
		t.Fatalf("emit = %+v", emit)
	}
	if _, ok := r.Phase("publish"); ok {
		t.Fatalf("publish never ran")
	}

	var sb strings.Builder
	if err := r.Write(&sb); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"timings for App:", "probe", "// 20 keys", "emit", "(failed)", "total"} {
		if !strings.Contains(sb.String(), want) {
			t.Errorf("table missing %q:\n%s", want, sb.String())
		}
	}

	var nilTimer *Timer
	empty := nilTimer.Report()
	if len(empty.Phases) != 0 {
		t.Fatalf("nil timer must report nothing")
	}
	sb.Reset()
	if err := empty.Write(&sb); err != nil || sb.Len() != 0 {
		t.Fatalf("empty report wrote %q, %v", sb.String(), err)
	}
}
