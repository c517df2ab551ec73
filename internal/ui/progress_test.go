package ui

import (
	"math"
	"strings"
	"testing"

	"github.com/tunnelvisionlabs/language-types/internal/gen"
)

func TestApplyEventTracksUnits(t *testing.T) {
	events := make(chan gen.Event)
	m := NewProgressModel("generating", []string{"App", "Lib"}, events).(*progressModel)

	m.applyEvent(gen.Event{Unit: "App", Stage: gen.StageEmit, Status: gen.StatusWorking})
	m.applyEvent(gen.Event{Unit: "Lib", Stage: gen.StagePublish, Status: gen.StatusDone})
	m.applyEvent(gen.Event{Unit: "Ghost", Stage: gen.StageProbe, Status: gen.StatusWorking})

	if m.items[0].status != "emitting" || m.items[1].status != "done" {
		t.Fatalf("items = %+v", m.items)
	}
	if got := m.percent(); math.Abs(got-0.8) > 1e-9 {
		t.Fatalf("percent = %v, want 0.8", got)
	}

	m.applyEvent(gen.Event{Unit: "App", Stage: gen.StageEmit, Status: gen.StatusError})
	if m.items[0].status != "error" || m.percent() != 1.0 {
		t.Fatalf("error not terminal: %+v", m.items[0])
	}

	view := m.View()
	for _, want := range []string{"generating", "App", "Lib", "error", "done"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestDoneMsgQuits(t *testing.T) {
	m := NewProgressModel("generating", []string{"App"}, nil)
	next, cmd := m.Update(doneMsg{})
	if cmd == nil || !next.(*progressModel).done {
		t.Fatalf("doneMsg did not finish the model")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Contoso.Core.Internals", 10); got != "Cont..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("App", 10); got != "App" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("Contoso", 2); got != "Co" {
		t.Fatalf("truncate = %q", got)
	}
}
