// Package observ times the phases of one generation pass.
package observ

import (
	"fmt"
	"io"
	"time"
)

// Phase is one timed step of a pass.
type Phase struct {
	Name   string
	Start  time.Time
	Dur    time.Duration
	Items  int
	Note   string
	Failed bool
}

// Timer records the phases of the pass that generates one unit. It is not
// safe for concurrent use; each pass owns its own Timer.
type Timer struct {
	unit   string
	phases []Phase
}

// NewTimer returns an empty Timer for unit.
func NewTimer(unit string) *Timer { return &Timer{unit: unit, phases: make([]Phase, 0, 3)} }

// Begin starts a phase and returns its index.
func (t *Timer) Begin(name string) int {
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End finishes the phase at idx. items counts what the phase handled (keys
// probed, artifacts emitted); a non-nil err marks the phase failed.
func (t *Timer) End(idx, items int, noun string, err error) {
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Items = items
	if noun != "" {
		p.Note = fmt.Sprintf("%d %s", items, noun)
	}
	p.Failed = err != nil
}

// PhaseReport is the serialisable form of a phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Items      int     `json:"items"`
	Note       string  `json:"note,omitempty"`
	Failed     bool    `json:"failed,omitempty"`
}

// Report is a finished pass as shown by --timings.
type Report struct {
	Unit    string        `json:"unit"`
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report returns the phases and their total in milliseconds.
func (t *Timer) Report() Report {
	if t == nil || len(t.phases) == 0 {
		return Report{}
	}
	report := Report{Unit: t.unit, Phases: make([]PhaseReport, len(t.phases))}
	var total time.Duration
	for i, phase := range t.phases {
		total += phase.Dur
		report.Phases[i] = PhaseReport{
			Name:       phase.Name,
			DurationMS: durationToMillis(phase.Dur),
			Items:      phase.Items,
			Note:       phase.Note,
			Failed:     phase.Failed,
		}
	}
	report.TotalMS = durationToMillis(total)
	return report
}

// Phase returns the named phase.
func (r Report) Phase(name string) (PhaseReport, bool) {
	for _, p := range r.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return PhaseReport{}, false
}

// Write renders r as an aligned table. An empty report writes nothing.
func (r Report) Write(w io.Writer) error {
	if len(r.Phases) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "timings for %s:\n", r.Unit); err != nil {
		return err
	}
	for _, p := range r.Phases {
		line := fmt.Sprintf("  %-10s %7.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			line += "  // " + p.Note
		}
		if p.Failed {
			line += "  (failed)"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "  %-10s %7.2f ms\n", "total", r.TotalMS)
	return err
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
