package diag

import (
	"cmp"
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// Bag collects diagnostics up to a fixed capacity.
type Bag struct {
	items []Diagnostic
	max   uint16
}

// NewBag returns a Bag holding at most max diagnostics. max must fit in uint16.
func NewBag(max int) *Bag {
	capacity, err := safecast.Conv[uint16](max)
	if err != nil {
		panic(fmt.Errorf("diagnostic capacity overflow: %w", err))
	}
	return &Bag{
		items: make([]Diagnostic, 0, capacity),
		max:   capacity,
	}
}

// Add appends d. A full bag makes room by dropping its newest diagnostic of
// the lowest severity, provided that severity is below d's; otherwise Add
// returns false.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) < int(b.max) {
		b.items = append(b.items, d)
		return true
	}
	victim := -1
	for i, it := range b.items {
		if it.Severity < d.Severity && (victim < 0 || it.Severity <= b.items[victim].Severity) {
			victim = i
		}
	}
	if victim < 0 {
		return false
	}
	b.items = append(slices.Delete(b.items, victim, victim+1), d)
	return true
}

func (b *Bag) Cap() uint16 { return b.max }

func (b *Bag) Len() int { return len(b.items) }

// HasErrors reports whether any diagnostic is SevError.
func (b *Bag) HasErrors() bool {
	return slices.ContainsFunc(b.items, func(d Diagnostic) bool { return d.Severity >= SevError })
}

// Items returns the backing slice. Do not modify it.
func (b *Bag) Items() []Diagnostic { return b.items }

// Merge appends other's diagnostics, growing max when needed.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	total := len(b.items) + len(other.items)
	if total > int(b.max) {
		grown, err := safecast.Conv[uint16](total)
		if err != nil {
			grown = ^uint16(0)
		}
		b.max = grown
	}
	for _, d := range other.items {
		b.Add(d)
	}
}

// Sort orders by subject, severity (desc), code, message.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(x, y Diagnostic) int {
		if c := cmp.Compare(x.Subject, y.Subject); c != 0 {
			return c
		}
		if c := cmp.Compare(y.Severity, x.Severity); c != 0 {
			return c
		}
		if c := cmp.Compare(x.Code, y.Code); c != 0 {
			return c
		}
		return cmp.Compare(x.Message, y.Message)
	})
}

// Dedup drops repeats of the same code and subject.
func (b *Bag) Dedup() {
	type key struct {
		code    Code
		subject string
	}
	seen := make(map[key]bool, len(b.items))
	out := b.items[:0]
	for _, d := range b.items {
		k := key{d.Code, d.Subject}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, d)
	}
	b.items = out
}
