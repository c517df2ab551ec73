package batch

import (
	"testing"

	"github.com/tunnelvisionlabs/language-types/internal/avail"
	"github.com/tunnelvisionlabs/language-types/internal/symkey"
)

var (
	alpha = symkey.MustParse("Alpha")
	beta  = symkey.MustParse("Beta")
	gamma = symkey.MustParse("Gamma")
)

func TestNewSortsAndCopies(t *testing.T) {
	in := []Entry{{gamma, avail.DefinedLocally}, {alpha, avail.Absent}, {beta, avail.ReferencedExternally}}
	prereqs := map[symkey.Key]avail.State{gamma: avail.Absent}
	b, err := New("App", in, prereqs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	in[0].State = avail.Absent
	prereqs[gamma] = avail.DefinedLocally

	got := b.Entries()
	if len(got) != 3 || got[0].Key != alpha || got[1].Key != beta || got[2].Key != gamma {
		t.Fatalf("entries not sorted: %v", got)
	}
	if got[2].State != avail.DefinedLocally {
		t.Fatalf("batch shares caller's entry slice")
	}
	if st, ok := b.Prerequisite(gamma); !ok || st != avail.Absent {
		t.Fatalf("batch shares caller's prerequisite map")
	}
	got[0].State = avail.DefinedLocally
	if b.Entries()[0].State != avail.Absent {
		t.Fatalf("Entries must return a copy")
	}
}

func TestNewRejects(t *testing.T) {
	if _, err := New("App", []Entry{{alpha, avail.Absent}, {alpha, avail.Absent}}, nil); err == nil {
		t.Errorf("duplicate key accepted")
	}
	if _, err := New("App", []Entry{{alpha, avail.State(7)}}, nil); err == nil {
		t.Errorf("invalid state accepted")
	}
	if _, err := New("App", []Entry{{}}, nil); err == nil {
		t.Errorf("zero key accepted")
	}
	if _, err := New("App", nil, map[symkey.Key]avail.State{alpha: 9}); err == nil {
		t.Errorf("invalid prerequisite state accepted")
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	a, _ := New("App", []Entry{{alpha, avail.Absent}, {beta, avail.ReferencedExternally}}, map[symkey.Key]avail.State{gamma: avail.Absent})
	b, _ := New("App", []Entry{{beta, avail.ReferencedExternally}, {alpha, avail.Absent}}, map[symkey.Key]avail.State{gamma: avail.Absent})
	if a.Fingerprint(1) != b.Fingerprint(1) {
		t.Fatalf("input order changed the fingerprint")
	}
	if a.Fingerprint(1) == a.Fingerprint(2) {
		t.Fatalf("registry version not part of the fingerprint")
	}
	c, _ := New("App", []Entry{{alpha, avail.Absent}, {beta, avail.ReferencedExternally}}, map[symkey.Key]avail.State{gamma: avail.DefinedLocally})
	if a.Fingerprint(1) == c.Fingerprint(1) {
		t.Fatalf("prerequisite state not part of the fingerprint")
	}
	d, _ := New("Other", []Entry{{alpha, avail.Absent}, {beta, avail.ReferencedExternally}}, map[symkey.Key]avail.State{gamma: avail.Absent})
	if a.Fingerprint(1) == d.Fingerprint(1) {
		t.Fatalf("unit not part of the fingerprint")
	}
	if len(a.Fingerprint(1).Short()) != 12 {
		t.Fatalf("short digest length")
	}
}
