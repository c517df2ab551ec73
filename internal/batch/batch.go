// Package batch holds the availability snapshot of one generation pass.
package batch

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/tunnelvisionlabs/language-types/internal/avail"
	"github.com/tunnelvisionlabs/language-types/internal/symkey"
)

// Entry pairs a requested polyfill key with its availability.
type Entry struct {
	Key   symkey.Key
	State avail.State
}

// Batch is built once per compilation and never mutated.
type Batch struct {
	unit    avail.UnitID
	entries []Entry
	prereqs map[symkey.Key]avail.State
}

// New validates and copies its inputs. Entries are sorted by key; duplicate
// keys or invalid states are rejected.
func New(unit avail.UnitID, entries []Entry, prereqs map[symkey.Key]avail.State) (*Batch, error) {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b Entry) int { return symkey.Compare(a.Key, b.Key) })
	for i, e := range sorted {
		if !e.Key.IsValid() {
			return nil, fmt.Errorf("batch %s: entry #%d has no key", unit, i)
		}
		if !e.State.Valid() {
			return nil, fmt.Errorf("batch %s: %s has invalid state %d", unit, e.Key, e.State)
		}
		if i > 0 && sorted[i-1].Key == e.Key {
			return nil, fmt.Errorf("batch %s: duplicate key %s", unit, e.Key)
		}
	}
	pre := make(map[symkey.Key]avail.State, len(prereqs))
	for k, st := range prereqs {
		if !st.Valid() {
			return nil, fmt.Errorf("batch %s: prerequisite %s has invalid state %d", unit, k, st)
		}
		pre[k] = st
	}
	return &Batch{unit: unit, entries: sorted, prereqs: pre}, nil
}

// Unit is the compilation unit the batch was probed for.
func (b *Batch) Unit() avail.UnitID { return b.unit }

// Len returns the number of entries.
func (b *Batch) Len() int { return len(b.entries) }

// Entries returns a copy of the entries in key order.
func (b *Batch) Entries() []Entry { return slices.Clone(b.entries) }

// Prerequisite returns the probed state of a prerequisite key.
func (b *Batch) Prerequisite(k symkey.Key) (avail.State, bool) {
	st, ok := b.prereqs[k]
	return st, ok
}

// Digest is a SHA-256 fingerprint.
type Digest [32]byte

func (d Digest) String() string { return fmt.Sprintf("%x", d[:]) }

// Short returns the first 12 hex digits.
func (d Digest) Short() string { return d.String()[:12] }

// Combine hashes content followed by deps. The order of deps matters.
func Combine(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// Fingerprint identifies the batch input together with the template
// revision. Equal fingerprints produce byte-identical artifacts.
func (b *Batch) Fingerprint(registryVersion uint32) Digest {
	var head [4]byte
	binary.BigEndian.PutUint32(head[:], registryVersion)
	base := sha256.Sum256(append(head[:], string(b.unit)...))

	deps := make([]Digest, 0, len(b.entries)+len(b.prereqs))
	for _, e := range b.entries {
		deps = append(deps, entryDigest('e', e.Key, e.State))
	}
	keys := make([]symkey.Key, 0, len(b.prereqs))
	for k := range b.prereqs {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, symkey.Compare)
	for _, k := range keys {
		deps = append(deps, entryDigest('p', k, b.prereqs[k]))
	}
	return Combine(base, deps...)
}

func entryDigest(kind byte, k symkey.Key, st avail.State) Digest {
	buf := make([]byte, 0, len(k.String())+3)
	buf = append(buf, kind, byte(st), 0)
	buf = append(buf, k.String()...)
	return sha256.Sum256(buf)
}
