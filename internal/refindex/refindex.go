// Package refindex stores the exported symbol table of a referenced unit in
// a compact msgpack file, so a compilation manifest can point at a prebuilt
// index instead of listing every symbol inline.
package refindex

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tunnelvisionlabs/language-types/internal/symkey"
)

// SchemaVersion changes whenever the Index layout does.
const SchemaVersion uint16 = 1

// ErrSchema reports an index written with a different schema.
var ErrSchema = errors.New("refindex: schema version mismatch")

// Symbol is one entry of an export index.
type Symbol struct {
	Name     string `msgpack:"n"`
	Internal bool   `msgpack:"i,omitempty"`
}

// Index is the export table of one unit.
type Index struct {
	Schema  uint16   `msgpack:"schema"`
	Unit    string   `msgpack:"unit"`
	Count   uint32   `msgpack:"count"`
	Symbols []Symbol `msgpack:"symbols"`
}

// New returns an index for unit with symbols sorted by name. Duplicate names
// are an error.
func New(unit string, symbols []Symbol) (*Index, error) {
	if strings.TrimSpace(unit) == "" {
		return nil, fmt.Errorf("refindex: empty unit name")
	}
	syms := slices.Clone(symbols)
	for i := range syms {
		k, err := symkey.Parse(syms[i].Name)
		if err != nil {
			return nil, fmt.Errorf("refindex %s: %w", unit, err)
		}
		syms[i].Name = k.String()
	}
	slices.SortFunc(syms, func(a, b Symbol) int { return strings.Compare(a.Name, b.Name) })
	for i := 1; i < len(syms); i++ {
		if syms[i].Name == syms[i-1].Name {
			return nil, fmt.Errorf("refindex %s: duplicate symbol %s", unit, syms[i].Name)
		}
	}
	count, err := safecast.Conv[uint32](len(syms))
	if err != nil {
		return nil, fmt.Errorf("refindex %s: %w", unit, err)
	}
	return &Index{Schema: SchemaVersion, Unit: unit, Count: count, Symbols: syms}, nil
}

// Lookup reports the entry named name.
func (x *Index) Lookup(name string) (Symbol, bool) {
	i, ok := slices.BinarySearchFunc(x.Symbols, name, func(s Symbol, n string) int {
		return strings.Compare(s.Name, n)
	})
	if !ok {
		return Symbol{}, false
	}
	return x.Symbols[i], true
}

// Build parses a plain symbol list: one name per line, '#' starts a comment,
// an "internal " prefix marks a symbol that is not accessible from outside.
func Build(unit string, r io.Reader) (*Index, error) {
	var syms []Symbol
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text, _, _ := strings.Cut(sc.Text(), "#")
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		var s Symbol
		if rest, ok := strings.CutPrefix(text, "internal "); ok {
			s.Internal = true
			text = strings.TrimSpace(rest)
		}
		if _, err := symkey.Parse(text); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		s.Name = text
		syms = append(syms, s)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return New(unit, syms)
}

// Encode writes x to w.
func Encode(w io.Writer, x *Index) error {
	return msgpack.NewEncoder(w).Encode(x)
}

// Decode reads an index from r and checks its schema.
func Decode(r io.Reader) (*Index, error) {
	var x Index
	if err := msgpack.NewDecoder(r).Decode(&x); err != nil {
		return nil, fmt.Errorf("refindex: decode: %w", err)
	}
	if x.Schema != SchemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSchema, x.Schema, SchemaVersion)
	}
	if n, err := safecast.Conv[uint32](len(x.Symbols)); err != nil || n != x.Count {
		return nil, fmt.Errorf("refindex %s: symbol count %d does not match header %d", x.Unit, len(x.Symbols), x.Count)
	}
	return &x, nil
}

// Write stores x at path, replacing any previous file atomically.
func Write(path string, x *Index) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".pfi-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()
	if err = Encode(f, x); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// Read loads the index at path.
func Read(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	x, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return x, nil
}
