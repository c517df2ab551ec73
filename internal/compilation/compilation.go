// Package compilation is a file-backed stand-in for the host compiler's
// symbol table. A compilation is the unit under construction plus an ordered
// list of referenced units; lookups follow the host's best-match policy.
package compilation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/tunnelvisionlabs/language-types/internal/avail"
	"github.com/tunnelvisionlabs/language-types/internal/refindex"
	"github.com/tunnelvisionlabs/language-types/internal/symkey"
)

// Reference describes one referenced unit.
type Reference struct {
	Name     string
	Symbols  []string // accessible from the compilation
	Internal []string // present but inaccessible
}

type refUnit struct {
	name       avail.UnitID
	accessible map[string]struct{}
}

// Compilation implements avail.Resolver. It is immutable after construction.
type Compilation struct {
	path  string
	unit  avail.UnitID
	local map[string]struct{}
	refs  []refUnit
}

// New builds a compilation from in-memory tables.
func New(unit string, local []string, refs ...Reference) (*Compilation, error) {
	if unit == "" {
		return nil, errors.New("compilation: empty unit name")
	}
	c := &Compilation{unit: avail.UnitID(unit)}
	var err error
	if c.local, err = nameSet(local); err != nil {
		return nil, fmt.Errorf("unit %s: %w", unit, err)
	}
	seen := map[string]bool{unit: true}
	for _, r := range refs {
		if r.Name == "" {
			return nil, errors.New("compilation: reference without a name")
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("compilation: unit %s listed twice", r.Name)
		}
		seen[r.Name] = true
		acc, err := nameSet(r.Symbols)
		if err != nil {
			return nil, fmt.Errorf("reference %s: %w", r.Name, err)
		}
		// Internal names are validated but never resolve.
		if _, err := nameSet(r.Internal); err != nil {
			return nil, fmt.Errorf("reference %s: %w", r.Name, err)
		}
		c.refs = append(c.refs, refUnit{name: avail.UnitID(r.Name), accessible: acc})
	}
	return c, nil
}

func nameSet(names []string) (map[string]struct{}, error) {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		k, err := symkey.Parse(n)
		if err != nil {
			return nil, err
		}
		set[k.String()] = struct{}{}
	}
	return set, nil
}

// Unit returns the unit under construction.
func (c *Compilation) Unit() avail.UnitID { return c.unit }

// Path returns the manifest path, "" for in-memory compilations.
func (c *Compilation) Path() string { return c.path }

// References lists referenced unit names in declaration order.
func (c *Compilation) References() []avail.UnitID {
	out := make([]avail.UnitID, len(c.refs))
	for i, r := range c.refs {
		out[i] = r.name
	}
	return out
}

// Resolve returns the best match for name: the compilation's own definition,
// else the first accessible definition among the references in order.
func (c *Compilation) Resolve(ctx context.Context, name string) (avail.Symbol, bool, error) {
	if err := ctx.Err(); err != nil {
		return avail.Symbol{}, false, err
	}
	if _, ok := c.local[name]; ok {
		return avail.Symbol{Name: name, Owner: c.unit}, true, nil
	}
	for _, r := range c.refs {
		if _, ok := r.accessible[name]; ok {
			return avail.Symbol{Name: name, Owner: r.name}, true, nil
		}
	}
	return avail.Symbol{}, false, nil
}

type manifest struct {
	Unit      manifestUnit  `toml:"unit"`
	Reference []manifestRef `toml:"reference"`
}

type manifestUnit struct {
	Name    string   `toml:"name"`
	Symbols []string `toml:"symbols"`
}

type manifestRef struct {
	Name     string   `toml:"name"`
	Symbols  []string `toml:"symbols"`
	Internal []string `toml:"internal"`
	Index    string   `toml:"index"`
}

// Load reads a compilation manifest. Index paths are relative to the
// manifest's directory.
func Load(path string) (*Compilation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m manifest
	meta, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("unit", "name") {
		return nil, fmt.Errorf("%s: missing [unit].name", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown field %s", path, undecoded[0])
	}

	base := filepath.Dir(path)
	refs := make([]Reference, 0, len(m.Reference))
	for _, mr := range m.Reference {
		r := Reference{Name: mr.Name, Symbols: mr.Symbols, Internal: mr.Internal}
		if mr.Index != "" {
			if err := mergeIndex(&r, resolvePath(base, mr.Index)); err != nil {
				return nil, fmt.Errorf("%s: reference %s: %w", path, mr.Name, err)
			}
		}
		refs = append(refs, r)
	}
	c, err := New(m.Unit.Name, m.Unit.Symbols, refs...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.path = path
	return c, nil
}

func mergeIndex(r *Reference, path string) error {
	x, err := refindex.Read(path)
	if err != nil {
		return err
	}
	if x.Unit != r.Name {
		return fmt.Errorf("index %s belongs to unit %s", path, x.Unit)
	}
	for _, s := range x.Symbols {
		if s.Internal {
			r.Internal = append(r.Internal, s.Name)
		} else {
			r.Symbols = append(r.Symbols, s.Name)
		}
	}
	return nil
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
