// Package registry holds the canonical source text of every polyfill.
//
// The registry is immutable after Load. Each Template is keyed by its symbol
// key and may depend on the availability of one prerequisite symbol, in which
// case it carries one text variant per prerequisite state. Choosing a variant
// never decides whether the template is emitted; that is the decision table's
// job.
package registry

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"

	"github.com/tunnelvisionlabs/language-types/internal/avail"
	"github.com/tunnelvisionlabs/language-types/internal/symkey"
)

// ManifestName is the manifest file at the root of a template tree.
const ManifestName = "manifest.toml"

//go:embed templates
var embedded embed.FS

// Variant is one pre-authored text of a template.
type Variant struct {
	Tag  string
	Text string
}

// Template is the registered definition of one polyfill.
type Template struct {
	Key          symkey.Key
	Artifact     string
	Prerequisite symkey.Key // zero when the text does not vary

	variants [len(avail.States)]Variant
}

// HasPrerequisite reports whether the text depends on another symbol.
func (t *Template) HasPrerequisite() bool { return t.Prerequisite.IsValid() }

// Select returns the variant for the prerequisite's availability. Templates
// without a prerequisite ignore st.
func (t *Template) Select(st avail.State) Variant {
	if !t.HasPrerequisite() || !st.Valid() {
		return t.variants[avail.Absent]
	}
	return t.variants[st]
}

// Variants returns the distinct variant tags in state order.
func (t *Template) Variants() []string {
	var tags []string
	for _, v := range t.variants {
		if !slices.Contains(tags, v.Tag) {
			tags = append(tags, v.Tag)
		}
	}
	return tags
}

// Registry is the immutable set of templates.
type Registry struct {
	version   uint32
	templates map[symkey.Key]*Template
	keys      []symkey.Key
}

// Version identifies the template content revision.
func (r *Registry) Version() uint32 { return r.version }

// Len returns the number of templates.
func (r *Registry) Len() int { return len(r.keys) }

// Keys returns every registered key in sorted order.
func (r *Registry) Keys() []symkey.Key { return slices.Clone(r.keys) }

// Lookup returns the template registered for k.
func (r *Registry) Lookup(k symkey.Key) (*Template, bool) {
	t, ok := r.templates[k]
	return t, ok
}

// Prerequisites returns the sorted, distinct prerequisite keys of the given
// templates. Unknown keys are skipped.
func (r *Registry) Prerequisites(keys []symkey.Key) []symkey.Key {
	var out []symkey.Key
	for _, k := range keys {
		if t, ok := r.templates[k]; ok && t.HasPrerequisite() {
			out = append(out, t.Prerequisite)
		}
	}
	slices.SortFunc(out, symkey.Compare)
	return slices.Compact(out)
}

var loadDefault = sync.OnceValues(func() (*Registry, error) {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return nil, err
	}
	return Load(sub)
})

// Default returns the registry built from the embedded templates. It is
// loaded once per process.
func Default() *Registry {
	r, err := loadDefault()
	if err != nil {
		panic(fmt.Errorf("embedded template registry: %w", err))
	}
	return r
}

type manifest struct {
	Version  int64           `toml:"version"`
	Polyfill []manifestEntry `toml:"polyfill"`
}

type manifestEntry struct {
	Key          string                     `toml:"key"`
	File         string                     `toml:"file"`
	Artifact     string                     `toml:"artifact"`
	Prerequisite string                     `toml:"prerequisite"`
	Variants     map[string]manifestVariant `toml:"variants"`
}

type manifestVariant struct {
	Tag  string `toml:"tag"`
	File string `toml:"file"`
}

// Load reads ManifestName and the template files it names from fsys.
func Load(fsys fs.FS) (*Registry, error) {
	data, err := fs.ReadFile(fsys, ManifestName)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ManifestName, err)
	}
	var m manifest
	meta, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", ManifestName, err)
	}
	if !meta.IsDefined("version") {
		return nil, fmt.Errorf("%s: missing version", ManifestName)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown field %s", ManifestName, undecoded[0])
	}
	version, err := safecast.Conv[uint32](m.Version)
	if err != nil {
		return nil, fmt.Errorf("%s: version: %w", ManifestName, err)
	}

	r := &Registry{
		version:   version,
		templates: make(map[symkey.Key]*Template, len(m.Polyfill)),
	}
	artifacts := make(map[string]symkey.Key, len(m.Polyfill))
	var errs []error
	for i, e := range m.Polyfill {
		t, err := buildTemplate(fsys, e)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: polyfill #%d: %w", ManifestName, i+1, err))
			continue
		}
		if _, dup := r.templates[t.Key]; dup {
			errs = append(errs, fmt.Errorf("%s: duplicate key %s", ManifestName, t.Key))
			continue
		}
		if other, dup := artifacts[t.Artifact]; dup {
			errs = append(errs, fmt.Errorf("%s: %s and %s share artifact %s", ManifestName, other, t.Key, t.Artifact))
			continue
		}
		artifacts[t.Artifact] = t.Key
		r.templates[t.Key] = t
		r.keys = append(r.keys, t.Key)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	slices.SortFunc(r.keys, symkey.Compare)
	return r, nil
}

func buildTemplate(fsys fs.FS, e manifestEntry) (*Template, error) {
	key, err := symkey.Parse(e.Key)
	if err != nil {
		return nil, err
	}
	t := &Template{Key: key, Artifact: e.Artifact}
	if t.Artifact == "" {
		t.Artifact = key.ArtifactName()
	}
	if err := checkArtifactName(t.Artifact); err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}

	if e.Prerequisite == "" {
		if len(e.Variants) > 0 {
			return nil, fmt.Errorf("%s: variants require a prerequisite", key)
		}
		text, err := readTemplate(fsys, e.File)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		for i := range t.variants {
			t.variants[i] = Variant{Tag: "default", Text: text}
		}
		return t, nil
	}

	if t.Prerequisite, err = symkey.Parse(e.Prerequisite); err != nil {
		return nil, fmt.Errorf("%s: prerequisite: %w", key, err)
	}
	if t.Prerequisite == key {
		return nil, fmt.Errorf("%s: template cannot be its own prerequisite", key)
	}
	if e.File != "" {
		return nil, fmt.Errorf("%s: use variants instead of file when a prerequisite is set", key)
	}
	for name := range e.Variants {
		if _, ok := avail.ParseState(name); !ok {
			return nil, fmt.Errorf("%s: unknown variant state %q", key, name)
		}
	}
	for _, st := range avail.States {
		mv, ok := e.Variants[st.String()]
		if !ok {
			return nil, fmt.Errorf("%s: missing variant for prerequisite state %q", key, st)
		}
		if strings.TrimSpace(mv.Tag) == "" {
			return nil, fmt.Errorf("%s: variant %q has no tag", key, st)
		}
		text, err := readTemplate(fsys, mv.File)
		if err != nil {
			return nil, fmt.Errorf("%s: variant %q: %w", key, st, err)
		}
		t.variants[st] = Variant{Tag: mv.Tag, Text: text}
	}
	return t, nil
}

func readTemplate(fsys fs.FS, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("missing template file")
	}
	if !fs.ValidPath(name) {
		return "", fmt.Errorf("invalid template path %q", name)
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("template %s is empty", name)
	}
	return string(data), nil
}

func checkArtifactName(name string) error {
	if path.Base(name) != name || strings.ContainsAny(name, `\:`) {
		return fmt.Errorf("artifact name %q must be a bare file name", name)
	}
	if !strings.HasSuffix(name, ".cs") {
		return fmt.Errorf("artifact name %q must end in .cs", name)
	}
	return nil
}
