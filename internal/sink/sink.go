// Package sink delivers emitted artifacts to their destination.
package sink

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/tunnelvisionlabs/language-types/internal/emit"
)

// ErrDuplicate is returned when an artifact name is added twice.
var ErrDuplicate = errors.New("artifact already added")

// Sink is the host output: it accepts uniquely named texts.
type Sink interface {
	Add(name, text string) error
}

// Publish checks the whole set for name clashes and only then hands it to s.
func Publish(s Sink, arts []emit.Artifact) error {
	seen := make(map[string]struct{}, len(arts))
	for _, a := range arts {
		if _, dup := seen[a.Name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicate, a.Name)
		}
		seen[a.Name] = struct{}{}
	}
	for _, a := range arts {
		if err := s.Add(a.Name, a.Text); err != nil {
			return err
		}
	}
	return nil
}

// Memory keeps artifacts in insertion order.
type Memory struct {
	mu    sync.Mutex
	names []string
	texts map[string]string
}

func NewMemory() *Memory { return &Memory{texts: make(map[string]string)} }

func (m *Memory) Add(name, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.texts[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	m.names = append(m.names, name)
	m.texts[name] = text
	return nil
}

// Names returns artifact names in insertion order.
func (m *Memory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.names)
}

// Text returns the text stored under name.
func (m *Memory) Text(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.texts[name]
	return t, ok
}

// Len returns the number of stored artifacts.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.names)
}

// GeneratedSuffix marks files owned by the generator in a Dir.
const GeneratedSuffix = ".g.cs"

// Dir writes artifacts as files under Root.
type Dir struct {
	Root string

	mu      sync.Mutex
	written map[string]struct{}
}

func NewDir(root string) *Dir {
	return &Dir{Root: root, written: make(map[string]struct{})}
}

// Add writes text to Root/name through a temp file and rename, so readers
// never observe a half-written artifact.
func (d *Dir) Add(name, text string) error {
	if filepath.Base(name) != name || name == "." || name == ".." {
		return fmt.Errorf("artifact name %q must be a bare file name", name)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, dup := d.written[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	if err := os.MkdirAll(d.Root, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(d.Root, ".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, filepath.Join(d.Root, name)); err != nil {
		os.Remove(tmp)
		return err
	}
	d.written[name] = struct{}{}
	return nil
}

// Prune removes generated files under Root that were not written through d.
// It returns the removed names in sorted order.
func (d *Dir) Prune() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	entries, err := os.ReadDir(d.Root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var removed []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, GeneratedSuffix) {
			continue
		}
		if _, keep := d.written[name]; keep {
			continue
		}
		if err := os.Remove(filepath.Join(d.Root, name)); err != nil {
			return removed, err
		}
		removed = append(removed, name)
	}
	slices.Sort(removed)
	return removed, nil
}
