// Package symkey defines the identifier of a polyfill declaration.
//
// A Key is a fully-qualified metadata name such as "System.Index" or
// "System.ValueTuple`2". Keys are canonicalised to Unicode NFC on parse so
// that two spellings of the same identifier map to one registry entry.
package symkey

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Key identifies a polyfill declaration. The zero value is invalid.
type Key struct {
	name string
}

// Parse validates s and returns its canonical Key.
func Parse(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Key{}, fmt.Errorf("empty symbol key")
	}
	s = norm.NFC.String(s)
	for _, seg := range strings.Split(s, ".") {
		if seg == "" {
			return Key{}, fmt.Errorf("symbol key %q: empty segment", s)
		}
		if err := checkSegment(seg); err != nil {
			return Key{}, fmt.Errorf("symbol key %q: %w", s, err)
		}
	}
	return Key{name: s}, nil
}

// MustParse is Parse for static tables; it panics on malformed input.
func MustParse(s string) Key {
	k, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return k
}

func checkSegment(seg string) error {
	name, arity, generic := strings.Cut(seg, "`")
	if name == "" {
		return fmt.Errorf("segment %q has no identifier", seg)
	}
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r)):
		default:
			return fmt.Errorf("segment %q: invalid character %q", seg, r)
		}
	}
	if generic {
		if arity == "" {
			return fmt.Errorf("segment %q: missing generic arity", seg)
		}
		for _, r := range arity {
			if r < '0' || r > '9' {
				return fmt.Errorf("segment %q: invalid generic arity", seg)
			}
		}
		if arity[0] == '0' {
			return fmt.Errorf("segment %q: generic arity must be positive without leading zeros", seg)
		}
	}
	return nil
}

// String returns the metadata name.
func (k Key) String() string { return k.name }

// IsValid reports whether k came from Parse.
func (k Key) IsValid() bool { return k.name != "" }

// Namespace returns everything before the last dot ("" for global types).
func (k Key) Namespace() string {
	if i := strings.LastIndexByte(k.name, '.'); i >= 0 {
		return k.name[:i]
	}
	return ""
}

// Name returns the simple type name including any generic arity suffix.
func (k Key) Name() string {
	if i := strings.LastIndexByte(k.name, '.'); i >= 0 {
		return k.name[i+1:]
	}
	return k.name
}

// ArtifactName returns the default file name of the key's definition artifact.
// The generic arity marker becomes an underscore: System.ValueTuple`2 -> System.ValueTuple_2.g.cs.
func (k Key) ArtifactName() string {
	return strings.ReplaceAll(k.name, "`", "_") + ".g.cs"
}

// Compare orders keys by ordinal comparison of their names.
func Compare(a, b Key) int {
	return strings.Compare(a.name, b.name)
}
