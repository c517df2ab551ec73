// Package newline canonicalises line terminators in generated text.
//
// Recognised terminators are CRLF, CR, LF, form feed (U+000C), NEL (U+0085),
// LINE SEPARATOR (U+2028) and PARAGRAPH SEPARATOR (U+2029). Each one counts as
// a single logical line break and is rewritten to the target Style.
package newline

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/transform"
)

// Style is the canonical newline sequence written to output.
type Style uint8

const (
	LF Style = iota
	CRLF
)

func (s Style) String() string {
	switch s {
	case LF:
		return "lf"
	case CRLF:
		return "crlf"
	}
	return "unknown"
}

// Sequence returns the bytes written for one line break.
func (s Style) Sequence() string {
	if s == CRLF {
		return "\r\n"
	}
	return "\n"
}

// ParseStyle accepts "lf" or "crlf" (case-insensitive). Empty means LF.
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lf":
		return LF, nil
	case "crlf":
		return CRLF, nil
	default:
		return LF, fmt.Errorf("invalid newline style %q (expected: lf|crlf)", s)
	}
}

const (
	nel = '\u0085'
	ls  = '\u2028'
	ps  = '\u2029'
)

// breakAt reports the length of the line terminator starting at src[0], or 0
// when src does not start with one. short is set when src ends inside a
// sequence that might still become a terminator.
func breakAt(src []byte, atEOF bool) (n int, short bool) {
	switch src[0] {
	case '\n', '\f':
		return 1, false
	case '\r':
		if len(src) == 1 {
			if !atEOF {
				return 0, true
			}
			return 1, false
		}
		if src[1] == '\n' {
			return 2, false
		}
		return 1, false
	case 0xC2, 0xE2:
		if !utf8.FullRune(src) {
			if !atEOF {
				return 0, true
			}
			return 0, false
		}
		r, size := utf8.DecodeRune(src)
		if r == nel || r == ls || r == ps {
			return size, false
		}
	}
	return 0, false
}

type normalizer struct {
	seq []byte
}

// Transformer returns a transform.Transformer rewriting every recognised
// terminator to style.
func Transformer(style Style) transform.Transformer {
	return &normalizer{seq: []byte(style.Sequence())}
}

func (t *normalizer) Reset() {}

func (t *normalizer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		n, short := breakAt(src[nSrc:], atEOF)
		if short {
			return nDst, nSrc, transform.ErrShortSrc
		}
		if n > 0 {
			if nDst+len(t.seq) > len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			nDst += copy(dst[nDst:], t.seq)
			nSrc += n
			continue
		}
		if nDst >= len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		dst[nDst] = src[nSrc]
		nDst++
		nSrc++
	}
	return nDst, nSrc, nil
}

// Normalize rewrites every terminator in s to style.
func Normalize(s string, style Style) string {
	out, _, err := transform.String(Transformer(style), s)
	if err != nil {
		// the transformer never fails on complete input
		panic(fmt.Errorf("newline: %w", err))
	}
	return out
}

// CountLines returns the number of logical lines in s: one per terminator,
// plus one for trailing text that is not terminated.
func CountLines(s string) int {
	lines := 0
	b := []byte(s)
	tail := false
	for i := 0; i < len(b); {
		n, _ := breakAt(b[i:], true)
		if n > 0 {
			lines++
			tail = false
			i += n
			continue
		}
		tail = true
		i++
	}
	if tail {
		lines++
	}
	return lines
}

// HasForeign reports whether s contains any terminator other than the
// given style's own sequence.
func HasForeign(s string, style Style) bool {
	b := []byte(s)
	for i := 0; i < len(b); {
		n, _ := breakAt(b[i:], true)
		if n == 0 {
			i++
			continue
		}
		if string(b[i:i+n]) != style.Sequence() {
			return true
		}
		i += n
	}
	return false
}
