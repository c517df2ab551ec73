package diag

import (
	"fmt"
	"slices"
	"strings"
)

// FormatShort renders diagnostics one per line as "severity CODE subject: message",
// sorted deterministically. Infos are dropped unless includeInfo is set.
func FormatShort(diags []Diagnostic, includeInfo bool) string {
	if len(diags) == 0 {
		return ""
	}
	sorted := slices.Clone(diags)
	b := Bag{items: sorted, max: ^uint16(0)}
	b.Sort()

	var sb strings.Builder
	first := true
	for _, d := range b.items {
		if d.Severity == SevInfo && !includeInfo {
			continue
		}
		if !first {
			sb.WriteByte('\n')
		}
		first = false
		subject := d.Subject
		if subject == "" {
			subject = "-"
		}
		fmt.Fprintf(&sb, "%s %s %s: %s", d.Severity.label(), d.Code.ID(), subject, sanitizeMessage(d.Message))
	}
	return sb.String()
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
