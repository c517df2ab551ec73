// Package decision maps an availability state to the artifact the generator
// must produce for it.
package decision

import (
	"fmt"

	"github.com/tunnelvisionlabs/language-types/internal/avail"
)

// Decision is the emission action for one symbol.
type Decision uint8

const (
	// EmitDefinition emits the full polyfill source.
	EmitDefinition Decision = iota
	// EmitForward adds the symbol to the shared forwarding artifact.
	EmitForward
	// Suppress emits nothing.
	Suppress
)

func (d Decision) String() string {
	switch d {
	case EmitDefinition:
		return "define"
	case EmitForward:
		return "forward"
	case Suppress:
		return "suppress"
	}
	return "unknown"
}

var table = [...]Decision{
	avail.Absent:               EmitDefinition,
	avail.ReferencedExternally: EmitForward,
	avail.DefinedLocally:       Suppress,
}

// Decide returns the decision for st. An undeclared state is a programming
// error and panics.
func Decide(st avail.State) Decision {
	if !st.Valid() {
		panic(fmt.Sprintf("decision: invalid availability state %d", st))
	}
	return table[st]
}
