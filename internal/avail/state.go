package avail

// State describes where a symbol already resolves from the point of view of
// the compilation under construction.
type State uint8

const (
	// Absent means the name does not resolve anywhere visible to the compilation.
	Absent State = iota
	// ReferencedExternally means the name resolves to a symbol owned by another unit.
	ReferencedExternally
	// DefinedLocally means the name resolves to a symbol owned by the unit being built.
	DefinedLocally

	numStates
)

// States lists every state in declaration order.
var States = [...]State{Absent, ReferencedExternally, DefinedLocally}

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case ReferencedExternally:
		return "referenced"
	case DefinedLocally:
		return "local"
	}
	return "unknown"
}

// Valid reports whether s is one of the declared states.
func (s State) Valid() bool { return s < numStates }

// ParseState converts the String form back to a State.
func ParseState(s string) (State, bool) {
	for _, st := range States {
		if st.String() == s {
			return st, true
		}
	}
	return 0, false
}
