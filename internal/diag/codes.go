package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	// generation failures
	GenUnknownSymbolKey  Code = 1001
	GenBatchAborted      Code = 1002
	GenResolverFault     Code = 1003
	GenDuplicateArtifact Code = 1004
	GenInvalidOptions    Code = 1005

	// informational decisions
	InfoForwarded     Code = 2001
	InfoDefinedLocal  Code = 2002
	InfoDefinitionOut Code = 2003

	// input/output
	IOLoadCompilation Code = 3001
	IOWriteArtifact   Code = 3002
	IOReadIndex       Code = 3003
)

var codeDescription = map[Code]string{
	UnknownCode:          "Unknown error",
	GenUnknownSymbolKey:  "symbol key is not in the template registry",
	GenBatchAborted:      "generation batch aborted, nothing emitted",
	GenResolverFault:     "host symbol resolution failed",
	GenDuplicateArtifact: "artifact name emitted twice",
	GenInvalidOptions:    "invalid generator options",
	InfoForwarded:        "symbol forwarded to referenced unit",
	InfoDefinedLocal:     "symbol already defined in this unit",
	InfoDefinitionOut:    "polyfill definition emitted",
	IOLoadCompilation:    "failed to load compilation",
	IOWriteArtifact:      "failed to write artifact",
	IOReadIndex:          "failed to read export index",
}

// ID returns the stable identifier, e.g. GEN1001.
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("GEN%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("INF%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
