package diag

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	// Subject is the symbol key, artifact or unit the diagnostic is about.
	Subject string
}
