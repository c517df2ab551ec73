// Package diag defines the diagnostics a generation pass reports back to its
// host.
//
// A Diagnostic carries a Severity, a stable Code, a short Message and the
// Subject it concerns: a symbol key, an artifact name or a compilation unit.
// Producers report through a Reporter so storage and rendering stay out of the
// generator; BagReporter collects into a capped Bag, DedupReporter drops
// repeats. FormatShort renders a deterministic one-line-per-entry listing for
// the CLI and for tests.
package diag
