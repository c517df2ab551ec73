// Package trace records what the generator did during a run.
//
// Tracing is the structured log of the tool: every generation pass opens a
// driver span, each batch opens a batch span, and every probed symbol and
// emission decision becomes a symbol-scope point event.
//
// # Usage
//
//	polyfill gen --trace=- --trace-level=debug app.compilation.toml
//
// # Implementations
//
//   - Nop: no-op tracer used when tracing is disabled
//   - StreamTracer: writes events immediately (text or NDJSON)
//   - RingTracer: keeps the last N events for dumping after a failure
//   - MultiTracer: fans out to several tracers
//
// # Levels
//
//   - LevelOff: nothing
//   - LevelError: nothing in-line, ring dumps only
//   - LevelPhase: driver spans
//   - LevelDetail: driver and batch spans
//   - LevelDebug: everything, including per-symbol events
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeBatch, "emit", parent)
//	defer span.End("")
package trace
