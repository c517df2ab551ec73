package diag

import "sync"

// Reporter receives diagnostics from the generator.
type Reporter interface {
	Report(code Code, sev Severity, subject, msg string)
}

// ReportError is a shortcut for SevError diagnostics.
func ReportError(r Reporter, code Code, subject, msg string) {
	if r != nil {
		r.Report(code, SevError, subject, msg)
	}
}

// ReportInfo is a shortcut for SevInfo diagnostics.
func ReportInfo(r Reporter, code Code, subject, msg string) {
	if r != nil {
		r.Report(code, SevInfo, subject, msg)
	}
}

// BagReporter writes into a Bag. It is safe for concurrent use.
type BagReporter struct {
	mu  sync.Mutex
	Bag *Bag
}

func (r *BagReporter) Report(code Code, sev Severity, subject, msg string) {
	if r == nil || r.Bag == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Bag.Add(Diagnostic{Severity: sev, Code: code, Message: msg, Subject: subject})
}

// NopReporter drops everything.
type NopReporter struct{}

func (NopReporter) Report(Code, Severity, string, string) {}

type dedupKey struct {
	code    Code
	sev     Severity
	subject string
	msg     string
}

// DedupReporter forwards each distinct diagnostic once.
type DedupReporter struct {
	mu   sync.Mutex
	next Reporter
	seen map[dedupKey]struct{}
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: make(map[dedupKey]struct{})}
}

func (r *DedupReporter) Report(code Code, sev Severity, subject, msg string) {
	if r == nil {
		return
	}
	k := dedupKey{code, sev, subject, msg}
	r.mu.Lock()
	if _, ok := r.seen[k]; ok {
		r.mu.Unlock()
		return
	}
	r.seen[k] = struct{}{}
	r.mu.Unlock()
	if r.next != nil {
		r.next.Report(code, sev, subject, msg)
	}
}
