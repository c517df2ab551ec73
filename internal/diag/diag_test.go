package diag

import (
	"testing"
)

func TestBagCapacity(t *testing.T) {
	b := NewBag(2)
	for i := 0; i < 3; i++ {
		b.Add(Diagnostic{Severity: SevInfo, Code: InfoForwarded, Subject: "System.Index"})
	}
	if b.Len() != 2 {
		t.Fatalf("expected bag capped at 2, got %d", b.Len())
	}
	if b.HasErrors() {
		t.Fatalf("no errors expected")
	}
}

func TestFullBagKeepsErrors(t *testing.T) {
	b := NewBag(2)
	b.Add(Diagnostic{Severity: SevInfo, Code: InfoForwarded, Subject: "App:System.Index"})
	b.Add(Diagnostic{Severity: SevInfo, Code: InfoDefinitionOut, Subject: "App:System.Range"})
	if !b.Add(Diagnostic{Severity: SevError, Code: IOWriteArtifact, Subject: "Lib"}) {
		t.Fatalf("error rejected by a bag full of infos")
	}
	if b.Len() != 2 || !b.HasErrors() {
		t.Fatalf("items = %v", b.Items())
	}
	if b.Items()[0].Subject != "App:System.Index" {
		t.Fatalf("evicted the wrong info: %v", b.Items())
	}
	if !b.Add(Diagnostic{Severity: SevError, Code: GenBatchAborted, Subject: "Other"}) {
		t.Fatalf("second error rejected")
	}
	if b.Add(Diagnostic{Severity: SevError, Code: GenResolverFault, Subject: "Third"}) {
		t.Fatalf("error displaced another error")
	}
	if b.Add(Diagnostic{Severity: SevInfo, Code: InfoForwarded, Subject: "Late"}) {
		t.Fatalf("info displaced an error")
	}
}

func TestNewBagOverflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for capacity overflow")
		}
	}()
	NewBag(1 << 20)
}

func TestBagMergeGrows(t *testing.T) {
	a := NewBag(1)
	a.Add(Diagnostic{Code: InfoForwarded, Subject: "A"})
	b := NewBag(2)
	b.Add(Diagnostic{Severity: SevError, Code: GenUnknownSymbolKey, Subject: "B"})
	b.Add(Diagnostic{Code: InfoForwarded, Subject: "C"})
	a.Merge(b)
	if a.Len() != 3 || !a.HasErrors() {
		t.Fatalf("merge lost diagnostics: %v", a.Items())
	}
}

func TestBagDedup(t *testing.T) {
	b := NewBag(8)
	b.Add(Diagnostic{Code: InfoForwarded, Subject: "A", Message: "one"})
	b.Add(Diagnostic{Code: InfoForwarded, Subject: "A", Message: "two"})
	b.Add(Diagnostic{Code: InfoForwarded, Subject: "B"})
	b.Dedup()
	if b.Len() != 2 {
		t.Fatalf("expected 2 after dedup, got %d", b.Len())
	}
}

func TestFormatShort(t *testing.T) {
	diags := []Diagnostic{
		{Severity: SevInfo, Code: InfoForwarded, Subject: "System.Range", Message: "forwarded"},
		{Severity: SevError, Code: GenUnknownSymbolKey, Subject: "System.Bogus", Message: "not\r\nregistered"},
		{Severity: SevError, Code: GenBatchAborted, Message: "cancelled"},
	}
	want := "error GEN1002 -: cancelled\n" +
		"error GEN1001 System.Bogus: not registered\n" +
		"info INF2001 System.Range: forwarded"
	if got := FormatShort(diags, true); got != want {
		t.Fatalf("unexpected output:\nwant:\n%s\n\ngot:\n%s", want, got)
	}
	wantNoInfo := "error GEN1002 -: cancelled\nerror GEN1001 System.Bogus: not registered"
	if got := FormatShort(diags, false); got != wantNoInfo {
		t.Fatalf("unexpected output without infos:\n%s", got)
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(8)
	r := NewDedupReporter(&BagReporter{Bag: bag})
	ReportError(r, GenResolverFault, "System.Index", "boom")
	ReportError(r, GenResolverFault, "System.Index", "boom")
	ReportInfo(r, InfoForwarded, "System.Index", "boom")
	if bag.Len() != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", bag.Len())
	}
}

func TestCodeID(t *testing.T) {
	cases := map[Code]string{
		GenUnknownSymbolKey: "GEN1001",
		InfoForwarded:       "INF2001",
		IOWriteArtifact:     "IO3002",
		UnknownCode:         "E0000",
	}
	for c, want := range cases {
		if c.ID() != want {
			t.Errorf("%d.ID() = %q, want %q", c, c.ID(), want)
		}
	}
	if Code(9999).Title() != codeDescription[UnknownCode] {
		t.Errorf("unknown code should fall back to the generic title")
	}
}
