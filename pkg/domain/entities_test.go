package domain

import (
	"math"
	"strings"
	"testing"
)

func TestNormalizeMargins(t *testing.T) {
	fallback := DefaultMargins()

	got := NormalizeMargins(Margins{Top: 1.005, Right: -2, Bottom: math.NaN(), Left: math.Inf(1)}, fallback)
	if got.Top != 1.0 && got.Top != 1.01 {
		t.Errorf("top should round to two decimals, got %v", got.Top)
	}
	if got.Right != fallback.Right {
		t.Errorf("negative right must fall back, got %v", got.Right)
	}
	if got.Bottom != fallback.Bottom {
		t.Errorf("NaN bottom must fall back, got %v", got.Bottom)
	}
	if got.Left != fallback.Left {
		t.Errorf("infinite left must fall back, got %v", got.Left)
	}

	identity := NormalizeMargins(fallback, fallback)
	if identity != fallback {
		t.Errorf("defaults should be stable, got %+v", identity)
	}
}

func TestSafeTitle(t *testing.T) {
	if got := SafeTitle("  My Notes  ", DefaultSheetTitle); got != "My Notes" {
		t.Errorf("got %q", got)
	}
	if got := SafeTitle("   ", DefaultSheetTitle); got != DefaultSheetTitle {
		t.Errorf("got %q", got)
	}
	if got := SafeTitle("", DefaultStackTitle); got != DefaultStackTitle {
		t.Errorf("got %q", got)
	}
}

func TestNewIDSharesNamespaceWithKindPrefix(t *testing.T) {
	stackID := NewID(KindStack)
	sheetID := NewID(KindSheet)
	if !strings.HasPrefix(stackID, "stack_") {
		t.Errorf("stack id prefix: %q", stackID)
	}
	if !strings.HasPrefix(sheetID, "sheet_") {
		t.Errorf("sheet id prefix: %q", sheetID)
	}
	if stackID == sheetID {
		t.Error("ids must be unique")
	}
	if NewID(KindStack) == NewID(KindStack) {
		t.Error("successive ids must differ")
	}
}

func TestResultHasBlocking(t *testing.T) {
	var r Result
	if r.HasBlocking() {
		t.Error("empty result must not block")
	}
	r.Merge(Result{Violations: []Violation{{Rule: "x", Severity: SeverityWarn}}})
	if r.HasBlocking() {
		t.Error("warn must not block")
	}
	r.Merge(Result{Violations: []Violation{{Rule: "y", Severity: SeverityBlock}}})
	if !r.HasBlocking() {
		t.Error("block severity must block")
	}
	if len(r.Violations) != 2 {
		t.Errorf("expected merged violations, got %d", len(r.Violations))
	}
}
