package inspect

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestCheck_ReportsMissingVariant(t *testing.T) {
	findings, err := Check(filepath.Join("testdata", "shapes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1: %v", len(findings), findings)
	}

	f := findings[0]
	if f.Interface != "Shape" {
		t.Errorf("Interface = %q, want Shape", f.Interface)
	}
	if len(f.Missing) != 1 || f.Missing[0] != "*Triangle" {
		t.Errorf("Missing = %v, want [*Triangle]", f.Missing)
	}
	if !f.HasDefault {
		t.Error("HasDefault = false, want true")
	}
	if !strings.Contains(f.Pos, "shapes.go") {
		t.Errorf("Pos = %q, want a shapes.go position", f.Pos)
	}
}

func TestFinding_String(t *testing.T) {
	f := Finding{
		Pos:        "shapes.go:40:2",
		Interface:  "Shape",
		Missing:    []string{"*Triangle"},
		HasDefault: true,
	}
	got := f.String()
	want := "shapes.go:40:2: type switch over Shape is not exhaustive: missing *Triangle (default clause hides them)"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestCheck_UnknownPattern(t *testing.T) {
	_, err := Check(filepath.Join("testdata", "shapes"), "./no/such/pkg")
	if err == nil {
		t.Fatal("expected error for a pattern matching nothing")
	}
}
