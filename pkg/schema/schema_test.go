package schema

import (
	"errors"
	"testing"

	"github.com/funvibe/funion/pkg/union"
)

const shapeYaml = `
unions:
  - name: Shape
    variants:
      - tag: circle
        fields:
          - name: radius
            type: float
      - tag: square
        fields:
          - name: side
            type: float
`

func compileShape(t *testing.T) *Union {
	t.Helper()
	cfg, err := ParseConfig([]byte(shapeYaml), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, err := cfg.CompileOne()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return u
}

func TestCompile_Accessors(t *testing.T) {
	u := compileShape(t)

	if u.Name() != "Shape" {
		t.Errorf("Name() = %q, want Shape", u.Name())
	}
	if u.TagKey() != "kind" {
		t.Errorf("TagKey() = %q, want kind", u.TagKey())
	}
	if u.Len() != 2 {
		t.Errorf("Len() = %d, want 2", u.Len())
	}

	tags := u.Tags()
	if len(tags) != 2 || tags[0] != "circle" || tags[1] != "square" {
		t.Errorf("Tags() = %v, want [circle square]", tags)
	}
}

func TestVariantOf_Declared(t *testing.T) {
	u := compileShape(t)

	v, err := u.VariantOf("circle")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Tag() != "circle" {
		t.Errorf("Tag() = %q, want circle", v.Tag())
	}
	f, ok := v.FieldByName("radius")
	if !ok {
		t.Fatal("FieldByName(radius) not found")
	}
	if f.Type != FieldFloat {
		t.Errorf("radius type = %q, want float", f.Type)
	}
}

func TestVariantOf_UndeclaredTag(t *testing.T) {
	u := compileShape(t)

	_, err := u.VariantOf("triangle")
	if err == nil {
		t.Fatal("expected error for undeclared tag")
	}
	var unknown *union.UnknownTagError
	if !errors.As(err, &unknown) {
		t.Fatalf("error = %T, want *union.UnknownTagError", err)
	}
	if unknown.Tag != "triangle" {
		t.Errorf("offending tag = %q, want triangle", unknown.Tag)
	}
	if unknown.Union != "Shape" {
		t.Errorf("union = %q, want Shape", unknown.Union)
	}
}

func TestCompile_ValidatesHandBuiltConfig(t *testing.T) {
	cfg := &Config{
		Unions: []UnionDecl{
			{Name: "Broken", Variants: []VariantDecl{{Tag: "a"}, {Tag: "a"}}},
		},
	}
	if _, err := cfg.Compile(); err == nil {
		t.Fatal("expected error for duplicate tag in hand-built config")
	}
}

func TestCompileOne_RejectsMultipleUnions(t *testing.T) {
	cfg := &Config{
		Unions: []UnionDecl{
			{Name: "A", Variants: []VariantDecl{{Tag: "a"}}},
			{Name: "B", Variants: []VariantDecl{{Tag: "b"}}},
		},
	}
	if _, err := cfg.CompileOne(); err == nil {
		t.Fatal("expected error for two unions")
	}
}

func TestRegistry_RegisterLookup(t *testing.T) {
	cfg := &Config{
		Unions: []UnionDecl{
			{Name: "RegistryShape", Variants: []VariantDecl{{Tag: "circle"}}},
		},
	}
	unions, err := RegisterConfig(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(unions) != 1 {
		t.Fatalf("expected 1 union, got %d", len(unions))
	}

	got, ok := Lookup("RegistryShape")
	if !ok {
		t.Fatal("Lookup(RegistryShape) not found")
	}
	if got != unions[0] {
		t.Error("Lookup returned a different union")
	}

	// Same compiled union again is a no-op.
	if err := Register(unions[0]); err != nil {
		t.Errorf("re-register same union: %v", err)
	}

	// A different union under the same name is rejected.
	other, err := cfg.CompileOne()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Register(other); err == nil {
		t.Error("expected error registering a different union under the same name")
	}
}

func TestRegistry_Names(t *testing.T) {
	cfg := &Config{
		Unions: []UnionDecl{
			{Name: "NamesB", Variants: []VariantDecl{{Tag: "x"}}},
			{Name: "NamesA", Variants: []VariantDecl{{Tag: "y"}}},
		},
	}
	if _, err := RegisterConfig(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := Names()
	posA, posB := -1, -1
	for i, n := range names {
		switch n {
		case "NamesA":
			posA = i
		case "NamesB":
			posB = i
		}
	}
	if posA == -1 || posB == -1 {
		t.Fatalf("registered names missing from %v", names)
	}
	if posA > posB {
		t.Errorf("names not sorted: %v", names)
	}
}
