package protowire

import (
	"errors"
	"strings"
	"testing"

	"github.com/jhump/protoreflect/dynamic"

	"github.com/funvibe/funion/pkg/envelope"
	"github.com/funvibe/funion/pkg/schema"
	"github.com/funvibe/funion/pkg/union"
)

func compileUnion(t *testing.T, decl schema.UnionDecl) *schema.Union {
	t.Helper()
	cfg := &schema.Config{Unions: []schema.UnionDecl{decl}}
	u, err := cfg.CompileOne()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return u
}

func shapeUnion(t *testing.T, extra ...schema.VariantDecl) *schema.Union {
	t.Helper()
	decl := schema.UnionDecl{
		Name: "Shape",
		Variants: append([]schema.VariantDecl{
			{Tag: "circle", Fields: []schema.FieldDecl{{Name: "radius", Type: "float"}}},
			{Tag: "square", Fields: []schema.FieldDecl{{Name: "side", Type: "float"}}},
		}, extra...),
	}
	return compileUnion(t, decl)
}

func blobUnion(t *testing.T) *schema.Union {
	t.Helper()
	return compileUnion(t, schema.UnionDecl{
		Name: "Record",
		Variants: []schema.VariantDecl{
			{Tag: "blob", Fields: []schema.FieldDecl{
				{Name: "count", Type: "int"},
				{Name: "ratio", Type: "float"},
				{Name: "ok", Type: "bool"},
				{Name: "note", Type: "string"},
				{Name: "data", Type: "bytes"},
				{Name: "memo", Type: "string", Optional: true},
			}},
		},
	})
}

func TestProtoSource_Shape(t *testing.T) {
	src, err := ProtoSource(shapeUnion(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `syntax = "proto3";

package funion.v1;

message Circle {
  double radius = 1;
}

message Square {
  double side = 1;
}

message Envelope {
  string tag = 1;
  Circle circle = 2;
  Square square = 3;
}
`
	if src != want {
		t.Errorf("ProtoSource mismatch:\ngot:\n%s\nwant:\n%s", src, want)
	}
}

func TestProtoSource_OptionalField(t *testing.T) {
	src, err := ProtoSource(blobUnion(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(src, "optional string memo = 6;") {
		t.Errorf("optional field not rendered:\n%s", src)
	}
}

func TestProtoSource_InvalidTag(t *testing.T) {
	u := compileUnion(t, schema.UnionDecl{
		Name: "Shape",
		Variants: []schema.VariantDecl{
			{Tag: "red-circle", Fields: []schema.FieldDecl{{Name: "radius", Type: "float"}}},
		},
	})
	_, err := ProtoSource(u)
	if err == nil {
		t.Fatal("expected error for tag that is not a proto identifier")
	}
	if !strings.Contains(err.Error(), "red-circle") {
		t.Errorf("error %q does not name the tag", err)
	}
}

func TestProtoSource_CollidingTags(t *testing.T) {
	u := compileUnion(t, schema.UnionDecl{
		Name: "Shape",
		Variants: []schema.VariantDecl{
			{Tag: "red_circle", Fields: []schema.FieldDecl{{Name: "radius", Type: "float"}}},
			{Tag: "redCircle", Fields: []schema.FieldDecl{{Name: "radius", Type: "float"}}},
		},
	})
	_, err := ProtoSource(u)
	if err == nil {
		t.Fatal("expected error for tags mapping to one message name")
	}
	if !strings.Contains(err.Error(), "RedCircle") {
		t.Errorf("error %q does not name the colliding message", err)
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	c, err := NewCodec(shapeUnion(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, err := envelope.New(c.Union(), "circle", map[string]any{"radius": 4.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := c.Encode(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	back, err := c.Decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.Tag() != "circle" {
		t.Errorf("Tag() = %q, want circle", back.Tag())
	}
	r, err := back.Float("radius")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != 4 {
		t.Errorf("radius = %v, want 4", r)
	}
}

func TestCodec_RoundTripAllFieldTypes(t *testing.T) {
	c, err := NewCodec(blobUnion(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, err := envelope.New(c.Union(), "blob", map[string]any{
		"count": int64(7),
		"ratio": 2.5,
		"ok":    true,
		"note":  "hello",
		"data":  []byte{0x01, 0x02},
		"memo":  "kept",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := c.Encode(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	back, err := c.Decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n, _ := back.Int("count"); n != 7 {
		t.Errorf("count = %d, want 7", n)
	}
	if r, _ := back.Float("ratio"); r != 2.5 {
		t.Errorf("ratio = %v, want 2.5", r)
	}
	if b, _ := back.Bool("ok"); !b {
		t.Error("ok = false, want true")
	}
	if s, _ := back.Str("note"); s != "hello" {
		t.Errorf("note = %q, want hello", s)
	}
	if raw, _ := back.Bytes("data"); len(raw) != 2 || raw[0] != 0x01 || raw[1] != 0x02 {
		t.Errorf("data = %v, want [1 2]", raw)
	}
	if s, _ := back.Str("memo"); s != "kept" {
		t.Errorf("memo = %q, want kept", s)
	}
}

func TestCodec_OptionalFieldAbsent(t *testing.T) {
	c, err := NewCodec(blobUnion(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, err := envelope.New(c.Union(), "blob", map[string]any{
		"count": int64(1),
		"ratio": 1.0,
		"ok":    false,
		"note":  "n",
		"data":  []byte{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := c.Encode(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	back, err := c.Decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.Has("memo") {
		t.Error("absent optional field reappeared after round trip")
	}
}

func TestCodec_EncodeDropsExtras(t *testing.T) {
	u := shapeUnion(t)
	c, err := NewCodec(u)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, err := envelope.New(u, "circle", map[string]any{"radius": 1.0, "color": "red"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := c.Encode(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	back, err := c.Decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.Has("color") {
		t.Error("undeclared field survived the wire")
	}
}

func TestCodec_DecodeStaleTag(t *testing.T) {
	wide := shapeUnion(t, schema.VariantDecl{
		Tag:    "triangle",
		Fields: []schema.FieldDecl{{Name: "base", Type: "float"}},
	})
	writer, err := NewCodec(wide)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, err := envelope.New(wide, "triangle", map[string]any{"base": 3.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := writer.Encode(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The union shrank after the bytes were written.
	reader, err := NewCodec(shapeUnion(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = reader.Decode(data)
	if err == nil {
		t.Fatal("expected error decoding a stale tag")
	}
	var unknown *union.UnknownTagError
	if !errors.As(err, &unknown) {
		t.Fatalf("error = %T, want *union.UnknownTagError", err)
	}
	if unknown.Tag != "triangle" {
		t.Errorf("offending tag = %q, want triangle", unknown.Tag)
	}
}

func TestCodec_DecodeBodyMismatch(t *testing.T) {
	c, err := NewCodec(shapeUnion(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Tagged square, but only a circle body is set.
	env := dynamic.NewMessage(c.message)
	env.SetField(c.tag, "square")
	body := dynamic.NewMessage(c.bodies["circle"].GetMessageType())
	body.SetField(body.GetMessageDescriptor().FindFieldByName("radius"), 1.0)
	env.SetField(c.bodies["circle"], body)
	data, err := env.Marshal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = c.Decode(data)
	if err == nil {
		t.Fatal("expected error for body not matching tag")
	}
	if !strings.Contains(err.Error(), "square") {
		t.Errorf("error %q does not name the tag", err)
	}
}

func TestCodec_EncodeUnionMismatch(t *testing.T) {
	shapes, err := NewCodec(shapeUnion(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	blobs := blobUnion(t)

	v, err := envelope.New(blobs, "blob", map[string]any{
		"count": int64(1), "ratio": 1.0, "ok": true, "note": "n", "data": []byte{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := shapes.Encode(v); err == nil {
		t.Error("expected error encoding a value from another union")
	}
}
