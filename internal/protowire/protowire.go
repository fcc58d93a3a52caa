// Package protowire renders a protobuf form of schema unions and moves
// envelope values through it with runtime descriptors. No stubs are
// generated: the .proto source is built from the compiled union, parsed
// in memory, and values travel as dynamic messages.
package protowire

import (
	"fmt"
	"strings"

	"github.com/funvibe/funion/pkg/schema"
)

// protoPackage is the package line of every generated descriptor file.
const protoPackage = "funion.v1"

// ProtoSource renders .proto source for a compiled union: one message
// per variant with typed fields, plus an Envelope message carrying the
// tag and one body field per variant. Tags and field names must be
// expressible as proto identifiers; anything else fails here, before a
// codec is built.
func ProtoSource(u *schema.Union) (string, error) {
	taken := map[string]string{"Envelope": ""}

	var b strings.Builder
	fmt.Fprintf(&b, "syntax = \"proto3\";\n\npackage %s;\n\n", protoPackage)

	for _, v := range u.Variants() {
		name, err := messageName(v.Tag())
		if err != nil {
			return "", fmt.Errorf("union %s: %v", u.Name(), err)
		}
		if prev, dup := taken[name]; dup {
			if prev == "" {
				return "", fmt.Errorf("union %s: tag %q collides with the Envelope message", u.Name(), v.Tag())
			}
			return "", fmt.Errorf("union %s: tags %q and %q both map to message %s", u.Name(), prev, v.Tag(), name)
		}
		taken[name] = v.Tag()

		fmt.Fprintf(&b, "message %s {\n", name)
		for i, f := range v.Fields() {
			if !isProtoIdent(f.Name) {
				return "", fmt.Errorf("union %s: variant %q: field %q is not a proto identifier", u.Name(), v.Tag(), f.Name)
			}
			label := ""
			if f.Optional {
				label = "optional "
			}
			fmt.Fprintf(&b, "  %s%s %s = %d;\n", label, protoType(f.Type), f.Name, i+1)
		}
		b.WriteString("}\n\n")
	}

	b.WriteString("message Envelope {\n")
	b.WriteString("  string tag = 1;\n")
	for i, v := range u.Variants() {
		name, _ := messageName(v.Tag())
		fmt.Fprintf(&b, "  %s %s = %d;\n", name, v.Tag(), i+2)
	}
	b.WriteString("}\n")

	return b.String(), nil
}

// messageName maps a tag to its variant message name: underscore chunks
// are capitalized and joined, so "red_circle" becomes "RedCircle".
func messageName(tag string) (string, error) {
	if !isProtoIdent(tag) {
		return "", fmt.Errorf("tag %q is not a proto identifier", tag)
	}
	parts := strings.Split(tag, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	name := strings.Join(parts, "")
	if name == "" {
		return "", fmt.Errorf("tag %q has no identifier characters", tag)
	}
	return name, nil
}

func isProtoIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func protoType(t schema.FieldType) string {
	switch t {
	case schema.FieldInt:
		return "int64"
	case schema.FieldFloat:
		return "double"
	case schema.FieldBool:
		return "bool"
	case schema.FieldString:
		return "string"
	case schema.FieldBytes:
		return "bytes"
	}
	panic(fmt.Sprintf("protowire: unhandled field type %q", t))
}
