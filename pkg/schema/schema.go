package schema

import (
	"fmt"

	"github.com/funvibe/funion/pkg/union"
)

// FieldType identifies the value type of a declared field.
type FieldType string

const (
	FieldInt    FieldType = "int"
	FieldFloat  FieldType = "float"
	FieldBool   FieldType = "bool"
	FieldString FieldType = "string"
	FieldBytes  FieldType = "bytes"
)

// Field is a compiled field descriptor.
type Field struct {
	Name     string
	Type     FieldType
	Optional bool
}

// Variant is a compiled variant descriptor: a tag plus its declared fields.
type Variant struct {
	tag    string
	fields []Field
	byName map[string]int
}

// Tag returns the variant's discriminant value.
func (v *Variant) Tag() string {
	return v.tag
}

// Fields returns the variant's fields in declaration order. The returned
// slice is shared; callers must not modify it.
func (v *Variant) Fields() []Field {
	return v.fields
}

// FieldByName looks up a declared field.
func (v *Variant) FieldByName(name string) (Field, bool) {
	i, ok := v.byName[name]
	if !ok {
		return Field{}, false
	}
	return v.fields[i], true
}

// Union is a compiled, immutable union descriptor. Records are classified
// against it by the value under its tag key and nothing else.
type Union struct {
	name     string
	tagKey   string
	variants []*Variant
	byTag    map[string]int
}

// Compile builds immutable union descriptors from the configuration, in
// declaration order. The configuration is validated first, so a hand-built
// Config gets the same checks as a parsed one.
func (c *Config) Compile() ([]*Union, error) {
	if err := c.validate("schema"); err != nil {
		return nil, err
	}

	out := make([]*Union, 0, len(c.Unions))
	for _, decl := range c.Unions {
		out = append(out, compileUnion(decl))
	}
	return out, nil
}

// CompileOne compiles the single union declared in the configuration, as a
// convenience for the common one-union file.
func (c *Config) CompileOne() (*Union, error) {
	unions, err := c.Compile()
	if err != nil {
		return nil, err
	}
	if len(unions) != 1 {
		return nil, fmt.Errorf("schema: expected exactly one union, found %d", len(unions))
	}
	return unions[0], nil
}

func compileUnion(decl UnionDecl) *Union {
	tagKey := decl.TagKey
	if tagKey == "" {
		tagKey = DefaultTagKey
	}

	u := &Union{
		name:   decl.Name,
		tagKey: tagKey,
		byTag:  make(map[string]int, len(decl.Variants)),
	}
	for _, vd := range decl.Variants {
		v := &Variant{
			tag:    vd.Tag,
			fields: make([]Field, 0, len(vd.Fields)),
			byName: make(map[string]int, len(vd.Fields)),
		}
		for _, fd := range vd.Fields {
			v.byName[fd.Name] = len(v.fields)
			v.fields = append(v.fields, Field{
				Name:     fd.Name,
				Type:     FieldType(fd.Type),
				Optional: fd.Optional,
			})
		}
		u.byTag[vd.Tag] = len(u.variants)
		u.variants = append(u.variants, v)
	}
	return u
}

// Name returns the union's declared name.
func (u *Union) Name() string {
	return u.name
}

// TagKey returns the record key holding the discriminant.
func (u *Union) TagKey() string {
	return u.tagKey
}

// Len returns the number of declared variants.
func (u *Union) Len() int {
	return len(u.variants)
}

// Tags returns the declared tags in declaration order.
func (u *Union) Tags() []string {
	out := make([]string, len(u.variants))
	for i, v := range u.variants {
		out[i] = v.tag
	}
	return out
}

// Variants returns the compiled variants in declaration order. The returned
// slice is shared; callers must not modify it.
func (u *Union) Variants() []*Variant {
	return u.variants
}

// Has reports whether tag is declared in the union.
func (u *Union) Has(tag string) bool {
	_, ok := u.byTag[tag]
	return ok
}

// VariantOf resolves a discriminant value to its variant. A tag outside the
// declared set yields a *union.UnknownTagError, the same error the static
// side reports, because it means the same thing: the union grew without this
// site noticing, or the data is corrupt.
func (u *Union) VariantOf(tag string) (*Variant, error) {
	i, ok := u.byTag[tag]
	if !ok {
		return nil, union.NewUnknownTagError(u.name, union.Tag(tag))
	}
	return u.variants[i], nil
}
