// Package envelope implements tagged record envelopes over a schema union:
// decoding JSON and YAML records into classified values, validating their
// declared fields, and encoding them back.
//
// Classification reads the union's tag key and nothing else. The presence or
// absence of any other field never decides which variant a record is, so an
// optional field being absent cannot be mistaken for variant identity.
package envelope

import (
	"encoding/base64"
	"fmt"
	"math"

	"github.com/funvibe/funion/pkg/schema"
)

// Value is one classified record: its union, its variant, and its fields.
// Declared fields are normalized (int64, float64, bool, string, []byte);
// undeclared fields are carried through as decoded.
type Value struct {
	union   *schema.Union
	variant *schema.Variant
	fields  map[string]any
}

// New builds a Value for the given tag, validating fields against the
// variant's declaration. An undeclared tag yields a *union.UnknownTagError;
// a missing required field or a field of the wrong type is an error naming
// the field. A nil field value counts as absent.
func New(u *schema.Union, tag string, fields map[string]any) (*Value, error) {
	variant, err := u.VariantOf(tag)
	if err != nil {
		return nil, err
	}

	normalized := make(map[string]any, len(fields))
	for name, raw := range fields {
		if raw == nil {
			continue
		}
		f, declared := variant.FieldByName(name)
		if !declared {
			normalized[name] = raw
			continue
		}
		val, err := normalizeField(f, raw)
		if err != nil {
			return nil, fmt.Errorf("union %s: variant %q: %w", u.Name(), tag, err)
		}
		normalized[name] = val
	}

	for _, f := range variant.Fields() {
		if f.Optional {
			continue
		}
		if _, ok := normalized[f.Name]; !ok {
			return nil, fmt.Errorf("union %s: variant %q: missing required field %q",
				u.Name(), tag, f.Name)
		}
	}

	return &Value{union: u, variant: variant, fields: normalized}, nil
}

// Union returns the union the value was classified against.
func (v *Value) Union() *schema.Union {
	return v.union
}

// Variant returns the variant the value belongs to.
func (v *Value) Variant() *schema.Variant {
	return v.variant
}

// Tag returns the value's discriminant.
func (v *Value) Tag() string {
	return v.variant.Tag()
}

// Has reports whether the field is present.
func (v *Value) Has(name string) bool {
	_, ok := v.fields[name]
	return ok
}

// Fields returns the value's fields, declared and extra alike. The returned
// map is shared; callers must not modify it.
func (v *Value) Fields() map[string]any {
	return v.fields
}

// Int returns a declared int field.
func (v *Value) Int(name string) (int64, error) {
	raw, err := v.declared(name, schema.FieldInt)
	if err != nil {
		return 0, err
	}
	return raw.(int64), nil
}

// Float returns a declared float field.
func (v *Value) Float(name string) (float64, error) {
	raw, err := v.declared(name, schema.FieldFloat)
	if err != nil {
		return 0, err
	}
	return raw.(float64), nil
}

// Bool returns a declared bool field.
func (v *Value) Bool(name string) (bool, error) {
	raw, err := v.declared(name, schema.FieldBool)
	if err != nil {
		return false, err
	}
	return raw.(bool), nil
}

// Str returns a declared string field.
func (v *Value) Str(name string) (string, error) {
	raw, err := v.declared(name, schema.FieldString)
	if err != nil {
		return "", err
	}
	return raw.(string), nil
}

// Bytes returns a declared bytes field.
func (v *Value) Bytes(name string) ([]byte, error) {
	raw, err := v.declared(name, schema.FieldBytes)
	if err != nil {
		return nil, err
	}
	return raw.([]byte), nil
}

func (v *Value) declared(name string, want schema.FieldType) (any, error) {
	f, ok := v.variant.FieldByName(name)
	if !ok {
		return nil, fmt.Errorf("variant %q: field %q is not declared", v.variant.Tag(), name)
	}
	if f.Type != want {
		return nil, fmt.Errorf("variant %q: field %q is %s, not %s", v.variant.Tag(), name, f.Type, want)
	}
	raw, ok := v.fields[name]
	if !ok {
		return nil, fmt.Errorf("variant %q: field %q is absent", v.variant.Tag(), name)
	}
	return raw, nil
}

// normalizeField converts a decoded field value to its canonical Go type.
// JSON decodes integers as float64 and YAML as int, so numeric kinds fold
// to int64/float64; bytes accept raw []byte or a base64 string.
func normalizeField(f schema.Field, raw any) (any, error) {
	switch f.Type {
	case schema.FieldInt:
		switch n := raw.(type) {
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		case uint64:
			if n > math.MaxInt64 {
				return nil, fmt.Errorf("field %q: integer %d out of range", f.Name, n)
			}
			return int64(n), nil
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("field %q: %v is not an integer", f.Name, n)
			}
			if n < math.MinInt64 || n >= math.MaxInt64 {
				return nil, fmt.Errorf("field %q: integer %v out of range", f.Name, n)
			}
			return int64(n), nil
		}
	case schema.FieldFloat:
		switch n := raw.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case uint64:
			return float64(n), nil
		}
	case schema.FieldBool:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
	case schema.FieldString:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	case schema.FieldBytes:
		switch b := raw.(type) {
		case []byte:
			return b, nil
		case string:
			decoded, err := base64.StdEncoding.DecodeString(b)
			if err != nil {
				return nil, fmt.Errorf("field %q: invalid base64: %w", f.Name, err)
			}
			return decoded, nil
		}
	}
	return nil, fmt.Errorf("field %q: want %s, got %T", f.Name, f.Type, raw)
}
