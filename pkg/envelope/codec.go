package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/funion/pkg/schema"
)

// Codec encodes and decodes tagged records for one schema union.
type Codec struct {
	union *schema.Union
}

// NewCodec binds a codec to a compiled union.
func NewCodec(u *schema.Union) *Codec {
	return &Codec{union: u}
}

// Union returns the union the codec is bound to.
func (c *Codec) Union() *schema.Union {
	return c.union
}

// ClassifyRaw extracts and checks a decoded record's tag without validating
// its fields. A record with no tag key yields a *MissingTagError; a tag
// outside the declared set yields the *union.UnknownTagError.
func (c *Codec) ClassifyRaw(rec map[string]any) (string, error) {
	raw, ok := rec[c.union.TagKey()]
	if !ok || raw == nil {
		return "", NewMissingTagError(c.union.Name(), c.union.TagKey())
	}
	tag, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("union %s: %q key is %T, not a string",
			c.union.Name(), c.union.TagKey(), raw)
	}
	if _, err := c.union.VariantOf(tag); err != nil {
		return "", err
	}
	return tag, nil
}

// FromRecord classifies a decoded record by its tag key and validates the
// declared fields.
func (c *Codec) FromRecord(rec map[string]any) (*Value, error) {
	tag, err := c.ClassifyRaw(rec)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]any, len(rec)-1)
	for k, v := range rec {
		if k == c.union.TagKey() {
			continue
		}
		fields[k] = v
	}
	return New(c.union, tag, fields)
}

// Record returns the encodable record form of a value: its tag under the
// union's tag key plus all fields.
func (c *Codec) Record(v *Value) (map[string]any, error) {
	if v.Union() != c.union {
		return nil, fmt.Errorf("envelope: value belongs to union %s, codec is bound to %s",
			v.Union().Name(), c.union.Name())
	}
	rec := make(map[string]any, len(v.fields)+1)
	rec[c.union.TagKey()] = v.Tag()
	for k, val := range v.fields {
		rec[k] = val
	}
	return rec, nil
}

// DecodeJSON decodes a single JSON object.
func (c *Codec) DecodeJSON(data []byte) (*Value, error) {
	var rec map[string]any
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("JSON parse error: %w", err)
	}
	return c.FromRecord(rec)
}

// DecodeJSONList decodes a JSON array of objects, preserving order.
func (c *Codec) DecodeJSONList(data []byte) ([]*Value, error) {
	var recs []map[string]any
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("JSON parse error: %w", err)
	}
	out := make([]*Value, 0, len(recs))
	for i, rec := range recs {
		v, err := c.FromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// EncodeJSON encodes a value as a JSON object. Bytes fields become base64
// strings, and keys are emitted in sorted order.
func (c *Codec) EncodeJSON(v *Value) ([]byte, error) {
	rec, err := c.Record(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rec)
}

// DecodeYAML decodes a single YAML document.
func (c *Codec) DecodeYAML(data []byte) (*Value, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	rec, err := asRecord(doc)
	if err != nil {
		return nil, err
	}
	return c.FromRecord(rec)
}

// DecodeYAMLAll decodes a YAML stream: every document, in order, where a
// document that is itself a sequence contributes its elements in order.
func (c *Codec) DecodeYAMLAll(data []byte) ([]*Value, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var out []*Value
	for {
		var doc any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("YAML parse error: %w", err)
		}
		if doc == nil {
			continue
		}

		if seq, ok := doc.([]any); ok {
			for i, item := range seq {
				rec, err := asRecord(item)
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
				v, err := c.FromRecord(rec)
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
				out = append(out, v)
			}
			continue
		}

		rec, err := asRecord(doc)
		if err != nil {
			return nil, err
		}
		v, err := c.FromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

// EncodeYAML encodes a value as a YAML document.
func (c *Codec) EncodeYAML(v *Value) ([]byte, error) {
	rec, err := c.Record(v)
	if err != nil {
		return nil, err
	}
	out, err := yaml.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("YAML encoding error: %w", err)
	}
	return out, nil
}

// asRecord coerces a decoded document to a string-keyed record. yaml.v3
// produces map[string]any for string keys; the map[any]any form shows up
// for mixed keys and is folded here.
func asRecord(doc any) (map[string]any, error) {
	switch m := doc.(type) {
	case map[string]any:
		return m, nil
	case map[any]any:
		rec := make(map[string]any, len(m))
		for k, v := range m {
			rec[fmt.Sprintf("%v", k)] = v
		}
		return rec, nil
	default:
		return nil, fmt.Errorf("expected a mapping, got %T", doc)
	}
}

// Filter returns the values tagged tag, in their original relative order.
// The source slice is not modified and duplicates are kept.
func Filter(vs []*Value, tag string) []*Value {
	var out []*Value
	for _, v := range vs {
		if v.Tag() == tag {
			out = append(out, v)
		}
	}
	return out
}
