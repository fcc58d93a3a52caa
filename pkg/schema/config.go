// Package schema implements declarative tagged unions for record data.
//
// Unions are declared in funion.yaml, validated, and compiled into immutable
// descriptors that codecs, storage, and transport layers classify against.
// A declared variant lists all of its fields up front; a compiled union
// never changes, so classification against it is stable for the life of the
// process.
package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/funion/internal/config"
)

// DefaultTagKey is the record key holding the discriminant when a union
// declares no tag_key of its own.
const DefaultTagKey = "kind"

// Config represents the top-level funion.yaml configuration.
type Config struct {
	// Unions lists the declared tagged unions.
	Unions []UnionDecl `yaml:"unions"`
}

// UnionDecl declares one closed tagged union.
type UnionDecl struct {
	// Name identifies the union (e.g. "Shape"). Required, unique per file.
	Name string `yaml:"name"`

	// TagKey is the record key holding the discriminant value.
	// Defaults to "kind" if omitted.
	TagKey string `yaml:"tag_key,omitempty"`

	// Variants lists the union's variants. At least one is required;
	// the set is closed once the union is compiled.
	Variants []VariantDecl `yaml:"variants"`
}

// VariantDecl declares one variant of a union.
type VariantDecl struct {
	// Tag is the discriminant value identifying this variant (e.g. "circle").
	// Required, unique within the union.
	Tag string `yaml:"tag"`

	// Fields lists the variant's fields. All fields are declared here, in
	// one place; a variant cannot be reopened to add fields later.
	Fields []FieldDecl `yaml:"fields,omitempty"`
}

// FieldDecl declares one field of a variant.
type FieldDecl struct {
	// Name is the record key of the field. Required, unique within the
	// variant, and distinct from the union's tag key.
	Name string `yaml:"name"`

	// Type is the field's value type: int, float, bool, string, or bytes.
	Type string `yaml:"type"`

	// Optional marks a field that may be absent from a record. Absence of
	// an optional field says nothing about which variant a record is; only
	// the tag key classifies.
	Optional bool `yaml:"optional,omitempty"`
}

// LoadConfig reads and parses a funion.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses funion.yaml content from bytes.
// The path argument is used only for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

// FindConfig searches for funion.yaml starting from dir and walking up
// to parent directories. Returns the path to the config file and nil error
// if found, or empty string and nil error if not found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range config.ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return "", nil
		}
		dir = parent
	}
}

// validate checks the configuration for semantic errors.
func (c *Config) validate(path string) error {
	if len(c.Unions) == 0 {
		return fmt.Errorf("%s: no unions defined", path)
	}

	seenNames := make(map[string]bool)

	for i, u := range c.Unions {
		if u.Name == "" {
			return fmt.Errorf("%s: unions[%d]: name is required", path, i)
		}
		if seenNames[u.Name] {
			return fmt.Errorf("%s: unions[%d]: duplicate union name %q", path, i, u.Name)
		}
		seenNames[u.Name] = true

		if len(u.Variants) == 0 {
			return fmt.Errorf("%s: unions[%d] (%s): at least one variant is required", path, i, u.Name)
		}

		tagKey := u.TagKey
		if tagKey == "" {
			tagKey = DefaultTagKey
		}

		seenTags := make(map[string]bool)
		for j, v := range u.Variants {
			if v.Tag == "" {
				return fmt.Errorf("%s: unions[%d].variants[%d] (%s): tag is required", path, i, j, u.Name)
			}
			if seenTags[v.Tag] {
				return fmt.Errorf("%s: unions[%d].variants[%d] (%s): duplicate variant tag %q",
					path, i, j, u.Name, v.Tag)
			}
			seenTags[v.Tag] = true

			seenFields := make(map[string]bool)
			for k, f := range v.Fields {
				if f.Name == "" {
					return fmt.Errorf("%s: unions[%d].variants[%d].fields[%d] (%s/%s): name is required",
						path, i, j, k, u.Name, v.Tag)
				}
				if f.Name == tagKey {
					return fmt.Errorf("%s: unions[%d].variants[%d].fields[%d] (%s/%s): field name %q collides with the tag key",
						path, i, j, k, u.Name, v.Tag, f.Name)
				}
				if seenFields[f.Name] {
					return fmt.Errorf("%s: unions[%d].variants[%d].fields[%d] (%s/%s): duplicate field %q",
						path, i, j, k, u.Name, v.Tag, f.Name)
				}
				seenFields[f.Name] = true

				if !validFieldType(f.Type) {
					return fmt.Errorf("%s: unions[%d].variants[%d].fields[%d] (%s/%s): unknown type %q (want int, float, bool, string, or bytes)",
						path, i, j, k, u.Name, v.Tag, f.Type)
				}
			}
		}
	}

	return nil
}

// setDefaults fills in default values for omitted fields.
func (c *Config) setDefaults() {
	for i := range c.Unions {
		if c.Unions[i].TagKey == "" {
			c.Unions[i].TagKey = DefaultTagKey
		}
	}
}

func validFieldType(t string) bool {
	switch FieldType(t) {
	case FieldInt, FieldFloat, FieldBool, FieldString, FieldBytes:
		return true
	}
	return false
}
