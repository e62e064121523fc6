package schema

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matchboxjs/matchbox-model/core/slice"
)

// ErrInvalidDefinition is wrapped by every definition validation failure.
var ErrInvalidDefinition = errors.New("invalid type definition")

var identifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ParseFile parses a type definition from a YAML file.
func ParseFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read file %s: %w", path, err)
	}

	def, err := ParseDefinition(data)
	if err != nil {
		return Definition{}, fmt.Errorf("%s: %w", path, err)
	}
	def.Source = path
	return def, nil
}

// ParseDefinition parses a type definition from YAML bytes.
func ParseDefinition(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("parse yaml: %w", err)
	}

	if err := Validate(def); err != nil {
		return Definition{}, fmt.Errorf("validate type %q: %w", def.Type, err)
	}

	return def, nil
}

// ParseDir parses all type definitions from a directory, including
// subdirectories.
func ParseDir(dir string) ([]Definition, error) {
	var defs []Definition

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			sub, err := ParseDir(path)
			if err != nil {
				return nil, err
			}
			defs = append(defs, sub...)
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		def, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	return defs, nil
}

// Validate checks a definition on its own. References to other types are
// checked when the definition is loaded into a registry.
func Validate(def Definition) error {
	if def.Type == "" {
		return fmt.Errorf("%w: type name is required", ErrInvalidDefinition)
	}
	if !identifier.MatchString(def.Type) {
		return fmt.Errorf("%w: type name %q is not an identifier", ErrInvalidDefinition, def.Type)
	}
	if def.Extends == def.Type {
		return fmt.Errorf("%w: type %q extends itself", ErrInvalidDefinition, def.Type)
	}
	if len(def.Fields) == 0 && def.Extends == "" {
		return fmt.Errorf("%w: no fields declared", ErrInvalidDefinition)
	}

	seen := make(map[string]bool)
	for _, f := range def.Fields {
		if err := validateField(f); err != nil {
			return err
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: field %q declared twice", ErrInvalidDefinition, f.Name)
		}
		seen[f.Name] = true
	}

	if def.Key != "" && def.Extends == "" && !seen[def.Key] {
		return fmt.Errorf("%w: key %q is not a field", ErrInvalidDefinition, def.Key)
	}

	for name, spec := range def.Slices {
		if _, err := slice.New(spec); err != nil {
			return fmt.Errorf("%w: slice %q: %v", ErrInvalidDefinition, name, err)
		}
	}

	return nil
}

func validateField(f Field) error {
	if !identifier.MatchString(f.Name) {
		return fmt.Errorf("%w: field name %q is not an identifier", ErrInvalidDefinition, f.Name)
	}

	switch f.Type {
	case "":
		return fmt.Errorf("%w: field %q has no type", ErrInvalidDefinition, f.Name)
	case TypeRecord:
		if f.To == "" {
			return fmt.Errorf("%w: record field %q requires 'to'", ErrInvalidDefinition, f.Name)
		}
		if f.Default != nil {
			return fmt.Errorf("%w: record field %q cannot have a default", ErrInvalidDefinition, f.Name)
		}
	default:
		if _, ok := CodecFor(f.Type); !ok {
			return fmt.Errorf("%w: field %q has unknown type %q", ErrInvalidDefinition, f.Name, f.Type)
		}
		if f.To != "" {
			return fmt.Errorf("%w: field %q: 'to' is only valid for record fields", ErrInvalidDefinition, f.Name)
		}
	}

	switch f.Collection {
	case NoCollection, Sequence, Mapping:
	default:
		return fmt.Errorf("%w: field %q has unknown collection %q", ErrInvalidDefinition, f.Name, f.Collection)
	}

	if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
		return fmt.Errorf("%w: field %q has min greater than max", ErrInvalidDefinition, f.Name)
	}
	if f.Pattern != "" {
		if _, err := regexp.Compile(f.Pattern); err != nil {
			return fmt.Errorf("%w: field %q pattern: %v", ErrInvalidDefinition, f.Name, err)
		}
	}
	return nil
}
