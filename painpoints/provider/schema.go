package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	gjsonschema "github.com/google/jsonschema-go/jsonschema"
	"github.com/invopop/jsonschema"

	"github.com/theimaginaryfoundation/painpoint-miner/painpoints/fileutils"
)

// ErrInvalidOutput marks model output that could not be turned into the requested shape.
var ErrInvalidOutput = errors.New("model output does not match schema")

// Schema is a reflected JSON Schema plus its compiled validator.
type Schema struct {
	Name        string
	Description string

	doc      map[string]any
	resolved *gjsonschema.Resolved
}

// SchemaFor reflects T into a strict schema (no additional properties, every property required)
// and compiles a validator for it.
func SchemaFor[T any](name, description string) (*Schema, error) {
	doc, err := GenerateSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("reflect schema %s: %w", name, err)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", name, err)
	}
	var gs gjsonschema.Schema
	if err := json.Unmarshal(b, &gs); err != nil {
		return nil, fmt.Errorf("load schema %s: %w", name, err)
	}
	resolved, err := gs.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve schema %s: %w", name, err)
	}
	return &Schema{Name: name, Description: description, doc: doc, resolved: resolved}, nil
}

// MustSchemaFor is SchemaFor for package-level schema variables.
func MustSchemaFor[T any](name, description string) *Schema {
	s, err := SchemaFor[T](name, description)
	if err != nil {
		panic(err)
	}
	return s
}

// Map returns a fresh copy of the schema document, safe for a backend to keep or modify.
func (s *Schema) Map() map[string]any {
	return cloneMap(s.doc)
}

// Decode extracts the JSON object from model output, validates it against the schema and
// unmarshals it into v. Every failure wraps ErrInvalidOutput.
func (s *Schema) Decode(outputText string, v any) error {
	raw, err := fileutils.ExtractModelJSON(outputText)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidOutput, s.Name, err)
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidOutput, s.Name, err)
	}
	if err := s.resolved.Validate(instance); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidOutput, s.Name, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidOutput, s.Name, err)
	}
	return nil
}

// GenerateSchema reflects T with the settings structured-output endpoints accept.
// The "$schema" and "$id" keywords are dropped; neither backend needs them.
func GenerateSchema[T any]() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	schemaObj, err := schemaToMap(schema)
	if err != nil {
		return nil, err
	}
	delete(schemaObj, "$schema")
	delete(schemaObj, "$id")
	ensureStrict(schemaObj)
	return schemaObj, nil
}

func schemaToMap(schema *jsonschema.Schema) (map[string]any, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

// ensureStrict closes every object and marks all of its properties required, recursively.
func ensureStrict(schema map[string]any) {
	if schemaType, ok := schema[typeKey].(string); ok && schemaType == "object" {
		schema[additionalPropertiesKey] = false

		if properties, ok := schema[propertiesKey].(map[string]any); ok {
			requiredFields := make([]any, 0, len(properties))
			names := make([]string, 0, len(properties))
			for propName := range properties {
				names = append(names, propName)
			}
			sort.Strings(names)
			for _, n := range names {
				requiredFields = append(requiredFields, n)
			}
			if len(requiredFields) > 0 {
				schema[requiredKey] = requiredFields
			}
		}
	}

	if properties, ok := schema[propertiesKey].(map[string]any); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]any); ok {
				ensureStrict(propMap)
			}
		}
	}

	if items, ok := schema[itemsKey].(map[string]any); ok {
		ensureStrict(items)
	}

	if additionalProps, ok := schema[additionalPropertiesKey].(map[string]any); ok {
		ensureStrict(additionalProps)
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}
