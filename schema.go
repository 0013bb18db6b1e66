package sqsdispatch

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema is a JSON Schema that record bodies must satisfy before dispatch.
//
// A single schema checks each body on its own. An array schema checks the
// bodies of a whole group as a list, each item against the schema; in
// iterative mode that list has one element.
type Schema struct {
	item  *jsonschema.Schema
	array bool
}

// CompileSchema compiles a schema applied to each body.
func CompileSchema(name, source string) (*Schema, error) {
	s, err := jsonschema.CompileString(name, source)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{item: s}, nil
}

// CompileArraySchema compiles a schema applied to every item of a body list.
func CompileArraySchema(name, source string) (*Schema, error) {
	s, err := CompileSchema(name, source)
	if err != nil {
		return nil, err
	}
	s.array = true
	return s, nil
}

// MustCompileSchema is like CompileSchema but panics on error.
func MustCompileSchema(name, source string) *Schema {
	s, err := CompileSchema(name, source)
	if err != nil {
		panic(err)
	}
	return s
}

// IsArray reports whether the schema checks lists of bodies.
func (s *Schema) IsArray() bool { return s.array }

// Validate checks the bodies of records that are dispatched together.
func (s *Schema) Validate(records []Record) error {
	if s == nil || len(records) == 0 {
		return nil
	}
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.MessageID
	}
	for i, r := range records {
		var v any
		if err := r.Decode(&v); err != nil {
			return &MalformedBodyError{MessageID: r.MessageID, Err: err}
		}
		if err := s.item.Validate(v); err != nil {
			if s.array {
				return &SchemaValidationError{MessageIDs: ids, Err: fmt.Errorf("item %d: %w", i, err)}
			}
			return &SchemaValidationError{MessageIDs: []string{r.MessageID}, Err: err}
		}
	}
	return nil
}
