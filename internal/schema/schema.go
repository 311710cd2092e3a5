// Package schema describes every stored document kind as data and
// validates loosely typed JSON documents against it.
package schema

import (
	"encoding/json"
	"fmt"
)

// Type is the JSON shape a field must have.
type Type int

const (
	String Type = iota
	Bool
	Number
	Integer
	Timestamp
	TimestampList
	ObjectList
)

func (t Type) String() string {
	switch t {
	case String:
		return "string"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case Integer:
		return "integer"
	case Timestamp:
		return "timestamp"
	case TimestampList:
		return "list of timestamps"
	case ObjectList:
		return "list of objects"
	default:
		return "unknown"
	}
}

// Field is one rule of a schema.
type Field struct {
	Name     string
	Type     Type
	Required bool
	// Nullable fields keep an explicit null instead of dropping it.
	Nullable bool
	Enum     []string
	// NonNegative and Positive bound Number and Integer values.
	NonNegative bool
	Positive    bool
	// Default is applied when the field is absent on create.
	Default func() any
	// Elem holds the rules for each element of an ObjectList.
	Elem []Field
}

// Schema is a document kind and the collection it is stored in.
type Schema struct {
	Kind       string
	Collection string
	Fields     []Field
	// DateField picks the timestamp that buckets a document into a day.
	DateField string
	// Sealed fields are encrypted at rest when a vault is configured.
	Sealed []string
}

// Document is a decoded JSON object.
type Document map[string]any

// ID returns the public identifier, or "" when absent.
func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// String returns a string field, or "" when absent or of another type.
func (d Document) String(name string) string {
	s, _ := d[name].(string)
	return s
}

// Clone deep-copies d through its JSON form so nested lists are not shared.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		panic(fmt.Sprintf("schema: clone of unmarshalable document: %v", err))
	}
	var out Document
	_ = json.Unmarshal(raw, &out)
	return out
}

// Field returns the rule for name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Decode converts a document into a typed value such as core.Task.
func Decode(doc Document, out any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// Encode converts a typed value into a document.
func Encode(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	return doc, nil
}
