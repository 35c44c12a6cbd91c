package openrpc

import (
	"bytes"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// Version is the OpenRPC specification version the generated document
// declares.
const Version = "1.2.4"

// Document is a generated OpenRPC API description.
type Document struct {
	OpenRPC    string      `json:"openrpc"`
	Info       Info        `json:"info"`
	Methods    []Method    `json:"methods"`
	Components *Components `json:"components,omitempty"`
}

// Info describes the API as a whole.
type Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

// Method describes one exposed procedure.
type Method struct {
	Name           string              `json:"name"`
	Summary        string              `json:"summary,omitempty"`
	Description    string              `json:"description,omitempty"`
	Deprecated     bool                `json:"deprecated,omitempty"`
	ParamStructure string              `json:"paramStructure,omitempty"`
	Params         []ContentDescriptor `json:"params"`
	Result         ContentDescriptor   `json:"result"`
	Errors         []ErrorSpec         `json:"errors,omitempty"`
}

// ContentDescriptor is a named, schema-carrying description of one
// parameter or a result.
type ContentDescriptor struct {
	Name     string             `json:"name"`
	Summary  string             `json:"summary,omitempty"`
	Required bool               `json:"required"`
	Schema   *jsonschema.Schema `json:"schema"`
}

// ErrorSpec describes one declared error variant. Data is the schema of
// the variant's data shape; it stays an explicit null when the variant
// declares none.
type ErrorSpec struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Components holds the document's shared schema table.
type Components struct {
	Schemas *SchemaTable `json:"schemas,omitempty"`
}

// SchemaTable is the deduplicated schema table. Unlike a plain map it
// marshals in insertion order, so the document is byte-stable across
// generations.
type SchemaTable struct {
	names   []string
	schemas map[string]*jsonschema.Schema
}

func (t *SchemaTable) add(name string, s *jsonschema.Schema) {
	if t.schemas == nil {
		t.schemas = make(map[string]*jsonschema.Schema)
	}
	if _, ok := t.schemas[name]; !ok {
		t.names = append(t.names, name)
	}
	t.schemas[name] = s
}

// Len returns the number of schemas in the table.
func (t *SchemaTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}

// Names returns the schema names in insertion order.
func (t *SchemaTable) Names() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.names...)
}

// Get returns the schema registered under name.
func (t *SchemaTable) Get(name string) (*jsonschema.Schema, bool) {
	if t == nil {
		return nil, false
	}
	s, ok := t.schemas[name]
	return s, ok
}

// MarshalJSON writes the table as an object in insertion order.
func (t *SchemaTable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range t.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(t.schemas[name])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
