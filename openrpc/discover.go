package openrpc

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/mnehpets/rpcserve/rpc"
)

const refPrefix = "#/components/schemas/"

var (
	timeType = reflect.TypeOf(time.Time{})
	rawType  = reflect.TypeOf(json.RawMessage{})
)

// Handler returns a discovery hook serving the document for reg, in the
// shape the executor's WithDiscoverDoc option expects.
func Handler(reg *rpc.Registry) func(context.Context) (any, error) {
	return func(context.Context) (any, error) {
		return Discover(reg)
	}
}

// Discover builds the OpenRPC description of every procedure in reg:
// methods in registration order, one ContentDescriptor per parameter and
// one for the result, with nested structured types expanded once into
// the components schema table and referenced from everywhere else.
//
// Generation is a pure function of the registry: an unchanged registry
// yields a byte-identical document.
func Discover(reg *rpc.Registry) (*Document, error) {
	types := collectTypes(reg)
	names := assignNames(types)

	doc := &Document{
		OpenRPC: Version,
		Info: Info{
			Title:       reg.Title(),
			Description: reg.Description(),
			Version:     reg.Version(),
		},
		Methods: make([]Method, 0, len(reg.Procedures())),
	}

	for _, p := range reg.Procedures() {
		doc.Methods = append(doc.Methods, describeMethod(p, names))
	}

	if len(types) > 0 {
		table := &SchemaTable{}
		for _, t := range types {
			table.add(names[t], structSchema(t, names))
		}
		doc.Components = &Components{Schemas: table}
	}
	return doc, nil
}

func describeMethod(p *rpc.Procedure, names map[reflect.Type]string) Method {
	doc := p.Doc()
	m := Method{
		Name:           p.Name(),
		Summary:        doc.Summary,
		Description:    doc.Description,
		Deprecated:     p.Deprecated(),
		ParamStructure: "by-name",
		Params:         make([]ContentDescriptor, 0, len(p.Params())),
	}

	for _, spec := range p.Params() {
		m.Params = append(m.Params, ContentDescriptor{
			Name:     spec.Name,
			Summary:  doc.ParamDoc(spec.Name),
			Required: !spec.HasDefault,
			Schema:   schemaFor(spec.Type, names, titleize(spec.Name)),
		})
	}

	result := ContentDescriptor{
		Name:     "result",
		Summary:  doc.Returns,
		Required: true,
		Schema:   &jsonschema.Schema{},
	}
	if rt := p.ReturnType(); rt != nil {
		result.Schema = schemaFor(rt, names, "Result")
	}
	m.Result = result

	for _, v := range p.Errors() {
		spec := ErrorSpec{Code: v.Code, Message: v.Message}
		if v.DataShape != nil {
			spec.Data = schemaFor(reflect.TypeOf(v.DataShape), names, "")
		}
		m.Errors = append(m.Errors, spec)
	}
	return m
}

// collectTypes walks every parameter, result, and error data shape in
// registration order and returns the named struct types encountered, in
// first-reference order. That order fixes both naming and the schema
// table layout.
func collectTypes(reg *rpc.Registry) []reflect.Type {
	var order []reflect.Type
	seen := make(map[reflect.Type]bool)

	var walk func(t reflect.Type)
	walk = func(t reflect.Type) {
		switch {
		case t == nil:
			return
		case t.Kind() == reflect.Ptr, t.Kind() == reflect.Slice,
			t.Kind() == reflect.Array, t.Kind() == reflect.Map:
			walk(t.Elem())
		case isSchemaStruct(t):
			if seen[t] {
				return
			}
			seen[t] = true
			order = append(order, t)
			for i := 0; i < t.NumField(); i++ {
				f := t.Field(i)
				if !f.IsExported() || jsonName(f) == "-" {
					continue
				}
				walk(f.Type)
			}
		}
	}

	for _, p := range reg.Procedures() {
		for _, spec := range p.Params() {
			walk(spec.Type)
		}
		walk(p.ReturnType())
		for _, v := range p.Errors() {
			if v.DataShape != nil {
				walk(reflect.TypeOf(v.DataShape))
			}
		}
	}
	return order
}

// isSchemaStruct reports whether t is rendered as a named schema-table
// entry rather than inline.
func isSchemaStruct(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t.Name() != "" &&
		t != timeType
}

// schemaFor renders the schema of a single value slot. Named structs
// become references into the schema table; primitives are inlined with a
// title matching their slot name.
func schemaFor(t reflect.Type, names map[reflect.Type]string, title string) *jsonschema.Schema {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t == timeType {
		return &jsonschema.Schema{Title: title, Type: "string", Format: "date-time"}
	}
	if t == rawType {
		return &jsonschema.Schema{Title: title}
	}
	if isSchemaStruct(t) {
		return &jsonschema.Schema{Ref: refPrefix + names[t]}
	}

	switch t.Kind() {
	case reflect.Bool:
		return &jsonschema.Schema{Title: title, Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &jsonschema.Schema{Title: title, Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return &jsonschema.Schema{Title: title, Type: "number"}
	case reflect.String:
		return &jsonschema.Schema{Title: title, Type: "string"}
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return &jsonschema.Schema{Title: title, Type: "string"}
		}
		return &jsonschema.Schema{
			Title: title,
			Type:  "array",
			Items: schemaFor(t.Elem(), names, ""),
		}
	case reflect.Map:
		s := &jsonschema.Schema{Title: title, Type: "object"}
		if t.Elem().Kind() != reflect.Interface {
			s.AdditionalProperties = schemaFor(t.Elem(), names, "")
		}
		return s
	default:
		// interfaces and anything else: unconstrained
		return &jsonschema.Schema{Title: title}
	}
}

// structSchema renders the full definition emitted into the schema table.
func structSchema(t reflect.Type, names map[reflect.Type]string) *jsonschema.Schema {
	s := &jsonschema.Schema{
		Title:      names[t],
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema),
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := jsonName(f)
		if name == "-" {
			continue
		}
		s.Properties[name] = schemaFor(f.Type, names, titleize(name))
		if fieldRequired(f) {
			s.Required = append(s.Required, name)
		}
	}
	return s
}

func jsonName(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("json"); ok {
		name := strings.Split(tag, ",")[0]
		if name != "" {
			return name
		}
	}
	return f.Name
}

// fieldRequired mirrors the binder's optionality rules: pointers,
// omitempty fields, and fields with a declared default are optional.
func fieldRequired(f reflect.StructField) bool {
	if f.Type.Kind() == reflect.Ptr {
		return false
	}
	if _, ok := f.Tag.Lookup("default"); ok {
		return false
	}
	if tag, ok := f.Tag.Lookup("json"); ok {
		for _, opt := range strings.Split(tag, ",")[1:] {
			if opt == "omitempty" {
				return false
			}
		}
	}
	return true
}

func titleize(name string) string {
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
