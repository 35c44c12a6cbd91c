package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"reflect"
	"strings"
)

// ParamSpec describes one declared parameter of a procedure. Specs are
// derived once at registration and ordered by field declaration, which is
// significant for positional binding.
type ParamSpec struct {
	Name       string
	Type       reflect.Type
	HasDefault bool
	Default    json.RawMessage

	index int // field index in the params struct
}

// describeParams builds the parameter table for a params struct. Fields
// tagged `json:"-"` and unexported fields are skipped.
func describeParams(st reflect.Type) ([]ParamSpec, error) {
	specs := make([]ParamSpec, 0, st.NumField())
	seen := make(map[string]bool)
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName := strings.Split(tag, ",")[0]
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate parameter name %q", name)
		}
		seen[name] = true

		spec := ParamSpec{Name: name, Type: f.Type, index: i}
		if def, ok := f.Tag.Lookup("default"); ok {
			spec.HasDefault = true
			spec.Default = defaultLiteral(def)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// defaultLiteral interprets a `default` tag value as a JSON literal,
// falling back to a string literal for bare text like `default:"hello"`.
func defaultLiteral(tag string) json.RawMessage {
	if json.Valid([]byte(tag)) {
		return json.RawMessage(tag)
	}
	quoted, _ := json.Marshal(tag)
	return json.RawMessage(quoted)
}

// ObjectMember is one key/value pair of a JSON object, in source order.
type ObjectMember struct {
	Key   string
	Value json.RawMessage
}

// DecodeObject decodes a JSON object preserving member order. Standard
// map decoding loses it, and both unexpected-argument reporting and the
// legacy v1 wire format depend on caller key order.
func DecodeObject(data []byte) ([]ObjectMember, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("rpc: not a JSON object")
	}
	var members []ObjectMember
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("rpc: invalid object key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		members = append(members, ObjectMember{Key: key, Value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return members, nil
}

// Bind assembles a call-ready params struct from raw JSON params, which
// may be a JSON object (named), a JSON array (positional), or absent.
// Binding enforces arity and required/optional rules but does not invoke
// the handler; value errors surface as Invalid params. The returned
// reflect.Value is invalid when the procedure takes no params struct.
func (p *Procedure) Bind(rawParams json.RawMessage) (reflect.Value, *Error) {
	raw := bytes.TrimSpace(rawParams)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		return p.bindNamed(nil)
	case raw[0] == '[':
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return reflect.Value{}, invalidParams("Params are not parsable")
		}
		return p.bindPositional(list)
	case raw[0] == '{':
		members, err := DecodeObject(raw)
		if err != nil {
			return reflect.Value{}, invalidParams("Params are not parsable")
		}
		return p.bindNamed(members)
	default:
		return reflect.Value{}, invalidParams("Params must be an object or an array")
	}
}

func (p *Procedure) newParams() reflect.Value {
	if p.paramType == nil {
		return reflect.Value{}
	}
	return reflect.New(p.paramType)
}

func (p *Procedure) bindNamed(supplied []ObjectMember) (reflect.Value, *Error) {
	byName := make(map[string]*ParamSpec, len(p.params))
	for i := range p.params {
		byName[p.params[i].Name] = &p.params[i]
	}

	// The first unknown key in caller order wins the diagnostic.
	values := make(map[string]json.RawMessage, len(supplied))
	for _, m := range supplied {
		if _, ok := byName[m.Key]; !ok {
			return reflect.Value{}, unexpectedArgument(m.Key)
		}
		values[m.Key] = m.Value
	}

	var missing []string
	for _, spec := range p.params {
		if _, ok := values[spec.Name]; !ok && !spec.HasDefault {
			missing = append(missing, spec.Name)
		}
	}
	if len(missing) > 0 {
		return reflect.Value{}, missingArguments(missing)
	}

	pv := p.newParams()
	for _, spec := range p.params {
		raw, ok := values[spec.Name]
		if !ok {
			raw = spec.Default
		}
		if err := setField(pv, spec, raw); err != nil {
			return reflect.Value{}, invalidArgumentValue(spec.Name)
		}
	}
	return pv, nil
}

// bindPositional assigns list elements to specs in declaration order. An
// empty list binds like absent params, so arity problems there report the
// missing names rather than a count mismatch.
func (p *Procedure) bindPositional(list []json.RawMessage) (reflect.Value, *Error) {
	if len(list) == 0 {
		return p.bindNamed(nil)
	}

	required := 0
	for _, spec := range p.params {
		if !spec.HasDefault {
			required++
		}
	}
	if len(list) > len(p.params) || len(list) < required {
		return reflect.Value{}, positionalArity(len(p.params), len(list))
	}

	// The count gate alone is not enough when a defaulted field precedes
	// a required one: every spec past the supplied values must have a
	// default of its own.
	var missing []string
	for _, spec := range p.params[len(list):] {
		if !spec.HasDefault {
			missing = append(missing, spec.Name)
		}
	}
	if len(missing) > 0 {
		return reflect.Value{}, missingArguments(missing)
	}

	pv := p.newParams()
	for i, spec := range p.params {
		raw := spec.Default
		if i < len(list) {
			raw = list[i]
		}
		if err := setField(pv, spec, raw); err != nil {
			return reflect.Value{}, invalidArgumentValue(spec.Name)
		}
	}
	return pv, nil
}

func setField(pv reflect.Value, spec ParamSpec, raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	field := pv.Elem().Field(spec.index)
	return json.Unmarshal(raw, field.Addr().Interface())
}

// Call binds rawParams and invokes the handler. The returned error is a
// *Error for binding failures and declared variants, or the handler's own
// error for undeclared failures. Panics inside the handler are recovered
// and mapped to an internal error.
func (p *Procedure) Call(ctx context.Context, rawParams json.RawMessage) (result any, err error) {
	pv, bindErr := p.Bind(rawParams)
	if bindErr != nil {
		return nil, bindErr
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("rpc: panic in method %s: %v", p.name, r)
			result = nil
			err = NewError(CodeInternalError, "Internal error")
		}
	}()

	args := make([]reflect.Value, 0, 2)
	args = append(args, reflect.ValueOf(ctx))
	if p.paramType != nil {
		if p.paramPtr {
			args = append(args, pv)
		} else {
			args = append(args, pv.Elem())
		}
	}

	out := p.handler.Call(args)
	last := out[len(out)-1]
	if !last.IsNil() {
		return nil, last.Interface().(error)
	}
	if len(out) == 2 {
		return out[0].Interface(), nil
	}
	return nil, nil
}
