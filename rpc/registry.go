package rpc

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// DiscoverMethod is the reserved method name that triggers API discovery
// through the normal dispatch path.
const DiscoverMethod = "rpc.discover"

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// Registry holds the set of exposed procedures. Registration is expected
// to complete before serving begins; lookups afterwards are read-only and
// need no locking.
type Registry struct {
	title       string
	description string
	version     string

	procs  []*Procedure
	byName map[string]*Procedure
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithTitle sets the API title reported by discovery.
func WithTitle(title string) RegistryOption {
	return func(r *Registry) { r.title = title }
}

// WithDescription sets the API description reported by discovery.
func WithDescription(desc string) RegistryOption {
	return func(r *Registry) { r.description = desc }
}

// WithVersion sets the API version reported by discovery.
func WithVersion(version string) RegistryOption {
	return func(r *Registry) { r.version = version }
}

// New creates an empty Registry.
func New(opts ...RegistryOption) *Registry {
	r := &Registry{
		version: "0",
		byName:  make(map[string]*Procedure),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Title returns the API title.
func (r *Registry) Title() string { return r.title }

// Description returns the API description.
func (r *Registry) Description() string { return r.description }

// Version returns the API version.
func (r *Registry) Version() string { return r.version }

// Procedure is one registered method: the handler plus everything derived
// from its signature and registration options. Immutable after Register
// returns.
type Procedure struct {
	name       string
	handler    reflect.Value
	paramType  reflect.Type // params struct type, nil when the handler takes none
	paramPtr   bool         // handler takes *P rather than P
	params     []ParamSpec
	returnType reflect.Type // nil when the handler returns only error
	resultType reflect.Type // discovery override for returnType
	errors     []ErrorVariant
	deprecated bool
	doc        Doc
}

// Name returns the public method name.
func (p *Procedure) Name() string { return p.name }

// Params returns the ordered parameter specs.
func (p *Procedure) Params() []ParamSpec { return p.params }

// ReturnType returns the declared result type, honoring a WithResultType
// override. nil means the method returns nothing.
func (p *Procedure) ReturnType() reflect.Type {
	if p.resultType != nil {
		return p.resultType
	}
	return p.returnType
}

// Errors returns the declared error variants in declaration order.
func (p *Procedure) Errors() []ErrorVariant { return p.errors }

// Deprecated reports whether the method is marked deprecated.
func (p *Procedure) Deprecated() bool { return p.deprecated }

// Doc returns the parsed documentation.
func (p *Procedure) Doc() Doc { return p.doc }

// MethodOption configures a registration.
type MethodOption func(*Procedure)

// WithErrors declares the error variants the method may raise. Order is
// preserved in discovery output.
func WithErrors(variants ...ErrorVariant) MethodOption {
	return func(p *Procedure) { p.errors = append(p.errors, variants...) }
}

// Deprecated marks the method deprecated in discovery output.
func Deprecated() MethodOption {
	return func(p *Procedure) { p.deprecated = true }
}

// WithDoc attaches documentation text. The first line is the summary, the
// following paragraph the description; "@param name: text" lines document
// parameters and "@return: text" the result.
func WithDoc(text string) MethodOption {
	return func(p *Procedure) { p.doc = ParseDoc(text) }
}

// WithResultType overrides the result type used by discovery. sample is a
// zero value of the desired type; the handler's own return type is used
// for execution regardless.
func WithResultType(sample any) MethodOption {
	return func(p *Procedure) { p.resultType = reflect.TypeOf(sample) }
}

// Register exposes handler under name. Supported handler forms:
//
//	func(ctx context.Context) error
//	func(ctx context.Context) (R, error)
//	func(ctx context.Context, params P) error
//	func(ctx context.Context, params P) (R, error)
//
// P must be a struct or pointer to struct; its fields, in declaration
// order, are the method's parameters. Field names come from json tags,
// defaults from a `default` tag holding a JSON literal:
//
//	type SumParams struct {
//	    A int `json:"a"`
//	    B int `json:"b"`
//	    C int `json:"c" default:"3"`
//	}
//
// Register fails with ErrDuplicateMethod if name is taken and with
// ErrReservedMethod for names in the "rpc." namespace.
func (r *Registry) Register(name string, handler any, opts ...MethodOption) error {
	if strings.HasPrefix(name, "rpc.") {
		return fmt.Errorf("%w: %s", ErrReservedMethod, name)
	}
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateMethod, name)
	}

	hv := reflect.ValueOf(handler)
	if !hv.IsValid() || hv.Kind() != reflect.Func {
		return fmt.Errorf("rpc: handler for %s is not a function", name)
	}

	p := &Procedure{name: name, handler: hv}
	if err := p.parseSignature(hv.Type()); err != nil {
		return fmt.Errorf("rpc: %s: %w", name, err)
	}
	for _, opt := range opts {
		opt(p)
	}

	r.procs = append(r.procs, p)
	r.byName[name] = p
	return nil
}

// MustRegister is Register that panics on error, for process-setup code.
func (r *Registry) MustRegister(name string, handler any, opts ...MethodOption) {
	if err := r.Register(name, handler, opts...); err != nil {
		panic(err)
	}
}

// Lookup returns the procedure registered under name.
func (r *Registry) Lookup(name string) (*Procedure, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Procedures returns all procedures in registration order. The slice is
// shared; callers must not mutate it.
func (r *Registry) Procedures() []*Procedure {
	return r.procs
}

func (p *Procedure) parseSignature(ft reflect.Type) error {
	if ft.IsVariadic() {
		return fmt.Errorf("variadic handlers are not supported")
	}
	if ft.NumIn() < 1 || ft.NumIn() > 2 || ft.In(0) != ctxType {
		return fmt.Errorf("handler must take (context.Context) or (context.Context, params)")
	}
	if ft.NumOut() < 1 || ft.NumOut() > 2 || ft.Out(ft.NumOut()-1) != errType {
		return fmt.Errorf("handler must return error or (result, error)")
	}

	if ft.NumIn() == 2 {
		pt := ft.In(1)
		if pt.Kind() == reflect.Ptr {
			p.paramPtr = true
			pt = pt.Elem()
		}
		if pt.Kind() != reflect.Struct {
			return fmt.Errorf("params must be a struct, got %s", ft.In(1))
		}
		p.paramType = pt
		specs, err := describeParams(pt)
		if err != nil {
			return err
		}
		p.params = specs
	}

	if ft.NumOut() == 2 {
		p.returnType = ft.Out(0)
	}
	return nil
}
