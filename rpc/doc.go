// Package rpc holds the procedure registry at the center of the engine:
// method registration, signature-derived parameter specs, argument
// binding, and the coded error taxonomy shared by server and client.
//
// # Registration
//
// Handlers are plain functions taking a context and an optional params
// struct:
//
//	reg := rpc.New(rpc.WithTitle("Math API"), rpc.WithVersion("1.0"))
//	type SumParams struct {
//	    A int `json:"a"`
//	    B int `json:"b"`
//	    C int `json:"c" default:"3"`
//	}
//	reg.Register("sum", func(ctx context.Context, p SumParams) (int, error) {
//	    return p.A + p.B + p.C, nil
//	})
//
// The params struct doubles as the parameter table: field order is the
// positional order, json tags are the wire names, and a `default` tag
// (a JSON literal) makes a parameter optional.
//
// # Binding
//
// Bind accepts named (object) or positional (array) params, fills
// defaults, and enforces arity with exact diagnostics ("Missing 2
// required argument(s):  text, a", "Got an unexpected argument: b",
// "Method takes 2 positional arguments but 3 were given"). Binding never
// invokes the handler.
//
// # Errors
//
// Handlers fail a call by returning a *Error (verbatim code/message/data
// on the wire), a declared ErrorVariant via Variant(...).Err(data), or
// any other error, which the dispatcher maps to code -32000 with the
// error text; WithData attaches a payload to such errors.
//
// Registration is not safe for use concurrently with lookups; finish
// registering before serving.
package rpc
