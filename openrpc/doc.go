// Package openrpc generates a machine-readable OpenRPC description of a
// procedure registry: the method catalog, per-parameter and per-result
// schemas, and a deduplicated table of nested data-model schemas, all
// derived from the registered handlers' signatures and documentation.
//
//	doc, err := openrpc.Discover(reg)
//
// The executor serves the document through the reserved "rpc.discover"
// method, so it is usually not called directly.
//
// Named struct types are emitted once into components.schemas and
// referenced by pointer. When two distinct types share a display name,
// both receive a fully-qualified long name (declaring package path plus
// type name) and the short name is retired, so references are always
// unambiguous.
package openrpc
