package openrpc

import (
	"reflect"
	"regexp"
	"strings"
)

var nameSanitizer = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// sanitizeName maps a type's display name into the schema-name alphabet.
func sanitizeName(name string) string {
	return nameSanitizer.ReplaceAllString(name, "_")
}

// longName is the fully-qualified fallback used when two distinct types
// share a sanitized display name: declaring package path plus type name,
// with path separators flattened.
func longName(t reflect.Type) string {
	pkg := strings.NewReplacer("/", "__", ".", "__", "-", "_").Replace(t.PkgPath())
	return sanitizeName(pkg) + "__" + sanitizeName(t.Name())
}

// assignNames resolves schema names for the given types, in order. A base
// name is a type's sanitized display name; when two distinct types claim
// the same base name, both are demoted to their long form and the base
// name is retired for the rest of the assignment. The result is
// deterministic for a fixed input order, so repeated generation from an
// unchanged registry yields identical names.
func assignNames(types []reflect.Type) map[reflect.Type]string {
	names := make(map[reflect.Type]string, len(types))
	owner := make(map[string]reflect.Type, len(types))
	retired := make(map[string]bool)

	for _, t := range types {
		if _, ok := names[t]; ok {
			continue
		}
		base := sanitizeName(t.Name())
		if retired[base] {
			names[t] = longName(t)
			continue
		}
		if prev, claimed := owner[base]; claimed {
			retired[base] = true
			delete(owner, base)
			names[prev] = longName(prev)
			names[t] = longName(t)
			continue
		}
		owner[base] = t
		names[t] = base
	}
	return names
}
