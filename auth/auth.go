// Package auth gates query compilation on per-caller field visibility.
package auth

import (
	"context"
	"sort"
	"strings"
)

// Visibility is the set of fields a caller may reference on one object.
type Visibility struct {
	all    bool
	fields map[string]struct{}
}

// All grants visibility of every field.
func All() Visibility {
	return Visibility{all: true}
}

// None grants visibility of no field.
func None() Visibility {
	return Visibility{}
}

// Fields grants visibility of exactly the named fields. Naming an
// association makes the whole association sub-tree visible.
func Fields(names ...string) Visibility {
	v := Visibility{fields: make(map[string]struct{}, len(names))}
	for _, n := range names {
		v.fields[n] = struct{}{}
	}
	return v
}

// Allows reports whether the caller may reference name. Qualified names
// ("orders.total") are governed by the association segment: the caller
// sees the nested field iff the association itself is visible.
func (v Visibility) Allows(name string) bool {
	if v.all {
		return true
	}
	if v.fields == nil {
		return false
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	_, ok := v.fields[name]
	return ok
}

// Callback resolves the caller's visibility for one object. Implementations
// MUST be goroutine-safe; the identity is available on the context via
// IdentityFromContext.
type Callback func(ctx context.Context, object string) (Visibility, error)

// UnauthorizedFieldsError reports every referenced field the caller may not
// see. Fields is sorted and complete so a client can fix the whole request
// in one round trip.
type UnauthorizedFieldsError struct {
	Object string
	Fields []string
}

func (e *UnauthorizedFieldsError) Error() string {
	return "unauthorized fields on " + e.Object + ": " + strings.Join(e.Fields, ", ")
}

func sortedDenied(fields map[string]struct{}) []string {
	out := make([]string, 0, len(fields))
	for f := range fields {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
