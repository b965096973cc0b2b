// Package catalog describes queryable schemas for the CQL filter compiler:
// semantic scalar kinds, operator identifiers, and field introspection over
// Arrow schemas, Go structs, or plain value objects.
package catalog

import "sort"

// Static is a Schema built from an explicit field list.
// Construct with New; immutable afterwards.
type Static struct {
	name   string
	fields []Field
	byName map[string]Field
	assocs map[string]Association
}

var (
	_ Schema            = (*Static)(nil)
	_ AssociationSchema = (*Static)(nil)
)

// New builds a static schema from an explicit field list.
// Later duplicates of a field name override earlier ones.
func New(name string, fields ...Field) *Static {
	s := &Static{
		name:   name,
		byName: make(map[string]Field, len(fields)),
		assocs: map[string]Association{},
	}
	for _, f := range fields {
		if _, dup := s.byName[f.Name]; !dup {
			s.fields = append(s.fields, f)
		} else {
			for i := range s.fields {
				if s.fields[i].Name == f.Name {
					s.fields[i] = f
				}
			}
		}
		s.byName[f.Name] = f
	}
	return s
}

// WithAssociation returns a copy of the schema with an association added.
func (s *Static) WithAssociation(a Association) *Static {
	ns := &Static{
		name:   s.name,
		fields: s.fields,
		byName: s.byName,
		assocs: make(map[string]Association, len(s.assocs)+1),
	}
	for k, v := range s.assocs {
		ns.assocs[k] = v
	}
	ns.assocs[a.Name] = a
	return ns
}

// Name returns the schema's type name.
func (s *Static) Name() string { return s.name }

// QueryableFields returns the declared fields in declaration order.
func (s *Static) QueryableFields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field resolves a declared field by name.
func (s *Static) Field(name string) (Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// Association resolves a declared association by name.
func (s *Static) Association(name string) (Association, bool) {
	a, ok := s.assocs[name]
	return a, ok
}

// AssociationNames returns the declared association names, sorted.
func (s *Static) AssociationNames() []string {
	names := make([]string, 0, len(s.assocs))
	for name := range s.assocs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// plain is the degenerate schema for objects with no queryable metadata:
// every field name resolves, with unknown kind.
type plain struct {
	name string
}

// Plain returns the schema for a plain value object with no introspection:
// all fields are queryable, their kind is unknown, and only the minimal
// operator set applies.
func Plain(name string) Schema { return plain{name: name} }

func (p plain) Name() string { return p.name }

// QueryableFields returns the empty set: a plain object has no
// introspectable fields. This is not an error condition.
func (p plain) QueryableFields() []Field { return nil }

// Field resolves any name to an unknown-kind field.
func (p plain) Field(name string) (Field, bool) {
	return Field{Name: name, Kind: KindUnknown}, true
}

// FieldKind resolves a field's semantic kind, KindUnknown when the schema
// cannot introspect it.
func FieldKind(s Schema, name string) Kind {
	f, ok := s.Field(name)
	if !ok {
		return KindUnknown
	}
	return f.Kind
}
