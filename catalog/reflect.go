package catalog

import (
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// FromStruct builds a schema description by reflecting over a struct type.
// Field tags control naming and kind inference:
//
//	type Customer struct {
//	    ID    uuid.UUID `cql:"id"`
//	    Name  string    `cql:"name"`
//	    Bio   string    `cql:"bio,full_text"`
//	    Tags  []string  `cql:"tags"`
//	    Home  orb.Point `cql:"home"`
//	    Score float64   `cql:"-"`           // excluded
//	}
//
// Without a tag the lower-snake-cased Go field name is used. The optional
// second tag element forces a semantic kind (e.g. "full_text", "decimal",
// "enum", "id"). Unexported fields and fields of unmappable types are
// skipped. FromStruct accepts a value or pointer; anything that is not a
// struct yields a schema with no queryable fields.
func FromStruct(name string, v any) *Static {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return New(name)
	}

	fields := make([]Field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		fname, forced, skip := parseTag(sf)
		if skip {
			continue
		}
		kind, ok := structKind(sf.Type)
		if forced != "" {
			kind, ok = forced, true
		}
		if !ok {
			continue
		}
		fields = append(fields, Field{Name: fname, Kind: kind})
	}
	return New(name, fields...)
}

func parseTag(sf reflect.StructField) (name string, kind Kind, skip bool) {
	tag := sf.Tag.Get("cql")
	if tag == "-" {
		return "", "", true
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	if name == "" {
		name = snakeCase(sf.Name)
	}
	if len(parts) > 1 && parts[1] != "" {
		kind = Kind(parts[1])
	}
	return name, kind, false
}

var (
	timeType  = reflect.TypeOf(time.Time{})
	uuidType  = reflect.TypeOf(uuid.UUID{})
	pointType = reflect.TypeOf(orb.Point{})
)

// structKind maps a Go type to a semantic scalar kind.
func structKind(t reflect.Type) (Kind, bool) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t {
	case timeType:
		return KindDateTime, true
	case uuidType:
		return KindID, true
	case pointType:
		return KindGeoPoint, true
	}
	switch t.Kind() {
	case reflect.String:
		return KindString, true
	case reflect.Bool:
		return KindBoolean, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInteger, true
	case reflect.Float32, reflect.Float64:
		return KindFloat, true
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.String {
			return KindStringArray, true
		}
		return "", false
	case reflect.Map:
		return KindMap, true
	default:
		return "", false
	}
}

// snakeCase converts a Go field name to lower snake case.
func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && (s[i-1] < 'A' || s[i-1] > 'Z') {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
