package catalog

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// Arrow field metadata keys recognized by FromArrow.
const (
	// MetadataKind overrides the inferred semantic kind, e.g. marking a
	// string column as "full_text" or a WKB binary column as "geo_point".
	MetadataKind = "cql:kind"

	// MetadataColumn overrides the backing column name.
	MetadataColumn = "cql:column"
)

// FromArrow builds a schema description from an Arrow schema. Column types
// map onto semantic scalar kinds; field metadata can override the inference
// via the MetadataKind key. Columns whose type has no semantic mapping are
// skipped (they are not queryable).
func FromArrow(name string, schema *arrow.Schema) *Static {
	if schema == nil {
		return New(name)
	}
	fields := make([]Field, 0, schema.NumFields())
	for i := 0; i < schema.NumFields(); i++ {
		af := schema.Field(i)
		kind, ok := arrowKind(af.Type)
		if v, found := af.Metadata.GetValue(MetadataKind); found {
			kind, ok = Kind(v), true
		}
		if !ok {
			continue
		}
		f := Field{Name: af.Name, Kind: kind}
		if v, found := af.Metadata.GetValue(MetadataColumn); found {
			f.Column = v
		}
		fields = append(fields, f)
	}
	return New(name, fields...)
}

// arrowKind maps an Arrow data type to a semantic scalar kind.
func arrowKind(dt arrow.DataType) (Kind, bool) {
	switch dt.ID() {
	case arrow.STRING, arrow.LARGE_STRING:
		return KindString, true
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return KindInteger, true
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return KindFloat, true
	case arrow.DECIMAL128, arrow.DECIMAL256:
		return KindDecimal, true
	case arrow.BOOL:
		return KindBoolean, true
	case arrow.TIMESTAMP:
		return KindDateTime, true
	case arrow.DATE32, arrow.DATE64:
		return KindDate, true
	case arrow.TIME32, arrow.TIME64:
		return KindTime, true
	case arrow.LIST, arrow.LARGE_LIST, arrow.FIXED_SIZE_LIST:
		if elem, ok := elemType(dt); ok {
			if ek, eok := arrowKind(elem); eok && ek == KindString {
				return KindStringArray, true
			}
		}
		return "", false
	case arrow.MAP, arrow.STRUCT:
		return KindMap, true
	case arrow.DICTIONARY:
		return KindEnum, true
	case arrow.EXTENSION:
		if ext, ok := dt.(arrow.ExtensionType); ok && ext.ExtensionName() == "geoarrow.wkb" {
			return KindGeoPoint, true
		}
		return "", false
	default:
		return "", false
	}
}

func elemType(dt arrow.DataType) (arrow.DataType, bool) {
	switch t := dt.(type) {
	case *arrow.ListType:
		return t.Elem(), true
	case *arrow.LargeListType:
		return t.Elem(), true
	case *arrow.FixedSizeListType:
		return t.Elem(), true
	default:
		return nil, false
	}
}
