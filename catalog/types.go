package catalog

// Kind is the semantic scalar type of a queryable field. Operator legality
// is a function of (Kind, adapter), not of the raw storage type.
type Kind string

const (
	KindString      Kind = "string"
	KindInteger     Kind = "integer"
	KindFloat       Kind = "float"
	KindDecimal     Kind = "decimal"
	KindBoolean     Kind = "boolean"
	KindID          Kind = "id"
	KindDateTime    Kind = "datetime"
	KindDate        Kind = "date"
	KindTime        Kind = "time"
	KindEnum        Kind = "enum"
	KindStringArray Kind = "string_array"
	KindMap         Kind = "map"
	KindGeoPoint    Kind = "geo_point"
	KindFullText    Kind = "full_text"

	// KindUnknown is assigned when a schema offers no type information
	// (plain value objects). Such fields get the minimal operator set.
	KindUnknown Kind = "unknown"
)

// Operator identifies a comparison or test scoped to a semantic scalar kind.
type Operator string

const (
	OpEquals          Operator = "equals"
	OpNotEquals       Operator = "not_equals"
	OpGreaterThan     Operator = "greater_than"
	OpGreaterOrEquals Operator = "greater_or_equals"
	OpLessThan        Operator = "less_than"
	OpLessOrEquals    Operator = "less_or_equals"
	OpIn              Operator = "in"
	OpNotIn           Operator = "not_in"
	OpIsNull          Operator = "is_null"

	// String pattern operators. The "i" variants are case-insensitive and
	// adapter-conditional: adapters without native support omit them from
	// the advertised set instead of emulating them.
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpStartsWith  Operator = "starts_with"
	OpEndsWith    Operator = "ends_with"
	OpIContains   Operator = "icontains"
	OpIStartsWith Operator = "istarts_with"
	OpIEndsWith   Operator = "iends_with"

	// Array membership operators.
	OpIncludes    Operator = "includes"
	OpExcludes    Operator = "excludes"
	OpIncludesAll Operator = "includes_all"
	OpExcludesAll Operator = "excludes_all"
	OpIncludesAny Operator = "includes_any"
	OpIsEmpty     Operator = "is_empty"

	// Geo operators, legal only for adapters advertising spatial capability.
	OpNear       Operator = "near"
	OpWithinBBox Operator = "within_bbox"

	// Full-text operators, native to the search engine adapter. SQL-family
	// adapters approximate with pattern matching or omit them.
	OpMatch  Operator = "match"
	OpPhrase Operator = "phrase"
	OpFuzzy  Operator = "fuzzy"
)

var operatorNames = map[string]Operator{
	string(OpEquals): OpEquals, string(OpNotEquals): OpNotEquals,
	string(OpGreaterThan): OpGreaterThan, string(OpGreaterOrEquals): OpGreaterOrEquals,
	string(OpLessThan): OpLessThan, string(OpLessOrEquals): OpLessOrEquals,
	string(OpIn): OpIn, string(OpNotIn): OpNotIn, string(OpIsNull): OpIsNull,
	string(OpContains): OpContains, string(OpNotContains): OpNotContains,
	string(OpStartsWith): OpStartsWith, string(OpEndsWith): OpEndsWith,
	string(OpIContains): OpIContains, string(OpIStartsWith): OpIStartsWith,
	string(OpIEndsWith): OpIEndsWith,
	string(OpIncludes): OpIncludes, string(OpExcludes): OpExcludes,
	string(OpIncludesAll): OpIncludesAll, string(OpExcludesAll): OpExcludesAll,
	string(OpIncludesAny): OpIncludesAny, string(OpIsEmpty): OpIsEmpty,
	string(OpNear): OpNear, string(OpWithinBBox): OpWithinBBox,
	string(OpMatch): OpMatch, string(OpPhrase): OpPhrase, string(OpFuzzy): OpFuzzy,
}

// ParseOperator resolves an operator name from wire input.
// Returns false for names that are not operators (combinator keys,
// association sub-filters, typos).
func ParseOperator(name string) (Operator, bool) {
	op, ok := operatorNames[name]
	return op, ok
}

// Field describes one queryable field of a schema.
type Field struct {
	// Name is the caller-facing field name.
	Name string

	// Column is the backing column. Defaults to Name when empty.
	Column string

	// Kind drives operator legality.
	Kind Kind
}

// ColumnName returns the backing column, falling back to the field name.
func (f Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

// Schema describes a queryable type. Implementations MUST be goroutine-safe;
// schemas are established at registration time and never mutated afterwards.
type Schema interface {
	// Name returns the schema's type name.
	Name() string

	// QueryableFields enumerates the introspectable fields. A schema with
	// no introspectable metadata returns an empty slice, never an error.
	QueryableFields() []Field

	// Field resolves a field by caller-facing name. For open schemas
	// (no introspection) every name resolves with KindUnknown.
	Field(name string) (Field, bool)
}

// Association describes a relation from a schema to a related table,
// used for association-scoped sub-filters and existence predicates.
type Association struct {
	// Name is the caller-facing association name.
	Name string

	// Table is the related table.
	Table string

	// LocalKey is the column on the owning table (usually its primary key).
	LocalKey string

	// ForeignKey is the column on the related table referencing LocalKey.
	ForeignKey string

	// Target describes the related table's queryable fields.
	Target Schema
}

// AssociationSchema is implemented by schemas that expose associations.
type AssociationSchema interface {
	Schema

	// Association resolves an association by caller-facing name.
	Association(name string) (Association, bool)
}
