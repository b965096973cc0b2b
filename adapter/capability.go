package adapter

import "github.com/hugr-lab/cql/catalog"

// Operator capability tables. One table per engine family; the advertised
// set is exactly the set the scalar modules render. An operator outside the
// advertised set is a guaranteed no-op during compilation.

var minimalOps = []catalog.Operator{
	catalog.OpEquals, catalog.OpNotEquals,
	catalog.OpGreaterThan, catalog.OpGreaterOrEquals,
	catalog.OpLessThan, catalog.OpLessOrEquals,
	catalog.OpIn, catalog.OpNotIn, catalog.OpIsNull,
}

var equalityOps = []catalog.Operator{
	catalog.OpEquals, catalog.OpNotEquals,
	catalog.OpIn, catalog.OpNotIn, catalog.OpIsNull,
}

var orderedOps = []catalog.Operator{
	catalog.OpEquals, catalog.OpNotEquals,
	catalog.OpGreaterThan, catalog.OpGreaterOrEquals,
	catalog.OpLessThan, catalog.OpLessOrEquals,
	catalog.OpIsNull,
}

var patternOps = []catalog.Operator{
	catalog.OpContains, catalog.OpNotContains,
	catalog.OpStartsWith, catalog.OpEndsWith,
}

var ciPatternOps = []catalog.Operator{
	catalog.OpIContains, catalog.OpIStartsWith, catalog.OpIEndsWith,
}

var arrayOps = []catalog.Operator{
	catalog.OpIncludes, catalog.OpExcludes,
	catalog.OpIncludesAll, catalog.OpExcludesAll, catalog.OpIncludesAny,
	catalog.OpIsEmpty, catalog.OpIsNull,
}

var geoOps = []catalog.Operator{
	catalog.OpNear, catalog.OpWithinBBox, catalog.OpIsNull,
}

// OperatorsFor returns the legal operator set for a semantic scalar kind on
// this adapter. The result is freshly allocated; callers may keep it.
// Unknown kinds (plain value objects) get the minimal set.
func (a Adapter) OperatorsFor(kind catalog.Kind) []catalog.Operator {
	if a.Engine == Bleve {
		return a.searchOperatorsFor(kind)
	}
	var ops []catalog.Operator
	switch kind {
	case catalog.KindString:
		ops = append(ops, minimalOps...)
		ops = append(ops, patternOps...)
		if a.SupportsILike() {
			ops = append(ops, ciPatternOps...)
		}
	case catalog.KindInteger, catalog.KindFloat, catalog.KindDecimal:
		ops = append(ops, minimalOps...)
	case catalog.KindBoolean:
		ops = append(ops,
			catalog.OpEquals, catalog.OpNotEquals, catalog.OpIsNull)
	case catalog.KindID, catalog.KindEnum:
		ops = append(ops, equalityOps...)
	case catalog.KindDateTime, catalog.KindDate, catalog.KindTime:
		ops = append(ops, orderedOps...)
	case catalog.KindStringArray:
		if !a.SupportsArrays() {
			return nil
		}
		ops = append(ops, arrayOps...)
		if a.Engine == MariaDB {
			// MariaDB lacks JSON_OVERLAPS on the versions we target.
			ops = remove(ops, catalog.OpIncludesAny)
		}
	case catalog.KindMap:
		ops = append(ops, catalog.OpIsNull)
	case catalog.KindGeoPoint:
		if !a.SupportsSpatial() {
			return nil
		}
		ops = append(ops, geoOps...)
	case catalog.KindFullText:
		ops = a.fullTextOperators()
	default:
		ops = append(ops, minimalOps...)
	}
	return ops
}

// fullTextOperators returns the full-text set for SQL engines: MATCH ...
// AGAINST where the engine has it, pattern-match approximation otherwise,
// and fuzzy omitted everywhere outside the search engine.
func (a Adapter) fullTextOperators() []catalog.Operator {
	switch a.Engine {
	case MySQL, MariaDB, Postgres, DuckDB:
		return []catalog.Operator{catalog.OpMatch, catalog.OpPhrase, catalog.OpIsNull}
	case SQLite:
		return []catalog.Operator{catalog.OpMatch, catalog.OpIsNull}
	default:
		return nil
	}
}

// searchOperatorsFor is the Bleve capability table. The search engine has
// no null test; absent fields simply never match.
func (a Adapter) searchOperatorsFor(kind catalog.Kind) []catalog.Operator {
	switch kind {
	case catalog.KindString:
		return []catalog.Operator{
			catalog.OpEquals, catalog.OpNotEquals,
			catalog.OpIn, catalog.OpNotIn,
			catalog.OpContains, catalog.OpNotContains,
			catalog.OpStartsWith, catalog.OpEndsWith,
		}
	case catalog.KindInteger, catalog.KindFloat, catalog.KindDecimal:
		return []catalog.Operator{
			catalog.OpEquals, catalog.OpNotEquals,
			catalog.OpGreaterThan, catalog.OpGreaterOrEquals,
			catalog.OpLessThan, catalog.OpLessOrEquals,
			catalog.OpIn, catalog.OpNotIn,
		}
	case catalog.KindDateTime, catalog.KindDate, catalog.KindTime:
		return []catalog.Operator{
			catalog.OpEquals, catalog.OpNotEquals,
			catalog.OpGreaterThan, catalog.OpGreaterOrEquals,
			catalog.OpLessThan, catalog.OpLessOrEquals,
		}
	case catalog.KindBoolean:
		return []catalog.Operator{catalog.OpEquals, catalog.OpNotEquals}
	case catalog.KindID, catalog.KindEnum:
		return []catalog.Operator{
			catalog.OpEquals, catalog.OpNotEquals,
			catalog.OpIn, catalog.OpNotIn,
		}
	case catalog.KindStringArray:
		return []catalog.Operator{
			catalog.OpIncludes, catalog.OpExcludes,
			catalog.OpIncludesAll, catalog.OpExcludesAll, catalog.OpIncludesAny,
		}
	case catalog.KindGeoPoint:
		return []catalog.Operator{catalog.OpNear, catalog.OpWithinBBox}
	case catalog.KindFullText:
		return []catalog.Operator{catalog.OpMatch, catalog.OpPhrase, catalog.OpFuzzy}
	default:
		return nil
	}
}

// Supports reports whether op is legal for kind on this adapter.
func (a Adapter) Supports(kind catalog.Kind, op catalog.Operator) bool {
	for _, o := range a.OperatorsFor(kind) {
		if o == op {
			return true
		}
	}
	return false
}

func remove(ops []catalog.Operator, drop catalog.Operator) []catalog.Operator {
	out := ops[:0]
	for _, o := range ops {
		if o != drop {
			out = append(out, o)
		}
	}
	return out
}
