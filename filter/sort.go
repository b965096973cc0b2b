package filter

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/hugr-lab/cql/adapter"
	"github.com/hugr-lab/cql/catalog"
)

// Direction is a sort direction, including null-placement variants and
// distance ordering. Directions an adapter cannot render degrade to their
// base direction instead of failing the request.
type Direction string

const (
	Asc            Direction = "asc"
	Desc           Direction = "desc"
	AscNullsFirst  Direction = "asc_nulls_first"
	AscNullsLast   Direction = "asc_nulls_last"
	DescNullsFirst Direction = "desc_nulls_first"
	DescNullsLast  Direction = "desc_nulls_last"

	// Near orders by distance from Origin; legal only on geo-point fields
	// of spatially capable adapters.
	Near Direction = "near"
)

// base strips the null-placement qualifier.
func (d Direction) base() Direction {
	switch d {
	case AscNullsFirst, AscNullsLast:
		return Asc
	case DescNullsFirst, DescNullsLast:
		return Desc
	default:
		return d
	}
}

// OrderBy is one sort term. Origin carries the reference point for the
// Near direction and is ignored otherwise.
type OrderBy struct {
	Field     string
	Direction Direction
	Origin    any
}

// ApplySort validates the sort terms against the schema and appends the
// corresponding ORDER BY clauses to base. Unknown fields are structural
// errors; directions the adapter cannot render degrade.
func (c *Compiler) ApplySort(base sq.SelectBuilder, orders []OrderBy) (sq.SelectBuilder, error) {
	for _, o := range orders {
		field, ok := c.Schema.Field(o.Field)
		if !ok {
			return base, malformed("sort."+o.Field, "unknown field")
		}
		col := qualify(c.Table, field.ColumnName())

		if o.Direction == Near {
			clause, args, err := c.nearOrder(col, field, o)
			if err != nil {
				return base, err
			}
			if clause == "" {
				continue
			}
			base = base.OrderByClause(sq.Expr(clause, args...))
			continue
		}

		base = base.OrderBy(col + " " + c.renderDirection(o.Direction))
	}
	return base, nil
}

// renderDirection degrades null-placement variants on engines without
// NULLS FIRST/LAST syntax.
func (c *Compiler) renderDirection(d Direction) string {
	switch c.Adapter.Engine {
	case adapter.MySQL, adapter.MariaDB:
		d = d.base()
	}
	switch d {
	case Desc:
		return "DESC"
	case AscNullsFirst:
		return "ASC NULLS FIRST"
	case AscNullsLast:
		return "ASC NULLS LAST"
	case DescNullsFirst:
		return "DESC NULLS FIRST"
	case DescNullsLast:
		return "DESC NULLS LAST"
	default:
		return "ASC"
	}
}

// nearOrder renders distance ordering. An empty clause means the adapter
// cannot order by distance and the term degrades to a no-op.
func (c *Compiler) nearOrder(col string, field catalog.Field, o OrderBy) (string, []any, error) {
	if field.Kind != catalog.KindGeoPoint {
		return "", nil, malformed("sort."+o.Field, "distance ordering requires a geo point field")
	}
	if !c.Adapter.SupportsSpatial() {
		return "", nil, nil
	}
	pt, err := NormalizePoint(o.Origin)
	if err != nil {
		return "", nil, malformed("sort."+o.Field, "%v", err)
	}
	switch c.Adapter.Engine {
	case adapter.Postgres:
		return "ST_Distance(" + col + "::geography, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography)",
			[]any{pt.Lon(), pt.Lat()}, nil
	case adapter.MySQL, adapter.MariaDB:
		return "ST_Distance_Sphere(" + col + ", ST_SRID(POINT(?, ?), 4326))",
			[]any{pt.Lon(), pt.Lat()}, nil
	case adapter.DuckDB:
		return "ST_Distance_Sphere(" + col + ", ST_Point(?, ?))",
			[]any{pt.Lon(), pt.Lat()}, nil
	default:
		return "", nil, nil
	}
}

// Sort builds the search-engine sort order. Null-placement variants degrade
// to their base direction; distance ordering maps to the native geo sort.
func (c *SearchCompiler) Sort(orders []OrderBy) (search.SortOrder, error) {
	var out search.SortOrder
	for _, o := range orders {
		field, ok := c.Schema.Field(o.Field)
		if !ok {
			return nil, malformed("sort."+o.Field, "unknown field")
		}

		if o.Direction == Near {
			if field.Kind != catalog.KindGeoPoint {
				return nil, malformed("sort."+o.Field, "distance ordering requires a geo point field")
			}
			pt, err := NormalizePoint(o.Origin)
			if err != nil {
				return nil, malformed("sort."+o.Field, "%v", err)
			}
			gs, err := search.NewSortGeoDistance(field.Name, "m", pt.Lon(), pt.Lat(), false)
			if err != nil {
				return nil, malformed("sort."+o.Field, "%v", err)
			}
			out = append(out, gs)
			continue
		}

		out = append(out, &search.SortField{
			Field: field.Name,
			Desc:  o.Direction.base() == Desc,
		})
	}
	return out, nil
}
