package filter

import (
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/paulmach/orb"
	"github.com/spf13/cast"

	"github.com/hugr-lab/cql/adapter"
	"github.com/hugr-lab/cql/catalog"
)

// geoModule renders geo-point distance and bounding-region operators,
// advertised only on adapters with spatial capability.
type geoModule struct{}

// NormalizePoint accepts the supported geo value shapes and normalizes them
// to a canonical point, identically across adapters:
//
//   - orb.Point
//   - a two-element tuple [lat, lng]
//   - a map with "lat"/"lng", "lat"/"lon", or "latitude"/"longitude" keys
//
// orb's axis order is (lon, lat).
func NormalizePoint(v any) (orb.Point, error) {
	switch p := v.(type) {
	case orb.Point:
		return p, nil
	case [2]float64:
		return orb.Point{p[1], p[0]}, nil
	}

	if raw, err := cast.ToSliceE(v); err == nil {
		if len(raw) != 2 {
			return orb.Point{}, fmt.Errorf("geo tuple must have 2 elements, got %d", len(raw))
		}
		lat, err := cast.ToFloat64E(raw[0])
		if err != nil {
			return orb.Point{}, err
		}
		lng, err := cast.ToFloat64E(raw[1])
		if err != nil {
			return orb.Point{}, err
		}
		return orb.Point{lng, lat}, nil
	}

	m, err := cast.ToStringMapE(v)
	if err != nil {
		return orb.Point{}, fmt.Errorf("unsupported geo value %T", v)
	}
	lat, ok := firstKey(m, "lat", "latitude")
	if !ok {
		return orb.Point{}, errors.New("geo value is missing a latitude key")
	}
	lng, ok := firstKey(m, "lng", "lon", "longitude")
	if !ok {
		return orb.Point{}, errors.New("geo value is missing a longitude key")
	}
	latF, err := cast.ToFloat64E(lat)
	if err != nil {
		return orb.Point{}, err
	}
	lngF, err := cast.ToFloat64E(lng)
	if err != nil {
		return orb.Point{}, err
	}
	return orb.Point{lngF, latF}, nil
}

func firstKey(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// nearValue is the decoded "near" operator value: a point plus a radius
// in meters. The point may be inline ("lat"/"lng" keys next to "within")
// or nested under "point".
func nearValue(v any) (orb.Point, float64, error) {
	m, err := cast.ToStringMapE(v)
	if err != nil {
		return orb.Point{}, 0, fmt.Errorf("near expects an object with a point and \"within\" meters")
	}
	within, ok := m["within"]
	if !ok {
		return orb.Point{}, 0, errors.New("near requires a \"within\" distance in meters")
	}
	meters, err := cast.ToFloat64E(within)
	if err != nil {
		return orb.Point{}, 0, err
	}
	var pt orb.Point
	if nested, ok := m["point"]; ok {
		pt, err = NormalizePoint(nested)
	} else {
		pt, err = NormalizePoint(m)
	}
	if err != nil {
		return orb.Point{}, 0, err
	}
	return pt, meters, nil
}

// bboxValue decodes the "within_bbox" operator value: {"min": pt, "max": pt}
// or a two-element tuple [southwest, northeast].
func bboxValue(v any) (orb.Point, orb.Point, error) {
	if m, err := cast.ToStringMapE(v); err == nil {
		minRaw, okMin := m["min"]
		maxRaw, okMax := m["max"]
		if !okMin || !okMax {
			return orb.Point{}, orb.Point{}, errors.New("within_bbox requires \"min\" and \"max\" points")
		}
		sw, err := NormalizePoint(minRaw)
		if err != nil {
			return orb.Point{}, orb.Point{}, err
		}
		ne, err := NormalizePoint(maxRaw)
		if err != nil {
			return orb.Point{}, orb.Point{}, err
		}
		return sw, ne, nil
	}
	raw, err := cast.ToSliceE(v)
	if err != nil || len(raw) != 2 {
		return orb.Point{}, orb.Point{}, errors.New("within_bbox expects {min, max} or [southwest, northeast]")
	}
	sw, err := NormalizePoint(raw[0])
	if err != nil {
		return orb.Point{}, orb.Point{}, err
	}
	ne, err := NormalizePoint(raw[1])
	if err != nil {
		return orb.Point{}, orb.Point{}, err
	}
	return sw, ne, nil
}

func (geoModule) sql(col string, op catalog.Operator, value any, ad adapter.Adapter) (sq.Sqlizer, error) {
	switch op {
	case catalog.OpIsNull:
		return nullPred(col, value)
	case catalog.OpNear:
		pt, meters, err := nearValue(value)
		if err != nil {
			return nil, err
		}
		switch ad.Engine {
		case adapter.Postgres:
			return sq.Expr(
				"ST_DWithin("+col+"::geography, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography, ?)",
				pt.Lon(), pt.Lat(), meters), nil
		case adapter.MySQL, adapter.MariaDB:
			return sq.Expr(
				"ST_Distance_Sphere("+col+", ST_SRID(POINT(?, ?), 4326)) <= ?",
				pt.Lon(), pt.Lat(), meters), nil
		case adapter.DuckDB:
			return sq.Expr(
				"ST_Distance_Sphere("+col+", ST_Point(?, ?)) <= ?",
				pt.Lon(), pt.Lat(), meters), nil
		default:
			return nil, nil
		}
	case catalog.OpWithinBBox:
		sw, ne, err := bboxValue(value)
		if err != nil {
			return nil, err
		}
		switch ad.Engine {
		case adapter.Postgres:
			return sq.Expr(
				col+" && ST_MakeEnvelope(?, ?, ?, ?, 4326)",
				sw.Lon(), sw.Lat(), ne.Lon(), ne.Lat()), nil
		case adapter.MySQL, adapter.MariaDB:
			return sq.Expr(
				"MBRContains(ST_SRID(ST_MakeEnvelope(POINT(?, ?), POINT(?, ?)), 4326), "+col+")",
				sw.Lon(), sw.Lat(), ne.Lon(), ne.Lat()), nil
		case adapter.DuckDB:
			return sq.Expr(
				"ST_Within("+col+", ST_MakeEnvelope(?, ?, ?, ?))",
				sw.Lon(), sw.Lat(), ne.Lon(), ne.Lat()), nil
		default:
			return nil, nil
		}
	default:
		return nil, nil
	}
}

func (geoModule) search(field string, op catalog.Operator, value any) (query.Query, error) {
	switch op {
	case catalog.OpNear:
		pt, meters, err := nearValue(value)
		if err != nil {
			return nil, err
		}
		q := query.NewGeoDistanceQuery(pt.Lon(), pt.Lat(), fmt.Sprintf("%gm", meters))
		q.SetField(field)
		return q, nil
	case catalog.OpWithinBBox:
		sw, ne, err := bboxValue(value)
		if err != nil {
			return nil, err
		}
		// Bleve takes the box as top-left / bottom-right corners.
		q := query.NewGeoBoundingBoxQuery(sw.Lon(), ne.Lat(), ne.Lon(), sw.Lat())
		q.SetField(field)
		return q, nil
	default:
		return nil, nil
	}
}
