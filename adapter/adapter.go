// Package adapter identifies the supported backing data-store engines and
// their static capability tables: which operators are legal for which
// semantic scalar kind on which engine, subject to engine version and
// enabled extensions.
package adapter

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/Masterminds/semver/v3"
)

// Engine is the closed set of supported backends. Scalar operator modules
// switch over Engine exhaustively, so adding an engine is a compile-visible
// change across the compiler.
type Engine string

const (
	Postgres Engine = "postgres"
	MySQL    Engine = "mysql"
	MariaDB  Engine = "mariadb"
	SQLite   Engine = "sqlite"
	DuckDB   Engine = "duckdb"

	// Bleve is the search-engine backend. Filters compile to bleve queries
	// instead of SQL.
	Bleve Engine = "bleve"
)

// Engines lists every supported engine.
func Engines() []Engine {
	return []Engine{Postgres, MySQL, MariaDB, SQLite, DuckDB, Bleve}
}

// mysqlSpatialMin is the first MySQL release with ST_Distance_Sphere.
var mysqlSpatialMin = semver.MustParse("5.7.6")

// Adapter identifies one backend plus the configuration that influences
// operator legality. Adapters are values; construct once at registration
// time and treat as read-only.
type Adapter struct {
	// Engine selects the backend.
	Engine Engine

	// Version is the engine version string ("15.4", "8.0.34").
	// Empty means unknown; version-gated operators are then omitted.
	Version string

	// Extensions lists enabled engine extensions ("postgis", "spatial").
	Extensions []string
}

// HasExtension reports whether the named extension is enabled.
func (a Adapter) HasExtension(name string) bool {
	for _, e := range a.Extensions {
		if e == name {
			return true
		}
	}
	return false
}

// AtLeast reports whether the adapter's version is known and not older
// than min. Unknown or unparsable versions report false, so version-gated
// operators stay off rather than guessing.
func (a Adapter) atLeast(min *semver.Version) bool {
	if a.Version == "" {
		return false
	}
	v, err := semver.NewVersion(a.Version)
	if err != nil {
		return false
	}
	return !v.LessThan(min)
}

// SupportsILike reports whether the engine has native case-insensitive
// pattern matching. Engines without it omit the icontains family rather
// than emulating it incorrectly.
func (a Adapter) SupportsILike() bool {
	switch a.Engine {
	case Postgres, DuckDB:
		return true
	default:
		return false
	}
}

// SupportsSpatial reports whether geo operators are legal on this adapter.
func (a Adapter) SupportsSpatial() bool {
	switch a.Engine {
	case Postgres:
		return a.HasExtension("postgis")
	case MySQL, MariaDB:
		return a.atLeast(mysqlSpatialMin)
	case DuckDB:
		return a.HasExtension("spatial")
	case Bleve:
		return true
	default:
		return false
	}
}

// SupportsArrays reports whether array membership operators are legal.
// Postgres and DuckDB render native array operators, MySQL and MariaDB
// render JSON function calls, SQLite has no rendering at all.
func (a Adapter) SupportsArrays() bool {
	switch a.Engine {
	case Postgres, DuckDB, MySQL, MariaDB, Bleve:
		return true
	default:
		return false
	}
}

// SupportsExplain reports whether the engine exposes a plan-introspection
// facility mature enough for the complexity analyzer. All other engines
// bypass analysis (fail open).
func (a Adapter) SupportsExplain() bool {
	switch a.Engine {
	case Postgres, MySQL:
		return true
	default:
		return false
	}
}

// PlaceholderFormat returns the squirrel placeholder style for the engine.
func (a Adapter) PlaceholderFormat() sq.PlaceholderFormat {
	if a.Engine == Postgres {
		return sq.Dollar
	}
	return sq.Question
}

// QuoteIdentifier quotes a column or table identifier for the engine.
func (a Adapter) QuoteIdentifier(name string) string {
	switch a.Engine {
	case MySQL, MariaDB:
		return "`" + name + "`"
	default:
		return `"` + name + `"`
	}
}
