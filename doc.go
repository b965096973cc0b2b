// Package cql compiles declarative filter expressions into backend-native
// queries for relational, columnar, and search engines.
//
// The package ties four concerns together:
//   - Registering queryable objects (schema + backend adapter) using a
//     fluent builder API
//   - Compiling filter trees into SQL predicates or search queries through
//     per-engine capability tables
//   - Authorizing the referenced field set before anything is compiled
//   - Scoring admitted SQL against the backend planner and rejecting
//     queries that exceed an adaptive complexity threshold
//
// # Quick Start
//
// Register an object and compile a wire filter against it:
//
//	schema := catalog.New("users",
//	    catalog.Field{Name: "name", Kind: catalog.KindString},
//	    catalog.Field{Name: "age", Kind: catalog.KindInteger},
//	)
//
//	reg, err := cql.New().
//	    Object("users", schema, adapter.Adapter{Engine: adapter.Postgres}).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := reg.Compile(ctx, cql.Request{
//	    Object:    "users",
//	    RawFilter: []byte(`{"name": {"equals": "alice"}, "age": {"greater_than": 21}}`),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rows, err := db.QueryContext(ctx, res.SQL, res.Args...)
//
// Filters degrade rather than fail: operators a backend cannot render are
// silent no-ops, and an empty filter compiles to the unrestricted query.
// Structural violations (unknown fields, misplaced markers) are errors.
package cql
