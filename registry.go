package cql

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/hugr-lab/cql/adapter"
	"github.com/hugr-lab/cql/analyze"
	"github.com/hugr-lab/cql/auth"
	"github.com/hugr-lab/cql/catalog"
	"github.com/hugr-lab/cql/filter"
)

// Registry holds the built objects and compiles requests against them.
// Immutable after Build; safe for concurrent use.
type Registry struct {
	objects map[string]*object
	gate    *auth.Gate
	logger  *slog.Logger
}

type object struct {
	name     string
	schema   catalog.Schema
	adapter  adapter.Adapter
	table    string
	analyzer *analyze.Analyzer
	compiler *filter.Compiler
	search   *filter.SearchCompiler
}

// Encoding selects the wire format of Request.RawFilter.
type Encoding int

const (
	EncodingJSON Encoding = iota
	EncodingMsgpack
)

// Request is one compilation request. Either Filter (a pre-built tree) or
// RawFilter (wire bytes) carries the filter; both empty means unrestricted.
type Request struct {
	// Object names the registered object to query.
	Object string

	// Filter is a programmatically built filter tree.
	Filter filter.Expression

	// RawFilter is the wire-encoded filter, decoded per Encoding.
	// Ignored when Filter is set.
	RawFilter []byte
	Encoding  Encoding

	// Sort lists the sort terms, applied after filtering.
	Sort []filter.OrderBy

	// Columns overrides the select list. Empty selects every queryable
	// field, or * when the schema is open.
	Columns []string
}

// Result is the compiled query. SQL engines populate SQL/Args/Builder;
// the search engine populates Search/SearchSort.
type Result struct {
	SQL     string
	Args    []any
	Builder sq.SelectBuilder

	Search     query.Query
	SearchSort search.SortOrder

	// Verdict is the complexity analyzer's decision; Skipped when analysis
	// was disabled or unavailable.
	Verdict analyze.Verdict
}

// Compile authorizes, compiles, and analyzes one request. Failures are
// classified: errors.As(*cql.Error) yields the failure code, and the
// underlying filter/auth/analyze error stays reachable through Unwrap.
func (r *Registry) Compile(ctx context.Context, req Request) (*Result, error) {
	obj, ok := r.objects[req.Object]
	if !ok {
		return nil, &Error{Code: CodeUnknownObject, Err: fmt.Errorf("unknown object %q", req.Object)}
	}

	expr := req.Filter
	if expr == nil && len(req.RawFilter) > 0 {
		var err error
		switch req.Encoding {
		case EncodingMsgpack:
			expr, err = filter.DecodeMsgpack(req.RawFilter)
		default:
			expr, err = filter.Decode(req.RawFilter)
		}
		if err != nil {
			return nil, classify(err)
		}
	}

	fields := filter.ReferencedFields(expr)
	for _, o := range req.Sort {
		fields = append(fields, o.Field)
	}
	if err := r.gate.Check(ctx, obj.name, fields); err != nil {
		return nil, classify(err)
	}

	if obj.adapter.Engine == adapter.Bleve {
		return obj.compileSearch(expr, req.Sort)
	}
	return obj.compileSQL(ctx, expr, req)
}

func (o *object) compileSearch(expr filter.Expression, sort []filter.OrderBy) (*Result, error) {
	q, err := o.search.Compile(expr)
	if err != nil {
		return nil, classify(err)
	}
	order, err := o.search.Sort(sort)
	if err != nil {
		return nil, classify(err)
	}
	return &Result{
		Search:     q,
		SearchSort: order,
		Verdict:    analyze.Verdict{Accepted: true, Skipped: true},
	}, nil
}

func (o *object) compileSQL(ctx context.Context, expr filter.Expression, req Request) (*Result, error) {
	base := sq.Select(o.selectColumns(req.Columns)...).
		From(o.table).
		PlaceholderFormat(o.adapter.PlaceholderFormat())

	base, err := o.compiler.Apply(base, expr)
	if err != nil {
		return nil, classify(err)
	}
	base, err = o.compiler.ApplySort(base, req.Sort)
	if err != nil {
		return nil, classify(err)
	}

	sqlText, args, err := base.ToSql()
	if err != nil {
		return nil, classify(err)
	}

	res := &Result{
		SQL:     sqlText,
		Args:    args,
		Builder: base,
		Verdict: analyze.Verdict{Accepted: true, Skipped: true},
	}
	if o.analyzer != nil {
		res.Verdict, err = o.analyzer.Analyze(ctx, sqlText, args...)
		if err != nil {
			return nil, classify(err)
		}
	}
	return res, nil
}

func (o *object) selectColumns(override []string) []string {
	if len(override) > 0 {
		cols := make([]string, len(override))
		for i, c := range override {
			if f, ok := o.schema.Field(c); ok {
				cols[i] = o.table + "." + f.ColumnName()
				continue
			}
			cols[i] = c
		}
		return cols
	}
	fields := o.schema.QueryableFields()
	if len(fields) == 0 {
		return []string{"*"}
	}
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = o.table + "." + f.ColumnName()
	}
	return cols
}

// OperatorsFor reports the legal operator set for one field of one object,
// honoring per-field overrides. Introspection surface for API schemas.
func (r *Registry) OperatorsFor(objectName, fieldName string) ([]catalog.Operator, error) {
	obj, ok := r.objects[objectName]
	if !ok {
		return nil, &Error{Code: CodeUnknownObject, Err: fmt.Errorf("unknown object %q", objectName)}
	}
	field, ok := obj.schema.Field(fieldName)
	if !ok {
		return nil, classify(&filter.MalformedError{Path: fieldName, Reason: "unknown field"})
	}
	supported := obj.adapter.OperatorsFor(field.Kind)
	if ops, ok := obj.compiler.Overrides[fieldName]; ok {
		return filter.ResolveOperators(ops, supported), nil
	}
	return supported, nil
}

// Objects lists the registered object names.
func (r *Registry) Objects() []string {
	out := make([]string, 0, len(r.objects))
	for name := range r.objects {
		out = append(out, name)
	}
	return out
}
