package cql

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hugr-lab/cql/adapter"
	"github.com/hugr-lab/cql/analyze"
	"github.com/hugr-lab/cql/auth"
	"github.com/hugr-lab/cql/catalog"
	"github.com/hugr-lab/cql/filter"
)

// Builder assembles a Registry using a fluent API.
// Not thread-safe - use only during initialization.
type Builder struct {
	objects   []*objectDef
	authorize auth.Callback
	logger    *slog.Logger
	built     bool
}

type objectDef struct {
	name      string
	schema    catalog.Schema
	adapter   adapter.Adapter
	table     string
	overrides map[string][]catalog.Operator
	analyzer  *analyze.Analyzer
}

// New creates a new fluent registry builder.
//
// Example:
//
//	reg, err := cql.New().
//	    Object("users", usersSchema, pgAdapter).
//	        Table("app_users").
//	        Override("role", catalog.OpEquals, catalog.OpIn).
//	    Object("orders", ordersSchema, pgAdapter).
//	    Authorize(visibilityCallback).
//	    Build()
func New() *Builder {
	return &Builder{}
}

// Authorize installs the field-visibility callback. A nil callback (the
// default) allows every field.
func (b *Builder) Authorize(cb auth.Callback) *Builder {
	b.authorize = cb
	return b
}

// Logger installs the logger used by the gate and analyzers.
// Defaults to slog.Default().
func (b *Builder) Logger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// Object starts defining a queryable object. The object name doubles as
// the table (or index) name unless Table overrides it.
func (b *Builder) Object(name string, schema catalog.Schema, ad adapter.Adapter) *ObjectBuilder {
	def := &objectDef{
		name:    name,
		schema:  schema,
		adapter: ad,
		table:   name,
	}
	b.objects = append(b.objects, def)
	return &ObjectBuilder{builder: b, def: def}
}

// Build finalizes the registry and returns the immutable Registry.
// Can only be called once. Returns error if the configuration is invalid
// (e.g., duplicate object names).
func (b *Builder) Build() (*Registry, error) {
	if b.built {
		return nil, fmt.Errorf("registry already built")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	objects := make(map[string]*object, len(b.objects))
	for _, def := range b.objects {
		if def.name == "" {
			return nil, fmt.Errorf("object name cannot be empty")
		}
		if _, dup := objects[def.name]; dup {
			return nil, fmt.Errorf("duplicate object name: %s", def.name)
		}
		if def.schema == nil {
			return nil, fmt.Errorf("object %s has nil schema", def.name)
		}
		if def.analyzer != nil {
			def.analyzer.Engine = def.adapter.Engine
			if def.analyzer.Logger == nil {
				def.analyzer.Logger = logger
			}
		}
		objects[def.name] = &object{
			name:     def.name,
			schema:   def.schema,
			adapter:  def.adapter,
			table:    def.table,
			analyzer: def.analyzer,
			compiler: &filter.Compiler{
				Schema:    def.schema,
				Adapter:   def.adapter,
				Table:     def.table,
				Overrides: def.overrides,
			},
			search: &filter.SearchCompiler{
				Schema:    def.schema,
				Adapter:   def.adapter,
				Overrides: def.overrides,
			},
		}
	}

	b.built = true
	return &Registry{
		objects: objects,
		gate:    &auth.Gate{Callback: b.authorize, Logger: logger},
		logger:  logger,
	}, nil
}

// ObjectBuilder configures one object. All methods return the builder for
// chaining; Object and Build pass through to the parent Builder.
type ObjectBuilder struct {
	builder *Builder
	def     *objectDef
}

// Table overrides the backing table (or index) name.
func (ob *ObjectBuilder) Table(name string) *ObjectBuilder {
	ob.def.table = name
	return ob
}

// Override replaces the capability-derived operator set for one field.
// The override is authoritative: operators outside it are no-ops even when
// the capability table would allow them. It only narrows: listed operators
// the object's engine cannot render are dropped.
func (ob *ObjectBuilder) Override(field string, ops ...catalog.Operator) *ObjectBuilder {
	if ob.def.overrides == nil {
		ob.def.overrides = make(map[string][]catalog.Operator)
	}
	ob.def.overrides[field] = ops
	return ob
}

// Analyze enables complexity analysis for this object's queries against db.
func (ob *ObjectBuilder) Analyze(db *sql.DB, cfg analyze.Config) *ObjectBuilder {
	ob.def.analyzer = &analyze.Analyzer{DB: db, Config: cfg}
	return ob
}

// Sampler attaches a load sampler so analysis thresholds adapt to backend
// load. No-op unless Analyze was called with AdaptiveLimits.
func (ob *ObjectBuilder) Sampler(s *analyze.Sampler) *ObjectBuilder {
	if ob.def.analyzer != nil {
		ob.def.analyzer.Sampler = s
	}
	return ob
}

// Object starts defining the next object.
func (ob *ObjectBuilder) Object(name string, schema catalog.Schema, ad adapter.Adapter) *ObjectBuilder {
	return ob.builder.Object(name, schema, ad)
}

// Authorize installs the field-visibility callback on the parent builder.
func (ob *ObjectBuilder) Authorize(cb auth.Callback) *Builder {
	return ob.builder.Authorize(cb)
}

// Build finalizes the parent builder.
func (ob *ObjectBuilder) Build() (*Registry, error) {
	return ob.builder.Build()
}
