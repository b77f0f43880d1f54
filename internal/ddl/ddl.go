// Package ddl defines a small, backend-agnostic model for the relations the
// loader manages.
//
// The model stays generic on purpose: it does not quote identifiers and does
// not emit dialect-specific clauses. Backend packages (e.g.
// internal/storage/postgres/ddl) render this model into their dialect,
// including idempotent IF NOT EXISTS forms and index methods such as GIN.
package ddl

// ColumnDef describes a single column.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - SQLType: target SQL type (e.g., TEXT, BIGINT, JSONB)
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
}

// IndexDef describes a secondary index on a table.
//
// Method selects the index access method ("btree" when empty, "gin" for
// containment queries over document columns). Name must be unique within the
// target schema.
type IndexDef struct {
	Name    string
	Columns []string
	Method  string
}

// TableDef holds the fully-qualified table name (dotted form, e.g.
// "raw.imat_images"), an ordered column list, and any secondary indexes.
// Primary keys are expressed on the columns, not as an index.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
	Indexes []IndexDef
}
