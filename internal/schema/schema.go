// Package schema declares the raw.* relations the loader targets and the
// idempotent bootstrap that ensures they exist.
//
// image_id is unique only within a split (composite primary key); the
// secondary index on image_id alone supports cross-split lookup without
// asserting global uniqueness. label_ids carries a JSONB array in document
// order, with a GIN index for containment queries.
package schema

import (
	"context"

	"imatload/internal/ddl"
	"imatload/internal/storage"
	pgddl "imatload/internal/storage/postgres/ddl"
)

// Schema is the namespace holding all raw dataset relations.
const Schema = "raw"

// Fully-qualified relation names.
const (
	LabelMapTable    = "raw.imat_label_map"
	InfoTable        = "raw.imat_info"
	LicenseTable     = "raw.imat_license"
	ImagesTable      = "raw.imat_images"
	AnnotationsTable = "raw.imat_annotations"
)

// LabelMap is typed reference data, globally replaced on each load.
var LabelMap = ddl.TableDef{
	FQN: LabelMapTable,
	Columns: []ddl.ColumnDef{
		{Name: "label_id", SQLType: "INTEGER", PrimaryKey: true},
		{Name: "task_id", SQLType: "INTEGER"},
		{Name: "label_name", SQLType: "TEXT"},
		{Name: "task_name", SQLType: "TEXT"},
	},
}

// Info holds one document row per split.
var Info = ddl.TableDef{
	FQN: InfoTable,
	Columns: []ddl.ColumnDef{
		{Name: "split", SQLType: "TEXT", PrimaryKey: true},
		{Name: "info", SQLType: "JSONB"},
	},
}

// License holds one document row per split.
var License = ddl.TableDef{
	FQN: LicenseTable,
	Columns: []ddl.ColumnDef{
		{Name: "split", SQLType: "TEXT", PrimaryKey: true},
		{Name: "license", SQLType: "JSONB"},
	},
}

// Images keys image rows by (split, image_id).
var Images = ddl.TableDef{
	FQN: ImagesTable,
	Columns: []ddl.ColumnDef{
		{Name: "split", SQLType: "TEXT", PrimaryKey: true},
		{Name: "image_id", SQLType: "BIGINT", PrimaryKey: true},
		{Name: "url", SQLType: "TEXT"},
	},
	Indexes: []ddl.IndexDef{
		{Name: "imat_images_image_id_idx", Columns: []string{"image_id"}},
	},
}

// Annotations keys annotation rows by (split, image_id); label_ids preserves
// the source ordering as a JSONB array.
var Annotations = ddl.TableDef{
	FQN: AnnotationsTable,
	Columns: []ddl.ColumnDef{
		{Name: "split", SQLType: "TEXT", PrimaryKey: true},
		{Name: "image_id", SQLType: "BIGINT", PrimaryKey: true},
		{Name: "label_ids", SQLType: "JSONB"},
	},
	Indexes: []ddl.IndexDef{
		{Name: "imat_annotations_image_id_idx", Columns: []string{"image_id"}},
		{Name: "imat_annotations_label_ids_gin", Columns: []string{"label_ids"}, Method: "gin"},
	},
}

// Tables lists every relation the loader manages, in creation order.
var Tables = []ddl.TableDef{LabelMap, Info, License, Images, Annotations}

// Ensure idempotently creates the schema, all tables, and all indexes. It
// never drops or alters anything that already exists.
func Ensure(ctx context.Context, repo storage.Repository) error {
	if err := pgddl.EnsureSchema(ctx, repo, Schema); err != nil {
		return err
	}
	for _, def := range Tables {
		if err := pgddl.EnsureTable(ctx, repo, def); err != nil {
			return err
		}
	}
	return nil
}
