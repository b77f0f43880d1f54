package ddl

import (
	"context"

	gddl "imatload/internal/ddl"
	"imatload/internal/storage"
)

// EnsureTable creates the table and its secondary indexes if absent. Both
// the CREATE TABLE and every CREATE INDEX use IF NOT EXISTS, so calling this
// repeatedly is safe and never destructive.
func EnsureTable(ctx context.Context, repo storage.Repository, def gddl.TableDef) error {
	sql, err := BuildCreateTableSQL(def)
	if err != nil {
		return err
	}
	if err := repo.Exec(ctx, sql); err != nil {
		return err
	}
	for _, idx := range def.Indexes {
		sql, err := BuildCreateIndexSQL(def.FQN, idx)
		if err != nil {
			return err
		}
		if err := repo.Exec(ctx, sql); err != nil {
			return err
		}
	}
	return nil
}

// EnsureSchema creates the named schema if absent.
func EnsureSchema(ctx context.Context, repo storage.Repository, schema string) error {
	sql, err := BuildCreateSchemaSQL(schema)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, sql)
}
