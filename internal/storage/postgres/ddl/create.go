// Package ddl renders the generic ddl model into Postgres dialect.
//
// All statements use the IF NOT EXISTS form so applying them is idempotent;
// nothing here is ever destructive. Identifiers are double-quoted with
// embedded quotes escaped.
package ddl

import (
	"fmt"
	"sort"
	"strings"

	gddl "imatload/internal/ddl"
)

// BuildCreateTableSQL builds a deterministic CREATE TABLE IF NOT EXISTS
// statement for the given table definition.
//
// Rules:
//   - def.FQN must be non-empty; each column needs a Name and SQLType.
//   - Primary-key columns are always rendered NOT NULL, even if
//     Nullable=true.
//   - PRIMARY KEY is a separate constraint clause with column names sorted
//     alphabetically for determinism.
func BuildCreateTableSQL(def gddl.TableDef) (string, error) {
	fqn := strings.TrimSpace(def.FQN)
	if fqn == "" {
		return "", fmt.Errorf("postgres ddl: table FQN must not be empty")
	}
	if len(def.Columns) == 0 {
		return "", fmt.Errorf("postgres ddl: at least one column is required")
	}

	cols := make([]string, 0, len(def.Columns)+1)
	pks := make([]string, 0, len(def.Columns))

	for _, c := range def.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("postgres ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("postgres ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(quoteIdent(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, quoteIdent(name))
		}
	}

	if len(pks) > 0 {
		sort.Strings(pks)
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		quoteFQN(fqn),
		strings.Join(cols, ",\n  "),
	), nil
}

// BuildCreateIndexSQL builds a CREATE INDEX IF NOT EXISTS statement for one
// index on the table. An empty Method means the server default (btree);
// "gin" yields a USING GIN index for containment queries.
func BuildCreateIndexSQL(tableFQN string, idx gddl.IndexDef) (string, error) {
	name := strings.TrimSpace(idx.Name)
	if name == "" {
		return "", fmt.Errorf("postgres ddl: index on %s missing name", tableFQN)
	}
	if len(idx.Columns) == 0 {
		return "", fmt.Errorf("postgres ddl: index %s has no columns", name)
	}

	cols := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		c = strings.TrimSpace(c)
		if c == "" {
			return "", fmt.Errorf("postgres ddl: index %s has an empty column name", name)
		}
		cols[i] = quoteIdent(c)
	}

	using := ""
	if m := strings.TrimSpace(idx.Method); m != "" && !strings.EqualFold(m, "btree") {
		using = " USING " + strings.ToUpper(m)
	}

	return fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s%s (%s);",
		quoteIdent(name),
		quoteFQN(tableFQN),
		using,
		strings.Join(cols, ", "),
	), nil
}

// BuildCreateSchemaSQL builds CREATE SCHEMA IF NOT EXISTS for a bare schema
// name.
func BuildCreateSchemaSQL(schema string) (string, error) {
	s := strings.TrimSpace(schema)
	if s == "" {
		return "", fmt.Errorf("postgres ddl: schema name must not be empty")
	}
	return fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s;", quoteIdent(s)), nil
}

func quoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

func quoteFQN(f string) string {
	parts := strings.Split(f, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, quoteIdent(p))
	}
	return strings.Join(out, ".")
}
