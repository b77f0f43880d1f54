// Package postgres implements the storage.Repository contract on pgx v5.
//
// Bulk loading goes through COPY ... FROM STDIN WITH (FORMAT CSV), the
// fastest ingestion channel Postgres offers. Rows are CSV-encoded into a
// pipe and streamed to the server, so a batch is never materialized as one
// in-memory blob. The pool runs in autocommit mode; each Exec and each COPY
// is its own atomic statement, and there is no multi-statement transaction
// anywhere in the loader.
package postgres

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"imatload/internal/errs"
)

// Repo is a Postgres-backed repository over a single long-lived pool.
type Repo struct {
	pool *pgxpool.Pool
}

// NewRepo opens the pool and verifies connectivity. It returns a close
// function for cleanup.
func NewRepo(ctx context.Context, dsn string) (*Repo, func(), error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", pgDetail(err))
	}
	return &Repo{pool: pool}, pool.Close, nil
}

// Exec runs one statement. Store-reported detail is attached to the error
// when available.
func (r *Repo) Exec(ctx context.Context, sql string, args ...any) error {
	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		return pgDetail(err)
	}
	return nil
}

// CopyCSV streams rows into table via COPY. Every row must match the arity
// of columns; a mismatch, an encoding failure, or a server-side error aborts
// the whole batch and surfaces as *errs.WriteError.
//
// Field encoding follows CSV COPY semantics: nil renders as an unquoted
// empty field (NULL); strings pass through csv quoting so embedded commas,
// quotes, and newlines round-trip exactly. Document-typed columns must be
// handed in pre-serialized as JSON text.
func (r *Repo) CopyCSV(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, &errs.WriteError{Table: table, Err: fmt.Errorf("row %d has %d fields, want %d", i, len(row), len(columns))}
		}
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, &errs.WriteError{Table: table, Err: err}
	}
	defer conn.Release()

	sql := fmt.Sprintf(
		"COPY %s (%s) FROM STDIN WITH (FORMAT CSV)",
		quoteFQN(table), strings.Join(mapIdent(columns), ", "),
	)

	pr, pw := io.Pipe()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := writeCSV(pw, rows, len(columns)); err != nil {
			pw.CloseWithError(err)
			return err
		}
		return pw.Close()
	})

	var tag pgconn.CommandTag
	g.Go(func() error {
		t, err := conn.Conn().PgConn().CopyFrom(gctx, pr, sql)
		if err != nil {
			// Unblock the encoder if the server rejected the COPY early.
			pr.CloseWithError(err)
			return err
		}
		tag = t
		return nil
	})

	if err := g.Wait(); err != nil {
		return 0, &errs.WriteError{Table: table, Err: pgDetail(err)}
	}
	return tag.RowsAffected(), nil
}

// writeCSV encodes rows as CSV lines suitable for COPY ... (FORMAT CSV).
func writeCSV(w io.Writer, rows [][]any, ncols int) error {
	cw := csv.NewWriter(w)
	rec := make([]string, ncols)
	for _, row := range rows {
		for i, v := range row {
			rec[i] = copyField(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// copyField renders one row value as a CSV field. nil becomes the empty
// (NULL) field; everything else uses its canonical text form and relies on
// the csv writer for quoting.
func copyField(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case json.Number:
		return t.String()
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// pgDetail surfaces the server's error detail when present; pgx buries it in
// *pgconn.PgError where %v does not show it.
func pgDetail(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%s: %s (%s)", pgErr.Message, pgErr.Detail, pgErr.SQLState())
	}
	return err
}

// quoteIdent safely quotes a single identifier segment for Postgres.
func quoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// quoteFQN quotes a possibly schema-qualified name like "raw.imat_images" to
// "raw"."imat_images". Empty segments are ignored.
func quoteFQN(name string) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, quoteIdent(p))
	}
	return strings.Join(out, ".")
}

// mapIdent maps column names to their quoted forms.
func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = quoteIdent(c)
	}
	return out
}
