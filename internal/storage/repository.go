// Package storage contains storage-agnostic contracts and utilities for the
// loader: the Repository interface implemented by backends and the batching
// RowBuffer that feeds them.
package storage

import "context"

// Repository is the narrow store contract the loader depends on. The
// implementation owns a single long-lived session pool in autocommit mode;
// every call is its own atomic unit at the store.
type Repository interface {
	// Exec runs a statement (DDL, DELETE, TRUNCATE) with optional arguments.
	Exec(ctx context.Context, sql string, args ...any) error

	// CopyCSV bulk-loads rows into table via the store's copy-in channel.
	// rows[i] must align with columns. Any failure aborts the whole batch.
	CopyCSV(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
}

// CopyFn abstracts one bulk insert. In production it closes over a
// Repository and a table name; in tests a fake verifies batching behavior.
// Implementations insert the provided rows (aligned to columns order) and
// return the number of rows written.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)
