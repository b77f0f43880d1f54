package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"imatload/internal/logging"
)

// RowBuffer accumulates transformed rows in arrival order and hands them to
// a CopyFn in batches of at most batchSize, bounding peak memory regardless
// of source size.
//
// Discipline is single producer, single consumer: Add and Flush must not be
// called concurrently. Callers must invoke Flush after the last Add; rows
// still buffered at stream end are otherwise lost.
type RowBuffer struct {
	name      string // target label for progress lines
	columns   []string
	batchSize int
	copyFn    CopyFn

	batch   [][]any
	total   int64
	batches int64

	start     time.Time
	lastFlush time.Time
	lastTotal int64
}

// NewRowBuffer constructs a RowBuffer. name labels progress output
// (typically the target table).
func NewRowBuffer(name string, columns []string, batchSize int, copyFn CopyFn) (*RowBuffer, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("rowbuffer: batchSize must be > 0")
	}
	if copyFn == nil {
		return nil, fmt.Errorf("rowbuffer: copyFn must not be nil")
	}
	now := time.Now()
	return &RowBuffer{
		name:      name,
		columns:   columns,
		batchSize: batchSize,
		copyFn:    copyFn,
		batch:     make([][]any, 0, batchSize),
		start:     now,
		lastFlush: now,
	}, nil
}

// Add appends one row, flushing first when the buffer is full. row must
// align with the configured columns.
func (b *RowBuffer) Add(ctx context.Context, row []any) error {
	if len(b.batch) >= b.batchSize {
		if err := b.flush(ctx); err != nil {
			return err
		}
	}
	b.batch = append(b.batch, row)
	return nil
}

// Flush writes any buffered rows. It is mandatory at end of stream and safe
// to call with an empty buffer.
func (b *RowBuffer) Flush(ctx context.Context) error {
	return b.flush(ctx)
}

// Total returns the number of rows reported written by copyFn so far.
func (b *RowBuffer) Total() int64 { return b.total }

func (b *RowBuffer) flush(ctx context.Context) error {
	if len(b.batch) == 0 {
		return nil
	}
	n, err := b.copyFn(ctx, b.columns, b.batch)
	b.total += n

	// Reuse the backing array; keep capacity to avoid churn.
	b.batch = b.batch[:0]

	if err != nil {
		logging.L().Error("copy failed",
			zap.String("target", b.name),
			zap.Int64("total", b.total),
			zap.Error(err))
		return err
	}

	b.batches++
	now := time.Now()
	sinceLast := now.Sub(b.lastFlush)
	rps := float64(0)
	if sinceLast > 0 {
		rps = float64(b.total-b.lastTotal) / sinceLast.Seconds()
	}
	logging.L().Debug("batch flushed",
		zap.String("target", b.name),
		zap.Int64("batch", b.batches),
		zap.Int64("inserted", n),
		zap.Int64("total", b.total),
		zap.Float64("rps", rps),
		zap.Duration("elapsed", now.Sub(b.start).Truncate(time.Millisecond)))
	b.lastFlush = now
	b.lastTotal = b.total
	return nil
}
