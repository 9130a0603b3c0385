// Package sync reconciles Torgsoft CSV exports against the catalog database:
// parsing and header resolution, get-or-create reference resolution, row
// reconciliation, and batched transactional writes.
package sync

import (
	"context"
	"log/slog"
	"time"

	"torgsync/internal/store"
)

// Options configures a sync run.
type Options struct {
	// FilePath is the export file to ingest.
	FilePath string
	// Encoding is the file encoding, EncodingUTF8 or EncodingWindows1251.
	Encoding string
	// BatchSize is how many rows go into one transaction.
	BatchSize int
	// ExcludedRootCategories names top-level category segments whose rows
	// are dropped without side effects.
	ExcludedRootCategories []string
	// GoodIDAliases adds deployment-specific identifier column names on top
	// of the built-in ones.
	GoodIDAliases []string
	// Timeout bounds one run end to end.
	Timeout time.Duration
}

// Runner executes one sync run over one export file.
type Runner struct {
	store store.Store
	log   *slog.Logger
	opts  Options
}

// NewRunner builds a runner.
func NewRunner(st store.Store, log *slog.Logger, opts Options) *Runner {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	return &Runner{store: st, log: log, opts: opts}
}

// Run ingests the export file and returns the run's stats. A missing or
// unreadable file fails the whole run before any database work; once row
// processing has started, failures are contained to single rows or batches
// and the run carries on.
func (r *Runner) Run(ctx context.Context) (*Stats, error) {
	r.log.Info("starting sync", "path", r.opts.FilePath)

	file, err := ReadSourceFile(r.log, r.opts.FilePath, r.opts.Encoding)
	if err != nil {
		return nil, err
	}
	r.log.Info("csv headers", "headers", file.RawHeader, "rows", len(file.Records))

	stats := &Stats{}
	resolver := NewResolver()
	detector := NewGoodIDDetector(r.log, r.opts.GoodIDAliases...)
	engine := NewEngine(r.log, stats, resolver, detector, r.opts.ExcludedRootCategories)
	batch := NewBatchController(r.store, r.opts.BatchSize, r.log)

	for i := range file.Records {
		if err := ctx.Err(); err != nil {
			batch.Abort(ctx)
			return nil, err
		}
		if (i+1)%1000 == 0 {
			r.log.Info("progress", "rows", i+1)
		}

		sess, err := batch.Session(ctx)
		if err != nil {
			r.log.Error("cannot open batch session", "row", i+1, "error", err)
			stats.RowErrors++
			continue
		}

		if err := engine.ProcessRow(ctx, sess, file.Row(i)); err != nil {
			r.log.Error("row failed", "row", i+1, "error", err)
			stats.RowErrors++
			batch.Abort(ctx)
			resolver.Reset()
			continue
		}

		if err := batch.RowDone(ctx); err != nil {
			r.log.Error("batch commit failed", "row", i+1, "error", err)
			resolver.Reset()
		}
	}

	if err := batch.Flush(ctx); err != nil {
		r.log.Error("final batch commit failed", "error", err)
		resolver.Reset()
	}

	r.log.Info("sync finished",
		"products_created", stats.ProductsCreated,
		"products_updated", stats.ProductsUpdated,
		"skipped_products", stats.SkippedProducts,
		"rows_without_goodid", stats.RowsWithoutGoodID,
		"row_errors", stats.RowErrors,
	)
	return stats, nil
}
