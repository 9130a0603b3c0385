package sync

import (
	"context"
	"log/slog"

	"torgsync/internal/store"
)

// BatchController groups row work into fixed-size transactional batches.
// A session is opened lazily on first use, committed once the configured
// number of rows has gone through it, and replaced by a fresh one for the
// next batch. Aborting discards the current batch without touching earlier,
// already committed ones.
type BatchController struct {
	store store.Store
	size  int
	log   *slog.Logger

	sess store.Session
	rows int
}

// NewBatchController builds a controller committing every size rows.
func NewBatchController(st store.Store, size int, log *slog.Logger) *BatchController {
	return &BatchController{store: st, size: size, log: log}
}

// Session returns the current batch's session, beginning one if needed.
func (b *BatchController) Session(ctx context.Context) (store.Session, error) {
	if b.sess == nil {
		sess, err := b.store.Begin(ctx)
		if err != nil {
			return nil, err
		}
		b.sess = sess
		b.rows = 0
	}
	return b.sess, nil
}

// RowDone records one completed row and commits the batch when it is full.
// A failed commit rolls the batch back and returns the error; the rows of
// that batch are lost but the controller is ready for the next one.
func (b *BatchController) RowDone(ctx context.Context) error {
	if b.sess == nil {
		return nil
	}
	b.rows++
	if b.rows < b.size {
		return nil
	}
	return b.commit(ctx)
}

// Abort rolls back the current batch, discarding its rows.
func (b *BatchController) Abort(ctx context.Context) {
	if b.sess == nil {
		return
	}
	if err := b.sess.Rollback(ctx); err != nil {
		b.log.Error("rollback failed", "error", err)
	}
	b.sess = nil
	b.rows = 0
}

// Flush commits whatever partial batch remains. Call once after the last row.
func (b *BatchController) Flush(ctx context.Context) error {
	if b.sess == nil || b.rows == 0 {
		b.Abort(ctx)
		return nil
	}
	return b.commit(ctx)
}

func (b *BatchController) commit(ctx context.Context) error {
	sess := b.sess
	rows := b.rows
	b.sess = nil
	b.rows = 0
	if err := sess.Commit(ctx); err != nil {
		if rbErr := sess.Rollback(ctx); rbErr != nil {
			b.log.Error("rollback after failed commit", "error", rbErr)
		}
		return err
	}
	b.log.Info("committed batch", "rows", rows)
	return nil
}
