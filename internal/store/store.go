// Package store defines the persistence interface the sync pipeline runs
// against: a Store hands out transactional Sessions (units of work), and a
// Session exposes equality-keyed queries over each entity table.
//
// Two implementations exist: store/postgres (pgx-backed, production) and
// store/memstore (in-memory, tests and local development).
package store

import (
	"context"

	"torgsync/internal/catalog"
)

// Store opens units of work against the catalog database.
type Store interface {
	// Begin opens a new Session. At most one Session per run is active at a
	// time; the sync pipeline processes rows strictly sequentially.
	Begin(ctx context.Context) (Session, error)

	// Close releases the underlying resources (connection pool).
	Close()
}

// Session is a transactional unit of work. All reads observe writes made
// earlier in the same Session (read-your-writes), which the reference-entity
// resolver depends on. A Session is finished by exactly one Commit or
// Rollback; Rollback after Commit is a no-op.
type Session interface {
	// FindRef looks up a reference entity of the given kind by its natural
	// name key. Returns ok=false when no row matches.
	FindRef(ctx context.Context, kind catalog.RefKind, name string) (id int64, ok bool, err error)

	// InsertRef creates a reference entity with the given name plus defaults
	// keyed by column name. Only the kind's parent column and ExtraColumns
	// are accepted as default keys. Returns the new surrogate ID.
	InsertRef(ctx context.Context, kind catalog.RefKind, name string, defaults map[string]any) (int64, error)

	// FindProduct fetches a product by its external identifier.
	// Returns (nil, nil) when absent.
	FindProduct(ctx context.Context, goodID int) (*catalog.Product, error)

	InsertProduct(ctx context.Context, p *catalog.Product) error

	// UpdateProduct overwrites every mapped product column except those named
	// in preserve (full replace, not merge).
	UpdateProduct(ctx context.Context, p *catalog.Product, preserve []string) error

	// HasAnalog reports whether the directed (goodID, analogGoodID) link exists.
	HasAnalog(ctx context.Context, goodID, analogGoodID int) (bool, error)

	InsertAnalog(ctx context.Context, goodID, analogGoodID int) error

	// FindCurrencyPrice fetches the price row for the (product, currency)
	// pair. Returns (nil, nil) when absent.
	FindCurrencyPrice(ctx context.Context, goodID int, currencyID int64) (*catalog.CurrencyPrice, error)

	InsertCurrencyPrice(ctx context.Context, p *catalog.CurrencyPrice) error

	// UpdateCurrencyPrice overwrites both price fields of the existing
	// (product, currency) row.
	UpdateCurrencyPrice(ctx context.Context, p *catalog.CurrencyPrice) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
