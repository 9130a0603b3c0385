package sync

import (
	"context"
	"fmt"

	"torgsync/internal/catalog"
	"torgsync/internal/store"
)

type refKey struct {
	kind catalog.RefKind
	name string
}

// Resolver implements get-or-create over reference entities with a per-run
// cache. Reads inside an open session observe that session's own inserts, so
// repeated names within a batch resolve to the same ID; the cache extends
// that across batches and skips redundant lookups.
//
// The cache must be dropped (Reset) whenever a session is rolled back: IDs
// handed out for rows inserted in that session no longer exist.
type Resolver struct {
	cache map[refKey]int64
}

// NewResolver builds an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{cache: make(map[refKey]int64)}
}

// Reset drops every cached ID. Called after a rollback or failed commit.
func (r *Resolver) Reset() {
	r.cache = make(map[refKey]int64)
}

// GetOrCreate resolves a reference entity by name, creating it with the given
// insert defaults when absent. Reports whether a row was created.
func (r *Resolver) GetOrCreate(ctx context.Context, sess store.Session, kind catalog.RefKind, name string, defaults map[string]any) (int64, bool, error) {
	key := refKey{kind: kind, name: name}
	if id, ok := r.cache[key]; ok {
		return id, false, nil
	}

	id, found, err := sess.FindRef(ctx, kind, name)
	if err != nil {
		return 0, false, err
	}
	if found {
		r.cache[key] = id
		return id, false, nil
	}

	id, err = sess.InsertRef(ctx, kind, name, defaults)
	if err != nil {
		return 0, false, err
	}
	r.cache[key] = id
	return id, true, nil
}

// ResolveHierarchy resolves a root-to-leaf path of names against a tree-shaped
// reference kind, creating missing levels. Each created level gets its parent
// ID plus the caller's extra defaults. Returns the leaf ID and how many levels
// were created.
//
// Deduplication is by name alone, not by (name, parent): a segment name that
// already exists anywhere in the table is reused regardless of its parent, so
// identically named branches collapse onto the first occurrence.
func (r *Resolver) ResolveHierarchy(ctx context.Context, sess store.Session, kind catalog.RefKind, names []string, extra map[string]any) (int64, int, error) {
	spec := catalog.Ref(kind)
	if spec.ParentColumn == "" {
		return 0, 0, fmt.Errorf("resolve hierarchy: %s is not tree-shaped", kind)
	}

	var parentID any // nil for the root level
	var leafID int64
	created := 0
	for _, name := range names {
		defaults := map[string]any{spec.ParentColumn: parentID}
		for col, v := range extra {
			defaults[col] = v
		}
		id, isNew, err := r.GetOrCreate(ctx, sess, kind, name, defaults)
		if err != nil {
			return 0, created, err
		}
		if isNew {
			created++
		}
		leafID = id
		parentID = id
	}
	return leafID, created, nil
}
