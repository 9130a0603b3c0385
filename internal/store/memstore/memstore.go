// Package memstore is an in-memory implementation of store.Store.
//
// It mirrors the transactional semantics the pipeline relies on: a session
// works on a private copy of the data and publishes it atomically on Commit,
// so Rollback discards everything staged in the session while earlier commits
// stay visible. Used by the sync pipeline tests and for local development
// without a database.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"torgsync/internal/catalog"
	"torgsync/internal/store"
)

type refRow struct {
	id    int64
	name  string
	attrs map[string]any
}

type dataset struct {
	refs     map[catalog.RefKind][]refRow
	products map[int]catalog.Product
	analogs  []catalog.Analog
	prices   []catalog.CurrencyPrice
}

func newDataset() *dataset {
	return &dataset{
		refs:     make(map[catalog.RefKind][]refRow),
		products: make(map[int]catalog.Product),
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	for kind, rows := range d.refs {
		cp := make([]refRow, len(rows))
		copy(cp, rows)
		c.refs[kind] = cp
	}
	for id, p := range d.products {
		c.products[id] = p
	}
	c.analogs = append([]catalog.Analog(nil), d.analogs...)
	c.prices = append([]catalog.CurrencyPrice(nil), d.prices...)
	return c
}

// Store holds the whole catalog in memory.
type Store struct {
	mu     sync.Mutex
	data   *dataset
	nextID atomic.Int64

	// test hooks, consumed once
	commitErr  error
	findRefErr error
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{data: newDataset()}
}

// Begin opens a session over a private copy of the current data.
func (s *Store) Begin(ctx context.Context) (store.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &session{st: s, data: s.data.clone()}, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() {}

// FailNextCommit makes the next session Commit return err.
func (s *Store) FailNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitErr = err
}

// FailNextFindRef makes the next FindRef call return err.
func (s *Store) FailNextFindRef(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findRefErr = err
}

// ---- inspection helpers for tests ----

// RefCount returns the number of committed rows of a reference kind.
func (s *Store) RefCount(kind catalog.RefKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.refs[kind])
}

// RefID returns the committed ID of the reference entity with the given name.
func (s *Store) RefID(kind catalog.RefKind, name string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.data.refs[kind] {
		if r.name == name {
			return r.id, true
		}
	}
	return 0, false
}

// RefAttr returns an insert-default attribute of a committed reference row.
func (s *Store) RefAttr(kind catalog.RefKind, name, column string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.data.refs[kind] {
		if r.name == name {
			return r.attrs[column]
		}
	}
	return nil
}

// Product returns a copy of the committed product, or nil when absent.
func (s *Store) Product(goodID int) *catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.data.products[goodID]; ok {
		return &p
	}
	return nil
}

// ProductCount returns the number of committed products.
func (s *Store) ProductCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.products)
}

// MutateProduct applies fn to the committed product outside any session,
// standing in for a manual edit made through the shop backend.
func (s *Store) MutateProduct(goodID int, fn func(*catalog.Product)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data.products[goodID]
	if !ok {
		return
	}
	fn(&p)
	s.data.products[goodID] = p
}

// Analogs returns a copy of all committed analog links.
func (s *Store) Analogs() []catalog.Analog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]catalog.Analog(nil), s.data.analogs...)
}

// Prices returns a copy of all committed currency price rows.
func (s *Store) Prices() []catalog.CurrencyPrice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]catalog.CurrencyPrice(nil), s.data.prices...)
}

// ---- session ----

type session struct {
	st   *Store
	data *dataset
	done bool
}

func (s *session) FindRef(ctx context.Context, kind catalog.RefKind, name string) (int64, bool, error) {
	s.st.mu.Lock()
	if err := s.st.findRefErr; err != nil {
		s.st.findRefErr = nil
		s.st.mu.Unlock()
		return 0, false, err
	}
	s.st.mu.Unlock()

	for _, r := range s.data.refs[kind] {
		if r.name == name {
			return r.id, true, nil
		}
	}
	return 0, false, nil
}

func (s *session) InsertRef(ctx context.Context, kind catalog.RefKind, name string, defaults map[string]any) (int64, error) {
	spec := catalog.Ref(kind)
	for col := range defaults {
		if !allowedDefault(spec, col) {
			return 0, fmt.Errorf("memstore: column %q is not an insert default of %s", col, spec.Table)
		}
	}
	attrs := make(map[string]any, len(defaults))
	for k, v := range defaults {
		attrs[k] = v
	}
	id := s.st.nextID.Add(1)
	s.data.refs[kind] = append(s.data.refs[kind], refRow{id: id, name: name, attrs: attrs})
	return id, nil
}

func (s *session) FindProduct(ctx context.Context, goodID int) (*catalog.Product, error) {
	if p, ok := s.data.products[goodID]; ok {
		return &p, nil
	}
	return nil, nil
}

func (s *session) InsertProduct(ctx context.Context, p *catalog.Product) error {
	if _, ok := s.data.products[p.GoodID]; ok {
		return fmt.Errorf("memstore: product %d already exists", p.GoodID)
	}
	s.data.products[p.GoodID] = *p
	return nil
}

func (s *session) UpdateProduct(ctx context.Context, p *catalog.Product, preserve []string) error {
	old, ok := s.data.products[p.GoodID]
	if !ok {
		return fmt.Errorf("memstore: product %d not found", p.GoodID)
	}
	next := *p
	for _, col := range preserve {
		switch col {
		case "display":
			next.Display = old.Display
		case "color_id":
			next.ColorID = old.ColorID
		default:
			return fmt.Errorf("memstore: unknown preserved column %q", col)
		}
	}
	s.data.products[p.GoodID] = next
	return nil
}

func (s *session) HasAnalog(ctx context.Context, goodID, analogGoodID int) (bool, error) {
	for _, a := range s.data.analogs {
		if a.GoodID == goodID && a.AnalogGoodID == analogGoodID {
			return true, nil
		}
	}
	return false, nil
}

func (s *session) InsertAnalog(ctx context.Context, goodID, analogGoodID int) error {
	s.data.analogs = append(s.data.analogs, catalog.Analog{
		AnalogID:     s.st.nextID.Add(1),
		GoodID:       goodID,
		AnalogGoodID: analogGoodID,
	})
	return nil
}

func (s *session) FindCurrencyPrice(ctx context.Context, goodID int, currencyID int64) (*catalog.CurrencyPrice, error) {
	for i := range s.data.prices {
		if s.data.prices[i].GoodID == goodID && s.data.prices[i].CurrencyID == currencyID {
			p := s.data.prices[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (s *session) InsertCurrencyPrice(ctx context.Context, p *catalog.CurrencyPrice) error {
	cp := *p
	cp.PriceID = s.st.nextID.Add(1)
	s.data.prices = append(s.data.prices, cp)
	return nil
}

func (s *session) UpdateCurrencyPrice(ctx context.Context, p *catalog.CurrencyPrice) error {
	for i := range s.data.prices {
		if s.data.prices[i].GoodID == p.GoodID && s.data.prices[i].CurrencyID == p.CurrencyID {
			s.data.prices[i].RetailPrice = p.RetailPrice
			s.data.prices[i].WholesalePrice = p.WholesalePrice
			return nil
		}
	}
	return fmt.Errorf("memstore: price row for product %d currency %d not found", p.GoodID, p.CurrencyID)
}

func (s *session) Commit(ctx context.Context) error {
	if s.done {
		return nil
	}
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	if err := s.st.commitErr; err != nil {
		s.st.commitErr = nil
		return err
	}
	s.st.data = s.data
	s.done = true
	return nil
}

func (s *session) Rollback(ctx context.Context) error {
	s.done = true
	return nil
}

func allowedDefault(spec catalog.RefSpec, col string) bool {
	if spec.ParentColumn != "" && col == spec.ParentColumn {
		return true
	}
	for _, c := range spec.ExtraColumns {
		if c == col {
			return true
		}
	}
	return false
}
