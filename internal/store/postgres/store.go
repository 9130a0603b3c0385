// Package postgres implements store.Store on a pgx connection pool.
// Each Session is a database transaction; reads inside the transaction see
// rows inserted earlier in it, which gives the resolver its read-your-writes
// guarantee without any extra bookkeeping.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"torgsync/internal/catalog"
	"torgsync/internal/store"
)

// Store is the pgx-backed catalog store.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Begin opens a transaction-backed session.
func (s *Store) Begin(ctx context.Context) (store.Session, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &session{tx: tx}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

type session struct {
	tx   pgx.Tx
	done bool
}

func (s *session) FindRef(ctx context.Context, kind catalog.RefKind, name string) (int64, bool, error) {
	spec := catalog.Ref(kind)
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = $1 LIMIT 1",
		quoteIdentifier(spec.IDColumn),
		quoteIdentifier(spec.Table),
		quoteIdentifier(spec.NameColumn),
	)

	var id int64
	err := s.tx.QueryRow(ctx, query, name).Scan(&id)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find %s %q: %w", kind, name, err)
	}
	return id, true, nil
}

func (s *session) InsertRef(ctx context.Context, kind catalog.RefKind, name string, defaults map[string]any) (int64, error) {
	spec := catalog.Ref(kind)

	cols := []string{quoteIdentifier(spec.NameColumn)}
	args := []any{name}

	// Deterministic column order: parent first, then extras as declared.
	if spec.ParentColumn != "" {
		if v, ok := defaults[spec.ParentColumn]; ok {
			cols = append(cols, quoteIdentifier(spec.ParentColumn))
			args = append(args, v)
		}
	}
	for _, extra := range spec.ExtraColumns {
		if v, ok := defaults[extra]; ok {
			cols = append(cols, quoteIdentifier(extra))
			args = append(args, v)
		}
	}
	for col := range defaults {
		if col != spec.ParentColumn && !containsString(spec.ExtraColumns, col) {
			return 0, fmt.Errorf("insert %s: column %q is not an insert default", kind, col)
		}
	}

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		quoteIdentifier(spec.Table),
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		quoteIdentifier(spec.IDColumn),
	)

	var id int64
	if err := s.tx.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert %s %q: %w", kind, name, err)
	}
	return id, nil
}

// productColumns lists every product column the sync pipeline maps, in the
// order used by both the INSERT statement and the row scan. good_id is
// excluded: it is the key, never part of a SET list.
var productColumns = []string{
	"good_name",
	"short_name",
	"description",
	"articul",
	"barcode",
	"retail_price",
	"wholesale_price",
	"retail_price_with_discount",
	"prime_cost",
	"equal_sale_price",
	"equal_wholesale_price",
	"price_discount_percent",
	"min_quantity_for_order",
	"wholesale_count",
	"warehouse_quantity",
	"measure",
	"height",
	"width",
	"display",
	"closeout",
	"guarantee_period",
	"category_id",
	"manufacturer_id",
	"collection_id",
	"season_id",
	"sex_id",
	"color_id",
	"material_id",
	"measure_unit_id",
	"guarantee_mes_unit_id",
	"supplier_code",
	"model_good_id",
	"pack",
	"pack_size",
	"power_supply",
	"count_units_per_box",
	"age",
	"product_size",
	"fashion_name",
	"retail_price_per_unit",
	"wholesale_price_per_unit",
}

// productValues returns the value for each productColumns entry, same order.
func productValues(p *catalog.Product) []any {
	return []any{
		p.GoodName,
		p.ShortName,
		p.Description,
		p.Articul,
		p.Barcode,
		p.RetailPrice,
		p.WholesalePrice,
		p.RetailPriceWithDiscount,
		p.PrimeCost,
		p.EqualSalePrice,
		p.EqualWholesalePrice,
		p.PriceDiscountPercent,
		p.MinQuantityForOrder,
		p.WholesaleCount,
		p.WarehouseQuantity,
		p.Measure,
		p.Height,
		p.Width,
		p.Display,
		p.Closeout,
		p.GuaranteePeriod,
		p.CategoryID,
		p.ManufacturerID,
		p.CollectionID,
		p.SeasonID,
		p.SexID,
		p.ColorID,
		p.MaterialID,
		p.MeasureUnitID,
		p.GuaranteeMesUnitID,
		p.SupplierCode,
		p.ModelGoodID,
		p.Pack,
		p.PackSize,
		p.PowerSupply,
		p.CountUnitsPerBox,
		p.Age,
		p.ProductSize,
		p.FashionName,
		p.RetailPricePerUnit,
		p.WholesalePricePerUnit,
	}
}

// productScanDest returns scan destinations matching productColumns.
func productScanDest(p *catalog.Product) []any {
	return []any{
		&p.GoodName,
		&p.ShortName,
		&p.Description,
		&p.Articul,
		&p.Barcode,
		&p.RetailPrice,
		&p.WholesalePrice,
		&p.RetailPriceWithDiscount,
		&p.PrimeCost,
		&p.EqualSalePrice,
		&p.EqualWholesalePrice,
		&p.PriceDiscountPercent,
		&p.MinQuantityForOrder,
		&p.WholesaleCount,
		&p.WarehouseQuantity,
		&p.Measure,
		&p.Height,
		&p.Width,
		&p.Display,
		&p.Closeout,
		&p.GuaranteePeriod,
		&p.CategoryID,
		&p.ManufacturerID,
		&p.CollectionID,
		&p.SeasonID,
		&p.SexID,
		&p.ColorID,
		&p.MaterialID,
		&p.MeasureUnitID,
		&p.GuaranteeMesUnitID,
		&p.SupplierCode,
		&p.ModelGoodID,
		&p.Pack,
		&p.PackSize,
		&p.PowerSupply,
		&p.CountUnitsPerBox,
		&p.Age,
		&p.ProductSize,
		&p.FashionName,
		&p.RetailPricePerUnit,
		&p.WholesalePricePerUnit,
	}
}

func (s *session) FindProduct(ctx context.Context, goodID int) (*catalog.Product, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM products WHERE good_id = $1",
		strings.Join(quoteColumns(productColumns), ", "),
	)

	p := &catalog.Product{GoodID: goodID}
	err := s.tx.QueryRow(ctx, query, goodID).Scan(productScanDest(p)...)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find product %d: %w", goodID, err)
	}
	return p, nil
}

func (s *session) InsertProduct(ctx context.Context, p *catalog.Product) error {
	cols := append([]string{"good_id"}, productColumns...)
	args := append([]any{p.GoodID}, productValues(p)...)

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO products (%s) VALUES (%s)",
		strings.Join(quoteColumns(cols), ", "),
		strings.Join(placeholders, ", "),
	)

	if _, err := s.tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert product %d: %w", p.GoodID, err)
	}
	return nil
}

func (s *session) UpdateProduct(ctx context.Context, p *catalog.Product, preserve []string) error {
	skip := make(map[string]bool, len(preserve))
	for _, col := range preserve {
		skip[col] = true
	}

	values := productValues(p)
	var sets []string
	var args []any
	for i, col := range productColumns {
		if skip[col] {
			continue
		}
		args = append(args, values[i])
		sets = append(sets, fmt.Sprintf("%s = $%d", quoteIdentifier(col), len(args)))
	}
	args = append(args, p.GoodID)

	query := fmt.Sprintf(
		"UPDATE products SET %s WHERE good_id = $%d",
		strings.Join(sets, ", "),
		len(args),
	)

	if _, err := s.tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update product %d: %w", p.GoodID, err)
	}
	return nil
}

func (s *session) HasAnalog(ctx context.Context, goodID, analogGoodID int) (bool, error) {
	var exists bool
	err := s.tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM analogs WHERE good_id = $1 AND analog_good_id = $2)",
		goodID, analogGoodID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check analog %d->%d: %w", goodID, analogGoodID, err)
	}
	return exists, nil
}

func (s *session) InsertAnalog(ctx context.Context, goodID, analogGoodID int) error {
	_, err := s.tx.Exec(ctx,
		"INSERT INTO analogs (good_id, analog_good_id) VALUES ($1, $2)",
		goodID, analogGoodID,
	)
	if err != nil {
		return fmt.Errorf("insert analog %d->%d: %w", goodID, analogGoodID, err)
	}
	return nil
}

func (s *session) FindCurrencyPrice(ctx context.Context, goodID int, currencyID int64) (*catalog.CurrencyPrice, error) {
	p := &catalog.CurrencyPrice{GoodID: goodID, CurrencyID: currencyID}
	err := s.tx.QueryRow(ctx,
		"SELECT price_id, retail_price, wholesale_price FROM product_currency_prices WHERE good_id = $1 AND currency_id = $2",
		goodID, currencyID,
	).Scan(&p.PriceID, &p.RetailPrice, &p.WholesalePrice)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find price for product %d currency %d: %w", goodID, currencyID, err)
	}
	return p, nil
}

func (s *session) InsertCurrencyPrice(ctx context.Context, p *catalog.CurrencyPrice) error {
	err := s.tx.QueryRow(ctx,
		"INSERT INTO product_currency_prices (good_id, currency_id, retail_price, wholesale_price) VALUES ($1, $2, $3, $4) RETURNING price_id",
		p.GoodID, p.CurrencyID, p.RetailPrice, p.WholesalePrice,
	).Scan(&p.PriceID)
	if err != nil {
		return fmt.Errorf("insert price for product %d currency %d: %w", p.GoodID, p.CurrencyID, err)
	}
	return nil
}

func (s *session) UpdateCurrencyPrice(ctx context.Context, p *catalog.CurrencyPrice) error {
	_, err := s.tx.Exec(ctx,
		"UPDATE product_currency_prices SET retail_price = $1, wholesale_price = $2 WHERE good_id = $3 AND currency_id = $4",
		p.RetailPrice, p.WholesalePrice, p.GoodID, p.CurrencyID,
	)
	if err != nil {
		return fmt.Errorf("update price for product %d currency %d: %w", p.GoodID, p.CurrencyID, err)
	}
	return nil
}

func (s *session) Commit(ctx context.Context) error {
	if s.done {
		return nil
	}
	s.done = true
	return s.tx.Commit(ctx)
}

func (s *session) Rollback(ctx context.Context) error {
	if s.done {
		return nil
	}
	s.done = true
	return s.tx.Rollback(ctx)
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteColumns(cols []string) []string {
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = quoteIdentifier(col)
	}
	return quoted
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
