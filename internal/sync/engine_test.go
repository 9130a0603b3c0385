package sync

import (
	"context"
	"errors"
	"testing"

	"torgsync/internal/catalog"
	"torgsync/internal/store/memstore"
)

// testHeader mirrors the columns of a typical TSGoods.csv export.
var testHeader = []string{
	"GoodID", "GoodName", "GoodTypeFull", "Country", "ProducerCollectionFull",
	"Season", "Sex", "Material", "MeasureUnit", "EqualCurrencyName",
	"RetailPrice", "WholesalePrice", "EqualSalePrice", "EqualWholesalePrice",
	"Analogs", "Category", "Closeout",
}

// testRow builds a Row over testHeader with the given overrides.
func testRow(t *testing.T, overrides map[string]string) Row {
	t.Helper()
	header := NewHeader(testHeader)
	fields := make([]string, len(testHeader))
	for col, val := range overrides {
		found := false
		for i, name := range testHeader {
			if name == col {
				fields[i] = val
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("testRow: unknown column %q", col)
		}
	}
	return NewRow(header, fields)
}

func baseRow(t *testing.T, goodID, name string) map[string]string {
	t.Helper()
	return map[string]string{
		"GoodID":       goodID,
		"GoodName":     name,
		"GoodTypeFull": "Обувь, Кроссовки",
		"Country":      "Italy",
		"Season":       "Лето",
		"Sex":          "1",
		"Material":     "Кожа",
		"MeasureUnit":  "шт",
		"RetailPrice":  "129,99",
	}
}

type engineHarness struct {
	st       *memstore.Store
	stats    *Stats
	resolver *Resolver
	engine   *Engine
}

func newEngineHarness(excluded ...string) *engineHarness {
	if len(excluded) == 0 {
		excluded = []string{"Одежда"}
	}
	stats := &Stats{}
	resolver := NewResolver()
	return &engineHarness{
		st:       memstore.New(),
		stats:    stats,
		resolver: resolver,
		engine:   NewEngine(testLog, stats, resolver, NewGoodIDDetector(testLog), excluded),
	}
}

// process runs one row in its own committed session.
func (h *engineHarness) process(t *testing.T, row Row) {
	t.Helper()
	ctx := context.Background()
	sess, err := h.st.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.engine.ProcessRow(ctx, sess, row); err != nil {
		sess.Rollback(ctx)
		t.Fatalf("ProcessRow: %v", err)
	}
	if err := sess.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func (h *engineHarness) processErr(ctx context.Context, t *testing.T, row Row) error {
	t.Helper()
	sess, err := h.st.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	err = h.engine.ProcessRow(ctx, sess, row)
	if err != nil {
		sess.Rollback(ctx)
		h.resolver.Reset()
		return err
	}
	if cErr := sess.Commit(ctx); cErr != nil {
		t.Fatalf("Commit: %v", cErr)
	}
	return nil
}

func TestProcessRow_CreatesProductAndReferences(t *testing.T) {
	h := newEngineHarness()
	h.process(t, testRow(t, baseRow(t, "100", "Кроссовки Air")))

	if h.stats.ProductsCreated != 1 {
		t.Errorf("ProductsCreated = %d, want 1", h.stats.ProductsCreated)
	}
	if h.stats.CategoriesCreated != 2 {
		t.Errorf("CategoriesCreated = %d, want 2", h.stats.CategoriesCreated)
	}
	if h.stats.ManufacturersCreated != 1 {
		t.Errorf("ManufacturersCreated = %d, want 1", h.stats.ManufacturersCreated)
	}

	p := h.st.Product(100)
	if p == nil {
		t.Fatal("product not stored")
	}
	if p.GoodName != "Кроссовки Air" {
		t.Errorf("GoodName = %q", p.GoodName)
	}
	if p.Display == nil || *p.Display != catalog.DefaultDisplay {
		t.Error("new product should get the default display flag")
	}
	if p.RetailPrice == nil || *p.RetailPrice != 129.99 {
		t.Errorf("RetailPrice = %v", p.RetailPrice)
	}
	if leaf, _ := h.st.RefID(catalog.RefCategory, "Кроссовки"); p.CategoryID == nil || *p.CategoryID != leaf {
		t.Error("product should point at the leaf category")
	}

	// Manufacturer comes from the country column, with country stored too.
	if got := h.st.RefAttr(catalog.RefManufacturer, "Italy", "country"); got != "Italy" {
		t.Errorf("manufacturer country = %v, want Italy", got)
	}
	// Sex code 1 resolves to its display name.
	if _, ok := h.st.RefID(catalog.RefSex, "Мужской"); !ok {
		t.Error("sex reference not created")
	}
}

func TestProcessRow_SecondRunUpdatesWithoutDuplicates(t *testing.T) {
	h := newEngineHarness()
	row := testRow(t, baseRow(t, "100", "Кроссовки Air"))

	h.process(t, row)
	h.process(t, row)

	if h.stats.ProductsCreated != 1 || h.stats.ProductsUpdated != 1 {
		t.Errorf("created/updated = %d/%d, want 1/1", h.stats.ProductsCreated, h.stats.ProductsUpdated)
	}
	if h.st.ProductCount() != 1 {
		t.Errorf("ProductCount = %d, want 1", h.st.ProductCount())
	}
	if h.stats.CategoriesCreated != 2 {
		t.Errorf("CategoriesCreated = %d, want 2 (no duplicates)", h.stats.CategoriesCreated)
	}
	if h.st.RefCount(catalog.RefManufacturer) != 1 {
		t.Errorf("manufacturers = %d, want 1", h.st.RefCount(catalog.RefManufacturer))
	}
}

func TestProcessRow_UpdatePreservesProtectedColumns(t *testing.T) {
	h := newEngineHarness()
	fields := baseRow(t, "100", "Кроссовки Air")
	h.process(t, testRow(t, fields))

	// A shop admin hides the product and assigns a color by hand.
	h.st.MutateProduct(100, func(p *catalog.Product) {
		display := 0
		colorID := int64(5)
		p.Display = &display
		p.ColorID = &colorID
	})

	fields["GoodName"] = "Кроссовки Air v2"
	fields["RetailPrice"] = "149,99"
	h.process(t, testRow(t, fields))

	p := h.st.Product(100)
	if p.GoodName != "Кроссовки Air v2" {
		t.Errorf("GoodName = %q, want updated name", p.GoodName)
	}
	if p.RetailPrice == nil || *p.RetailPrice != 149.99 {
		t.Errorf("RetailPrice = %v, want 149.99", p.RetailPrice)
	}
	if p.Display == nil || *p.Display != 0 {
		t.Error("display must survive the resync")
	}
	if p.ColorID == nil || *p.ColorID != 5 {
		t.Error("color must survive the resync")
	}
}

func TestProcessRow_ExcludedCategoryLeavesNoTrace(t *testing.T) {
	h := newEngineHarness()
	fields := baseRow(t, "100", "Куртка")
	fields["GoodTypeFull"] = "Одежда, Куртки"
	h.process(t, testRow(t, fields))

	if h.stats.SkippedProducts != 1 {
		t.Errorf("SkippedProducts = %d, want 1", h.stats.SkippedProducts)
	}
	if h.st.ProductCount() != 0 {
		t.Error("excluded row must not create a product")
	}
	for _, kind := range catalog.RefKinds() {
		if n := h.st.RefCount(kind); n != 0 {
			t.Errorf("%s count = %d, want 0 (no side effects)", kind, n)
		}
	}
}

func TestProcessRow_ExclusionBeatsMissingIdentifier(t *testing.T) {
	h := newEngineHarness()
	fields := map[string]string{
		"GoodName":     "Куртка",
		"GoodTypeFull": "Одежда",
	}
	h.process(t, testRow(t, fields))

	if h.stats.SkippedProducts != 1 {
		t.Errorf("SkippedProducts = %d, want 1", h.stats.SkippedProducts)
	}
	if h.stats.RowsWithoutGoodID != 0 {
		t.Errorf("RowsWithoutGoodID = %d, want 0 (exclusion runs first)", h.stats.RowsWithoutGoodID)
	}
}

func TestProcessRow_MissingIdentifierCounted(t *testing.T) {
	h := newEngineHarness()

	h.process(t, testRow(t, map[string]string{"GoodName": "Без ID", "GoodTypeFull": "Обувь"}))
	h.process(t, testRow(t, map[string]string{"GoodID": "abc", "GoodName": "Кривой ID", "GoodTypeFull": "Обувь"}))

	if h.stats.RowsWithoutGoodID != 2 {
		t.Errorf("RowsWithoutGoodID = %d, want 2", h.stats.RowsWithoutGoodID)
	}
	if h.st.ProductCount() != 0 {
		t.Error("rows without identifier must not create products")
	}
}

func TestProcessRow_CollectionDefaultsManufacturer(t *testing.T) {
	h := newEngineHarness()
	fields := baseRow(t, "100", "Кроссовки")
	fields["ProducerCollectionFull"] = "Nike, Air Max"
	h.process(t, testRow(t, fields))

	if h.stats.CollectionsCreated != 2 {
		t.Errorf("CollectionsCreated = %d, want 2", h.stats.CollectionsCreated)
	}
	manufacturerID, _ := h.st.RefID(catalog.RefManufacturer, "Italy")
	if got := h.st.RefAttr(catalog.RefCollection, "Nike", "manufacturer_id"); got != manufacturerID {
		t.Errorf("collection manufacturer = %v, want %d", got, manufacturerID)
	}
	leaf, _ := h.st.RefID(catalog.RefCollection, "Air Max")
	if p := h.st.Product(100); p.CollectionID == nil || *p.CollectionID != leaf {
		t.Error("product should point at the leaf collection")
	}
}

func TestProcessRow_UnknownDefaults(t *testing.T) {
	h := newEngineHarness()
	fields := map[string]string{
		"GoodID":       "100",
		"GoodName":     "Кроссовки",
		"GoodTypeFull": "Обувь",
	}
	h.process(t, testRow(t, fields))

	for _, kind := range []catalog.RefKind{catalog.RefManufacturer, catalog.RefSeason, catalog.RefMaterial} {
		if _, ok := h.st.RefID(kind, "Unknown"); !ok {
			t.Errorf("%s should fall back to Unknown", kind)
		}
	}
	if _, ok := h.st.RefID(catalog.RefMeasureUnit, "Unknown"); !ok {
		t.Error("measure unit should fall back to Unknown")
	}
	// Blank sex code maps to code 0.
	if _, ok := h.st.RefID(catalog.RefSex, "Не определен"); !ok {
		t.Error("sex should fall back to the zero code name")
	}
	if _, ok := h.st.RefID(catalog.RefManufacturer, "Unknown"); ok {
		if got := h.st.RefAttr(catalog.RefManufacturer, "Unknown", "country"); got != "Unknown" {
			t.Errorf("manufacturer country = %v, want Unknown", got)
		}
	}
}

func TestProcessRow_Analogs(t *testing.T) {
	h := newEngineHarness()
	fields := baseRow(t, "100", "Кроссовки")
	fields["Analogs"] = "101, 102, , bad, 103"
	h.process(t, testRow(t, fields))

	if h.stats.AnalogsCreated != 3 {
		t.Errorf("AnalogsCreated = %d, want 3", h.stats.AnalogsCreated)
	}

	// Resync does not duplicate existing links.
	h.process(t, testRow(t, fields))
	if h.stats.AnalogsCreated != 3 {
		t.Errorf("AnalogsCreated after resync = %d, want 3", h.stats.AnalogsCreated)
	}
	if got := len(h.st.Analogs()); got != 3 {
		t.Errorf("stored analogs = %d, want 3", got)
	}
}

func TestProcessRow_CurrencyPrices(t *testing.T) {
	h := newEngineHarness()
	fields := baseRow(t, "100", "Кроссовки")
	fields["EqualCurrencyName"] = "USD"
	fields["EqualSalePrice"] = "9,99"
	fields["EqualWholesalePrice"] = "7,50"
	h.process(t, testRow(t, fields))

	if h.stats.CurrenciesCreated != 1 || h.stats.CurrencyPricesCreated != 1 {
		t.Errorf("currencies/prices = %d/%d, want 1/1", h.stats.CurrenciesCreated, h.stats.CurrencyPricesCreated)
	}

	prices := h.st.Prices()
	if len(prices) != 1 {
		t.Fatalf("stored prices = %d, want 1", len(prices))
	}
	if prices[0].RetailPrice == nil || *prices[0].RetailPrice != 9.99 {
		t.Errorf("retail price = %v, want 9.99", prices[0].RetailPrice)
	}

	// A resync with changed prices updates in place.
	fields["EqualSalePrice"] = "11,00"
	h.process(t, testRow(t, fields))
	prices = h.st.Prices()
	if len(prices) != 1 {
		t.Fatalf("stored prices after resync = %d, want 1", len(prices))
	}
	if prices[0].RetailPrice == nil || *prices[0].RetailPrice != 11.00 {
		t.Errorf("retail price after resync = %v, want 11.00", prices[0].RetailPrice)
	}
	if h.stats.CurrencyPricesCreated != 1 {
		t.Errorf("CurrencyPricesCreated = %d, want 1", h.stats.CurrencyPricesCreated)
	}
}

func TestProcessRow_CurrencyPriceGatedOnValues(t *testing.T) {
	h := newEngineHarness()
	fields := baseRow(t, "100", "Кроссовки")
	fields["EqualCurrencyName"] = "USD"
	h.process(t, testRow(t, fields))

	// The currency itself is created, but without either equal price column
	// no price row appears.
	if h.stats.CurrenciesCreated != 1 {
		t.Errorf("CurrenciesCreated = %d, want 1", h.stats.CurrenciesCreated)
	}
	if got := len(h.st.Prices()); got != 0 {
		t.Errorf("stored prices = %d, want 0", got)
	}
}

func TestProcessRow_ModelGoodID(t *testing.T) {
	h := newEngineHarness()

	fields := baseRow(t, "100", "Кроссовки")
	fields["Category"] = "7"
	h.process(t, testRow(t, fields))
	if p := h.st.Product(100); p.ModelGoodID == nil || *p.ModelGoodID != 7 {
		t.Errorf("ModelGoodID = %v, want 7", p.ModelGoodID)
	}

	fields = baseRow(t, "101", "Кроссовки 2")
	fields["Category"] = "-1"
	h.process(t, testRow(t, fields))
	if p := h.st.Product(101); p.ModelGoodID != nil {
		t.Errorf("ModelGoodID = %v, want nil for -1 sentinel", *p.ModelGoodID)
	}
}

func TestProcessRow_StoreErrorAbortsRow(t *testing.T) {
	h := newEngineHarness()
	ctx := context.Background()

	h.st.FailNextFindRef(errTest)
	if err := h.processErr(ctx, t, testRow(t, baseRow(t, "100", "Кроссовки"))); err == nil {
		t.Fatal("expected row error")
	}
	if h.st.ProductCount() != 0 {
		t.Error("aborted row must leave nothing behind")
	}

	// The next row goes through normally once the store recovers.
	h.process(t, testRow(t, baseRow(t, "101", "Ботинки")))
	if h.st.ProductCount() != 1 {
		t.Errorf("ProductCount = %d, want 1", h.st.ProductCount())
	}
}

var errTest = errors.New("induced failure")
