package sync

import (
	"context"
	"log/slog"
	"strings"

	"torgsync/internal/catalog"
	"torgsync/internal/store"
)

// Engine reconciles one CSV row at a time against the catalog. It owns the
// run-scoped pieces (stats, resolver cache, identifier detector) and is
// driven row by row by the Runner; transactional boundaries live in the
// BatchController, not here.
type Engine struct {
	log      *slog.Logger
	stats    *Stats
	resolver *Resolver
	detector *GoodIDDetector
	excluded map[string]bool
}

// NewEngine builds an engine for one run. excludedRoots names top-level
// category segments whose rows are skipped entirely.
func NewEngine(log *slog.Logger, stats *Stats, resolver *Resolver, detector *GoodIDDetector, excludedRoots []string) *Engine {
	excluded := make(map[string]bool, len(excludedRoots))
	for _, name := range excludedRoots {
		excluded[name] = true
	}
	return &Engine{
		log:      log,
		stats:    stats,
		resolver: resolver,
		detector: detector,
		excluded: excluded,
	}
}

// ProcessRow runs one row through the reconciliation steps. Rows filtered out
// (excluded category, missing identifier) are counted and return nil; a
// non-nil error means the current batch can no longer be trusted and must be
// aborted by the caller.
func (e *Engine) ProcessRow(ctx context.Context, sess store.Session, row Row) error {
	categoryPath := row.Get("GoodTypeFull", "GoodType", "Good Type Full", "Good_Type_Full")
	categoryNames := SplitPath(categoryPath)

	// Exclusion runs before anything else so excluded rows leave no trace,
	// not even reference entities.
	if len(categoryNames) > 0 && e.excluded[categoryNames[0]] {
		e.stats.SkippedProducts++
		e.log.Info("skipping excluded category row", "root_category", categoryNames[0])
		return nil
	}

	goodIDRaw := e.detector.RawValue(row)
	if strings.TrimSpace(goodIDRaw) == "" {
		e.stats.RowsWithoutGoodID++
		return nil
	}
	goodIDPtr := ParseInt(e.log, goodIDRaw)
	if goodIDPtr == nil {
		e.stats.RowsWithoutGoodID++
		return nil
	}
	goodID := *goodIDPtr

	var categoryID *int64
	if len(categoryNames) > 0 {
		id, created, err := e.resolver.ResolveHierarchy(ctx, sess, catalog.RefCategory, categoryNames,
			map[string]any{"synchronization_section": categoryNames[0]})
		if err != nil {
			return err
		}
		e.stats.CategoriesCreated += created
		categoryID = &id
	}

	countryName := row.Get("Country", "Страна")
	if strings.TrimSpace(countryName) == "" {
		countryName = "Unknown"
	}
	manufacturerID, err := e.resolveRef(ctx, sess, catalog.RefManufacturer, countryName,
		map[string]any{"country": countryName})
	if err != nil {
		return err
	}

	var collectionID *int64
	if collectionPath := row.Get("ProducerCollectionFull", "ProducerCollection", "Producer Collection Full"); collectionPath != "" {
		names := SplitPath(collectionPath)
		if len(names) > 0 {
			id, created, err := e.resolver.ResolveHierarchy(ctx, sess, catalog.RefCollection, names,
				map[string]any{"manufacturer_id": manufacturerID})
			if err != nil {
				return err
			}
			e.stats.CollectionsCreated += created
			collectionID = &id
		}
	}

	seasonName := row.Get("Season", "Сезон")
	if strings.TrimSpace(seasonName) == "" {
		seasonName = "Unknown"
	}
	seasonID, err := e.resolveRef(ctx, sess, catalog.RefSeason, seasonName, nil)
	if err != nil {
		return err
	}

	sexCode := 0
	if v := ParseInt(e.log, row.Get("Sex", "Пол")); v != nil {
		sexCode = *v
	}
	sexID, err := e.resolveRef(ctx, sess, catalog.RefSex, SexName(sexCode), nil)
	if err != nil {
		return err
	}

	materialName := row.Get("Material", "Материал")
	if strings.TrimSpace(materialName) == "" {
		materialName = "Unknown"
	}
	materialID, err := e.resolveRef(ctx, sess, catalog.RefMaterial, materialName, nil)
	if err != nil {
		return err
	}

	unitName := row.Get("MeasureUnit", "Measure Unit", "ЕдИзм")
	if strings.TrimSpace(unitName) == "" {
		unitName = "Unknown"
	}
	measureUnitID, err := e.resolveRef(ctx, sess, catalog.RefMeasureUnit, unitName, nil)
	if err != nil {
		return err
	}

	var currencyID *int64
	if currencyName := row.Get("EqualCurrencyName", "Currency", "Валюта"); currencyName != "" {
		id, err := e.resolveRef(ctx, sess, catalog.RefCurrency, currencyName, nil)
		if err != nil {
			return err
		}
		currencyID = &id
	}

	product := e.buildProduct(row, goodID)
	product.CategoryID = categoryID
	product.ManufacturerID = &manufacturerID
	product.CollectionID = collectionID
	product.SeasonID = &seasonID
	product.SexID = &sexID
	product.MaterialID = &materialID
	product.MeasureUnitID = &measureUnitID
	product.GuaranteeMesUnitID = &measureUnitID

	existing, err := sess.FindProduct(ctx, goodID)
	if err != nil {
		return err
	}
	if existing != nil {
		e.log.Info("updating product", "good_id", goodID)
		if err := sess.UpdateProduct(ctx, product, catalog.ProtectedProductColumns); err != nil {
			return err
		}
		e.stats.ProductsUpdated++
	} else {
		e.log.Info("creating product", "good_id", goodID)
		display := catalog.DefaultDisplay
		product.Display = &display
		if err := sess.InsertProduct(ctx, product); err != nil {
			return err
		}
		e.stats.ProductsCreated++
	}

	if err := e.syncAnalogs(ctx, sess, goodID, row.Get("Analogs")); err != nil {
		return err
	}

	if currencyID != nil && (row.Get("EqualSalePrice") != "" || row.Get("EqualWholesalePrice") != "") {
		if err := e.syncCurrencyPrice(ctx, sess, goodID, *currencyID, row); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) resolveRef(ctx context.Context, sess store.Session, kind catalog.RefKind, name string, defaults map[string]any) (int64, error) {
	id, created, err := e.resolver.GetOrCreate(ctx, sess, kind, name, defaults)
	if err != nil {
		return 0, err
	}
	if created {
		e.stats.CountRefCreated(kind)
		e.log.Debug("created reference entity", "kind", string(kind), "name", name)
	}
	return id, nil
}

// buildProduct maps the plain columns of a row onto a Product. Reference IDs
// are filled in by the caller.
func (e *Engine) buildProduct(row Row, goodID int) *catalog.Product {
	guarantee := ParseInt(e.log, row.Get("GuaranteePeriod", "Guarantee Period"))
	if guarantee != nil && *guarantee == 0 {
		guarantee = nil
	}

	var modelGoodID *int
	if raw := row.Get("Category"); raw != "-1" {
		modelGoodID = ParseInt(e.log, raw)
	}

	return &catalog.Product{
		GoodID:                  goodID,
		GoodName:                row.Get("GoodName", "Name", "Наименование"),
		ShortName:               optString(row.Get("ShortName", "Short Name")),
		Description:             optString(row.Get("Description", "Опис", "Описание")),
		Articul:                 optString(row.Get("Articul", "Артикул")),
		Barcode:                 optString(row.Get("Barcode", "Штрихкод")),
		RetailPrice:             ParseFloat(e.log, row.Get("RetailPrice", "Retail Price")),
		WholesalePrice:          ParseFloat(e.log, row.Get("WholesalePrice", "Wholesale Price")),
		RetailPriceWithDiscount: ParseFloat(e.log, row.Get("RetailPriceWithDiscount")),
		PrimeCost:               ParseFloat(e.log, row.Get("PrimeCost", "Себестоимость")),
		EqualSalePrice:          ParseFloat(e.log, row.Get("EqualSalePrice")),
		EqualWholesalePrice:     ParseFloat(e.log, row.Get("EqualWholesalePrice")),
		PriceDiscountPercent:    ParseFloat(e.log, row.Get("PriceDiscountPercent")),
		MinQuantityForOrder:     ParseInt(e.log, row.Get("MinQuantityForOrder")),
		WholesaleCount:          ParseFloat(e.log, row.Get("WholesaleCount")),
		WarehouseQuantity:       ParseFloat(e.log, row.Get("WarehouseQuantity")),
		Measure:                 ParseFloat(e.log, row.Get("Measure")),
		Height:                  ParseFloat(e.log, row.Get("Height")),
		Width:                   ParseFloat(e.log, row.Get("Width")),
		Closeout:                ParseInt(e.log, row.Get("Closeout")),
		GuaranteePeriod:         guarantee,
		SupplierCode:            optString(row.Get("SupplierCode")),
		ModelGoodID:             modelGoodID,
		Pack:                    optString(row.Get("Pack")),
		PackSize:                optString(row.Get("PackSize", "Pack Size")),
		PowerSupply:             optString(row.Get("PowerSupply", "Power Supply")),
		CountUnitsPerBox:        optString(row.Get("CountUnitsPerBox")),
		Age:                     optString(row.Get("Age")),
		ProductSize:             ParseFloat(e.log, row.Get("TheSize", "Size")),
		FashionName:             optString(row.Get("FashionName")),
		RetailPricePerUnit:      ParseFloat(e.log, row.Get("RetailPricePerUnit")),
		WholesalePricePerUnit:   ParseFloat(e.log, row.Get("WholesalePricePerUnit")),
	}
}

// syncAnalogs inserts missing directed analog links from a comma-separated ID
// list. Entries that do not parse as integers are skipped, not fatal.
func (e *Engine) syncAnalogs(ctx context.Context, sess store.Session, goodID int, raw string) error {
	if raw == "" {
		return nil
	}
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		analogID := ParseInt(e.log, part)
		if analogID == nil {
			continue
		}
		exists, err := sess.HasAnalog(ctx, goodID, *analogID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := sess.InsertAnalog(ctx, goodID, *analogID); err != nil {
			return err
		}
		e.stats.AnalogsCreated++
	}
	return nil
}

// syncCurrencyPrice upserts the (product, currency) price pair.
func (e *Engine) syncCurrencyPrice(ctx context.Context, sess store.Session, goodID int, currencyID int64, row Row) error {
	retail := ParseFloat(e.log, row.Get("EqualSalePrice"))
	wholesale := ParseFloat(e.log, row.Get("EqualWholesalePrice"))

	existing, err := sess.FindCurrencyPrice(ctx, goodID, currencyID)
	if err != nil {
		return err
	}
	if existing != nil {
		existing.RetailPrice = retail
		existing.WholesalePrice = wholesale
		return sess.UpdateCurrencyPrice(ctx, existing)
	}

	price := &catalog.CurrencyPrice{
		GoodID:         goodID,
		CurrencyID:     currencyID,
		RetailPrice:    retail,
		WholesalePrice: wholesale,
	}
	if err := sess.InsertCurrencyPrice(ctx, price); err != nil {
		return err
	}
	e.stats.CurrencyPricesCreated++
	return nil
}

func optString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
