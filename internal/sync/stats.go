package sync

import "torgsync/internal/catalog"

// Stats accumulates counters over one sync run. The JSON field names are part
// of the trigger API response and consumed by the shop backend, so they stay
// stable.
type Stats struct {
	ProductsCreated       int `json:"products_created"`
	ProductsUpdated       int `json:"products_updated"`
	CategoriesCreated     int `json:"categories_created"`
	ManufacturersCreated  int `json:"manufacturers_created"`
	CollectionsCreated    int `json:"collections_created"`
	SeasonsCreated        int `json:"seasons_created"`
	SexesCreated          int `json:"sexes_created"`
	MaterialsCreated      int `json:"materials_created"`
	MeasureUnitsCreated   int `json:"measure_units_created"`
	CurrenciesCreated     int `json:"currencies_created"`
	CurrencyPricesCreated int `json:"currency_prices_created"`
	AnalogsCreated        int `json:"analogs_created"`
	SkippedProducts       int `json:"skipped_products"`
	RowsWithoutGoodID     int `json:"rows_without_goodid"`
	RowErrors             int `json:"row_errors"`
}

// CountRefCreated bumps the created counter for a reference kind.
func (s *Stats) CountRefCreated(kind catalog.RefKind) {
	switch kind {
	case catalog.RefCategory:
		s.CategoriesCreated++
	case catalog.RefCollection:
		s.CollectionsCreated++
	case catalog.RefManufacturer:
		s.ManufacturersCreated++
	case catalog.RefSeason:
		s.SeasonsCreated++
	case catalog.RefSex:
		s.SexesCreated++
	case catalog.RefMaterial:
		s.MaterialsCreated++
	case catalog.RefMeasureUnit:
		s.MeasureUnitsCreated++
	case catalog.RefCurrency:
		s.CurrenciesCreated++
	}
}
