// Package catalog defines the persisted entities of the product catalog and
// the registry of reference tables the sync pipeline deduplicates against.
package catalog

// Product is a catalog item keyed by the external Torgsoft identifier.
// All attributes except GoodName and the resolved reference IDs are optional;
// nil means the source column was blank or unparseable.
type Product struct {
	GoodID                  int
	GoodName                string
	ShortName               *string
	Description             *string
	Articul                 *string
	Barcode                 *string
	RetailPrice             *float64
	WholesalePrice          *float64
	RetailPriceWithDiscount *float64
	PrimeCost               *float64
	EqualSalePrice          *float64
	EqualWholesalePrice     *float64
	PriceDiscountPercent    *float64
	MinQuantityForOrder     *int
	WholesaleCount          *float64
	WarehouseQuantity       *float64
	Measure                 *float64
	Height                  *float64
	Width                   *float64
	Display                 *int
	Closeout                *int
	GuaranteePeriod         *int
	CategoryID              *int64
	ManufacturerID          *int64
	CollectionID            *int64
	SeasonID                *int64
	SexID                   *int64
	ColorID                 *int64
	MaterialID              *int64
	MeasureUnitID           *int64
	GuaranteeMesUnitID      *int64
	SupplierCode            *string
	ModelGoodID             *int
	Pack                    *string
	PackSize                *string
	PowerSupply             *string
	CountUnitsPerBox        *string
	Age                     *string
	ProductSize             *float64
	FashionName             *string
	RetailPricePerUnit      *float64
	WholesalePricePerUnit   *float64
}

// ProtectedProductColumns are managed outside the sync pipeline (manually set
// in the shop backend) and must survive a resync of an existing product.
var ProtectedProductColumns = []string{"display", "color_id"}

// DefaultDisplay is assigned to newly created products: visible in the shop.
const DefaultDisplay = 1

// CurrencyPrice holds the per-currency retail/wholesale prices of a product,
// keyed by the (GoodID, CurrencyID) pair.
type CurrencyPrice struct {
	PriceID        int64
	GoodID         int
	CurrencyID     int64
	RetailPrice    *float64
	WholesalePrice *float64
}

// Analog is a directed link between a product and one of its analogs.
// Presence is binary: links are created once and never updated.
type Analog struct {
	AnalogID     int64
	GoodID       int
	AnalogGoodID int
}
