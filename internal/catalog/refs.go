package catalog

import "fmt"

// RefKind identifies one of the reference (lookup) tables. The value doubles
// as the table name, which keeps log lines and stat keys readable.
type RefKind string

const (
	RefCategory     RefKind = "categories"
	RefCollection   RefKind = "collections"
	RefManufacturer RefKind = "manufacturers"
	RefSeason       RefKind = "seasons"
	RefSex          RefKind = "sexes"
	RefMaterial     RefKind = "materials"
	RefMeasureUnit  RefKind = "measure_units"
	RefCurrency     RefKind = "currencies"
)

// RefSpec describes how a reference table is addressed: its surrogate ID
// column, the natural-key name column used for deduplication, the
// self-referential parent column for tree-shaped kinds, and the extra columns
// that may be supplied as insert defaults.
type RefSpec struct {
	Kind         RefKind
	Table        string
	IDColumn     string
	NameColumn   string
	ParentColumn string   // empty for flat tables
	ExtraColumns []string // columns accepted in insert defaults besides the parent
}

var refSpecs = map[RefKind]RefSpec{
	RefCategory: {
		Kind:         RefCategory,
		Table:        "categories",
		IDColumn:     "category_id",
		NameColumn:   "category_name",
		ParentColumn: "parent_category_id",
		ExtraColumns: []string{"synchronization_section"},
	},
	RefCollection: {
		Kind:         RefCollection,
		Table:        "collections",
		IDColumn:     "collection_id",
		NameColumn:   "collection_name",
		ParentColumn: "parent_collection_id",
		ExtraColumns: []string{"manufacturer_id"},
	},
	RefManufacturer: {
		Kind:         RefManufacturer,
		Table:        "manufacturers",
		IDColumn:     "manufacturer_id",
		NameColumn:   "manufacturer_name",
		ExtraColumns: []string{"country"},
	},
	RefSeason: {
		Kind:       RefSeason,
		Table:      "seasons",
		IDColumn:   "season_id",
		NameColumn: "season_name",
	},
	RefSex: {
		Kind:       RefSex,
		Table:      "sexes",
		IDColumn:   "sex_id",
		NameColumn: "sex_name",
	},
	RefMaterial: {
		Kind:       RefMaterial,
		Table:      "materials",
		IDColumn:   "material_id",
		NameColumn: "material_name",
	},
	RefMeasureUnit: {
		Kind:       RefMeasureUnit,
		Table:      "measure_units",
		IDColumn:   "measure_unit_id",
		NameColumn: "unit_name",
	},
	RefCurrency: {
		Kind:       RefCurrency,
		Table:      "currencies",
		IDColumn:   "currency_id",
		NameColumn: "currency_name",
	},
}

// Ref returns the spec for a reference kind.
// Panics on an unknown kind: kinds are a closed compile-time set, so an
// unknown value is a programming error, not an input error.
func Ref(kind RefKind) RefSpec {
	spec, ok := refSpecs[kind]
	if !ok {
		panic(fmt.Sprintf("catalog: unknown reference kind %q", kind))
	}
	return spec
}

// RefKinds lists all reference kinds in a stable order.
func RefKinds() []RefKind {
	return []RefKind{
		RefCategory,
		RefCollection,
		RefManufacturer,
		RefSeason,
		RefSex,
		RefMaterial,
		RefMeasureUnit,
		RefCurrency,
	}
}
