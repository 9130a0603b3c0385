package sync

import "testing"

func TestNormalizeFieldName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"GoodTypeFull", "goodtypefull"},
		{"Good Type Full", "goodtypefull"},
		{"Good_Type_Full", "goodtypefull"},
		{"\uFEFFGoodID", "goodid"},
		{"  RetailPrice  ", "retailprice"},
		{"Цена Розница", "ценарозница"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeFieldName(tt.input); got != tt.want {
			t.Errorf("NormalizeFieldName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRowGet_Aliases(t *testing.T) {
	header := NewHeader([]string{"\uFEFFGoodID", "Good Name", "Retail_Price"})
	row := NewRow(header, []string{"17", "Sneaker", "129,99"})

	if got := row.Get("GoodID"); got != "17" {
		t.Errorf("Get(GoodID) = %q, want %q", got, "17")
	}
	// BOM-carrying header still matches
	if got := row.Get("goodid"); got != "17" {
		t.Errorf("Get(goodid) = %q, want %q", got, "17")
	}
	// Alias variants collapse to the same column
	if got := row.Get("GoodName", "Good Name"); got != "Sneaker" {
		t.Errorf("Get(GoodName) = %q, want %q", got, "Sneaker")
	}
	if got := row.Get("RetailPrice"); got != "129,99" {
		t.Errorf("Get(RetailPrice) = %q, want %q", got, "129,99")
	}
	if got := row.Get("Missing", "AlsoMissing"); got != "" {
		t.Errorf("Get(Missing) = %q, want empty", got)
	}
}

func TestRowGet_PresentButBlankWinsAliasSearch(t *testing.T) {
	header := NewHeader([]string{"ShortName", "Short Name"})
	row := NewRow(header, []string{"", "fallback"})

	// The first alias exists in the header with a blank value; the search
	// must not fall through to the second column.
	if got := row.Get("ShortName", "Short Name"); got != "" {
		t.Errorf("Get = %q, want empty (blank column wins)", got)
	}
}

func TestRowGet_ShortRecord(t *testing.T) {
	header := NewHeader([]string{"GoodID", "GoodName", "Barcode"})
	row := NewRow(header, []string{"5", "Boot"})

	if got := row.Get("Barcode"); got != "" {
		t.Errorf("Get(Barcode) on short record = %q, want empty", got)
	}
}

func TestGoodIDDetector_Aliases(t *testing.T) {
	header := NewHeader([]string{"GoodID", "GoodName"})
	detector := NewGoodIDDetector(testLog)

	row := NewRow(header, []string{"101", "Sneaker"})
	if got := detector.RawValue(row); got != "101" {
		t.Errorf("RawValue = %q, want %q", got, "101")
	}
}

func TestGoodIDDetector_Heuristic(t *testing.T) {
	// No alias matches; "TovarID" ends in "id" and holds an integer.
	header := NewHeader([]string{"GoodName", "TovarID", "Barcode"})
	detector := NewGoodIDDetector(testLog)

	row := NewRow(header, []string{"Sneaker", "202", "47111"})
	if got := detector.RawValue(row); got != "202" {
		t.Errorf("RawValue = %q, want %q", got, "202")
	}

	// The detected column is cached: a later row with a non-integer value in
	// another id-like column still reads from TovarID.
	row2 := NewRow(header, []string{"Boot", "203", "abc"})
	if got := detector.RawValue(row2); got != "203" {
		t.Errorf("RawValue (cached) = %q, want %q", got, "203")
	}
}

func TestGoodIDDetector_SkipsNonNumericCandidates(t *testing.T) {
	header := NewHeader([]string{"BrandID", "ModelID"})
	detector := NewGoodIDDetector(testLog)

	// First id-like column is non-numeric; detection moves to the next.
	row := NewRow(header, []string{"nike", "77"})
	if got := detector.RawValue(row); got != "77" {
		t.Errorf("RawValue = %q, want %q", got, "77")
	}
}

func TestGoodIDDetector_NoCandidate(t *testing.T) {
	header := NewHeader([]string{"GoodName", "Barcode"})
	detector := NewGoodIDDetector(testLog)

	row := NewRow(header, []string{"Sneaker", "abc"})
	if got := detector.RawValue(row); got != "" {
		t.Errorf("RawValue = %q, want empty", got)
	}
}

func TestGoodIDDetector_ExtraAliases(t *testing.T) {
	header := NewHeader([]string{"Код Товара", "GoodName"})
	detector := NewGoodIDDetector(testLog, "Код Товара")

	row := NewRow(header, []string{"55", "Sneaker"})
	if got := detector.RawValue(row); got != "55" {
		t.Errorf("RawValue = %q, want %q", got, "55")
	}
}
