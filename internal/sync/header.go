package sync

import (
	"log/slog"
	"strconv"
	"strings"
	"unicode"
)

// NormalizeHeaderKey strips surrounding whitespace and a leading UTF-8 BOM
// from a raw CSV header cell. Excel exports routinely carry the BOM into the
// first column name.
func NormalizeHeaderKey(key string) string {
	return strings.TrimLeft(strings.TrimSpace(key), "\uFEFF")
}

// NormalizeFieldName canonicalizes a column name for matching: lowercase with
// every non-alphanumeric rune removed, so "Good_Type_Full", "Good Type Full"
// and "GoodTypeFull" all collapse to "goodtypefull".
func NormalizeFieldName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(NormalizeHeaderKey(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Header is the canonical index over a CSV header record, built once per file
// and shared by every Row.
type Header struct {
	cols  []string       // normalized names in column order
	index map[string]int // normalized name -> column position (first wins)
}

// NewHeader indexes a raw header record.
func NewHeader(record []string) *Header {
	h := &Header{
		cols:  make([]string, len(record)),
		index: make(map[string]int, len(record)),
	}
	for i, raw := range record {
		name := NormalizeFieldName(raw)
		h.cols[i] = name
		if _, dup := h.index[name]; !dup {
			h.index[name] = i
		}
	}
	return h
}

// Row is one CSV record viewed through its header index.
type Row struct {
	header *Header
	fields []string
}

// NewRow binds a record to its header.
func NewRow(header *Header, fields []string) Row {
	return Row{header: header, fields: fields}
}

// Get returns the value of the first alias present in the header, matching by
// normalized name. A column that exists but is blank still wins the alias
// search; only columns missing from the header (or cut off by a short record)
// are skipped.
func (r Row) Get(aliases ...string) string {
	for _, alias := range aliases {
		if i, ok := r.header.index[NormalizeFieldName(alias)]; ok && i < len(r.fields) {
			return r.fields[i]
		}
	}
	return ""
}

// goodIDAliases are the column names tried before falling back to heuristic
// detection.
var goodIDAliases = []string{"GoodID", "Good Id", "Good_Id", "ID", "Id"}

// GoodIDDetector finds the product-identifier column. Feeds known aliases
// first; when none of them carries a value it scans the header in column
// order for a name ending in "id" whose value parses as an integer. The
// detected column is cached for the rest of the run and logged once.
type GoodIDDetector struct {
	aliases  []string
	detected string // cached normalized column name
	log      *slog.Logger
}

// NewGoodIDDetector builds a detector. extraAliases are tried after the
// built-in ones, letting deployments name odd export columns in settings.
func NewGoodIDDetector(log *slog.Logger, extraAliases ...string) *GoodIDDetector {
	return &GoodIDDetector{
		aliases: append(append([]string{}, goodIDAliases...), extraAliases...),
		log:     log,
	}
}

// RawValue returns the raw identifier cell for a row, or "" when no column
// yields a non-blank value.
func (d *GoodIDDetector) RawValue(row Row) string {
	if v := row.Get(d.aliases...); strings.TrimSpace(v) != "" {
		return v
	}
	if d.detected != "" {
		if i, ok := row.header.index[d.detected]; ok && i < len(row.fields) {
			return row.fields[i]
		}
		return ""
	}
	for i, name := range row.header.cols {
		if i >= len(row.fields) || !strings.HasSuffix(name, "id") {
			continue
		}
		v := strings.TrimSpace(row.fields[i])
		if v == "" {
			continue
		}
		if _, err := strconv.Atoi(v); err != nil {
			continue
		}
		d.detected = name
		d.log.Info("detected identifier column", "column", name)
		return v
	}
	return ""
}
