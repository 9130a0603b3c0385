package sync

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// EncodingWindows1251 selects legacy Cyrillic decoding of the export file.
// Older Torgsoft installations write TSGoods.csv in CP1251 rather than UTF-8.
const (
	EncodingUTF8        = "utf-8"
	EncodingWindows1251 = "windows-1251"
)

// SourceFile is a fully parsed export file: the header index plus every data
// record. Records may be shorter or longer than the header; the Row accessor
// treats missing cells as absent columns.
type SourceFile struct {
	Header    *Header
	RawHeader []string
	Records   [][]string
}

// Row wraps the i-th data record for header-indexed access.
func (f *SourceFile) Row(i int) Row {
	return NewRow(f.Header, f.Records[i])
}

// ReadSourceFile loads and parses a Torgsoft CSV export. The delimiter is
// sniffed from the first lines (comma or semicolon, comma when tied), and the
// file may be decoded from Windows-1251 first.
func ReadSourceFile(log *slog.Logger, path, encoding string) (*SourceFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if encoding == EncodingWindows1251 {
		decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), charmap.Windows1251.NewDecoder()))
		if err != nil {
			return nil, fmt.Errorf("decode %s as windows-1251: %w", path, err)
		}
		raw = decoded
	}

	content := string(raw)
	delimiter := sniffDelimiter(content)
	log.Info("parsing export file", "path", path, "delimiter", string(delimiter))

	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return &SourceFile{Header: NewHeader(nil)}, nil
	}
	return &SourceFile{
		Header:    NewHeader(records[0]),
		RawHeader: records[0],
		Records:   records[1:],
	}, nil
}

// sniffDelimiter picks between comma and semicolon by counting occurrences in
// the first five lines.
func sniffDelimiter(content string) rune {
	lines := strings.SplitN(content, "\n", 6)
	if len(lines) == 6 {
		lines = lines[:5]
	}
	sample := strings.Join(lines, "\n")
	if strings.Count(sample, ";") > strings.Count(sample, ",") {
		return ';'
	}
	return ','
}
