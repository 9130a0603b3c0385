package sync

import (
	"log/slog"
	"strconv"
	"strings"
)

// ParseInt converts a raw CSV field to an int. Blank input and anything that
// does not parse yield nil; a failed parse is logged at warn level so a
// systematically broken column shows up in the logs without failing rows.
func ParseInt(log *slog.Logger, value string) *int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		log.Warn("cannot parse int field", "value", value)
		return nil
	}
	return &n
}

// ParseFloat converts a raw CSV field to a float64, accepting a comma as the
// decimal separator. Blank and unparseable input yield nil.
func ParseFloat(log *slog.Logger, value string) *float64 {
	trimmed := strings.TrimSpace(strings.ReplaceAll(value, ",", "."))
	if trimmed == "" {
		return nil
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		log.Warn("cannot parse float field", "value", value)
		return nil
	}
	return &f
}

// SplitPath splits a comma-separated hierarchy path ("Shoes, Sneakers") into
// trimmed segments, dropping blanks.
func SplitPath(value string) []string {
	if value == "" {
		return nil
	}
	var names []string
	for _, part := range strings.Split(value, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// sexNames maps the Torgsoft numeric sex code to its display name.
// Unknown codes fall back to code 0.
var sexNames = map[int]string{
	0: "Не определен",
	1: "Мужской",
	2: "Женский",
	3: "Мальчик",
	4: "Девочка",
	5: "Унисекс",
}

// SexName resolves a numeric sex code to its reference-entity name.
func SexName(code int) string {
	if name, ok := sexNames[code]; ok {
		return name
	}
	return sexNames[0]
}
