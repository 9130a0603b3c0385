package sync

import (
	"log/slog"
	"reflect"
	"testing"
)

var testLog = slog.Default()

func TestParseInt(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *int
	}{
		{"plain", "42", intPtr(42)},
		{"negative", "-7", intPtr(-7)},
		{"padded", "  15 ", intPtr(15)},
		{"zero", "0", intPtr(0)},
		{"empty", "", nil},
		{"blank", "   ", nil},
		{"garbage", "abc", nil},
		{"float input", "3.5", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseInt(testLog, tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseInt(%q) = %v, want %v", tt.input, deref(got), deref(tt.want))
			}
		})
	}
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *float64
	}{
		{"plain", "12.5", floatPtr(12.5)},
		{"comma separator", "12,5", floatPtr(12.5)},
		{"integer", "7", floatPtr(7)},
		{"padded comma", " 1,25 ", floatPtr(1.25)},
		{"empty", "", nil},
		{"blank", "  ", nil},
		{"garbage", "n/a", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFloat(testLog, tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseFloat(%q) = %v, want %v", tt.input, deref(got), deref(tt.want))
			}
		})
	}
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"three levels", "Обувь, Кроссовки, Беговые", []string{"Обувь", "Кроссовки", "Беговые"}},
		{"single", "Обувь", []string{"Обувь"}},
		{"empty segments", "Обувь,, ,Кроссовки", []string{"Обувь", "Кроссовки"}},
		{"empty", "", nil},
		{"only separators", ", ,", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitPath(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitPath(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSexName(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{0, "Не определен"},
		{1, "Мужской"},
		{2, "Женский"},
		{3, "Мальчик"},
		{4, "Девочка"},
		{5, "Унисекс"},
		{9, "Не определен"},
		{-1, "Не определен"},
	}

	for _, tt := range tests {
		if got := SexName(tt.code); got != tt.want {
			t.Errorf("SexName(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func deref(v any) any {
	switch p := v.(type) {
	case *int:
		if p == nil {
			return nil
		}
		return *p
	case *float64:
		if p == nil {
			return nil
		}
		return *p
	}
	return v
}
