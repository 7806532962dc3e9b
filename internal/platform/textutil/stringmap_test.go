package textutil

import (
	"reflect"
	"testing"
)

func TestNormalizeStringMap(t *testing.T) {
	t.Run("trims keys and values", func(t *testing.T) {
		input := map[string]string{
			" color ":       " Rojo ",
			"tamaño   base": "Grande",
			"material":      " ",
			" ":             "ignored",
			"":              "ignore",
		}

		expected := map[string]string{
			"color":       "Rojo",
			"tamaño base": "Grande",
			"material":    "",
		}

		actual := NormalizeStringMap(input)
		if !reflect.DeepEqual(actual, expected) {
			t.Fatalf("expected %#v got %#v", expected, actual)
		}
	})

	t.Run("returns nil for nil or empty input", func(t *testing.T) {
		if NormalizeStringMap(nil) != nil {
			t.Fatalf("expected nil for nil input")
		}
		if NormalizeStringMap(map[string]string{" ": "x"}) != nil {
			t.Fatalf("expected nil when every key is blank")
		}
	})
}

func TestTruncate(t *testing.T) {
	if got := Truncate("Ñandú feliz", 5); got != "Ñandú" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := Truncate("mesa", 10); got != "mesa" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := Truncate("mesa", 0); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}
