package catalog

import (
	"github.com/maxg-dev/santiscl/internal/domain"
)

// Selection holds the normalised value chosen for every axis.
type Selection map[string]string

// Clone copies the selection.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// SelectionOf returns the normalised values of v across every axis in the index.
func SelectionOf(v domain.ProductVariant, index AttributeIndex) Selection {
	sel := make(Selection, len(index))
	for name := range index {
		sel[name] = NormalizedAttribute(v, name)
	}
	return sel
}

// SelectionValue normalises a value received from a caller. The standard sentinel passes through.
func SelectionValue(raw string) string {
	if raw == StandardValue {
		return raw
	}
	return NormalizeValue(raw)
}

// SelectVariant resolves the variant matching current with axis changed to value.
// Every axis of the index takes part in the comparison; the first match in slice order wins.
func SelectVariant(variants []domain.ProductVariant, index AttributeIndex, current Selection, axis, value string) (domain.ProductVariant, bool) {
	if _, ok := index[axis]; !ok {
		return domain.ProductVariant{}, false
	}

	want := make(Selection, len(index))
	for name := range index {
		if v, ok := current[name]; ok {
			want[name] = v
			continue
		}
		want[name] = StandardValue
	}
	want[axis] = SelectionValue(value)

	for _, v := range variants {
		if matches(v, want) {
			return v, true
		}
	}
	return domain.ProductVariant{}, false
}

func matches(v domain.ProductVariant, want Selection) bool {
	for name, value := range want {
		if NormalizedAttribute(v, name) != value {
			return false
		}
	}
	return true
}

// DefaultVariant returns the variant flagged as default, else the first one.
func DefaultVariant(variants []domain.ProductVariant) (domain.ProductVariant, bool) {
	if len(variants) == 0 {
		return domain.ProductVariant{}, false
	}
	for _, v := range variants {
		if v.IsDefault {
			return v, true
		}
	}
	return variants[0], true
}

func findVariant(variants []domain.ProductVariant, id string) (domain.ProductVariant, bool) {
	if id == "" {
		return domain.ProductVariant{}, false
	}
	for _, v := range variants {
		if v.ID == id {
			return v, true
		}
	}
	return domain.ProductVariant{}, false
}
