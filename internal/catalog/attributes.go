package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/maxg-dev/santiscl/internal/domain"
)

const (
	// StandardValue is the normalised value used when a variant omits an attribute or leaves it empty.
	StandardValue = "__STANDARD_ATTR_VALUE__"
	// StandardLabel is the display text for StandardValue.
	StandardLabel = "Estándar"
)

// AttributeOption is one selectable value of an axis.
type AttributeOption struct {
	Normalized     string
	Display        string
	Representative domain.ProductVariant
}

// IsStandard reports whether the option stands for an absent or empty value.
func (o AttributeOption) IsStandard() bool {
	return o.Normalized == StandardValue
}

// AttributeAxis is one dimension of variation derived from a parent's variants.
type AttributeAxis struct {
	Name    string
	Options []AttributeOption
}

// Option looks up an option by its normalised value.
func (a AttributeAxis) Option(normalized string) (AttributeOption, bool) {
	for _, opt := range a.Options {
		if opt.Normalized == normalized {
			return opt, true
		}
	}
	return AttributeOption{}, false
}

// AttributeIndex maps axis names to their ordered options.
type AttributeIndex map[string]AttributeAxis

// Names returns the axis names in ascending order.
func (idx AttributeIndex) Names() []string {
	names := make([]string, 0, len(idx))
	for name := range idx {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Axes returns the axes ordered by name.
func (idx AttributeIndex) Axes() []AttributeAxis {
	names := idx.Names()
	out := make([]AttributeAxis, 0, len(names))
	for _, name := range names {
		out = append(out, idx[name])
	}
	return out
}

// NormalizeValue folds a raw attribute value into its matching form.
func NormalizeValue(raw string) string {
	if raw == "" {
		return StandardValue
	}
	return strings.ToLower(raw)
}

// NormalizedAttribute returns the normalised value of key on the variant, treating absence as StandardValue.
func NormalizedAttribute(v domain.ProductVariant, key string) string {
	raw, ok := v.Attributes[key]
	if !ok {
		return StandardValue
	}
	return NormalizeValue(raw)
}

// BuildAttributeIndex derives the attribute axes present across variants.
func BuildAttributeIndex(variants []domain.ProductVariant) AttributeIndex {
	keys := make(map[string]struct{})
	for _, v := range variants {
		for key := range v.Attributes {
			keys[key] = struct{}{}
		}
	}

	index := make(AttributeIndex, len(keys))
	if len(keys) == 0 {
		return index
	}

	coll := collate.New(language.Spanish, collate.IgnoreCase)
	for key := range keys {
		seen := make(map[string]struct{}, len(variants))
		options := make([]AttributeOption, 0, len(variants))
		for _, v := range variants {
			normalized := NormalizedAttribute(v, key)
			if _, ok := seen[normalized]; ok {
				continue
			}
			seen[normalized] = struct{}{}
			display := v.Attributes[key]
			if normalized == StandardValue {
				display = StandardLabel
			}
			options = append(options, AttributeOption{
				Normalized:     normalized,
				Display:        display,
				Representative: v,
			})
		}
		sortOptions(coll, options)
		index[key] = AttributeAxis{Name: key, Options: options}
	}
	return index
}

func sortOptions(coll *collate.Collator, options []AttributeOption) {
	sort.SliceStable(options, func(i, j int) bool {
		a, b := options[i], options[j]
		if a.IsStandard() != b.IsStandard() {
			return a.IsStandard()
		}
		if cmp := coll.CompareString(a.Display, b.Display); cmp != 0 {
			return cmp < 0
		}
		return a.Normalized < b.Normalized
	})
}

// ShowSelector reports whether an attribute selector should be offered for the variants.
func ShowSelector(variants []domain.ProductVariant, index AttributeIndex) bool {
	return len(variants) > 1 && len(index) > 0
}
