package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxg-dev/santiscl/internal/domain"
)

func variant(id string, attrs domain.Attributes) domain.ProductVariant {
	return domain.ProductVariant{ID: id, ParentID: "parent", VariantName: id, Attributes: attrs}
}

func optionValues(axis AttributeAxis) []string {
	out := make([]string, 0, len(axis.Options))
	for _, opt := range axis.Options {
		out = append(out, opt.Display)
	}
	return out
}

func TestBuildAttributeIndexNoAttributes(t *testing.T) {
	variants := []domain.ProductVariant{
		variant("a", nil),
		variant("b", domain.Attributes{}),
		variant("c", nil),
	}

	index := BuildAttributeIndex(variants)

	assert.Empty(t, index)
	assert.False(t, ShowSelector(variants, index))
}

func TestBuildAttributeIndexSentinelFirst(t *testing.T) {
	variants := []domain.ProductVariant{
		variant("red", domain.Attributes{"color": "rojo"}),
		variant("blue", domain.Attributes{"color": "Azul"}),
		variant("plain", domain.Attributes{"size": "M"}),
		variant("empty", domain.Attributes{"color": ""}),
	}

	index := BuildAttributeIndex(variants)

	require.Equal(t, []string{"color", "size"}, index.Names())
	color := index["color"]
	assert.Equal(t, []string{StandardLabel, "Azul", "rojo"}, optionValues(color))
	assert.True(t, color.Options[0].IsStandard())
	assert.Equal(t, "plain", color.Options[0].Representative.ID)

	size := index["size"]
	assert.Equal(t, []string{StandardLabel, "M"}, optionValues(size))
	assert.Equal(t, "red", size.Options[0].Representative.ID)
}

func TestBuildAttributeIndexDeduplicatesCaseVariants(t *testing.T) {
	variants := []domain.ProductVariant{
		variant("first", domain.Attributes{"color": "Red"}),
		variant("second", domain.Attributes{"color": "RED"}),
		variant("third", domain.Attributes{"color": "blue"}),
	}

	index := BuildAttributeIndex(variants)

	color := index["color"]
	require.Len(t, color.Options, 2)
	assert.Equal(t, "blue", color.Options[0].Display)
	assert.Equal(t, "Red", color.Options[1].Display)

	opt, ok := color.Option("red")
	require.True(t, ok)
	assert.Equal(t, "first", opt.Representative.ID)
	assert.True(t, ShowSelector(variants, index))
}

func TestBuildAttributeIndexSingleVariantAxis(t *testing.T) {
	variants := []domain.ProductVariant{
		variant("only", domain.Attributes{"material": "Madera"}),
	}

	index := BuildAttributeIndex(variants)

	require.Contains(t, index, "material")
	assert.Len(t, index["material"].Options, 1)
	assert.False(t, ShowSelector(variants, index))
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, StandardValue, NormalizeValue(""))
	assert.Equal(t, "rojo", NormalizeValue("Rojo"))
	assert.Equal(t, StandardValue, NormalizedAttribute(variant("x", nil), "color"))
}
