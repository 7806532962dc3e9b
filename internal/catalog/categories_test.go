package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxg-dev/santiscl/internal/domain"
)

func card(id, name, category string, highlighted bool) domain.ProductCard {
	return domain.ProductCard{
		Parent:         domain.ParentProduct{ID: id, Name: name, Category: category, Highlighted: highlighted},
		DefaultVariant: domain.ProductVariant{ID: id + "-v", ParentID: id, VariantName: "Natural"},
	}
}

func cardIDs(cards []domain.ProductCard) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.Parent.ID)
	}
	return out
}

func TestGroupByCategoryHighlightedJoinsTwoBuckets(t *testing.T) {
	grouping := GroupByCategory([]domain.ProductCard{
		card("bici", "Bicicleta", CategoryOnTheMove, true),
	})

	var found []string
	for _, b := range grouping.Buckets {
		if len(b.Cards) > 0 {
			found = append(found, b.Category.Key)
		}
	}
	assert.Equal(t, []string{CategoryHighlighted, CategoryOnTheMove}, found)
	assert.Empty(t, grouping.Fallbacks)
}

func TestGroupByCategoryOrdering(t *testing.T) {
	grouping := GroupByCategory([]domain.ProductCard{
		card("oso", "Oso", CategoryEarlyChildhood, true),
		card("nube", "Nube", CategoryEarlyChildhood, false),
		card("nandu", "Ñandú", CategoryEarlyChildhood, true),
	})

	assert.Equal(t, []string{"nube", "nandu", "oso"}, cardIDs(grouping.Bucket(CategoryEarlyChildhood)))
	assert.Equal(t, []string{"oso", "nandu"}, cardIDs(grouping.Bucket(CategoryHighlighted)))
}

func TestGroupByCategoryUnknownFallsBack(t *testing.T) {
	grouping := GroupByCategory([]domain.ProductCard{
		card("torre", "Torre", "montessori-kitchen", false),
		card("arco", "Arco", CategoryPlayCorners, false),
	})

	assert.Equal(t, []string{"arco", "torre"}, cardIDs(grouping.Bucket(CategoryPlayCorners)))
	assert.Equal(t, []string{"torre"}, grouping.Fallbacks)
}

func TestLookupCategory(t *testing.T) {
	c, ok := LookupCategory(CategoryExplorationAndClimbing)
	require.True(t, ok)
	assert.Equal(t, "Exploración y escalada", c.Label)

	c, ok = LookupCategory("juguetes")
	assert.False(t, ok)
	assert.Equal(t, "Categoría no encontrada", c.Label)
	assert.Equal(t, "❓", c.Emoji)

	assert.False(t, IsProductCategory(CategoryHighlighted))
	assert.True(t, IsProductCategory(CategoryOnTheMove))
	assert.Len(t, Categories(), 5)
}

func TestFilterCategory(t *testing.T) {
	cards := []domain.ProductCard{
		card("triangulo", "Triángulo Pikler", CategoryExplorationAndClimbing, true),
		card("arco", "Arco", CategoryExplorationAndClimbing, false),
		card("bici", "Bicicleta", CategoryOnTheMove, true),
	}

	assert.Equal(t, []string{"arco", "triangulo"}, cardIDs(FilterCategory(cards, CategoryExplorationAndClimbing)))
	assert.Equal(t, []string{"bici", "triangulo"}, cardIDs(FilterCategory(cards, CategoryHighlighted)))
	assert.Empty(t, FilterCategory(cards, "unknown"))
}

func TestBuildCardsSkipsParentsWithoutVariants(t *testing.T) {
	parents := []domain.ParentProduct{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}
	second := domain.ProductVariant{ID: "a2", ParentID: "a", IsDefault: true}
	variants := map[string][]domain.ProductVariant{
		"a": {{ID: "a1", ParentID: "a"}, second},
	}

	cards, skipped := BuildCards(parents, variants)

	require.Len(t, cards, 1)
	assert.Equal(t, "a2", cards[0].DefaultVariant.ID)
	assert.Equal(t, []string{"b"}, skipped)
}
