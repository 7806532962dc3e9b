package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/maxg-dev/santiscl/internal/domain"
)

// Category keys known to the storefront.
const (
	CategoryHighlighted            = "highlighted"
	CategoryEarlyChildhood         = "early-childhood"
	CategoryOnTheMove              = "on-the-move"
	CategoryPlayCorners            = "play-corners"
	CategoryExplorationAndClimbing = "exploration-and-climbing"

	// FallbackCategory receives products whose category tag is unknown.
	FallbackCategory = CategoryPlayCorners
)

// Category is a display bucket of the storefront.
type Category struct {
	Key   string
	Label string
	Emoji string
}

var categories = []Category{
	{Key: CategoryHighlighted, Label: "Destacados", Emoji: "🌟"},
	{Key: CategoryEarlyChildhood, Label: "Primera infancia", Emoji: "🧸"},
	{Key: CategoryOnTheMove, Label: "En movimiento", Emoji: "🚲"},
	{Key: CategoryPlayCorners, Label: "Rincones de juego", Emoji: "🏡"},
	{Key: CategoryExplorationAndClimbing, Label: "Exploración y escalada", Emoji: "🧗‍♂️"},
}

var unknownCategory = Category{Label: "Categoría no encontrada", Emoji: "❓"}

// Categories returns the ordered category list, highlighted first.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// LookupCategory resolves a slug. Unknown slugs yield the "not found" category and false.
func LookupCategory(slug string) (Category, bool) {
	slug = strings.TrimSpace(slug)
	for _, c := range categories {
		if c.Key == slug {
			return c, true
		}
	}
	c := unknownCategory
	c.Key = slug
	return c, false
}

// IsProductCategory reports whether slug may be stored as a parent's category tag.
func IsProductCategory(slug string) bool {
	if slug == CategoryHighlighted {
		return false
	}
	_, ok := LookupCategory(slug)
	return ok
}

// Bucket is one category with its products.
type Bucket struct {
	Category Category
	Cards    []domain.ProductCard
}

// Grouping is the result of GroupByCategory.
type Grouping struct {
	Buckets []Bucket
	// Fallbacks lists parent ids whose category tag was unknown.
	Fallbacks []string
}

// Bucket returns the cards of the bucket with the given key.
func (g Grouping) Bucket(key string) []domain.ProductCard {
	for _, b := range g.Buckets {
		if b.Category.Key == key {
			return b.Cards
		}
	}
	return nil
}

// GroupByCategory partitions cards into the fixed category buckets. Highlighted cards also
// join the highlighted bucket in encounter order; other buckets are sorted by parent name.
func GroupByCategory(cards []domain.ProductCard) Grouping {
	byKey := make(map[string][]domain.ProductCard, len(categories))
	var fallbacks []string
	for _, card := range cards {
		if card.Parent.Highlighted {
			byKey[CategoryHighlighted] = append(byKey[CategoryHighlighted], card)
		}
		key := card.Parent.Category
		if !IsProductCategory(key) {
			key = FallbackCategory
			fallbacks = append(fallbacks, card.Parent.ID)
		}
		byKey[key] = append(byKey[key], card)
	}

	coll := collate.New(language.Spanish)
	grouping := Grouping{Buckets: make([]Bucket, 0, len(categories)), Fallbacks: fallbacks}
	for _, c := range categories {
		items := byKey[c.Key]
		if c.Key != CategoryHighlighted {
			sortByName(coll, items)
		}
		grouping.Buckets = append(grouping.Buckets, Bucket{Category: c, Cards: items})
	}
	return grouping
}

// FilterCategory returns the cards shown on a category page: highlighted cards for the
// highlighted slug, otherwise cards tagged with slug. Results are sorted by parent name.
func FilterCategory(cards []domain.ProductCard, slug string) []domain.ProductCard {
	var out []domain.ProductCard
	for _, card := range cards {
		if slug == CategoryHighlighted {
			if card.Parent.Highlighted {
				out = append(out, card)
			}
			continue
		}
		if card.Parent.Category == slug {
			out = append(out, card)
		}
	}
	sortByName(collate.New(language.Spanish), out)
	return out
}

// BuildCards pairs each parent with its default variant. Parents without variants are
// skipped and returned in the second result.
func BuildCards(parents []domain.ParentProduct, variantsByParent map[string][]domain.ProductVariant) ([]domain.ProductCard, []string) {
	cards := make([]domain.ProductCard, 0, len(parents))
	var skipped []string
	for _, parent := range parents {
		def, ok := DefaultVariant(variantsByParent[parent.ID])
		if !ok {
			skipped = append(skipped, parent.ID)
			continue
		}
		cards = append(cards, domain.ProductCard{Parent: parent, DefaultVariant: def})
	}
	return cards, skipped
}

func sortByName(coll *collate.Collator, cards []domain.ProductCard) {
	sort.SliceStable(cards, func(i, j int) bool {
		return coll.CompareString(cards[i].Parent.Name, cards[j].Parent.Name) < 0
	})
}
