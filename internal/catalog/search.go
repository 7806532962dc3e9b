package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/maxg-dev/santiscl/internal/domain"
)

// Search returns the cards whose parent name or default variant name contains query,
// ignoring case and diacritics. Source order is preserved. An empty query returns cards unchanged.
func Search(cards []domain.ProductCard, query string) []domain.ProductCard {
	needle := FoldText(strings.TrimSpace(query))
	if needle == "" {
		return cards
	}
	out := make([]domain.ProductCard, 0, len(cards))
	for _, card := range cards {
		if strings.Contains(FoldText(card.Parent.Name), needle) ||
			strings.Contains(FoldText(card.DefaultVariant.VariantName), needle) {
			out = append(out, card)
		}
	}
	return out
}

// FoldText strips combining marks and case-folds s for accent-insensitive matching.
func FoldText(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}
