package richtext

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestHTMLRendersMarkdown(t *testing.T) {
	r := NewRenderer()
	out, err := r.HTML("## Torre de aprendizaje\n\nMadera de **pino** certificada.\n\n- Ajustable\n- Plegable")
	require.NoError(t, err)

	doc := parse(t, out)
	assert.Equal(t, "Torre de aprendizaje", doc.Find("h2").Text())
	assert.Equal(t, "pino", doc.Find("strong").Text())
	assert.Equal(t, 2, doc.Find("li").Length())
}

func TestHTMLSanitisesUnsafeContent(t *testing.T) {
	r := NewRenderer()
	out, err := r.HTML("[click](javascript:alert(1)) <script>alert(1)</script> [tienda](https://santis.cl)")
	require.NoError(t, err)

	doc := parse(t, out)
	assert.Equal(t, 0, doc.Find("script").Length())
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		assert.NotContains(t, href, "javascript")
	})
	link := doc.Find(`a[href="https://santis.cl"]`)
	require.Equal(t, 1, link.Length())
	rel, _ := link.Attr("rel")
	assert.Contains(t, rel, "nofollow")
}

func TestHTMLEmptyInput(t *testing.T) {
	out, err := NewRenderer().HTML("   \n")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestPlainStripsMarkup(t *testing.T) {
	out, err := NewRenderer().Plain("# Arco\n\nIdeal para *escalar*.")
	require.NoError(t, err)
	assert.Equal(t, "Arco Ideal para escalar.", out)
}
