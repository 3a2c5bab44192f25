package siteinfo

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const shopHTML = `<!doctype html>
<html lang="nl-NL">
<head>
  <title>  Bonenbar | Verse koffiebonen </title>
  <meta name="description" content="Ambachtelijk gebrande koffiebonen.">
  <meta name="keywords" content="koffie, bonen, espresso">
  <meta property="og:title" content="Bonenbar">
  <meta property="og:description" content="Koffie van de branderij">
</head>
<body>
  <nav><ul><li class="menu-item"><a href="/espresso">Espresso</a></li><li class="menu-item"><a href="/filter">Filterkoffie</a></li></ul></nav>
  <h1>Verse koffiebonen</h1>
  <h2>Onze favorieten</h2>
  <h2>Onze favorieten</h2>
  <article><h2>Zo zet je de perfecte espresso</h2></article>
  <div class="product"><h3 class="product-title">Ethiopië Yirgacheffe</h3></div>
  <div class="product"><h3 class="product-title">Brazilië Santos</h3></div>
  <p>Koffiebonen koffiebonen koffiebonen branderij branderij espresso deze deze deze</p>
  <script>var koffiebonen = "tracking";</script>
</body>
</html>`

func TestParseExtractsSignals(t *testing.T) {
	t.Parallel()

	sig, err := Parse([]byte(shopHTML), "nl")
	require.NoError(t, err)
	require.Equal(t, "Bonenbar | Verse koffiebonen", sig.Title)
	require.Equal(t, "Ambachtelijk gebrande koffiebonen.", sig.MetaDescription)
	require.Equal(t, "koffie, bonen, espresso", sig.MetaKeywords)
	require.Equal(t, "Bonenbar", sig.OGTitle)
	require.Equal(t, "Koffie van de branderij", sig.OGDescription)
	require.Equal(t, "nl", sig.HTMLLang)
	require.Contains(t, sig.Headings, "Verse koffiebonen")
	require.Equal(t, 1, countOf(sig.Headings, "Onze favorieten"))
	require.Equal(t, []string{"Zo zet je de perfecte espresso"}, sig.ArticleTitles)
	require.Equal(t, []string{"Ethiopië Yirgacheffe", "Brazilië Santos"}, sig.ProductNames)
	require.Equal(t, []string{"Espresso", "Filterkoffie"}, sig.CategoryNames)
	require.Equal(t, "koffiebonen", sig.TopWords[0])
	require.NotContains(t, sig.TopWords, "deze")
	require.False(t, sig.Empty())
}

func TestParseCapsHeadings(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&b, "<h2>Heading %d</h2>", i)
	}
	b.WriteString("</body></html>")

	sig, err := Parse([]byte(b.String()), "en")
	require.NoError(t, err)
	require.Len(t, sig.Headings, MaxHeadings)
	require.Equal(t, "Heading 0", sig.Headings[0])
}

func TestParseEmptyDocument(t *testing.T) {
	t.Parallel()

	sig, err := Parse([]byte(""), "en")
	require.NoError(t, err)
	require.True(t, sig.Empty())
}

func TestTopWordsOrderingAndStopWords(t *testing.T) {
	t.Parallel()

	words := TopWords("garden garden tools tools hose this this this with", "en", 2)
	require.Equal(t, []string{"garden", "tools"}, words)

	words = TopWords("über über über gartenwerkzeug", "de", 5)
	require.Equal(t, []string{"gartenwerkzeug"}, words)
}

func countOf(list []string, s string) int {
	n := 0
	for _, v := range list {
		if v == s {
			n++
		}
	}
	return n
}
