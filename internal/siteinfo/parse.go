package siteinfo

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

const minWordLength = 4

var (
	articleSelectors = strings.Join([]string{
		"article h2", "article h3", ".post-title", ".entry-title", ".blog-post h2", ".card-title",
	}, ", ")
	productSelectors = strings.Join([]string{
		".product-title", ".product-name", ".product_title", ".woocommerce-loop-product__title",
		`[itemtype*="schema.org/Product"] [itemprop="name"]`,
	}, ", ")
	categorySelectors = strings.Join([]string{
		".product-category", ".category-title", `a[rel="category tag"]`, ".cat-item a",
		"nav .menu-item > a",
	}, ", ")
)

// Parse reads signals from an HTML document. language selects the stop-word
// list used for the word-frequency keywords; an empty language falls back to
// the document's own lang attribute.
func Parse(body []byte, language string) (Signals, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Signals{}, fmt.Errorf("parse html: %w", err)
	}

	sig := Signals{
		Title:           clean(doc.Find("title").First().Text()),
		MetaDescription: metaContent(doc, `meta[name="description"]`),
		MetaKeywords:    metaContent(doc, `meta[name="keywords"]`),
		OGTitle:         metaContent(doc, `meta[property="og:title"]`),
		OGDescription:   metaContent(doc, `meta[property="og:description"]`),
		Headings:        collect(doc.Find("h1, h2, h3"), MaxHeadings),
		ArticleTitles:   collect(doc.Find(articleSelectors), MaxArticleTitles),
		ProductNames:    collect(doc.Find(productSelectors), MaxProductNames),
		CategoryNames:   collect(doc.Find(categorySelectors), MaxCategoryNames),
	}
	if lang, ok := doc.Find("html").Attr("lang"); ok {
		sig.HTMLLang = NormalizeLanguage(lang)
	}
	if language == "" {
		language = sig.HTMLLang
	}

	doc.Find("script, style, noscript, svg").Remove()
	sig.TopWords = TopWords(doc.Find("body").Text(), language, MaxTopWords)
	return sig, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return clean(v)
}

// collect returns distinct non-empty texts in document order, capped at limit.
func collect(sel *goquery.Selection, limit int) []string {
	var out []string
	seen := make(map[string]struct{})
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := clean(s.Text())
		if text == "" {
			return true
		}
		key := strings.ToLower(text)
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}
		out = append(out, text)
		return len(out) < limit
	})
	return out
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TopWords returns the most frequent words in text, skipping short words,
// numbers and the language's stop-words. Ties are broken alphabetically.
func TopWords(text, language string, limit int) []string {
	stop := stopWordsFor(language)
	counts := make(map[string]int)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})
	for _, w := range words {
		w = strings.Trim(w, "-")
		if len([]rune(w)) < minWordLength {
			continue
		}
		if _, skip := stop[w]; skip {
			continue
		}
		counts[w]++
	}

	ranked := make([]string, 0, len(counts))
	for w := range counts {
		ranked = append(ranked, w)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if counts[ranked[i]] != counts[ranked[j]] {
			return counts[ranked[i]] > counts[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
