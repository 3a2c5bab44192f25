// Package siteinfo extracts best-effort text signals and language hints from
// a website's landing page.
package siteinfo

// Caps applied to list-valued signals.
const (
	MaxHeadings      = 40
	MaxArticleTitles = 20
	MaxProductNames  = 20
	MaxCategoryNames = 15
	MaxTopWords      = 20
)

// Signals is the structured text pulled from a page. Every field may be
// empty; callers treat the whole value as advisory.
type Signals struct {
	URL             string   `json:"url"`
	Title           string   `json:"title,omitempty"`
	MetaDescription string   `json:"meta_description,omitempty"`
	MetaKeywords    string   `json:"meta_keywords,omitempty"`
	OGTitle         string   `json:"og_title,omitempty"`
	OGDescription   string   `json:"og_description,omitempty"`
	Headings        []string `json:"headings,omitempty"`
	ArticleTitles   []string `json:"article_titles,omitempty"`
	ProductNames    []string `json:"product_names,omitempty"`
	CategoryNames   []string `json:"category_names,omitempty"`
	TopWords        []string `json:"top_words,omitempty"`
	HTMLLang        string   `json:"html_lang,omitempty"`
	Rendered        bool     `json:"rendered,omitempty"`
}

// Empty reports whether no text signal was found.
func (s Signals) Empty() bool {
	return s.Title == "" && s.MetaDescription == "" && s.MetaKeywords == "" &&
		s.OGTitle == "" && s.OGDescription == "" && len(s.Headings) == 0 &&
		len(s.ArticleTitles) == 0 && len(s.ProductNames) == 0 &&
		len(s.CategoryNames) == 0 && len(s.TopWords) == 0
}
