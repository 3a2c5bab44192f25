package llm

import (
	"fmt"
	"strings"

	"github.com/JakeFAU/contentplan/internal/plan"
	"github.com/JakeFAU/contentplan/internal/siteinfo"
)

var languageNames = map[string]string{
	"nl": "Dutch",
	"en": "English",
	"de": "German",
	"fr": "French",
	"es": "Spanish",
	"it": "Italian",
	"pt": "Portuguese",
	"pl": "Polish",
	"sv": "Swedish",
	"da": "Danish",
}

// LanguageName returns the English name of a language code.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return "English"
}

const nicheRules = `Rules for the niche label:
- Do NOT pick an overly narrow niche (a single product, brand or article topic).
- Do NOT pick an overly generic niche ("business", "shopping", "lifestyle", "blog").
- The niche must describe the market the whole site serves, in 2-5 words.`

// NichePrompt asks for a niche classification of the site.
func NichePrompt(sourceURL, language string, sig siteinfo.Signals, budget *TokenBudget) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyse the website %s and classify its content niche.\n", sourceURL)
	fmt.Fprintf(&b, "Answer in %s.\n\n", LanguageName(language))
	b.WriteString("Website signals:\n")
	b.WriteString(budget.Truncate(describeSignals(sig)))
	b.WriteString("\n\n")
	b.WriteString(nicheRules)
	b.WriteString(`

Return only JSON:
{"niche": string, "competition_level": "low"|"medium"|"high"|"very_high",
 "pillar_topics": [{"topic": string, "estimated_articles": number, "subtopics": [string]}],
 "total_articles_needed": number, "reasoning": string}`)
	return b.String()
}

// FallbackNichePrompt is the compact variant sent to the fallback provider.
// It restates the same niche rules.
func FallbackNichePrompt(sourceURL, language string, sig siteinfo.Signals, budget *TokenBudget) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Website: %s\nLanguage: %s\n", sourceURL, LanguageName(language))
	b.WriteString(budget.Truncate(describeSignals(sig)))
	b.WriteString("\n\nDetermine the content niche of this website.\n")
	b.WriteString(nicheRules)
	b.WriteString(`
Respond with JSON only: {"niche": "...", "competition_level": "...", "pillar_topics": [{"topic": "...", "subtopics": []}], "total_articles_needed": 0, "reasoning": "..."}`)
	return b.String()
}

// PillarTopicsPrompt asks for 15-20 pillar topics for a niche.
func PillarTopicsPrompt(niche, language string, existing []plan.PillarTopic) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate 15 to 20 pillar topics for a content plan in the niche %q.\n", niche)
	fmt.Fprintf(&b, "Write the topics in %s.\n", LanguageName(language))
	if len(existing) > 0 {
		names := make([]string, 0, len(existing))
		for _, p := range existing {
			names = append(names, p.Topic)
		}
		fmt.Fprintf(&b, "Keep these existing topics and add new ones: %s.\n", strings.Join(names, ", "))
	}
	b.WriteString(`Each pillar topic must be broad enough for 10+ supporting articles.
Return only JSON: {"pillar_topics": [{"topic": string, "estimated_articles": number, "subtopics": [string]}]}`)
	return b.String()
}

// ClusterPrompt asks for one pillar article plus supporting articles.
func ClusterPrompt(niche, language string, pillar plan.PillarTopic, articles int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Niche: %s\nPillar topic: %s\n", niche, pillar.Topic)
	if len(pillar.Subtopics) > 0 {
		fmt.Fprintf(&b, "Known subtopics: %s\n", strings.Join(pillar.Subtopics, ", "))
	}
	fmt.Fprintf(&b, "Write in %s.\n\n", LanguageName(language))
	fmt.Fprintf(&b, "Create 1 pillar article and %d supporting articles for this topic.\n", max(articles-1, 0))
	b.WriteString(`Use content types how-to, guide, comparison, list or faq for supporting articles.
Return only JSON:
{"pillar": {"title": string, "description": string, "keywords": [string], "search_intent": string},
 "articles": [{"title": string, "description": string, "keywords": [string], "content_type": string,
   "priority": "high"|"medium"|"low", "difficulty": string, "search_intent": string}]}`)
	return b.String()
}

func describeSignals(sig siteinfo.Signals) string {
	var lines []string
	add := func(label, value string) {
		if value != "" {
			lines = append(lines, label+": "+value)
		}
	}
	addList := func(label string, values []string) {
		if len(values) > 0 {
			lines = append(lines, label+": "+strings.Join(values, "; "))
		}
	}
	add("Title", sig.Title)
	add("Meta description", sig.MetaDescription)
	add("Meta keywords", sig.MetaKeywords)
	add("OG title", sig.OGTitle)
	add("OG description", sig.OGDescription)
	addList("Headings", sig.Headings)
	addList("Article titles", sig.ArticleTitles)
	addList("Products", sig.ProductNames)
	addList("Categories", sig.CategoryNames)
	addList("Frequent words", sig.TopWords)
	if len(lines) == 0 {
		return "(no signals could be extracted; infer from the URL)"
	}
	return strings.Join(lines, "\n")
}
