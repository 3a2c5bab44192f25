package worker

import (
	"fmt"
	"strings"

	"github.com/JakeFAU/contentplan/internal/plan"
)

// Title templates per language; %s is the pillar topic.
var longTailModifiers = map[string][]string{
	"nl": {
		"Hoe kies je de juiste %s",
		"De beste %s voor beginners",
		"%s vs alternatieven",
		"10 tips voor %s",
		"Veelgestelde vragen over %s",
		"Wat kost %s",
		"Veelgemaakte fouten bij %s",
		"%s stap voor stap",
		"%s voor gevorderden",
		"%s checklist",
	},
	"en": {
		"How to choose the right %s",
		"Best %s for beginners",
		"%s vs alternatives",
		"10 tips for %s",
		"Frequently asked questions about %s",
		"How much does %s cost",
		"Common %s mistakes",
		"%s step by step",
		"Advanced %s",
		"%s checklist",
	},
	"de": {
		"Wie wählt man %s",
		"Die besten %s für Einsteiger",
		"%s im Vergleich",
		"10 Tipps für %s",
		"Häufige Fragen zu %s",
		"Was kostet %s",
		"Häufige Fehler bei %s",
		"%s Schritt für Schritt",
		"%s für Fortgeschrittene",
		"%s Checkliste",
	},
	"fr": {
		"Comment choisir %s",
		"Les meilleurs %s pour débutants",
		"%s vs alternatives",
		"10 conseils pour %s",
		"Questions fréquentes sur %s",
		"Combien coûte %s",
		"Erreurs courantes avec %s",
		"%s étape par étape",
		"%s pour experts",
		"Checklist %s",
	},
	"es": {
		"Cómo elegir %s",
		"Los mejores %s para principiantes",
		"%s vs alternativas",
		"10 consejos sobre %s",
		"Preguntas frecuentes sobre %s",
		"Cuánto cuesta %s",
		"Errores comunes con %s",
		"%s paso a paso",
		"%s avanzado",
		"Lista de control de %s",
	},
	"it": {
		"Come scegliere %s",
		"I migliori %s per principianti",
		"%s vs alternative",
		"10 consigli per %s",
		"Domande frequenti su %s",
		"Quanto costa %s",
		"Errori comuni con %s",
		"%s passo dopo passo",
		"%s per esperti",
		"Checklist %s",
	},
	"pt": {
		"Como escolher %s",
		"Os melhores %s para iniciantes",
		"%s vs alternativas",
		"10 dicas sobre %s",
		"Perguntas frequentes sobre %s",
		"Quanto custa %s",
		"Erros comuns com %s",
		"%s passo a passo",
		"%s avançado",
		"Checklist de %s",
	},
	"pl": {
		"Jak wybrać %s",
		"Najlepsze %s dla początkujących",
		"%s czy alternatywy",
		"10 porad: %s",
		"Najczęstsze pytania o %s",
		"Ile kosztuje %s",
		"Najczęstsze błędy: %s",
		"%s krok po kroku",
		"%s dla zaawansowanych",
		"%s: lista kontrolna",
	},
	"sv": {
		"Så väljer du %s",
		"Bästa %s för nybörjare",
		"%s vs alternativ",
		"10 tips om %s",
		"Vanliga frågor om %s",
		"Vad kostar %s",
		"Vanliga misstag med %s",
		"%s steg för steg",
		"%s för avancerade",
		"Checklista för %s",
	},
	"da": {
		"Sådan vælger du %s",
		"Bedste %s for begyndere",
		"%s vs alternativer",
		"10 tips om %s",
		"Ofte stillede spørgsmål om %s",
		"Hvad koster %s",
		"Almindelige fejl med %s",
		"%s trin for trin",
		"%s for øvede",
		"Tjekliste til %s",
	},
}

var longTailTypes = []plan.ContentType{
	plan.ContentHowTo,
	plan.ContentGuide,
	plan.ContentComparison,
	plan.ContentList,
	plan.ContentFAQ,
}

// ModifiersFor returns the long-tail title templates for a language,
// defaulting to English.
func ModifiersFor(language string) []string {
	if m, ok := longTailModifiers[language]; ok {
		return m
	}
	return longTailModifiers["en"]
}

// LongTail combines every modifier with every topic, modifier-major, and
// returns at most count briefs whose titles do not collide with existing ones.
// Content types rotate through how-to, guide, comparison, list and faq. The
// output depends only on the arguments.
func LongTail(topics, modifiers []string, existing []plan.ArticleBrief, count int) []plan.ArticleBrief {
	if count <= 0 || len(topics) == 0 || len(modifiers) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(existing)+count)
	for _, b := range existing {
		seen[plan.NormalizeKey(b.Title)] = struct{}{}
	}

	out := make([]plan.ArticleBrief, 0, min(count, len(topics)*len(modifiers)))
	for _, modifier := range modifiers {
		for _, topic := range topics {
			if len(out) == count {
				return out
			}
			title := fmt.Sprintf(modifier, topic)
			key := plan.NormalizeKey(title)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, plan.ArticleBrief{
				Title:        title,
				Category:     topic,
				Description:  title,
				Keywords:     []string{strings.ToLower(title), strings.ToLower(topic)},
				ContentType:  longTailTypes[len(out)%len(longTailTypes)],
				Cluster:      topic,
				Priority:     plan.PriorityLow,
				SearchIntent: "informational",
			})
		}
	}
	return out
}
