package llm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/contentplan/internal/plan"
	"github.com/JakeFAU/contentplan/internal/siteinfo"
)

func TestNichePromptsCarryRulesAndSignals(t *testing.T) {
	t.Parallel()

	sig := siteinfo.Signals{
		Title:         "Bonenbar",
		Headings:      []string{"Verse koffiebonen"},
		CategoryNames: []string{"Espresso"},
	}
	for _, prompt := range []string{
		NichePrompt("https://bonenbar.nl", "nl", sig, nil),
		FallbackNichePrompt("https://bonenbar.nl", "nl", sig, nil),
	} {
		require.Contains(t, prompt, "https://bonenbar.nl")
		require.Contains(t, prompt, "Dutch")
		require.Contains(t, prompt, "Verse koffiebonen")
		require.Contains(t, prompt, "overly narrow")
		require.Contains(t, prompt, "overly generic")
	}
}

func TestNichePromptWithoutSignals(t *testing.T) {
	t.Parallel()

	prompt := NichePrompt("https://x.io", "xx", siteinfo.Signals{}, nil)
	require.Contains(t, prompt, "infer from the URL")
	require.Contains(t, prompt, "English")
}

func TestPillarAndClusterPrompts(t *testing.T) {
	t.Parallel()

	p := PillarTopicsPrompt("Koffie", "de", []plan.PillarTopic{{Topic: "Espresso"}})
	require.Contains(t, p, "15 to 20")
	require.Contains(t, p, "German")
	require.Contains(t, p, "Espresso")

	c := ClusterPrompt("Koffie", "en", plan.PillarTopic{Topic: "Espresso", Subtopics: []string{"Crema"}}, 12)
	require.Contains(t, c, "Pillar topic: Espresso")
	require.Contains(t, c, "Crema")
	require.Contains(t, c, "11 supporting articles")
}

func TestLanguageNameCoversLocales(t *testing.T) {
	t.Parallel()

	for _, lang := range siteinfo.Languages() {
		require.Contains(t, languageNames, lang)
	}
	require.Equal(t, "Italian", LanguageName("it"))
	require.Equal(t, "English", LanguageName("xx"))
}
