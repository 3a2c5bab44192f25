package siteinfo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLanguageFromTLD(t *testing.T) {
	t.Parallel()

	cases := []struct {
		url  string
		lang string
		ok   bool
	}{
		{"https://www.bonenbar.nl/shop", "nl", true},
		{"winkel.be", "nl", true},
		{"https://shop.example.co.uk", "en", true},
		{"http://example.de:8080", "de", true},
		{"https://example.com", "", false},
		{"localhost", "", false},
	}
	for _, tc := range cases {
		lang, ok := LanguageFromTLD(tc.url)
		require.Equal(t, tc.ok, ok, tc.url)
		require.Equal(t, tc.lang, lang, tc.url)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	t.Parallel()

	require.Equal(t, "en", NormalizeLanguage("en-GB"))
	require.Equal(t, "nl", NormalizeLanguage("nl_NL"))
	require.Equal(t, "de", NormalizeLanguage(" DE "))
	require.Equal(t, "", NormalizeLanguage(""))
	require.Equal(t, "", NormalizeLanguage("not a language!"))
}

func TestDetectLanguagePrefersTLD(t *testing.T) {
	t.Parallel()

	tld, _ := LanguageFromTLD("https://bonenbar.nl")
	require.Equal(t, "nl", DetectLanguage(tld, "en"))
	require.Equal(t, "fr", DetectLanguage("", "fr-BE"))
	require.Equal(t, DefaultLanguage, DetectLanguage("", ""))
}

func TestLocaleFor(t *testing.T) {
	t.Parallel()

	require.Equal(t, 2528, LocaleFor("nl").LocationCode)
	require.Equal(t, "en", LocaleFor("xx").Language)
}

func TestDetectedLanguagesHaveLocaleAndStopWords(t *testing.T) {
	t.Parallel()

	langs := Languages()
	require.Contains(t, langs, DefaultLanguage)
	for _, lang := range tldLanguages {
		require.Contains(t, langs, lang)
	}
	for _, lang := range langs {
		require.Equal(t, lang, LocaleFor(lang).Language)
		require.Contains(t, stopWords, lang, "stop words for %s", lang)
	}
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "https://bonenbar.nl", NormalizeURL(" bonenbar.nl "))
	require.Equal(t, "http://bonenbar.nl", NormalizeURL("http://bonenbar.nl"))
	require.Equal(t, "", NormalizeURL("  "))
}
