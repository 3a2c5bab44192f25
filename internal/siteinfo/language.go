package siteinfo

import (
	"net/url"
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// DefaultLanguage is used when neither the TLD nor the markup tells us.
const DefaultLanguage = "en"

var tldLanguages = map[string]string{
	"nl": "nl",
	"be": "nl",
	"de": "de",
	"at": "de",
	"ch": "de",
	"fr": "fr",
	"es": "es",
	"mx": "es",
	"it": "it",
	"pt": "pt",
	"br": "pt",
	"pl": "pl",
	"se": "sv",
	"dk": "da",
	"uk": "en",
	"ie": "en",
	"us": "en",
	"au": "en",
	"nz": "en",
}

// LanguageFromTLD maps the host's country-code TLD to a language. Generic
// TLDs such as .com report false.
func LanguageFromTLD(rawURL string) (string, bool) {
	host := rawURL
	if u, err := url.Parse(withScheme(rawURL)); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	idx := strings.LastIndexByte(host, '.')
	if idx < 0 {
		return "", false
	}
	lang, ok := tldLanguages[host[idx+1:]]
	return lang, ok
}

// NormalizeLanguage reduces a BCP 47 tag ("en-GB", "nl_NL") to its base
// language code. Unparseable input yields "".
func NormalizeLanguage(raw string) string {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), "_", "-")
	if raw == "" {
		return ""
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == language.No {
		return ""
	}
	return base.String()
}

// DetectLanguage applies the precedence TLD > HTML lang > English.
func DetectLanguage(tldLang, htmlLang string) string {
	if tldLang != "" {
		return tldLang
	}
	if l := NormalizeLanguage(htmlLang); l != "" {
		return l
	}
	return DefaultLanguage
}

// Locale carries the keyword-metrics location settings for a language.
type Locale struct {
	Language     string
	LocationCode int
	LocationName string
}

var locales = map[string]Locale{
	"nl": {Language: "nl", LocationCode: 2528, LocationName: "Netherlands"},
	"de": {Language: "de", LocationCode: 2276, LocationName: "Germany"},
	"fr": {Language: "fr", LocationCode: 2250, LocationName: "France"},
	"es": {Language: "es", LocationCode: 2724, LocationName: "Spain"},
	"it": {Language: "it", LocationCode: 2380, LocationName: "Italy"},
	"pt": {Language: "pt", LocationCode: 2620, LocationName: "Portugal"},
	"pl": {Language: "pl", LocationCode: 2616, LocationName: "Poland"},
	"sv": {Language: "sv", LocationCode: 2752, LocationName: "Sweden"},
	"da": {Language: "da", LocationCode: 2208, LocationName: "Denmark"},
	"en": {Language: "en", LocationCode: 2840, LocationName: "United States"},
}

// Languages lists the language codes with a keyword-metrics locale, sorted.
func Languages() []string {
	langs := make([]string, 0, len(locales))
	for lang := range locales {
		langs = append(langs, lang)
	}
	slices.Sort(langs)
	return langs
}

// LocaleFor returns the locale for a language, defaulting to English.
func LocaleFor(lang string) Locale {
	if l, ok := locales[lang]; ok {
		return l
	}
	return locales[DefaultLanguage]
}

// withScheme prefixes https:// when rawURL carries no scheme.
func withScheme(rawURL string) string {
	if strings.Contains(rawURL, "://") {
		return rawURL
	}
	return "https://" + rawURL
}

// NormalizeURL trims rawURL and prefixes https:// when no scheme is given.
func NormalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	return withScheme(rawURL)
}
