package siteinfo

// Only words of four or more letters matter; shorter ones are dropped before
// the stop-word lookup.
var stopWords = map[string][]string{
	"nl": {
		"deze", "dit", "die", "voor", "naar", "maar", "onze", "jouw", "jullie", "zijn", "worden", "wordt",
		"hebben", "heeft", "alle", "meer", "over", "ook", "niet", "door", "zoals", "waar", "wanneer",
		"omdat", "tegen", "tussen", "bekijk", "lees", "verder", "winkelwagen", "account", "inloggen",
		"zoeken", "menu", "home", "contact", "cookies", "privacy", "hier", "welke", "wat", "jaar",
	},
	"en": {
		"this", "that", "with", "from", "your", "have", "will", "more", "about", "which", "their",
		"there", "when", "what", "were", "been", "they", "also", "into", "than", "them", "then",
		"only", "just", "read", "home", "menu", "search", "cart", "account", "login", "cookies",
		"privacy", "contact", "here", "other", "some", "such", "each",
	},
	"de": {
		"diese", "dieser", "und", "oder", "aber", "eine", "einer", "einen", "nicht", "sind", "wird",
		"werden", "haben", "auch", "mehr", "über", "nach", "durch", "für", "alle", "ihre", "unsere",
		"suche", "warenkorb", "konto", "anmelden", "kontakt", "datenschutz", "startseite",
	},
	"fr": {
		"dans", "pour", "avec", "plus", "sont", "cette", "votre", "nous", "vous", "leur", "mais",
		"tout", "tous", "comme", "sans", "panier", "compte", "connexion", "rechercher", "accueil",
	},
	"es": {
		"para", "como", "este", "esta", "pero", "más", "sobre", "todo", "todos", "nuestro",
		"nuestra", "desde", "cuando", "carrito", "cuenta", "buscar", "inicio", "contacto",
	},
	"it": {
		"della", "delle", "degli", "questo", "questa", "sono", "anche", "come", "tutti", "nostro",
		"nostra", "carrello", "accedi", "cerca", "contatti",
	},
	"pt": {
		"para", "como", "este", "esta", "mais", "sobre", "todos", "nosso", "nossa", "quando",
		"também", "carrinho", "conta", "pesquisar", "início", "contato", "contacto",
	},
	"pl": {
		"jest", "oraz", "które", "który", "która", "przez", "także", "tylko", "więcej", "nasz",
		"nasze", "koszyk", "konto", "zaloguj", "szukaj", "kontakt", "strona",
	},
	"sv": {
		"och", "för", "med", "till", "från", "eller", "inte", "alla", "mer", "våra", "vår",
		"varukorg", "konto", "logga", "sök", "kontakt", "hem",
	},
	"da": {
		"og", "for", "med", "til", "fra", "eller", "ikke", "alle", "mere", "vores", "også",
		"kurv", "konto", "log", "søg", "kontakt", "forside",
	},
}

var stopWordSets = func() map[string]map[string]struct{} {
	sets := make(map[string]map[string]struct{}, len(stopWords))
	for lang, words := range stopWords {
		set := make(map[string]struct{}, len(words))
		for _, w := range words {
			set[w] = struct{}{}
		}
		sets[lang] = set
	}
	return sets
}()

func stopWordsFor(lang string) map[string]struct{} {
	if set, ok := stopWordSets[lang]; ok {
		return set
	}
	return stopWordSets[DefaultLanguage]
}
