package answer

// defaultSynonyms maps a normalized canonical answer to other normalized
// forms that count as correct. Keys and values must already be in Normalize
// output form (lower-case, no punctuation, no leading article).
var defaultSynonyms = map[string][]string{
	// Companies and platforms
	"google":    {"alphabet", "google inc", "google corporation"},
	"meta":      {"facebook", "meta platforms", "fb"},
	"microsoft": {"ms", "microsoft corporation", "microsoft corp"},
	"apple":     {"apple inc", "apple computer"},

	// Famous people
	"thomas edison":     {"edison", "thomas a edison"},
	"leonardo da vinci": {"da vinci", "davinci", "leonardo"},

	// Places and organizations
	"united states":  {"usa", "us", "united states of america", "america"},
	"united kingdom": {"uk", "britain", "great britain"},
	"european union": {"eu"},
	"soviet union":   {"ussr"},

	// Events
	"olympics":  {"olympic games", "olympic"},
	"world cup": {"fifa world cup", "soccer world cup", "football world cup"},

	// Technology and science
	"artificial intelligence": {"ai"},
	"virtual reality":         {"vr"},
	"operating system":        {"os"},
	"world wide web":          {"www", "web"},
	"television":              {"tv"},
	"mathematics":             {"math", "maths"},
	"automobile":              {"car"},
	"airplane":                {"plane", "aircraft"},
	"bicycle":                 {"bike"},
	"photograph":              {"photo", "picture"},

	// Celestial bodies
	"earth": {"terra", "world", "globe"},
	"sun":   {"sol"},
	"moon":  {"luna"},
}
