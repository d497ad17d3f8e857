// Package taxonomy holds the closed genre vocabulary shared by the
// normalization collaborators and the canonical store. The mapping tables are
// static data loaded once at process start; there is no lifecycle to manage.
package taxonomy

import "strings"

// GenreOther is the fallback genre; merge logic treats it as replaceable.
const GenreOther = "other"

var canonicalGenres = map[string]struct{}{
	"rock":       {},
	"pop":        {},
	"electronic": {},
	"jazz":       {},
	"hip-hop":    {},
	"metal":      {},
	"indie":      {},
	"folk":       {},
	"classical":  {},
	"world":      {},
	GenreOther:   {},
}

var genreAliases = map[string]string{
	"rock & roll":       "rock",
	"rock and roll":     "rock",
	"alternative":       "rock",
	"alternative rock":  "rock",
	"punk":              "rock",
	"punk rock":         "rock",
	"hard rock":         "rock",
	"garage rock":       "rock",
	"classic rock":      "rock",
	"psychedelic rock":  "rock",
	"pop music":         "pop",
	"pop rock":          "pop",
	"synth pop":         "pop",
	"synthpop":          "pop",
	"electropop":        "pop",
	"dance pop":         "pop",
	"techno":            "electronic",
	"house":             "electronic",
	"deep house":        "electronic",
	"tech house":        "electronic",
	"edm":               "electronic",
	"dance":             "electronic",
	"club":              "electronic",
	"trance":            "electronic",
	"dubstep":           "electronic",
	"drum and bass":     "electronic",
	"dnb":               "electronic",
	"ambient":           "electronic",
	"downtempo":         "electronic",
	"jazz fusion":       "jazz",
	"smooth jazz":       "jazz",
	"bebop":             "jazz",
	"blues":             "jazz",
	"soul":              "jazz",
	"funk":              "jazz",
	"hip hop":           "hip-hop",
	"hiphop":            "hip-hop",
	"rap":               "hip-hop",
	"trap":              "hip-hop",
	"r&b":               "hip-hop",
	"rnb":               "hip-hop",
	"heavy metal":       "metal",
	"death metal":       "metal",
	"black metal":       "metal",
	"doom metal":        "metal",
	"thrash":            "metal",
	"hardcore":          "metal",
	"metalcore":         "metal",
	"indie rock":        "indie",
	"indie pop":         "indie",
	"indie folk":        "indie",
	"lo-fi":             "indie",
	"shoegaze":          "indie",
	"folk music":        "folk",
	"singer-songwriter": "folk",
	"americana":         "folk",
	"country":           "folk",
	"bluegrass":         "folk",
	"acoustic":          "folk",
	"orchestral":        "classical",
	"opera":             "classical",
	"chamber music":     "classical",
	"symphony":          "classical",
	"choir":             "classical",
	"world music":       "world",
	"latin":             "world",
	"reggae":            "world",
	"afrobeat":          "world",
	"balkan":            "world",
}

// IsCanonical reports whether genre is a member of the closed taxonomy.
func IsCanonical(genre string) bool {
	_, ok := canonicalGenres[strings.TrimSpace(strings.ToLower(genre))]
	return ok
}

// Canonicalize maps a raw genre label to its canonical genre. Unknown labels
// fall back to "other".
func Canonicalize(raw string) string {
	label := strings.TrimSpace(strings.ToLower(raw))
	if label == "" {
		return GenreOther
	}
	if _, ok := canonicalGenres[label]; ok {
		return label
	}
	if mapped, ok := genreAliases[label]; ok {
		return mapped
	}
	return GenreOther
}
