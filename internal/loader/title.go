package loader

import (
	"path/filepath"
	"strings"
)

// titleCaseExceptions lists short words kept lowercase mid-title and
// initialisms that are fully capitalised.
var titleCaseExceptions = map[string]string{
	"a":   "a",
	"an":  "an",
	"and": "and",
	"at":  "at",
	"de":  "de",
	"in":  "in",
	"of":  "of",
	"on":  "on",
	"or":  "or",
	"the": "the",
	"to":  "to",
	"dc":  "DC",
	"uk":  "UK",
	"us":  "US",
	"usa": "USA",
}

// TitleFromPath derives a human-readable title from a corpus-relative file
// path when the document itself carries none. Underscores, hyphens, and
// directory separators become spaces; words are title-cased with common
// short words and initialisms handled specially. The first word is always
// capitalised.
func TitleFromPath(rel string) string {
	base := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	base = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(base)

	words := strings.Fields(base)
	for i, w := range words {
		lower := strings.ToLower(w)
		if repl, ok := titleCaseExceptions[lower]; ok {
			if i == 0 && repl == lower {
				words[i] = strings.ToUpper(lower[:1]) + lower[1:]
			} else {
				words[i] = repl
			}
			continue
		}
		words[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(words, " ")
}
