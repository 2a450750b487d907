package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var slugUnsafe = regexp.MustCompile(`[^a-zA-Z0-9\- ]`)

// SlugToTitleCase turns an episode URL slug into a hyphen-joined title,
// capitalizing the first letter of each word and leaving the rest as is:
// "welcome-to-the-machine" becomes "Welcome-To-The-Machine".
func SlugToTitleCase(slug string) string {
	cleaned := strings.ReplaceAll(slugUnsafe.ReplaceAllString(slug, " "), "-", " ")
	words := strings.Fields(cleaned)
	caser := cases.Title(language.Und, cases.NoLower)
	for i, w := range words {
		words[i] = caser.String(w)
	}
	return strings.Join(words, "-")
}
