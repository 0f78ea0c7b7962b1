package router

import (
	"regexp"
	"strings"
	"unicode"
)

// Greeting, farewell and thanks expressions that mark a message as
// conversational rather than a document lookup.
var conversationalLexicon = []string{
	"bonjour", "salut", "coucou", "hello", "cc",
	"ça va", "ca va", "comment vas-tu", "comment vas tu", "tu vas bien",
	"au revoir", "adieu", "merci", "à plus", "a plus",
	"bonsoir",
}

var conversationalPatterns = compileLexicon(conversationalLexicon)

// Go's \b is ASCII-only, so accented entries like "ça va" need explicit
// letter-class boundaries.
func compileLexicon(words []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		patterns = append(patterns,
			regexp.MustCompile(`(?i)(?:^|[^\p{L}])`+regexp.QuoteMeta(w)+`(?:[^\p{L}]|$)`))
	}
	return patterns
}

// IsConversational reports whether the message is small talk: it contains a
// lexicon expression, or it is at most three words and either asks a
// question or carries no letters at all. The decision is per message and
// ignores session state.
func IsConversational(message string) bool {
	for _, p := range conversationalPatterns {
		if p.MatchString(message) {
			return true
		}
	}
	if len(strings.Fields(message)) <= 3 {
		if strings.Contains(message, "?") || !containsLetter(message) {
			return true
		}
	}
	return false
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
