package rag

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Bilingual stopword set. Entries are stored in normalized form (accents
// stripped), since Tokenize only looks tokens up after Normalize.
var stopwords = map[string]struct{}{
	// ES
	"el": {}, "la": {}, "los": {}, "las": {}, "un": {}, "una": {},
	"unos": {}, "unas": {}, "y": {}, "o": {}, "de": {}, "del": {},
	"al": {}, "a": {}, "en": {}, "por": {}, "para": {}, "con": {},
	"sin": {}, "que": {}, "como": {}, "cual": {}, "es": {}, "son": {},
	"ser": {}, "tiene": {}, "tenes": {}, "sabe": {}, "sobre": {},
	"me": {}, "mi": {}, "tu": {}, "sus": {},
	// EN
	"the": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {},
	"in": {}, "on": {}, "for": {}, "with": {}, "without": {}, "is": {},
	"are": {}, "be": {}, "about": {}, "has": {}, "have": {}, "do": {},
	"does": {}, "what": {}, "which": {}, "how": {},
}

// The Synttek project is commonly misspelled "Syntek"; fold both spellings
// to the canonical one so either matches its knowledge records.
var syntekAlias = regexp.MustCompile(`\bsyntek\b`)

// Normalize lower-cases s, applies Unicode canonical decomposition and strips
// combining diacritical marks ("cómo" -> "como").
func Normalize(s string) string {
	decomposed := norm.NFD.String(strings.ToLower(s))
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Tokenize splits s into normalized, stopword-free tokens. Always returns a
// possibly empty slice, never an error.
func Tokenize(s string) []string {
	base := syntekAlias.ReplaceAllString(Normalize(s), "synttek")

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, base)

	fields := strings.Fields(cleaned)
	tokens := make([]string, 0, len(fields))
	for _, t := range fields {
		if _, stop := stopwords[t]; stop {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}

func tokenSet(s string) map[string]struct{} {
	tokens := Tokenize(s)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
