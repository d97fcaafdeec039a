// Package textnorm provides the shared string normalization every
// pipeline stage relies on. All dictionary keys and all cached keys are
// stored in this normalized form, so the rules here must stay stable.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases, NFC-normalizes, folds ё to е and collapses
// whitespace. The result is the canonical form used for every
// dictionary lookup and cache key.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "ё", "е")

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// Tokenize splits a normalized string into words, stripping punctuation
// from token edges. Hyphens inside a token are kept (compound
// placenames depend on them).
func Tokenize(s string) []string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) && r != '-'
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Bigrams returns all adjacent word pairs joined by sep.
func Bigrams(words []string, sep string) []string {
	if len(words) < 2 {
		return nil
	}
	out := make([]string, 0, len(words)-1)
	for i := 0; i+1 < len(words); i++ {
		out = append(out, words[i]+sep+words[i+1])
	}
	return out
}

// Trigrams returns all adjacent word triples joined by sep.
func Trigrams(words []string, sep string) []string {
	if len(words) < 3 {
		return nil
	}
	out := make([]string, 0, len(words)-2)
	for i := 0; i+2 < len(words); i++ {
		out = append(out, words[i]+sep+words[i+1]+sep+words[i+2])
	}
	return out
}

// IsCyrillic reports whether the token contains at least one Cyrillic
// letter.
func IsCyrillic(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}
	return false
}

// IsLatin reports whether the token contains at least one Latin letter.
func IsLatin(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Latin, r) {
			return true
		}
	}
	return false
}

// IsNumeric reports whether the token consists entirely of digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
