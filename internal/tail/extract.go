// Package tail isolates what a candidate suggestion adds relative to
// its seed query. Extraction walks four precision tiers, stopping at
// the first that succeeds: exact substring split, ordered fuzzy match,
// unordered fuzzy match, and a partial match that may skip one
// non-content seed word.
package tail

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/adscope/suggest-triage/internal/morph"
	"github.com/adscope/suggest-triage/internal/textnorm"
)

// ErrSeedNotFound is returned when no tier can locate the seed inside
// the candidate; such candidates are dropped by the orchestrator.
var ErrSeedNotFound = eris.New("tail: seed not found in candidate")

// Extractor computes tails. It is stateless apart from the analyzer and
// safe for concurrent use.
type Extractor struct {
	analyzer morph.Analyzer
	language string
}

// NewExtractor returns an Extractor for the given language.
func NewExtractor(analyzer morph.Analyzer, language string) *Extractor {
	return &Extractor{analyzer: analyzer, language: language}
}

type token struct {
	text  string
	lemma string
	tag   morph.Tag
}

func (e *Extractor) tokens(words []string) []token {
	out := make([]token, len(words))
	for i, w := range words {
		a := e.analyzer.Analyze(w, e.language)
		out[i] = token{text: w, lemma: a.Lemma, tag: a.Tag}
	}
	return out
}

// Extract returns the tail of candidate relative to seed. An empty tail
// with a nil error means the candidate equals the seed.
func (e *Extractor) Extract(candidate, seed string) (string, error) {
	candNorm := textnorm.Normalize(candidate)
	seedNorm := textnorm.Normalize(seed)

	if candNorm == seedNorm {
		return "", nil
	}
	if seedNorm == "" {
		return candNorm, nil
	}

	candWords := textnorm.Tokenize(candNorm)
	seedWords := textnorm.Tokenize(seedNorm)
	if len(candWords) == 0 {
		return "", nil
	}

	cand := e.tokens(candWords)
	sd := e.tokens(seedWords)

	if t, ok := e.exactSplit(candNorm, seedNorm); ok {
		return t, nil
	}
	if t, ok := e.orderedMatch(cand, sd); ok {
		return t, nil
	}
	if t, ok := e.unorderedMatch(cand, sd); ok {
		return t, nil
	}
	if t, ok := e.partialMatch(cand, sd); ok {
		return t, nil
	}

	return "", ErrSeedNotFound
}

// exactSplit handles tier 1: the seed occurs verbatim, on word
// boundaries, inside the candidate. The tail is everything before and
// after the occurrence; trailing prepositions of the "before" part are
// stripped, since they bind to the seed rather than the tail.
func (e *Extractor) exactSplit(cand, seed string) (string, bool) {
	idx := indexOnBoundary(cand, seed)
	if idx < 0 {
		return "", false
	}

	before := textnorm.Tokenize(cand[:idx])
	after := textnorm.Tokenize(cand[idx+len(seed):])

	for len(before) > 0 {
		last := before[len(before)-1]
		if e.analyzer.Analyze(last, e.language).Tag != morph.TagPreposition {
			break
		}
		before = before[:len(before)-1]
	}

	return strings.Join(append(before, after...), " "), true
}

// indexOnBoundary finds sub in s such that both edges fall on word
// boundaries.
func indexOnBoundary(s, sub string) int {
	from := 0
	for {
		i := strings.Index(s[from:], sub)
		if i < 0 {
			return -1
		}
		i += from
		startOK := i == 0 || s[i-1] == ' '
		end := i + len(sub)
		endOK := end == len(s) || s[end] == ' '
		if startOK && endOK {
			return i
		}
		from = i + 1
		if from >= len(s) {
			return -1
		}
	}
}

// tokensMatch is the shared fuzzy token comparison: identical text,
// shared lemma, or a cross-script bridge when the seed word is a
// content word.
func tokensMatch(seedTok, candTok token) bool {
	if seedTok.text == candTok.text {
		return true
	}
	if seedTok.lemma != "" && seedTok.lemma == candTok.lemma {
		return true
	}
	if seedTok.tag.Bridgeable() && seedTok.tag.Content() && bridgeMatch(seedTok.text, candTok.text) {
		return true
	}
	return false
}

// orderedMatch handles tier 2: seed words appear in order in the
// candidate with arbitrary insertions between them. Matched positions
// are excluded from the tail, as are single-letter scan artifacts
// sandwiched between two matched positions.
func (e *Extractor) orderedMatch(cand, seed []token) (string, bool) {
	matched := make([]bool, len(cand))
	next := 0
	for _, st := range seed {
		found := -1
		for j := next; j < len(cand); j++ {
			if tokensMatch(st, cand[j]) {
				found = j
				break
			}
		}
		if found < 0 {
			return "", false
		}
		matched[found] = true
		next = found + 1
	}

	// Single-letter tokens between two matched neighbours are OCR/scan
	// noise, not tail content.
	for j := 1; j < len(cand)-1; j++ {
		if !matched[j] && len([]rune(cand[j].text)) == 1 && matched[j-1] && matched[j+1] {
			matched[j] = true
		}
	}

	return joinUnmatched(cand, matched), true
}

// unorderedMatch handles tier 3: every seed word must be found
// somewhere in the candidate, order-free. Two passes: exact/lemma
// first, then cross-script bridges for content words only.
func (e *Extractor) unorderedMatch(cand, seed []token) (string, bool) {
	used := make([]bool, len(cand))
	unmatched := make([]token, 0, len(seed))

	for _, st := range seed {
		if !claim(cand, used, func(ct token) bool {
			return st.text == ct.text || (st.lemma != "" && st.lemma == ct.lemma)
		}) {
			unmatched = append(unmatched, st)
		}
	}

	for _, st := range unmatched {
		if !st.tag.Bridgeable() || !st.tag.Content() {
			return "", false
		}
		if !claim(cand, used, func(ct token) bool {
			return bridgeMatch(st.text, ct.text)
		}) {
			return "", false
		}
	}

	return joinUnmatched(cand, used), true
}

// partialMatch handles tier 4: for seeds of three or more words, one
// non-content seed word may be skipped and the unordered matcher is
// retried on the reduced seed. When the skipped word was a preposition
// and the tail then opens with a different preposition, that leading
// preposition is a substitution rather than a real addition and is
// dropped.
func (e *Extractor) partialMatch(cand, seed []token) (string, bool) {
	if len(seed) < 3 {
		return "", false
	}

	for skip, st := range seed {
		if st.tag.Content() {
			continue
		}
		reduced := make([]token, 0, len(seed)-1)
		reduced = append(reduced, seed[:skip]...)
		reduced = append(reduced, seed[skip+1:]...)

		t, ok := e.unorderedMatch(cand, reduced)
		if !ok {
			continue
		}

		if st.tag == morph.TagPreposition {
			words := strings.Fields(t)
			if len(words) > 0 && words[0] != st.text &&
				e.analyzer.Analyze(words[0], e.language).Tag == morph.TagPreposition {
				t = strings.Join(words[1:], " ")
			}
		}
		return t, true
	}
	return "", false
}

// claim marks the first unused candidate token satisfying pred.
func claim(cand []token, used []bool, pred func(token) bool) bool {
	for j := range cand {
		if used[j] {
			continue
		}
		if pred(cand[j]) {
			used[j] = true
			return true
		}
	}
	return false
}

func joinUnmatched(cand []token, matched []bool) string {
	var parts []string
	for j, ct := range cand {
		if !matched[j] {
			parts = append(parts, ct.text)
		}
	}
	return strings.Join(parts, " ")
}
