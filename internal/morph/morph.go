// Package morph is the morphology adapter: it maps an inflected word to
// its dictionary base form (lemma) and a coarse part-of-speech tag.
//
// The shipped analyzer is heuristic (closed word classes plus suffix
// stripping) and deliberately pluggable: any backend satisfying
// Analyzer can replace it. A word the analyzer cannot parse degrades to
// the word itself as lemma with an unknown tag; it never fails a batch.
package morph

import (
	"sync"

	gocache "github.com/patrickmn/go-cache"
)

// Tag is a coarse part-of-speech tag.
type Tag string

const (
	TagNoun         Tag = "noun"
	TagAdjective    Tag = "adjective"
	TagVerb         Tag = "verb"
	TagParticiple   Tag = "participle"
	TagAdverb       Tag = "adverb"
	TagNumeral      Tag = "numeral"
	TagPronoun      Tag = "pronoun"
	TagPreposition  Tag = "preposition"
	TagConjunction  Tag = "conjunction"
	TagParticle     Tag = "particle"
	TagInterjection Tag = "interjection"
	TagUnknown      Tag = "unknown"
)

// Content reports whether the tag is a content word class: noun, verb,
// adjective, participle or numeral. Only content words may take part in
// cross-script bridging, and only non-content words may be skipped by
// the partial tail matcher.
func (t Tag) Content() bool {
	switch t {
	case TagNoun, TagVerb, TagAdjective, TagParticiple, TagNumeral:
		return true
	}
	return false
}

// Function reports whether the tag is a function word class that binds
// to neighbouring words rather than carrying meaning of its own.
func (t Tag) Function() bool {
	switch t {
	case TagPreposition, TagConjunction, TagParticle, TagPronoun:
		return true
	}
	return false
}

// Bridgeable reports whether a word with this tag may participate in a
// cross-script bridge. Prepositions, conjunctions, particles and
// interjections never bridge.
func (t Tag) Bridgeable() bool {
	switch t {
	case TagPreposition, TagConjunction, TagParticle, TagInterjection:
		return false
	}
	return true
}

// Analysis is the result of analyzing one word.
type Analysis struct {
	Lemma string
	Tag   Tag
}

// Analyzer resolves a word of a given language to its analysis.
// Implementations must be safe for concurrent use and must never
// return an empty lemma: on failure they return the word itself with
// TagUnknown, or a placeholder when even the word is empty.
type Analyzer interface {
	Analyze(word, language string) Analysis
}

// cachingAnalyzer wraps another analyzer with an unbounded lookup
// cache. Entries never expire; morphology is a pure function of the
// word.
type cachingAnalyzer struct {
	next  Analyzer
	cache *gocache.Cache
}

// WithCache wraps an analyzer with a no-expiration lookup cache.
func WithCache(next Analyzer) Analyzer {
	return &cachingAnalyzer{
		next:  next,
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

func (c *cachingAnalyzer) Analyze(word, language string) Analysis {
	key := language + "\x1f" + word
	if v, ok := c.cache.Get(key); ok {
		return v.(Analysis)
	}
	a := c.next.Analyze(word, language)
	c.cache.Set(key, a, gocache.NoExpiration)
	return a
}

var (
	defaultOnce     sync.Once
	defaultAnalyzer Analyzer
)

// Default returns the process-wide analyzer, built lazily on first use.
// Construction is cheap today but the singleton keeps the cache shared
// across batches, matching how the embedding backend is handled.
func Default() Analyzer {
	defaultOnce.Do(func() {
		defaultAnalyzer = WithCache(NewRuleAnalyzer())
	})
	return defaultAnalyzer
}
