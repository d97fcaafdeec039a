// Package geodict holds the read-only geographic lookup tables the
// conflict resolver works against, plus the seed-city-set builder.
//
// The maps are keyed by normalized name (see textnorm) and map to an
// ISO 3166-1 alpha-2 country code. Lookups are exact: no fuzzy matching
// happens here, fuzziness lives upstream in tokenization and
// lemmatization.
package geodict

import (
	"github.com/adscope/suggest-triage/internal/morph"
	"github.com/adscope/suggest-triage/internal/textnorm"
)

// CountryUnknown is the sentinel country code curated small cities may
// carry when the placename is too ambiguous to attribute; it blocks
// regardless of the configured target country.
const CountryUnknown = "zz"

// Kind tags the dictionary a geo entity came from.
type Kind string

const (
	KindCity         Kind = "city"
	KindAbbreviation Kind = "abbreviation"
	KindRegion       Kind = "region"
	KindCountry      Kind = "country"
	KindDistrict     Kind = "district"
	KindForbidden    Kind = "forbidden"
	KindSmallCity    Kind = "small_city"
)

// Dictionaries is the full set of geo lookup tables for one deployment.
// It is built once by Load (or supplied by an external loader) and
// shared read-only across batches.
type Dictionaries struct {
	Cities      map[string]string
	Abbrevs     map[string]string
	Regions     map[string]string
	Countries   map[string]string
	Districts   map[string]string
	SmallCities map[string]string

	// Forbidden is the hard blacklist: any mention blocks regardless of
	// target country or seed content.
	Forbidden map[string]struct{}

	// IgnoreNouns lists common nouns that collide with city names and
	// must never be treated as geo search items.
	IgnoreNouns map[string]struct{}
}

// CityCountry looks a search item up in the city dictionary.
func (d *Dictionaries) CityCountry(item string) (string, bool) {
	c, ok := d.Cities[item]
	return c, ok
}

// SeedCities scans the seed's words, lemmas and bigrams against the
// city and district dictionaries and returns the entities that belong
// to the target country. Entities of any other country are never added,
// even when grammatically present in the seed text; the resolver's
// seed allowance depends on that invariant.
func (d *Dictionaries) SeedCities(words, lemmas []string, target string) map[string]struct{} {
	set := make(map[string]struct{})

	add := func(item string) {
		if item == "" {
			return
		}
		if _, skip := d.IgnoreNouns[item]; skip {
			return
		}
		if c, ok := d.Cities[item]; ok && c == target {
			set[item] = struct{}{}
		}
		if c, ok := d.Districts[item]; ok && c == target {
			set[item] = struct{}{}
		}
	}

	for _, w := range words {
		add(w)
	}
	for _, l := range lemmas {
		add(l)
	}
	for _, bg := range textnorm.Bigrams(words, " ") {
		add(bg)
	}
	for _, bg := range textnorm.Bigrams(words, "-") {
		add(bg)
	}
	return set
}

// SeedCitiesFor is a convenience wrapper that tokenizes and lemmatizes
// the seed text itself.
func (d *Dictionaries) SeedCitiesFor(seed, language, target string, analyzer morph.Analyzer) map[string]struct{} {
	words := textnorm.Tokenize(textnorm.Normalize(seed))
	lemmas := make([]string, len(words))
	for i, w := range words {
		lemmas[i] = analyzer.Analyze(w, language).Lemma
	}
	return d.SeedCities(words, lemmas, target)
}
