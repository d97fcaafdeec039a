package georesolve

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/adscope/suggest-triage/internal/geodict"
	"github.com/adscope/suggest-triage/internal/morph"
)

// stageForbidden blocks on any hard-blacklisted token or lemma. No
// exceptions: the list exists to suppress politically sensitive
// locations irrespective of the campaign configuration.
func (r *Resolver) stageForbidden(s *scan) *Decision {
	for _, it := range s.items {
		if _, ok := r.dict.Forbidden[it]; ok {
			return &Decision{Allowed: false, Reason: fmt.Sprintf("forbidden location %q", it), Kind: geodict.KindForbidden}
		}
	}
	return nil
}

// stageDistricts handles administrative districts. A district of
// another country blocks unconditionally; a target-country district is
// allowed only while the seed anchors a city of that same country.
// Seed protection never extends across country boundaries. Any
// target-country seed city protects: the seed-city set only ever holds
// target-country entities, and district dictionaries are per-market,
// so district-to-city ownership is not tracked further.
func (r *Resolver) stageDistricts(s *scan) *Decision {
	for _, it := range s.items {
		country, ok := r.dict.Districts[it]
		if !ok {
			continue
		}
		if country != s.target {
			return &Decision{Allowed: false, Reason: fmt.Sprintf("district %q belongs to %s", it, country), Kind: geodict.KindDistrict}
		}
		if len(s.seedCities) == 0 {
			return &Decision{Allowed: false, Reason: fmt.Sprintf("district %q without a seed city", it), Kind: geodict.KindDistrict}
		}
	}
	return nil
}

// stageAbbreviations blocks short-form city names of other countries.
func (r *Resolver) stageAbbreviations(s *scan) *Decision {
	return r.blockForeign(s, r.dict.Abbrevs, "city abbreviation", geodict.KindAbbreviation)
}

// stageRegions blocks regions, republics and oblasts of other
// countries; multi-word region names are caught by the bigram items.
func (r *Resolver) stageRegions(s *scan) *Decision {
	return r.blockForeign(s, r.dict.Regions, "region", geodict.KindRegion)
}

// stageCountries blocks any mention of a country other than the
// target, native or transliterated.
func (r *Resolver) stageCountries(s *scan) *Decision {
	return r.blockForeign(s, r.dict.Countries, "country", geodict.KindCountry)
}

// stageSmallCities checks the manually curated small-city list. The
// unknown-country sentinel always blocks: the placename is too
// ambiguous to attribute to any campaign.
func (r *Resolver) stageSmallCities(s *scan) *Decision {
	for _, it := range s.items {
		country, ok := r.dict.SmallCities[it]
		if !ok {
			continue
		}
		if country == geodict.CountryUnknown {
			return &Decision{Allowed: false, Reason: fmt.Sprintf("ambiguous small city %q", it), Kind: geodict.KindSmallCity}
		}
		if country != s.target {
			return &Decision{Allowed: false, Reason: fmt.Sprintf("small city %q belongs to %s", it, country), Kind: geodict.KindSmallCity}
		}
	}
	return nil
}

// stageCities is the decisive layer. A city of another country blocks
// unconditionally — seed membership does not rescue a foreign city;
// that invariant has regressed before and is guarded by tests. Two or
// more distinct target-country cities block unless the seed-city-pair
// allowance applies.
func (r *Resolver) stageCities(s *scan) *Decision {
	targetCities := make(map[string]struct{})

	for _, it := range s.items {
		country, ok := r.dict.CityCountry(it)
		if !ok {
			r.consultMorphology(it)
			continue
		}
		if country != s.target {
			return &Decision{Allowed: false, Reason: fmt.Sprintf("city %q belongs to %s, target is %s", it, country, s.target), Kind: geodict.KindCity}
		}
		targetCities[r.cityKey(it)] = struct{}{}
	}

	if len(targetCities) >= 2 {
		if r.cfg.AllowSeedCityPairs && allInSeed(targetCities, s.seedCities) {
			return nil
		}
		return &Decision{Allowed: false, Reason: fmt.Sprintf("%d distinct cities of %s in one candidate", len(targetCities), s.target), Kind: geodict.KindCity}
	}
	return nil
}

// consultMorphology evaluates a dictionary miss as a possible ordinary
// word. Nothing blocks here: without a dictionary entry there is no
// country to conflict with, but toponym-looking unknowns are worth a
// debug trace.
func (r *Resolver) consultMorphology(item string) {
	a := r.analyzer.Analyze(item, r.cfg.Language)
	if a.Tag == morph.TagNoun && looksToponymic(item) {
		zap.L().Debug("georesolve: unknown toponym-like item ignored",
			zap.String("item", item),
		)
	}
}

// looksToponymic flags suffixes typical of Slavic placenames.
func looksToponymic(item string) bool {
	for _, suf := range []string{"ово", "ево", "ино", "ск", "град", "бург", "ичи"} {
		if len(item) > len(suf) && item[len(item)-len(suf):] == suf {
			return true
		}
	}
	return false
}

// cityKey collapses a matched item to its lemma so the multi-city rule
// does not count an inflected form and its lemma as two cities.
func (r *Resolver) cityKey(item string) string {
	if strings.ContainsAny(item, " -") {
		return item
	}
	return r.analyzer.Analyze(item, r.cfg.Language).Lemma
}

// stageGrammar is the residual malformedness check, on by default and
// switchable off per deployment. The minimal rule: a candidate must
// not end in a preposition or conjunction.
func (r *Resolver) stageGrammar(s *scan) *Decision {
	if !r.cfg.GrammarCheck {
		return nil
	}
	last := s.words[len(s.words)-1]
	switch r.analyzer.Analyze(last, r.cfg.Language).Tag {
	case morph.TagPreposition, morph.TagConjunction:
		return &Decision{Allowed: false, Reason: fmt.Sprintf("candidate ends with function word %q", last)}
	}
	return nil
}

// blockForeign is the shared rule for the abbreviation, region and
// country stages: any entry whose country differs from target blocks.
func (r *Resolver) blockForeign(s *scan, dict map[string]string, what string, kind geodict.Kind) *Decision {
	for _, it := range s.items {
		if country, ok := dict[it]; ok && country != s.target {
			return &Decision{Allowed: false, Reason: fmt.Sprintf("%s %q belongs to %s", what, it, country), Kind: kind}
		}
	}
	return nil
}

func allInSeed(cities, seed map[string]struct{}) bool {
	for c := range cities {
		if _, ok := seed[c]; !ok {
			return false
		}
	}
	return true
}
