package signals

import (
	"regexp"
	"unicode/utf8"

	"github.com/adscope/suggest-triage/internal/model"
	"github.com/adscope/suggest-triage/internal/morph"
	"github.com/adscope/suggest-triage/internal/textnorm"
)

var (
	emailRe = regexp.MustCompile(`\b[\w.+-]+@[\w-]+\.[\w.]+`)
	urlRe   = regexp.MustCompile(`(?:https?://|www\.)\S+|\b\w[\w-]*\.(?:com|ru|by|ua|net|org)\b`)
	phoneRe = regexp.MustCompile(`(?:\+?\d[\s()-]?){7,}`)
)

// hasTripleLetter reports three or more identical letters in a row,
// keyboard mash.
func hasTripleLetter(w string) bool {
	var prev rune
	run := 1
	for _, r := range w {
		if r == prev {
			run++
			if run >= 3 {
				return true
			}
		} else {
			prev, run = r, 1
		}
	}
	return false
}

// negativeDetectors returns the negative battery in its fixed order.
// Hard detectors (see arbitrate.go) describe defects no positive
// evidence can talk away.
func (c *Classifier) negativeDetectors() []Detector {
	return []Detector{
		{Name: "tech_garbage", Weight: 0.95, Polarity: model.PolarityNegative, Fire: c.fireTechGarbage},
		{Name: "mixed_alphabet", Weight: 0.9, Polarity: model.PolarityNegative, Fire: c.fireMixedAlphabet},
		{Name: "disallowed_marketplace", Weight: 0.9, Polarity: model.PolarityNegative, Fire: c.fireDisallowed},
		{Name: "duplicate_word", Weight: 0.85, Polarity: model.PolarityNegative, Fire: c.fireDuplicate},
		{Name: "meta_question", Weight: 0.85, Polarity: model.PolarityNegative, Fire: c.fireMetaQuestion},
		{Name: "brand_city_collision", Weight: 0.8, Polarity: model.PolarityNegative, Fire: c.fireBrandCityCollision},
		{Name: "broken_government", Weight: 0.75, Polarity: model.PolarityNegative, Fire: c.fireBrokenGovernment},
		{Name: "fragment", Weight: 0.7, Polarity: model.PolarityNegative, Fire: c.fireFragment},
		{Name: "noise", Weight: 0.7, Polarity: model.PolarityNegative, Fire: c.fireNoise},
		{Name: "seed_echo", Weight: 0.65, Polarity: model.PolarityNegative, Fire: c.fireSeedEcho},
		{Name: "orphan_number", Weight: 0.6, Polarity: model.PolarityNegative, Fire: c.fireOrphanNumber},
		{Name: "unrelated_number", Weight: 0.6, Polarity: model.PolarityNegative, Fire: c.fireUnrelatedNumber},
		{Name: "short_token", Weight: 0.5, Polarity: model.PolarityNegative, Fire: c.fireShortToken},
	}
}

// fireTechGarbage matches raw technical leakage: emails, URLs, phone
// numbers. Matched against the whole tail since tokenization splits
// these unpredictably.
func (c *Classifier) fireTechGarbage(p *probe) (string, bool) {
	for _, re := range []*regexp.Regexp{emailRe, urlRe, phoneRe} {
		if m := re.FindString(p.tail); m != "" {
			return detail("technical garbage %q", m), true
		}
	}
	return "", false
}

// fireMixedAlphabet matches a single token mixing Cyrillic and Latin
// letters, typical of homoglyph spam. Tokens that are entirely one
// script were already handled by the cross-script matcher upstream.
func (c *Classifier) fireMixedAlphabet(p *probe) (string, bool) {
	for _, w := range p.words {
		var cyr, lat bool
		for _, r := range w {
			switch {
			case r >= 'а' && r <= 'я' || r == 'ё':
				cyr = true
			case r >= 'a' && r <= 'z':
				lat = true
			}
		}
		if cyr && lat {
			return detail("mixed alphabet in %q", w), true
		}
	}
	return "", false
}

func (c *Classifier) fireDisallowed(p *probe) (string, bool) {
	for i := range p.words {
		if c.lex.has(c.lex.Disallowed, p.words[i], p.lemmas[i]) {
			return detail("disallowed marketplace %q", p.words[i]), true
		}
	}
	return "", false
}

// fireDuplicate matches adjacent repeated words, by surface form or by
// lemma ("ремонт ремонта").
func (c *Classifier) fireDuplicate(p *probe) (string, bool) {
	for i := 0; i+1 < len(p.words); i++ {
		if p.words[i] == p.words[i+1] || p.lemmas[i] == p.lemmas[i+1] {
			return detail("adjacent duplicate %q", p.words[i]), true
		}
	}
	return "", false
}

// fireMetaQuestion matches tails asking about the seed instead of
// refining it ("что это", "зачем").
func (c *Classifier) fireMetaQuestion(p *probe) (string, bool) {
	if len(p.words) == 0 {
		return "", false
	}
	if c.lex.has(c.lex.Meta, p.words[0], p.lemmas[0]) {
		return detail("meta question starting with %q", p.words[0]), true
	}
	return "", false
}

// fireBrandCityCollision matches a token that is simultaneously a known
// brand and a city name. Such tokens are ambiguous enough that neither
// reading can be trusted.
func (c *Classifier) fireBrandCityCollision(p *probe) (string, bool) {
	for i := range p.words {
		_, isCity := c.dict.CityCountry(p.words[i])
		if !isCity {
			_, isCity = c.dict.CityCountry(p.lemmas[i])
		}
		if isCity && c.lex.has(c.lex.Brands, p.words[i], p.lemmas[i]) {
			return detail("%q is both a brand and a city", p.words[i]), true
		}
	}
	return "", false
}

// fireBrokenGovernment matches a preposition governing something a
// preposition cannot govern: another function word, a verb infinitive,
// or a bare number with no unit.
func (c *Classifier) fireBrokenGovernment(p *probe) (string, bool) {
	for i := 0; i+1 < len(p.words); i++ {
		if !morph.IsPreposition(p.words[i]) {
			continue
		}
		next := p.tags[i+1]
		if next == morph.TagVerb || next.Function() {
			return detail("preposition %q governs %q", p.words[i], p.words[i+1]), true
		}
		if textnorm.IsNumeric(p.words[i+1]) && !c.numberHasUnit(p, i+1) {
			return detail("preposition %q governs bare number %q", p.words[i], p.words[i+1]), true
		}
	}
	return "", false
}

// fireFragment matches a dangling sentence fragment: the tail ends on a
// word that needs a continuation.
func (c *Classifier) fireFragment(p *probe) (string, bool) {
	if len(p.words) == 0 {
		return "", false
	}
	last := p.tags[len(p.words)-1]
	if last == morph.TagPreposition || last == morph.TagConjunction || last == morph.TagParticle {
		return detail("dangling %q", p.words[len(p.words)-1]), true
	}
	return "", false
}

func (c *Classifier) fireNoise(p *probe) (string, bool) {
	for i := range p.words {
		if c.lex.has(c.lex.NoiseWords, p.words[i], p.lemmas[i]) {
			return detail("noise word %q", p.words[i]), true
		}
		if hasTripleLetter(p.words[i]) {
			return detail("repeated letters in %q", p.words[i]), true
		}
	}
	return "", false
}

// fireSeedEcho matches a tail word that merely repeats a seed word by
// lemma. Exact-split extraction removes seed words, so an echo here is
// an inflected duplicate the suggestion engine produced.
func (c *Classifier) fireSeedEcho(p *probe) (string, bool) {
	for i := range p.words {
		if !p.tags[i].Content() {
			continue
		}
		if _, ok := p.seedLemmas[p.lemmas[i]]; ok {
			return detail("tail echoes seed word %q", p.words[i]), true
		}
	}
	return "", false
}

// fireOrphanNumber matches a tail that is nothing but a number the seed
// already contains.
func (c *Classifier) fireOrphanNumber(p *probe) (string, bool) {
	if len(p.words) != 1 || !textnorm.IsNumeric(p.words[0]) {
		return "", false
	}
	if _, ok := p.seedWords[p.words[0]]; ok {
		return detail("orphaned seed number %q", p.words[0]), true
	}
	return "", false
}

// fireUnrelatedNumber matches a numeric token with no adjacent unit and
// no ancestry in the seed.
func (c *Classifier) fireUnrelatedNumber(p *probe) (string, bool) {
	for i := range p.words {
		if !textnorm.IsNumeric(p.words[i]) {
			continue
		}
		if _, ok := p.seedWords[p.words[i]]; ok {
			continue
		}
		if c.numberHasUnit(p, i) {
			continue
		}
		return detail("number %q unrelated to seed", p.words[i]), true
	}
	return "", false
}

// fireShortToken matches a single-token tail too short to mean
// anything, digits excepted.
func (c *Classifier) fireShortToken(p *probe) (string, bool) {
	if len(p.words) != 1 {
		return "", false
	}
	w := p.words[0]
	if utf8.RuneCountInString(w) <= 2 && !textnorm.IsNumeric(w) && !morph.IsPreposition(w) {
		return detail("token %q too short", w), true
	}
	return "", false
}

// numberHasUnit reports whether the numeric token at index i is
// followed or preceded by a known measurement unit.
func (c *Classifier) numberHasUnit(p *probe, i int) bool {
	if i+1 < len(p.words) && c.lex.has(c.lex.Units, p.words[i+1], p.lemmas[i+1]) {
		return true
	}
	return i > 0 && c.lex.has(c.lex.Units, p.words[i-1], p.lemmas[i-1])
}
