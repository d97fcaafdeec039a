package signals

import (
	"strings"

	"github.com/adscope/suggest-triage/internal/model"
)

// checkCoherence verifies that a multi-word tail with at least one
// positive hit is explained end to end. A single recognized word must
// not launder an otherwise unrelated phrase: every content word the
// detectors did not claim has to belong to a known lexical category or
// be a geo or brand hit itself. Anything left over earns a negative
// signal.
func (c *Classifier) checkCoherence(p *probe, positive []model.Signal) (model.Signal, bool) {
	if len(positive) == 0 || len(p.words) < 2 {
		return model.Signal{}, false
	}

	var leftover []string
	for i := range p.words {
		if p.explained[i] || !p.tags[i].Content() {
			continue
		}
		if c.lex.explains(p.words[i], p.lemmas[i]) {
			continue
		}
		if c.isGeoOrBrand(p, i) {
			continue
		}
		leftover = append(leftover, p.words[i])
	}
	if len(leftover) == 0 {
		return model.Signal{}, false
	}
	return model.Signal{
		Name:     "incoherent_tail",
		Weight:   0.7,
		Polarity: model.PolarityNegative,
		Detail:   detail("unexplained words: %s", strings.Join(leftover, ", ")),
	}, true
}

func (c *Classifier) isGeoOrBrand(p *probe, i int) bool {
	for _, form := range [2]string{p.words[i], p.lemmas[i]} {
		if _, ok := c.dict.CityCountry(form); ok {
			return true
		}
		if _, ok := c.dict.Districts[form]; ok {
			return true
		}
	}
	return c.lex.has(c.lex.Brands, p.words[i], p.lemmas[i])
}
