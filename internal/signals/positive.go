package signals

import (
	"strings"

	"github.com/adscope/suggest-triage/internal/model"
	"github.com/adscope/suggest-triage/internal/morph"
	"github.com/adscope/suggest-triage/internal/textnorm"
)

// positiveDetectors returns the positive battery in its fixed order.
// Weights encode how dictionary-grounded a detector is: direct lookups
// against curated dictionaries sit near 1.0, purely grammatical
// heuristics near 0.5.
func (c *Classifier) positiveDetectors() []Detector {
	return []Detector{
		{Name: "geo_entity", Weight: 1.0, Polarity: model.PolarityPositive, Fire: c.fireGeoEntity},
		{Name: "brand", Weight: 0.95, Polarity: model.PolarityPositive, Fire: c.fireBrand},
		{Name: "marketplace", Weight: 0.9, Polarity: model.PolarityPositive, Fire: c.fireMarketplace},
		{Name: "verb_modifier", Weight: 0.85, Polarity: model.PolarityPositive, Fire: c.fireVerbModifier},
		{Name: "commerce", Weight: 0.8, Polarity: model.PolarityPositive, Fire: c.fireCommerce},
		{Name: "conjunction", Weight: 0.8, Polarity: model.PolarityPositive, Fire: c.fireConjunction},
		{Name: "reputation", Weight: 0.75, Polarity: model.PolarityPositive, Fire: c.fireReputation},
		{Name: "nearby", Weight: 0.7, Polarity: model.PolarityPositive, Fire: c.fireNearby},
		{Name: "action", Weight: 0.7, Polarity: model.PolarityPositive, Fire: c.fireAction},
		{Name: "contact", Weight: 0.7, Polarity: model.PolarityPositive, Fire: c.fireContact},
		{Name: "urgency", Weight: 0.65, Polarity: model.PolarityPositive, Fire: c.fireUrgency},
		{Name: "type_agreement", Weight: 0.6, Polarity: model.PolarityPositive, Fire: c.fireTypeAgreement},
	}
}

func (c *Classifier) fireGeoEntity(p *probe) (string, bool) {
	i, form, ok := c.geoEntity(p)
	if !ok {
		return "", false
	}
	p.explain(i)
	return detail("geo entity %q", form), true
}

func (c *Classifier) fireBrand(p *probe) (string, bool) {
	return c.fireLexical(p, c.lex.Brands, "brand")
}

func (c *Classifier) fireMarketplace(p *probe) (string, bool) {
	return c.fireLexical(p, c.lex.Marketplaces, "marketplace")
}

// fireVerbModifier matches a single-adverb tail against a verb in the
// seed ("срочно" after "вызвать сантехника").
func (c *Classifier) fireVerbModifier(p *probe) (string, bool) {
	if len(p.words) != 1 || len(p.seedVerbs) == 0 {
		return "", false
	}
	if p.tags[0] != morph.TagAdverb {
		return "", false
	}
	p.explain(0)
	return detail("adverb %q modifies seed verb %q", p.words[0], p.seedVerbs[0]), true
}

// fireCommerce matches commerce-intent lemmas and the number-plus-unit
// pattern of technical specs ("12 вольт", "2 квт").
func (c *Classifier) fireCommerce(p *probe) (string, bool) {
	for i := range p.words {
		if c.lex.has(c.lex.Commerce, p.words[i], p.lemmas[i]) {
			p.explain(i)
			return detail("commerce word %q", p.words[i]), true
		}
	}
	for i := 0; i+1 < len(p.words); i++ {
		if textnorm.IsNumeric(p.words[i]) && c.lex.has(c.lex.Units, p.words[i+1], p.lemmas[i+1]) {
			p.explain(i)
			p.explain(i + 1)
			return detail("technical spec %q %s", p.words[i], p.words[i+1]), true
		}
	}
	return "", false
}

// fireConjunction matches a tail that extends the seed with a
// coordinated content word ("и установка").
func (c *Classifier) fireConjunction(p *probe) (string, bool) {
	if len(p.words) < 2 || p.tags[0] != morph.TagConjunction {
		return "", false
	}
	if !p.tags[1].Content() {
		return "", false
	}
	p.explain(0)
	p.explain(1)
	return detail("coordinated extension %q", strings.Join(p.words[:2], " ")), true
}

func (c *Classifier) fireReputation(p *probe) (string, bool) {
	return c.fireLexical(p, c.lex.Reputation, "reputation word")
}

func (c *Classifier) fireNearby(p *probe) (string, bool) {
	return c.fireLexical(p, c.lex.Nearby, "location word")
}

func (c *Classifier) fireAction(p *probe) (string, bool) {
	return c.fireLexical(p, c.lex.Action, "action word")
}

func (c *Classifier) fireContact(p *probe) (string, bool) {
	return c.fireLexical(p, c.lex.Contact, "contact word")
}

func (c *Classifier) fireUrgency(p *probe) (string, bool) {
	return c.fireLexical(p, c.lex.Urgency, "urgency word")
}

// fireTypeAgreement matches an all-adjective tail against the seed's
// head noun ("недорогой" after "ремонт пылесосов").
func (c *Classifier) fireTypeAgreement(p *probe) (string, bool) {
	if p.seed.HeadNoun == "" || len(p.words) == 0 {
		return "", false
	}
	for _, tag := range p.tags {
		if tag != morph.TagAdjective && tag != morph.TagParticiple {
			return "", false
		}
	}
	for i := range p.words {
		p.explain(i)
	}
	return detail("adjective tail agrees with head noun %q", p.seed.HeadNoun), true
}

func (c *Classifier) fireLexical(p *probe, set map[string]struct{}, what string) (string, bool) {
	for i := range p.words {
		if c.lex.has(set, p.words[i], p.lemmas[i]) {
			p.explain(i)
			return detail("%s %q", what, p.words[i]), true
		}
	}
	return "", false
}
