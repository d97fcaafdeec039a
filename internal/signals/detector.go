// Package signals detects what role a tail plays relative to its seed
// and arbitrates the detections into a verdict. Positive detectors
// argue the tail is a genuine refinement of the seed's intent, negative
// detectors argue it is noise; a fixed weighting hierarchy resolves
// conflicts deterministically.
package signals

import (
	"fmt"

	"github.com/adscope/suggest-triage/internal/geodict"
	"github.com/adscope/suggest-triage/internal/model"
	"github.com/adscope/suggest-triage/internal/morph"
	"github.com/adscope/suggest-triage/internal/textnorm"
)

// StageName identifies this stage in verdicts and outcome records.
const StageName = "signals"

// probe is the per-tail working state shared by all detectors. Words,
// lemmas and tags are index-aligned; explained marks words already
// accounted for by a positive detector so the coherence check does not
// flag them again.
type probe struct {
	seed   *model.Seed
	target string
	tail   string

	words     []string
	lemmas    []string
	tags      []morph.Tag
	explained []bool

	seedWords  map[string]struct{}
	seedLemmas map[string]struct{}
	seedVerbs  []string
}

func (p *probe) explain(i int) {
	if i >= 0 && i < len(p.explained) {
		p.explained[i] = true
	}
}

// Detector is one named check over a probe. Fire returns a detail
// string for the signal and whether the detector matched. Weight and
// polarity are fixed per detector.
type Detector struct {
	Name     string
	Weight   float64
	Polarity model.Polarity
	Fire     func(p *probe) (string, bool)
}

// Classifier runs the detector batteries and arbitrates their output.
type Classifier struct {
	lex      *Lexicon
	dict     *geodict.Dictionaries
	analyzer morph.Analyzer
	language string

	positive []Detector
	negative []Detector
}

// NewClassifier builds a classifier with the full detector batteries
// registered in their fixed order.
func NewClassifier(lex *Lexicon, dict *geodict.Dictionaries, analyzer morph.Analyzer, language string) *Classifier {
	c := &Classifier{
		lex:      lex,
		dict:     dict,
		analyzer: analyzer,
		language: language,
	}
	c.positive = c.positiveDetectors()
	c.negative = c.negativeDetectors()
	return c
}

// DetectorNames returns the registered detector names of one polarity,
// in execution order.
func (c *Classifier) DetectorNames(p model.Polarity) []string {
	src := c.positive
	if p == model.PolarityNegative {
		src = c.negative
	}
	names := make([]string, 0, len(src))
	for _, d := range src {
		names = append(names, d.Name)
	}
	return names
}

// Classify runs every detector over the tail and arbitrates. An empty
// tail means the candidate equals the seed and is valid outright.
func (c *Classifier) Classify(tail string, seed *model.Seed, target string) model.Verdict {
	tail = textnorm.Normalize(tail)
	if tail == "" {
		return model.Verdict{
			Stage:      StageName,
			Label:      model.LabelValid,
			Confidence: 0.97,
			Reason:     "empty tail, candidate equals seed",
		}
	}

	p := c.newProbe(tail, seed, target)
	v := model.Verdict{Stage: StageName}

	for _, d := range c.positive {
		if detail, ok := d.Fire(p); ok {
			v.Positive = append(v.Positive, model.Signal{
				Name: d.Name, Weight: d.Weight, Polarity: d.Polarity, Detail: detail,
			})
		}
	}
	for _, d := range c.negative {
		if detail, ok := d.Fire(p); ok {
			v.Negative = append(v.Negative, model.Signal{
				Name: d.Name, Weight: d.Weight, Polarity: d.Polarity, Detail: detail,
			})
		}
	}

	if s, ok := c.checkCoherence(p, v.Positive); ok {
		v.Negative = append(v.Negative, s)
	}

	return c.arbitrate(v)
}

func (c *Classifier) newProbe(tail string, seed *model.Seed, target string) *probe {
	words := textnorm.Tokenize(tail)
	p := &probe{
		seed:       seed,
		target:     target,
		tail:       tail,
		words:      words,
		lemmas:     make([]string, len(words)),
		tags:       make([]morph.Tag, len(words)),
		explained:  make([]bool, len(words)),
		seedWords:  make(map[string]struct{}, len(seed.Words)),
		seedLemmas: make(map[string]struct{}, len(seed.Lemmas)),
	}
	for i, w := range words {
		a := c.analyzer.Analyze(w, c.language)
		p.lemmas[i] = a.Lemma
		p.tags[i] = a.Tag
	}
	for _, w := range seed.Words {
		p.seedWords[w] = struct{}{}
	}
	for _, l := range seed.Lemmas {
		p.seedLemmas[l] = struct{}{}
	}
	for _, w := range seed.Words {
		if c.analyzer.Analyze(w, c.language).Tag == morph.TagVerb {
			p.seedVerbs = append(p.seedVerbs, w)
		}
	}
	return p
}

// geoEntity reports the first tail word that names a target-country geo
// entity. Foreign entities never reach this stage; the resolver blocks
// them earlier.
func (c *Classifier) geoEntity(p *probe) (int, string, bool) {
	for i := range p.words {
		for _, form := range [2]string{p.words[i], p.lemmas[i]} {
			if country, ok := c.dict.CityCountry(form); ok && country == p.target {
				return i, form, true
			}
			if country, ok := c.dict.Districts[form]; ok && country == p.target {
				return i, form, true
			}
			if country, ok := c.dict.Abbrevs[form]; ok && country == p.target {
				return i, form, true
			}
		}
	}
	return -1, "", false
}

func detail(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
