// Package georesolve implements the layered geo-conflict cascade: a
// fixed, ordered list of stages scanned first-match-wins over every
// word, lemma, bigram and trigram of a candidate. The ordering is
// load-bearing for explainability — the reason code always names the
// stage that fired.
package georesolve

import (
	"go.uber.org/zap"

	"github.com/adscope/suggest-triage/internal/geodict"
	"github.com/adscope/suggest-triage/internal/morph"
	"github.com/adscope/suggest-triage/internal/textnorm"
)

// Config holds the resolver's policy switches.
type Config struct {
	// GrammarCheck enables the residual grammar stage. The upstream
	// filter variants disagree on whether it should run, so it is a
	// flag rather than dropped logic.
	GrammarCheck bool `mapstructure:"grammar_check"`

	// AllowSeedCityPairs permits two or more target-country cities in
	// one candidate when every one of them is already in the seed city
	// set (metro-area seeds). When false, 2+ distinct target cities
	// always block.
	AllowSeedCityPairs bool `mapstructure:"allow_seed_city_pairs"`

	Language string `mapstructure:"language"`
}

// Decision is the outcome of the cascade.
type Decision struct {
	Allowed  bool   `json:"allowed"`
	Reason   string `json:"reason"`
	Category string `json:"category"`

	// Kind names the dictionary the deciding entity came from. Empty
	// on allowed decisions and on grammar blocks, which have no
	// dictionary entity behind them.
	Kind geodict.Kind `json:"kind,omitempty"`
}

// Resolver runs the cascade against one dictionary bundle.
type Resolver struct {
	dict     *geodict.Dictionaries
	analyzer morph.Analyzer
	cfg      Config
	stages   []stage
}

type stage struct {
	name string
	run  func(*scan) *Decision
}

// scan carries the per-candidate state every stage reads.
type scan struct {
	words      []string
	lemmas     []string
	items      []string
	target     string
	seedCities map[string]struct{}
}

// NewResolver builds a Resolver with the fixed stage order.
func NewResolver(dict *geodict.Dictionaries, analyzer morph.Analyzer, cfg Config) *Resolver {
	r := &Resolver{dict: dict, analyzer: analyzer, cfg: cfg}
	r.stages = []stage{
		{name: "forbidden", run: r.stageForbidden},
		{name: "district", run: r.stageDistricts},
		{name: "abbreviation", run: r.stageAbbreviations},
		{name: "region", run: r.stageRegions},
		{name: "country", run: r.stageCountries},
		{name: "small_city", run: r.stageSmallCities},
		{name: "city", run: r.stageCities},
		{name: "grammar", run: r.stageGrammar},
	}
	return r
}

// StageNames exposes the cascade order for tests and diagnostics.
func (r *Resolver) StageNames() []string {
	names := make([]string, len(r.stages))
	for i, s := range r.stages {
		names[i] = s.name
	}
	return names
}

// Resolve runs the cascade over the whole candidate string (not only
// the tail — a foreign city can appear anywhere). The first stage that
// returns a decision terminates the scan.
func (r *Resolver) Resolve(candidate, target string, seedCities map[string]struct{}) Decision {
	words := textnorm.Tokenize(textnorm.Normalize(candidate))
	if len(words) == 0 {
		// Nothing to object to.
		return Decision{Allowed: true, Reason: "empty candidate", Category: "none"}
	}

	lemmas := make([]string, len(words))
	for i, w := range words {
		lemmas[i] = r.analyzer.Analyze(w, r.cfg.Language).Lemma
	}

	s := &scan{
		words:      words,
		lemmas:     lemmas,
		items:      r.searchItems(words, lemmas),
		target:     target,
		seedCities: seedCities,
	}

	for _, st := range r.stages {
		if d := st.run(s); d != nil {
			d.Category = st.name
			if !d.Allowed {
				zap.L().Debug("georesolve: blocked",
					zap.String("candidate", candidate),
					zap.String("stage", st.name),
					zap.String("reason", d.Reason),
				)
			}
			return *d
		}
	}

	return Decision{Allowed: true, Reason: "no geo conflict", Category: "none"}
}

// searchItems builds the lookup item list: every word and lemma plus
// all bigrams and trigrams of both, space- and hyphen-joined. Items
// shorter than three runes and entries from the common-noun ignore
// list are filtered out.
func (r *Resolver) searchItems(words, lemmas []string) []string {
	seen := make(map[string]struct{})
	var items []string

	add := func(item string) {
		if len([]rune(item)) < 3 {
			return
		}
		if _, skip := r.dict.IgnoreNouns[item]; skip {
			return
		}
		if _, dup := seen[item]; dup {
			return
		}
		seen[item] = struct{}{}
		items = append(items, item)
	}

	for _, set := range [][]string{words, lemmas} {
		for _, w := range set {
			add(w)
		}
		for _, sep := range []string{" ", "-"} {
			for _, bg := range textnorm.Bigrams(set, sep) {
				add(bg)
			}
			for _, tg := range textnorm.Trigrams(set, sep) {
				add(tg)
			}
		}
	}
	return items
}
