package morph

import (
	"strings"

	"github.com/adscope/suggest-triage/internal/textnorm"
)

// Closed word classes. These lists double as the function-word
// inventory the tail extractor and the detectors consult.
var (
	prepositions = wordSet(
		"в", "во", "на", "с", "со", "по", "для", "из", "изо", "к", "ко",
		"от", "у", "о", "об", "обо", "за", "под", "над", "при", "про",
		"без", "до", "через", "между", "перед", "около", "возле", "после",
		"среди", "вдоль", "кроме", "ради", "сквозь",
	)
	conjunctions = wordSet(
		"и", "а", "но", "или", "либо", "что", "чтобы", "как", "когда",
		"если", "хотя", "пока", "также", "тоже", "зато", "причем",
	)
	particles = wordSet(
		"не", "ни", "же", "ж", "ли", "бы", "б", "вот", "вон", "уж",
		"ведь", "даже", "лишь", "только", "разве", "неужели",
	)
	interjections = wordSet(
		"ой", "ах", "ох", "эх", "ура", "увы", "ну",
	)
	pronouns = wordSet(
		"я", "ты", "он", "она", "оно", "мы", "вы", "они", "мой", "твой",
		"свой", "наш", "ваш", "его", "ее", "их", "кто", "где", "куда",
		"мне", "мной", "меня", "себя", "себе", "это", "этот", "эта",
		"тот", "та", "то", "все", "весь", "каждый", "сам", "какой",
		"который", "чей", "сколько",
	)
	numeralWords = wordSet(
		"один", "два", "три", "четыре", "пять", "шесть", "семь",
		"восемь", "девять", "десять", "сто", "тысяча", "первый",
		"второй", "третий",
	)
	adverbWords = wordSet(
		"быстро", "дешево", "дорого", "недорого", "срочно", "качественно",
		"бесплатно", "рядом", "недалеко", "далеко", "сегодня", "сейчас",
		"завтра", "всегда", "круглосуточно", "онлайн", "самостоятельно",
		"хорошо", "плохо", "долго", "много", "мало", "здесь", "там",
	)
)

// exceptions maps irregular forms straight to their analysis, bypassing
// the suffix rules.
var exceptions = map[string]Analysis{
	"люди":  {Lemma: "человек", Tag: TagNoun},
	"людей": {Lemma: "человек", Tag: TagNoun},
	"дети":  {Lemma: "ребенок", Tag: TagNoun},
	"детей": {Lemma: "ребенок", Tag: TagNoun},
	"лучше": {Lemma: "хороший", Tag: TagAdjective},
	"киеве": {Lemma: "киев", Tag: TagNoun},
	"днепре": {Lemma: "днепр", Tag: TagNoun},
}

// Ending tables, longest first. Order inside each table matters: the
// first ending that leaves a stem of at least minStem runes wins.
const minStem = 3

var adjectiveEndings = []string{
	"ейший", "айший",
	"ого", "его", "ому", "ему", "ыми", "ими", "ых", "их",
	"ый", "ий", "ой", "ая", "яя", "ое", "ее", "ые", "ие",
	"ым", "им", "ом", "ем", "ую", "юю",
}

var participleEndings = []string{
	"ущий", "ющий", "ащий", "ящий", "вший", "ший",
	"емый", "имый", "нный", "тый",
	"ущая", "ющая", "ащая", "ящая", "нная",
}

var verbEndings = []string{
	"овать", "евать", "ивать", "ывать",
	"ать", "ять", "еть", "ить", "нуть", "уть",
	"ает", "яет", "еет", "ит", "ут", "ют", "ат", "ят",
	"ал", "ял", "ил", "ел", "ла", "ли", "ло",
	"айте", "ите", "ай", "и",
}

var nounEndings = []string{
	"иями", "ями", "ами", "иях", "ях", "ах",
	"ией", "ою", "ею",
	"ов", "ев", "ей", "ий",
	"ам", "ям", "ом", "ем", "ой",
	"а", "я", "у", "ю", "е", "и", "ы", "о",
}

// RuleAnalyzer is the shipped heuristic analyzer for Cyrillic-script
// queries. It recognizes the closed classes exactly and guesses open
// classes from suffixes; anything else is returned as its own lemma
// with an unknown tag.
type RuleAnalyzer struct{}

// NewRuleAnalyzer returns a RuleAnalyzer.
func NewRuleAnalyzer() *RuleAnalyzer { return &RuleAnalyzer{} }

// Analyze implements Analyzer. The language code is accepted for
// interface compatibility; the rule tables cover ru/uk-style tokens and
// everything else falls through to the unknown tag.
func (r *RuleAnalyzer) Analyze(word, language string) Analysis {
	w := textnorm.Normalize(word)
	if w == "" {
		// Punctuation-only or empty input. Tokenizers never produce
		// these, but the no-empty-lemma contract still has to hold.
		if word == "" {
			word = "-"
		}
		return Analysis{Lemma: word, Tag: TagUnknown}
	}

	if a, ok := exceptions[w]; ok {
		return a
	}

	switch {
	case textnorm.IsNumeric(w):
		return Analysis{Lemma: w, Tag: TagNumeral}
	case prepositions[w]:
		return Analysis{Lemma: w, Tag: TagPreposition}
	case conjunctions[w]:
		return Analysis{Lemma: w, Tag: TagConjunction}
	case particles[w]:
		return Analysis{Lemma: w, Tag: TagParticle}
	case interjections[w]:
		return Analysis{Lemma: w, Tag: TagInterjection}
	case pronouns[w]:
		return Analysis{Lemma: w, Tag: TagPronoun}
	case numeralWords[w]:
		return Analysis{Lemma: w, Tag: TagNumeral}
	case adverbWords[w]:
		return Analysis{Lemma: w, Tag: TagAdverb}
	}

	if !textnorm.IsCyrillic(w) {
		// Latin tokens (brand names, transliterations) are left to the
		// cross-script machinery; morphology has nothing to say.
		return Analysis{Lemma: w, Tag: TagUnknown}
	}

	if stem, ok := stripEnding(w, participleEndings); ok {
		return Analysis{Lemma: stem, Tag: TagParticiple}
	}
	if stem, ok := stripEnding(w, adjectiveEndings); ok {
		return Analysis{Lemma: stem + "ый", Tag: TagAdjective}
	}
	if stem, ok := stripEnding(w, verbEndings); ok {
		return Analysis{Lemma: stem, Tag: TagVerb}
	}
	if stem, ok := stripEnding(w, nounEndings); ok {
		return Analysis{Lemma: stem, Tag: TagNoun}
	}

	// A bare Cyrillic stem with no recognizable ending is most probably
	// a masculine noun in the nominative; treating it as a noun keeps
	// content-word checks honest for words like "ремонт".
	return Analysis{Lemma: w, Tag: TagNoun}
}

// stripEnding removes the first matching ending that leaves a stem of
// at least minStem runes.
func stripEnding(w string, endings []string) (string, bool) {
	runes := []rune(w)
	for _, end := range endings {
		er := []rune(end)
		if len(runes)-len(er) < minStem {
			continue
		}
		if strings.HasSuffix(w, end) {
			return string(runes[:len(runes)-len(er)]), true
		}
	}
	return "", false
}

func wordSet(words ...string) map[string]bool {
	s := make(map[string]bool, len(words))
	for _, w := range words {
		s[w] = true
	}
	return s
}

// IsPreposition reports whether the normalized word is a preposition.
// Exposed because the tail extractor needs the check without a full
// analysis round-trip.
func IsPreposition(word string) bool { return prepositions[textnorm.Normalize(word)] }
