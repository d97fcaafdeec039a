package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adscope/suggest-triage/internal/geodict"
	"github.com/adscope/suggest-triage/internal/model"
	"github.com/adscope/suggest-triage/internal/morph"
)

func newTestClassifier() *Classifier {
	dict := &geodict.Dictionaries{
		Cities: map[string]string{
			"минск": "by",
			"киев":  "ua",
			"dyson": "pl", // manufactured brand/city collision
		},
		Districts: map[string]string{},
		Abbrevs:   map[string]string{},
	}
	return NewClassifier(DefaultLexicon(), dict, morph.NewRuleAnalyzer(), "ru")
}

func seedFor(text string, words ...string) *model.Seed {
	s := &model.Seed{Text: text, Language: "ru", Country: "by", Words: words}
	a := morph.NewRuleAnalyzer()
	for _, w := range words {
		s.Lemmas = append(s.Lemmas, a.Analyze(w, "ru").Lemma)
		if s.HeadNoun == "" && a.Analyze(w, "ru").Tag == morph.TagNoun {
			s.HeadNoun = w
		}
	}
	return s
}

func TestClassify_EmptyTailIsValid(t *testing.T) {
	c := newTestClassifier()
	v := c.Classify("", seedFor("ремонт пылесосов", "ремонт", "пылесосов"), "by")
	assert.Equal(t, model.LabelValid, v.Label)
	assert.InDelta(t, 0.97, v.Confidence, 1e-9)
}

func TestClassify_TechnicalSpecIsValid(t *testing.T) {
	c := newTestClassifier()
	seed := seedFor("аккумулятор на скутер", "аккумулятор", "на", "скутер")

	v := c.Classify("12 вольт", seed, "by")
	assert.Equal(t, model.LabelValid, v.Label)
	assert.GreaterOrEqual(t, v.Confidence, 0.85)
	assert.Contains(t, v.SignalNames(model.PolarityPositive), "commerce")
	assert.Empty(t, v.Negative)
}

func TestClassify_CommerceWordIsValid(t *testing.T) {
	c := newTestClassifier()
	v := c.Classify("недорого", seedFor("ремонт пылесосов", "ремонт", "пылесосов"), "by")
	assert.Equal(t, model.LabelValid, v.Label)
	assert.Contains(t, v.SignalNames(model.PolarityPositive), "commerce")
}

func TestClassify_VerbModifier(t *testing.T) {
	c := newTestClassifier()
	seed := seedFor("купить пылесос", "купить", "пылесос")

	v := c.Classify("срочно", seed, "by")
	assert.Equal(t, model.LabelValid, v.Label)
	assert.Contains(t, v.SignalNames(model.PolarityPositive), "verb_modifier")
}

func TestClassify_MetaQuestionIsTrash(t *testing.T) {
	c := newTestClassifier()
	v := c.Classify("что это", seedFor("ремонт пылесосов", "ремонт", "пылесосов"), "by")
	assert.Equal(t, model.LabelTrash, v.Label)
	assert.Contains(t, v.SignalNames(model.PolarityNegative), "meta_question")
}

func TestClassify_TechGarbageIsTrash(t *testing.T) {
	c := newTestClassifier()
	seed := seedFor("ремонт пылесосов", "ремонт", "пылесосов")

	for _, tail := range []string{"site.com", "info@mail.ru", "+375 29 123 45 67"} {
		v := c.Classify(tail, seed, "by")
		assert.Equal(t, model.LabelTrash, v.Label, tail)
		assert.Contains(t, v.SignalNames(model.PolarityNegative), "tech_garbage", tail)
	}
}

func TestClassify_MixedAlphabetIsTrash(t *testing.T) {
	c := newTestClassifier()
	v := c.Classify("пылеcoc", seedFor("ремонт пылесосов", "ремонт", "пылесосов"), "by")
	assert.Equal(t, model.LabelTrash, v.Label)
	assert.Contains(t, v.SignalNames(model.PolarityNegative), "mixed_alphabet")
}

func TestClassify_HardNegativeBeatsSoftPositive(t *testing.T) {
	c := newTestClassifier()
	v := c.Classify("купить авито", seedFor("ремонт пылесосов", "ремонт", "пылесосов"), "by")
	require.Equal(t, model.LabelTrash, v.Label)
	assert.Contains(t, v.SignalNames(model.PolarityNegative), "disallowed_marketplace")
	assert.Contains(t, v.Reason, "disallowed_marketplace")
}

func TestClassify_GroundedPositiveBeatsSoftNegative(t *testing.T) {
	c := newTestClassifier()
	seed := seedFor("ремонт пылесосов", "ремонт", "пылесосов")

	// geo hit plus a seed echo: dictionary evidence wins, confidence
	// reduced relative to an uncontested verdict.
	v := c.Classify("минск ремонт", seed, "by")
	assert.Equal(t, model.LabelValid, v.Label)
	assert.Contains(t, v.SignalNames(model.PolarityPositive), "geo_entity")
	assert.Contains(t, v.SignalNames(model.PolarityNegative), "seed_echo")
	assert.Less(t, v.Confidence, 0.9)
}

func TestClassify_UnknownWordIsGrey(t *testing.T) {
	c := newTestClassifier()
	v := c.Classify("щербет", seedFor("аккумулятор на скутер", "аккумулятор", "на", "скутер"), "by")
	assert.Equal(t, model.LabelGrey, v.Label)
	assert.Empty(t, v.Positive)
	assert.Empty(t, v.Negative)
}

func TestClassify_CoherenceCheck(t *testing.T) {
	c := newTestClassifier()
	seed := seedFor("ремонт пылесосов", "ремонт", "пылесосов")

	// one recognized commerce word must not launder the unknown noun
	v := c.Classify("купить щербет", seed, "by")
	assert.Contains(t, v.SignalNames(model.PolarityNegative), "incoherent_tail")
	assert.NotEqual(t, model.LabelValid, v.Label)
}

func TestClassify_FragmentIsTrash(t *testing.T) {
	c := newTestClassifier()
	v := c.Classify("запчасти для", seedFor("ремонт пылесосов", "ремонт", "пылесосов"), "by")
	assert.Contains(t, v.SignalNames(model.PolarityNegative), "fragment")
}

func TestClassify_DuplicateWordIsTrash(t *testing.T) {
	c := newTestClassifier()
	v := c.Classify("шланг шланг", seedFor("ремонт пылесосов", "ремонт", "пылесосов"), "by")
	assert.Equal(t, model.LabelTrash, v.Label)
	assert.Contains(t, v.SignalNames(model.PolarityNegative), "duplicate_word")
}

func TestClassify_BrandCityCollision(t *testing.T) {
	c := newTestClassifier()
	v := c.Classify("dyson", seedFor("ремонт пылесосов", "ремонт", "пылесосов"), "by")
	assert.Contains(t, v.SignalNames(model.PolarityNegative), "brand_city_collision")
}

func TestArbitrate_NearParityIsGrey(t *testing.T) {
	c := newTestClassifier()
	v := c.arbitrate(model.Verdict{
		Stage: StageName,
		Positive: []model.Signal{
			{Name: "urgency", Weight: 0.65, Polarity: model.PolarityPositive},
		},
		Negative: []model.Signal{
			{Name: "seed_echo", Weight: 0.65, Polarity: model.PolarityNegative},
		},
	})
	assert.Equal(t, model.LabelGrey, v.Label)
	assert.Equal(t, "signals near parity", v.Reason)
}

func TestArbitrate_HardNegativeContestedDefersToGrey(t *testing.T) {
	c := newTestClassifier()
	v := c.arbitrate(model.Verdict{
		Stage: StageName,
		Positive: []model.Signal{
			{Name: "commerce", Weight: 0.8, Polarity: model.PolarityPositive},
			{Name: "reputation", Weight: 0.75, Polarity: model.PolarityPositive},
		},
		Negative: []model.Signal{
			{Name: "duplicate_word", Weight: 0.85, Polarity: model.PolarityNegative},
		},
	})
	assert.Equal(t, model.LabelGrey, v.Label)
}

func TestDetectorBatteries(t *testing.T) {
	c := newTestClassifier()
	assert.Len(t, c.DetectorNames(model.PolarityPositive), 12)
	assert.Len(t, c.DetectorNames(model.PolarityNegative), 13)
}
