package georesolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adscope/suggest-triage/internal/geodict"
	"github.com/adscope/suggest-triage/internal/morph"
)

func testDict() *geodict.Dictionaries {
	return &geodict.Dictionaries{
		Cities: map[string]string{
			"минск":     "by",
			"ждановичи": "by",
			"киев":      "ua",
			"днепр":     "ua",
			"варшава":   "pl",
		},
		Abbrevs: map[string]string{
			"спб": "ru",
		},
		Regions: map[string]string{
			"минская область": "by",
		},
		Countries: map[string]string{
			"беларусь": "by",
			"польша":   "pl",
			"украина":  "ua",
		},
		Districts: map[string]string{
			"оболонь": "ua",
		},
		SmallCities: map[string]string{
			"славное": geodict.CountryUnknown,
			"марьина": "by",
		},
		Forbidden: map[string]struct{}{
			"спорный": {},
		},
		IgnoreNouns: map[string]struct{}{
			"ремонт": {},
		},
	}
}

func newTestResolver(cfg Config) *Resolver {
	cfg.Language = "ru"
	return NewResolver(testDict(), morph.NewRuleAnalyzer(), cfg)
}

func TestStageOrder(t *testing.T) {
	r := newTestResolver(Config{})
	assert.Equal(t,
		[]string{"forbidden", "district", "abbreviation", "region", "country", "small_city", "city", "grammar"},
		r.StageNames(),
	)
}

func TestResolve_ForeignCityBlocks(t *testing.T) {
	r := newTestResolver(Config{})

	d := r.Resolve("ремонт пылесосов ждановичи", "ua", nil)
	assert.False(t, d.Allowed)
	assert.Equal(t, "city", d.Category)
	assert.Contains(t, d.Reason, "ждановичи")
	assert.Contains(t, d.Reason, "by")
}

func TestResolve_ForeignCityInSeedStillBlocks(t *testing.T) {
	// Regression guard: a foreign city is never grandfathered in merely
	// because it also appears in the seed string. The seed city set by
	// construction only holds target-country entities, but even a
	// poisoned set must not rescue the foreign mention.
	r := newTestResolver(Config{})

	poisoned := map[string]struct{}{"минск": {}}
	d := r.Resolve("ремонт пылесосов минск", "ua", poisoned)
	assert.False(t, d.Allowed)
	assert.Equal(t, "city", d.Category)
}

func TestResolve_TargetCityAllowed(t *testing.T) {
	r := newTestResolver(Config{})

	d := r.Resolve("ремонт пылесосов минск", "by", nil)
	assert.True(t, d.Allowed)
}

func TestResolve_ForbiddenBeatsEverything(t *testing.T) {
	r := newTestResolver(Config{})

	d := r.Resolve("минск спорный", "by", map[string]struct{}{"минск": {}})
	assert.False(t, d.Allowed)
	assert.Equal(t, "forbidden", d.Category)
}

func TestResolve_DistrictRules(t *testing.T) {
	r := newTestResolver(Config{})

	// Target-country district with a seed city of that country: allowed.
	d := r.Resolve("шиномонтаж оболонь", "ua", map[string]struct{}{"киев": {}})
	assert.True(t, d.Allowed, d.Reason)

	// Same district without any seed city: blocked.
	d = r.Resolve("шиномонтаж оболонь", "ua", nil)
	assert.False(t, d.Allowed)
	assert.Equal(t, "district", d.Category)

	// District of another country blocks even with seed cities present.
	d = r.Resolve("шиномонтаж оболонь", "by", map[string]struct{}{"минск": {}})
	assert.False(t, d.Allowed)
	assert.Equal(t, "district", d.Category)
}

func TestResolve_AbbreviationBlocks(t *testing.T) {
	r := newTestResolver(Config{})

	d := r.Resolve("доставка спб", "by", nil)
	assert.False(t, d.Allowed)
	assert.Equal(t, "abbreviation", d.Category)
}

func TestResolve_RegionBigram(t *testing.T) {
	r := newTestResolver(Config{})

	d := r.Resolve("дача минская область", "ua", nil)
	assert.False(t, d.Allowed)
	assert.Equal(t, "region", d.Category)
}

func TestResolve_ForeignCountryBlocks(t *testing.T) {
	r := newTestResolver(Config{})

	d := r.Resolve("виза польша", "by", nil)
	assert.False(t, d.Allowed)
	assert.Equal(t, "country", d.Category)
}

func TestResolve_SmallCityUnknownAlwaysBlocks(t *testing.T) {
	r := newTestResolver(Config{})

	for _, target := range []string{"by", "ua", "zz"} {
		d := r.Resolve("экскурсия славное", target, nil)
		assert.False(t, d.Allowed, "target %s", target)
		assert.Equal(t, "small_city", d.Category)
	}
}

func TestResolve_TwoTargetCitiesBlock(t *testing.T) {
	r := newTestResolver(Config{})

	d := r.Resolve("днепр в киеве", "ua", nil)
	assert.False(t, d.Allowed)
	assert.Equal(t, "city", d.Category)
	assert.Contains(t, d.Reason, "distinct cities")
}

func TestResolve_SeedCityPairAllowance(t *testing.T) {
	r := newTestResolver(Config{AllowSeedCityPairs: true})

	seed := map[string]struct{}{"днепр": {}, "киев": {}}
	d := r.Resolve("днепр киев перевозки", "ua", seed)
	assert.True(t, d.Allowed, d.Reason)

	// One of the pair outside the seed set: still blocked.
	d = r.Resolve("днепр киев перевозки", "ua", map[string]struct{}{"днепр": {}})
	assert.False(t, d.Allowed)
}

func TestResolve_IgnoreNounNeverGeo(t *testing.T) {
	r := newTestResolver(Config{})
	// "ремонт" is shadowed in the dictionary set deliberately.
	r.dict.Cities["ремонт"] = "pl"

	d := r.Resolve("ремонт пылесосов", "by", nil)
	assert.True(t, d.Allowed)
}

func TestResolve_GrammarCheckFlag(t *testing.T) {
	on := newTestResolver(Config{GrammarCheck: true})
	off := newTestResolver(Config{})

	d := on.Resolve("ремонт пылесосов в", "by", nil)
	assert.False(t, d.Allowed)
	assert.Equal(t, "grammar", d.Category)

	d = off.Resolve("ремонт пылесосов в", "by", nil)
	assert.True(t, d.Allowed)
}

func TestResolve_EmptyCandidate(t *testing.T) {
	r := newTestResolver(Config{})
	d := r.Resolve("   ", "by", nil)
	assert.True(t, d.Allowed)
}

func TestResolve_DecisionKind(t *testing.T) {
	r := newTestResolver(Config{GrammarCheck: true})

	cases := []struct {
		candidate string
		target    string
		kind      geodict.Kind
	}{
		{"минск спорный", "by", geodict.KindForbidden},
		{"шиномонтаж оболонь", "ua", geodict.KindDistrict},
		{"доставка спб", "by", geodict.KindAbbreviation},
		{"дома минская область", "ua", geodict.KindRegion},
		{"туры польша", "by", geodict.KindCountry},
		{"экскурсия славное", "by", geodict.KindSmallCity},
		{"ремонт пылесосов ждановичи", "ua", geodict.KindCity},
	}
	for _, tc := range cases {
		d := r.Resolve(tc.candidate, tc.target, nil)
		assert.False(t, d.Allowed, tc.candidate)
		assert.Equal(t, tc.kind, d.Kind, tc.candidate)
	}

	// Grammar blocks and allowed decisions have no dictionary entity.
	d := r.Resolve("ремонт пылесосов в", "by", nil)
	assert.False(t, d.Allowed)
	assert.Equal(t, geodict.Kind(""), d.Kind)

	d = r.Resolve("ремонт пылесосов минск", "by", nil)
	assert.True(t, d.Allowed)
	assert.Equal(t, geodict.Kind(""), d.Kind)
}
