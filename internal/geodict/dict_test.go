package geodict

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adscope/suggest-triage/internal/morph"
)

func testDict() *Dictionaries {
	return &Dictionaries{
		Cities: map[string]string{
			"минск":      "by",
			"ждановичи":  "by",
			"киев":       "ua",
			"днепр":      "ua",
			"варшава":    "pl",
			"новый уренгой": "ru",
		},
		Districts: map[string]string{
			"оболонь": "ua",
		},
		IgnoreNouns: map[string]struct{}{
			"мир": {},
		},
	}
}

func TestSeedCities_TargetCountryOnly(t *testing.T) {
	d := testDict()

	// The seed mentions a Belarusian and a Ukrainian city; with target
	// "ua" only the Ukrainian one may enter the set.
	words := []string{"ремонт", "пылесосов", "киев", "минск"}
	lemmas := []string{"ремонт", "пылесос", "киев", "минск"}

	set := d.SeedCities(words, lemmas, "ua")
	assert.Contains(t, set, "киев")
	assert.NotContains(t, set, "минск", "foreign city must never be added to the seed set")
}

func TestSeedCities_Bigrams(t *testing.T) {
	d := testDict()
	words := []string{"такси", "новый", "уренгой"}
	lemmas := []string{"такси", "новый", "уренгой"}

	set := d.SeedCities(words, lemmas, "ru")
	assert.Contains(t, set, "новый уренгой")
}

func TestSeedCities_IgnoreNouns(t *testing.T) {
	d := testDict()
	d.Cities["мир"] = "by"

	set := d.SeedCities([]string{"мир"}, []string{"мир"}, "by")
	assert.Empty(t, set)
}

func TestSeedCitiesFor(t *testing.T) {
	d := testDict()
	set := d.SeedCitiesFor("Ремонт пылесосов Киев", "ru", "ua", morph.NewRuleAnalyzer())
	assert.Contains(t, set, "киев")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geo.yaml")
	content := `
cities:
  Минск: BY
  Киев: UA
regions:
  минская область: by
countries:
  беларусь: by
districts:
  оболонь: ua
small_cities:
  мир: zz
forbidden:
  - спорный город
ignore_nouns:
  - мир
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	d, err := Load(path)
	require.NoError(t, err)

	// Keys and values are normalized on load.
	assert.Equal(t, "by", d.Cities["минск"])
	assert.Equal(t, "ua", d.Cities["киев"])
	assert.Contains(t, d.Forbidden, "спорный город")
	assert.Contains(t, d.IgnoreNouns, "мир")
	assert.Equal(t, CountryUnknown, d.SmallCities["мир"])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/geo.yaml")
	assert.Error(t, err)
}
