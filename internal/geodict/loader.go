package geodict

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/adscope/suggest-triage/internal/textnorm"
)

// dictFile is the on-disk YAML layout of the dictionary bundle.
type dictFile struct {
	Cities      map[string]string `yaml:"cities"`
	Abbrevs     map[string]string `yaml:"abbreviations"`
	Regions     map[string]string `yaml:"regions"`
	Countries   map[string]string `yaml:"countries"`
	Districts   map[string]string `yaml:"districts"`
	SmallCities map[string]string `yaml:"small_cities"`
	Forbidden   []string          `yaml:"forbidden"`
	IgnoreNouns []string          `yaml:"ignore_nouns"`
}

// Load reads a dictionary bundle from a YAML file. Every key is
// re-normalized on load so hand-edited files cannot smuggle in
// unnormalized entries.
func Load(path string) (*Dictionaries, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geodict: read %s", path)
	}

	var f dictFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, eris.Wrapf(err, "geodict: parse %s", path)
	}

	d := &Dictionaries{
		Cities:      normalizeMap(f.Cities),
		Abbrevs:     normalizeMap(f.Abbrevs),
		Regions:     normalizeMap(f.Regions),
		Countries:   normalizeMap(f.Countries),
		Districts:   normalizeMap(f.Districts),
		SmallCities: normalizeMap(f.SmallCities),
		Forbidden:   normalizeSet(f.Forbidden),
		IgnoreNouns: normalizeSet(f.IgnoreNouns),
	}

	zap.L().Info("geodict: dictionaries loaded",
		zap.String("path", path),
		zap.Int("cities", len(d.Cities)),
		zap.Int("regions", len(d.Regions)),
		zap.Int("countries", len(d.Countries)),
		zap.Int("districts", len(d.Districts)),
		zap.Int("forbidden", len(d.Forbidden)),
	)
	return d, nil
}

func normalizeMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[textnorm.Normalize(k)] = textnorm.Normalize(v)
	}
	return out
}

func normalizeSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		out[textnorm.Normalize(it)] = struct{}{}
	}
	return out
}
