package signals

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/adscope/suggest-triage/internal/textnorm"
)

// Lexicon holds the lemma sets the detectors match against. The
// built-in defaults cover the Russian-language ad vertical the system
// ships for; a YAML file can replace any individual set.
type Lexicon struct {
	Commerce     map[string]struct{}
	Units        map[string]struct{}
	Reputation   map[string]struct{}
	Nearby       map[string]struct{}
	Action       map[string]struct{}
	Urgency      map[string]struct{}
	Contact      map[string]struct{}
	Meta         map[string]struct{}
	Brands       map[string]struct{}
	Marketplaces map[string]struct{}
	Disallowed   map[string]struct{}
	NoiseWords   map[string]struct{}
}

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[textnorm.Normalize(w)] = struct{}{}
	}
	return m
}

// DefaultLexicon returns the built-in lemma sets.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		Commerce: wordSet(
			"купить", "цена", "стоимость", "недорого", "дешево", "заказать",
			"продажа", "прайс", "акция", "скидка", "рассрочка", "кредит",
			"опт", "розница", "аренда", "прокат", "бу",
		),
		Units: wordSet(
			"вольт", "ватт", "ампер", "литр", "метр", "миллиметр", "сантиметр",
			"килограмм", "грамм", "дюйм", "час", "кв", "квт",
		),
		Reputation: wordSet(
			"отзывы", "отзыв", "рейтинг", "лучший", "топ", "проверенный",
			"надежный", "официальный", "сравнение", "форум",
		),
		Nearby: wordSet(
			"рядом", "недалеко", "поблизости", "близко", "район",
			"метро", "адреса",
		),
		Action: wordSet(
			"установить", "подключить", "настроить", "заменить", "починить",
			"почистить", "разобрать", "собрать", "выбрать", "проверить",
			"сделать", "поменять", "снять",
		),
		Urgency: wordSet(
			"срочно", "сегодня", "сейчас", "быстро", "круглосуточно",
			"выходные", "ночью",
		),
		Contact: wordSet(
			"телефон", "контакты", "адрес", "сайт", "вайбер", "телеграм",
			"график", "режим",
		),
		Meta: wordSet(
			"что", "зачем", "почему", "откуда", "чей", "значит", "означает",
		),
		Brands: wordSet(
			"samsung", "bosch", "lg", "philips", "dyson", "karcher",
			"electrolux", "xiaomi", "makita", "stihl",
		),
		Marketplaces: wordSet(
			"olx", "prom", "rozetka", "deal", "kufar",
		),
		Disallowed: wordSet(
			"aliexpress", "алиэкспресс", "joom", "авито", "юла", "wildberries",
		),
		NoiseWords: wordSet(
			"ыыы", "ааа", "фыва", "qwerty", "asdf", "ололо",
		),
	}
}

type lexiconFile struct {
	Commerce     []string `yaml:"commerce"`
	Units        []string `yaml:"units"`
	Reputation   []string `yaml:"reputation"`
	Nearby       []string `yaml:"nearby"`
	Action       []string `yaml:"action"`
	Urgency      []string `yaml:"urgency"`
	Contact      []string `yaml:"contact"`
	Meta         []string `yaml:"meta"`
	Brands       []string `yaml:"brands"`
	Marketplaces []string `yaml:"marketplaces"`
	Disallowed   []string `yaml:"disallowed"`
	NoiseWords   []string `yaml:"noise_words"`
}

// LoadLexicon reads a YAML lexicon and overlays it on the defaults.
// Only sets present in the file are replaced.
func LoadLexicon(path string) (*Lexicon, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "signals: read lexicon %s", path)
	}
	var f lexiconFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, eris.Wrapf(err, "signals: parse lexicon %s", path)
	}

	lex := DefaultLexicon()
	overlay := func(dst *map[string]struct{}, words []string) {
		if len(words) > 0 {
			*dst = wordSet(words...)
		}
	}
	overlay(&lex.Commerce, f.Commerce)
	overlay(&lex.Units, f.Units)
	overlay(&lex.Reputation, f.Reputation)
	overlay(&lex.Nearby, f.Nearby)
	overlay(&lex.Action, f.Action)
	overlay(&lex.Urgency, f.Urgency)
	overlay(&lex.Contact, f.Contact)
	overlay(&lex.Meta, f.Meta)
	overlay(&lex.Brands, f.Brands)
	overlay(&lex.Marketplaces, f.Marketplaces)
	overlay(&lex.Disallowed, f.Disallowed)
	overlay(&lex.NoiseWords, f.NoiseWords)
	return lex, nil
}

func (l *Lexicon) has(set map[string]struct{}, word, lemma string) bool {
	if _, ok := set[word]; ok {
		return true
	}
	_, ok := set[lemma]
	return ok
}

// explains reports whether a content word belongs to any lexical
// category the classifier understands. Used by the coherence check.
func (l *Lexicon) explains(word, lemma string) bool {
	for _, set := range []map[string]struct{}{
		l.Commerce, l.Units, l.Reputation, l.Nearby, l.Action,
		l.Urgency, l.Contact, l.Brands, l.Marketplaces,
	} {
		if l.has(set, word, lemma) {
			return true
		}
	}
	return false
}
