package tail

import (
	"strings"

	"github.com/adscope/suggest-triage/internal/textnorm"
)

// translitForms lists the accepted Latin renderings of each Cyrillic
// letter. Autocomplete surfaces are loose about romanization, so the
// bridge accepts the common variants, not just one scheme.
var translitForms = map[rune][]string{
	'а': {"a"},
	'б': {"b"},
	'в': {"v", "w"},
	'г': {"g"},
	'д': {"d"},
	'е': {"e", "ye"},
	'ж': {"zh", "j"},
	'з': {"z"},
	'и': {"i"},
	'й': {"i", "y", "j"},
	'к': {"k", "c"},
	'л': {"l"},
	'м': {"m"},
	'н': {"n"},
	'о': {"o"},
	'п': {"p"},
	'р': {"r"},
	'с': {"s"},
	'т': {"t"},
	'у': {"u"},
	'ф': {"f", "ph"},
	'х': {"h", "kh", "x"},
	'ц': {"ts", "c", "tz"},
	'ч': {"ch"},
	'ш': {"sh"},
	'щ': {"shch", "sch"},
	'ъ': {""},
	'ы': {"y", "i"},
	'ь': {"", "'"},
	'э': {"e"},
	'ю': {"yu", "iu", "u"},
	'я': {"ya", "ia", "a"},
}

// bridgeMatch reports whether one token is a Latin transliteration of
// the other. Exactly one side must be Cyrillic; otherwise there is
// nothing to bridge.
func bridgeMatch(a, b string) bool {
	switch {
	case textnorm.IsCyrillic(a) && !textnorm.IsCyrillic(b):
		return translitEqual(a, b)
	case textnorm.IsCyrillic(b) && !textnorm.IsCyrillic(a):
		return translitEqual(b, a)
	}
	return false
}

// translitEqual checks whether lat can be produced from cyr by picking
// one accepted rendering per letter. Tokens are short, so the
// backtracking walk is cheap.
func translitEqual(cyr, lat string) bool {
	return translitWalk([]rune(cyr), lat)
}

func translitWalk(cyr []rune, lat string) bool {
	if len(cyr) == 0 {
		return lat == ""
	}
	forms, ok := translitForms[cyr[0]]
	if !ok {
		// Digits and hyphens pass through unchanged.
		lit := string(cyr[0])
		if strings.HasPrefix(lat, lit) {
			return translitWalk(cyr[1:], lat[len(lit):])
		}
		return false
	}
	for _, f := range forms {
		if len(f) <= len(lat) && lat[:len(f)] == f {
			if translitWalk(cyr[1:], lat[len(f):]) {
				return true
			}
		}
	}
	return false
}
