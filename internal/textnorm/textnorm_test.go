package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "Ремонт Пылесосов", "ремонт пылесосов"},
		{"collapse whitespace", "  ремонт \t пылесосов\n", "ремонт пылесосов"},
		{"yo folding", "самолёт", "самолет"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	in := "Ремонт  Пылесосов, Минск!"
	once := Normalize(in)
	assert.Equal(t, once, Normalize(once))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t,
		[]string{"ремонт", "пылесосов", "санкт-петербург"},
		Tokenize("ремонт пылесосов, санкт-петербург!"),
	)
}

func TestBigramsTrigrams(t *testing.T) {
	words := []string{"а", "б", "в"}
	assert.Equal(t, []string{"а б", "б в"}, Bigrams(words, " "))
	assert.Equal(t, []string{"а-б", "б-в"}, Bigrams(words, "-"))
	assert.Equal(t, []string{"а б в"}, Trigrams(words, " "))
	assert.Nil(t, Bigrams([]string{"один"}, " "))
}

func TestScriptChecks(t *testing.T) {
	assert.True(t, IsCyrillic("минск"))
	assert.False(t, IsCyrillic("minsk"))
	assert.True(t, IsLatin("minsk"))
	assert.True(t, IsLatin("минскsale"))
	assert.True(t, IsNumeric("12"))
	assert.False(t, IsNumeric("12в"))
}
