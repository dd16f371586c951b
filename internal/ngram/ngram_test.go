package ngram

import (
	"reflect"
	"testing"
	"unicode/utf8"
)

func TestTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want []string
	}{
		{"empty", "", 2, nil},
		{"single rune", "あ", 2, nil},
		{"exact width", "ab", 2, []string{"ab"}},
		{"ascii", "abcd", 2, []string{"ab", "bc", "cd"}},
		{"japanese bigrams", "東京都", 2, []string{"東京", "京都"}},
		{"address", "新宿区", 2, []string{"新宿", "宿区"}},
		{"mixed width runes", "a東b", 2, []string{"a東", "東b"}},
		{"unigrams", "東京", 1, []string{"東", "京"}},
		{"trigrams", "東京都庁", 3, []string{"東京都", "京都庁"}},
		{"n longer than text", "東京", 3, nil},
		{"n zero", "東京都", 0, nil},
		{"n negative", "東京都", -1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokens(tt.text, tt.n)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokens(%q, %d) = %v, want %v", tt.text, tt.n, got, tt.want)
			}
		})
	}
}

// TestTokensLengthLaw checks that for any text and n >= 1 the token count is
// max(0, runeCount-n+1) and every token is exactly n runes long.
func TestTokensLengthLaw(t *testing.T) {
	texts := []string{
		"",
		"x",
		"東",
		"東京都千代田区丸の内一丁目",
		"ﾄｳｷｮｳﾄ",
		"1600022東京都新宿区新宿",
		"Hokkaido 北海道札幌市中央区",
	}
	for _, text := range texts {
		runeCount := utf8.RuneCountInString(text)
		for n := 1; n <= 4; n++ {
			tokens := Tokens(text, n)
			want := runeCount - n + 1
			if want < 0 {
				want = 0
			}
			if len(tokens) != want {
				t.Errorf("Tokens(%q, %d): got %d tokens, want %d", text, n, len(tokens), want)
			}
			for _, tok := range tokens {
				if utf8.RuneCountInString(tok) != n {
					t.Errorf("Tokens(%q, %d): token %q is not %d runes", text, n, tok, n)
				}
			}
		}
	}
}

func TestBigrams(t *testing.T) {
	got := Bigrams("大阪府大阪市")
	want := []string{"大阪", "阪府", "府大", "大阪", "阪市"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Bigrams = %v, want %v", got, want)
	}
}
