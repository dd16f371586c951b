// Package ngram produces overlapping fixed-width character n-grams via a
// sliding window. Tokenisation is rune-based, so multi-byte Japanese text is
// never split mid-character. No normalisation or case folding is applied:
// token equality is exact string equality.
package ngram

// Width is the gram width used by the address index. Two-character grams
// make substring search work for Japanese text, which has no whitespace
// word boundaries.
const Width = 2

// Tokens returns every contiguous n-rune substring of text, left to right.
// The result has max(0, runeCount(text)-n+1) entries; text shorter than n
// runes (including the empty string) yields nil, never an error.
func Tokens(text string, n int) []string {
	if n < 1 {
		return nil
	}
	runes := []rune(text)
	if len(runes) < n {
		return nil
	}
	tokens := make([]string, 0, len(runes)-n+1)
	for i := 0; i+n <= len(runes); i++ {
		tokens = append(tokens, string(runes[i:i+n]))
	}
	return tokens
}

// Bigrams is shorthand for Tokens(text, Width).
func Bigrams(text string) []string {
	return Tokens(text, Width)
}
