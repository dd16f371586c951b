package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/mkurosawa/addrsearch/internal/ngram"
)

var sampleTexts = map[string]string{
	"short":  "東京都新宿区",
	"medium": "北海道札幌市中央区北一条西二丁目さっぽろテレビ塔前ビルディング三階",
	"long": strings.Repeat(
		"神奈川県横浜市港北区新横浜二丁目ヨコハマグランドビジネスセンター", 20),
	"ascii_mixed": "東京都千代田区丸の内1丁目 Tokyo Station Marunouchi Bldg.",
}

func BenchmarkBigrams(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := ngram.Bigrams(text)
				_ = tokens
			}
		})
	}
}

func BenchmarkBigramsParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tokens := ngram.Bigrams(text)
			_ = tokens
		}
	})
}

func BenchmarkTokensWidths(b *testing.B) {
	text := sampleTexts["medium"]
	for _, n := range []int{1, 2, 3} {
		b.Run(fmt.Sprintf("%dgram", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				tokens := ngram.Tokens(text, n)
				_ = tokens
			}
		})
	}
}
