package benchmark

import (
	"context"
	"testing"

	"github.com/mkurosawa/addrsearch/internal/index"
	"github.com/mkurosawa/addrsearch/internal/search"
)

func buildBenchIndex(b *testing.B, records int) *index.Index {
	b.Helper()
	corp := syntheticCorpus(records)
	ix, err := index.NewBuilder(benchFields, 2, 0).Build(context.Background(), corp)
	if err != nil {
		b.Fatal(err)
	}
	return ix
}

func BenchmarkSearch(b *testing.B) {
	ix := buildBenchIndex(b, 50000)

	queries := []struct {
		name  string
		query string
	}{
		{"common_pref", "東京"},
		{"city", "札幌市"},
		{"long_address", "大阪府大阪市北区梅田"},
		{"zero_result", "存在しない町名"},
		{"short_query", "東"},
	}
	for _, q := range queries {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				ids := search.Match(ix, q.query)
				_ = ids
			}
		})
	}
}

func BenchmarkSearchParallel(b *testing.B) {
	ix := buildBenchIndex(b, 50000)
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			ids := search.Match(ix, "大阪市")
			_ = ids
		}
	})
}
