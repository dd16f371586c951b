package index

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/mkurosawa/addrsearch/internal/corpus"
)

var addressFields = []string{"pref", "city"}

func addressCorpus() corpus.Corpus {
	return corpus.Corpus{
		{ID: 0, Fields: map[string]string{"pref": "東京都", "city": "新宿区"}},
		{ID: 1, Fields: map[string]string{"pref": "大阪府", "city": "大阪市"}},
	}
}

func mustBuild(t *testing.T, b *Builder, corp corpus.Corpus) *Index {
	t.Helper()
	ix, err := b.Build(context.Background(), corp)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return ix
}

func TestBuildPostings(t *testing.T) {
	ix := mustBuild(t, NewBuilder(addressFields, 2, 1), addressCorpus())

	tests := []struct {
		token string
		want  []int
	}{
		{"東京", []int{0}},
		{"京都", []int{0}},
		{"新宿", []int{0}},
		{"宿区", []int{0}},
		{"大阪", []int{1}},
		{"阪府", []int{1}},
		{"阪市", []int{1}},
		// Concatenation is separator-free, so the field boundary of record 0
		// ("東京都" + "新宿区") yields the token 都新.
		{"都新", []int{0}},
		{"府大", []int{1}},
		// Never adjacent in any record.
		{"都区", nil},
		{"沖縄", nil},
	}
	for _, tt := range tests {
		if got := ix.Postings(tt.token); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Postings(%q) = %v, want %v", tt.token, got, tt.want)
		}
	}

	if ix.DocCount() != 2 {
		t.Errorf("DocCount = %d, want 2", ix.DocCount())
	}
}

// TestBuildDeduplicatesWithinRecord checks that a token occurring several
// times in one record is posted once: 大阪 appears twice in 大阪府大阪市.
func TestBuildDeduplicatesWithinRecord(t *testing.T) {
	ix := mustBuild(t, NewBuilder(addressFields, 2, 1), addressCorpus())
	if got := ix.Postings("大阪"); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("Postings(大阪) = %v, want [1]", got)
	}
}

func TestBuildMissingFieldsAndShortText(t *testing.T) {
	corp := corpus.Corpus{
		{ID: 0, Fields: map[string]string{"pref": "東京都"}}, // no city column
		{ID: 1, Fields: map[string]string{}},               // nothing at all
		{ID: 2, Fields: map[string]string{"city": "区"}},    // shorter than gram width
		{ID: 3, Fields: map[string]string{"pref": "京", "city": "都"}}, // grams across the boundary only
	}
	ix := mustBuild(t, NewBuilder(addressFields, 2, 1), corp)

	if got := ix.Postings("東京"); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("Postings(東京) = %v, want [0]", got)
	}
	// Record 3 concatenates to 京都, which record 0 also contains.
	if got := ix.Postings("京都"); !reflect.DeepEqual(got, []int{0, 3}) {
		t.Errorf("Postings(京都) = %v, want [0 3]", got)
	}
	if got := ix.Postings("区"); got != nil {
		t.Errorf("sub-width token indexed: %v", got)
	}
	if ix.DocCount() != 4 {
		t.Errorf("DocCount = %d, want 4", ix.DocCount())
	}
}

func TestBuildEmptyCorpus(t *testing.T) {
	ix := mustBuild(t, NewBuilder(addressFields, 2, 4), nil)
	if ix.DocCount() != 0 || ix.TermCount() != 0 {
		t.Errorf("empty corpus: docs=%d terms=%d, want 0/0", ix.DocCount(), ix.TermCount())
	}
	if got := ix.Postings("東京"); got != nil {
		t.Errorf("Postings on empty index = %v, want nil", got)
	}
}

// TestBuildIdempotent checks that two builds from the same snapshot produce
// identical key sets and posting lists.
func TestBuildIdempotent(t *testing.T) {
	b := NewBuilder(addressFields, 2, 1)
	first := mustBuild(t, b, addressCorpus())
	second := mustBuild(t, b, addressCorpus())
	if !reflect.DeepEqual(first.postings, second.postings) {
		t.Error("rebuilding the same corpus produced a different index")
	}
}

// TestBuildParallelMatchesSerial checks that the chunked concurrent build
// produces exactly the serial result, including posting order. The small
// sizes cover worker counts whose ceil-divided chunk grid extends past the
// corpus (10 records across 7 workers gives 7 chunks of 2), which must
// leave trailing workers with empty chunks rather than out-of-range slices.
func TestBuildParallelMatchesSerial(t *testing.T) {
	prefs := []string{"東京都", "大阪府", "北海道", "福岡県", "京都府"}
	cities := []string{"新宿区", "大阪市", "札幌市", "福岡市", "中央区"}
	makeCorpus := func(size int) corpus.Corpus {
		corp := make(corpus.Corpus, 0, size)
		for i := 0; i < size; i++ {
			corp = append(corp, corpus.Record{
				ID: i,
				Fields: map[string]string{
					"pref": prefs[i%len(prefs)],
					"city": cities[(i/3)%len(cities)],
				},
			})
		}
		return corp
	}

	for _, size := range []int{1, 3, 10, 100} {
		corp := makeCorpus(size)
		serial := mustBuild(t, NewBuilder(addressFields, 2, 1), corp)
		for _, workers := range []int{2, 4, 7, 16} {
			parallel := mustBuild(t, NewBuilder(addressFields, 2, workers), corp)
			if !reflect.DeepEqual(serial.postings, parallel.postings) {
				t.Errorf("size %d parallelism %d produced a different index than serial build", size, workers)
			}
		}
	}
}

func TestBuildRespectsFieldOrder(t *testing.T) {
	corp := corpus.Corpus{
		{ID: 0, Fields: map[string]string{"pref": "東京", "city": "大阪"}},
	}
	forward := mustBuild(t, NewBuilder([]string{"pref", "city"}, 2, 1), corp)
	reversed := mustBuild(t, NewBuilder([]string{"city", "pref"}, 2, 1), corp)

	if got := forward.Postings("京大"); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("forward order: Postings(京大) = %v, want [0]", got)
	}
	if got := reversed.Postings("京大"); got != nil {
		t.Errorf("reversed order: Postings(京大) = %v, want nil", got)
	}
	if got := reversed.Postings("阪東"); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("reversed order: Postings(阪東) = %v, want [0]", got)
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	corp := make(corpus.Corpus, 0, 1000)
	for i := 0; i < 1000; i++ {
		corp = append(corp, corpus.Record{ID: i, Fields: map[string]string{"pref": fmt.Sprintf("東京都%d", i)}})
	}
	if _, err := NewBuilder(addressFields, 2, 2).Build(ctx, corp); err == nil {
		t.Error("Build with cancelled context succeeded, want error")
	}
}
