// Package index builds and publishes the bigram inverted index over the
// address corpus. An Index maps each n-gram token to the sorted, deduplicated
// list of record IDs whose concatenated searchable text contains the token.
// Indexes are immutable once built; rebuilds produce a fresh Index that is
// swapped in atomically via Store.
package index

import "github.com/mkurosawa/addrsearch/internal/ngram"

// Index is an immutable inverted index snapshot. A token absent from the map
// is equivalent to an empty posting list.
type Index struct {
	postings map[string][]int
	gramSize int
	docCount int
}

// Postings returns the sorted record IDs indexed under token, or nil when
// the token never occurred in the corpus. Callers must not mutate the
// returned slice.
func (ix *Index) Postings(token string) []int {
	return ix.postings[token]
}

// GramSize returns the n-gram width the index was built with. Queries must
// be tokenised with the same width.
func (ix *Index) GramSize() int {
	return ix.gramSize
}

// DocCount returns the number of records the index was built from.
func (ix *Index) DocCount() int {
	return ix.docCount
}

// TermCount returns the number of distinct tokens in the index.
func (ix *Index) TermCount() int {
	return len(ix.postings)
}

// Empty returns an index over zero records, used before the first build.
func Empty() *Index {
	return &Index{
		postings: make(map[string][]int),
		gramSize: ngram.Width,
	}
}
