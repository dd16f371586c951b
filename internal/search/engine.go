// Package search implements conjunctive bigram queries against a published
// index snapshot. A record matches a query only when every n-gram of the
// query occurs in the record's indexed text; there is no OR mode, no ranking
// and no fuzzy matching.
package search

import (
	"log/slog"
	"sort"

	"github.com/mkurosawa/addrsearch/internal/index"
	"github.com/mkurosawa/addrsearch/internal/ngram"
)

// Engine executes queries against the store's current snapshot. Engines are
// stateless and safe for arbitrary concurrent use.
type Engine struct {
	store  *index.Store
	logger *slog.Logger
}

// New creates an Engine reading from store.
func New(store *index.Store) *Engine {
	return &Engine{
		store:  store,
		logger: slog.Default().With("component", "query-engine"),
	}
}

// Search matches query against the current snapshot. See Match.
func (e *Engine) Search(query string) []int {
	return Match(e.store.Current().Index, query)
}

// Match returns the IDs of every record containing all n-grams of query,
// sorted ascending. Queries shorter than the gram width produce no tokens
// and therefore always match nothing; this mirrors how the index itself
// never holds sub-width tokens and is deliberate, documented behaviour
// rather than an error. Absence of matches is an empty result, never an
// error.
func Match(ix *index.Index, query string) []int {
	tokens := ngram.Tokens(query, ix.GramSize())
	if len(tokens) == 0 {
		return nil
	}

	// Repeated tokens in the query add nothing to a conjunctive match, so
	// intersect each distinct token's postings once, shortest list first.
	lists := make([][]int, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		ids := ix.Postings(token)
		if len(ids) == 0 {
			return nil
		}
		lists = append(lists, ids)
	}
	sort.Slice(lists, func(i, j int) bool { return len(lists[i]) < len(lists[j]) })

	matched := lists[0]
	for _, ids := range lists[1:] {
		matched = intersect(matched, ids)
		if len(matched) == 0 {
			return nil
		}
	}
	return matched
}

// intersect merge-joins two sorted ID lists. Neither input is mutated.
func intersect(a, b []int) []int {
	result := make([]int, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			result = append(result, a[i])
			i++
			j++
		}
	}
	return result
}
