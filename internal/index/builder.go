package index

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mkurosawa/addrsearch/internal/corpus"
	"github.com/mkurosawa/addrsearch/internal/ngram"
)

// Builder constructs an Index from a corpus snapshot. The searchable field
// values of each record are concatenated in configuration order with no
// separator, so a query may legitimately match across a field boundary.
type Builder struct {
	fields      []string
	gramSize    int
	parallelism int
	logger      *slog.Logger
}

// NewBuilder creates a Builder over the given searchable fields. gramSize
// and parallelism fall back to ngram.Width and GOMAXPROCS when zero.
func NewBuilder(fields []string, gramSize, parallelism int) *Builder {
	if gramSize < 1 {
		gramSize = ngram.Width
	}
	if parallelism < 1 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	return &Builder{
		fields:      fields,
		gramSize:    gramSize,
		parallelism: parallelism,
		logger:      slog.Default().With("component", "index-builder"),
	}
}

// Build tokenises every record and assembles the inverted index. The corpus
// is split into contiguous chunks built concurrently; since chunk record IDs
// are ascending and disjoint, concatenating partial posting lists in chunk
// order yields sorted, deduplicated lists without a separate sort pass. The
// result is identical regardless of parallelism. The only error condition is
// context cancellation.
func (b *Builder) Build(ctx context.Context, corp corpus.Corpus) (*Index, error) {
	start := time.Now()

	workers := b.parallelism
	if workers > len(corp) {
		workers = 1
	}
	partials := make([]map[string][]int, workers)

	g, ctx := errgroup.WithContext(ctx)
	chunkSize := (len(corp) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		// The ceil-divided grid can extend past the corpus (10 records
		// across 7 workers gives 7 chunks of 2), so both bounds clamp;
		// trailing workers just get an empty chunk.
		lo := w * chunkSize
		if lo > len(corp) {
			lo = len(corp)
		}
		hi := lo + chunkSize
		if hi > len(corp) {
			hi = len(corp)
		}
		part := make(map[string][]int)
		partials[w] = part
		chunk := corp[lo:hi]
		g.Go(func() error {
			for _, rec := range chunk {
				if err := ctx.Err(); err != nil {
					return fmt.Errorf("index build cancelled: %w", err)
				}
				b.indexRecord(part, rec)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := partials[0]
	for _, part := range partials[1:] {
		for token, ids := range part {
			merged[token] = append(merged[token], ids...)
		}
	}

	ix := &Index{
		postings: merged,
		gramSize: b.gramSize,
		docCount: len(corp),
	}
	b.logger.Info("index built",
		"records", ix.docCount,
		"terms", ix.TermCount(),
		"gram_size", b.gramSize,
		"workers", workers,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return ix, nil
}

// indexRecord adds one record's tokens to the partial postings map. Absent
// fields contribute the empty string; records whose concatenation is shorter
// than the gram width contribute no tokens at all. Repeated occurrences of a
// token within one record are recorded once.
func (b *Builder) indexRecord(postings map[string][]int, rec corpus.Record) {
	var sb strings.Builder
	for _, field := range b.fields {
		sb.WriteString(rec.Field(field))
	}
	for _, token := range ngram.Tokens(sb.String(), b.gramSize) {
		ids := postings[token]
		if len(ids) > 0 && ids[len(ids)-1] == rec.ID {
			continue
		}
		postings[token] = append(ids, rec.ID)
	}
}
