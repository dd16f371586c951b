package index

import (
	"sync/atomic"

	"github.com/mkurosawa/addrsearch/internal/corpus"
)

// Snapshot pairs an immutable Index with the corpus it was built from, so a
// reader resolving matched IDs always sees the records the index was built
// over, even while a rebuild swaps in a newer pair.
type Snapshot struct {
	Index  *Index
	Corpus corpus.Corpus
}

// Store publishes immutable snapshots to concurrent readers. A rebuild
// constructs a fresh Index off to the side and swaps it in with Publish;
// queries in flight keep the snapshot they loaded, so no reader ever
// observes a partially built index.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore returns a Store holding an empty snapshot, so searches before the
// first build simply match nothing.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(&Snapshot{Index: Empty()})
	return s
}

// Publish atomically replaces the current snapshot.
func (s *Store) Publish(ix *Index, corp corpus.Corpus) {
	s.current.Store(&Snapshot{Index: ix, Corpus: corp})
}

// Current returns the most recently published snapshot.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}
