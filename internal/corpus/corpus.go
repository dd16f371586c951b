// Package corpus loads and models the tabular address corpus. A corpus is an
// ordered, read-only collection of records; record identity is the position
// in the corpus and stays stable for the lifetime of one snapshot. Character
// encoding is resolved entirely inside the loaders, so downstream consumers
// only ever see UTF-8.
package corpus

// Record is one row of the corpus. Fields maps column name to cell text;
// columns absent from a row are simply missing from the map.
type Record struct {
	ID     int
	Fields map[string]string
}

// Field returns the named column value, or "" when the column does not exist
// on this record. The corpus schema is not required to be uniform.
func (r Record) Field(name string) string {
	return r.Fields[name]
}

// Corpus is an ordered record collection. The record at position i has ID i.
type Corpus []Record

// Resolve maps record IDs back to records. Unknown IDs are skipped.
func (c Corpus) Resolve(ids []int) []Record {
	records := make([]Record, 0, len(ids))
	for _, id := range ids {
		if id < 0 || id >= len(c) {
			continue
		}
		records = append(records, c[id])
	}
	return records
}
