package embedding

import "time"

// Corpus is an immutable point-in-time snapshot of the active embedding set.
// It is created once on a cache miss and shared read-only between concurrent
// verification calls; nothing mutates it after construction.
type Corpus struct {
	records   []Record
	fetchedAt time.Time
}

// NewCorpus creates a Corpus from the given records. The slice is copied so
// later mutation by the caller cannot leak into the snapshot.
func NewCorpus(records []Record, fetchedAt time.Time) Corpus {
	recs := make([]Record, len(records))
	copy(recs, records)
	return Corpus{
		records:   recs,
		fetchedAt: fetchedAt,
	}
}

// Records returns the snapshot records.
func (c Corpus) Records() []Record {
	recs := make([]Record, len(c.records))
	copy(recs, c.records)
	return recs
}

// Len returns the number of records in the snapshot.
func (c Corpus) Len() int { return len(c.records) }

// Empty reports whether the snapshot holds no records. An empty corpus is a
// valid state meaning "no one can ever match", not an error.
func (c Corpus) Empty() bool { return len(c.records) == 0 }

// FetchedAt returns when the snapshot was read from the store.
func (c Corpus) FetchedAt() time.Time { return c.fetchedAt }

// Age returns how long ago the snapshot was fetched.
func (c Corpus) Age(now time.Time) time.Duration { return now.Sub(c.fetchedAt) }
