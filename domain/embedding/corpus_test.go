package embedding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorpus_SnapshotIsolation(t *testing.T) {
	records := []Record{
		ReconstructRecord(1, 10, []float64{1, 0}, time.Now(), true),
	}
	corpus := NewCorpus(records, time.Now())

	records[0] = ReconstructRecord(2, 20, []float64{0, 1}, time.Now(), true)

	got := corpus.Records()
	require.Len(t, got, 1)
	assert.Equal(t, int64(10), got[0].UserID())
}

func TestCorpus_Empty(t *testing.T) {
	corpus := NewCorpus(nil, time.Now())
	assert.True(t, corpus.Empty())
	assert.Equal(t, 0, corpus.Len())
}

func TestCorpus_Age(t *testing.T) {
	fetched := time.Now()
	corpus := NewCorpus(nil, fetched)
	assert.Equal(t, time.Minute, corpus.Age(fetched.Add(time.Minute)))
}

func TestRecord_VectorIsCopied(t *testing.T) {
	vec := []float64{1, 2, 3}
	rec := NewRecord(7, vec)

	vec[0] = 99
	assert.Equal(t, []float64{1, 2, 3}, rec.Vector())

	out := rec.Vector()
	out[1] = 99
	assert.Equal(t, []float64{1, 2, 3}, rec.Vector())
	assert.Equal(t, 3, rec.Dim())
	assert.True(t, rec.Active())
}
