// Package similarity implements batched cosine similarity over embedding
// snapshots.
package similarity

import (
	"log/slog"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/facegate/facegate/domain/embedding"
)

// normEpsilon guards against division by zero when normalizing vectors.
const normEpsilon = 1e-10

// Engine computes ranked cosine similarities between a query embedding and a
// corpus snapshot. It is pure: no thresholds, no persistence, no notion of
// acceptance — callers interpret the scores.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates a new Engine.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// dimGroup holds the pre-normalized row matrix for all corpus records sharing
// one vector dimension.
type dimGroup struct {
	matrix  *mat.Dense
	userIDs []string
	// order is the first-seen position of each row in the corpus, used for
	// stable tie-breaking.
	order []int
}

// PreparedCorpus is a corpus snapshot with row-normalized matrices
// precomputed per vector dimension. Preparing once per snapshot means each
// verification is a single matrix-vector product.
type PreparedCorpus struct {
	groups map[int]*dimGroup
	total  int
}

// Len returns the number of records in the prepared snapshot.
func (p *PreparedCorpus) Len() int { return p.total }

// Empty reports whether the prepared snapshot holds no records.
func (p *PreparedCorpus) Empty() bool { return p.total == 0 }

// Prepare normalizes every corpus vector and groups them by dimension.
// Zero-magnitude vectors stay as zero rows and score 0 against any query.
func (e *Engine) Prepare(corpus embedding.Corpus) *PreparedCorpus {
	records := corpus.Records()
	prepared := &PreparedCorpus{
		groups: make(map[int]*dimGroup),
		total:  len(records),
	}

	type pending struct {
		userIDs []string
		rows    [][]float64
		order   []int
	}
	byDim := make(map[int]*pending)

	for i, rec := range records {
		dim := rec.Dim()
		if dim == 0 {
			continue
		}
		p, ok := byDim[dim]
		if !ok {
			p = &pending{}
			byDim[dim] = p
		}
		p.userIDs = append(p.userIDs, strconv.FormatInt(rec.UserID(), 10))
		p.rows = append(p.rows, normalize(rec.Vector()))
		p.order = append(p.order, i)
	}

	for dim, p := range byDim {
		m := mat.NewDense(len(p.rows), dim, nil)
		for r, row := range p.rows {
			m.SetRow(r, row)
		}
		prepared.groups[dim] = &dimGroup{
			matrix:  m,
			userIDs: p.userIDs,
			order:   p.order,
		}
	}

	return prepared
}

// Compare ranks every corpus record by cosine similarity against the query,
// highest first. Records whose dimension differs from the query are skipped
// with a warning. Ties preserve first-seen corpus order.
func (e *Engine) Compare(query []float64, prepared *PreparedCorpus) []embedding.Match {
	if len(query) == 0 || prepared == nil || prepared.Empty() {
		return []embedding.Match{}
	}

	dim := len(query)
	group, ok := prepared.groups[dim]
	if !ok {
		e.logger.Warn("no corpus records match query dimension",
			"query_dim", dim,
			"corpus_size", prepared.total,
		)
		return []embedding.Match{}
	}

	if skipped := prepared.total - len(group.userIDs); skipped > 0 {
		e.logger.Warn("skipping records with mismatched dimensions",
			"query_dim", dim,
			"skipped", skipped,
		)
	}

	q := mat.NewVecDense(dim, normalize(query))

	rows, _ := group.matrix.Dims()
	scores := mat.NewVecDense(rows, nil)
	scores.MulVec(group.matrix, q)

	sims := make([]float64, rows)
	for i := 0; i < rows; i++ {
		sims[i] = clamp(scores.AtVec(i))
	}

	ranked := make([]int, rows)
	for i := range ranked {
		ranked[i] = i
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if sims[a] != sims[b] {
			return sims[a] > sims[b]
		}
		// Equal scores rank by first-seen corpus position.
		return group.order[a] < group.order[b]
	})

	matches := make([]embedding.Match, rows)
	for rank, i := range ranked {
		matches[rank] = embedding.NewMatch(group.userIDs[i], sims[i])
	}

	return matches
}

// CompareCorpus prepares the corpus and compares against it in one call.
// Callers that reuse a snapshot should Prepare once and call Compare.
func (e *Engine) CompareCorpus(query []float64, corpus embedding.Corpus) []embedding.Match {
	return e.Compare(query, e.Prepare(corpus))
}

// normalize returns a unit-length copy of v. Vectors with magnitude below
// normEpsilon come back as zero vectors rather than dividing by zero.
func normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	norm := mat.Norm(mat.NewVecDense(len(v), append([]float64(nil), v...)), 2)
	if norm < normEpsilon {
		return out
	}
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// clamp keeps floating-point dot products inside the valid cosine range.
func clamp(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
