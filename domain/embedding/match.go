package embedding

// Match holds a user identifier and its cosine similarity against a query
// embedding. Matches are ephemeral ranking artifacts, never persisted.
type Match struct {
	userID     string
	similarity float64
}

// NewMatch creates a new Match.
func NewMatch(userID string, similarity float64) Match {
	return Match{
		userID:     userID,
		similarity: similarity,
	}
}

// UserID returns the matched user identifier.
func (m Match) UserID() string { return m.userID }

// Similarity returns the cosine similarity in [-1, 1].
func (m Match) Similarity() float64 { return m.similarity }
