package retrieval

import "time"

// VectorStore is the interface for vector storage and similarity search
// backends. The current implementation uses SQLite with brute-force cosine
// similarity, which is comfortable for a single-document corpus; swap in an
// ANN-capable backend if the collection ever grows past ~100K vectors.
//
// The "collection" parameter names the table holding the vectors, so a
// backend can host more than one corpus side by side.
type VectorStore interface {
	// Insert adds records to the given collection.
	Insert(collection string, records []Record) error

	// Search returns the top-K records most similar to the query vector.
	Search(collection string, vector []float32, topK int) ([]ScoredRecord, error)

	// Count returns the number of records in the given collection.
	Count(collection string) (int, error)
}

// Record represents a stored document chunk with its embedding. IDs are
// deterministic ("chunk_<ordinal>") so re-running the bootstrap against a
// populated collection can never produce divergent identifiers.
type Record struct {
	ID        string
	Ordinal   int
	TextChunk string
	Embedding []float32
	CreatedAt time.Time
}

// ScoredRecord is a Record with a similarity score attached.
type ScoredRecord struct {
	Record
	Score float32
}
