package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Index combines the embedder and vector store into the retrieval surface
// the message pipeline uses. Querying is strictly best-effort: a blank
// query, an empty collection, or any backend failure yields an empty result
// and a log line — never an error that could abort a request.
type Index struct {
	embedder   *Embedder
	store      VectorStore
	collection string
	logger     *slog.Logger
}

// NewIndex creates an Index over the default knowledge collection.
func NewIndex(embedder *Embedder, store VectorStore) *Index {
	return &Index{
		embedder:   embedder,
		store:      store,
		collection: expectedCollection,
		logger:     slog.Default(),
	}
}

// Count returns the number of stored chunks. Used by the ingest bootstrap
// to decide whether indexing is needed.
func (idx *Index) Count() (int, error) {
	return idx.store.Count(idx.collection)
}

// IndexChunks embeds and stores the given chunks under deterministic
// ordinal-derived IDs. No-op for empty input. The caller is expected to
// check Count first; re-indexing a populated collection is a bootstrap bug.
func (idx *Index) IndexChunks(ctx context.Context, chunks []string) error {
	if len(chunks) == 0 {
		return nil
	}

	vectors, err := idx.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}

	now := time.Now().UTC()
	records := make([]Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = Record{
			ID:        chunkID(i),
			Ordinal:   i,
			TextChunk: chunk,
			Embedding: vectors[i],
			CreatedAt: now,
		}
	}

	if err := idx.store.Insert(idx.collection, records); err != nil {
		return fmt.Errorf("storing %d chunks: %w", len(records), err)
	}
	return nil
}

// Query returns up to topK chunk texts ranked by similarity to text.
func (idx *Index) Query(ctx context.Context, text string, topK int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	vec, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		idx.logger.Warn("retrieval: embedding query failed", "error", err)
		return nil
	}

	scored, err := idx.store.Search(idx.collection, vec, topK)
	if err != nil {
		idx.logger.Warn("retrieval: vector search failed", "error", err)
		return nil
	}

	texts := make([]string, 0, len(scored))
	for _, s := range scored {
		texts = append(texts, s.TextChunk)
	}
	return texts
}

// chunkID derives the stable identifier for the chunk at the given ordinal.
func chunkID(ordinal int) string {
	return fmt.Sprintf("chunk_%d", ordinal)
}
