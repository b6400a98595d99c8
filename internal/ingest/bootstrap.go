package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Indexer receives the chunked document. Implemented by retrieval.Index.
type Indexer interface {
	Count() (int, error)
	IndexChunks(ctx context.Context, chunks []string) error
}

// Bootstrap loads the knowledge PDF into the index once. If the index already
// holds documents the load is skipped, so restarts do not duplicate chunks.
// Returns the number of chunks indexed (0 when skipped).
func Bootstrap(ctx context.Context, index Indexer, pdfPath string, chunkSize, chunkOverlap int) (int, error) {
	count, err := index.Count()
	if err != nil {
		return 0, fmt.Errorf("checking index: %w", err)
	}
	if count > 0 {
		slog.Info("knowledge index already populated, skipping load", "documents", count)
		return 0, nil
	}

	if _, err := os.Stat(pdfPath); err != nil {
		return 0, fmt.Errorf("knowledge pdf: %w", err)
	}

	text, err := ExtractText(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("extracting text: %w", err)
	}

	chunks := Chunk(text, chunkSize, chunkOverlap)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no chunks produced from %s", pdfPath)
	}

	if err := index.IndexChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("indexing chunks: %w", err)
	}
	slog.Info("knowledge document indexed", "path", pdfPath, "chunks", len(chunks))
	return len(chunks), nil
}
