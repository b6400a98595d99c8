// Package ingest loads the knowledge document: PDF text extraction, word
// chunking, and one-time indexing at startup.
package ingest

import "strings"

// Chunk splits text into word-based chunks of at most size words, with
// overlap words shared between consecutive chunks. Empty or whitespace-only
// input yields nil.
func Chunk(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if size <= 0 {
		size = 1
	}

	advance := size - overlap
	if advance < 1 {
		// Overlap at or above the chunk size would stall the scan.
		advance = 1
	}

	var chunks []string
	for i := 0; i < len(words); i += advance {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
