// Package indexer splits documents into chunks, embeds them, and atomically
// replaces the persisted chunk set for the document.
package indexer

import (
	"fmt"
	"strings"

	"github.com/brendanmarry/withwilma-sub001/internal/models"
)

// Chunker splits text into overlapping word-based chunks.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in words).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Chunk splits text into overlapping windows. Chunk ids are derived from the
// document id and the window index, so re-chunking unchanged text yields the
// same ids across indexing runs.
func (c *Chunker) Chunk(docID, text string) []models.ChunkInput {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	step := c.chunkSize - c.chunkOverlap
	if step <= 0 {
		step = 1
	}
	var chunks []models.ChunkInput
	for i, index := 0, 0; i < len(words); i, index = i+step, index+1 {
		end := i + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, models.ChunkInput{
			ChunkID: fmt.Sprintf("%s_%04d", docID, index),
			Content: strings.Join(words[i:end], " "),
			Metadata: map[string]interface{}{
				"chunk_index": index,
			},
		})
		if end >= len(words) {
			break
		}
	}
	return chunks
}
