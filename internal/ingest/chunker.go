// Package ingest turns pages, files and saved answers into stored knowledge
// chunks, and backfills the embeddings the retriever needs.
package ingest

import "strings"

const defaultMaxChunkSize = 1000

// SplitChunks breaks text into chunks of at most maxSize characters,
// accumulating whole paragraphs so a chunk never starts mid-sentence. A
// single paragraph larger than maxSize becomes its own chunk, oversized but
// intact. Splitting is deterministic: the same text always produces the same
// chunks.
func SplitChunks(text string, maxSize int) []string {
	if maxSize <= 0 {
		maxSize = defaultMaxChunkSize
	}

	var chunks []string
	var current strings.Builder

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if current.Len() > 0 && current.Len()+len("\n\n")+len(para) > maxSize {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
