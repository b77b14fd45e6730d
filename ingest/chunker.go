// Package ingest loads documents into the retrieval index: sentence
// chunking, embedding, upsert, and optional directory watching.
package ingest

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/clararag/clara/retrieval"
)

// SentenceChunker splits document text into sentence-based chunks with a
// configurable sentence overlap between consecutive chunks.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
	splitter          *regexp.Regexp
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
		splitter:          regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
	}
}

// Chunk splits content into chunks keyed by documentID. Text without
// sentence punctuation becomes a single chunk.
func (c *SentenceChunker) Chunk(documentID, content string) []retrieval.Chunk {
	sentences := c.splitter.FindAllString(content, -1)
	if len(sentences) == 0 {
		trimmed := strings.TrimSpace(content)
		if trimmed == "" {
			return nil
		}
		sentences = []string{trimmed}
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}

	var chunks []retrieval.Chunk
	i := 0
	idx := 0
	for i < len(sentences) {
		end := i + c.sentencesPerChunk
		if end > len(sentences) {
			end = len(sentences)
		}
		chunks = append(chunks, retrieval.Chunk{
			DocumentID: documentID,
			ChunkID:    documentID + ":" + strconv.Itoa(idx),
			Text:       strings.Join(sentences[i:end], " "),
			Index:      idx,
		})
		if end == len(sentences) {
			break
		}
		i = end - c.overlapSentences
		idx++
	}
	return chunks
}
