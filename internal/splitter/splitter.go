// Package splitter turns a document's extracted text into overlapping
// sentence-based chunks. Chunking must be deterministic for identical input:
// the per-document vector index relies on it so that a cache miss rebuild
// reproduces the same chunk set.
package splitter

import (
	"regexp"
	"strings"

	"github.com/54b3r/docmind-go/internal/rag"
)

// SentenceSplitter splits text into chunks of a fixed number of sentences
// with a configurable sentence overlap between consecutive chunks.
type SentenceSplitter struct {
	// sentencesPerChunk is the number of sentences grouped into one chunk.
	sentencesPerChunk int
	// overlapSentences is the number of trailing sentences repeated at the
	// start of the next chunk.
	overlapSentences int
	// sentenceRE matches one sentence up to and including its terminator.
	sentenceRE *regexp.Regexp
}

// New constructs a SentenceSplitter. Non-positive sentencesPerChunk defaults
// to 8; negative overlap is clamped to 0; overlap is clamped below
// sentencesPerChunk so the splitter always advances.
func New(sentencesPerChunk, overlapSentences int) *SentenceSplitter {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 8
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	return &SentenceSplitter{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
		sentenceRE:        regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
	}
}

// Split chunks the document's content into rag.Chunk values owned by the
// document. Text without sentence terminators is emitted as a single chunk.
// Empty content yields nil.
func (s *SentenceSplitter) Split(doc rag.Document) []rag.Chunk {
	sentences := s.sentenceRE.FindAllString(doc.Content, -1)
	if len(sentences) == 0 {
		trimmed := strings.TrimSpace(doc.Content)
		if trimmed == "" {
			return nil
		}
		sentences = []string{trimmed}
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}

	var chunks []rag.Chunk
	idx := 0
	for i := 0; i < len(sentences); {
		end := i + s.sentencesPerChunk
		if end > len(sentences) {
			end = len(sentences)
		}
		chunks = append(chunks, rag.Chunk{
			DocID: doc.ID,
			Index: idx,
			Text:  strings.Join(sentences[i:end], " "),
		})
		if end == len(sentences) {
			break
		}
		i = end - s.overlapSentences
		idx++
	}
	return chunks
}
