package docparse

import "unicode"

// Chunking bounds sized for a single LLM generation call.
const (
	DefaultChunkSize    = 1800
	DefaultChunkOverlap = 200

	// minChunkBoundary caps how far back the boundary search may move a
	// cut, so natural breaks cannot shrink a chunk below the target range.
	minChunkBoundary = 1500
)

// Chunk is one bounded window of validated text. Consecutive chunks share
// an overlap region so no sentence is lost at a cut.
type Chunk struct {
	Content string `json:"content"`
	Ordinal int    `json:"ordinal"`
}

// SplitIntoChunks divides text into overlapping windows of roughly chunkSize
// runes. Cuts prefer a paragraph break, then a sentence break, then a hard
// character cut. Each chunk after the first begins overlap runes before the
// previous chunk's end, so concatenating the chunks minus that overlap
// reconstructs the input exactly. Non-positive chunkSize or overlap fall
// back to the package defaults; an overlap at or above chunkSize is clamped
// to a quarter of it.
func SplitIntoChunks(text string, chunkSize, overlap int) []Chunk {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap <= 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= chunkSize {
		return []Chunk{{Content: text, Ordinal: 0}}
	}

	var chunks []Chunk
	start := 0
	for {
		end := start + chunkSize
		if end >= len(runes) {
			chunks = append(chunks, Chunk{
				Content: string(runes[start:]),
				Ordinal: len(chunks),
			})
			break
		}
		end = cutPoint(runes, start, end)
		chunks = append(chunks, Chunk{
			Content: string(runes[start:end]),
			Ordinal: len(chunks),
		})
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// cutPoint picks where to end the chunk beginning at start, scanning
// backward from hardEnd for a paragraph break, then a sentence break. The
// scan never moves the cut below start+minChunkBoundary; if no break lives
// in that window the hard cut stands.
func cutPoint(runes []rune, start, hardEnd int) int {
	lo := start + minChunkBoundary
	if lo >= hardEnd {
		return hardEnd
	}
	for i := hardEnd - 1; i > lo; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}
	for i := hardEnd - 2; i >= lo; i-- {
		if isSentenceTerminator(runes[i]) && unicode.IsSpace(runes[i+1]) {
			return i + 2
		}
	}
	return hardEnd
}

func isSentenceTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
