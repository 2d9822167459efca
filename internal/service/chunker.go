package service

import "strings"

// DefaultChunkWords is the maximum chunk size in words.
const DefaultChunkWords = 500

// ChunkText splits text into consecutive, non-overlapping windows of at most
// maxWords words. Whitespace runs collapse to one space; joining the chunks
// with a space gives back the normalised input. Empty text yields no chunks.
func ChunkText(text string, maxWords int) []string {
	if maxWords <= 0 {
		maxWords = DefaultChunkWords
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+maxWords-1)/maxWords)
	for start := 0; start < len(words); start += maxWords {
		end := min(start+maxWords, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
