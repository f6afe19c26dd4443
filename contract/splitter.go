package contract

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// chunkSeparators are tried in order: paragraphs, lines, sentences, words.
var chunkSeparators = []string{"\n\n", "\n", ".", " "}

// splitText cuts text into chunks of at most size runes where adjacent chunks
// share up to overlap runes. A word longer than size is kept whole.
func splitText(text string, size, overlap int) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
		textsplitter.WithSeparators(chunkSeparators),
	).SplitText(text)
}

// truncate cuts s to at most n runes and marks the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
