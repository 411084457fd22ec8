package chunking

import "strings"

// Splitter cuts extracted text into word-bounded chunks sized for one
// analysis call against the content-extraction capability.
type Splitter struct {
	WordsPerChunk int
}

func NewSplitter(wordsPerChunk int) *Splitter {
	if wordsPerChunk <= 0 {
		wordsPerChunk = 750
	}
	return &Splitter{WordsPerChunk: wordsPerChunk}
}

func (s *Splitter) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	out := make([]string, 0, len(words)/s.WordsPerChunk+1)
	for start := 0; start < len(words); start += s.WordsPerChunk {
		end := start + s.WordsPerChunk
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[start:end], " "))
	}
	return out
}
