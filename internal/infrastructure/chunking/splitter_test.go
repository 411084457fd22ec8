package chunking

import (
	"strings"
	"testing"
)

func TestSplitEmptyText(t *testing.T) {
	s := NewSplitter(10)
	if got := s.Split("   \n\t "); got != nil {
		t.Fatalf("expected nil for blank text, got %v", got)
	}
}

func TestSplitRespectsWordBoundaries(t *testing.T) {
	s := NewSplitter(3)
	chunks := s.Split("one two three four five")
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != "one two three" || chunks[1] != "four five" {
		t.Fatalf("unexpected chunks: %v", chunks)
	}
}

func TestSplitDefaultsChunkSize(t *testing.T) {
	s := NewSplitter(0)
	if s.WordsPerChunk != 750 {
		t.Fatalf("expected default 750 words, got %d", s.WordsPerChunk)
	}

	words := make([]string, 800)
	for i := range words {
		words[i] = "w"
	}
	chunks := s.Split(strings.Join(words, " "))
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks for 800 words, got %d", len(chunks))
	}
}
