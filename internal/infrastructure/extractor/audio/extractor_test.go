package audio

import (
	"context"
	"strings"
	"testing"

	"github.com/studypath/studypath-backend/internal/core/domain"
	"github.com/studypath/studypath-backend/internal/infrastructure/chunking"
	"github.com/studypath/studypath-backend/internal/infrastructure/storage/localfs"
)

type fakeAnalyzer struct {
	transcript string
	analyzed   []string
}

func (f *fakeAnalyzer) AnalyzeText(_ context.Context, chunk string) (*domain.Fragment, error) {
	f.analyzed = append(f.analyzed, chunk)
	return &domain.Fragment{Kind: domain.FragmentText, Text: chunk}, nil
}

func (f *fakeAnalyzer) DescribeImage(context.Context, string, []byte) (*domain.Fragment, error) {
	return nil, nil
}

func (f *fakeAnalyzer) Transcribe(context.Context, string, []byte) (string, error) {
	return f.transcript, nil
}

func TestExtractTranscribesAndAnalyzes(t *testing.T) {
	ctx := context.Background()
	store, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	analyzer := &fakeAnalyzer{transcript: "alpha beta gamma delta epsilon zeta"}
	ext := New(store, analyzer, chunking.NewSplitter(4))

	if _, err := store.Save(ctx, "u1/l1.mp3", strings.NewReader("not-really-audio")); err != nil {
		t.Fatalf("save: %v", err)
	}
	asset := &domain.Asset{ID: "l1", UserID: "u1", Filename: "lecture.mp3", Modality: domain.ModalityAudio, StorageKey: "u1/l1.mp3"}

	result, err := ext.Extract(ctx, asset)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.Fragments) != 2 {
		t.Fatalf("got %d fragments, want 2", len(result.Fragments))
	}
	for _, frag := range result.Fragments {
		if frag.Kind != domain.FragmentTranscript {
			t.Errorf("fragment kind %s, want transcript", frag.Kind)
		}
	}
	if len(analyzer.analyzed) != 2 {
		t.Errorf("analyzer saw %d chunks, want 2", len(analyzer.analyzed))
	}
}
