package audio

import (
	"context"
	"fmt"
	"io"

	"github.com/studypath/studypath-backend/internal/core/domain"
	"github.com/studypath/studypath-backend/internal/core/ports"
	"github.com/studypath/studypath-backend/internal/infrastructure/chunking"
)

// Extractor transcribes audio assets and runs the transcript through the
// same chunked analysis documents get.
type Extractor struct {
	storage  ports.ObjectStorage
	analyzer ports.ContentAnalyzer
	splitter *chunking.Splitter
}

func New(storage ports.ObjectStorage, analyzer ports.ContentAnalyzer, splitter *chunking.Splitter) *Extractor {
	return &Extractor{storage: storage, analyzer: analyzer, splitter: splitter}
}

func (e *Extractor) Modality() domain.Modality {
	return domain.ModalityAudio
}

func (e *Extractor) Extract(ctx context.Context, asset *domain.Asset) (*domain.ExtractionResult, error) {
	rc, err := e.storage.Open(ctx, asset.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("open asset payload: %w", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("read asset payload: %w", err)
	}

	transcript, err := e.analyzer.Transcribe(ctx, asset.Filename, data)
	if err != nil {
		return nil, fmt.Errorf("transcribe audio: %w", err)
	}

	chunks := e.splitter.Split(transcript)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("audio %s yielded empty transcript", asset.Filename)
	}

	fragments := make([]domain.Fragment, 0, len(chunks))
	for _, chunk := range chunks {
		frag, err := e.analyzer.AnalyzeText(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("analyze transcript chunk: %w", err)
		}
		frag.Kind = domain.FragmentTranscript
		fragments = append(fragments, *frag)
	}

	return &domain.ExtractionResult{
		AssetID:   asset.ID,
		Modality:  domain.ModalityAudio,
		Derived:   asset.IsDerived(),
		Fragments: fragments,
	}, nil
}
