package image

import (
	"context"
	"fmt"
	"io"

	"github.com/studypath/studypath-backend/internal/core/domain"
	"github.com/studypath/studypath-backend/internal/core/ports"
)

// Extractor describes image assets through the vision-capable analysis
// model. One asset yields exactly one fragment.
type Extractor struct {
	storage  ports.ObjectStorage
	analyzer ports.ContentAnalyzer
}

func New(storage ports.ObjectStorage, analyzer ports.ContentAnalyzer) *Extractor {
	return &Extractor{storage: storage, analyzer: analyzer}
}

func (e *Extractor) Modality() domain.Modality {
	return domain.ModalityImage
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

	frag, err := e.analyzer.DescribeImage(ctx, asset.Filename, data)
	if err != nil {
		return nil, fmt.Errorf("describe image: %w", err)
	}

	return &domain.ExtractionResult{
		AssetID:   asset.ID,
		Modality:  domain.ModalityImage,
		Derived:   asset.IsDerived(),
		Fragments: []domain.Fragment{*frag},
	}, nil
}
