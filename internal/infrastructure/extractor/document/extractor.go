package document

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/studypath/studypath-backend/internal/core/domain"
	"github.com/studypath/studypath-backend/internal/core/ports"
	"github.com/studypath/studypath-backend/internal/infrastructure/chunking"
)

// Extractor handles document assets: PDF, XLSX and plain text. PDF pages may
// carry embedded images; those are stored as derived image assets and left
// for the orchestrator to schedule, never described inline.
type Extractor struct {
	storage       ports.ObjectStorage
	analyzer      ports.ContentAnalyzer
	splitter      *chunking.Splitter
	maxImages     int
	minImageBytes int
}

func New(storage ports.ObjectStorage, analyzer ports.ContentAnalyzer, splitter *chunking.Splitter, maxImages, minImageBytes int) *Extractor {
	if maxImages <= 0 {
		maxImages = 10
	}
	if minImageBytes <= 0 {
		minImageBytes = 20 * 1024
	}
	return &Extractor{
		storage:       storage,
		analyzer:      analyzer,
		splitter:      splitter,
		maxImages:     maxImages,
		minImageBytes: minImageBytes,
	}
}

func (e *Extractor) Modality() domain.Modality {
	return domain.ModalityDocument
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

	var (
		text    string
		derived []domain.Asset
	)
	switch strings.ToLower(filepath.Ext(asset.Filename)) {
	case ".pdf":
		text, derived, err = e.extractPDF(ctx, asset, data)
	case ".xlsx", ".xlsm":
		text, err = extractXLSX(data)
	default:
		text = string(data)
	}
	if err != nil {
		return nil, err
	}

	chunks := e.splitter.Split(text)
	if len(chunks) == 0 && len(derived) == 0 {
		return nil, fmt.Errorf("document %s yielded no text", asset.Filename)
	}

	fragments := make([]domain.Fragment, 0, len(chunks))
	for _, chunk := range chunks {
		frag, err := e.analyzer.AnalyzeText(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("analyze chunk: %w", err)
		}
		fragments = append(fragments, *frag)
	}

	return &domain.ExtractionResult{
		AssetID:       asset.ID,
		Modality:      domain.ModalityDocument,
		Derived:       asset.IsDerived(),
		Fragments:     fragments,
		DerivedAssets: derived,
	}, nil
}

// contentHash fingerprints an image by its leading bytes, enough to catch
// the same picture embedded on multiple pages.
func contentHash(data []byte) string {
	head := data
	if len(head) > 8192 {
		head = head[:8192]
	}
	sum := md5.Sum(head)
	return hex.EncodeToString(sum[:])
}
