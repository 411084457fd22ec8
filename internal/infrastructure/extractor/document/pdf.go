package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"github.com/studypath/studypath-backend/internal/core/domain"
)

// extractPDF pulls the plain text of every page and stores page-embedded
// images above the size floor as derived image assets. The pdf library
// panics on malformed files and unsupported stream filters, so both the
// text pass and each image read run behind a recover.
func (e *Extractor) extractPDF(ctx context.Context, asset *domain.Asset, data []byte) (text string, derived []domain.Asset, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf %s: %v", asset.Filename, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("open pdf: %w", err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", nil, fmt.Errorf("extract pdf text: %w", err)
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, textReader); err != nil {
		return "", nil, fmt.Errorf("read pdf text: %w", err)
	}

	derived, err = e.collectEmbeddedImages(ctx, asset, reader)
	if err != nil {
		return "", nil, err
	}
	return sb.String(), derived, nil
}

func (e *Extractor) collectEmbeddedImages(ctx context.Context, asset *domain.Asset, reader *pdf.Reader) ([]domain.Asset, error) {
	seen := make(map[string]struct{})
	var derived []domain.Asset

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		xobjects := page.Resources().Key("XObject")
		if xobjects.Kind() != pdf.Dict {
			continue
		}
		for _, name := range xobjects.Keys() {
			if len(derived) >= e.maxImages {
				return derived, nil
			}
			obj := xobjects.Key(name)
			if obj.Kind() != pdf.Stream || obj.Key("Subtype").Name() != "Image" {
				continue
			}

			imgData, err := readImageStream(obj)
			if err != nil || len(imgData) < e.minImageBytes {
				continue
			}
			hash := contentHash(imgData)
			if _, dup := seen[hash]; dup {
				continue
			}
			seen[hash] = struct{}{}

			da, err := e.storeDerivedImage(ctx, asset, pageNum, name, imgData)
			if err != nil {
				return nil, err
			}
			derived = append(derived, *da)
		}
	}
	return derived, nil
}

// readImageStream decodes one XObject stream; filter panics from the pdf
// library become errors so a single odd image never sinks the document.
func readImageStream(obj pdf.Value) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode image stream: %v", r)
		}
	}()
	rc := obj.Reader()
	defer rc.Close()
	return io.ReadAll(rc)
}

func (e *Extractor) storeDerivedImage(ctx context.Context, parent *domain.Asset, pageNum int, name string, data []byte) (*domain.Asset, error) {
	id := uuid.NewString()
	base := strings.TrimSuffix(parent.Filename, filepath.Ext(parent.Filename))
	now := time.Now().UTC()

	asset := &domain.Asset{
		ID:            id,
		UserID:        parent.UserID,
		Filename:      fmt.Sprintf("%s-page%d-%s.jpg", base, pageNum, name),
		Modality:      domain.ModalityImage,
		MimeType:      "image/jpeg",
		StorageKey:    parent.UserID + "/derived/" + id + ".jpg",
		ParentAssetID: parent.ID,
		Origin:        "pdf_embedded",
		Status:        domain.AssetPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	size, err := e.storage.Save(ctx, asset.StorageKey, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("store derived image: %w", err)
	}
	asset.SizeBytes = size
	return asset, nil
}
