package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studypath/studypath-backend/internal/core/domain"
	"github.com/studypath/studypath-backend/internal/core/ports"
)

type UploadAssetUseCase struct {
	assets  ports.AssetRepository
	storage ports.ObjectStorage
}

func NewUploadAssetUseCase(assets ports.AssetRepository, storage ports.ObjectStorage) *UploadAssetUseCase {
	return &UploadAssetUseCase{assets: assets, storage: storage}
}

func (uc *UploadAssetUseCase) Upload(ctx context.Context, userID, filename, mimeType string, body io.Reader) (*domain.Asset, error) {
	if userID == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "upload asset", errors.New("missing user id"))
	}
	if filename == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload asset", errors.New("missing filename"))
	}
	modality, err := detectModality(filename, mimeType)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload asset", err)
	}

	id := uuid.NewString()
	key := userID + "/" + id + strings.ToLower(filepath.Ext(filename))
	size, err := uc.storage.Save(ctx, key, body)
	if err != nil {
		return nil, fmt.Errorf("store asset payload: %w", err)
	}

	now := time.Now().UTC()
	asset := &domain.Asset{
		ID:         id,
		UserID:     userID,
		Filename:   filename,
		Modality:   modality,
		MimeType:   mimeType,
		SizeBytes:  size,
		StorageKey: key,
		Status:     domain.AssetPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.assets.Create(ctx, asset); err != nil {
		return nil, fmt.Errorf("persist asset: %w", err)
	}
	return asset, nil
}

func detectModality(filename, mimeType string) (domain.Modality, error) {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return domain.ModalityImage, nil
	case strings.HasPrefix(mimeType, "audio/"):
		return domain.ModalityAudio, nil
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".txt", ".md", ".xlsx", ".xlsm":
		return domain.ModalityDocument, nil
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return domain.ModalityImage, nil
	case ".mp3", ".wav", ".m4a", ".ogg", ".flac":
		return domain.ModalityAudio, nil
	}
	return "", fmt.Errorf("unsupported file type: %s", filename)
}
