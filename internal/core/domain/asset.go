package domain

import "time"

type Modality string

const (
	ModalityDocument Modality = "document"
	ModalityImage    Modality = "image"
	ModalityAudio    Modality = "audio"
)

type AssetStatus string

const (
	AssetPending   AssetStatus = "pending"
	AssetExtracted AssetStatus = "extracted"
	AssetError     AssetStatus = "error"
)

// Asset is one uploaded (or derived) unit of raw input. Derived assets carry
// the identifier of the asset they were discovered in.
type Asset struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	Filename      string      `json:"filename"`
	Modality      Modality    `json:"modality"`
	MimeType      string      `json:"mime_type"`
	SizeBytes     int64       `json:"size_bytes"`
	StorageKey    string      `json:"storage_key"`
	ParentAssetID string      `json:"parent_asset_id,omitempty"`
	Origin        string      `json:"origin,omitempty"`
	Status        AssetStatus `json:"status"`
	Error         string      `json:"error,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// IsDerived reports whether the asset was discovered during extraction of
// another asset rather than uploaded directly.
func (a *Asset) IsDerived() bool {
	return a.ParentAssetID != ""
}
