package domain

import "strings"

type FragmentKind string

const (
	FragmentText       FragmentKind = "text"
	FragmentImageNote  FragmentKind = "image_note"
	FragmentTranscript FragmentKind = "transcript"
)

// Fragment is one extracted span of content: an analyzed text chunk, an
// image description, or an audio transcript segment.
type Fragment struct {
	Kind      FragmentKind `json:"kind"`
	Text      string       `json:"text"`
	Topics    []string     `json:"topics,omitempty"`
	KeyPoints []string     `json:"key_points,omitempty"`
}

// ExtractionResult is the immutable per-asset output of one extraction
// worker invocation. DerivedAssets references images discovered inside the
// asset; they are re-queued by the orchestrator, never processed inline.
type ExtractionResult struct {
	AssetID       string     `json:"asset_id"`
	Modality      Modality   `json:"modality"`
	Derived       bool       `json:"derived,omitempty"`
	Fragments     []Fragment `json:"fragments"`
	DerivedAssets []Asset    `json:"derived_assets,omitempty"`
}

// ContentBundle is the consolidated, ordered extraction output of one run.
// Results appear in asset-upload order with derived assets directly after
// their parent's entry.
type ContentBundle struct {
	RunID     string             `json:"run_id"`
	UserID    string             `json:"user_id"`
	Results   []ExtractionResult `json:"results"`
	TotalSize int64              `json:"total_size"`
}

// SourceCount returns the number of non-derived assets contributing to the
// bundle. It bounds how many trees a synthesis invocation may produce.
func (b *ContentBundle) SourceCount() int {
	n := 0
	for i := range b.Results {
		if !b.Results[i].Derived {
			n++
		}
	}
	if n == 0 {
		n = 1
	}
	return n
}

// RenderText flattens the bundle into the plain-text form handed to the
// structure-synthesis capability.
func (b *ContentBundle) RenderText() string {
	var sb strings.Builder
	for i := range b.Results {
		for _, f := range b.Results[i].Fragments {
			if f.Text != "" {
				sb.WriteString(f.Text)
				sb.WriteString("\n\n")
			}
			if len(f.Topics) > 0 {
				sb.WriteString("Topics: ")
				sb.WriteString(strings.Join(f.Topics, ", "))
				sb.WriteString("\n\n")
			}
			if len(f.KeyPoints) > 0 {
				sb.WriteString(strings.Join(f.KeyPoints, "\n"))
				sb.WriteString("\n\n")
			}
		}
	}
	return strings.TrimSpace(sb.String())
}
