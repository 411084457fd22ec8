package usecase

import (
	"errors"
	"strings"

	"github.com/studypath/studypath-backend/internal/core/domain"
)

// Consolidator merges the successful extraction results of one run into a
// content bundle. It is pure: the same results in the same order always
// produce an identical bundle.
type Consolidator struct{}

func NewConsolidator() *Consolidator {
	return &Consolidator{}
}

// Consolidate deduplicates fragments whose normalized text already appeared
// earlier in the bundle; overlap happens when the same picture or passage is
// present in multiple assets. Input order is preserved.
func (c *Consolidator) Consolidate(runID, userID string, results []domain.ExtractionResult) (*domain.ContentBundle, error) {
	if len(results) == 0 {
		return nil, domain.WrapError(domain.ErrConsolidationFailed, "consolidate", errors.New("no successful extractions"))
	}

	seen := make(map[string]struct{})
	var totalSize int64
	merged := make([]domain.ExtractionResult, 0, len(results))
	for _, result := range results {
		kept := result
		kept.Fragments = nil
		for _, frag := range result.Fragments {
			key := string(frag.Kind) + "\x00" + normalizeFragmentText(frag.Text)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			kept.Fragments = append(kept.Fragments, frag)
			totalSize += int64(len(frag.Text))
		}
		merged = append(merged, kept)
	}

	return &domain.ContentBundle{
		RunID:     runID,
		UserID:    userID,
		Results:   merged,
		TotalSize: totalSize,
	}, nil
}

func normalizeFragmentText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
