package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrAssetNotFound        = errors.New("asset not found")
	ErrRunNotFound          = errors.New("run not found")
	ErrRunAlreadyInProgress = errors.New("run already in progress")
	ErrExtractionFailed     = errors.New("extraction failed")
	ErrConsolidationFailed  = errors.New("consolidation failed")
	ErrSynthesisUnavailable = errors.New("synthesis capability unavailable")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrTemporary            = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ExtractionError carries the per-asset failure detail recorded against a
// run without aborting it.
type ExtractionError struct {
	AssetID  string
	Modality Modality
	Cause    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract asset %s (%s): %v", e.AssetID, e.Modality, e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return ErrExtractionFailed
}
