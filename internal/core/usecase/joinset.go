package usecase

import (
	"sync"

	"github.com/studypath/studypath-backend/internal/core/domain"
)

// joinSet is the barrier for one run's extraction fan-out. Branches may add
// work while others are still in flight; registering discovered branches and
// completing the discovering branch happen under one lock, so the barrier
// can never fire between "parent done" and "children registered".
type joinSet struct {
	mu          sync.Mutex
	outstanding int
	completed   int
	order       []string
	results     map[string]*domain.ExtractionResult
	done        chan struct{}
}

func newJoinSet(assetIDs []string) *joinSet {
	return &joinSet{
		outstanding: len(assetIDs),
		order:       append([]string(nil), assetIDs...),
		results:     make(map[string]*domain.ExtractionResult, len(assetIDs)),
		done:        make(chan struct{}),
	}
}

// complete finishes one branch. A nil result records a failed branch; the
// asset keeps its slot in the order but contributes nothing to the bundle.
// derivedIDs are inserted directly after the finishing asset's position.
func (js *joinSet) complete(assetID string, result *domain.ExtractionResult, derivedIDs []string) {
	js.mu.Lock()
	defer js.mu.Unlock()

	if len(derivedIDs) > 0 {
		js.insertAfterLocked(assetID, derivedIDs)
		js.outstanding += len(derivedIDs)
	}
	if result != nil {
		js.results[assetID] = result
	}
	js.completed++
	js.outstanding--
	if js.outstanding == 0 {
		close(js.done)
	}
}

func (js *joinSet) insertAfterLocked(assetID string, derivedIDs []string) {
	pos := len(js.order)
	for i, id := range js.order {
		if id == assetID {
			pos = i + 1
			break
		}
	}
	rest := append([]string(nil), js.order[pos:]...)
	js.order = append(js.order[:pos], derivedIDs...)
	js.order = append(js.order, rest...)
}

func (js *joinSet) wait() <-chan struct{} {
	return js.done
}

func (js *joinSet) progress() (completed, total int) {
	js.mu.Lock()
	defer js.mu.Unlock()
	return js.completed, len(js.order)
}

// ordered returns the successful results in upload order, derived entries
// directly after their parent.
func (js *joinSet) ordered() []domain.ExtractionResult {
	js.mu.Lock()
	defer js.mu.Unlock()

	out := make([]domain.ExtractionResult, 0, len(js.results))
	for _, id := range js.order {
		if result, ok := js.results[id]; ok {
			out = append(out, *result)
		}
	}
	return out
}

// size reports the current number of registered branches. Used by tests to
// observe barrier growth.
func (js *joinSet) size() int {
	js.mu.Lock()
	defer js.mu.Unlock()
	return len(js.order)
}
