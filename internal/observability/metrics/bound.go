package metrics

import (
	"time"

	"github.com/studypath/studypath-backend/internal/core/domain"
)

// Bound fixes the service label so callers above the metrics layer never
// carry it around.
type Bound struct {
	m       *WorkerMetrics
	service string
}

func (m *WorkerMetrics) Bound(service string) *Bound {
	return &Bound{m: m, service: service}
}

func (b *Bound) StartRun() {
	b.m.StartRun()
}

func (b *Bound) FinishRun(stage domain.RunStage, duration time.Duration) {
	b.m.FinishRun(b.service, stage, duration)
}

func (b *Bound) ObserveStage(stage domain.RunStage, duration time.Duration) {
	b.m.ObserveStage(b.service, stage, duration)
}

func (b *Bound) StartExtraction() {
	b.m.StartExtraction()
}

func (b *Bound) FinishExtraction(modality domain.Modality, err error) {
	b.m.FinishExtraction(b.service, modality, err)
}

func (b *Bound) RecordQuestion(status string) {
	b.m.RecordQuestion(b.service, status)
}
