package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/studypath/studypath-backend/internal/core/domain"
	"github.com/studypath/studypath-backend/internal/core/ports"
)

// PipelineMetrics is the slice of worker instrumentation the orchestrator
// touches.
type PipelineMetrics interface {
	StartRun()
	FinishRun(stage domain.RunStage, duration time.Duration)
	ObserveStage(stage domain.RunStage, duration time.Duration)
	StartExtraction()
	FinishExtraction(modality domain.Modality, err error)
	RecordQuestion(status string)
}

type noopPipelineMetrics struct{}

func (noopPipelineMetrics) StartRun()                                   {}
func (noopPipelineMetrics) FinishRun(domain.RunStage, time.Duration)    {}
func (noopPipelineMetrics) ObserveStage(domain.RunStage, time.Duration) {}
func (noopPipelineMetrics) StartExtraction()                            {}
func (noopPipelineMetrics) FinishExtraction(domain.Modality, error)     {}
func (noopPipelineMetrics) RecordQuestion(string)                       {}

// Percent milestones per stage; extraction interpolates between its two.
const (
	percentExtractStart = 5
	percentExtractEnd   = 60
	percentConsolidated = 65
	percentSynthesizing = 75
	percentPersisted    = 90
	percentDone         = 100
)

type RunPipelineDeps struct {
	Runs         ports.RunRepository
	Assets       ports.AssetRepository
	Bundles      ports.BundleRepository
	Trees        ports.TreeRepository
	Extractors   []ports.AssetExtractor
	Consolidator *Consolidator
	Synthesizer  *TreeSynthesizer
	Progress     ports.ProgressSink
	Projector    ports.GraphProjector

	ExtractTimeout time.Duration
	Logger         *slog.Logger
	Metrics        PipelineMetrics
}

// RunPipelineUseCase drives one queued run through extraction fan-out,
// consolidation and tree synthesis. A run it executes always lands in a
// terminal stage; partial failures degrade the result instead of aborting.
type RunPipelineUseCase struct {
	runs         ports.RunRepository
	assets       ports.AssetRepository
	bundles      ports.BundleRepository
	trees        ports.TreeRepository
	extractors   map[domain.Modality]ports.AssetExtractor
	consolidator *Consolidator
	synthesizer  *TreeSynthesizer
	progress     ports.ProgressSink
	projector    ports.GraphProjector

	extractTimeout time.Duration
	logger         *slog.Logger
	metrics        PipelineMetrics
}

func NewRunPipelineUseCase(deps RunPipelineDeps) *RunPipelineUseCase {
	extractors := make(map[domain.Modality]ports.AssetExtractor, len(deps.Extractors))
	for _, ext := range deps.Extractors {
		extractors[ext.Modality()] = ext
	}
	if deps.ExtractTimeout <= 0 {
		deps.ExtractTimeout = 2 * time.Minute
	}
	if deps.Metrics == nil {
		deps.Metrics = noopPipelineMetrics{}
	}
	return &RunPipelineUseCase{
		runs:           deps.Runs,
		assets:         deps.Assets,
		bundles:        deps.Bundles,
		trees:          deps.Trees,
		extractors:     extractors,
		consolidator:   deps.Consolidator,
		synthesizer:    deps.Synthesizer,
		progress:       deps.Progress,
		projector:      deps.Projector,
		extractTimeout: deps.ExtractTimeout,
		logger:         deps.Logger,
		metrics:        deps.Metrics,
	}
}

func (uc *RunPipelineUseCase) ExecuteRun(ctx context.Context, runID string) error {
	run, err := uc.runs.GetByID(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run: %w", err)
	}
	if run.Stage.Terminal() {
		// Queue redelivery of a finished run.
		uc.logger.Info("skip terminal run", slog.String("run_id", run.ID), slog.String("stage", string(run.Stage)))
		return nil
	}

	start := time.Now()
	uc.metrics.StartRun()

	finalStage, err := uc.execute(ctx, run)
	uc.metrics.FinishRun(finalStage, time.Since(start))
	return err
}

func (uc *RunPipelineUseCase) execute(ctx context.Context, run *domain.Run) (domain.RunStage, error) {
	results, err := uc.extractStage(ctx, run)
	if err != nil {
		return uc.fail(ctx, run, domain.StageExtracting, err)
	}

	bundle, err := uc.consolidateStage(ctx, run, results)
	if err != nil {
		return uc.fail(ctx, run, domain.StageConsolidating, err)
	}

	trees, err := uc.synthesizeStage(ctx, run, bundle)
	if err != nil {
		return uc.fail(ctx, run, domain.StageSynthesizing, err)
	}

	if err := uc.runs.UpdateStage(ctx, run.ID, domain.StageDone, percentDone, ""); err != nil {
		return domain.StageDone, fmt.Errorf("set stage=done: %w", err)
	}
	summary := domain.SummarizeTrees(trees)
	uc.emit(ctx, domain.ProgressEvent{
		Type:         domain.EventRunComplete,
		RunID:        run.ID,
		UserID:       run.UserID,
		Stage:        domain.StageDone,
		Percent:      percentDone,
		TreesSummary: &summary,
	})
	return domain.StageDone, nil
}

func (uc *RunPipelineUseCase) extractStage(ctx context.Context, run *domain.Run) ([]domain.ExtractionResult, error) {
	stageStart := time.Now()
	defer func() {
		uc.metrics.ObserveStage(domain.StageExtracting, time.Since(stageStart))
	}()

	if err := uc.runs.UpdateStage(ctx, run.ID, domain.StageExtracting, percentExtractStart, ""); err != nil {
		return nil, fmt.Errorf("set stage=extracting: %w", err)
	}
	uc.emit(ctx, domain.ProgressEvent{
		Type:    domain.EventStageProgress,
		RunID:   run.ID,
		UserID:  run.UserID,
		Stage:   domain.StageExtracting,
		Percent: percentExtractStart,
	})

	assets, err := uc.assets.ListByIDs(ctx, run.UserID, run.AssetIDs)
	if err != nil {
		return nil, fmt.Errorf("load run assets: %w", err)
	}

	js := newJoinSet(run.AssetIDs)
	for i := range assets {
		go uc.extractBranch(ctx, run, js, assets[i])
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-js.wait():
	}

	results := js.ordered()
	uc.emit(ctx, domain.ProgressEvent{
		Type:    domain.EventStageComplete,
		RunID:   run.ID,
		UserID:  run.UserID,
		Stage:   domain.StageExtracting,
		Percent: percentExtractEnd,
	})
	return results, nil
}

// extractBranch runs one extraction invocation. Derived assets discovered by
// the extractor are registered in the join set atomically with this branch's
// completion, then persisted and dispatched as new branches.
func (uc *RunPipelineUseCase) extractBranch(ctx context.Context, run *domain.Run, js *joinSet, asset domain.Asset) {
	uc.metrics.StartExtraction()

	result, err := uc.extractOne(ctx, &asset)
	uc.metrics.FinishExtraction(asset.Modality, err)

	if err != nil {
		extractErr := &domain.ExtractionError{AssetID: asset.ID, Modality: asset.Modality, Cause: err}
		uc.logger.Warn("extraction branch failed",
			slog.String("run_id", run.ID),
			slog.String("asset_id", asset.ID),
			slog.String("modality", string(asset.Modality)),
			slog.String("error", err.Error()))
		if updErr := uc.assets.UpdateStatus(ctx, asset.ID, domain.AssetError, err.Error()); updErr != nil {
			uc.logger.Error("mark asset failed", slog.String("asset_id", asset.ID), slog.String("error", updErr.Error()))
		}
		js.complete(asset.ID, nil, nil)
		uc.emitExtractionProgress(ctx, run, js, asset.Modality, extractErr)
		return
	}

	derived := result.DerivedAssets
	derivedIDs := make([]string, len(derived))
	for i := range derived {
		derivedIDs[i] = derived[i].ID
	}
	js.complete(asset.ID, result, derivedIDs)

	if updErr := uc.assets.UpdateStatus(ctx, asset.ID, domain.AssetExtracted, ""); updErr != nil {
		uc.logger.Error("mark asset extracted", slog.String("asset_id", asset.ID), slog.String("error", updErr.Error()))
	}
	uc.emitExtractionProgress(ctx, run, js, asset.Modality, nil)

	for i := range derived {
		da := derived[i]
		if err := uc.assets.Create(ctx, &da); err != nil {
			uc.logger.Error("persist derived asset", slog.String("asset_id", da.ID), slog.String("error", err.Error()))
		}
		go uc.extractBranch(ctx, run, js, da)
	}
}

func (uc *RunPipelineUseCase) extractOne(ctx context.Context, asset *domain.Asset) (*domain.ExtractionResult, error) {
	extractor, ok := uc.extractors[asset.Modality]
	if !ok {
		return nil, fmt.Errorf("no extractor for modality %s", asset.Modality)
	}
	callCtx, cancel := context.WithTimeout(ctx, uc.extractTimeout)
	defer cancel()
	return extractor.Extract(callCtx, asset)
}

func (uc *RunPipelineUseCase) emitExtractionProgress(ctx context.Context, run *domain.Run, js *joinSet, modality domain.Modality, extractErr error) {
	completed, total := js.progress()
	percent := percentExtractStart
	if total > 0 {
		percent += (percentExtractEnd - percentExtractStart) * completed / total
	}
	if err := uc.runs.UpdateStage(ctx, run.ID, domain.StageExtracting, percent, ""); err != nil {
		uc.logger.Error("update run percent", slog.String("run_id", run.ID), slog.String("error", err.Error()))
	}

	event := domain.ProgressEvent{
		Type:     domain.EventStageProgress,
		RunID:    run.ID,
		UserID:   run.UserID,
		Stage:    domain.StageExtracting,
		Percent:  percent,
		Modality: modality,
	}
	if extractErr != nil {
		event.Message = extractErr.Error()
	}
	uc.emit(ctx, event)
}

func (uc *RunPipelineUseCase) consolidateStage(ctx context.Context, run *domain.Run, results []domain.ExtractionResult) (*domain.ContentBundle, error) {
	stageStart := time.Now()
	defer func() {
		uc.metrics.ObserveStage(domain.StageConsolidating, time.Since(stageStart))
	}()

	if err := uc.runs.UpdateStage(ctx, run.ID, domain.StageConsolidating, percentConsolidated, ""); err != nil {
		return nil, fmt.Errorf("set stage=consolidating: %w", err)
	}
	uc.emit(ctx, domain.ProgressEvent{
		Type:    domain.EventStageProgress,
		RunID:   run.ID,
		UserID:  run.UserID,
		Stage:   domain.StageConsolidating,
		Percent: percentConsolidated,
	})

	bundle, err := uc.consolidator.Consolidate(run.ID, run.UserID, results)
	if err != nil {
		return nil, err
	}
	if err := uc.bundles.SaveContentBundle(ctx, bundle); err != nil {
		return nil, fmt.Errorf("persist content bundle: %w", err)
	}
	uc.emit(ctx, domain.ProgressEvent{
		Type:    domain.EventStageComplete,
		RunID:   run.ID,
		UserID:  run.UserID,
		Stage:   domain.StageConsolidating,
		Percent: percentConsolidated,
	})
	return bundle, nil
}

func (uc *RunPipelineUseCase) synthesizeStage(ctx context.Context, run *domain.Run, bundle *domain.ContentBundle) ([]domain.KnowledgeTree, error) {
	stageStart := time.Now()
	defer func() {
		uc.metrics.ObserveStage(domain.StageSynthesizing, time.Since(stageStart))
	}()

	if err := uc.runs.UpdateStage(ctx, run.ID, domain.StageSynthesizing, percentSynthesizing, ""); err != nil {
		return nil, fmt.Errorf("set stage=synthesizing: %w", err)
	}
	uc.emit(ctx, domain.ProgressEvent{
		Type:    domain.EventStageProgress,
		RunID:   run.ID,
		UserID:  run.UserID,
		Stage:   domain.StageSynthesizing,
		Percent: percentSynthesizing,
	})

	prompts, err := uc.trees.LoadExistingQuestionPrompts(ctx, run.UserID)
	if err != nil {
		return nil, fmt.Errorf("load existing prompts: %w", err)
	}

	trees, err := uc.synthesizer.Synthesize(ctx, bundle, prompts)
	if err != nil {
		return nil, err
	}
	if err := uc.trees.SaveKnowledgeTrees(ctx, trees); err != nil {
		return nil, fmt.Errorf("persist knowledge trees: %w", err)
	}

	if uc.projector != nil {
		if err := uc.projector.ProjectTrees(ctx, trees); err != nil {
			uc.logger.Warn("graph projection failed", slog.String("run_id", run.ID), slog.String("error", err.Error()))
		}
	}

	uc.emit(ctx, domain.ProgressEvent{
		Type:    domain.EventStageComplete,
		RunID:   run.ID,
		UserID:  run.UserID,
		Stage:   domain.StageSynthesizing,
		Percent: percentPersisted,
	})
	return trees, nil
}

// fail records the terminal failure and emits the error event. The update
// runs on a fresh context so cancellation does not leave the run dangling
// in a non-terminal stage.
func (uc *RunPipelineUseCase) fail(ctx context.Context, run *domain.Run, stage domain.RunStage, cause error) (domain.RunStage, error) {
	uc.logger.Error("run failed",
		slog.String("run_id", run.ID),
		slog.String("stage", string(stage)),
		slog.String("error", cause.Error()))

	failCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		failCtx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}

	msg := fmt.Sprintf("%s: %v", stage, cause)
	if err := uc.runs.UpdateStage(failCtx, run.ID, domain.StageFailed, 0, msg); err != nil {
		return domain.StageFailed, errors.Join(cause, fmt.Errorf("mark run failed: %w", err))
	}
	uc.emit(failCtx, domain.ProgressEvent{
		Type:   domain.EventRunError,
		RunID:  run.ID,
		UserID: run.UserID,
		Stage:  stage,
		Error:  msg,
	})
	return domain.StageFailed, cause
}

func (uc *RunPipelineUseCase) emit(ctx context.Context, event domain.ProgressEvent) {
	event.Timestamp = time.Now().UTC()
	if err := uc.progress.Emit(ctx, event); err != nil {
		uc.logger.Warn("emit progress event",
			slog.String("run_id", event.RunID),
			slog.String("type", string(event.Type)),
			slog.String("error", err.Error()))
	}
}
