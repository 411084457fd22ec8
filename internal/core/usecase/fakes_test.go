package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/studypath/studypath-backend/internal/core/domain"
)

type fakeRunRepo struct {
	mu     sync.Mutex
	runs   map[string]*domain.Run
	active bool
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{runs: make(map[string]*domain.Run)}
}

func (f *fakeRunRepo) Create(_ context.Context, run *domain.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *run
	f.runs[run.ID] = &cp
	return nil
}

func (f *fakeRunRepo) GetByID(_ context.Context, id string) (*domain.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrRunNotFound, "run lookup", errors.New(id))
	}
	cp := *run
	return &cp, nil
}

func (f *fakeRunRepo) UpdateStage(_ context.Context, id string, stage domain.RunStage, percent int, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return domain.WrapError(domain.ErrRunNotFound, "run stage update", errors.New(id))
	}
	run.Stage = stage
	run.Percent = percent
	run.Error = errMessage
	return nil
}

func (f *fakeRunRepo) HasActiveRun(context.Context, string) (bool, error) {
	return f.active, nil
}

type fakeAssetRepo struct {
	mu     sync.Mutex
	assets map[string]*domain.Asset
}

func newFakeAssetRepo(assets ...domain.Asset) *fakeAssetRepo {
	f := &fakeAssetRepo{assets: make(map[string]*domain.Asset)}
	for i := range assets {
		cp := assets[i]
		f.assets[cp.ID] = &cp
	}
	return f
}

func (f *fakeAssetRepo) Create(_ context.Context, asset *domain.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *asset
	f.assets[asset.ID] = &cp
	return nil
}

func (f *fakeAssetRepo) GetByID(_ context.Context, userID, id string) (*domain.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	asset, ok := f.assets[id]
	if !ok || asset.UserID != userID {
		return nil, domain.WrapError(domain.ErrAssetNotFound, "asset lookup", errors.New(id))
	}
	cp := *asset
	return &cp, nil
}

func (f *fakeAssetRepo) ListByIDs(ctx context.Context, userID string, ids []string) ([]domain.Asset, error) {
	out := make([]domain.Asset, 0, len(ids))
	for _, id := range ids {
		asset, err := f.GetByID(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *asset)
	}
	return out, nil
}

func (f *fakeAssetRepo) UpdateStatus(_ context.Context, id string, status domain.AssetStatus, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	asset, ok := f.assets[id]
	if !ok {
		return domain.WrapError(domain.ErrAssetNotFound, "asset status update", errors.New(id))
	}
	asset.Status = status
	asset.Error = errMessage
	return nil
}

func (f *fakeAssetRepo) status(id string) domain.AssetStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if asset, ok := f.assets[id]; ok {
		return asset.Status
	}
	return ""
}

type fakeBundleRepo struct {
	mu     sync.Mutex
	bundle *domain.ContentBundle
	saves  int
}

func (f *fakeBundleRepo) SaveContentBundle(_ context.Context, bundle *domain.ContentBundle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *bundle
	f.bundle = &cp
	f.saves++
	return nil
}

func (f *fakeBundleRepo) GetByRunID(_ context.Context, runID string) (*domain.ContentBundle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bundle == nil || f.bundle.RunID != runID {
		return nil, domain.WrapError(domain.ErrRunNotFound, "bundle lookup", errors.New(runID))
	}
	cp := *f.bundle
	return &cp, nil
}

type fakeTreeRepo struct {
	mu      sync.Mutex
	trees   []domain.KnowledgeTree
	prompts []string
}

func (f *fakeTreeRepo) SaveKnowledgeTrees(_ context.Context, trees []domain.KnowledgeTree) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trees = append(f.trees, trees...)
	for i := range trees {
		trees[i].Root.Walk(func(node *domain.ConceptNode) {
			if node.Question != nil {
				f.prompts = append(f.prompts, domain.NormalizePrompt(node.Question.Prompt))
			}
		})
	}
	return nil
}

func (f *fakeTreeRepo) ListByUser(_ context.Context, userID string) ([]domain.KnowledgeTree, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.KnowledgeTree
	for _, tree := range f.trees {
		if tree.UserID == userID {
			out = append(out, tree)
		}
	}
	return out, nil
}

func (f *fakeTreeRepo) LoadExistingQuestionPrompts(context.Context, string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...), nil
}

type fakeQuizRepo struct {
	mu   sync.Mutex
	last *domain.QuizAttempt
}

func (f *fakeQuizRepo) SaveQuizAttempt(_ context.Context, attempt *domain.QuizAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *attempt
	f.last = &cp
	return nil
}

func (f *fakeQuizRepo) LoadLastQuizAttempt(context.Context, string) (*domain.QuizAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		return nil, nil
	}
	cp := *f.last
	return &cp, nil
}

type fakeProgressSink struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (f *fakeProgressSink) Emit(_ context.Context, event domain.ProgressEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeProgressSink) all() []domain.ProgressEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ProgressEvent(nil), f.events...)
}

type fakeQueue struct {
	published []string
	err       error
}

func (f *fakeQueue) PublishRunRequested(_ context.Context, runID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, runID)
	return nil
}

func (f *fakeQueue) SubscribeRunRequested(context.Context, func(context.Context, string) error) error {
	return nil
}

// fakeExtractor serves one modality from scripted per-asset outcomes. When
// block is set, Extract parks until the channel is closed.
type fakeExtractor struct {
	modality domain.Modality
	results  map[string]*domain.ExtractionResult
	errs     map[string]error
	block    chan struct{}
}

func (f *fakeExtractor) Modality() domain.Modality {
	return f.modality
}

func (f *fakeExtractor) Extract(_ context.Context, asset *domain.Asset) (*domain.ExtractionResult, error) {
	if f.block != nil {
		<-f.block
	}
	if err, ok := f.errs[asset.ID]; ok {
		return nil, err
	}
	if result, ok := f.results[asset.ID]; ok {
		cp := *result
		return &cp, nil
	}
	return &domain.ExtractionResult{
		AssetID:  asset.ID,
		Modality: f.modality,
		Derived:  asset.IsDerived(),
		Fragments: []domain.Fragment{
			{Kind: domain.FragmentText, Text: "content of " + asset.ID},
		},
	}, nil
}

// fakeSynthesizer returns a scripted forest and generates questions from a
// queue of prompts, erroring when the queue runs dry.
type fakeSynthesizer struct {
	mu         sync.Mutex
	forest     []domain.RawTree
	forestErr  error
	prompts    []string
	questioned []string
	failAll    bool
}

func (f *fakeSynthesizer) ProposeForest(context.Context, string, int) ([]domain.RawTree, error) {
	if f.forestErr != nil {
		return nil, f.forestErr
	}
	return f.forest, nil
}

func (f *fakeSynthesizer) GenerateQuestion(_ context.Context, concept string, _ []string, _ int, _ string) (*domain.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questioned = append(f.questioned, concept)
	if f.failAll {
		return nil, errors.New("question generation down")
	}
	if len(f.prompts) == 0 {
		return nil, errors.New("no more prompts scripted")
	}
	prompt := f.prompts[0]
	f.prompts = f.prompts[1:]
	return &domain.Question{
		Prompt:        prompt,
		Options:       map[string]string{"A": "a", "B": "b", "C": "c", "D": "d"},
		CorrectOption: "A",
		Explanation:   "because",
	}, nil
}
