package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/studypath/studypath-backend/internal/core/domain"
)

func TestStartRunRejectsEmptyAssetList(t *testing.T) {
	uc := NewStartRunUseCase(newFakeRunRepo(), newFakeAssetRepo(), &fakeQueue{})

	_, err := uc.StartRun(context.Background(), "u1", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestStartRunRejectsActiveRun(t *testing.T) {
	runs := newFakeRunRepo()
	runs.active = true
	assets := newFakeAssetRepo(domain.Asset{ID: "a1", UserID: "u1"})
	uc := NewStartRunUseCase(runs, assets, &fakeQueue{})

	_, err := uc.StartRun(context.Background(), "u1", []string{"a1"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !domain.IsKind(err, domain.ErrRunAlreadyInProgress) {
		t.Fatalf("expected ErrRunAlreadyInProgress, got %v", err)
	}
}

func TestStartRunRejectsForeignAsset(t *testing.T) {
	assets := newFakeAssetRepo(domain.Asset{ID: "a1", UserID: "someone-else"})
	uc := NewStartRunUseCase(newFakeRunRepo(), assets, &fakeQueue{})

	_, err := uc.StartRun(context.Background(), "u1", []string{"a1"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !domain.IsKind(err, domain.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestStartRunPersistsAndQueues(t *testing.T) {
	runs := newFakeRunRepo()
	assets := newFakeAssetRepo(domain.Asset{ID: "a1", UserID: "u1"})
	queue := &fakeQueue{}
	uc := NewStartRunUseCase(runs, assets, queue)

	runID, err := uc.StartRun(context.Background(), "u1", []string{"a1"})
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if len(queue.published) != 1 || queue.published[0] != runID {
		t.Errorf("queue published %v, want [%s]", queue.published, runID)
	}

	run, err := runs.GetByID(context.Background(), runID)
	if err != nil {
		t.Fatalf("run not persisted: %v", err)
	}
	if run.Stage != domain.StagePending {
		t.Errorf("run stage = %s, want pending", run.Stage)
	}
}

func TestStartRunMarksFailedWhenQueueDown(t *testing.T) {
	runs := newFakeRunRepo()
	assets := newFakeAssetRepo(domain.Asset{ID: "a1", UserID: "u1"})
	queue := &fakeQueue{err: errors.New("nats down")}
	uc := NewStartRunUseCase(runs, assets, queue)

	_, err := uc.StartRun(context.Background(), "u1", []string{"a1"})
	if err == nil {
		t.Fatal("expected error")
	}

	for _, run := range runs.runs {
		if run.Stage != domain.StageFailed {
			t.Errorf("run stage = %s, want failed", run.Stage)
		}
	}
}
