package usecase

import (
	"context"
	"testing"

	"github.com/studypath/studypath-backend/internal/core/domain"
)

func TestSaveAttemptRecomputesScore(t *testing.T) {
	uc := NewQuizUseCase(&fakeQuizRepo{})

	attempt := &domain.QuizAttempt{
		UserID:  "u1",
		TreeIDs: []string{"t1"},
		Answers: []domain.QuizAnswer{
			{TreeID: "t1", NodeID: "n1", ChosenOption: "A", Correct: true},
			{TreeID: "t1", NodeID: "n2", ChosenOption: "B", Correct: false},
			{TreeID: "t1", NodeID: "n3", ChosenOption: "C", Correct: true},
		},
		// Client-claimed score is ignored.
		Correct: 99,
		Total:   99,
	}
	saved, err := uc.SaveAttempt(context.Background(), attempt)
	if err != nil {
		t.Fatalf("SaveAttempt: %v", err)
	}
	if saved.Correct != 2 || saved.Total != 3 {
		t.Errorf("score = %d/%d, want 2/3", saved.Correct, saved.Total)
	}
	if saved.ID == "" {
		t.Error("attempt id not assigned")
	}
}

func TestSaveAttemptRejectsEmptyAnswers(t *testing.T) {
	uc := NewQuizUseCase(&fakeQuizRepo{})

	_, err := uc.SaveAttempt(context.Background(), &domain.QuizAttempt{UserID: "u1"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLastAttemptNilWhenNoneRecorded(t *testing.T) {
	uc := NewQuizUseCase(&fakeQuizRepo{})

	attempt, err := uc.LastAttempt(context.Background(), "u1")
	if err != nil {
		t.Fatalf("LastAttempt: %v", err)
	}
	if attempt != nil {
		t.Errorf("expected nil attempt, got %+v", attempt)
	}
}
