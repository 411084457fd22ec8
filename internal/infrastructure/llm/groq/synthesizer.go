package groq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/studypath/studypath-backend/internal/core/domain"
)

// ProposeForest asks the synthesis model for a candidate forest. The reply
// must be a JSON array; a single bare tree object is tolerated and wrapped.
func (c *Client) ProposeForest(ctx context.Context, content string, maxTrees int) ([]domain.RawTree, error) {
	raw, err := c.complete(ctx, c.synthesisModel, []chatMessage{
		{Role: "system", Content: proposeForestSystem},
		{Role: "user", Content: proposeForestPrompt(content, maxTrees)},
	}, false, "propose_forest")
	if err != nil {
		return nil, err
	}

	arr := extractJSONArray(raw)
	var trees []domain.RawTree
	if err := json.Unmarshal([]byte(arr), &trees); err != nil {
		var single domain.RawTree
		if err2 := json.Unmarshal([]byte(extractJSONObject(raw)), &single); err2 != nil {
			return nil, fmt.Errorf("parse forest response: %w", err)
		}
		trees = []domain.RawTree{single}
	}
	if len(trees) == 0 {
		return nil, fmt.Errorf("forest response empty")
	}
	return trees, nil
}

// GenerateQuestion asks for one multiple-choice question for a concept.
func (c *Client) GenerateQuestion(ctx context.Context, concept string, ancestors []string, level int, content string) (*domain.Question, error) {
	raw, err := c.complete(ctx, c.synthesisModel, []chatMessage{
		{Role: "system", Content: generateQuestionSystem},
		{Role: "user", Content: generateQuestionPrompt(concept, ancestors, level, content)},
	}, true, "generate_question")
	if err != nil {
		return nil, err
	}

	var q domain.Question
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &q); err != nil {
		return nil, fmt.Errorf("parse question response: %w", err)
	}
	if err := validateQuestion(&q); err != nil {
		return nil, err
	}
	return &q, nil
}

func validateQuestion(q *domain.Question) error {
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("question prompt empty")
	}
	if len(q.Options) != 4 {
		return fmt.Errorf("question has %d options, want 4", len(q.Options))
	}
	for _, key := range []string{"A", "B", "C", "D"} {
		if _, ok := q.Options[key]; !ok {
			return fmt.Errorf("question missing option %s", key)
		}
	}
	if _, ok := q.Options[q.CorrectOption]; !ok {
		return fmt.Errorf("correct option %q not among options", q.CorrectOption)
	}
	return nil
}
