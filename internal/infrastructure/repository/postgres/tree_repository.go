package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/studypath/studypath-backend/internal/core/domain"
)

type TreeRepository struct {
	db *sql.DB
}

func NewTreeRepository(db *sql.DB) *TreeRepository {
	return &TreeRepository{db: db}
}

// SaveKnowledgeTrees persists a run's forest and records every question
// prompt in the per-user uniqueness table, all in one transaction.
func (r *TreeRepository) SaveKnowledgeTrees(ctx context.Context, trees []domain.KnowledgeTree) error {
	if len(trees) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin trees tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i := range trees {
		tree := &trees[i]
		payload, err := json.Marshal(tree.Root)
		if err != nil {
			return fmt.Errorf("marshal tree %s: %w", tree.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO knowledge_trees (id, run_id, user_id, root_concept, tree, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO NOTHING
`,
			tree.ID, tree.RunID, tree.UserID, tree.RootConcept, payload, tree.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert knowledge tree: %w", err)
		}

		if err := insertQuestionPrompts(ctx, tx, tree); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit trees tx: %w", err)
	}
	return nil
}

func insertQuestionPrompts(ctx context.Context, tx *sql.Tx, tree *domain.KnowledgeTree) error {
	var insertErr error
	now := time.Now().UTC()
	tree.Root.Walk(func(node *domain.ConceptNode) {
		if insertErr != nil || node.Question == nil {
			return
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO question_prompts (user_id, normalized_prompt, tree_id, created_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (user_id, normalized_prompt) DO NOTHING
`,
			tree.UserID, domain.NormalizePrompt(node.Question.Prompt), tree.ID, now,
		)
		if err != nil {
			insertErr = fmt.Errorf("insert question prompt: %w", err)
		}
	})
	return insertErr
}

func (r *TreeRepository) ListByUser(ctx context.Context, userID string) ([]domain.KnowledgeTree, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, run_id, user_id, root_concept, tree, created_at
FROM knowledge_trees
WHERE user_id = $1
ORDER BY created_at DESC, id
`, userID)
	if err != nil {
		return nil, fmt.Errorf("query knowledge trees: %w", err)
	}
	defer rows.Close()

	var trees []domain.KnowledgeTree
	for rows.Next() {
		var tree domain.KnowledgeTree
		var payload []byte
		if err := rows.Scan(&tree.ID, &tree.RunID, &tree.UserID, &tree.RootConcept, &payload, &tree.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan knowledge tree: %w", err)
		}
		if err := json.Unmarshal(payload, &tree.Root); err != nil {
			return nil, fmt.Errorf("unmarshal tree payload: %w", err)
		}
		trees = append(trees, tree)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate knowledge trees: %w", err)
	}
	return trees, nil
}

// LoadExistingQuestionPrompts returns the normalized prompts of every
// question the user already owns.
func (r *TreeRepository) LoadExistingQuestionPrompts(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT normalized_prompt FROM question_prompts WHERE user_id = $1
`, userID)
	if err != nil {
		return nil, fmt.Errorf("query question prompts: %w", err)
	}
	defer rows.Close()

	var prompts []string
	for rows.Next() {
		var prompt string
		if err := rows.Scan(&prompt); err != nil {
			return nil, fmt.Errorf("scan question prompt: %w", err)
		}
		prompts = append(prompts, prompt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate question prompts: %w", err)
	}
	return prompts, nil
}
