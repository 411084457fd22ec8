package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/studypath/studypath-backend/internal/core/domain"
)

// Projector mirrors synthesized knowledge trees into Neo4j for graph
// exploration. The relational store stays authoritative; projection runs
// after trees are committed and its failures are logged, never fatal.
type Projector struct {
	driver neo4j.DriverWithContext
}

func New(ctx context.Context, uri, user, password string) (*Projector, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return &Projector{driver: driver}, nil
}

func (p *Projector) Close(ctx context.Context) error {
	return p.driver.Close(ctx)
}

func (p *Projector) ProjectTrees(ctx context.Context, trees []domain.KnowledgeTree) error {
	session := p.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	for i := range trees {
		tree := &trees[i]
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			return nil, projectTree(ctx, tx, tree)
		})
		if err != nil {
			return fmt.Errorf("project tree %s: %w", tree.ID, err)
		}
	}
	return nil
}

func projectTree(ctx context.Context, tx neo4j.ManagedTransaction, tree *domain.KnowledgeTree) error {
	_, err := tx.Run(ctx, `
MERGE (t:Tree {id: $id})
SET t.user_id = $user_id, t.run_id = $run_id, t.root_concept = $root_concept
`, map[string]any{
		"id":           tree.ID,
		"user_id":      tree.UserID,
		"run_id":       tree.RunID,
		"root_concept": tree.RootConcept,
	})
	if err != nil {
		return err
	}

	type edge struct {
		parent *domain.ConceptNode
		node   *domain.ConceptNode
	}
	stack := []edge{{parent: nil, node: tree.Root}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		params := map[string]any{
			"id":           cur.node.ID,
			"tree_id":      tree.ID,
			"concept":      cur.node.Concept,
			"level":        cur.node.Level,
			"has_question": cur.node.Question != nil,
		}
		if cur.parent == nil {
			_, err = tx.Run(ctx, `
MATCH (t:Tree {id: $tree_id})
MERGE (n:Concept {id: $id})
SET n.concept = $concept, n.level = $level, n.has_question = $has_question
MERGE (t)-[:ROOT]->(n)
`, params)
		} else {
			params["parent_id"] = cur.parent.ID
			_, err = tx.Run(ctx, `
MATCH (p:Concept {id: $parent_id})
MERGE (n:Concept {id: $id})
SET n.concept = $concept, n.level = $level, n.has_question = $has_question
MERGE (p)-[:HAS_CHILD]->(n)
`, params)
		}
		if err != nil {
			return err
		}
		for i := len(cur.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, edge{parent: cur.node, node: cur.node.Children[i]})
		}
	}
	return nil
}
