package domain

import (
	"strings"
	"time"
)

// RawNode is the strict tagged form of what the structure-synthesis
// capability returns. It is validated and level-repaired before promotion to
// ConceptNode; untyped maps never travel through the pipeline.
type RawNode struct {
	Concept  string    `json:"concept"`
	Level    int       `json:"level"`
	Children []RawNode `json:"children"`
}

// RawTree is one proposed tree of a candidate forest.
type RawTree struct {
	RootConcept string  `json:"root_concept"`
	Root        RawNode `json:"tree"`
}

// Question is a four-option assessment question attached to a concept node.
type Question struct {
	Prompt        string            `json:"prompt"`
	Options       map[string]string `json:"options"`
	CorrectOption string            `json:"correct_option"`
	Explanation   string            `json:"explanation"`
}

// ConceptNode is a validated node of a knowledge tree. Every child's level
// is exactly the parent's level plus one; a nil Question is a permitted
// degraded state, not an error.
type ConceptNode struct {
	ID       string         `json:"id"`
	Concept  string         `json:"concept"`
	Level    int            `json:"level"`
	Question *Question      `json:"question,omitempty"`
	Children []*ConceptNode `json:"children"`
}

// Walk visits the node and its descendants pre-order without recursion.
func (n *ConceptNode) Walk(visit func(node *ConceptNode)) {
	if n == nil {
		return
	}
	stack := []*ConceptNode{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(cur)
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
}

// NodeCount returns the number of nodes in the subtree rooted at n.
func (n *ConceptNode) NodeCount() int {
	count := 0
	n.Walk(func(*ConceptNode) { count++ })
	return count
}

// QuestionCount returns the number of nodes carrying a question.
func (n *ConceptNode) QuestionCount() int {
	count := 0
	n.Walk(func(node *ConceptNode) {
		if node.Question != nil {
			count++
		}
	})
	return count
}

// Depth returns the maximum level present in the subtree rooted at n.
func (n *ConceptNode) Depth() int {
	max := 0
	n.Walk(func(node *ConceptNode) {
		if node.Level > max {
			max = node.Level
		}
	})
	return max
}

// KnowledgeTree is one synthesized concept tree owned by a user. The root
// node is always level 1.
type KnowledgeTree struct {
	ID          string       `json:"id"`
	RunID       string       `json:"run_id"`
	UserID      string       `json:"user_id"`
	RootConcept string       `json:"root_concept"`
	Root        *ConceptNode `json:"root"`
	CreatedAt   time.Time    `json:"created_at"`
}

// TreesSummary is the completion payload attached to a run-complete event.
type TreesSummary struct {
	TreeCount     int `json:"tree_count"`
	NodeCount     int `json:"node_count"`
	QuestionCount int `json:"question_count"`
}

func SummarizeTrees(trees []KnowledgeTree) TreesSummary {
	summary := TreesSummary{TreeCount: len(trees)}
	for i := range trees {
		summary.NodeCount += trees[i].Root.NodeCount()
		summary.QuestionCount += trees[i].Root.QuestionCount()
	}
	return summary
}

// NormalizePrompt reduces a question prompt to the form used for the global
// per-user uniqueness check: lower-cased with whitespace runs collapsed.
func NormalizePrompt(prompt string) string {
	return strings.Join(strings.Fields(strings.ToLower(prompt)), " ")
}
