package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/studypath/studypath-backend/internal/core/domain"
	"github.com/studypath/studypath-backend/internal/core/ports"
)

// hardDepthCap bounds traversal even when the configured maximum is raised;
// proposals deeper than this are adversarial, not instructional.
const hardDepthCap = 32

// TreeSynthesizer turns a content bundle into validated knowledge trees.
// The capability's proposal is never trusted: levels are repaired, depth is
// clamped, and question prompts are checked against everything the user
// already owns before a tree is accepted.
type TreeSynthesizer struct {
	synth           ports.StructureSynthesizer
	maxDepth        int
	attempts        int
	limiter         *rate.Limiter
	questionTimeout time.Duration
	logger          *slog.Logger
	metrics         QuestionMetrics
}

// QuestionMetrics receives the outcome of every question-generation call.
type QuestionMetrics interface {
	RecordQuestion(status string)
}

type noopQuestionMetrics struct{}

func (noopQuestionMetrics) RecordQuestion(string) {}

type SynthesizerOptions struct {
	MaxDepth           int
	QuestionAttempts   int
	QuestionsPerSecond float64
	QuestionTimeout    time.Duration
	Metrics            QuestionMetrics
}

func NewTreeSynthesizer(synth ports.StructureSynthesizer, logger *slog.Logger, opts SynthesizerOptions) *TreeSynthesizer {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 5
	}
	if opts.MaxDepth > hardDepthCap {
		opts.MaxDepth = hardDepthCap
	}
	if opts.QuestionAttempts <= 0 {
		opts.QuestionAttempts = 1
	}
	if opts.QuestionsPerSecond <= 0 {
		opts.QuestionsPerSecond = 2
	}
	if opts.QuestionTimeout <= 0 {
		opts.QuestionTimeout = 30 * time.Second
	}
	if opts.Metrics == nil {
		opts.Metrics = noopQuestionMetrics{}
	}
	return &TreeSynthesizer{
		synth:           synth,
		maxDepth:        opts.MaxDepth,
		attempts:        opts.QuestionAttempts,
		limiter:         rate.NewLimiter(rate.Limit(opts.QuestionsPerSecond), 1),
		questionTimeout: opts.QuestionTimeout,
		logger:          logger,
		metrics:         opts.Metrics,
	}
}

// Synthesize proposes a forest for the bundle and promotes it to validated
// trees. Only total capability unavailability is an error; a malformed
// proposal is repaired and a failed question is skipped.
func (s *TreeSynthesizer) Synthesize(ctx context.Context, bundle *domain.ContentBundle, existingPrompts []string) ([]domain.KnowledgeTree, error) {
	content := bundle.RenderText()
	maxTrees := bundle.SourceCount()

	rawTrees, err := s.synth.ProposeForest(ctx, content, maxTrees)
	if err != nil {
		return nil, domain.WrapError(domain.ErrSynthesisUnavailable, "propose forest", err)
	}
	if len(rawTrees) > maxTrees {
		rawTrees = rawTrees[:maxTrees]
	}

	seenPrompts := make(map[string]struct{}, len(existingPrompts))
	for _, prompt := range existingPrompts {
		seenPrompts[domain.NormalizePrompt(prompt)] = struct{}{}
	}

	now := time.Now().UTC()
	trees := make([]domain.KnowledgeTree, 0, len(rawTrees))
	for _, raw := range rawTrees {
		root := s.promote(raw.Root)
		if root == nil {
			continue
		}
		rootConcept := raw.RootConcept
		if rootConcept == "" {
			rootConcept = root.Concept
		}

		tree := domain.KnowledgeTree{
			ID:          uuid.NewString(),
			RunID:       bundle.RunID,
			UserID:      bundle.UserID,
			RootConcept: rootConcept,
			Root:        root,
			CreatedAt:   now,
		}
		if err := s.attachQuestions(ctx, &tree, content, seenPrompts); err != nil {
			return nil, err
		}
		trees = append(trees, tree)
	}
	if len(trees) == 0 {
		return nil, domain.WrapError(domain.ErrSynthesisUnavailable, "promote forest", fmt.Errorf("proposal contained no usable tree"))
	}

	// Trees come back in the order their root concepts first appear in the
	// bundle; roots the text never mentions keep the proposal order.
	lowered := strings.ToLower(content)
	sort.SliceStable(trees, func(i, j int) bool {
		return rootConceptIndex(lowered, trees[i].RootConcept) < rootConceptIndex(lowered, trees[j].RootConcept)
	})
	return trees, nil
}

func rootConceptIndex(lowered, concept string) int {
	idx := strings.Index(lowered, strings.ToLower(concept))
	if idx < 0 {
		return math.MaxInt
	}
	return idx
}

// promote converts a raw proposal subtree into concept nodes. Levels are
// rewritten unconditionally: the root becomes level 1 and every child sits
// exactly one below its parent, whatever the proposal claimed. Branches past
// the depth limit are dropped with their subtrees.
func (s *TreeSynthesizer) promote(raw domain.RawNode) *domain.ConceptNode {
	if raw.Concept == "" {
		return nil
	}
	root := &domain.ConceptNode{
		ID:      uuid.NewString(),
		Concept: raw.Concept,
		Level:   1,
	}

	type frame struct {
		raw    *domain.RawNode
		parent *domain.ConceptNode
	}
	stack := make([]frame, 0, len(raw.Children))
	for i := len(raw.Children) - 1; i >= 0; i-- {
		stack = append(stack, frame{raw: &raw.Children[i], parent: root})
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if cur.raw.Concept == "" {
			continue
		}
		level := cur.parent.Level + 1
		if level > s.maxDepth {
			continue
		}
		node := &domain.ConceptNode{
			ID:      uuid.NewString(),
			Concept: cur.raw.Concept,
			Level:   level,
		}
		cur.parent.Children = append(cur.parent.Children, node)
		for i := len(cur.raw.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{raw: &cur.raw.Children[i], parent: node})
		}
	}
	return root
}

// attachQuestions walks the tree and asks the capability for one question
// per node, ancestors as context. A failed or duplicate question leaves the
// node bare; only caller cancellation stops the walk.
func (s *TreeSynthesizer) attachQuestions(ctx context.Context, tree *domain.KnowledgeTree, content string, seenPrompts map[string]struct{}) error {
	type frame struct {
		node      *domain.ConceptNode
		ancestors []string
	}
	stack := []frame{{node: tree.Root}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		question, err := s.generateQuestion(ctx, cur.node, cur.ancestors, content)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.metrics.RecordQuestion("failed")
			s.logger.Warn("question generation failed",
				slog.String("tree_id", tree.ID),
				slog.String("concept", cur.node.Concept),
				slog.String("error", err.Error()))
		} else {
			normalized := domain.NormalizePrompt(question.Prompt)
			if _, dup := seenPrompts[normalized]; dup {
				s.metrics.RecordQuestion("duplicate")
				s.logger.Debug("duplicate question discarded",
					slog.String("tree_id", tree.ID),
					slog.String("concept", cur.node.Concept))
			} else {
				seenPrompts[normalized] = struct{}{}
				cur.node.Question = question
				s.metrics.RecordQuestion("generated")
			}
		}

		childAncestors := append(append([]string(nil), cur.ancestors...), cur.node.Concept)
		for i := len(cur.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: cur.node.Children[i], ancestors: childAncestors})
		}
	}
	return nil
}

func (s *TreeSynthesizer) generateQuestion(ctx context.Context, node *domain.ConceptNode, ancestors []string, content string) (*domain.Question, error) {
	var lastErr error
	for attempt := 0; attempt < s.attempts; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		callCtx, cancel := context.WithTimeout(ctx, s.questionTimeout)
		question, err := s.synth.GenerateQuestion(callCtx, node.Concept, ancestors, node.Level, content)
		cancel()
		if err == nil {
			return question, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}
