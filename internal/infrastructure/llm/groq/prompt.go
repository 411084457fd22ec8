package groq

import (
	"fmt"
	"strings"
)

const analyzeChunkSystem = `You are an expert study-material analyst. You receive a passage of learning
material and return a JSON object with exactly these keys:
  "summary": a dense restatement of the passage in plain prose,
  "topics": an array of 1-5 short topic names,
  "key_points": an array of the concrete facts a student must retain.
Return only JSON.`

const describeImageSystem = `You describe an image taken from study material. Return a JSON object with
exactly these keys:
  "description": what the image shows and what it teaches,
  "topics": an array of 1-5 short topic names,
  "key_points": an array of facts a student can learn from the image.
If the image carries no instructional content, say so in "description" and
leave the arrays empty. Return only JSON.`

const proposeForestSystem = `You are an expert curriculum designer. From the supplied study material you
build knowledge trees: hierarchies of concepts ordered from the most general
to the most specific. Return only JSON.`

func proposeForestPrompt(content string, maxTrees int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `Build at most %d knowledge trees from the study material below. Each tree
covers one independent subject area; do not split a single coherent subject
across trees.

Return a JSON array. Each element is an object:
  {"root_concept": "<subject name>", "tree": <node>}
where <node> is:
  {"concept": "<concept name>", "level": <int>, "children": [<node>, ...]}

The root node has level 1; each child is exactly one level deeper than its
parent. Keep concept names short and specific. Do not include questions.

Study material:
%s`, maxTrees, content)
	return sb.String()
}

const generateQuestionSystem = `You write multiple-choice assessment questions for study material. Return a
JSON object with exactly these keys:
  "prompt": the question text,
  "options": an object with keys "A", "B", "C", "D" and answer texts,
  "correct_option": one of "A", "B", "C", "D",
  "explanation": one or two sentences on why the correct answer is right.
Return only JSON.`

func generateQuestionPrompt(concept string, ancestors []string, level int, content string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write one multiple-choice question testing understanding of the concept %q.\n", concept)
	if len(ancestors) > 0 {
		fmt.Fprintf(&sb, "The concept sits under: %s.\n", strings.Join(ancestors, " > "))
	}
	switch {
	case level <= 1:
		sb.WriteString("This is a top-level concept; ask a broad, foundational question.\n")
	case level == 2:
		sb.WriteString("Ask a question of moderate specificity.\n")
	default:
		sb.WriteString("This is a deep concept; ask a detailed, specific question.\n")
	}
	sb.WriteString("Ground the question strictly in this study material:\n")
	sb.WriteString(content)
	return sb.String()
}
