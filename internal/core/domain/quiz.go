package domain

import "time"

// QuizAnswer records one answered node of a quiz-taking session.
type QuizAnswer struct {
	TreeID       string `json:"tree_id"`
	NodeID       string `json:"node_id"`
	ChosenOption string `json:"chosen_option"`
	Correct      bool   `json:"correct"`
}

// QuizAttempt is one completed quiz session over a fixed set of knowledge
// trees. Only the most recent attempt is served back to the user.
type QuizAttempt struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	TreeIDs   []string     `json:"tree_ids"`
	Answers   []QuizAnswer `json:"answers"`
	Correct   int          `json:"correct"`
	Total     int          `json:"total"`
	CreatedAt time.Time    `json:"created_at"`
}

// Score recomputes correct/total from the recorded answers.
func (a *QuizAttempt) Score() (correct, total int) {
	for _, ans := range a.Answers {
		total++
		if ans.Correct {
			correct++
		}
	}
	return correct, total
}
