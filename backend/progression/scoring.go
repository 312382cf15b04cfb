package progression

// AnswerSheet maps a question id to the option ids the learner selected.
type AnswerSheet map[uint][]uint

// QuestionKey is the authoritative correct-option set for one question,
// always read from storage, never from client input.
type QuestionKey struct {
	QuestionID       uint
	CorrectOptionIDs []uint
}

// Score counts fully correct questions. A question scores iff the submitted
// option set equals the correct set exactly; supersets and subsets count as
// wrong, selection order does not matter, and there is no partial credit.
func Score(key []QuestionKey, answers AnswerSheet) int {
	score := 0
	for _, q := range key {
		if exactMatch(q.CorrectOptionIDs, answers[q.QuestionID]) {
			score++
		}
	}
	return score
}

func exactMatch(correct, selected []uint) bool {
	if len(correct) == 0 {
		return false
	}
	set := make(map[uint]bool, len(selected))
	for _, id := range selected {
		set[id] = true
	}
	if len(set) != len(correct) {
		return false
	}
	for _, id := range correct {
		if !set[id] {
			return false
		}
	}
	return true
}

// QuizPassed applies a quiz's absolute pass mark.
func QuizPassed(score, passMark int) bool {
	return score >= passMark
}

// ExamPassed applies the 70% exam cutoff. Exactly 70% passes; integer
// arithmetic avoids any floating-point edge at the boundary.
func ExamPassed(score, total int) bool {
	return total > 0 && score*10 >= total*7
}
