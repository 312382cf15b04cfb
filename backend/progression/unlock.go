package progression

// LessonState is the computed navigation state of one lesson.
type LessonState struct {
	LessonID  uint
	Unlocked  bool
	Completed bool
}

// UnlockLessons computes the unlock flag for each lesson of a course.
// orderedIDs must be sorted by sequence order. The first lesson is always
// unlocked; lesson i unlocks once lesson i-1 is completed. A finished course
// exposes everything for review.
func UnlockLessons(orderedIDs []uint, completed map[uint]bool, availability Availability) []LessonState {
	states := make([]LessonState, len(orderedIDs))
	for i, id := range orderedIDs {
		unlocked := i == 0 || availability == Finished
		if !unlocked {
			unlocked = completed[orderedIDs[i-1]]
		}
		states[i] = LessonState{
			LessonID:  id,
			Unlocked:  unlocked,
			Completed: completed[id],
		}
	}
	return states
}
