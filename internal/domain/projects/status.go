package projects

// CanTransition reports whether a project may move from one status to another.
// draft is only ever the creation default; completed and failed may go back to
// processing for a re-run.
func CanTransition(from, to Status) bool {
	switch to {
	case StatusProcessing:
		return from == StatusDraft || from == StatusProcessing || from == StatusCompleted || from == StatusFailed
	case StatusCompleted, StatusFailed:
		return from == StatusProcessing
	default:
		return false
	}
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}
