package buffer

// Outcome identifies which pruning rule fired after an Add.
type Outcome int

const (
	// OutcomeNone means every event was inside the window.
	OutcomeNone Outcome = iota
	// OutcomeAnchored means stale events were dropped up to the nearest
	// snapshot preceding the window, which was kept as the new head.
	OutcomeAnchored
	// OutcomeTrimmed means stale events were dropped and the window itself
	// starts with a snapshot.
	OutcomeTrimmed
	// OutcomeCollapsed means every event was stale and the buffer was reduced
	// to the latest snapshot.
	OutcomeCollapsed
	// OutcomeCleared means every event was stale and no snapshot existed.
	OutcomeCleared
	// OutcomeUnanchored means no snapshot preceded the window, so the window
	// was cut back to its first snapshot, or emptied when it had none.
	OutcomeUnanchored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeAnchored:
		return "anchored"
	case OutcomeTrimmed:
		return "trimmed"
	case OutcomeCollapsed:
		return "collapsed"
	case OutcomeCleared:
		return "cleared"
	case OutcomeUnanchored:
		return "unanchored"
	default:
		return "unknown"
	}
}

// PruneResult reports what a prune pass removed.
type PruneResult struct {
	Outcome Outcome
	Dropped int
}

// Pruned reports whether any event was removed.
func (r PruneResult) Pruned() bool {
	return r.Dropped > 0
}
