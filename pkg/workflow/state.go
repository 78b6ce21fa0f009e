package workflow

// State is a step of the challenge-then-integrity workflow.
type State string

// Workflow states. A run starts in StateAwaitingChallenge and ends
// in StateComplete or StateFailed.
const (
	StateAwaitingChallenge State = "awaiting_challenge"
	StateAwaitingIntegrity State = "awaiting_integrity"
	StateComplete          State = "complete"
	StateFailed            State = "failed"
)

// IsTerminal reports whether no further transition can happen.
func (s State) IsTerminal() bool {
	switch s {
	case StateComplete, StateFailed:
		return true
	}
	return false
}

// TransitionFunc observes state changes of a run.
type TransitionFunc func(from, to State)
