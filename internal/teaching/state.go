package teaching

// State is a teaching state machine state. Some states only exist inside a
// turn (Explaining, Checking, MoreExamples, DeepenExplanation, NextPoint);
// the others wait for learner input.
type State int

const (
	StateUnitOpening State = iota
	StateWaitUnitStart
	StateExplaining
	StateWaitingInput
	StateChecking
	StateAwaitingRetry
	StateMoreExamples
	StateRemediation
	StateConfirmAdvance
	StateDeepenExplanation
	StatePostFailureChoice
	StateNextPoint
	StateUnitComplete // all points taught; waiting for the next-unit choice
	StateClosed       // session ended
)

var stateNames = [...]string{
	StateUnitOpening:       "UNIT_OPENING",
	StateWaitUnitStart:     "WAIT_UNIT_START",
	StateExplaining:        "EXPLAINING",
	StateWaitingInput:      "WAITING_INPUT",
	StateChecking:          "CHECKING",
	StateAwaitingRetry:     "AWAITING_RETRY",
	StateMoreExamples:      "MORE_EXAMPLES",
	StateRemediation:       "REMEDIATION",
	StateConfirmAdvance:    "CONFIRM_ADVANCE",
	StateDeepenExplanation: "DEEPEN_EXPLANATION",
	StatePostFailureChoice: "POST_FAILURE_CHOICE",
	StateNextPoint:         "NEXT_POINT",
	StateUnitComplete:      "UNIT_COMPLETE",
	StateClosed:            "CLOSED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// Waiting reports whether the state waits for learner input between turns.
func (s State) Waiting() bool {
	switch s {
	case StateWaitUnitStart, StateWaitingInput, StateAwaitingRetry, StateRemediation,
		StateConfirmAdvance, StatePostFailureChoice, StateUnitComplete:
		return true
	}
	return false
}

// Lesson is the turn-local state of the unit being taught. It is a plain
// value so a copy taken before a turn restores the machine exactly.
type Lesson struct {
	State      State
	PointIndex int
	// Attempts counts comprehension checks on the current point.
	Attempts int
	// Followups counts extra examples and deeper explanations on the current point.
	Followups int
	// Remediations counts remediations given on the current point.
	Remediations int
	// Question is the pending comprehension question.
	Question string
	// Explanation is the last explanation text, passed back to content calls.
	Explanation string
	// Degraded is set once a content call fell back to a generic prompt.
	Degraded bool
}

// resetPoint clears the per-point counters.
func (l *Lesson) resetPoint() {
	l.Attempts = 0
	l.Followups = 0
	l.Remediations = 0
	l.Question = ""
	l.Explanation = ""
}
