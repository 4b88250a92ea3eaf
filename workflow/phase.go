package workflow

// Phase is a state of the generate → compile → repair → run state machine.
type Phase string

const (
	PhaseDrafted     Phase = "DRAFTED"
	PhaseCompiling   Phase = "COMPILING"
	PhaseCompiled    Phase = "COMPILED"
	PhaseNeedsRepair Phase = "NEEDS_REPAIR"
	PhaseRepairing   Phase = "REPAIRING"
	PhaseExhausted   Phase = "EXHAUSTED"
	PhaseRunning     Phase = "RUNNING"
	PhasePassed      Phase = "PASSED"
	PhaseFailed      Phase = "FAILED"
	PhaseErrored     Phase = "ERRORED"
)

// transitions lists the allowed successors of each phase. Any non-terminal
// phase may also move to ERRORED.
var transitions = map[Phase][]Phase{
	"":               {PhaseDrafted},
	PhaseDrafted:     {PhaseCompiling},
	PhaseCompiling:   {PhaseCompiled, PhaseNeedsRepair, PhaseExhausted},
	PhaseNeedsRepair: {PhaseRepairing},
	PhaseRepairing:   {PhaseCompiling},
	PhaseCompiled:    {PhaseRunning},
	PhaseRunning:     {PhasePassed, PhaseFailed},
}

// Terminal reports whether no further transition can leave p. COMPILED is
// final only when execution is disabled, so it is not terminal here.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseExhausted, PhasePassed, PhaseFailed, PhaseErrored:
		return true
	}
	return false
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to Phase) bool {
	if to == PhaseErrored {
		return !from.Terminal()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AttemptOutcome is the result of recompiling a repaired artifact.
type AttemptOutcome string

const (
	OutcomeCompiled    AttemptOutcome = "compiled"
	OutcomeStillBroken AttemptOutcome = "still-broken"
	OutcomeExhausted   AttemptOutcome = "exhausted"
)
