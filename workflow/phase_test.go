package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Phase
		want     bool
	}{
		{"", PhaseDrafted, true},
		{"", PhaseCompiling, false},
		{PhaseDrafted, PhaseCompiling, true},
		{PhaseCompiling, PhaseCompiled, true},
		{PhaseCompiling, PhaseNeedsRepair, true},
		{PhaseCompiling, PhaseExhausted, true},
		{PhaseNeedsRepair, PhaseRepairing, true},
		{PhaseNeedsRepair, PhaseCompiling, false},
		{PhaseRepairing, PhaseCompiling, true},
		{PhaseRepairing, PhaseCompiled, false},
		{PhaseCompiled, PhaseRunning, true},
		{PhaseRunning, PhasePassed, true},
		{PhaseRunning, PhaseFailed, true},
		{PhasePassed, PhaseRunning, false},
		{PhaseExhausted, PhaseRepairing, false},
		{PhaseRepairing, PhaseErrored, true},
		{"", PhaseErrored, true},
		{PhaseFailed, PhaseErrored, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTerminalPhasesHaveNoSuccessors(t *testing.T) {
	all := []Phase{
		PhaseDrafted, PhaseCompiling, PhaseCompiled, PhaseNeedsRepair, PhaseRepairing,
		PhaseExhausted, PhaseRunning, PhasePassed, PhaseFailed, PhaseErrored,
	}
	rapid.Check(t, func(t *rapid.T) {
		from := rapid.SampledFrom(all).Draw(t, "from")
		to := rapid.SampledFrom(all).Draw(t, "to")
		if from.Terminal() && CanTransition(from, to) {
			t.Fatalf("terminal phase %s must not move to %s", from, to)
		}
		if !from.Terminal() && !CanTransition(from, PhaseErrored) {
			t.Fatalf("phase %s must be able to error", from)
		}
	})
}
