package workflow

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/k11techlab/testsmith/generator"
	"github.com/k11techlab/testsmith/store"
	"github.com/k11techlab/testsmith/types"
)

// RoleWorkflow is the context-store role of phase records.
const RoleWorkflow = "workflow"

// CompileAttempt is one repair round: the artifact that failed to compile,
// the diagnostics it produced, the repaired artifact and how the recompile
// went. Result is nil when the repair call failed in transport.
type CompileAttempt struct {
	Index       int                 `json:"index"`
	Input       *generator.Artifact `json:"input"`
	Diagnostics string              `json:"diagnostics"`
	Result      *generator.Artifact `json:"result,omitempty"`
	Outcome     AttemptOutcome      `json:"outcome,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// Run is the state of one workflow, identified by its correlation key.
type Run struct {
	CorrelationKey string              `json:"correlation_key"`
	Phase          Phase               `json:"phase"`
	Status         string              `json:"status"`
	Request        generator.Request   `json:"request"`
	MaxAttempts    int                 `json:"max_attempts"`
	Repairs        int                 `json:"repairs"`
	Artifact       *generator.Artifact `json:"artifact,omitempty"`
	Attempts       []CompileAttempt    `json:"attempts"`
	Diagnostics    string              `json:"diagnostics,omitempty"`
	Output         string              `json:"output,omitempty"`
	Error          string              `json:"error,omitempty"`
	ErrorCode      types.ErrorCode     `json:"error_code,omitempty"`
	ErrorStatus    int                 `json:"-"`
	Phases         []Phase             `json:"phases"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// PhaseRecord is persisted once per transition. Fields other than Phase and
// Repairs are set only when they change.
type PhaseRecord struct {
	Phase       Phase               `json:"phase"`
	From        Phase               `json:"from,omitempty"`
	Repairs     int                 `json:"repairs"`
	MaxAttempts int                 `json:"max_attempts,omitempty"`
	Request     *generator.Request  `json:"request,omitempty"`
	Artifact    *generator.Artifact `json:"artifact,omitempty"`
	Attempt     *CompileAttempt     `json:"attempt,omitempty"`
	Diagnostics string              `json:"diagnostics,omitempty"`
	Output      string              `json:"output,omitempty"`
	Error       string              `json:"error,omitempty"`
	ErrorCode   types.ErrorCode     `json:"error_code,omitempty"`
	ErrorStatus int                 `json:"error_status,omitempty"`
	At          time.Time           `json:"at"`
}

// apply folds rec into r. Live runs and replayed runs both go through here.
func (r *Run) apply(rec PhaseRecord) {
	r.Phase = rec.Phase
	r.Phases = append(r.Phases, rec.Phase)
	r.Repairs = rec.Repairs
	r.UpdatedAt = rec.At
	if rec.MaxAttempts > 0 {
		r.MaxAttempts = rec.MaxAttempts
	}
	if rec.Request != nil {
		r.Request = *rec.Request
	}
	if rec.Artifact != nil {
		r.Artifact = rec.Artifact
	}
	if rec.Attempt != nil {
		r.upsertAttempt(*rec.Attempt)
	}
	if rec.Diagnostics != "" {
		r.Diagnostics = rec.Diagnostics
	}
	if rec.Output != "" {
		r.Output = rec.Output
	}
	if rec.Error != "" {
		r.Error = rec.Error
		r.ErrorCode = rec.ErrorCode
		r.ErrorStatus = rec.ErrorStatus
	}
	r.Status = statusOf(r.Phase)
}

func (r *Run) upsertAttempt(a CompileAttempt) {
	for i := range r.Attempts {
		if r.Attempts[i].Index == a.Index {
			r.Attempts[i] = a
			return
		}
	}
	r.Attempts = append(r.Attempts, a)
}

// lastAttempt returns the attempt for the current repair round, if any.
func (r *Run) lastAttempt() *CompileAttempt {
	if len(r.Attempts) == 0 {
		return nil
	}
	a := r.Attempts[len(r.Attempts)-1]
	if a.Index != r.Repairs {
		return nil
	}
	return &a
}

func statusOf(p Phase) string {
	switch p {
	case PhaseCompiled, PhaseExhausted, PhasePassed, PhaseFailed, PhaseErrored:
		return strings.ToLower(string(p))
	}
	return "in_progress"
}

// check rejects a record that could not follow the run's current state.
func (r *Run) check(rec PhaseRecord) error {
	if !CanTransition(r.Phase, rec.Phase) {
		return fmt.Errorf("illegal transition %s -> %q", displayPhase(r.Phase), rec.Phase)
	}
	want := r.Repairs
	if rec.Phase == PhaseRepairing {
		want++
	}
	if rec.Repairs != want {
		return fmt.Errorf("repair count %d after %d", rec.Repairs, r.Repairs)
	}
	limit := r.MaxAttempts
	if rec.MaxAttempts > 0 {
		limit = rec.MaxAttempts
	}
	if limit > 0 && rec.Repairs > limit {
		return fmt.Errorf("repair count %d exceeds %d attempts", rec.Repairs, limit)
	}
	return nil
}

// Replay rebuilds a run from its context history. ok is false when the
// history holds no phase records. A record that cannot follow the ones
// before it is reported as STORE_ERROR.
func Replay(key string, entries []store.Entry) (run *Run, ok bool, err error) {
	run = &Run{CorrelationKey: key, Attempts: []CompileAttempt{}}
	for _, e := range entries {
		if e.Role != RoleWorkflow {
			continue
		}
		var rec PhaseRecord
		if err := json.Unmarshal([]byte(e.Content), &rec); err != nil {
			return nil, false, types.NewError(types.ErrStore,
				fmt.Sprintf("corrupt workflow record %d for %q", e.Seq, key)).WithCause(err)
		}
		if err := run.check(rec); err != nil {
			return nil, false, types.NewError(types.ErrStore,
				fmt.Sprintf("invalid workflow record %d for %q", e.Seq, key)).WithCause(err)
		}
		run.apply(rec)
		ok = true
	}
	return run, ok, nil
}
