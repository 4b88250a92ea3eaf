package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/k11techlab/testsmith/config"
	"github.com/k11techlab/testsmith/generator"
	"github.com/k11techlab/testsmith/internal/metrics"
	"github.com/k11techlab/testsmith/internal/telemetry"
	"github.com/k11techlab/testsmith/internal/toolchain"
	"github.com/k11techlab/testsmith/repair"
	"github.com/k11techlab/testsmith/store"
	"github.com/k11techlab/testsmith/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Generator produces the first draft of a test.
type Generator interface {
	Generate(ctx context.Context, req generator.Request) (*generator.Artifact, error)
}

// Repairer performs a single repair call.
type Repairer interface {
	Repair(ctx context.Context, req repair.Request) (*generator.Artifact, error)
}

// Config bounds the loop.
type Config struct {
	MaxAttempts    int
	CompileTimeout time.Duration
	RunTimeout     time.Duration
	Execute        bool
}

// ConfigFromSettings builds a Config from the workflow and repair sections.
func ConfigFromSettings(wf config.WorkflowConfig, rp config.RepairConfig) Config {
	return Config{
		MaxAttempts:    rp.MaxAttempts,
		CompileTimeout: wf.CompileTimeout,
		RunTimeout:     wf.RunTimeout,
		Execute:        wf.Execute,
	}
}

// Request starts or resumes a workflow. An empty CorrelationKey starts a new
// run under a generated "wf-<uuid>" key.
type Request struct {
	CorrelationKey string            `json:"correlation_key,omitempty"`
	Generation     generator.Request `json:"generation"`
	// MaxAttempts lowers the configured repair ceiling for a new run. Larger
	// values are clamped to the configured ceiling.
	MaxAttempts int `json:"max_attempts,omitempty"`
}

// Orchestrator drives the generate → compile → repair → run loop and
// persists every transition to the context store.
type Orchestrator struct {
	gen       Generator
	repairer  Repairer
	tools     toolchain.Toolchain
	store     *store.Store
	cfg       Config
	group     singleflight.Group
	tracer    trace.Tracer
	collector *metrics.Collector
	logger    *zap.Logger
	now       func() time.Time
}

// New creates an Orchestrator.
func New(gen Generator, repairer Repairer, tools toolchain.Toolchain, st *store.Store, cfg Config, collector *metrics.Collector, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := config.DefaultWorkflowConfig()
	cfg.MaxAttempts = repair.NormalizeMaxAttempts(cfg.MaxAttempts)
	if cfg.CompileTimeout <= 0 {
		cfg.CompileTimeout = defaults.CompileTimeout
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = defaults.RunTimeout
	}
	return &Orchestrator{
		gen:       gen,
		repairer:  repairer,
		tools:     tools,
		store:     st,
		cfg:       cfg,
		tracer:    telemetry.Tracer("workflow"),
		collector: collector,
		logger:    logger.With(zap.String("component", "workflow")),
		now:       time.Now,
	}
}

// Available reports whether a toolchain is wired in.
func (o *Orchestrator) Available() bool {
	if o.tools == nil {
		return false
	}
	_, disabled := o.tools.(toolchain.Disabled)
	return !disabled
}

// Execute starts a new run or resumes the one stored under req.CorrelationKey.
// Concurrent calls for the same key share one execution. A run that ends
// EXHAUSTED or ERRORED is returned together with its error.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (*Run, error) {
	if !o.Available() {
		return nil, types.NewError(types.ErrServiceUnavailable, "compile toolchain is not enabled").
			WithHTTPStatus(503)
	}

	key := strings.TrimSpace(req.CorrelationKey)
	if key == "" {
		key = "wf-" + uuid.NewString()
	}
	req.CorrelationKey = key

	type outcome struct {
		run *Run
		err error
	}
	v, _, _ := o.group.Do(key, func() (any, error) {
		run, err := o.execute(ctx, req)
		return outcome{run: run, err: err}, nil
	})
	out := v.(outcome)
	return out.run, out.err
}

// Get replays the run stored under key.
func (o *Orchestrator) Get(ctx context.Context, key string) (*Run, error) {
	history, err := o.store.History(ctx, key)
	if err != nil {
		return nil, err
	}
	run, ok, err := Replay(key, history.Entries)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.NewError(types.ErrNotFound, fmt.Sprintf("no workflow recorded under %q", key)).
			WithHTTPStatus(404)
	}
	return run, nil
}

func (o *Orchestrator) execute(ctx context.Context, req Request) (run *Run, err error) {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "workflow.run",
		trace.WithAttributes(attribute.String("workflow.key", req.CorrelationKey)))
	defer func() { telemetry.EndSpan(span, err) }()
	ctx = types.WithCorrelationKey(ctx, req.CorrelationKey)
	logger := o.logger.With(zap.String("correlation_key", req.CorrelationKey))

	run, resumed, err := o.load(ctx, req.CorrelationKey)
	if err != nil {
		return nil, err
	}

	if !resumed {
		run, err = o.draft(ctx, req)
		if err != nil {
			return run, err
		}
	} else {
		logger.Info("resuming workflow", zap.String("phase", string(run.Phase)))
	}

	for !o.finished(run) {
		if err := ctx.Err(); err != nil {
			return run, types.NewError(types.ErrTransport, "workflow interrupted").
				WithCause(err).WithHTTPStatus(504).WithRetryable(true)
		}
		if err := o.step(ctx, run); err != nil {
			if run.Phase == PhaseErrored && o.collector != nil {
				o.collector.RecordWorkflowRun(string(run.Phase), time.Since(start))
			}
			return run, err
		}
	}

	span.SetAttributes(attribute.String("workflow.phase", string(run.Phase)), attribute.Int("workflow.repairs", run.Repairs))
	if o.collector != nil && !resumed {
		o.collector.RecordWorkflowRun(string(run.Phase), time.Since(start))
	}
	logger.Info("workflow finished",
		zap.String("phase", string(run.Phase)),
		zap.Int("repairs", run.Repairs),
		zap.Duration("duration", time.Since(start)))

	switch run.Phase {
	case PhaseExhausted:
		return run, types.NewError(types.ErrRepairExhausted,
			fmt.Sprintf("code still does not compile after %d repair attempts", run.Repairs)).
			WithHTTPStatus(422)
	case PhaseErrored:
		return run, erroredError(run)
	}
	return run, nil
}

func (o *Orchestrator) finished(run *Run) bool {
	if run.Phase.Terminal() {
		return true
	}
	return run.Phase == PhaseCompiled && !o.cfg.Execute
}

// load replays an existing history. A missing key is not an error.
func (o *Orchestrator) load(ctx context.Context, key string) (*Run, bool, error) {
	history, err := o.store.History(ctx, key)
	if err != nil {
		if types.HasCode(err, types.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return Replay(key, history.Entries)
}

// draft generates the first artifact and records DRAFTED.
func (o *Orchestrator) draft(ctx context.Context, req Request) (*Run, error) {
	maxAttempts := o.cfg.MaxAttempts
	if req.MaxAttempts > 0 && req.MaxAttempts < maxAttempts {
		maxAttempts = req.MaxAttempts
	}
	run := &Run{CorrelationKey: req.CorrelationKey, Attempts: []CompileAttempt{}}

	ctx, span := o.tracer.Start(ctx, "workflow.generate")
	artifact, err := o.gen.Generate(ctx, req.Generation)
	telemetry.EndSpan(span, err)
	if err != nil {
		// nothing to resume once the request is fixed or a credential is configured
		if types.HasCode(err, types.ErrInvalidRequest) || types.HasCode(err, types.ErrConfiguration) {
			return nil, err
		}
		rec := erroredRecord(err)
		rec.MaxAttempts = maxAttempts
		rec.Request = &req.Generation
		if perr := o.transition(ctx, run, rec); perr != nil {
			return nil, perr
		}
		return run, err
	}

	gen := req.Generation
	gen.PackageName = artifact.PackageName
	gen.ClassName = artifact.ClassName
	return run, o.transition(ctx, run, PhaseRecord{
		Phase:       PhaseDrafted,
		MaxAttempts: maxAttempts,
		Request:     &gen,
		Artifact:    artifact,
	})
}

// step performs the work of the current phase and records the next one.
func (o *Orchestrator) step(ctx context.Context, run *Run) (err error) {
	ctx, span := o.tracer.Start(ctx, "workflow."+strings.ToLower(string(run.Phase)),
		trace.WithAttributes(attribute.Int("workflow.repairs", run.Repairs)))
	defer func() { telemetry.EndSpan(span, err) }()

	switch run.Phase {
	case PhaseDrafted:
		return o.transition(ctx, run, PhaseRecord{Phase: PhaseCompiling})
	case PhaseCompiling:
		return o.compile(ctx, run)
	case PhaseNeedsRepair:
		attempt := CompileAttempt{
			Index:       run.Repairs + 1,
			Input:       run.Artifact,
			Diagnostics: run.Diagnostics,
		}
		return o.transition(ctx, run, PhaseRecord{Phase: PhaseRepairing, Repairs: run.Repairs + 1, Attempt: &attempt})
	case PhaseRepairing:
		return o.repair(ctx, run)
	case PhaseCompiled:
		return o.transition(ctx, run, PhaseRecord{Phase: PhaseRunning})
	case PhaseRunning:
		return o.run(ctx, run)
	}
	return types.NewError(types.ErrInternalError, fmt.Sprintf("no step for phase %q", run.Phase))
}

func (o *Orchestrator) compile(ctx context.Context, run *Run) error {
	cctx, cancel := context.WithTimeout(ctx, o.cfg.CompileTimeout)
	res, err := o.tools.Compile(cctx, unitOf(run.Artifact))
	cancel()
	if err != nil {
		return o.fail(ctx, run, err)
	}
	if ctx.Err() != nil {
		return nil
	}

	next := PhaseRecord{Diagnostics: res.Output}
	outcome := OutcomeStillBroken
	switch {
	case res.OK:
		next.Phase = PhaseCompiled
		outcome = OutcomeCompiled
	case run.Repairs >= run.MaxAttempts:
		next.Phase = PhaseExhausted
		outcome = OutcomeExhausted
	default:
		next.Phase = PhaseNeedsRepair
	}
	if next.Diagnostics == "" && !res.OK {
		next.Diagnostics = "compilation failed without diagnostics"
	}

	if a := run.lastAttempt(); a != nil {
		a.Outcome = outcome
		next.Attempt = a
		if o.collector != nil {
			o.collector.RecordRepairAttempt(string(outcome))
		}
	}
	return o.transition(ctx, run, next)
}

func (o *Orchestrator) repair(ctx context.Context, run *Run) error {
	attempt := run.lastAttempt()
	if attempt == nil {
		attempt = &CompileAttempt{Index: run.Repairs, Input: run.Artifact, Diagnostics: run.Diagnostics}
	}

	fixed, err := o.repairer.Repair(ctx, repair.Request{
		Artifact:       run.Artifact,
		CompilerOutput: attempt.Diagnostics,
		Scenario:       run.Request.Scenario,
		PackageName:    run.Request.PackageName,
		ClassName:      run.Request.ClassName,
		RequestID:      run.Request.RequestID,
	})
	if err != nil {
		if !types.HasCode(err, types.ErrTransport) {
			return o.fail(ctx, run, err)
		}
		if ctx.Err() != nil {
			return nil
		}
		// the round is spent; recompile the unchanged artifact
		o.logger.Warn("repair call failed in transport, attempt consumed",
			zap.String("correlation_key", run.CorrelationKey),
			zap.Int("attempt", attempt.Index),
			zap.Error(err))
		attempt.Error = err.Error()
		return o.transition(ctx, run, PhaseRecord{Phase: PhaseCompiling, Repairs: run.Repairs, Attempt: attempt})
	}

	attempt.Result = fixed
	return o.transition(ctx, run, PhaseRecord{
		Phase:    PhaseCompiling,
		Repairs:  run.Repairs,
		Artifact: fixed,
		Attempt:  attempt,
	})
}

func (o *Orchestrator) run(ctx context.Context, run *Run) error {
	rctx, cancel := context.WithTimeout(ctx, o.cfg.RunTimeout)
	res, err := o.tools.Run(rctx, unitOf(run.Artifact))
	cancel()
	if err != nil {
		return o.fail(ctx, run, err)
	}
	if ctx.Err() != nil {
		return nil
	}

	next := PhaseRecord{Phase: PhaseFailed, Output: res.Output}
	if res.OK {
		next.Phase = PhasePassed
	}
	if next.Output == "" {
		next.Output = strings.ToLower(string(next.Phase))
	}
	return o.transition(ctx, run, next)
}

// fail records ERRORED for a non-retryable collaborator failure and returns
// the cause.
func (o *Orchestrator) fail(ctx context.Context, run *Run, cause error) error {
	o.logger.Error("workflow errored",
		zap.String("correlation_key", run.CorrelationKey),
		zap.String("phase", string(run.Phase)),
		zap.Error(cause))
	if err := o.transition(ctx, run, erroredRecord(cause)); err != nil {
		return err
	}
	return cause
}

// erroredRecord keeps enough of cause to report it again on replay.
func erroredRecord(cause error) PhaseRecord {
	rec := PhaseRecord{Phase: PhaseErrored, Error: cause.Error(), ErrorCode: types.ErrInternalError}
	if e, ok := types.AsError(cause); ok {
		rec.ErrorCode = e.Code
		rec.ErrorStatus = e.HTTPStatus
	}
	return rec
}

// erroredError rebuilds the error of a run that ended ERRORED in an earlier
// invocation.
func erroredError(run *Run) error {
	code := run.ErrorCode
	if code == "" {
		code = types.ErrInternalError
	}
	status := run.ErrorStatus
	if status == 0 {
		status = code.HTTPStatus()
	}
	return types.NewError(code, "workflow errored").
		WithCause(errors.New(run.Error)).
		WithHTTPStatus(status)
}

// transition validates and persists rec, then applies it to run. The record
// is written even if ctx was cancelled so that the history matches the work
// that actually happened.
func (o *Orchestrator) transition(ctx context.Context, run *Run, rec PhaseRecord) error {
	rec.From = run.Phase
	if rec.Phase != PhaseRepairing && rec.Repairs == 0 {
		rec.Repairs = run.Repairs
	}
	if !CanTransition(rec.From, rec.Phase) {
		return types.NewError(types.ErrInternalError,
			fmt.Sprintf("illegal workflow transition %s -> %s", displayPhase(rec.From), rec.Phase))
	}
	rec.At = o.now().UTC()

	payload, err := json.Marshal(rec)
	if err != nil {
		return types.NewError(types.ErrInternalError, "failed to encode phase record").WithCause(err)
	}
	if _, err := o.store.Append(context.WithoutCancel(ctx), run.CorrelationKey, RoleWorkflow, string(payload)); err != nil {
		return err
	}

	if o.collector != nil {
		o.collector.RecordTransition(displayPhase(rec.From), string(rec.Phase))
	}
	o.logger.Debug("workflow transition",
		zap.String("correlation_key", run.CorrelationKey),
		zap.String("from", displayPhase(rec.From)),
		zap.String("to", string(rec.Phase)),
		zap.Int("repairs", rec.Repairs))

	run.apply(rec)
	return nil
}

func displayPhase(p Phase) string {
	if p == "" {
		return "START"
	}
	return string(p)
}

func unitOf(a *generator.Artifact) toolchain.Unit {
	return toolchain.Unit{PackageName: a.PackageName, ClassName: a.ClassName, Source: a.Source}
}
